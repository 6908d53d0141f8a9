package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/dcastano/stockpos/internal/core/domain"
	"github.com/dcastano/stockpos/internal/core/service"
	"github.com/dcastano/stockpos/internal/port"
)

// HTTPHandler is the request gateway: it translates JSON requests into
// service calls and engine outcomes into transport responses.
type HTTPHandler struct {
	sales    *service.SaleService
	products *service.ProductService
	reports  *service.ReportService
	auth     *service.AuthService
	idem     port.IdempotencyStore // nil disables the duplicate gate
}

func NewHTTPHandler(
	sales *service.SaleService,
	products *service.ProductService,
	reports *service.ReportService,
	auth *service.AuthService,
	idem port.IdempotencyStore,
) *HTTPHandler {
	return &HTTPHandler{
		sales:    sales,
		products: products,
		reports:  reports,
		auth:     auth,
		idem:     idem,
	}
}

func (h *HTTPHandler) Register(e *echo.Echo, authMW echo.MiddlewareFunc) {
	e.GET("/health", h.health)
	e.POST("/api/register", h.register)
	e.POST("/api/login", h.login)
	e.GET("/api/products", h.listProducts)
	e.GET("/api/products/:code", h.getProduct)

	guarded := e.Group("/api", authMW)
	guarded.POST("/products", h.createProducts)
	guarded.PUT("/products/:code", h.updateProduct)
	guarded.DELETE("/products/:code", h.deleteProduct)
	guarded.POST("/sales", h.processSale)
	guarded.GET("/report", h.salesReport)
	guarded.PUT("/update-password/:username", h.updatePassword)
}

func (h *HTTPHandler) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

type processSaleRequest struct {
	RequestID string                `json:"request_id,omitempty"`
	Items     []domain.SaleLineItem `json:"items"`
}

type processSaleResponse struct {
	Committed bool                `json:"committed"`
	Records   []domain.SaleRecord `json:"records,omitempty"`
}

func (h *HTTPHandler) processSale(c echo.Context) error {
	var req processSaleRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorJSON("invalid request body"))
	}

	ctx := c.Request().Context()

	gated := false
	if h.idem != nil && req.RequestID != "" {
		ok, err := h.idem.SetIdempotency(ctx, req.RequestID)
		if err != nil {
			return c.JSON(http.StatusServiceUnavailable, errorJSON("duplicate check failed"))
		}
		if !ok {
			return c.JSON(http.StatusConflict, errorJSON("duplicate request"))
		}
		gated = true
	}

	records, err := h.sales.ProcessSale(ctx, req.Items)
	if err != nil {
		// A retryable abort frees the request ID for resubmission; a key
		// leaked by a failed clear expires with the TTL.
		if gated && retryableSaleError(err) {
			_ = h.idem.ClearIdempotency(ctx, req.RequestID)
		}
		status, msg := saleErrorStatus(err)
		return c.JSON(status, errorJSON(msg))
	}

	return c.JSON(http.StatusOK, processSaleResponse{Committed: true, Records: records})
}

func retryableSaleError(err error) bool {
	var storageErr *domain.StorageError
	return errors.Is(err, domain.ErrTimeout) || errors.As(err, &storageErr)
}

// saleErrorStatus maps the sale error taxonomy to transport statuses.
func saleErrorStatus(err error) (int, string) {
	var notFound *domain.ProductNotFoundError
	var insufficient *domain.InsufficientStockError

	switch {
	case errors.Is(err, domain.ErrInvalidRequest):
		return http.StatusBadRequest, err.Error()
	case errors.As(err, &notFound):
		return http.StatusNotFound, notFound.Error()
	case errors.As(err, &insufficient):
		return http.StatusConflict, insufficient.Error()
	case errors.Is(err, domain.ErrTimeout):
		return http.StatusServiceUnavailable, "timed out, retry later"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

func (h *HTTPHandler) createProducts(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorJSON("invalid request body"))
	}

	// The body may be a single product or an array of them.
	var products []domain.Product
	if err := json.Unmarshal(body, &products); err != nil {
		var single domain.Product
		if err := json.Unmarshal(body, &single); err != nil {
			return c.JSON(http.StatusBadRequest, errorJSON("invalid request body"))
		}
		products = []domain.Product{single}
	}

	if err := h.products.CreateProducts(c.Request().Context(), products); err != nil {
		status, msg := saleErrorStatus(err)
		return c.JSON(status, errorJSON(msg))
	}
	return c.JSON(http.StatusCreated, map[string]int{"created": len(products)})
}

func (h *HTTPHandler) listProducts(c echo.Context) error {
	products, err := h.products.ListProducts(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, errorJSON("internal error"))
	}
	return c.JSON(http.StatusOK, products)
}

func (h *HTTPHandler) getProduct(c echo.Context) error {
	p, err := h.products.GetProduct(c.Request().Context(), c.Param("code"))
	if errors.Is(err, port.ErrNotFound) {
		return c.JSON(http.StatusNotFound, errorJSON("product not found"))
	}
	if err != nil {
		status, msg := saleErrorStatus(err)
		return c.JSON(status, errorJSON(msg))
	}
	return c.JSON(http.StatusOK, p)
}

type productUpdateRequest struct {
	Lot         *string          `json:"lot"`
	Name        *string          `json:"name"`
	Description *string          `json:"description"`
	Price       *decimal.Decimal `json:"price"`
	Quantity    *int             `json:"quantity"`
	Weight      *float64         `json:"weight"`
	Volume      *float64         `json:"volume"`
}

func (h *HTTPHandler) updateProduct(c echo.Context) error {
	var req productUpdateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorJSON("invalid request body"))
	}

	err := h.products.UpdateProduct(c.Request().Context(), c.Param("code"), service.ProductUpdate{
		Lot:         req.Lot,
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Quantity:    req.Quantity,
		Weight:      req.Weight,
		Volume:      req.Volume,
	})
	if errors.Is(err, port.ErrNotFound) {
		return c.JSON(http.StatusNotFound, errorJSON("product not found"))
	}
	if err != nil {
		status, msg := saleErrorStatus(err)
		return c.JSON(status, errorJSON(msg))
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "updated"})
}

func (h *HTTPHandler) deleteProduct(c echo.Context) error {
	err := h.products.DeleteProduct(c.Request().Context(), c.Param("code"))
	if errors.Is(err, port.ErrNotFound) {
		return c.JSON(http.StatusNotFound, errorJSON("product not found"))
	}
	if err != nil {
		status, msg := saleErrorStatus(err)
		return c.JSON(status, errorJSON(msg))
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *HTTPHandler) salesReport(c echo.Context) error {
	from, err := parseDateParam(c.QueryParam("from"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorJSON("invalid from date"))
	}
	to, err := parseDateParam(c.QueryParam("to"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorJSON("invalid to date"))
	}

	records, err := h.reports.SalesReport(c.Request().Context(), from, to)
	if err != nil {
		status, msg := saleErrorStatus(err)
		return c.JSON(status, errorJSON(msg))
	}
	return c.JSON(http.StatusOK, records)
}

func parseDateParam(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *HTTPHandler) register(c echo.Context) error {
	var req credentialsRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorJSON("invalid request body"))
	}

	err := h.auth.Register(c.Request().Context(), req.Username, req.Password)
	if errors.Is(err, service.ErrUsernameTaken) {
		return c.JSON(http.StatusBadRequest, errorJSON("username already taken"))
	}
	if errors.Is(err, domain.ErrInvalidRequest) {
		return c.JSON(http.StatusBadRequest, errorJSON(err.Error()))
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, errorJSON("internal error"))
	}
	return c.JSON(http.StatusCreated, map[string]string{"status": "registered"})
}

func (h *HTTPHandler) login(c echo.Context) error {
	var req credentialsRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorJSON("invalid request body"))
	}

	token, err := h.auth.Login(c.Request().Context(), req.Username, req.Password)
	if errors.Is(err, service.ErrInvalidCredentials) {
		return c.JSON(http.StatusUnauthorized, errorJSON("invalid credentials"))
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, errorJSON("internal error"))
	}
	return c.JSON(http.StatusOK, map[string]string{"token": token})
}

type updatePasswordRequest struct {
	NewPassword string `json:"new_password"`
}

func (h *HTTPHandler) updatePassword(c echo.Context) error {
	var req updatePasswordRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorJSON("invalid request body"))
	}

	err := h.auth.UpdatePassword(c.Request().Context(), c.Param("username"), req.NewPassword)
	if errors.Is(err, port.ErrNotFound) {
		return c.JSON(http.StatusNotFound, errorJSON("user not found"))
	}
	if errors.Is(err, domain.ErrInvalidRequest) {
		return c.JSON(http.StatusBadRequest, errorJSON(err.Error()))
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, errorJSON("internal error"))
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "updated"})
}
