package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dcastano/stockpos/internal/core/domain"
	"github.com/dcastano/stockpos/internal/port"
)

// ProductService manages the stock ledger outside of sales: registration,
// lookup, partial updates and removal.
type ProductService struct {
	stock port.StockRepository
	tx    port.TxManager
}

func NewProductService(stock port.StockRepository, tx port.TxManager) *ProductService {
	return &ProductService{stock: stock, tx: tx}
}

// CreateProducts registers one or more products. Existing codes are updated
// in place.
func (s *ProductService) CreateProducts(ctx context.Context, products []domain.Product) error {
	if len(products) == 0 {
		return fmt.Errorf("%w: no products given", domain.ErrInvalidRequest)
	}
	for i := range products {
		if err := validateProduct(&products[i]); err != nil {
			return err
		}
	}

	now := time.Now()
	for _, p := range products {
		p.CreatedAt = now
		p.UpdatedAt = now
		if err := s.stock.CreateOrUpdate(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

func (s *ProductService) GetProduct(ctx context.Context, code string) (*domain.Product, error) {
	if code == "" {
		return nil, fmt.Errorf("%w: missing product code", domain.ErrInvalidRequest)
	}

	p, err := s.stock.FindByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, port.ErrNotFound
	}
	return p, nil
}

func (s *ProductService) ListProducts(ctx context.Context) ([]domain.Product, error) {
	return s.stock.List(ctx)
}

// ProductUpdate carries the fields of a partial update; nil fields are left
// untouched.
type ProductUpdate struct {
	Lot         *string
	Name        *string
	Description *string
	Price       *decimal.Decimal
	Quantity    *int
	Weight      *float64
	Volume      *float64
}

func (u ProductUpdate) empty() bool {
	return u.Lot == nil && u.Name == nil && u.Description == nil &&
		u.Price == nil && u.Quantity == nil && u.Weight == nil && u.Volume == nil
}

func (s *ProductService) UpdateProduct(ctx context.Context, code string, upd ProductUpdate) error {
	if code == "" {
		return fmt.Errorf("%w: missing product code", domain.ErrInvalidRequest)
	}
	if upd.empty() {
		return fmt.Errorf("%w: no fields to update", domain.ErrInvalidRequest)
	}

	// The read-modify-write holds the row lock so a sale committing in
	// between cannot have its decrement overwritten by the stale read.
	return s.tx.WithinTx(ctx, func(tx port.Tx) error {
		p, err := tx.Stock().GetForUpdate(ctx, code)
		if err != nil {
			return err
		}
		if p == nil {
			return port.ErrNotFound
		}

		if upd.Lot != nil {
			p.Lot = *upd.Lot
		}
		if upd.Name != nil {
			p.Name = *upd.Name
		}
		if upd.Description != nil {
			p.Description = *upd.Description
		}
		if upd.Price != nil {
			p.Price = *upd.Price
		}
		if upd.Quantity != nil {
			p.Quantity = *upd.Quantity
		}
		if upd.Weight != nil {
			p.Weight = *upd.Weight
		}
		if upd.Volume != nil {
			p.Volume = *upd.Volume
		}

		if err := validateProduct(p); err != nil {
			return err
		}
		p.UpdatedAt = time.Now()

		return tx.Stock().CreateOrUpdate(ctx, *p)
	})
}

func (s *ProductService) DeleteProduct(ctx context.Context, code string) error {
	if code == "" {
		return fmt.Errorf("%w: missing product code", domain.ErrInvalidRequest)
	}
	return s.stock.Delete(ctx, code)
}

func validateProduct(p *domain.Product) error {
	if strings.TrimSpace(p.Code) == "" {
		return fmt.Errorf("%w: missing product code", domain.ErrInvalidRequest)
	}
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("%w: missing name for product %s", domain.ErrInvalidRequest, p.Code)
	}
	if p.Price.IsNegative() {
		return fmt.Errorf("%w: negative price for product %s", domain.ErrInvalidRequest, p.Code)
	}
	if p.Quantity < 0 {
		return fmt.Errorf("%w: negative quantity for product %s", domain.ErrInvalidRequest, p.Code)
	}
	return nil
}
