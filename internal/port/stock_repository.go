package port

import (
	"context"
	"errors"

	"github.com/dcastano/stockpos/internal/core/domain"
)

var ErrNotFound = errors.New("not found")

// StockRepository is the durable stock ledger. When obtained from a unit of
// work, GetForUpdate holds the row lock until the transaction ends so
// concurrent batches touching the same code serialize.
type StockRepository interface {
	// GetForUpdate returns the product, or nil when no row has the code.
	GetForUpdate(ctx context.Context, code string) (*domain.Product, error)

	// SetQuantity overwrites quantity on hand for an existing product.
	SetQuantity(ctx context.Context, code string, quantity int) error

	// FindByCode returns the product without locking, or nil when absent.
	FindByCode(ctx context.Context, code string) (*domain.Product, error)

	List(ctx context.Context) ([]domain.Product, error)
	CreateOrUpdate(ctx context.Context, p domain.Product) error
	Delete(ctx context.Context, code string) error
}
