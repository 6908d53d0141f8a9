package port

import (
	"context"
	"time"

	"github.com/dcastano/stockpos/internal/core/domain"
)

// SaleRepository is the append-only sale record store.
type SaleRepository interface {
	Append(ctx context.Context, rec domain.SaleRecord) error

	// Query returns committed records joined with the current product name,
	// optionally bounded by from/to (inclusive), ordered by sale time.
	Query(ctx context.Context, from, to *time.Time) ([]domain.SaleRecord, error)
}
