package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/dcastano/stockpos/internal/core/domain"
	"github.com/dcastano/stockpos/internal/metrics"
	"github.com/dcastano/stockpos/internal/port"
)

// SaleService is the transaction engine: it applies a batch of sale line
// items against the stock ledger and the sale record store as one atomic
// unit of work.
type SaleService struct {
	tx port.TxManager
}

func NewSaleService(tx port.TxManager) *SaleService {
	return &SaleService{tx: tx}
}

// ProcessSale validates the batch, then decrements stock and appends one
// sale record per line item inside a single transaction. Items are applied
// in input order; the first failing item aborts the whole batch and nothing
// is written. On success it returns the records that were committed.
//
// Resubmitting an identical batch decrements stock again; deduplication is
// the gateway's job.
func (s *SaleService) ProcessSale(ctx context.Context, items []domain.SaleLineItem) ([]domain.SaleRecord, error) {
	if err := validateBatch(items); err != nil {
		metrics.SalesAborted.WithLabelValues("invalid_request").Inc()
		return nil, err
	}

	records := make([]domain.SaleRecord, 0, len(items))

	err := s.tx.WithinTx(ctx, func(tx port.Tx) error {
		for _, it := range items {
			p, err := tx.Stock().GetForUpdate(ctx, it.Code)
			if err != nil {
				return err
			}
			if p == nil {
				return &domain.ProductNotFoundError{Code: it.Code}
			}

			remaining := p.Quantity - it.Quantity
			if remaining < 0 {
				return &domain.InsufficientStockError{Code: it.Code, Have: p.Quantity, Want: it.Quantity}
			}

			if err := tx.Stock().SetQuantity(ctx, it.Code, remaining); err != nil {
				return err
			}

			rec := domain.SaleRecord{
				ID:       uuid.NewString(),
				Code:     p.Code,
				Name:     p.Name,
				Price:    p.Price,
				Quantity: it.Quantity,
				SoldAt:   time.Now(),
			}
			if err := tx.Sales().Append(ctx, rec); err != nil {
				return err
			}
			records = append(records, rec)
		}
		return nil
	})
	if err != nil {
		metrics.SalesAborted.WithLabelValues(abortReason(err)).Inc()
		log.Warn().Err(err).Int("items", len(items)).Msg("sale aborted")
		return nil, err
	}

	metrics.SalesCommitted.Inc()
	log.Info().Int("items", len(items)).Msg("sale committed")
	return records, nil
}

func validateBatch(items []domain.SaleLineItem) error {
	if len(items) == 0 {
		return fmt.Errorf("%w: empty batch", domain.ErrInvalidRequest)
	}
	for _, it := range items {
		if it.Code == "" {
			return fmt.Errorf("%w: missing product code", domain.ErrInvalidRequest)
		}
		if it.Quantity <= 0 {
			return fmt.Errorf("%w: quantity %d for product %s", domain.ErrInvalidRequest, it.Quantity, it.Code)
		}
	}
	return nil
}

func abortReason(err error) string {
	var notFound *domain.ProductNotFoundError
	var insufficient *domain.InsufficientStockError

	switch {
	case errors.As(err, &notFound):
		return "product_not_found"
	case errors.As(err, &insufficient):
		return "insufficient_stock"
	case errors.Is(err, domain.ErrTimeout):
		return "timeout"
	default:
		return "storage"
	}
}
