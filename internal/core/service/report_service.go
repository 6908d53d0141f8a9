package service

import (
	"context"
	"fmt"
	"time"

	"github.com/dcastano/stockpos/internal/core/domain"
	"github.com/dcastano/stockpos/internal/port"
)

// ReportService serves committed sale records to reporting consumers. File
// export is a downstream concern; the query is the contract.
type ReportService struct {
	sales port.SaleRepository
}

func NewReportService(sales port.SaleRepository) *ReportService {
	return &ReportService{sales: sales}
}

// SalesReport returns sale records joined with product names, bounded by the
// optional from/to range (inclusive).
func (s *ReportService) SalesReport(ctx context.Context, from, to *time.Time) ([]domain.SaleRecord, error) {
	if from != nil && to != nil && to.Before(*from) {
		return nil, fmt.Errorf("%w: report range ends before it starts", domain.ErrInvalidRequest)
	}
	return s.sales.Query(ctx, from, to)
}
