package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// SaleLineItem is one requested decrement within a batch. It exists only for
// the duration of a single ProcessSale call.
type SaleLineItem struct {
	Code     string `json:"code"`
	Quantity int    `json:"quantity"`
}

// SaleRecord is the append-only log entry written for each committed line
// item. Name and Price are snapshots taken at sale time.
type SaleRecord struct {
	ID       string          `json:"id"`
	Code     string          `json:"code"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity"`
	SoldAt   time.Time       `json:"sold_at"`
}
