package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is one row of the stock ledger, keyed by its unique code.
// Quantity on hand never goes negative; only the sale engine decrements it.
type Product struct {
	Code        string          `json:"code"`
	Lot         string          `json:"lot"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Quantity    int             `json:"quantity"`
	Weight      float64         `json:"weight"`
	Volume      float64         `json:"volume"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}
