package port

import "context"

// Tx groups the repositories that share one transaction.
type Tx interface {
	Stock() StockRepository
	Sales() SaleRepository
}

// TxManager runs fn as a single atomic unit of work over one borrowed
// connection: every write staged by fn becomes visible together on commit, or
// not at all when fn or the commit fails.
type TxManager interface {
	WithinTx(ctx context.Context, fn func(tx Tx) error) error
}
