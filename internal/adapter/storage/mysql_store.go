package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/dcastano/stockpos/internal/core/domain"
	"github.com/dcastano/stockpos/internal/port"
)

// MySQL error 1205: lock wait timeout exceeded.
const mysqlLockWaitTimeout = 1205

// MySQLStore implements the stock ledger, sale record store and user store
// on MySQL. Each unit of work borrows one connection from the pool and runs
// as a single transaction; stock reads inside it take row locks, so
// concurrent batches touching the same codes serialize instead of both
// observing the pre-decrement quantity.
type MySQLStore struct {
	db *sql.DB
}

func NewMySQLStore(db *sql.DB) *MySQLStore {
	return &MySQLStore{db: db}
}

// WithinTx runs fn inside one transaction and commits only if fn succeeds.
// The deferred rollback covers every abort path, including an abandoned
// context.
func (s *MySQLStore) WithinTx(ctx context.Context, fn func(tx port.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return wrapStorage("begin tx", err)
	}
	defer tx.Rollback()

	if err := fn(&mysqlTx{tx: tx}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return wrapStorage("commit", err)
	}
	return nil
}

// Stock returns the ledger outside of any transaction, for management reads
// and writes that do not need the sale engine's isolation.
func (s *MySQLStore) Stock() port.StockRepository {
	return &mysqlStockRepo{q: s.db}
}

func (s *MySQLStore) Sales() port.SaleRepository {
	return &mysqlSaleRepo{q: s.db}
}

func (s *MySQLStore) Users() port.UserRepository {
	return &mysqlUserRepo{q: s.db}
}

type mysqlTx struct {
	tx *sql.Tx
}

func (t *mysqlTx) Stock() port.StockRepository {
	return &mysqlStockRepo{q: t.tx, locking: true}
}

func (t *mysqlTx) Sales() port.SaleRepository {
	return &mysqlSaleRepo{q: t.tx}
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type mysqlStockRepo struct {
	q       querier
	locking bool
}

const productColumns = `code, lot, name, description, price, quantity, weight, volume, created_at, updated_at`

func (r *mysqlStockRepo) GetForUpdate(ctx context.Context, code string) (*domain.Product, error) {
	return r.find(ctx, code, r.locking)
}

func (r *mysqlStockRepo) FindByCode(ctx context.Context, code string) (*domain.Product, error) {
	return r.find(ctx, code, false)
}

func (r *mysqlStockRepo) find(ctx context.Context, code string, lock bool) (*domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE code = ?`
	if lock {
		query += ` FOR UPDATE`
	}

	var p domain.Product
	err := r.q.QueryRowContext(ctx, query, code).Scan(
		&p.Code, &p.Lot, &p.Name, &p.Description, &p.Price,
		&p.Quantity, &p.Weight, &p.Volume, &p.CreatedAt, &p.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, wrapStorage("query product", err)
	}
	return &p, nil
}

func (r *mysqlStockRepo) SetQuantity(ctx context.Context, code string, quantity int) error {
	result, err := r.q.ExecContext(ctx, `
		UPDATE products SET quantity = ?, updated_at = NOW() WHERE code = ?`,
		quantity, code,
	)
	if err != nil {
		return wrapStorage("update quantity", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return port.ErrNotFound
	}
	return nil
}

func (r *mysqlStockRepo) List(ctx context.Context) ([]domain.Product, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT `+productColumns+` FROM products ORDER BY code`)
	if err != nil {
		return nil, wrapStorage("list products", err)
	}
	defer rows.Close()

	var products []domain.Product
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(
			&p.Code, &p.Lot, &p.Name, &p.Description, &p.Price,
			&p.Quantity, &p.Weight, &p.Volume, &p.CreatedAt, &p.UpdatedAt,
		); err != nil {
			return nil, wrapStorage("scan product", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapStorage("list products", err)
	}
	return products, nil
}

func (r *mysqlStockRepo) CreateOrUpdate(ctx context.Context, p domain.Product) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO products (code, lot, name, description, price, quantity, weight, volume, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, NOW(), NOW())
		ON DUPLICATE KEY UPDATE
			lot = VALUES(lot), name = VALUES(name), description = VALUES(description),
			price = VALUES(price), quantity = VALUES(quantity),
			weight = VALUES(weight), volume = VALUES(volume), updated_at = NOW()`,
		p.Code, p.Lot, p.Name, p.Description, p.Price, p.Quantity, p.Weight, p.Volume,
	)
	if err != nil {
		return wrapStorage("upsert product", err)
	}
	return nil
}

func (r *mysqlStockRepo) Delete(ctx context.Context, code string) error {
	result, err := r.q.ExecContext(ctx, `DELETE FROM products WHERE code = ?`, code)
	if err != nil {
		return wrapStorage("delete product", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return port.ErrNotFound
	}
	return nil
}

type mysqlSaleRepo struct {
	q querier
}

func (r *mysqlSaleRepo) Append(ctx context.Context, rec domain.SaleRecord) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO sales (id, code, name, price, quantity, sold_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Code, rec.Name, rec.Price, rec.Quantity, rec.SoldAt,
	)
	if err != nil {
		return wrapStorage("insert sale", err)
	}
	return nil
}

func (r *mysqlSaleRepo) Query(ctx context.Context, from, to *time.Time) ([]domain.SaleRecord, error) {
	query := `
		SELECT s.id, s.code, p.name, s.price, s.quantity, s.sold_at
		FROM sales s
		JOIN products p ON s.code = p.code`
	var args []any

	switch {
	case from != nil && to != nil:
		query += ` WHERE s.sold_at BETWEEN ? AND ?`
		args = append(args, *from, *to)
	case from != nil:
		query += ` WHERE s.sold_at >= ?`
		args = append(args, *from)
	case to != nil:
		query += ` WHERE s.sold_at <= ?`
		args = append(args, *to)
	}
	query += ` ORDER BY s.sold_at`

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrapStorage("query sales", err)
	}
	defer rows.Close()

	var records []domain.SaleRecord
	for rows.Next() {
		var rec domain.SaleRecord
		if err := rows.Scan(&rec.ID, &rec.Code, &rec.Name, &rec.Price, &rec.Quantity, &rec.SoldAt); err != nil {
			return nil, wrapStorage("scan sale", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapStorage("query sales", err)
	}
	return records, nil
}

type mysqlUserRepo struct {
	q querier
}

func (r *mysqlUserRepo) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	var u domain.User
	err := r.q.QueryRowContext(ctx, `
		SELECT id, username, password_hash, created_at FROM users WHERE username = ?`,
		username,
	).Scan(&u.ID, &u.Username, &u.PasswordHash, &u.CreatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, wrapStorage("query user", err)
	}
	return &u, nil
}

func (r *mysqlUserRepo) Create(ctx context.Context, u domain.User) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO users (username, password_hash, created_at) VALUES (?, ?, ?)`,
		u.Username, u.PasswordHash, u.CreatedAt,
	)
	if err != nil {
		return wrapStorage("insert user", err)
	}
	return nil
}

func (r *mysqlUserRepo) UpdatePassword(ctx context.Context, username, passwordHash string) error {
	result, err := r.q.ExecContext(ctx, `
		UPDATE users SET password_hash = ? WHERE username = ?`,
		passwordHash, username,
	)
	if err != nil {
		return wrapStorage("update password", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return port.ErrNotFound
	}
	return nil
}

// wrapStorage classifies driver errors into the sale error taxonomy: bounded
// lock waits and expired deadlines surface as ErrTimeout, everything else as
// a retryable StorageError.
func wrapStorage(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || isLockTimeout(err) {
		return fmt.Errorf("%s: %w", op, domain.ErrTimeout)
	}
	return &domain.StorageError{Op: op, Err: err}
}

func isLockTimeout(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlLockWaitTimeout
}
