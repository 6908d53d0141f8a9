package storage

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"testing"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/shopspring/decimal"

	"github.com/dcastano/stockpos/internal/core/domain"
	"github.com/dcastano/stockpos/internal/port"
)

func getMySQLDB(t *testing.T) *sql.DB {
	dsn := os.Getenv("MYSQL_DSN")
	if dsn == "" {
		dsn = "root:root@tcp(localhost:3306)/stockpos?parseTime=true"
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		t.Skipf("MySQL not available: %v", err)
	}
	if err := db.Ping(); err != nil {
		t.Skipf("MySQL not available: %v", err)
	}

	createTables(t, db)
	return db
}

func createTables(t *testing.T, db *sql.DB) {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS products (
			code VARCHAR(64) PRIMARY KEY,
			lot VARCHAR(64) NOT NULL DEFAULT '',
			name VARCHAR(255) NOT NULL,
			description VARCHAR(1024) NOT NULL DEFAULT '',
			price DECIMAL(12,2) NOT NULL DEFAULT 0,
			quantity INT NOT NULL DEFAULT 0,
			weight DOUBLE NOT NULL DEFAULT 0,
			volume DOUBLE NOT NULL DEFAULT 0,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS sales (
			id CHAR(36) PRIMARY KEY,
			code VARCHAR(64) NOT NULL,
			name VARCHAR(255) NOT NULL,
			price DECIMAL(12,2) NOT NULL,
			quantity INT NOT NULL,
			sold_at DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS users (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			username VARCHAR(64) NOT NULL UNIQUE,
			password_hash VARCHAR(255) NOT NULL,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			t.Fatalf("create tables: %v", err)
		}
	}
}

func cleanup(t *testing.T, db *sql.DB, codes ...string) {
	ctx := context.Background()
	for _, code := range codes {
		db.ExecContext(ctx, `DELETE FROM sales WHERE code = ?`, code)
		db.ExecContext(ctx, `DELETE FROM products WHERE code = ?`, code)
	}
}

func seedProduct(t *testing.T, store *MySQLStore, code string, qty int) {
	err := store.Stock().CreateOrUpdate(context.Background(), domain.Product{
		Code:     code,
		Name:     "Test " + code,
		Price:    decimal.NewFromFloat(9.50),
		Quantity: qty,
	})
	if err != nil {
		t.Fatalf("seed product: %v", err)
	}
}

func TestMySQLWithinTx_Commit(t *testing.T) {
	db := getMySQLDB(t)
	defer db.Close()

	ctx := context.Background()
	store := NewMySQLStore(db)

	cleanup(t, db, "tx-commit-item")
	defer cleanup(t, db, "tx-commit-item")
	seedProduct(t, store, "tx-commit-item", 10)

	err := store.WithinTx(ctx, func(tx port.Tx) error {
		p, err := tx.Stock().GetForUpdate(ctx, "tx-commit-item")
		if err != nil {
			return err
		}
		if p == nil {
			t.Fatal("expected product")
		}
		if err := tx.Stock().SetQuantity(ctx, p.Code, p.Quantity-3); err != nil {
			return err
		}
		return tx.Sales().Append(ctx, domain.SaleRecord{
			ID:       "test-sale-commit",
			Code:     p.Code,
			Name:     p.Name,
			Price:    p.Price,
			Quantity: 3,
			SoldAt:   time.Now(),
		})
	})
	if err != nil {
		t.Fatalf("WithinTx failed: %v", err)
	}

	p, err := store.Stock().FindByCode(ctx, "tx-commit-item")
	if err != nil {
		t.Fatalf("FindByCode failed: %v", err)
	}
	if p.Quantity != 7 {
		t.Errorf("expected quantity 7, got %d", p.Quantity)
	}

	var count int
	db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sales WHERE id = 'test-sale-commit'`).Scan(&count)
	if count != 1 {
		t.Error("sale record not found after commit")
	}
}

func TestMySQLWithinTx_RollbackOnError(t *testing.T) {
	db := getMySQLDB(t)
	defer db.Close()

	ctx := context.Background()
	store := NewMySQLStore(db)

	cleanup(t, db, "tx-rollback-item")
	defer cleanup(t, db, "tx-rollback-item")
	seedProduct(t, store, "tx-rollback-item", 10)

	failure := errors.New("abort the batch")

	err := store.WithinTx(ctx, func(tx port.Tx) error {
		if err := tx.Stock().SetQuantity(ctx, "tx-rollback-item", 0); err != nil {
			return err
		}
		if err := tx.Sales().Append(ctx, domain.SaleRecord{
			ID: "test-sale-rollback", Code: "tx-rollback-item", Name: "x",
			Price: decimal.Zero, Quantity: 1, SoldAt: time.Now(),
		}); err != nil {
			return err
		}
		return failure
	})
	if !errors.Is(err, failure) {
		t.Fatalf("expected staged error, got: %v", err)
	}

	p, err := store.Stock().FindByCode(ctx, "tx-rollback-item")
	if err != nil {
		t.Fatalf("FindByCode failed: %v", err)
	}
	if p.Quantity != 10 {
		t.Errorf("expected quantity 10 after rollback, got %d", p.Quantity)
	}

	var count int
	db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sales WHERE id = 'test-sale-rollback'`).Scan(&count)
	if count != 0 {
		t.Error("sale record must not survive a rollback")
	}
}

func TestMySQLGetForUpdate_NotFound(t *testing.T) {
	db := getMySQLDB(t)
	defer db.Close()

	ctx := context.Background()
	store := NewMySQLStore(db)

	err := store.WithinTx(ctx, func(tx port.Tx) error {
		p, err := tx.Stock().GetForUpdate(ctx, "nonexistent-item")
		if err != nil {
			return err
		}
		if p != nil {
			t.Error("expected nil for nonexistent item")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestMySQLStock_Upsert(t *testing.T) {
	db := getMySQLDB(t)
	defer db.Close()

	ctx := context.Background()
	store := NewMySQLStore(db)

	cleanup(t, db, "upsert-item")
	defer cleanup(t, db, "upsert-item")

	seedProduct(t, store, "upsert-item", 5)

	err := store.Stock().CreateOrUpdate(ctx, domain.Product{
		Code:     "upsert-item",
		Name:     "Renamed",
		Price:    decimal.NewFromInt(20),
		Quantity: 8,
	})
	if err != nil {
		t.Fatalf("upsert failed: %v", err)
	}

	p, err := store.Stock().FindByCode(ctx, "upsert-item")
	if err != nil {
		t.Fatalf("FindByCode failed: %v", err)
	}
	if p.Name != "Renamed" || p.Quantity != 8 || !p.Price.Equal(decimal.NewFromInt(20)) {
		t.Errorf("upsert not applied: %+v", p)
	}
}

func TestMySQLStock_DeleteNotFound(t *testing.T) {
	db := getMySQLDB(t)
	defer db.Close()

	store := NewMySQLStore(db)
	if err := store.Stock().Delete(context.Background(), "nonexistent-item"); !errors.Is(err, port.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got: %v", err)
	}
}

func TestMySQLSales_QueryRange(t *testing.T) {
	db := getMySQLDB(t)
	defer db.Close()

	ctx := context.Background()
	store := NewMySQLStore(db)

	cleanup(t, db, "range-item")
	defer cleanup(t, db, "range-item")
	seedProduct(t, store, "range-item", 100)

	old := time.Now().Add(-48 * time.Hour).Truncate(time.Second)
	recent := time.Now().Truncate(time.Second)

	for _, rec := range []domain.SaleRecord{
		{ID: "test-range-old", Code: "range-item", Name: "x", Price: decimal.Zero, Quantity: 1, SoldAt: old},
		{ID: "test-range-new", Code: "range-item", Name: "x", Price: decimal.Zero, Quantity: 2, SoldAt: recent},
	} {
		if err := store.Sales().Append(ctx, rec); err != nil {
			t.Fatalf("append failed: %v", err)
		}
	}

	from := time.Now().Add(-time.Hour)
	records, err := store.Sales().Query(ctx, &from, nil)
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if len(records) != 1 || records[0].ID != "test-range-new" {
		t.Errorf("expected only the recent record, got %+v", records)
	}

	records, err = store.Sales().Query(ctx, nil, nil)
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if len(records) != 2 {
		t.Errorf("expected 2 records, got %d", len(records))
	}
}

func TestMySQLUsers_RoundTrip(t *testing.T) {
	db := getMySQLDB(t)
	defer db.Close()

	ctx := context.Background()
	store := NewMySQLStore(db)

	db.ExecContext(ctx, `DELETE FROM users WHERE username = 'test-user'`)
	defer db.ExecContext(ctx, `DELETE FROM users WHERE username = 'test-user'`)

	err := store.Users().Create(ctx, domain.User{
		Username:     "test-user",
		PasswordHash: "hash-1",
		CreatedAt:    time.Now(),
	})
	if err != nil {
		t.Fatalf("create user failed: %v", err)
	}

	u, err := store.Users().FindByUsername(ctx, "test-user")
	if err != nil {
		t.Fatalf("find user failed: %v", err)
	}
	if u == nil || u.PasswordHash != "hash-1" {
		t.Fatalf("unexpected user: %+v", u)
	}

	if err := store.Users().UpdatePassword(ctx, "test-user", "hash-2"); err != nil {
		t.Fatalf("update password failed: %v", err)
	}

	u, err = store.Users().FindByUsername(ctx, "test-user")
	if err != nil {
		t.Fatalf("find user failed: %v", err)
	}
	if u.PasswordHash != "hash-2" {
		t.Errorf("expected updated hash, got %s", u.PasswordHash)
	}

	missing, err := store.Users().FindByUsername(ctx, "no-such-user")
	if err != nil {
		t.Fatalf("find user failed: %v", err)
	}
	if missing != nil {
		t.Error("expected nil for unknown user")
	}
}
