package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/dcastano/stockpos/internal/core/domain"
	"github.com/dcastano/stockpos/internal/port"
)

// MemoryStore implements the storage ports in process, with the same
// atomicity contract as the MySQL store: WithinTx runs the callback against
// staged copies and swaps them in only on success, so aborted batches leave
// no trace. A single mutex is held for the whole unit of work, which makes
// concurrent batches trivially serializable.
type MemoryStore struct {
	mu       sync.Mutex
	products map[string]domain.Product
	sales    []domain.SaleRecord
	users    map[string]domain.User
	nextID   int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		products: make(map[string]domain.Product),
		users:    make(map[string]domain.User),
	}
}

func (s *MemoryStore) WithinTx(ctx context.Context, fn func(tx port.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	staged := &memoryTx{
		products: make(map[string]domain.Product, len(s.products)),
		sales:    append([]domain.SaleRecord(nil), s.sales...),
	}
	for code, p := range s.products {
		staged.products[code] = p
	}

	if err := fn(staged); err != nil {
		return err
	}

	// An abandoned call must not commit its staged writes.
	if err := ctx.Err(); err != nil {
		return wrapStorage("commit", err)
	}

	s.products = staged.products
	s.sales = staged.sales
	return nil
}

func (s *MemoryStore) Stock() port.StockRepository {
	return &memoryStockRepo{store: s}
}

func (s *MemoryStore) Sales() port.SaleRepository {
	return &memorySaleRepo{store: s}
}

func (s *MemoryStore) Users() port.UserRepository {
	return &memoryUserRepo{store: s}
}

// memoryTx operates on the staged copies; the store mutex is already held.
type memoryTx struct {
	products map[string]domain.Product
	sales    []domain.SaleRecord
}

func (t *memoryTx) Stock() port.StockRepository { return t }
func (t *memoryTx) Sales() port.SaleRepository  { return t }

func (t *memoryTx) GetForUpdate(ctx context.Context, code string) (*domain.Product, error) {
	p, ok := t.products[code]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (t *memoryTx) FindByCode(ctx context.Context, code string) (*domain.Product, error) {
	return t.GetForUpdate(ctx, code)
}

func (t *memoryTx) SetQuantity(ctx context.Context, code string, quantity int) error {
	p, ok := t.products[code]
	if !ok {
		return port.ErrNotFound
	}
	p.Quantity = quantity
	p.UpdatedAt = time.Now()
	t.products[code] = p
	return nil
}

func (t *memoryTx) List(ctx context.Context) ([]domain.Product, error) {
	return listProducts(t.products), nil
}

func (t *memoryTx) CreateOrUpdate(ctx context.Context, p domain.Product) error {
	t.products[p.Code] = p
	return nil
}

func (t *memoryTx) Delete(ctx context.Context, code string) error {
	if _, ok := t.products[code]; !ok {
		return port.ErrNotFound
	}
	delete(t.products, code)
	return nil
}

func (t *memoryTx) Append(ctx context.Context, rec domain.SaleRecord) error {
	t.sales = append(t.sales, rec)
	return nil
}

func (t *memoryTx) Query(ctx context.Context, from, to *time.Time) ([]domain.SaleRecord, error) {
	return querySales(t.sales, t.products, from, to), nil
}

type memoryStockRepo struct {
	store *MemoryStore
}

func (r *memoryStockRepo) GetForUpdate(ctx context.Context, code string) (*domain.Product, error) {
	return r.FindByCode(ctx, code)
}

func (r *memoryStockRepo) FindByCode(ctx context.Context, code string) (*domain.Product, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	p, ok := r.store.products[code]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (r *memoryStockRepo) SetQuantity(ctx context.Context, code string, quantity int) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	p, ok := r.store.products[code]
	if !ok {
		return port.ErrNotFound
	}
	p.Quantity = quantity
	p.UpdatedAt = time.Now()
	r.store.products[code] = p
	return nil
}

func (r *memoryStockRepo) List(ctx context.Context) ([]domain.Product, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	return listProducts(r.store.products), nil
}

func (r *memoryStockRepo) CreateOrUpdate(ctx context.Context, p domain.Product) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.products[p.Code] = p
	return nil
}

func (r *memoryStockRepo) Delete(ctx context.Context, code string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, ok := r.store.products[code]; !ok {
		return port.ErrNotFound
	}
	delete(r.store.products, code)
	return nil
}

type memorySaleRepo struct {
	store *MemoryStore
}

func (r *memorySaleRepo) Append(ctx context.Context, rec domain.SaleRecord) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.sales = append(r.store.sales, rec)
	return nil
}

func (r *memorySaleRepo) Query(ctx context.Context, from, to *time.Time) ([]domain.SaleRecord, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	return querySales(r.store.sales, r.store.products, from, to), nil
}

type memoryUserRepo struct {
	store *MemoryStore
}

func (r *memoryUserRepo) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	u, ok := r.store.users[username]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (r *memoryUserRepo) Create(ctx context.Context, u domain.User) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	r.store.nextID++
	u.ID = r.store.nextID
	r.store.users[u.Username] = u
	return nil
}

func (r *memoryUserRepo) UpdatePassword(ctx context.Context, username, passwordHash string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	u, ok := r.store.users[username]
	if !ok {
		return port.ErrNotFound
	}
	u.PasswordHash = passwordHash
	r.store.users[username] = u
	return nil
}

func listProducts(products map[string]domain.Product) []domain.Product {
	out := make([]domain.Product, 0, len(products))
	for _, p := range products {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

// querySales mirrors the MySQL inner join: records whose product was deleted
// are omitted, and the current product name replaces the snapshot.
func querySales(sales []domain.SaleRecord, products map[string]domain.Product, from, to *time.Time) []domain.SaleRecord {
	var out []domain.SaleRecord
	for _, rec := range sales {
		p, ok := products[rec.Code]
		if !ok {
			continue
		}
		if from != nil && rec.SoldAt.Before(*from) {
			continue
		}
		if to != nil && rec.SoldAt.After(*to) {
			continue
		}
		rec.Name = p.Name
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SoldAt.Before(out[j].SoldAt) })
	return out
}
