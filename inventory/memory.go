package inventory

import (
	"context"
	"sync"
	"time"

	"farmfresh/models"
)

// MemoryStore is an in-memory Store for tests and local development.
// Transactions are serialized by a single mutex and run against a staged copy
// of the state, so a failed callback leaves nothing behind.
type MemoryStore struct {
	mu sync.Mutex

	products map[int]models.Product
	carts    map[int]models.Cart
	lines    map[int]map[int]models.CartLine // cartID -> productID -> line
	orders   []models.Order

	nextProductID int
	nextCartID    int
	nextOrderID   int

	// Now is the clock used for timestamps; tests may replace it.
	Now func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		products:      make(map[int]models.Product),
		carts:         make(map[int]models.Cart),
		lines:         make(map[int]map[int]models.CartLine),
		nextProductID: 1,
		nextCartID:    1,
		nextOrderID:   1,
		Now:           time.Now,
	}
}

// AddProduct seeds a product, assigning an id when it has none.
func (s *MemoryStore) AddProduct(p models.Product) models.Product {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.ID == 0 {
		p.ID = s.nextProductID
	}
	if p.ID >= s.nextProductID {
		s.nextProductID = p.ID + 1
	}
	s.products[p.ID] = p
	return p
}

// RemoveProduct drops a product outright, bypassing the engine. Used to
// simulate catalog corruption.
func (s *MemoryStore) RemoveProduct(productID int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.products, productID)
}

// ProductStock reads the current stock outside any transaction.
func (s *MemoryStore) ProductStock(productID int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.products[productID].Stock
}

// Orders returns a copy of all committed orders.
func (s *MemoryStore) Orders() []models.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Order, len(s.orders))
	copy(out, s.orders)
	return out
}

// SetCartUpdatedAt backdates a cart, used to exercise expiry.
func (s *MemoryStore) SetCartUpdatedAt(cartID int, ts time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.carts[cartID]; ok {
		c.UpdatedAt = ts
		s.carts[cartID] = c
	}
}

func (s *MemoryStore) EnsureCart(ctx context.Context, userID int) (models.Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range s.carts {
		if c.UserID == userID {
			return c, nil
		}
	}
	cart := models.Cart{ID: s.nextCartID, UserID: userID, UpdatedAt: s.Now()}
	s.nextCartID++
	s.carts[cart.ID] = cart
	s.lines[cart.ID] = make(map[int]models.CartLine)
	return cart, nil
}

func (s *MemoryStore) StaleCarts(ctx context.Context, cutoff time.Time) ([]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var ids []int
	for id, c := range s.carts {
		if c.UpdatedAt.Before(cutoff) && len(s.lines[id]) > 0 {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (s *MemoryStore) InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	tx := &memTx{
		store:    s,
		products: cloneMap(s.products),
		carts:    cloneMap(s.carts),
		lines:    cloneLines(s.lines),
		orders:   append([]models.Order(nil), s.orders...),
		nextID:   s.nextOrderID,
	}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.products = tx.products
	s.carts = tx.carts
	s.lines = tx.lines
	s.orders = tx.orders
	s.nextOrderID = tx.nextID
	return nil
}

func cloneMap[K comparable, V any](in map[K]V) map[K]V {
	out := make(map[K]V, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func cloneLines(in map[int]map[int]models.CartLine) map[int]map[int]models.CartLine {
	out := make(map[int]map[int]models.CartLine, len(in))
	for k, v := range in {
		out[k] = cloneMap(v)
	}
	return out
}

type memTx struct {
	store    *MemoryStore
	products map[int]models.Product
	carts    map[int]models.Cart
	lines    map[int]map[int]models.CartLine
	orders   []models.Order
	nextID   int
}

func (t *memTx) Product(ctx context.Context, productID int) (models.Product, error) {
	p, ok := t.products[productID]
	if !ok {
		return models.Product{}, ErrNotFound
	}
	return p, nil
}

// ProductForUpdate is identical to Product here: the store mutex already
// serializes whole transactions.
func (t *memTx) ProductForUpdate(ctx context.Context, productID int) (models.Product, error) {
	return t.Product(ctx, productID)
}

func (t *memTx) AdjustStock(ctx context.Context, productID, delta int) (int, error) {
	p, ok := t.products[productID]
	if !ok {
		return 0, ErrNotFound
	}
	next := p.Stock + delta
	if next < 0 {
		return 0, &InsufficientStockError{
			ProductID: productID,
			Requested: -delta,
			Available: p.Stock,
		}
	}
	p.Stock = next
	p.UpdatedAt = t.store.Now()
	t.products[productID] = p
	return next, nil
}

func (t *memTx) Cart(ctx context.Context, cartID int) (models.Cart, error) {
	c, ok := t.carts[cartID]
	if !ok {
		return models.Cart{}, ErrNotFound
	}
	return c, nil
}

func (t *memTx) CartLines(ctx context.Context, cartID int) ([]models.CartLine, error) {
	if _, ok := t.carts[cartID]; !ok {
		return nil, ErrNotFound
	}
	out := make([]models.CartLine, 0, len(t.lines[cartID]))
	for _, l := range t.lines[cartID] {
		out = append(out, l)
	}
	return out, nil
}

func (t *memTx) CartLine(ctx context.Context, cartID, productID int) (models.CartLine, error) {
	l, ok := t.lines[cartID][productID]
	if !ok {
		return models.CartLine{}, ErrNotFound
	}
	return l, nil
}

func (t *memTx) UpsertCartLine(ctx context.Context, line models.CartLine) error {
	if _, ok := t.carts[line.CartID]; !ok {
		return ErrNotFound
	}
	if t.lines[line.CartID] == nil {
		t.lines[line.CartID] = make(map[int]models.CartLine)
	}
	t.lines[line.CartID][line.ProductID] = line
	return nil
}

func (t *memTx) DeleteCartLine(ctx context.Context, cartID, productID int) error {
	delete(t.lines[cartID], productID)
	return nil
}

func (t *memTx) ClearCartLines(ctx context.Context, cartID int) error {
	t.lines[cartID] = make(map[int]models.CartLine)
	return nil
}

func (t *memTx) TouchCart(ctx context.Context, cartID int) error {
	c, ok := t.carts[cartID]
	if !ok {
		return ErrNotFound
	}
	c.UpdatedAt = t.store.Now()
	t.carts[cartID] = c
	return nil
}

func (t *memTx) CreateOrder(ctx context.Context, order *models.Order) error {
	order.ID = t.nextID
	t.nextID++
	for i := range order.Items {
		order.Items[i].ID = i + 1
		order.Items[i].OrderID = order.ID
	}
	if order.CreatedAt.IsZero() {
		order.CreatedAt = t.store.Now()
	}
	t.orders = append(t.orders, *order)
	return nil
}
