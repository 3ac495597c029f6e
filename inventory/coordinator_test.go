package inventory_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"farmfresh/inventory"
	"farmfresh/models"
)

func newEngine(t *testing.T) (*inventory.MemoryStore, *inventory.Coordinator) {
	t.Helper()
	store := inventory.NewMemoryStore()
	return store, inventory.NewCoordinator(store)
}

func seedProduct(t *testing.T, store *inventory.MemoryStore, stock, price int) models.Product {
	t.Helper()
	return store.AddProduct(models.Product{
		Name:     "Gala Apples 1kg",
		Price:    price,
		Stock:    stock,
		Category: "fruit",
	})
}

func newCart(t *testing.T, store *inventory.MemoryStore, userID int) models.Cart {
	t.Helper()
	cart, err := store.EnsureCart(context.Background(), userID)
	require.NoError(t, err)
	return cart
}

func TestReserveDecrementsStock(t *testing.T) {
	store, coord := newEngine(t)
	p := seedProduct(t, store, 10, 350)
	cart := newCart(t, store, 1)

	require.NoError(t, coord.Reserve(context.Background(), cart.ID, p.ID, 3))
	assert.Equal(t, 7, store.ProductStock(p.ID))

	lines, err := coord.Lines(context.Background(), cart.ID)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, 3, lines[0].Quantity)
	assert.Equal(t, 350, lines[0].UnitPrice)
}

func TestReserveMatchesExistingLineByProductID(t *testing.T) {
	store, coord := newEngine(t)
	p := seedProduct(t, store, 10, 350)
	cart := newCart(t, store, 1)

	require.NoError(t, coord.Reserve(context.Background(), cart.ID, p.ID, 2))
	require.NoError(t, coord.Reserve(context.Background(), cart.ID, p.ID, 3))

	lines, err := coord.Lines(context.Background(), cart.ID)
	require.NoError(t, err)
	require.Len(t, lines, 1, "repeat reserve must grow the existing line, not add one")
	assert.Equal(t, 5, lines[0].Quantity)
	assert.Equal(t, 5, store.ProductStock(p.ID))
}

func TestReserveInsufficientStockLeavesStockUnchanged(t *testing.T) {
	store, coord := newEngine(t)
	p := seedProduct(t, store, 2, 350)
	cart := newCart(t, store, 1)

	err := coord.Reserve(context.Background(), cart.ID, p.ID, 5)
	var insufficient *inventory.InsufficientStockError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, p.ID, insufficient.ProductID)
	assert.Equal(t, 5, insufficient.Requested)
	assert.Equal(t, 2, insufficient.Available)

	assert.Equal(t, 2, store.ProductStock(p.ID))
	lines, err := coord.Lines(context.Background(), cart.ID)
	require.NoError(t, err)
	assert.Empty(t, lines, "failed reserve must not leave a line behind")
}

func TestReserveUnknownProduct(t *testing.T) {
	store, coord := newEngine(t)
	cart := newCart(t, store, 1)

	err := coord.Reserve(context.Background(), cart.ID, 999, 1)
	assert.ErrorIs(t, err, inventory.ErrNotFound)
}

func TestReserveUnknownCart(t *testing.T) {
	store, coord := newEngine(t)
	p := seedProduct(t, store, 5, 350)

	err := coord.Reserve(context.Background(), 404, p.ID, 1)
	assert.ErrorIs(t, err, inventory.ErrNotFound)
	assert.Equal(t, 5, store.ProductStock(p.ID))
}

func TestReleaseRoundTrip(t *testing.T) {
	store, coord := newEngine(t)
	p := seedProduct(t, store, 8, 350)
	cart := newCart(t, store, 1)

	require.NoError(t, coord.Reserve(context.Background(), cart.ID, p.ID, 5))
	require.NoError(t, coord.Release(context.Background(), cart.ID, p.ID, 5))

	assert.Equal(t, 8, store.ProductStock(p.ID))
	lines, err := coord.Lines(context.Background(), cart.ID)
	require.NoError(t, err)
	assert.Empty(t, lines)
}

func TestReleasePartialShrinksLine(t *testing.T) {
	store, coord := newEngine(t)
	p := seedProduct(t, store, 8, 350)
	cart := newCart(t, store, 1)

	require.NoError(t, coord.Reserve(context.Background(), cart.ID, p.ID, 5))
	require.NoError(t, coord.Release(context.Background(), cart.ID, p.ID, 2))

	assert.Equal(t, 5, store.ProductStock(p.ID))
	lines, err := coord.Lines(context.Background(), cart.ID)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, 3, lines[0].Quantity)
}

func TestReleaseIsIdempotentAgainstStaleLines(t *testing.T) {
	store, coord := newEngine(t)
	p := seedProduct(t, store, 8, 350)
	cart := newCart(t, store, 1)

	require.NoError(t, coord.Reserve(context.Background(), cart.ID, p.ID, 3))
	require.NoError(t, coord.Release(context.Background(), cart.ID, p.ID, 3))
	// Second release against the now-gone line must be a no-op.
	require.NoError(t, coord.Release(context.Background(), cart.ID, p.ID, 3))

	assert.Equal(t, 8, store.ProductStock(p.ID))
}

func TestReleaseCapsAtHeldQuantity(t *testing.T) {
	store, coord := newEngine(t)
	p := seedProduct(t, store, 8, 350)
	cart := newCart(t, store, 1)

	require.NoError(t, coord.Reserve(context.Background(), cart.ID, p.ID, 3))
	require.NoError(t, coord.Release(context.Background(), cart.ID, p.ID, 10))

	assert.Equal(t, 8, store.ProductStock(p.ID), "release must never add more than was held")
}

func TestAdjustReservationGrow(t *testing.T) {
	store, coord := newEngine(t)
	p := seedProduct(t, store, 10, 350)
	cart := newCart(t, store, 1)

	require.NoError(t, coord.Reserve(context.Background(), cart.ID, p.ID, 2))
	require.NoError(t, coord.AdjustReservation(context.Background(), cart.ID, p.ID, 6))

	assert.Equal(t, 4, store.ProductStock(p.ID))
}

func TestAdjustReservationGrowInsufficient(t *testing.T) {
	store, coord := newEngine(t)
	p := seedProduct(t, store, 5, 350)
	cart := newCart(t, store, 1)

	require.NoError(t, coord.Reserve(context.Background(), cart.ID, p.ID, 3))

	err := coord.AdjustReservation(context.Background(), cart.ID, p.ID, 8)
	var insufficient *inventory.InsufficientStockError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, 5, insufficient.Requested)
	assert.Equal(t, 2, insufficient.Available)

	assert.Equal(t, 2, store.ProductStock(p.ID), "failed grow must not move stock")
	lines, err := coord.Lines(context.Background(), cart.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, lines[0].Quantity)
}

func TestAdjustReservationShrinkNeverFails(t *testing.T) {
	store, coord := newEngine(t)
	p := seedProduct(t, store, 5, 350)
	cart := newCart(t, store, 1)

	require.NoError(t, coord.Reserve(context.Background(), cart.ID, p.ID, 5))
	require.NoError(t, coord.AdjustReservation(context.Background(), cart.ID, p.ID, 1))

	assert.Equal(t, 4, store.ProductStock(p.ID))
}

func TestAdjustReservationToZeroRemovesLine(t *testing.T) {
	store, coord := newEngine(t)
	p := seedProduct(t, store, 5, 350)
	cart := newCart(t, store, 1)

	require.NoError(t, coord.Reserve(context.Background(), cart.ID, p.ID, 4))
	require.NoError(t, coord.AdjustReservation(context.Background(), cart.ID, p.ID, 0))

	assert.Equal(t, 5, store.ProductStock(p.ID))
	lines, err := coord.Lines(context.Background(), cart.ID)
	require.NoError(t, err)
	assert.Empty(t, lines)
}

func TestReleaseAllReturnsEverything(t *testing.T) {
	store, coord := newEngine(t)
	apples := seedProduct(t, store, 10, 350)
	milk := store.AddProduct(models.Product{Name: "Whole Milk 1L", Price: 120, Stock: 6, Category: "dairy"})
	cart := newCart(t, store, 1)

	require.NoError(t, coord.Reserve(context.Background(), cart.ID, apples.ID, 4))
	require.NoError(t, coord.Reserve(context.Background(), cart.ID, milk.ID, 2))
	require.NoError(t, coord.ReleaseAll(context.Background(), cart.ID))

	assert.Equal(t, 10, store.ProductStock(apples.ID))
	assert.Equal(t, 6, store.ProductStock(milk.ID))
}

// The walkthrough from the storefront's stock contract: stock=5, A holds 3,
// B is rejected for 3, B takes the remaining 2, A cancels and 3 come back.
func TestTwoShoppersContendingForStock(t *testing.T) {
	store, coord := newEngine(t)
	p := seedProduct(t, store, 5, 350)
	cartA := newCart(t, store, 1)
	cartB := newCart(t, store, 2)
	ctx := context.Background()

	require.NoError(t, coord.Reserve(ctx, cartA.ID, p.ID, 3))
	assert.Equal(t, 2, store.ProductStock(p.ID))

	err := coord.Reserve(ctx, cartB.ID, p.ID, 3)
	var insufficient *inventory.InsufficientStockError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, 2, store.ProductStock(p.ID))

	require.NoError(t, coord.Reserve(ctx, cartB.ID, p.ID, 2))
	assert.Equal(t, 0, store.ProductStock(p.ID))

	require.NoError(t, coord.ReleaseAll(ctx, cartA.ID))
	assert.Equal(t, 3, store.ProductStock(p.ID))
}

func TestConcurrentReservesNeverOversell(t *testing.T) {
	store, coord := newEngine(t)
	p := seedProduct(t, store, 10, 350)

	const shoppers = 25
	carts := make([]models.Cart, shoppers)
	for i := range carts {
		carts[i] = newCart(t, store, i+1)
	}

	var wg sync.WaitGroup
	results := make([]error, shoppers)
	for i := 0; i < shoppers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = coord.Reserve(context.Background(), carts[i].ID, p.ID, 1)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range results {
		if err == nil {
			succeeded++
			continue
		}
		var insufficient *inventory.InsufficientStockError
		require.ErrorAs(t, err, &insufficient)
	}
	assert.Equal(t, 10, succeeded)
	assert.Equal(t, 0, store.ProductStock(p.ID))
}

func TestConcurrentReserveAndRelease(t *testing.T) {
	store, coord := newEngine(t)
	p := seedProduct(t, store, 50, 350)

	const shoppers = 10
	var wg sync.WaitGroup
	for i := 0; i < shoppers; i++ {
		cart := newCart(t, store, i+1)
		wg.Add(1)
		go func(cartID int) {
			defer wg.Done()
			ctx := context.Background()
			assert.NoError(t, coord.Reserve(ctx, cartID, p.ID, 3))
			assert.NoError(t, coord.Release(ctx, cartID, p.ID, 3))
		}(cart.ID)
	}
	wg.Wait()

	assert.Equal(t, 50, store.ProductStock(p.ID), "matched reserve/release pairs must round-trip")
}

// flakyStore injects write conflicts before handing over to the real store.
type flakyStore struct {
	inventory.Store
	mu        sync.Mutex
	conflicts int
}

func (f *flakyStore) InTx(ctx context.Context, fn func(ctx context.Context, tx inventory.Tx) error) error {
	f.mu.Lock()
	if f.conflicts > 0 {
		f.conflicts--
		f.mu.Unlock()
		return inventory.ErrTxConflict
	}
	f.mu.Unlock()
	return f.Store.InTx(ctx, fn)
}

func TestConflictIsRetriedThenSucceeds(t *testing.T) {
	mem := inventory.NewMemoryStore()
	p := seedProduct(t, mem, 5, 350)
	cart := newCart(t, mem, 1)

	store := &flakyStore{Store: mem, conflicts: 2}
	coord := inventory.NewCoordinator(store, inventory.WithMaxAttempts(3))

	require.NoError(t, coord.Reserve(context.Background(), cart.ID, p.ID, 1))
	assert.Equal(t, 4, mem.ProductStock(p.ID))
}

func TestConflictExhaustsRetries(t *testing.T) {
	mem := inventory.NewMemoryStore()
	p := seedProduct(t, mem, 5, 350)
	cart := newCart(t, mem, 1)

	store := &flakyStore{Store: mem, conflicts: 100}
	coord := inventory.NewCoordinator(store, inventory.WithMaxAttempts(3))

	err := coord.Reserve(context.Background(), cart.ID, p.ID, 1)
	assert.ErrorIs(t, err, inventory.ErrConflict)
	assert.Equal(t, 5, mem.ProductStock(p.ID))
}

// stuckStore blocks until the transaction context expires.
type stuckStore struct {
	inventory.Store
}

func (s *stuckStore) InTx(ctx context.Context, fn func(ctx context.Context, tx inventory.Tx) error) error {
	<-ctx.Done()
	return ctx.Err()
}

func TestTransactionTimeout(t *testing.T) {
	mem := inventory.NewMemoryStore()
	p := seedProduct(t, mem, 5, 350)
	cart := newCart(t, mem, 1)

	coord := inventory.NewCoordinator(&stuckStore{Store: mem},
		inventory.WithTxTimeout(10*time.Millisecond))

	err := coord.Reserve(context.Background(), cart.ID, p.ID, 1)
	assert.ErrorIs(t, err, inventory.ErrTimeout)
	assert.Equal(t, 5, mem.ProductStock(p.ID))
}

func TestCallerCancellationWins(t *testing.T) {
	mem := inventory.NewMemoryStore()
	p := seedProduct(t, mem, 5, 350)
	cart := newCart(t, mem, 1)

	coord := inventory.NewCoordinator(&stuckStore{Store: mem})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	err := coord.Reserve(ctx, cart.ID, p.ID, 1)
	assert.True(t, errors.Is(err, context.Canceled), "caller cancellation must surface as such, got %v", err)
	assert.Equal(t, 5, mem.ProductStock(p.ID))
}

func TestMemoryStoreRollsBackFailedTx(t *testing.T) {
	store := inventory.NewMemoryStore()
	p := seedProduct(t, store, 5, 350)

	boom := errors.New("boom")
	err := store.InTx(context.Background(), func(ctx context.Context, tx inventory.Tx) error {
		if _, err := tx.AdjustStock(ctx, p.ID, -4); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 5, store.ProductStock(p.ID), "failed tx must not leak partial decrements")
}
