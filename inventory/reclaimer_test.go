package inventory_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"farmfresh/inventory"
	"farmfresh/models"
)

func quietLogger() *logrus.Entry {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return logrus.NewEntry(log)
}

func TestSweepReleasesExpiredCartsExactlyOnce(t *testing.T) {
	store := inventory.NewMemoryStore()
	coord := inventory.NewCoordinator(store)
	reclaimer := inventory.NewReclaimer(store, coord, 24*time.Hour, quietLogger())

	p := store.AddProduct(models.Product{Name: "Gala Apples 1kg", Price: 350, Stock: 10, Category: "fruit"})
	cart := newCart(t, store, 1)
	ctx := context.Background()

	require.NoError(t, coord.Reserve(ctx, cart.ID, p.ID, 4))
	store.SetCartUpdatedAt(cart.ID, time.Now().Add(-25*time.Hour))

	assert.Equal(t, 1, reclaimer.Sweep(ctx))
	assert.Equal(t, 10, store.ProductStock(p.ID))

	// Sweeping again finds nothing to release.
	assert.Equal(t, 0, reclaimer.Sweep(ctx))
	assert.Equal(t, 10, store.ProductStock(p.ID))
}

func TestSweepIgnoresFreshCarts(t *testing.T) {
	store := inventory.NewMemoryStore()
	coord := inventory.NewCoordinator(store)
	reclaimer := inventory.NewReclaimer(store, coord, 24*time.Hour, quietLogger())

	p := store.AddProduct(models.Product{Name: "Gala Apples 1kg", Price: 350, Stock: 10, Category: "fruit"})
	cart := newCart(t, store, 1)
	ctx := context.Background()

	require.NoError(t, coord.Reserve(ctx, cart.ID, p.ID, 4))

	assert.Equal(t, 0, reclaimer.Sweep(ctx))
	assert.Equal(t, 6, store.ProductStock(p.ID), "fresh reservations must stay held")
}

func TestConcurrentSweepsReleaseOnce(t *testing.T) {
	store := inventory.NewMemoryStore()
	coord := inventory.NewCoordinator(store)
	reclaimer := inventory.NewReclaimer(store, coord, 24*time.Hour, quietLogger())

	p := store.AddProduct(models.Product{Name: "Gala Apples 1kg", Price: 350, Stock: 10, Category: "fruit"})
	cart := newCart(t, store, 1)
	ctx := context.Background()

	require.NoError(t, coord.Reserve(ctx, cart.ID, p.ID, 4))
	store.SetCartUpdatedAt(cart.ID, time.Now().Add(-25*time.Hour))

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			reclaimer.Sweep(ctx)
		}()
	}
	wg.Wait()

	assert.Equal(t, 10, store.ProductStock(p.ID), "double sweep must not inflate stock")
}

// failOnceStore fails the first transaction it sees, then behaves normally.
type failOnceStore struct {
	inventory.Store
	mu     sync.Mutex
	failed bool
}

func (f *failOnceStore) InTx(ctx context.Context, fn func(ctx context.Context, tx inventory.Tx) error) error {
	f.mu.Lock()
	if !f.failed {
		f.failed = true
		f.mu.Unlock()
		return assert.AnError
	}
	f.mu.Unlock()
	return f.Store.InTx(ctx, fn)
}

func TestSweepIsolatesPerCartFailures(t *testing.T) {
	mem := inventory.NewMemoryStore()
	store := &failOnceStore{Store: mem}
	coord := inventory.NewCoordinator(store)
	reclaimer := inventory.NewReclaimer(store, coord, 24*time.Hour, quietLogger())

	p := mem.AddProduct(models.Product{Name: "Gala Apples 1kg", Price: 350, Stock: 10, Category: "fruit"})
	ctx := context.Background()

	innerCoord := inventory.NewCoordinator(mem)
	cartA := newCart(t, mem, 1)
	cartB := newCart(t, mem, 2)
	require.NoError(t, innerCoord.Reserve(ctx, cartA.ID, p.ID, 2))
	require.NoError(t, innerCoord.Reserve(ctx, cartB.ID, p.ID, 3))
	mem.SetCartUpdatedAt(cartA.ID, time.Now().Add(-25*time.Hour))
	mem.SetCartUpdatedAt(cartB.ID, time.Now().Add(-25*time.Hour))

	// One cart's transaction fails; the other is still reclaimed.
	assert.Equal(t, 1, reclaimer.Sweep(ctx))

	// The failed cart is picked up by the next sweep.
	assert.Equal(t, 1, reclaimer.Sweep(ctx))
	assert.Equal(t, 10, mem.ProductStock(p.ID))
}
