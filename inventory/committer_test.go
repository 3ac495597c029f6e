package inventory_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"farmfresh/inventory"
	"farmfresh/models"
)

func newCheckout(t *testing.T) (*inventory.MemoryStore, *inventory.Coordinator, *inventory.Committer) {
	t.Helper()
	store := inventory.NewMemoryStore()
	coord := inventory.NewCoordinator(store)
	return store, coord, inventory.NewCommitter(coord)
}

func TestCommitCreatesOrderAndConsumesStock(t *testing.T) {
	store, coord, committer := newCheckout(t)
	apples := store.AddProduct(models.Product{Name: "Gala Apples 1kg", Price: 350, Stock: 10, Category: "fruit"})
	milk := store.AddProduct(models.Product{Name: "Whole Milk 1L", Price: 120, Stock: 6, Category: "dairy"})
	cart := newCart(t, store, 1)
	ctx := context.Background()

	require.NoError(t, coord.Reserve(ctx, cart.ID, apples.ID, 4))
	require.NoError(t, coord.Reserve(ctx, cart.ID, milk.ID, 2))

	order, err := committer.Commit(ctx, cart.ID)
	require.NoError(t, err)
	require.NotNil(t, order)

	assert.NotZero(t, order.ID)
	assert.NotEmpty(t, order.OrderNumber)
	assert.Equal(t, cart.UserID, order.UserID)
	assert.Equal(t, models.OrderStatusPending, order.Status)
	assert.Equal(t, 4*350+2*120, order.TotalAmount)
	require.Len(t, order.Items, 2)

	// Stock stays consumed: committed holds are not released.
	assert.Equal(t, 6, store.ProductStock(apples.ID))
	assert.Equal(t, 4, store.ProductStock(milk.ID))

	lines, err := coord.Lines(ctx, cart.ID)
	require.NoError(t, err)
	assert.Empty(t, lines, "commit must clear the cart's lines")

	require.Len(t, store.Orders(), 1)
}

func TestCommitEmptyCart(t *testing.T) {
	store, _, committer := newCheckout(t)
	cart := newCart(t, store, 1)

	order, err := committer.Commit(context.Background(), cart.ID)
	assert.ErrorIs(t, err, inventory.ErrEmptyCart)
	assert.Nil(t, order)
	assert.Empty(t, store.Orders())
}

func TestCommitUnknownCart(t *testing.T) {
	_, _, committer := newCheckout(t)

	_, err := committer.Commit(context.Background(), 404)
	assert.ErrorIs(t, err, inventory.ErrNotFound)
}

func TestCommitMissingProductPreservesReservations(t *testing.T) {
	store, coord, committer := newCheckout(t)
	apples := store.AddProduct(models.Product{Name: "Gala Apples 1kg", Price: 350, Stock: 10, Category: "fruit"})
	milk := store.AddProduct(models.Product{Name: "Whole Milk 1L", Price: 120, Stock: 6, Category: "dairy"})
	cart := newCart(t, store, 1)
	ctx := context.Background()

	require.NoError(t, coord.Reserve(ctx, cart.ID, apples.ID, 4))
	require.NoError(t, coord.Reserve(ctx, cart.ID, milk.ID, 2))

	store.RemoveProduct(milk.ID)

	order, err := committer.Commit(ctx, cart.ID)
	var commitErr *inventory.OrderCommitError
	require.ErrorAs(t, err, &commitErr)
	assert.Equal(t, cart.ID, commitErr.CartID)
	assert.Nil(t, order)

	// No partial order, and the apple reservation is still held.
	assert.Empty(t, store.Orders())
	assert.Equal(t, 6, store.ProductStock(apples.ID))
	lines, err := coord.Lines(ctx, cart.ID)
	require.NoError(t, err)
	assert.Len(t, lines, 2)
}

func TestCommitUsesReservationTimePrices(t *testing.T) {
	store, coord, committer := newCheckout(t)
	p := store.AddProduct(models.Product{Name: "Gala Apples 1kg", Price: 350, Stock: 10, Category: "fruit"})
	cart := newCart(t, store, 1)
	ctx := context.Background()

	require.NoError(t, coord.Reserve(ctx, cart.ID, p.ID, 2))

	// Price hike after the reservation must not affect the order.
	hiked := p
	hiked.Price = 990
	hiked.Stock = store.ProductStock(p.ID)
	store.AddProduct(hiked)

	order, err := committer.Commit(ctx, cart.ID)
	require.NoError(t, err)
	require.Len(t, order.Items, 1)
	assert.Equal(t, 350, order.Items[0].Price)
	assert.Equal(t, 700, order.TotalAmount)
}

func TestCancelReturnsAllHeldStock(t *testing.T) {
	store, coord, committer := newCheckout(t)
	p := store.AddProduct(models.Product{Name: "Gala Apples 1kg", Price: 350, Stock: 10, Category: "fruit"})
	cart := newCart(t, store, 1)
	ctx := context.Background()

	require.NoError(t, coord.Reserve(ctx, cart.ID, p.ID, 7))
	require.NoError(t, committer.Cancel(ctx, cart.ID))

	assert.Equal(t, 10, store.ProductStock(p.ID))
	assert.Empty(t, store.Orders())
}
