package inventory

import (
	"context"
	"time"

	"farmfresh/models"
)

// Tx is the unit of work every stock mutation runs inside. Implementations
// must guarantee that nothing done through a Tx is visible to other
// transactions until InTx returns nil, and that everything is discarded when
// the callback or the commit fails.
type Tx interface {
	// Product reads a product without locking it.
	Product(ctx context.Context, productID int) (models.Product, error)

	// ProductForUpdate reads a product and locks its row until the
	// transaction ends, serializing concurrent stock mutations per product.
	ProductForUpdate(ctx context.Context, productID int) (models.Product, error)

	// AdjustStock applies delta to the product's stock and returns the new
	// value. It fails with *InsufficientStockError when a negative delta
	// would drive stock below zero. It is the only stock mutator.
	AdjustStock(ctx context.Context, productID, delta int) (int, error)

	// Cart reads the cart and holds it against concurrent cart mutations
	// until the transaction ends.
	Cart(ctx context.Context, cartID int) (models.Cart, error)
	CartLines(ctx context.Context, cartID int) ([]models.CartLine, error)
	CartLine(ctx context.Context, cartID, productID int) (models.CartLine, error)
	UpsertCartLine(ctx context.Context, line models.CartLine) error
	DeleteCartLine(ctx context.Context, cartID, productID int) error
	ClearCartLines(ctx context.Context, cartID int) error

	// TouchCart bumps the cart's updated_at, postponing expiry.
	TouchCart(ctx context.Context, cartID int) error

	// CreateOrder inserts the order and its items, filling in order.ID.
	CreateOrder(ctx context.Context, order *models.Order) error
}

// Store opens transactions against the storefront's state.
type Store interface {
	// InTx runs fn inside a transaction, committing when fn returns nil and
	// rolling back otherwise. A write conflict is reported as ErrTxConflict
	// (wrapped), which the engine's retry loop recognizes.
	InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error

	// EnsureCart returns the user's cart, creating it when missing.
	EnsureCart(ctx context.Context, userID int) (models.Cart, error)

	// StaleCarts lists ids of carts with at least one line whose updated_at
	// is older than cutoff.
	StaleCarts(ctx context.Context, cutoff time.Time) ([]int, error)
}
