package inventory

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a product, cart or cart line does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned after a transaction kept hitting write conflicts
	// and the retry budget ran out. The whole operation is safe to retry.
	ErrConflict = errors.New("transaction conflict, retry the operation")

	// ErrTimeout is returned when a transaction exceeded its deadline. No
	// partial state was committed, safe to retry.
	ErrTimeout = errors.New("transaction timed out")

	// ErrEmptyCart is returned by Commit when the cart has no lines.
	ErrEmptyCart = errors.New("cart is empty")

	// ErrTxConflict is the store-level conflict signal. Store implementations
	// wrap it around serialization failures; the engine's retry loop reacts
	// to it and callers only ever see ErrConflict.
	ErrTxConflict = errors.New("tx write conflict")
)

// InsufficientStockError reports a reservation that asked for more units than
// the product has available. Nothing was mutated.
type InsufficientStockError struct {
	ProductID int
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %d: requested %d, available %d",
		e.ProductID, e.Requested, e.Available)
}

// OrderCommitError reports an inconsistency found while turning a cart into
// an order. No order was created and the cart's reservations are still held.
type OrderCommitError struct {
	CartID int
	Err    error
}

func (e *OrderCommitError) Error() string {
	return fmt.Sprintf("order commit failed for cart %d: %v", e.CartID, e.Err)
}

func (e *OrderCommitError) Unwrap() error { return e.Err }
