package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"farmfresh/models"
)

const (
	defaultTxTimeout   = 5 * time.Second
	defaultMaxAttempts = 3
)

// Coordinator owns every provisional hold against product stock. Each public
// operation is a single transaction: it either fully applies or leaves no
// trace. Write conflicts are retried up to a small bound, then surfaced as
// ErrConflict; transactions that outlive their deadline surface as ErrTimeout.
type Coordinator struct {
	store       Store
	txTimeout   time.Duration
	maxAttempts int
	now         func() time.Time
}

type CoordinatorOption func(*Coordinator)

func WithTxTimeout(d time.Duration) CoordinatorOption {
	return func(c *Coordinator) { c.txTimeout = d }
}

func WithMaxAttempts(n int) CoordinatorOption {
	return func(c *Coordinator) { c.maxAttempts = n }
}

func WithClock(now func() time.Time) CoordinatorOption {
	return func(c *Coordinator) { c.now = now }
}

func NewCoordinator(store Store, opts ...CoordinatorOption) *Coordinator {
	c := &Coordinator{
		store:       store,
		txTimeout:   defaultTxTimeout,
		maxAttempts: defaultMaxAttempts,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// run executes fn in a transaction with the coordinator's timeout and retry
// policy. Shared by the coordinator and the order committer.
func (c *Coordinator) run(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	var err error
	for attempt := 0; attempt < c.maxAttempts; attempt++ {
		txCtx, cancel := context.WithTimeout(ctx, c.txTimeout)
		err = c.store.InTx(txCtx, fn)
		cancel()

		switch {
		case err == nil:
			return nil
		case errors.Is(err, context.DeadlineExceeded):
			// The parent context may still be alive: only the tx timed out.
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("%w: %v", ErrTimeout, err)
		case errors.Is(err, ErrTxConflict):
			continue
		default:
			return err
		}
	}
	return fmt.Errorf("%w: gave up after %d attempts: %v", ErrConflict, c.maxAttempts, err)
}

// Reserve holds quantity units of a product for the cart, adding to an
// existing line for the same product (matched by product id). Stock is
// decremented and the line updated in one transaction.
func (c *Coordinator) Reserve(ctx context.Context, cartID, productID, quantity int) error {
	if quantity < 1 {
		return fmt.Errorf("reserve quantity must be positive, got %d", quantity)
	}
	return c.run(ctx, func(ctx context.Context, tx Tx) error {
		if _, err := tx.Cart(ctx, cartID); err != nil {
			return err
		}
		product, err := tx.ProductForUpdate(ctx, productID)
		if err != nil {
			return err
		}
		if product.Stock < quantity {
			return &InsufficientStockError{
				ProductID: productID,
				Requested: quantity,
				Available: product.Stock,
			}
		}
		if _, err := tx.AdjustStock(ctx, productID, -quantity); err != nil {
			return err
		}

		line, err := tx.CartLine(ctx, cartID, productID)
		switch {
		case errors.Is(err, ErrNotFound):
			line = models.CartLine{
				CartID:    cartID,
				ProductID: productID,
				Quantity:  quantity,
				UnitPrice: product.Price,
			}
		case err != nil:
			return err
		default:
			line.Quantity += quantity
		}
		line.ReservedAt = c.now()

		if err := tx.UpsertCartLine(ctx, line); err != nil {
			return err
		}
		return tx.TouchCart(ctx, cartID)
	})
}

// AdjustReservation sets the line's quantity to newQuantity. Growing the
// reservation can fail with InsufficientStockError; shrinking it never fails
// for capacity reasons. newQuantity == 0 removes the line entirely.
func (c *Coordinator) AdjustReservation(ctx context.Context, cartID, productID, newQuantity int) error {
	if newQuantity < 0 {
		return fmt.Errorf("reservation quantity cannot be negative, got %d", newQuantity)
	}
	return c.run(ctx, func(ctx context.Context, tx Tx) error {
		if _, err := tx.Cart(ctx, cartID); err != nil {
			return err
		}
		line, err := tx.CartLine(ctx, cartID, productID)
		if err != nil {
			return err
		}
		delta := newQuantity - line.Quantity
		if delta == 0 {
			return tx.TouchCart(ctx, cartID)
		}

		if delta > 0 {
			product, err := tx.ProductForUpdate(ctx, productID)
			if err != nil {
				return err
			}
			if product.Stock < delta {
				return &InsufficientStockError{
					ProductID: productID,
					Requested: delta,
					Available: product.Stock,
				}
			}
		}
		if _, err := tx.AdjustStock(ctx, productID, -delta); err != nil {
			return err
		}

		if newQuantity == 0 {
			if err := tx.DeleteCartLine(ctx, cartID, productID); err != nil {
				return err
			}
		} else {
			line.Quantity = newQuantity
			line.ReservedAt = c.now()
			if err := tx.UpsertCartLine(ctx, line); err != nil {
				return err
			}
		}
		return tx.TouchCart(ctx, cartID)
	})
}

// Release returns quantity units of a line's hold to the product's stock,
// removing the line when it reaches zero. Releasing a line that no longer
// exists is a no-op, so stale duplicate calls cannot inflate stock.
func (c *Coordinator) Release(ctx context.Context, cartID, productID, quantity int) error {
	if quantity < 1 {
		return fmt.Errorf("release quantity must be positive, got %d", quantity)
	}
	return c.run(ctx, func(ctx context.Context, tx Tx) error {
		if _, err := tx.Cart(ctx, cartID); err != nil {
			return err
		}
		line, err := tx.CartLine(ctx, cartID, productID)
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		if quantity > line.Quantity {
			quantity = line.Quantity
		}
		if _, err := tx.AdjustStock(ctx, productID, quantity); err != nil {
			return err
		}

		if line.Quantity == quantity {
			if err := tx.DeleteCartLine(ctx, cartID, productID); err != nil {
				return err
			}
		} else {
			line.Quantity -= quantity
			if err := tx.UpsertCartLine(ctx, line); err != nil {
				return err
			}
		}
		return tx.TouchCart(ctx, cartID)
	})
}

// ReleaseAll returns every hold in the cart in one transaction, used by
// explicit cart clears, checkout cancellation and the expiry sweep.
func (c *Coordinator) ReleaseAll(ctx context.Context, cartID int) error {
	return c.run(ctx, func(ctx context.Context, tx Tx) error {
		lines, err := tx.CartLines(ctx, cartID)
		if err != nil {
			return err
		}
		for _, line := range lines {
			if _, err := tx.AdjustStock(ctx, line.ProductID, line.Quantity); err != nil {
				return err
			}
		}
		if err := tx.ClearCartLines(ctx, cartID); err != nil {
			return err
		}
		return tx.TouchCart(ctx, cartID)
	})
}

// Lines reads the cart's lines together with their product snapshots.
func (c *Coordinator) Lines(ctx context.Context, cartID int) ([]models.CartLineView, error) {
	var views []models.CartLineView
	err := c.run(ctx, func(ctx context.Context, tx Tx) error {
		lines, err := tx.CartLines(ctx, cartID)
		if err != nil {
			return err
		}
		views = make([]models.CartLineView, 0, len(lines))
		for _, line := range lines {
			view := models.CartLineView{
				ProductID:  line.ProductID,
				Quantity:   line.Quantity,
				UnitPrice:  line.UnitPrice,
				Subtotal:   line.UnitPrice * line.Quantity,
				ReservedAt: line.ReservedAt,
			}
			if product, err := tx.Product(ctx, line.ProductID); err == nil {
				view.ProductName = product.Name
				view.ImageURL = product.ImageURL
			}
			views = append(views, view)
		}
		return nil
	})
	return views, err
}
