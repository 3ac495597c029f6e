package inventory

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"farmfresh/models"
)

// Committer turns a cart's reservations into a permanent order. The stock
// those reservations hold is already subtracted, so commit consumes the holds
// without touching the stock counters.
type Committer struct {
	coord *Coordinator
}

func NewCommitter(coord *Coordinator) *Committer {
	return &Committer{coord: coord}
}

// Commit re-reads every cart line in one transaction, re-confirms each
// product still exists (a corruption guard, not a second stock check),
// snapshots prices into an order, and clears the lines without releasing
// stock. Any inconsistency aborts with *OrderCommitError and the
// reservations stay held so the caller can retry or cancel.
func (m *Committer) Commit(ctx context.Context, cartID int) (*models.Order, error) {
	var order *models.Order
	err := m.coord.run(ctx, func(ctx context.Context, tx Tx) error {
		order = nil

		cart, err := tx.Cart(ctx, cartID)
		if err != nil {
			return err
		}
		lines, err := tx.CartLines(ctx, cartID)
		if err != nil {
			return err
		}
		if len(lines) == 0 {
			return ErrEmptyCart
		}

		o := models.Order{
			OrderNumber: fmt.Sprintf("ORD-%s", uuid.NewString()),
			UserID:      cart.UserID,
			Status:      models.OrderStatusPending,
			Items:       make([]models.OrderItem, 0, len(lines)),
		}
		for _, line := range lines {
			product, err := tx.Product(ctx, line.ProductID)
			if err != nil {
				return &OrderCommitError{CartID: cartID, Err: fmt.Errorf("product %d: %w", line.ProductID, err)}
			}
			if line.Quantity < 1 {
				return &OrderCommitError{CartID: cartID, Err: fmt.Errorf("line for product %d has quantity %d", line.ProductID, line.Quantity)}
			}
			o.Items = append(o.Items, models.OrderItem{
				ProductID:   line.ProductID,
				ProductName: product.Name,
				Quantity:    line.Quantity,
				Price:       line.UnitPrice,
			})
			o.TotalAmount += line.UnitPrice * line.Quantity
		}

		if err := tx.CreateOrder(ctx, &o); err != nil {
			return err
		}
		// The holds are consumed by the order: clear the lines without
		// giving the stock back.
		if err := tx.ClearCartLines(ctx, cartID); err != nil {
			return err
		}
		if err := tx.TouchCart(ctx, cartID); err != nil {
			return err
		}
		order = &o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// Cancel abandons checkout, returning every held unit to stock.
func (m *Committer) Cancel(ctx context.Context, cartID int) error {
	return m.coord.ReleaseAll(ctx, cartID)
}
