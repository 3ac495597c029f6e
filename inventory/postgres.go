package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"farmfresh/models"
)

// PostgresStore implements Store on a pgx connection pool. Per-product
// serialization comes from SELECT ... FOR UPDATE row locks; deadlocks and
// serialization failures surface as ErrTxConflict so the engine retries them.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return classifyPgErr(err)
	}
	defer tx.Rollback(ctx)

	if err := fn(ctx, &pgTx{tx: tx}); err != nil {
		return classifyPgErr(err)
	}
	if err := tx.Commit(ctx); err != nil {
		return classifyPgErr(err)
	}
	return nil
}

// classifyPgErr wraps retryable postgres failures in ErrTxConflict and keeps
// everything else as-is.
func classifyPgErr(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "40P01": // serialization_failure, deadlock_detected
			return fmt.Errorf("%w: %s", ErrTxConflict, pgErr.Code)
		}
	}
	return err
}

func (s *PostgresStore) EnsureCart(ctx context.Context, userID int) (models.Cart, error) {
	var cart models.Cart
	err := s.pool.QueryRow(ctx, `
		INSERT INTO carts (user_id, updated_at)
		VALUES ($1, now())
		ON CONFLICT (user_id) DO UPDATE SET user_id = EXCLUDED.user_id
		RETURNING id, user_id, updated_at`, userID).
		Scan(&cart.ID, &cart.UserID, &cart.UpdatedAt)
	if err != nil {
		return models.Cart{}, err
	}
	return cart, nil
}

func (s *PostgresStore) StaleCarts(ctx context.Context, cutoff time.Time) ([]int, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT c.id FROM carts c
		WHERE c.updated_at < $1
		  AND EXISTS (SELECT 1 FROM cart_lines l WHERE l.cart_id = c.id)
		ORDER BY c.updated_at`, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

type pgTx struct {
	tx pgx.Tx
}

const productColumns = `id, name, description, price, stock, category, COALESCE(image_url, ''), created_at, updated_at`

func scanProduct(row pgx.Row) (models.Product, error) {
	var p models.Product
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.Stock,
		&p.Category, &p.ImageURL, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Product{}, ErrNotFound
	}
	return p, err
}

func (t *pgTx) Product(ctx context.Context, productID int) (models.Product, error) {
	return scanProduct(t.tx.QueryRow(ctx,
		`SELECT `+productColumns+` FROM products WHERE id = $1`, productID))
}

func (t *pgTx) ProductForUpdate(ctx context.Context, productID int) (models.Product, error) {
	return scanProduct(t.tx.QueryRow(ctx,
		`SELECT `+productColumns+` FROM products WHERE id = $1 FOR UPDATE`, productID))
}

func (t *pgTx) AdjustStock(ctx context.Context, productID, delta int) (int, error) {
	var newStock int
	err := t.tx.QueryRow(ctx, `
		UPDATE products SET stock = stock + $2, updated_at = now()
		WHERE id = $1 AND stock + $2 >= 0
		RETURNING stock`, productID, delta).Scan(&newStock)
	if errors.Is(err, pgx.ErrNoRows) {
		// Either the product is gone or the delta would go negative.
		var available int
		err := t.tx.QueryRow(ctx, `SELECT stock FROM products WHERE id = $1`, productID).Scan(&available)
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrNotFound
		}
		if err != nil {
			return 0, err
		}
		return 0, &InsufficientStockError{ProductID: productID, Requested: -delta, Available: available}
	}
	return newStock, err
}

// Cart locks the cart row for the rest of the transaction. Every cart
// mutation takes this lock first (cart before products), so a live user
// action and a concurrent expiry sweep can never both apply to stale lines.
func (t *pgTx) Cart(ctx context.Context, cartID int) (models.Cart, error) {
	var c models.Cart
	err := t.tx.QueryRow(ctx,
		`SELECT id, user_id, updated_at FROM carts WHERE id = $1 FOR UPDATE`, cartID).
		Scan(&c.ID, &c.UserID, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Cart{}, ErrNotFound
	}
	return c, err
}

func (t *pgTx) CartLines(ctx context.Context, cartID int) ([]models.CartLine, error) {
	if _, err := t.Cart(ctx, cartID); err != nil {
		return nil, err
	}
	rows, err := t.tx.Query(ctx, `
		SELECT cart_id, product_id, quantity, unit_price, reserved_at
		FROM cart_lines WHERE cart_id = $1 ORDER BY reserved_at`, cartID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	lines := []models.CartLine{}
	for rows.Next() {
		var l models.CartLine
		if err := rows.Scan(&l.CartID, &l.ProductID, &l.Quantity, &l.UnitPrice, &l.ReservedAt); err != nil {
			return nil, err
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

func (t *pgTx) CartLine(ctx context.Context, cartID, productID int) (models.CartLine, error) {
	var l models.CartLine
	err := t.tx.QueryRow(ctx, `
		SELECT cart_id, product_id, quantity, unit_price, reserved_at
		FROM cart_lines WHERE cart_id = $1 AND product_id = $2`, cartID, productID).
		Scan(&l.CartID, &l.ProductID, &l.Quantity, &l.UnitPrice, &l.ReservedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.CartLine{}, ErrNotFound
	}
	return l, err
}

func (t *pgTx) UpsertCartLine(ctx context.Context, line models.CartLine) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO cart_lines (cart_id, product_id, quantity, unit_price, reserved_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (cart_id, product_id)
		DO UPDATE SET quantity = EXCLUDED.quantity, reserved_at = EXCLUDED.reserved_at`,
		line.CartID, line.ProductID, line.Quantity, line.UnitPrice, line.ReservedAt)
	return err
}

func (t *pgTx) DeleteCartLine(ctx context.Context, cartID, productID int) error {
	_, err := t.tx.Exec(ctx,
		`DELETE FROM cart_lines WHERE cart_id = $1 AND product_id = $2`, cartID, productID)
	return err
}

func (t *pgTx) ClearCartLines(ctx context.Context, cartID int) error {
	_, err := t.tx.Exec(ctx, `DELETE FROM cart_lines WHERE cart_id = $1`, cartID)
	return err
}

func (t *pgTx) TouchCart(ctx context.Context, cartID int) error {
	_, err := t.tx.Exec(ctx, `UPDATE carts SET updated_at = now() WHERE id = $1`, cartID)
	return err
}

func (t *pgTx) CreateOrder(ctx context.Context, order *models.Order) error {
	err := t.tx.QueryRow(ctx, `
		INSERT INTO orders (order_number, user_id, total_amount, status, created_at)
		VALUES ($1, $2, $3, $4, now())
		RETURNING id, created_at`,
		order.OrderNumber, order.UserID, order.TotalAmount, order.Status).
		Scan(&order.ID, &order.CreatedAt)
	if err != nil {
		return err
	}
	for i := range order.Items {
		item := &order.Items[i]
		item.OrderID = order.ID
		err := t.tx.QueryRow(ctx, `
			INSERT INTO order_items (order_id, product_id, product_name, quantity, price)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id`,
			item.OrderID, item.ProductID, item.ProductName, item.Quantity, item.Price).
			Scan(&item.ID)
		if err != nil {
			return err
		}
	}
	return nil
}
