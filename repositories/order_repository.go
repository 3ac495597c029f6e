package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"farmfresh/config"
	"farmfresh/models"
)

type OrderRepository struct{}

func NewOrderRepository() *OrderRepository {
	return &OrderRepository{}
}

const orderColumns = `id, order_number, user_id, total_amount, status, created_at`

func (r *OrderRepository) GetByUser(userID int, status string) ([]models.Order, error) {
	query := "SELECT " + orderColumns + " FROM orders WHERE user_id = $1"
	args := []interface{}{userID}
	if status != "" {
		query += " AND status = $2"
		args = append(args, status)
	}
	query += " ORDER BY created_at DESC"

	rows, err := config.DB.Query(context.Background(), query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	orders, err := scanOrders(rows)
	if err != nil {
		return nil, err
	}
	return r.attachItems(orders)
}

func (r *OrderRepository) GetAll(status string, page, limit int) ([]models.Order, int, error) {
	offset := (page - 1) * limit

	countQuery := "SELECT COUNT(*) FROM orders"
	countArgs := []interface{}{}
	if status != "" {
		countQuery += " WHERE status = $1"
		countArgs = append(countArgs, status)
	}
	var total int
	if err := config.DB.QueryRow(context.Background(), countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := "SELECT " + orderColumns + " FROM orders"
	args := []interface{}{}
	argIndex := 1
	if status != "" {
		query += " WHERE status = $1"
		args = append(args, status)
		argIndex++
	}
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", argIndex, argIndex+1)
	args = append(args, limit, offset)

	rows, err := config.DB.Query(context.Background(), query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	orders, err := scanOrders(rows)
	if err != nil {
		return nil, 0, err
	}
	orders, err = r.attachItems(orders)
	return orders, total, err
}

func (r *OrderRepository) GetByID(id int) (*models.Order, error) {
	var o models.Order
	err := config.DB.QueryRow(context.Background(),
		"SELECT "+orderColumns+" FROM orders WHERE id = $1", id).Scan(
		&o.ID, &o.OrderNumber, &o.UserID, &o.TotalAmount, &o.Status, &o.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	orders, err := r.attachItems([]models.Order{o})
	if err != nil {
		return nil, err
	}
	return &orders[0], nil
}

func (r *OrderRepository) UpdateStatus(id int, status string) (bool, error) {
	ct, err := config.DB.Exec(context.Background(),
		"UPDATE orders SET status = $2 WHERE id = $1", id, status)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() == 1, nil
}

func scanOrders(rows pgx.Rows) ([]models.Order, error) {
	orders := []models.Order{}
	for rows.Next() {
		var o models.Order
		if err := rows.Scan(&o.ID, &o.OrderNumber, &o.UserID, &o.TotalAmount,
			&o.Status, &o.CreatedAt); err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

func (r *OrderRepository) attachItems(orders []models.Order) ([]models.Order, error) {
	for i := range orders {
		rows, err := config.DB.Query(context.Background(), `
			SELECT id, order_id, product_id, product_name, quantity, price
			FROM order_items WHERE order_id = $1 ORDER BY id`, orders[i].ID)
		if err != nil {
			return nil, err
		}
		items := []models.OrderItem{}
		for rows.Next() {
			var it models.OrderItem
			if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID,
				&it.ProductName, &it.Quantity, &it.Price); err != nil {
				rows.Close()
				return nil, err
			}
			items = append(items, it)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return nil, err
		}
		orders[i].Items = items
	}
	return orders, nil
}
