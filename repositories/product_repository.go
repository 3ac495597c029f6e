package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"farmfresh/config"
	"farmfresh/models"
)

type ProductRepository struct{}

func NewProductRepository() *ProductRepository {
	return &ProductRepository{}
}

const productColumns = `id, name, description, price, stock, category, COALESCE(image_url, ''), created_at, updated_at`

func (r *ProductRepository) GetAll(category, search string, page, limit int) ([]models.Product, int, error) {
	offset := (page - 1) * limit

	whereConditions := []string{}
	args := []interface{}{}
	argIndex := 1

	if category != "" {
		whereConditions = append(whereConditions, fmt.Sprintf("category = $%d", argIndex))
		args = append(args, category)
		argIndex++
	}
	if search != "" {
		whereConditions = append(whereConditions, fmt.Sprintf("name ILIKE $%d", argIndex))
		args = append(args, "%"+search+"%")
		argIndex++
	}

	where := ""
	if len(whereConditions) > 0 {
		where = " WHERE " + strings.Join(whereConditions, " AND ")
	}

	var total int
	err := config.DB.QueryRow(context.Background(),
		"SELECT COUNT(*) FROM products"+where, args...).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(
		"SELECT %s FROM products%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d",
		productColumns, where, argIndex, argIndex+1)
	args = append(args, limit, offset)

	rows, err := config.DB.Query(context.Background(), query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	products := []models.Product{}
	for rows.Next() {
		var p models.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.Stock,
			&p.Category, &p.ImageURL, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, 0, err
		}
		products = append(products, p)
	}
	return products, total, rows.Err()
}

func (r *ProductRepository) GetByID(id int) (*models.Product, error) {
	var p models.Product
	err := config.DB.QueryRow(context.Background(),
		"SELECT "+productColumns+" FROM products WHERE id = $1", id).Scan(
		&p.ID, &p.Name, &p.Description, &p.Price, &p.Stock,
		&p.Category, &p.ImageURL, &p.CreatedAt, &p.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *ProductRepository) Create(product *models.Product) error {
	query := `
		INSERT INTO products (name, description, price, stock, category, image_url, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7, $8)
		RETURNING id, created_at, updated_at
	`
	now := time.Now()
	return config.DB.QueryRow(context.Background(), query,
		product.Name, product.Description, product.Price, product.Stock,
		product.Category, product.ImageURL, now, now,
	).Scan(&product.ID, &product.CreatedAt, &product.UpdatedAt)
}

// Update changes catalog fields only. Stock stays with the reservation
// engine; catalog edits never touch it.
func (r *ProductRepository) Update(product *models.Product) error {
	query := `
		UPDATE products
		SET name = $2, description = $3, price = $4, category = $5,
		    image_url = NULLIF($6, ''), updated_at = $7
		WHERE id = $1
	`
	_, err := config.DB.Exec(context.Background(), query,
		product.ID, product.Name, product.Description, product.Price,
		product.Category, product.ImageURL, time.Now())
	return err
}

func (r *ProductRepository) Delete(id int) error {
	_, err := config.DB.Exec(context.Background(),
		"DELETE FROM products WHERE id = $1", id)
	return err
}

func (r *ProductRepository) Categories() ([]string, error) {
	rows, err := config.DB.Query(context.Background(),
		"SELECT DISTINCT category FROM products ORDER BY category")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	categories := []string{}
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}
