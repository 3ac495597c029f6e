package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"farmfresh/config"
	"farmfresh/models"
)

type UserRepository struct{}

func NewUserRepository() *UserRepository {
	return &UserRepository{}
}

func (r *UserRepository) Create(user *models.User) error {
	query := `
		INSERT INTO users (email, password, full_name, role, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`
	now := time.Now()
	return config.DB.QueryRow(context.Background(), query,
		user.Email, user.Password, user.FullName, user.Role, now, now,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
}

func (r *UserRepository) FindByEmail(email string) (*models.User, error) {
	query := `
		SELECT id, email, password, full_name, role, created_at, updated_at
		FROM users WHERE email = $1
	`
	var user models.User
	err := config.DB.QueryRow(context.Background(), query, email).Scan(
		&user.ID, &user.Email, &user.Password, &user.FullName, &user.Role,
		&user.CreatedAt, &user.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) FindByID(id int) (*models.User, error) {
	query := `
		SELECT id, email, password, full_name, role, created_at, updated_at
		FROM users WHERE id = $1
	`
	var user models.User
	err := config.DB.QueryRow(context.Background(), query, id).Scan(
		&user.ID, &user.Email, &user.Password, &user.FullName, &user.Role,
		&user.CreatedAt, &user.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}
