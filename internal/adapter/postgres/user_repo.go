package postgres

import (
	"context"
	"database/sql"
	"errors"

	"travelstory/internal/domain"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

const uniqueViolation = "23505"

// CreateUser inserts a new user. A duplicate email yields domain.ErrEmailTaken.
func (d *DB) CreateUser(ctx context.Context, u *domain.User) error {
	_, err := d.sql.ExecContext(ctx,
		"INSERT INTO users (id, full_name, email, password_hash, created_at) VALUES ($1, $2, $3, $4, $5)",
		u.ID, u.FullName, u.Email, u.PasswordHash, u.CreatedAt.UTC(),
	)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return domain.ErrEmailTaken
	}
	return err
}

// GetUserByEmail retrieves a user by email.
func (d *DB) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	var u domain.User
	err := d.sql.QueryRowContext(ctx,
		"SELECT id, full_name, email, password_hash, created_at FROM users WHERE email = $1",
		email,
	).Scan(&u.ID, &u.FullName, &u.Email, &u.PasswordHash, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// GetUserByID retrieves a user by ID.
func (d *DB) GetUserByID(ctx context.Context, id string) (*domain.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, nil
	}
	var u domain.User
	err := d.sql.QueryRowContext(ctx,
		"SELECT id, full_name, email, password_hash, created_at FROM users WHERE id = $1",
		id,
	).Scan(&u.ID, &u.FullName, &u.Email, &u.PasswordHash, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}
