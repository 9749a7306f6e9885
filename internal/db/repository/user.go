package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"ehrledger/internal/domain"
)

// UserRepo persists registered users.
type UserRepo struct {
	db *sql.DB
}

func NewUserRepo(db *sql.DB) *UserRepo {
	return &UserRepo{db: db}
}

func (r *UserRepo) Create(ctx context.Context, u *domain.User) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (user_id, password_hash, role, created_at)
		VALUES (?, ?, ?, ?)`,
		u.ID, u.PasswordHash, string(u.Role), u.CreatedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return domain.ErrConflict("user %q already exists", u.ID)
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (r *UserRepo) Get(ctx context.Context, userID string) (*domain.User, error) {
	var (
		u         domain.User
		createdAt string
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT user_id, password_hash, role, created_at
		FROM users WHERE user_id = ?`, userID,
	).Scan(&u.ID, &u.PasswordHash, (*string)(&u.Role), &createdAt)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound("user %q not found", userID)
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	u.CreatedAt, err = time.Parse(timeLayout, createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse user created_at %q: %w", createdAt, err)
	}
	return &u, nil
}
