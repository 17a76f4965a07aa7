package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"kfz/internal/auth"
)

// User is a stored login account.
type User struct {
	ID           int64
	Username     string
	PasswordHash string
}

func (r *SQLiteRepository) GetUserByUsername(ctx context.Context, username string) (User, error) {
	var u User
	err := r.db.QueryRowContext(ctx, `
		SELECT id, username, password_hash
		FROM users
		WHERE username = ?`, username).
		Scan(&u.ID, &u.Username, &u.PasswordHash)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("get user %s: %w", username, err)
	}
	return u, nil
}

// EnsureAdminUser creates the admin account on first start. An existing
// account is left untouched, so password changes survive restarts only via
// configuration before the first run.
func (r *SQLiteRepository) EnsureAdminUser(ctx context.Context, username, password string) error {
	if _, err := r.GetUserByUsername(ctx, username); err == nil {
		return nil
	} else if !errors.Is(err, ErrNotFound) {
		return err
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO users (username, password_hash) VALUES (?, ?)`,
		username, hash)
	if err != nil {
		return fmt.Errorf("create admin user: %w", err)
	}
	return nil
}
