package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// User is an account row. PasswordHash never leaves this package's callers
// except for verification.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	DisplayName  string
	IsGuest      bool
	CreatedAt    string
}

// CreateUser inserts a new account. Emails are unique.
func (s *Store) CreateUser(ctx context.Context, email, passwordHash, displayName string, isGuest bool) (*User, error) {
	u := &User{
		ID:           uuid.NewString(),
		Email:        strings.ToLower(strings.TrimSpace(email)),
		PasswordHash: passwordHash,
		DisplayName:  displayName,
		IsGuest:      isGuest,
		CreatedAt:    now(),
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, email, password_hash, display_name, is_guest, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		u.ID, u.Email, u.PasswordHash, nullable(u.DisplayName), boolToInt(u.IsGuest), u.CreatedAt)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return u, nil
}

// UserByEmail looks up an account by email.
func (s *Store) UserByEmail(ctx context.Context, email string) (*User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx,
		`SELECT id, email, password_hash, COALESCE(display_name, ''), is_guest, created_at
		 FROM users WHERE email = ?`, strings.ToLower(strings.TrimSpace(email))))
}

// UserByID looks up an account by id.
func (s *Store) UserByID(ctx context.Context, id string) (*User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx,
		`SELECT id, email, password_hash, COALESCE(display_name, ''), is_guest, created_at
		 FROM users WHERE id = ?`, id))
}

func (s *Store) scanUser(row *sql.Row) (*User, error) {
	var u User
	var guest int
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.DisplayName, &guest, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan user: %w", err)
	}
	u.IsGuest = guest != 0
	return &u, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
