// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"
	"errors"

	"github.com/mmynk/owedup/internal/models"
)

var (
	// ErrNotFound is returned when a lookup matches no record.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a unique constraint would be violated.
	ErrConflict = errors.New("already exists")
)

// ExpenseStore holds expense records.
type ExpenseStore interface {
	// CreateExpense persists a new expense.
	// ID and CreatedAt are assigned by the store when unset.
	CreateExpense(ctx context.Context, expense *models.Expense) error

	// ListExpensesByUser returns every expense owned by userID, newest first.
	ListExpensesByUser(ctx context.Context, userID string) ([]*models.Expense, error)
}

// UserStore holds accounts and their federated identity links.
type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error

	// GetUserByEmail returns ErrNotFound when no account uses the email.
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)

	// GetUserByID returns ErrNotFound when the ID is unknown.
	GetUserByID(ctx context.Context, id string) (*models.User, error)

	// LinkIdentity records that (provider, subject) signs in as userID.
	LinkIdentity(ctx context.Context, identity *models.Identity) error

	// GetUserByIdentity returns ErrNotFound when the credential is not linked.
	GetUserByIdentity(ctx context.Context, provider, subject string) (*models.User, error)
}

// SessionStore holds signed-in sessions.
type SessionStore interface {
	CreateSession(ctx context.Context, session *models.Session) error

	// GetSession returns ErrNotFound when the ID is unknown.
	GetSession(ctx context.Context, id string) (*models.Session, error)

	// RevokeSession marks the session revoked at the given Unix time.
	// Revoking an already revoked session is not an error.
	RevokeSession(ctx context.Context, id string, at int64) error
}

// Store defines the full persistence surface.
// This abstraction allows swapping storage backends (SQLite, PostgreSQL)
// without changing the service layer.
type Store interface {
	ExpenseStore
	UserStore
	SessionStore

	// Close releases any resources held by the store.
	Close() error
}
