package models

import (
	"time"

	"github.com/google/uuid"
)

// User represents a registered user account.
type User struct {
	// ID is the unique identifier for the user (UUID format).
	ID string

	// Email is the user's email address (unique). Used for login.
	Email string

	// DisplayName is the name shown in the client.
	DisplayName string

	// PasswordHash is the bcrypt hash of the password.
	// Empty for accounts created through a federated credential.
	PasswordHash string

	// CreatedAt is the Unix timestamp when the account was created.
	CreatedAt int64

	// UpdatedAt is the Unix timestamp of the last account change.
	UpdatedAt int64
}

// NewUser builds a user with a fresh ID and timestamps.
func NewUser(email, displayName, passwordHash string) *User {
	now := time.Now().Unix()
	return &User{
		ID:           uuid.New().String(),
		Email:        email,
		DisplayName:  displayName,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// HasPassword reports whether the account can sign in with a password.
func (u *User) HasPassword() bool {
	return u.PasswordHash != ""
}

// Identity links a federated credential to a user.
type Identity struct {
	// Provider names the identity provider (e.g., "google").
	Provider string

	// Subject is the provider's stable identifier for the account.
	Subject string

	// UserID is the linked user.
	UserID string

	// CreatedAt is the Unix timestamp when the link was made.
	CreatedAt int64
}
