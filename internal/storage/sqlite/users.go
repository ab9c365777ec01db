package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/mmynk/owedup/internal/models"
	"github.com/mmynk/owedup/internal/storage"
)

const userColumns = `id, email, display_name, password_hash, created_at, updated_at`

// CreateUser inserts a new user into the database.
func (s *SQLiteStore) CreateUser(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (` + userColumns + `)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		user.ID,
		user.Email,
		user.DisplayName,
		user.PasswordHash,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("user %s: %w", user.Email, storage.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

// GetUserByEmail retrieves a user by their email address.
func (s *SQLiteStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = ?`

	user := &models.User{}
	err := s.db.QueryRowContext(ctx, query, email).Scan(
		&user.ID,
		&user.Email,
		&user.DisplayName,
		&user.PasswordHash,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, notFound(err, "user", email)
	}

	return user, nil
}

// GetUserByID retrieves a user by their ID.
func (s *SQLiteStore) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = ?`

	user := &models.User{}
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&user.ID,
		&user.Email,
		&user.DisplayName,
		&user.PasswordHash,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, notFound(err, "user", id)
	}

	return user, nil
}

// LinkIdentity records a federated credential for a user.
func (s *SQLiteStore) LinkIdentity(ctx context.Context, identity *models.Identity) error {
	if identity.CreatedAt == 0 {
		identity.CreatedAt = time.Now().Unix()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO identities (provider, subject, user_id, created_at) VALUES (?, ?, ?, ?)`,
		identity.Provider, identity.Subject, identity.UserID, identity.CreatedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("identity %s/%s: %w", identity.Provider, identity.Subject, storage.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("failed to link identity: %w", err)
	}

	return nil
}

// GetUserByIdentity retrieves the user linked to a federated credential.
func (s *SQLiteStore) GetUserByIdentity(ctx context.Context, provider, subject string) (*models.User, error) {
	query := `
		SELECT u.id, u.email, u.display_name, u.password_hash, u.created_at, u.updated_at
		FROM identities i
		JOIN users u ON u.id = i.user_id
		WHERE i.provider = ? AND i.subject = ?
	`

	user := &models.User{}
	err := s.db.QueryRowContext(ctx, query, provider, subject).Scan(
		&user.ID,
		&user.Email,
		&user.DisplayName,
		&user.PasswordHash,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, notFound(err, "identity", provider+"/"+subject)
	}

	return user, nil
}
