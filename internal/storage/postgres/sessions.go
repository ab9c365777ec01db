package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/mmynk/owedup/internal/models"
	"github.com/mmynk/owedup/internal/storage"
)

// CreateSession persists a new session.
func (s *PostgresStore) CreateSession(ctx context.Context, session *models.Session) error {
	if session.ID == "" {
		session.ID = uuid.New().String()
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO sessions (id, user_id, provider, created_at, expires_at, revoked_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		session.ID, session.UserID, session.Provider, session.CreatedAt, session.ExpiresAt, session.RevokedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert session: %w", err)
	}
	return nil
}

// GetSession retrieves a session by ID.
func (s *PostgresStore) GetSession(ctx context.Context, id string) (*models.Session, error) {
	session := &models.Session{}
	err := s.pool.QueryRow(ctx,
		`SELECT id, user_id, provider, created_at, expires_at, revoked_at
		 FROM sessions WHERE id = $1`,
		id,
	).Scan(&session.ID, &session.UserID, &session.Provider, &session.CreatedAt, &session.ExpiresAt, &session.RevokedAt)
	if err != nil {
		return nil, notFound(err, "session", id)
	}
	return session, nil
}

// RevokeSession marks a session revoked and notifies listeners on commit.
// The first revocation time is kept.
func (s *PostgresStore) RevokeSession(ctx context.Context, id string, at int64) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		`UPDATE sessions SET revoked_at = CASE WHEN revoked_at = 0 THEN $1 ELSE revoked_at END
		 WHERE id = $2`,
		at, id,
	)
	if err != nil {
		return fmt.Errorf("failed to revoke session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("session %s: %w", id, storage.ErrNotFound)
	}

	if _, err := tx.Exec(ctx, "SELECT pg_notify($1, $2)", SessionChannel, id); err != nil {
		return fmt.Errorf("failed to notify: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
