package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mmynk/owedup/internal/models"
	"github.com/mmynk/owedup/internal/storage"
)

// ErrSessionEnded is returned for tokens whose session was revoked by logout.
var ErrSessionEnded = errors.New("session has ended, please log in again")

// SessionManager issues and checks session tokens. A token is only accepted
// while its persisted session is active, which makes logout effective even
// though the token itself is still within its expiry.
type SessionManager struct {
	jwt      *JWTManager
	sessions storage.SessionStore
	now      func() time.Time
}

// NewSessionManager creates a session manager.
func NewSessionManager(jwtManager *JWTManager, sessions storage.SessionStore) *SessionManager {
	return &SessionManager{jwt: jwtManager, sessions: sessions, now: time.Now}
}

// Issue starts a session for user and returns its signed token.
func (m *SessionManager) Issue(ctx context.Context, user *models.User, provider string) (string, *models.Session, error) {
	now := m.now()
	session := &models.Session{
		UserID:    user.ID,
		Provider:  provider,
		CreatedAt: now.Unix(),
		ExpiresAt: now.Add(m.jwt.TokenDuration()).Unix(),
	}
	if err := m.sessions.CreateSession(ctx, session); err != nil {
		return "", nil, fmt.Errorf("failed to create session: %w", err)
	}

	token, err := m.jwt.Generate(user, session)
	if err != nil {
		return "", nil, err
	}

	return token, session, nil
}

// Verify validates the token signature and that its session is still active.
func (m *SessionManager) Verify(ctx context.Context, token string) (*Claims, error) {
	claims, err := m.jwt.Validate(token)
	if err != nil {
		return nil, err
	}

	session, err := m.sessions.GetSession(ctx, claims.SessionID())
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrInvalidToken
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	if session.UserID != claims.UserID {
		return nil, ErrInvalidToken
	}
	if !session.Active(m.now()) {
		return nil, ErrSessionEnded
	}

	return claims, nil
}

// Session loads the persisted session by ID.
func (m *SessionManager) Session(ctx context.Context, sessionID string) (*models.Session, error) {
	return m.sessions.GetSession(ctx, sessionID)
}

// Revoke ends a session.
func (m *SessionManager) Revoke(ctx context.Context, sessionID string) error {
	if err := m.sessions.RevokeSession(ctx, sessionID, m.now().Unix()); err != nil {
		return fmt.Errorf("failed to revoke session: %w", err)
	}
	return nil
}
