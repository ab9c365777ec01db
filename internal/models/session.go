package models

import "time"

// ProviderPassword marks sessions started with email and password.
const ProviderPassword = "password"

// Session is one signed-in session. Its ID is carried in the token.
type Session struct {
	ID        string
	UserID    string
	Provider  string
	CreatedAt int64
	ExpiresAt int64

	// RevokedAt is zero while the session is active.
	RevokedAt int64
}

// Active reports whether the session is neither revoked nor expired at now.
func (s *Session) Active(now time.Time) bool {
	return s.RevokedAt == 0 && now.Unix() < s.ExpiresAt
}
