package auth

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/mmynk/owedup/internal/models"
	"github.com/mmynk/owedup/internal/storage/sqlite"
)

func newTestStore(t *testing.T) *sqlite.SQLiteStore {
	t.Helper()

	tempDir, err := os.MkdirTemp("", "owedup-auth-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(tempDir) })

	store, err := sqlite.New(filepath.Join(tempDir, "auth.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestPasswordAuthenticator(t *testing.T) {
	ctx := context.Background()
	a := NewPasswordAuthenticator(newTestStore(t))

	user, err := a.Register(ctx, " Alice@Example.com ", "Alice", "correct-horse")
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if user.Email != "alice@example.com" {
		t.Errorf("email not normalized: %q", user.Email)
	}
	if user.PasswordHash == "correct-horse" {
		t.Error("password stored in clear text")
	}

	tests := []struct {
		name     string
		email    string
		password string
		wantErr  error
	}{
		{"valid credentials", "alice@example.com", "correct-horse", nil},
		{"email is case-insensitive", "ALICE@example.com", "correct-horse", nil},
		{"wrong password", "alice@example.com", "wrong-horse", ErrInvalidCredentials},
		{"unknown email", "bob@example.com", "correct-horse", ErrInvalidCredentials},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := a.Authenticate(ctx, tt.email, tt.password)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Authenticate error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantErr == nil && got.ID != user.ID {
				t.Errorf("Authenticate returned %s, want %s", got.ID, user.ID)
			}
		})
	}

	t.Run("duplicate email", func(t *testing.T) {
		_, err := a.Register(ctx, "alice@example.com", "Alice 2", "another-pass")
		if !errors.Is(err, ErrEmailExists) {
			t.Errorf("expected ErrEmailExists, got %v", err)
		}
	})

	t.Run("weak password", func(t *testing.T) {
		_, err := a.Register(ctx, "carol@example.com", "Carol", "short")
		if !errors.Is(err, ErrWeakPassword) {
			t.Errorf("expected ErrWeakPassword, got %v", err)
		}
	})
}

func TestJWTManager(t *testing.T) {
	m := NewJWTManager("test-secret", time.Hour)
	user := &models.User{ID: "user-1", Email: "a@example.com"}
	now := time.Now()
	session := &models.Session{ID: "session-1", UserID: user.ID, CreatedAt: now.Unix(), ExpiresAt: now.Add(time.Hour).Unix()}

	token, err := m.Generate(user, session)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	claims, err := m.Validate(token)
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if claims.UserID != "user-1" || claims.SessionID() != "session-1" {
		t.Errorf("unexpected claims: %+v", claims)
	}

	t.Run("wrong secret", func(t *testing.T) {
		other := NewJWTManager("other-secret", time.Hour)
		if _, err := other.Validate(token); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("expected ErrInvalidToken, got %v", err)
		}
	})

	t.Run("expired", func(t *testing.T) {
		expired := &models.Session{ID: "session-2", CreatedAt: now.Add(-2 * time.Hour).Unix(), ExpiresAt: now.Add(-time.Hour).Unix()}
		token, err := m.Generate(user, expired)
		if err != nil {
			t.Fatalf("Generate failed: %v", err)
		}
		if _, err := m.Validate(token); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("expected ErrInvalidToken, got %v", err)
		}
	})

	t.Run("garbage", func(t *testing.T) {
		if _, err := m.Validate("not-a-token"); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("expected ErrInvalidToken, got %v", err)
		}
	})
}

func TestSessionManager(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	sessions := NewSessionManager(NewJWTManager("test-secret", time.Hour), store)

	user := models.NewUser("dave@example.com", "Dave", "")
	if err := store.CreateUser(ctx, user); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}

	token, session, err := sessions.Issue(ctx, user, models.ProviderPassword)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	claims, err := sessions.Verify(ctx, token)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if claims.SessionID() != session.ID {
		t.Errorf("session ID = %s, want %s", claims.SessionID(), session.ID)
	}

	if err := sessions.Revoke(ctx, session.ID); err != nil {
		t.Fatalf("Revoke failed: %v", err)
	}
	if _, err := sessions.Verify(ctx, token); !errors.Is(err, ErrSessionEnded) {
		t.Errorf("expected ErrSessionEnded after revoke, got %v", err)
	}

	t.Run("unknown session", func(t *testing.T) {
		ghost := &models.Session{ID: "ghost", UserID: user.ID, CreatedAt: time.Now().Unix(), ExpiresAt: time.Now().Add(time.Hour).Unix()}
		token, err := NewJWTManager("test-secret", time.Hour).Generate(user, ghost)
		if err != nil {
			t.Fatalf("Generate failed: %v", err)
		}
		if _, err := sessions.Verify(ctx, token); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("expected ErrInvalidToken, got %v", err)
		}
	})
}

// signIDToken builds an HS256 ID token the way a test identity provider would.
func signIDToken(t *testing.T, secret string, claims IDTokenClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("failed to sign ID token: %v", err)
	}
	return token
}

func idClaims(subject, email string, verified bool) IDTokenClaims {
	return IDTokenClaims{
		Email:         email,
		EmailVerified: verified,
		Name:          "Fed User",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    "https://idp.example.com",
			Audience:  jwt.ClaimStrings{"owedup-app"},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
}

func TestFederatedAuthenticator(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	verifier, err := NewIDTokenVerifier("google", "https://idp.example.com", "owedup-app", "idp-secret")
	if err != nil {
		t.Fatalf("NewIDTokenVerifier failed: %v", err)
	}
	fed := NewFederatedAuthenticator(store, verifier)

	t.Run("first sign-in creates an account", func(t *testing.T) {
		user, err := fed.Authenticate(ctx, "google", signIDToken(t, "idp-secret", idClaims("sub-1", "Fed@Example.com", true)))
		if err != nil {
			t.Fatalf("Authenticate failed: %v", err)
		}
		if user.Email != "fed@example.com" || user.HasPassword() {
			t.Errorf("unexpected user: %+v", user)
		}

		again, err := fed.Authenticate(ctx, "google", signIDToken(t, "idp-secret", idClaims("sub-1", "fed@example.com", true)))
		if err != nil {
			t.Fatalf("second Authenticate failed: %v", err)
		}
		if again.ID != user.ID {
			t.Errorf("second sign-in returned %s, want %s", again.ID, user.ID)
		}
	})

	t.Run("links to existing password account", func(t *testing.T) {
		existing, err := NewPasswordAuthenticator(store).Register(ctx, "erin@example.com", "Erin", "erins-password")
		if err != nil {
			t.Fatalf("Register failed: %v", err)
		}
		user, err := fed.Authenticate(ctx, "google", signIDToken(t, "idp-secret", idClaims("sub-erin", "erin@example.com", true)))
		if err != nil {
			t.Fatalf("Authenticate failed: %v", err)
		}
		if user.ID != existing.ID {
			t.Errorf("linked to %s, want %s", user.ID, existing.ID)
		}
	})

	t.Run("unverified email does not link", func(t *testing.T) {
		_, err := fed.Authenticate(ctx, "google", signIDToken(t, "idp-secret", idClaims("sub-x", "erin@example.com", false)))
		if !errors.Is(err, ErrInvalidIDToken) {
			t.Errorf("expected ErrInvalidIDToken, got %v", err)
		}
	})

	t.Run("bad signature", func(t *testing.T) {
		_, err := fed.Authenticate(ctx, "google", signIDToken(t, "wrong-secret", idClaims("sub-2", "x@example.com", true)))
		if !errors.Is(err, ErrInvalidIDToken) {
			t.Errorf("expected ErrInvalidIDToken, got %v", err)
		}
	})

	t.Run("wrong audience", func(t *testing.T) {
		claims := idClaims("sub-3", "y@example.com", true)
		claims.Audience = jwt.ClaimStrings{"someone-else"}
		_, err := fed.Authenticate(ctx, "google", signIDToken(t, "idp-secret", claims))
		if !errors.Is(err, ErrInvalidIDToken) {
			t.Errorf("expected ErrInvalidIDToken, got %v", err)
		}
	})

	t.Run("unknown provider", func(t *testing.T) {
		_, err := fed.Authenticate(ctx, "facebook", "token")
		if !errors.Is(err, ErrUnknownProvider) {
			t.Errorf("expected ErrUnknownProvider, got %v", err)
		}
	})
}
