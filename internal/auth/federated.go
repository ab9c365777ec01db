package auth

import (
	"context"
	"crypto/rsa"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/mmynk/owedup/internal/models"
	"github.com/mmynk/owedup/internal/storage"
)

var (
	ErrUnknownProvider = errors.New("unsupported identity provider")
	ErrInvalidIDToken  = errors.New("could not verify identity token")
)

// IDTokenClaims are the claims read from a provider's ID token.
type IDTokenClaims struct {
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	jwt.RegisteredClaims
}

// IDTokenVerifier verifies ID tokens issued by one identity provider.
type IDTokenVerifier struct {
	provider string
	issuer   string
	audience string

	rsaKey  *rsa.PublicKey
	hmacKey []byte
}

// NewIDTokenVerifier builds a verifier for provider. key is either a PEM
// encoded RSA public key (RS256 tokens) or a shared secret (HS256 tokens).
func NewIDTokenVerifier(provider, issuer, audience, key string) (*IDTokenVerifier, error) {
	if provider == "" || key == "" {
		return nil, fmt.Errorf("provider and key are required")
	}

	v := &IDTokenVerifier{provider: provider, issuer: issuer, audience: audience}
	if strings.Contains(key, "-----BEGIN") {
		pub, err := jwt.ParseRSAPublicKeyFromPEM([]byte(key))
		if err != nil {
			return nil, fmt.Errorf("failed to parse provider key: %w", err)
		}
		v.rsaKey = pub
	} else {
		v.hmacKey = []byte(key)
	}
	return v, nil
}

// Provider names the identity provider this verifier trusts.
func (v *IDTokenVerifier) Provider() string {
	return v.provider
}

// Verify checks the token signature, issuer, audience and expiry.
func (v *IDTokenVerifier) Verify(idToken string) (*IDTokenClaims, error) {
	opts := []jwt.ParserOption{jwt.WithExpirationRequired()}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}
	if v.audience != "" {
		opts = append(opts, jwt.WithAudience(v.audience))
	}
	if v.rsaKey != nil {
		opts = append(opts, jwt.WithValidMethods([]string{"RS256"}))
	} else {
		opts = append(opts, jwt.WithValidMethods([]string{"HS256"}))
	}

	token, err := jwt.ParseWithClaims(idToken, &IDTokenClaims{}, func(*jwt.Token) (interface{}, error) {
		if v.rsaKey != nil {
			return v.rsaKey, nil
		}
		return v.hmacKey, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidIDToken, err)
	}

	claims, ok := token.Claims.(*IDTokenClaims)
	if !ok || !token.Valid || claims.Subject == "" {
		return nil, ErrInvalidIDToken
	}
	return claims, nil
}

// FederatedAuthenticator exchanges verified ID tokens for user accounts.
type FederatedAuthenticator struct {
	users     storage.UserStore
	verifiers map[string]*IDTokenVerifier
}

// NewFederatedAuthenticator creates an authenticator trusting the given verifiers.
func NewFederatedAuthenticator(users storage.UserStore, verifiers ...*IDTokenVerifier) *FederatedAuthenticator {
	m := make(map[string]*IDTokenVerifier, len(verifiers))
	for _, v := range verifiers {
		m[v.Provider()] = v
	}
	return &FederatedAuthenticator{users: users, verifiers: m}
}

// Authenticate verifies idToken and returns the linked user. A first sign-in
// links to the account with the same verified email, or creates a new
// password-less account.
func (a *FederatedAuthenticator) Authenticate(ctx context.Context, provider, idToken string) (*models.User, error) {
	verifier, ok := a.verifiers[provider]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, provider)
	}

	claims, err := verifier.Verify(idToken)
	if err != nil {
		return nil, err
	}

	user, err := a.users.GetUserByIdentity(ctx, provider, claims.Subject)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("failed to look up identity: %w", err)
	}

	email := NormalizeEmail(claims.Email)
	if email == "" {
		return nil, fmt.Errorf("%w: token has no email", ErrInvalidIDToken)
	}

	user, err = a.users.GetUserByEmail(ctx, email)
	switch {
	case err == nil:
		if !claims.EmailVerified {
			return nil, fmt.Errorf("%w: email not verified by provider", ErrInvalidIDToken)
		}
	case errors.Is(err, storage.ErrNotFound):
		name := claims.Name
		if name == "" {
			name = email
		}
		user = models.NewUser(email, name, "")
		if err := a.users.CreateUser(ctx, user); err != nil {
			return nil, fmt.Errorf("failed to create user: %w", err)
		}
	default:
		return nil, fmt.Errorf("failed to look up email: %w", err)
	}

	if err := a.users.LinkIdentity(ctx, &models.Identity{
		Provider: provider,
		Subject:  claims.Subject,
		UserID:   user.ID,
	}); err != nil {
		return nil, fmt.Errorf("failed to link identity: %w", err)
	}

	return user, nil
}
