package service

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"connectrpc.com/connect"
	"github.com/golang-jwt/jwt/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/mmynk/owedup/internal/auth"
	"github.com/mmynk/owedup/internal/feed"
	"github.com/mmynk/owedup/internal/metrics"
	"github.com/mmynk/owedup/internal/middleware"
	"github.com/mmynk/owedup/internal/storage/sqlite"
	"github.com/mmynk/owedup/pkg/api"
	"github.com/mmynk/owedup/pkg/api/apiconnect"
)

const (
	testIssuer   = "https://idp.example.com"
	testAudience = "owedup-app"
	testIDPKey   = "idp-test-secret"
)

type testEnv struct {
	auth     apiconnect.AuthServiceClient
	expenses apiconnect.ExpenseServiceClient
	registry *prometheus.Registry
}

// setupTestServer creates a test server with both services behind the real
// auth interceptor, backed by a temp SQLite database.
func setupTestServer(t *testing.T) *testEnv {
	t.Helper()
	return setupTestServerWithTTL(t, time.Hour)
}

// setupTestServerWithTTL is setupTestServer with a custom session lifetime.
func setupTestServerWithTTL(t *testing.T, ttl time.Duration) *testEnv {
	t.Helper()

	// Create temp database
	tmpFile, err := os.CreateTemp("", "test-*.db")
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	tmpFile.Close()

	store, err := sqlite.New(tmpFile.Name())
	if err != nil {
		os.Remove(tmpFile.Name())
		t.Fatalf("failed to create store: %v", err)
	}

	verifier, err := auth.NewIDTokenVerifier("google", testIssuer, testAudience, testIDPKey)
	if err != nil {
		t.Fatalf("failed to create verifier: %v", err)
	}

	registry := prometheus.NewRegistry()
	m := metrics.New(registry)
	hub := feed.NewHub()
	sessions := auth.NewSessionManager(auth.NewJWTManager("test-secret-test-secret-test-secret", ttl), store)

	authSvc := NewAuthService(AuthDeps{
		Authenticator: auth.NewPasswordAuthenticator(store),
		Federated:     auth.NewFederatedAuthenticator(store, verifier),
		Sessions:      sessions,
		Users:         store,
		Hub:           hub,
		Metrics:       m,
	})
	expenseSvc := NewExpenseService(store, sessions, hub, m)

	interceptors := connect.WithInterceptors(
		middleware.NewMetricsInterceptor(m),
		middleware.RequireAuth(sessions, apiconnect.PublicProcedures),
		middleware.NewLoggingInterceptor(),
	)
	authPath, authHandler := apiconnect.NewAuthServiceHandler(authSvc, interceptors)
	expensePath, expenseHandler := apiconnect.NewExpenseServiceHandler(expenseSvc, interceptors)

	mux := http.NewServeMux()
	mux.Handle(authPath, authHandler)
	mux.Handle(expensePath, expenseHandler)

	server := httptest.NewServer(mux)

	t.Cleanup(func() {
		server.Close()
		store.Close()
		os.Remove(tmpFile.Name())
	})

	return &testEnv{
		auth:     apiconnect.NewAuthServiceClient(server.Client(), server.URL),
		expenses: apiconnect.NewExpenseServiceClient(server.Client(), server.URL),
		registry: registry,
	}
}

// withToken builds a request carrying the bearer token.
func withToken[T any](msg *T, token string) *connect.Request[T] {
	req := connect.NewRequest(msg)
	if token != "" {
		req.Header().Set("Authorization", "Bearer "+token)
	}
	return req
}

// registerUser creates an account and returns its session token.
func registerUser(t *testing.T, env *testEnv, email string) string {
	t.Helper()
	resp, err := env.auth.Register(context.Background(), connect.NewRequest(&api.RegisterRequest{
		Email:       email,
		DisplayName: "Test User",
		Password:    "password123",
	}))
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	return resp.Msg.Token
}

func signIDToken(t *testing.T, subject, email string) string {
	t.Helper()
	claims := auth.IDTokenClaims{
		Email:         email,
		EmailVerified: true,
		Name:          "Federated User",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    testIssuer,
			Audience:  jwt.ClaimStrings{testAudience},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testIDPKey))
	if err != nil {
		t.Fatalf("failed to sign ID token: %v", err)
	}
	return token
}

// assertCode fails unless err is a Connect error with the given code.
func assertCode(t *testing.T, err error, want connect.Code) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %v error, got nil", want)
	}
	var connectErr *connect.Error
	if !errors.As(err, &connectErr) {
		t.Fatalf("expected connect.Error, got %T: %v", err, err)
	}
	if connectErr.Code() != want {
		t.Errorf("expected %v, got %v (%s)", want, connectErr.Code(), connectErr.Message())
	}
}

// loginSeries returns the value of every owedup_logins_total series, keyed
// by "provider/result".
func loginSeries(t *testing.T, env *testEnv) map[string]float64 {
	t.Helper()
	families, err := env.registry.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}
	series := make(map[string]float64)
	for _, family := range families {
		if family.GetName() != "owedup_logins_total" {
			continue
		}
		for _, metric := range family.GetMetric() {
			labels := make(map[string]string)
			for _, pair := range metric.GetLabel() {
				labels[pair.GetName()] = pair.GetValue()
			}
			series[labels["provider"]+"/"+labels["result"]] = metric.GetCounter().GetValue()
		}
	}
	return series
}
