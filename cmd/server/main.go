package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"connectrpc.com/connect"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/mmynk/owedup/internal/auth"
	"github.com/mmynk/owedup/internal/config"
	"github.com/mmynk/owedup/internal/feed"
	"github.com/mmynk/owedup/internal/metrics"
	"github.com/mmynk/owedup/internal/middleware"
	"github.com/mmynk/owedup/internal/service"
	"github.com/mmynk/owedup/internal/storage"
	"github.com/mmynk/owedup/internal/storage/postgres"
	"github.com/mmynk/owedup/internal/storage/sqlite"
	"github.com/mmynk/owedup/pkg/api/apiconnect"
	"github.com/mmynk/owedup/pkg/logging"
)

func main() {
	cfg, err := config.Load(".env")
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}
	logging.Setup(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	hub := feed.NewHub()
	hub.OnChange = func(active int) { m.LiveQueries.Set(float64(active)) }

	store, err := openStore(ctx, cfg, hub)
	if err != nil {
		return err
	}
	defer store.Close()

	sessions := auth.NewSessionManager(auth.NewJWTManager(cfg.JWTSecret, cfg.TokenTTL), store)

	var federated *auth.FederatedAuthenticator
	if cfg.FederatedEnabled() {
		verifier, err := auth.NewIDTokenVerifier(cfg.FederatedProvider, cfg.FederatedIssuer, cfg.FederatedAudience, cfg.FederatedKey)
		if err != nil {
			return fmt.Errorf("failed to configure federated sign-in: %w", err)
		}
		federated = auth.NewFederatedAuthenticator(store, verifier)
		slog.Info("Federated sign-in enabled", "provider", cfg.FederatedProvider, "issuer", cfg.FederatedIssuer)
	}

	authSvc := service.NewAuthService(service.AuthDeps{
		Authenticator: auth.NewPasswordAuthenticator(store),
		Federated:     federated,
		Sessions:      sessions,
		Users:         store,
		Hub:           hub,
		Metrics:       m,
		Logger:        slog.Default(),
	})
	expenseSvc := service.NewExpenseService(store, sessions, hub, m)

	// Auth runs before logging so log lines carry the user ID.
	interceptors := connect.WithInterceptors(
		middleware.NewMetricsInterceptor(m),
		middleware.RequireAuth(sessions, apiconnect.PublicProcedures),
		middleware.NewLoggingInterceptor(),
	)

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSOrigins,
		AllowedMethods: []string{"POST", "GET", "OPTIONS"},
		AllowedHeaders: []string{"Authorization", "Content-Type", "Connect-Protocol-Version", "Connect-Timeout-Ms"},
		ExposedHeaders: []string{"Connect-Protocol-Version", "Connect-Timeout-Ms"},
		MaxAge:         300,
	}))

	authPath, authHandler := apiconnect.NewAuthServiceHandler(authSvc, interceptors)
	r.Mount(authPath, authHandler)
	expensePath, expenseHandler := apiconnect.NewExpenseServiceHandler(expenseSvc, interceptors)
	r.Mount(expensePath, expenseHandler)

	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	// Wrap with h2c for HTTP/2 without TLS (streams stay open over one connection)
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           h2c.NewHandler(r, &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Connect server starting", "address", server.Addr, "url", fmt.Sprintf("http://localhost%s", server.Addr))
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// openStore picks Postgres when DATABASE_URL is set, SQLite otherwise.
// With Postgres, expense writes and logouts made on other instances reach
// this instance's live queries through LISTEN/NOTIFY.
func openStore(ctx context.Context, cfg *config.Config, hub *feed.Hub) (storage.Store, error) {
	if cfg.DatabaseURL == "" {
		store, err := sqlite.New(cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize storage: %w", err)
		}
		slog.Info("Storage initialized", "driver", "sqlite", "database", cfg.DBPath)
		return store, nil
	}

	store, err := postgres.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	slog.Info("Storage initialized", "driver", "postgres")

	go func() {
		err := store.Listen(ctx, func(channel, payload string) {
			switch channel {
			case postgres.ExpenseChannel:
				hub.Publish(service.ExpenseTopic(payload))
			case postgres.SessionChannel:
				hub.Publish(service.SessionTopic(payload))
			}
		})
		if err != nil {
			slog.Error("Change listener stopped", "error", err)
		}
	}()

	return store, nil
}
