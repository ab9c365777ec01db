// Package postgres provides a PostgreSQL-backed implementation of the
// storage.Store interface. Expense writes are announced on a NOTIFY channel
// so that every server instance can refresh its live queries.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mmynk/owedup/internal/models"
	"github.com/mmynk/owedup/internal/storage"
)

const (
	// ExpenseChannel is the NOTIFY channel carrying the owner ID of changed expenses.
	ExpenseChannel = "expense_changes"
	// SessionChannel is the NOTIFY channel carrying the ID of revoked sessions.
	SessionChannel = "session_changes"
)

var _ storage.Store = (*PostgresStore)(nil)

// PostgresStore implements storage.Store on a pgx connection pool.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// New connects to connString and runs migrations.
func New(ctx context.Context, connString string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to reach database: %w", err)
	}

	if err := runMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

// Close closes every pooled connection.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// CreateExpense inserts the expense and notifies listeners in one transaction,
// so the notification is only delivered if the row is committed.
func (s *PostgresStore) CreateExpense(ctx context.Context, expense *models.Expense) error {
	if expense.ID == "" {
		expense.ID = uuid.New().String()
	}
	if expense.CreatedAt == 0 {
		expense.CreatedAt = time.Now().Unix()
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`INSERT INTO expenses (id, name, amount, type, status, user_id, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		expense.ID, expense.Name, expense.Amount, expense.Type, string(expense.Status),
		expense.UserID, expense.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert expense: %w", err)
	}

	if _, err := tx.Exec(ctx, "SELECT pg_notify($1, $2)", ExpenseChannel, expense.UserID); err != nil {
		return fmt.Errorf("failed to notify: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// ListExpensesByUser retrieves all expenses owned by a user, newest first.
func (s *PostgresStore) ListExpensesByUser(ctx context.Context, userID string) ([]*models.Expense, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, amount, type, status, user_id, created_at
		 FROM expenses WHERE user_id = $1 ORDER BY created_at DESC, seq DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list expenses: %w", err)
	}

	expenses, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*models.Expense, error) {
		e := &models.Expense{}
		var status string
		if err := row.Scan(&e.ID, &e.Name, &e.Amount, &e.Type, &status, &e.UserID, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Status = models.Status(status)
		return e, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan expenses: %w", err)
	}

	return expenses, nil
}

// Listen blocks on the expense and session channels and calls onChange with
// the channel name and payload of every committed notification. It returns
// when ctx is done or the listening connection fails.
func (s *PostgresStore) Listen(ctx context.Context, onChange func(channel, payload string)) error {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire listener connection: %w", err)
	}
	defer conn.Release()

	for _, channel := range []string{ExpenseChannel, SessionChannel} {
		if _, err := conn.Exec(ctx, "LISTEN "+channel); err != nil {
			return fmt.Errorf("failed to listen on %s: %w", channel, err)
		}
	}
	slog.Info("Listening for changes", "channels", []string{ExpenseChannel, SessionChannel})

	for {
		n, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("failed waiting for notification: %w", err)
		}
		onChange(n.Channel, n.Payload)
	}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func notFound(err error, what, key string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s %s: %w", what, key, storage.ErrNotFound)
	}
	return fmt.Errorf("failed to get %s: %w", what, err)
}
