package sqlite

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mmynk/owedup/internal/models"
	"github.com/mmynk/owedup/internal/storage"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	tempDir, err := os.MkdirTemp("", "owedup-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(tempDir) })

	store, err := New(filepath.Join(tempDir, "test.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	return store
}

func TestExpenses(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	t.Run("CreateExpense generates ID and timestamp", func(t *testing.T) {
		expense := &models.Expense{
			Name:   "Coffee",
			Amount: 4.5,
			Type:   models.DefaultExpenseType,
			Status: models.StatusOwed,
			UserID: "user-a",
		}

		if err := store.CreateExpense(ctx, expense); err != nil {
			t.Fatalf("CreateExpense failed: %v", err)
		}

		if expense.ID == "" {
			t.Error("Expected expense ID to be generated")
		}
		if expense.CreatedAt == 0 {
			t.Error("Expected CreatedAt to be set")
		}
	})

	t.Run("ListExpensesByUser filters by owner", func(t *testing.T) {
		for _, e := range []*models.Expense{
			{Name: "Lunch", Amount: 12, Type: "group", Status: models.StatusOwe, UserID: "user-b"},
			{Name: "Taxi", Amount: 30, Type: "group", Status: models.StatusSplit, UserID: "user-b"},
			{Name: "Movie", Amount: 9, Type: "group", Status: models.StatusOwed, UserID: "user-c"},
		} {
			if err := store.CreateExpense(ctx, e); err != nil {
				t.Fatalf("CreateExpense failed: %v", err)
			}
		}

		got, err := store.ListExpensesByUser(ctx, "user-b")
		if err != nil {
			t.Fatalf("ListExpensesByUser failed: %v", err)
		}
		if len(got) != 2 {
			t.Fatalf("Expected 2 expenses for user-b, got %d", len(got))
		}
		for _, e := range got {
			if e.UserID != "user-b" {
				t.Errorf("Expense %s belongs to %s, want user-b", e.ID, e.UserID)
			}
			if !e.Status.Valid() {
				t.Errorf("Expense %s has invalid status %q", e.ID, e.Status)
			}
		}
	})

	t.Run("ListExpensesByUser returns newest first", func(t *testing.T) {
		old := &models.Expense{Name: "Old", Amount: 1, Type: "group", Status: models.StatusOwed, UserID: "user-d", CreatedAt: 100}
		recent := &models.Expense{Name: "Recent", Amount: 2, Type: "group", Status: models.StatusOwed, UserID: "user-d", CreatedAt: 200}
		store.CreateExpense(ctx, old)
		store.CreateExpense(ctx, recent)

		got, err := store.ListExpensesByUser(ctx, "user-d")
		if err != nil {
			t.Fatalf("ListExpensesByUser failed: %v", err)
		}
		if len(got) != 2 || got[0].Name != "Recent" || got[1].Name != "Old" {
			t.Errorf("Unexpected order: %+v", got)
		}
	})

	t.Run("ListExpensesByUser with no expenses", func(t *testing.T) {
		got, err := store.ListExpensesByUser(ctx, "nobody")
		if err != nil {
			t.Fatalf("ListExpensesByUser failed: %v", err)
		}
		if len(got) != 0 {
			t.Errorf("Expected 0 expenses, got %d", len(got))
		}
	})

	t.Run("CreateExpense rejects unknown status", func(t *testing.T) {
		err := store.CreateExpense(ctx, &models.Expense{Name: "Bad", Amount: 1, Type: "group", Status: "paid", UserID: "user-a"})
		if err == nil {
			t.Error("Expected error for invalid status, got nil")
		}
	})
}

func TestUsers(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	user := models.NewUser("alice@example.com", "Alice", "hash")
	if err := store.CreateUser(ctx, user); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}

	t.Run("GetUserByEmail", func(t *testing.T) {
		got, err := store.GetUserByEmail(ctx, "alice@example.com")
		if err != nil {
			t.Fatalf("GetUserByEmail failed: %v", err)
		}
		if got.ID != user.ID || got.DisplayName != "Alice" {
			t.Errorf("Unexpected user: %+v", got)
		}
	})

	t.Run("GetUserByID not found", func(t *testing.T) {
		_, err := store.GetUserByID(ctx, "missing")
		if !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("Expected ErrNotFound, got %v", err)
		}
	})

	t.Run("CreateUser duplicate email", func(t *testing.T) {
		err := store.CreateUser(ctx, models.NewUser("alice@example.com", "Other", ""))
		if !errors.Is(err, storage.ErrConflict) {
			t.Errorf("Expected ErrConflict, got %v", err)
		}
	})

	t.Run("LinkIdentity and GetUserByIdentity", func(t *testing.T) {
		if err := store.LinkIdentity(ctx, &models.Identity{Provider: "google", Subject: "sub-1", UserID: user.ID}); err != nil {
			t.Fatalf("LinkIdentity failed: %v", err)
		}

		got, err := store.GetUserByIdentity(ctx, "google", "sub-1")
		if err != nil {
			t.Fatalf("GetUserByIdentity failed: %v", err)
		}
		if got.ID != user.ID {
			t.Errorf("Linked user = %s, want %s", got.ID, user.ID)
		}

		_, err = store.GetUserByIdentity(ctx, "google", "sub-2")
		if !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("Expected ErrNotFound, got %v", err)
		}
	})
}

func TestSessions(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	user := models.NewUser("bob@example.com", "Bob", "hash")
	if err := store.CreateUser(ctx, user); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}

	now := time.Now()
	session := &models.Session{
		UserID:    user.ID,
		Provider:  models.ProviderPassword,
		CreatedAt: now.Unix(),
		ExpiresAt: now.Add(time.Hour).Unix(),
	}
	if err := store.CreateSession(ctx, session); err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	got, err := store.GetSession(ctx, session.ID)
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if !got.Active(now) {
		t.Error("Expected new session to be active")
	}

	if err := store.RevokeSession(ctx, session.ID, now.Unix()); err != nil {
		t.Fatalf("RevokeSession failed: %v", err)
	}
	// A second revoke keeps the first timestamp.
	if err := store.RevokeSession(ctx, session.ID, now.Unix()+60); err != nil {
		t.Fatalf("RevokeSession (again) failed: %v", err)
	}

	got, err = store.GetSession(ctx, session.ID)
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if got.Active(now) {
		t.Error("Expected revoked session to be inactive")
	}
	if got.RevokedAt != now.Unix() {
		t.Errorf("RevokedAt = %d, want %d", got.RevokedAt, now.Unix())
	}

	if err := store.RevokeSession(ctx, "missing", now.Unix()); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}
