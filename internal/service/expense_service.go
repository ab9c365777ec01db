package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	"connectrpc.com/connect"
	"google.golang.org/protobuf/types/known/emptypb"

	"github.com/mmynk/owedup/internal/auth"
	"github.com/mmynk/owedup/internal/calculator"
	"github.com/mmynk/owedup/internal/feed"
	"github.com/mmynk/owedup/internal/metrics"
	"github.com/mmynk/owedup/internal/middleware"
	"github.com/mmynk/owedup/internal/models"
	"github.com/mmynk/owedup/internal/storage"
	"github.com/mmynk/owedup/pkg/api"
	"github.com/mmynk/owedup/pkg/api/apiconnect"
)

// ErrMissingFields is returned when the add-expense form is incomplete.
var ErrMissingFields = errors.New("please enter both name and amount")

// SessionLookup loads a session by ID. auth.SessionManager implements it.
type SessionLookup interface {
	Session(ctx context.Context, sessionID string) (*models.Session, error)
}

// ExpenseService implements the Connect ExpenseService.
type ExpenseService struct {
	apiconnect.UnimplementedExpenseServiceHandler
	store    storage.ExpenseStore
	sessions SessionLookup
	hub      *feed.Hub
	metrics  *metrics.Metrics
}

// NewExpenseService creates a new ExpenseService with the given storage backend.
func NewExpenseService(store storage.ExpenseStore, sessions SessionLookup, hub *feed.Hub, m *metrics.Metrics) *ExpenseService {
	return &ExpenseService{store: store, sessions: sessions, hub: hub, metrics: m}
}

// parseAmount converts the amount field to a number.
// Only finite decimal numbers within MaxAmount are accepted.
func parseAmount(raw string) (float64, error) {
	amount, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(amount) || math.IsInf(amount, 0) {
		return 0, fmt.Errorf("amount %q is not a number", raw)
	}
	if math.Abs(amount) > models.MaxAmount {
		return 0, fmt.Errorf("amount %q is too large", raw)
	}
	return amount, nil
}

// AddExpense validates the form and writes exactly one expense owned by the caller.
func (s *ExpenseService) AddExpense(ctx context.Context, req *connect.Request[api.AddExpenseRequest]) (*connect.Response[api.AddExpenseResponse], error) {
	userID := middleware.GetUserID(ctx)
	if userID == "" {
		return nil, connect.NewError(connect.CodeUnauthenticated, auth.ErrMissingToken)
	}

	slog.Info("AddExpense request received",
		"user_id", userID,
		"name", req.Msg.Name,
		"amount", req.Msg.Amount,
	)

	name := strings.TrimSpace(req.Msg.Name)
	if name == "" || req.Msg.Amount == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, ErrMissingFields)
	}

	amount, err := parseAmount(req.Msg.Amount)
	if err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}

	status, err := models.ParseStatus(req.Msg.Status)
	if err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}

	expenseType := strings.TrimSpace(req.Msg.Type)
	if expenseType == "" {
		expenseType = models.DefaultExpenseType
	}

	expense := &models.Expense{
		Name:   name,
		Amount: amount,
		Type:   expenseType,
		Status: status,
		UserID: userID,
	}

	// Save to storage (generates ID and CreatedAt)
	if err := s.store.CreateExpense(ctx, expense); err != nil {
		slog.Error("AddExpense failed", "user_id", userID, "error", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	s.metrics.ExpensesCreated.Inc()
	s.hub.Publish(ExpenseTopic(userID))

	slog.Info("Expense created", "expense_id", expense.ID, "user_id", userID)

	return connect.NewResponse(&api.AddExpenseResponse{Expense: toAPIExpense(expense)}), nil
}

// ListExpenses returns the caller's current expenses and totals.
func (s *ExpenseService) ListExpenses(ctx context.Context, req *connect.Request[emptypb.Empty]) (*connect.Response[api.ExpenseSnapshot], error) {
	userID := middleware.GetUserID(ctx)
	if userID == "" {
		return nil, connect.NewError(connect.CodeUnauthenticated, auth.ErrMissingToken)
	}

	snapshot, err := s.snapshot(ctx, userID)
	if err != nil {
		slog.Error("ListExpenses failed", "user_id", userID, "error", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	slog.Info("ListExpenses successful", "user_id", userID, "count", len(snapshot.Expenses))
	return connect.NewResponse(snapshot), nil
}

// GetSummary returns only the caller's totals.
func (s *ExpenseService) GetSummary(ctx context.Context, req *connect.Request[emptypb.Empty]) (*connect.Response[api.Summary], error) {
	userID := middleware.GetUserID(ctx)
	if userID == "" {
		return nil, connect.NewError(connect.CodeUnauthenticated, auth.ErrMissingToken)
	}

	snapshot, err := s.snapshot(ctx, userID)
	if err != nil {
		slog.Error("GetSummary failed", "user_id", userID, "error", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	return connect.NewResponse(snapshot.Summary), nil
}

// WatchExpenses is the live query behind the groups screen. It sends the
// full snapshot right away and again after every change to the caller's
// expenses. The stream ends when the client goes away or the session is
// revoked or expires.
func (s *ExpenseService) WatchExpenses(ctx context.Context, req *connect.Request[emptypb.Empty], stream *connect.ServerStream[api.ExpenseSnapshot]) error {
	userID := middleware.GetUserID(ctx)
	sessionID := middleware.GetSessionID(ctx)
	if userID == "" || sessionID == "" {
		return connect.NewError(connect.CodeUnauthenticated, auth.ErrMissingToken)
	}

	// Subscribe first: a write landing between the initial read and the
	// subscription would otherwise never be sent.
	changes := s.hub.Subscribe(ExpenseTopic(userID))
	defer changes.Close()
	sessionChanges := s.hub.Subscribe(SessionTopic(sessionID))
	defer sessionChanges.Close()

	send := func() error {
		snapshot, err := s.snapshot(ctx, userID)
		if err != nil {
			slog.Error("WatchExpenses snapshot failed", "user_id", userID, "error", err)
			return connect.NewError(connect.CodeInternal, err)
		}
		slog.Debug("Sending expense snapshot", "user_id", userID, "count", len(snapshot.Expenses))
		return stream.Send(snapshot)
	}

	session, err := s.sessions.Session(ctx, sessionID)
	if err != nil {
		return connect.NewError(connect.CodeInternal, err)
	}
	expiry := time.NewTimer(time.Until(time.Unix(session.ExpiresAt, 0)))
	defer expiry.Stop()

	if err := send(); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-expiry.C:
			return connect.NewError(connect.CodeUnauthenticated, auth.ErrSessionEnded)
		case <-changes.C():
			if err := send(); err != nil {
				return err
			}
		case <-sessionChanges.C():
			session, err := s.sessions.Session(ctx, sessionID)
			if err != nil {
				return connect.NewError(connect.CodeInternal, err)
			}
			if !session.Active(time.Now()) {
				return connect.NewError(connect.CodeUnauthenticated, auth.ErrSessionEnded)
			}
		}
	}
}

func (s *ExpenseService) snapshot(ctx context.Context, userID string) (*api.ExpenseSnapshot, error) {
	expenses, err := s.store.ListExpensesByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	summary, err := calculator.Summarize(expenses)
	if err != nil {
		return nil, err
	}

	out := make([]*api.Expense, len(expenses))
	for i, e := range expenses {
		out[i] = toAPIExpense(e)
	}

	return &api.ExpenseSnapshot{
		Expenses: out,
		Summary:  toAPISummary(summary),
	}, nil
}
