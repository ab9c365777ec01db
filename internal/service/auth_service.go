package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"connectrpc.com/connect"
	"google.golang.org/protobuf/types/known/emptypb"

	"github.com/mmynk/owedup/internal/auth"
	"github.com/mmynk/owedup/internal/feed"
	"github.com/mmynk/owedup/internal/metrics"
	"github.com/mmynk/owedup/internal/middleware"
	"github.com/mmynk/owedup/internal/models"
	"github.com/mmynk/owedup/internal/storage"
	"github.com/mmynk/owedup/pkg/api"
	"github.com/mmynk/owedup/pkg/api/apiconnect"
)

// unknownProviderLabel is the login metric label for providers with no verifier.
const unknownProviderLabel = "unknown"

var (
	errMissingIDToken      = errors.New("could not get ID token from identity provider")
	errFederatedDisabled   = errors.New("federated sign-in is not configured")
	errMissingLoginDetails = errors.New("please enter both email and password")
)

// AuthDeps are the collaborators of AuthService.
type AuthDeps struct {
	Authenticator auth.Authenticator
	// Federated may be nil when no identity provider is configured.
	Federated *auth.FederatedAuthenticator
	Sessions  *auth.SessionManager
	Users     storage.UserStore
	Hub       *feed.Hub
	Metrics   *metrics.Metrics
	Logger    *slog.Logger
}

// AuthService implements the AuthService RPC interface.
type AuthService struct {
	apiconnect.UnimplementedAuthServiceHandler
	authenticator auth.Authenticator
	federated     *auth.FederatedAuthenticator
	sessions      *auth.SessionManager
	users         storage.UserStore
	hub           *feed.Hub
	metrics       *metrics.Metrics
	logger        *slog.Logger
}

// NewAuthService creates a new authentication service.
func NewAuthService(deps AuthDeps) *AuthService {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthService{
		authenticator: deps.Authenticator,
		federated:     deps.Federated,
		sessions:      deps.Sessions,
		users:         deps.Users,
		hub:           deps.Hub,
		metrics:       deps.Metrics,
		logger:        logger,
	}
}

// Register creates a new user account and signs it in.
func (s *AuthService) Register(ctx context.Context, req *connect.Request[api.RegisterRequest]) (*connect.Response[api.RegisterResponse], error) {
	s.logger.Info("Register request", "email", req.Msg.Email)

	if strings.TrimSpace(req.Msg.Email) == "" || strings.TrimSpace(req.Msg.DisplayName) == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("email and display name are required"))
	}

	user, err := s.authenticator.Register(ctx, req.Msg.Email, strings.TrimSpace(req.Msg.DisplayName), req.Msg.Password)
	if err != nil {
		s.logger.Error("Registration failed", "email", req.Msg.Email, "error", err)
		if errors.Is(err, auth.ErrEmailExists) {
			return nil, connect.NewError(connect.CodeAlreadyExists, err)
		}
		if errors.Is(err, auth.ErrWeakPassword) {
			return nil, connect.NewError(connect.CodeInvalidArgument, err)
		}
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	token, err := s.startSession(ctx, user, models.ProviderPassword)
	if err != nil {
		return nil, err
	}

	s.logger.Info("User registered successfully", "user_id", user.ID, "email", user.Email)
	return connect.NewResponse(&api.RegisterResponse{User: toAPIUser(user), Token: token}), nil
}

// Login authenticates a user by email and password and returns a session token.
func (s *AuthService) Login(ctx context.Context, req *connect.Request[api.LoginRequest]) (*connect.Response[api.LoginResponse], error) {
	s.logger.Info("Login request", "email", req.Msg.Email)

	if req.Msg.Email == "" || req.Msg.Password == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, errMissingLoginDetails)
	}

	user, err := s.authenticator.Authenticate(ctx, req.Msg.Email, req.Msg.Password)
	if err != nil {
		s.logger.Warn("Login failed", "email", req.Msg.Email, "error", err)
		s.metrics.Logins.WithLabelValues(models.ProviderPassword, "failed").Inc()
		return nil, connect.NewError(connect.CodeUnauthenticated, auth.ErrInvalidCredentials)
	}

	token, err := s.startSession(ctx, user, models.ProviderPassword)
	if err != nil {
		return nil, err
	}

	s.metrics.Logins.WithLabelValues(models.ProviderPassword, "ok").Inc()
	s.logger.Info("User logged in successfully", "user_id", user.ID, "email", user.Email)
	return connect.NewResponse(&api.LoginResponse{User: toAPIUser(user), Token: token}), nil
}

// LoginWithIDToken exchanges a federated identity token for a session.
func (s *AuthService) LoginWithIDToken(ctx context.Context, req *connect.Request[api.LoginWithIDTokenRequest]) (*connect.Response[api.LoginWithIDTokenResponse], error) {
	provider := req.Msg.Provider
	s.logger.Info("LoginWithIDToken request", "provider", provider)

	if s.federated == nil {
		return nil, connect.NewError(connect.CodeFailedPrecondition, errFederatedDisabled)
	}
	if req.Msg.IDToken == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, errMissingIDToken)
	}

	user, err := s.federated.Authenticate(ctx, provider, req.Msg.IDToken)
	if err != nil {
		s.logger.Warn("Federated login failed", "provider", provider, "error", err)
		switch {
		case errors.Is(err, auth.ErrUnknownProvider):
			// The provider name comes from the caller; keep it out of the labels.
			s.metrics.Logins.WithLabelValues(unknownProviderLabel, "failed").Inc()
			return nil, connect.NewError(connect.CodeInvalidArgument, err)
		case errors.Is(err, auth.ErrInvalidIDToken):
			s.metrics.Logins.WithLabelValues(provider, "failed").Inc()
			return nil, connect.NewError(connect.CodeUnauthenticated, err)
		default:
			s.metrics.Logins.WithLabelValues(provider, "failed").Inc()
			return nil, connect.NewError(connect.CodeInternal, err)
		}
	}

	token, err := s.startSession(ctx, user, provider)
	if err != nil {
		return nil, err
	}

	s.metrics.Logins.WithLabelValues(provider, "ok").Inc()
	s.logger.Info("Federated sign-in complete", "user_id", user.ID, "email", user.Email, "provider", provider)
	return connect.NewResponse(&api.LoginWithIDTokenResponse{User: toAPIUser(user), Token: token}), nil
}

// Logout revokes the caller's session. Every live stream opened with it ends.
func (s *AuthService) Logout(ctx context.Context, req *connect.Request[emptypb.Empty]) (*connect.Response[emptypb.Empty], error) {
	sessionID := middleware.GetSessionID(ctx)
	if sessionID == "" {
		return nil, connect.NewError(connect.CodeUnauthenticated, auth.ErrMissingToken)
	}

	if err := s.sessions.Revoke(ctx, sessionID); err != nil {
		s.logger.Error("Logout failed", "session_id", sessionID, "error", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	s.hub.Publish(SessionTopic(sessionID))

	s.logger.Info("User logged out", "user_id", middleware.GetUserID(ctx), "session_id", sessionID)
	return connect.NewResponse(&emptypb.Empty{}), nil
}

// GetCurrentUser returns the currently authenticated user's information.
func (s *AuthService) GetCurrentUser(ctx context.Context, req *connect.Request[emptypb.Empty]) (*connect.Response[api.GetCurrentUserResponse], error) {
	userID := middleware.GetUserID(ctx)
	if userID == "" {
		return nil, connect.NewError(connect.CodeUnauthenticated, auth.ErrMissingToken)
	}

	user, err := s.users.GetUserByID(ctx, userID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, connect.NewError(connect.CodeUnauthenticated, auth.ErrInvalidToken)
	}
	if err != nil {
		s.logger.Error("GetCurrentUser failed", "user_id", userID, "error", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	return connect.NewResponse(&api.GetCurrentUserResponse{User: toAPIUser(user)}), nil
}

// WatchSession streams auth state for the caller's session: signed_in first,
// then a single signed_out when the session is revoked or expires.
func (s *AuthService) WatchSession(ctx context.Context, req *connect.Request[emptypb.Empty], stream *connect.ServerStream[api.SessionEvent]) error {
	userID := middleware.GetUserID(ctx)
	sessionID := middleware.GetSessionID(ctx)
	if sessionID == "" {
		return connect.NewError(connect.CodeUnauthenticated, auth.ErrMissingToken)
	}

	// Subscribe before reading state so a logout in between is not missed.
	sub := s.hub.Subscribe(SessionTopic(sessionID))
	defer sub.Close()

	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return connect.NewError(connect.CodeInternal, err)
	}
	session, err := s.sessions.Session(ctx, sessionID)
	if err != nil {
		return connect.NewError(connect.CodeInternal, err)
	}

	if session.RevokedAt != 0 {
		return stream.Send(&api.SessionEvent{State: api.SessionSignedOut, Reason: "logout"})
	}
	if err := stream.Send(&api.SessionEvent{State: api.SessionSignedIn, User: toAPIUser(user)}); err != nil {
		return err
	}

	expiry := time.NewTimer(time.Until(time.Unix(session.ExpiresAt, 0)))
	defer expiry.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-expiry.C:
			return stream.Send(&api.SessionEvent{State: api.SessionSignedOut, Reason: "expired"})
		case <-sub.C():
			session, err := s.sessions.Session(ctx, sessionID)
			if err != nil {
				return connect.NewError(connect.CodeInternal, err)
			}
			if session.RevokedAt != 0 {
				return stream.Send(&api.SessionEvent{State: api.SessionSignedOut, Reason: "logout"})
			}
		}
	}
}

func (s *AuthService) startSession(ctx context.Context, user *models.User, provider string) (string, error) {
	token, _, err := s.sessions.Issue(ctx, user, provider)
	if err != nil {
		s.logger.Error("Failed to start session", "user_id", user.ID, "error", err)
		return "", connect.NewError(connect.CodeInternal, err)
	}
	return token, nil
}
