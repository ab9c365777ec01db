package middleware

import (
	"context"
	"errors"
	"testing"

	"connectrpc.com/connect"
	"github.com/golang-jwt/jwt/v5"
	"google.golang.org/protobuf/types/known/emptypb"

	"github.com/mmynk/owedup/internal/auth"
)

type fakeVerifier struct {
	claims *auth.Claims
	err    error
}

func (f fakeVerifier) Verify(ctx context.Context, token string) (*auth.Claims, error) {
	if token != "good" {
		return nil, auth.ErrInvalidToken
	}
	return f.claims, f.err
}

func TestRequireAuth_Unary(t *testing.T) {
	claims := &auth.Claims{
		UserID:           "user-1",
		Email:            "alice@example.com",
		RegisteredClaims: jwt.RegisteredClaims{ID: "session-1"},
	}

	tests := []struct {
		name     string
		header   string
		verifier fakeVerifier
		wantCode connect.Code
	}{
		{name: "valid token", header: "Bearer good", verifier: fakeVerifier{claims: claims}},
		{name: "lowercase scheme", header: "bearer good", verifier: fakeVerifier{claims: claims}},
		{name: "missing header", header: "", wantCode: connect.CodeUnauthenticated},
		{name: "wrong scheme", header: "Basic good", wantCode: connect.CodeUnauthenticated},
		{name: "bad token", header: "Bearer bad", wantCode: connect.CodeUnauthenticated},
		{name: "ended session", header: "Bearer good", verifier: fakeVerifier{err: auth.ErrSessionEnded}, wantCode: connect.CodeUnauthenticated},
		{name: "store failure", header: "Bearer good", verifier: fakeVerifier{err: errors.New("disk on fire")}, wantCode: connect.CodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotUser, gotSession string
			next := func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
				gotUser = GetUserID(ctx)
				gotSession = GetSessionID(ctx)
				return connect.NewResponse(&emptypb.Empty{}), nil
			}

			req := connect.NewRequest(&emptypb.Empty{})
			if tt.header != "" {
				req.Header().Set("Authorization", tt.header)
			}

			_, err := RequireAuth(tt.verifier, nil).WrapUnary(next)(context.Background(), req)
			if tt.wantCode != 0 {
				if connect.CodeOf(err) != tt.wantCode {
					t.Fatalf("Expected %v, got %v", tt.wantCode, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if gotUser != "user-1" || gotSession != "session-1" {
				t.Errorf("Context carried user=%q session=%q", gotUser, gotSession)
			}
		})
	}
}
