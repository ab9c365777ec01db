// Package apiconnect wires the api messages to Connect handlers and clients.
package apiconnect

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"connectrpc.com/connect"
	"google.golang.org/protobuf/types/known/emptypb"

	"github.com/mmynk/owedup/pkg/api"
)

// AuthServiceName is the fully-qualified name of the AuthService service.
const AuthServiceName = "owedup.v1.AuthService"

// Procedure paths of the AuthService RPCs.
const (
	AuthServiceRegisterProcedure         = "/owedup.v1.AuthService/Register"
	AuthServiceLoginProcedure            = "/owedup.v1.AuthService/Login"
	AuthServiceLoginWithIDTokenProcedure = "/owedup.v1.AuthService/LoginWithIDToken"
	AuthServiceLogoutProcedure           = "/owedup.v1.AuthService/Logout"
	AuthServiceGetCurrentUserProcedure   = "/owedup.v1.AuthService/GetCurrentUser"
	AuthServiceWatchSessionProcedure     = "/owedup.v1.AuthService/WatchSession"
)

// PublicProcedures can be called without a session.
var PublicProcedures = map[string]bool{
	AuthServiceRegisterProcedure:         true,
	AuthServiceLoginProcedure:            true,
	AuthServiceLoginWithIDTokenProcedure: true,
}

// AuthServiceClient is a client for the owedup.v1.AuthService service.
type AuthServiceClient interface {
	Register(context.Context, *connect.Request[api.RegisterRequest]) (*connect.Response[api.RegisterResponse], error)
	Login(context.Context, *connect.Request[api.LoginRequest]) (*connect.Response[api.LoginResponse], error)
	LoginWithIDToken(context.Context, *connect.Request[api.LoginWithIDTokenRequest]) (*connect.Response[api.LoginWithIDTokenResponse], error)
	Logout(context.Context, *connect.Request[emptypb.Empty]) (*connect.Response[emptypb.Empty], error)
	GetCurrentUser(context.Context, *connect.Request[emptypb.Empty]) (*connect.Response[api.GetCurrentUserResponse], error)
	WatchSession(context.Context, *connect.Request[emptypb.Empty]) (*connect.ServerStreamForClient[api.SessionEvent], error)
}

// NewAuthServiceClient constructs a client for the owedup.v1.AuthService
// service. baseURL is the server root, e.g. http://localhost:8080.
func NewAuthServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) AuthServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = append([]connect.ClientOption{connect.WithCodec(jsonCodec{})}, opts...)
	return &authServiceClient{
		register: connect.NewClient[api.RegisterRequest, api.RegisterResponse](
			httpClient, baseURL+AuthServiceRegisterProcedure, opts...),
		login: connect.NewClient[api.LoginRequest, api.LoginResponse](
			httpClient, baseURL+AuthServiceLoginProcedure, opts...),
		loginWithIDToken: connect.NewClient[api.LoginWithIDTokenRequest, api.LoginWithIDTokenResponse](
			httpClient, baseURL+AuthServiceLoginWithIDTokenProcedure, opts...),
		logout: connect.NewClient[emptypb.Empty, emptypb.Empty](
			httpClient, baseURL+AuthServiceLogoutProcedure, opts...),
		getCurrentUser: connect.NewClient[emptypb.Empty, api.GetCurrentUserResponse](
			httpClient, baseURL+AuthServiceGetCurrentUserProcedure, opts...),
		watchSession: connect.NewClient[emptypb.Empty, api.SessionEvent](
			httpClient, baseURL+AuthServiceWatchSessionProcedure, opts...),
	}
}

type authServiceClient struct {
	register         *connect.Client[api.RegisterRequest, api.RegisterResponse]
	login            *connect.Client[api.LoginRequest, api.LoginResponse]
	loginWithIDToken *connect.Client[api.LoginWithIDTokenRequest, api.LoginWithIDTokenResponse]
	logout           *connect.Client[emptypb.Empty, emptypb.Empty]
	getCurrentUser   *connect.Client[emptypb.Empty, api.GetCurrentUserResponse]
	watchSession     *connect.Client[emptypb.Empty, api.SessionEvent]
}

func (c *authServiceClient) Register(ctx context.Context, req *connect.Request[api.RegisterRequest]) (*connect.Response[api.RegisterResponse], error) {
	return c.register.CallUnary(ctx, req)
}

func (c *authServiceClient) Login(ctx context.Context, req *connect.Request[api.LoginRequest]) (*connect.Response[api.LoginResponse], error) {
	return c.login.CallUnary(ctx, req)
}

func (c *authServiceClient) LoginWithIDToken(ctx context.Context, req *connect.Request[api.LoginWithIDTokenRequest]) (*connect.Response[api.LoginWithIDTokenResponse], error) {
	return c.loginWithIDToken.CallUnary(ctx, req)
}

func (c *authServiceClient) Logout(ctx context.Context, req *connect.Request[emptypb.Empty]) (*connect.Response[emptypb.Empty], error) {
	return c.logout.CallUnary(ctx, req)
}

func (c *authServiceClient) GetCurrentUser(ctx context.Context, req *connect.Request[emptypb.Empty]) (*connect.Response[api.GetCurrentUserResponse], error) {
	return c.getCurrentUser.CallUnary(ctx, req)
}

func (c *authServiceClient) WatchSession(ctx context.Context, req *connect.Request[emptypb.Empty]) (*connect.ServerStreamForClient[api.SessionEvent], error) {
	return c.watchSession.CallServerStream(ctx, req)
}

// AuthServiceHandler is an implementation of the owedup.v1.AuthService service.
type AuthServiceHandler interface {
	Register(context.Context, *connect.Request[api.RegisterRequest]) (*connect.Response[api.RegisterResponse], error)
	Login(context.Context, *connect.Request[api.LoginRequest]) (*connect.Response[api.LoginResponse], error)
	LoginWithIDToken(context.Context, *connect.Request[api.LoginWithIDTokenRequest]) (*connect.Response[api.LoginWithIDTokenResponse], error)
	Logout(context.Context, *connect.Request[emptypb.Empty]) (*connect.Response[emptypb.Empty], error)
	GetCurrentUser(context.Context, *connect.Request[emptypb.Empty]) (*connect.Response[api.GetCurrentUserResponse], error)
	WatchSession(context.Context, *connect.Request[emptypb.Empty], *connect.ServerStream[api.SessionEvent]) error
}

// NewAuthServiceHandler builds an HTTP handler from the service implementation.
// It returns the path on which to mount the handler and the handler itself.
func NewAuthServiceHandler(svc AuthServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{connect.WithCodec(jsonCodec{})}, opts...)

	register := connect.NewUnaryHandler(AuthServiceRegisterProcedure, svc.Register, opts...)
	login := connect.NewUnaryHandler(AuthServiceLoginProcedure, svc.Login, opts...)
	loginWithIDToken := connect.NewUnaryHandler(AuthServiceLoginWithIDTokenProcedure, svc.LoginWithIDToken, opts...)
	logout := connect.NewUnaryHandler(AuthServiceLogoutProcedure, svc.Logout, opts...)
	getCurrentUser := connect.NewUnaryHandler(AuthServiceGetCurrentUserProcedure, svc.GetCurrentUser, opts...)
	watchSession := connect.NewServerStreamHandler(AuthServiceWatchSessionProcedure, svc.WatchSession, opts...)

	return "/" + AuthServiceName + "/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case AuthServiceRegisterProcedure:
			register.ServeHTTP(w, r)
		case AuthServiceLoginProcedure:
			login.ServeHTTP(w, r)
		case AuthServiceLoginWithIDTokenProcedure:
			loginWithIDToken.ServeHTTP(w, r)
		case AuthServiceLogoutProcedure:
			logout.ServeHTTP(w, r)
		case AuthServiceGetCurrentUserProcedure:
			getCurrentUser.ServeHTTP(w, r)
		case AuthServiceWatchSessionProcedure:
			watchSession.ServeHTTP(w, r)
		default:
			http.NotFound(w, r)
		}
	})
}

// UnimplementedAuthServiceHandler returns CodeUnimplemented from all methods.
type UnimplementedAuthServiceHandler struct{}

func (UnimplementedAuthServiceHandler) Register(context.Context, *connect.Request[api.RegisterRequest]) (*connect.Response[api.RegisterResponse], error) {
	return nil, connect.NewError(connect.CodeUnimplemented, errors.New("owedup.v1.AuthService.Register is not implemented"))
}

func (UnimplementedAuthServiceHandler) Login(context.Context, *connect.Request[api.LoginRequest]) (*connect.Response[api.LoginResponse], error) {
	return nil, connect.NewError(connect.CodeUnimplemented, errors.New("owedup.v1.AuthService.Login is not implemented"))
}

func (UnimplementedAuthServiceHandler) LoginWithIDToken(context.Context, *connect.Request[api.LoginWithIDTokenRequest]) (*connect.Response[api.LoginWithIDTokenResponse], error) {
	return nil, connect.NewError(connect.CodeUnimplemented, errors.New("owedup.v1.AuthService.LoginWithIDToken is not implemented"))
}

func (UnimplementedAuthServiceHandler) Logout(context.Context, *connect.Request[emptypb.Empty]) (*connect.Response[emptypb.Empty], error) {
	return nil, connect.NewError(connect.CodeUnimplemented, errors.New("owedup.v1.AuthService.Logout is not implemented"))
}

func (UnimplementedAuthServiceHandler) GetCurrentUser(context.Context, *connect.Request[emptypb.Empty]) (*connect.Response[api.GetCurrentUserResponse], error) {
	return nil, connect.NewError(connect.CodeUnimplemented, errors.New("owedup.v1.AuthService.GetCurrentUser is not implemented"))
}

func (UnimplementedAuthServiceHandler) WatchSession(context.Context, *connect.Request[emptypb.Empty], *connect.ServerStream[api.SessionEvent]) error {
	return connect.NewError(connect.CodeUnimplemented, errors.New("owedup.v1.AuthService.WatchSession is not implemented"))
}
