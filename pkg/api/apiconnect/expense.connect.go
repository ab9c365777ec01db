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

// ExpenseServiceName is the fully-qualified name of the ExpenseService service.
const ExpenseServiceName = "owedup.v1.ExpenseService"

// Procedure paths of the ExpenseService RPCs.
const (
	ExpenseServiceAddExpenseProcedure    = "/owedup.v1.ExpenseService/AddExpense"
	ExpenseServiceListExpensesProcedure  = "/owedup.v1.ExpenseService/ListExpenses"
	ExpenseServiceGetSummaryProcedure    = "/owedup.v1.ExpenseService/GetSummary"
	ExpenseServiceWatchExpensesProcedure = "/owedup.v1.ExpenseService/WatchExpenses"
)

// ExpenseServiceClient is a client for the owedup.v1.ExpenseService service.
type ExpenseServiceClient interface {
	AddExpense(context.Context, *connect.Request[api.AddExpenseRequest]) (*connect.Response[api.AddExpenseResponse], error)
	ListExpenses(context.Context, *connect.Request[emptypb.Empty]) (*connect.Response[api.ExpenseSnapshot], error)
	GetSummary(context.Context, *connect.Request[emptypb.Empty]) (*connect.Response[api.Summary], error)
	WatchExpenses(context.Context, *connect.Request[emptypb.Empty]) (*connect.ServerStreamForClient[api.ExpenseSnapshot], error)
}

// NewExpenseServiceClient constructs a client for the owedup.v1.ExpenseService service.
func NewExpenseServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) ExpenseServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = append([]connect.ClientOption{connect.WithCodec(jsonCodec{})}, opts...)
	return &expenseServiceClient{
		addExpense: connect.NewClient[api.AddExpenseRequest, api.AddExpenseResponse](
			httpClient, baseURL+ExpenseServiceAddExpenseProcedure, opts...),
		listExpenses: connect.NewClient[emptypb.Empty, api.ExpenseSnapshot](
			httpClient, baseURL+ExpenseServiceListExpensesProcedure, opts...),
		getSummary: connect.NewClient[emptypb.Empty, api.Summary](
			httpClient, baseURL+ExpenseServiceGetSummaryProcedure, opts...),
		watchExpenses: connect.NewClient[emptypb.Empty, api.ExpenseSnapshot](
			httpClient, baseURL+ExpenseServiceWatchExpensesProcedure, opts...),
	}
}

type expenseServiceClient struct {
	addExpense    *connect.Client[api.AddExpenseRequest, api.AddExpenseResponse]
	listExpenses  *connect.Client[emptypb.Empty, api.ExpenseSnapshot]
	getSummary    *connect.Client[emptypb.Empty, api.Summary]
	watchExpenses *connect.Client[emptypb.Empty, api.ExpenseSnapshot]
}

func (c *expenseServiceClient) AddExpense(ctx context.Context, req *connect.Request[api.AddExpenseRequest]) (*connect.Response[api.AddExpenseResponse], error) {
	return c.addExpense.CallUnary(ctx, req)
}

func (c *expenseServiceClient) ListExpenses(ctx context.Context, req *connect.Request[emptypb.Empty]) (*connect.Response[api.ExpenseSnapshot], error) {
	return c.listExpenses.CallUnary(ctx, req)
}

func (c *expenseServiceClient) GetSummary(ctx context.Context, req *connect.Request[emptypb.Empty]) (*connect.Response[api.Summary], error) {
	return c.getSummary.CallUnary(ctx, req)
}

func (c *expenseServiceClient) WatchExpenses(ctx context.Context, req *connect.Request[emptypb.Empty]) (*connect.ServerStreamForClient[api.ExpenseSnapshot], error) {
	return c.watchExpenses.CallServerStream(ctx, req)
}

// ExpenseServiceHandler is an implementation of the owedup.v1.ExpenseService service.
type ExpenseServiceHandler interface {
	AddExpense(context.Context, *connect.Request[api.AddExpenseRequest]) (*connect.Response[api.AddExpenseResponse], error)
	ListExpenses(context.Context, *connect.Request[emptypb.Empty]) (*connect.Response[api.ExpenseSnapshot], error)
	GetSummary(context.Context, *connect.Request[emptypb.Empty]) (*connect.Response[api.Summary], error)
	WatchExpenses(context.Context, *connect.Request[emptypb.Empty], *connect.ServerStream[api.ExpenseSnapshot]) error
}

// NewExpenseServiceHandler builds an HTTP handler from the service implementation.
func NewExpenseServiceHandler(svc ExpenseServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{connect.WithCodec(jsonCodec{})}, opts...)

	addExpense := connect.NewUnaryHandler(ExpenseServiceAddExpenseProcedure, svc.AddExpense, opts...)
	listExpenses := connect.NewUnaryHandler(ExpenseServiceListExpensesProcedure, svc.ListExpenses, opts...)
	getSummary := connect.NewUnaryHandler(ExpenseServiceGetSummaryProcedure, svc.GetSummary, opts...)
	watchExpenses := connect.NewServerStreamHandler(ExpenseServiceWatchExpensesProcedure, svc.WatchExpenses, opts...)

	return "/" + ExpenseServiceName + "/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case ExpenseServiceAddExpenseProcedure:
			addExpense.ServeHTTP(w, r)
		case ExpenseServiceListExpensesProcedure:
			listExpenses.ServeHTTP(w, r)
		case ExpenseServiceGetSummaryProcedure:
			getSummary.ServeHTTP(w, r)
		case ExpenseServiceWatchExpensesProcedure:
			watchExpenses.ServeHTTP(w, r)
		default:
			http.NotFound(w, r)
		}
	})
}

// UnimplementedExpenseServiceHandler returns CodeUnimplemented from all methods.
type UnimplementedExpenseServiceHandler struct{}

func (UnimplementedExpenseServiceHandler) AddExpense(context.Context, *connect.Request[api.AddExpenseRequest]) (*connect.Response[api.AddExpenseResponse], error) {
	return nil, connect.NewError(connect.CodeUnimplemented, errors.New("owedup.v1.ExpenseService.AddExpense is not implemented"))
}

func (UnimplementedExpenseServiceHandler) ListExpenses(context.Context, *connect.Request[emptypb.Empty]) (*connect.Response[api.ExpenseSnapshot], error) {
	return nil, connect.NewError(connect.CodeUnimplemented, errors.New("owedup.v1.ExpenseService.ListExpenses is not implemented"))
}

func (UnimplementedExpenseServiceHandler) GetSummary(context.Context, *connect.Request[emptypb.Empty]) (*connect.Response[api.Summary], error) {
	return nil, connect.NewError(connect.CodeUnimplemented, errors.New("owedup.v1.ExpenseService.GetSummary is not implemented"))
}

func (UnimplementedExpenseServiceHandler) WatchExpenses(context.Context, *connect.Request[emptypb.Empty], *connect.ServerStream[api.ExpenseSnapshot]) error {
	return connect.NewError(connect.CodeUnimplemented, errors.New("owedup.v1.ExpenseService.WatchExpenses is not implemented"))
}
