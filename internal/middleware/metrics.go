package middleware

import (
	"context"
	"time"

	"connectrpc.com/connect"

	"github.com/mmynk/owedup/internal/metrics"
)

// MetricsInterceptor counts RPCs by procedure and result code and records
// unary latency.
type MetricsInterceptor struct {
	m *metrics.Metrics
}

var _ connect.Interceptor = (*MetricsInterceptor)(nil)

// NewMetricsInterceptor returns an interceptor reporting to m.
func NewMetricsInterceptor(m *metrics.Metrics) *MetricsInterceptor {
	return &MetricsInterceptor{m: m}
}

func (i *MetricsInterceptor) WrapUnary(next connect.UnaryFunc) connect.UnaryFunc {
	return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
		if req.Spec().IsClient {
			return next(ctx, req)
		}
		start := time.Now()
		resp, err := next(ctx, req)
		procedure := req.Spec().Procedure
		i.m.RPCDuration.WithLabelValues(procedure).Observe(time.Since(start).Seconds())
		i.m.RPCs.WithLabelValues(procedure, codeLabel(err)).Inc()
		return resp, err
	}
}

func (i *MetricsInterceptor) WrapStreamingClient(next connect.StreamingClientFunc) connect.StreamingClientFunc {
	return next
}

func (i *MetricsInterceptor) WrapStreamingHandler(next connect.StreamingHandlerFunc) connect.StreamingHandlerFunc {
	return func(ctx context.Context, conn connect.StreamingHandlerConn) error {
		err := next(ctx, conn)
		i.m.RPCs.WithLabelValues(conn.Spec().Procedure, codeLabel(err)).Inc()
		return err
	}
}

func codeLabel(err error) string {
	if err == nil {
		return "ok"
	}
	return connect.CodeOf(err).String()
}
