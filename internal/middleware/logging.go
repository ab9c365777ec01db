package middleware

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"connectrpc.com/connect"
)

// LoggingInterceptor logs every RPC call: procedure, user ID, duration, and
// any error codes/messages. Streams are logged once when they end.
type LoggingInterceptor struct{}

var _ connect.Interceptor = LoggingInterceptor{}

// NewLoggingInterceptor returns the logging interceptor.
// Register it after the auth interceptor so the user ID is known.
func NewLoggingInterceptor() LoggingInterceptor {
	return LoggingInterceptor{}
}

func (LoggingInterceptor) WrapUnary(next connect.UnaryFunc) connect.UnaryFunc {
	return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
		if req.Spec().IsClient {
			return next(ctx, req)
		}
		start := time.Now()
		resp, err := next(ctx, req)
		logRPC(req.Spec().Procedure, GetUserID(ctx), start, err)
		return resp, err
	}
}

func (LoggingInterceptor) WrapStreamingClient(next connect.StreamingClientFunc) connect.StreamingClientFunc {
	return next
}

func (LoggingInterceptor) WrapStreamingHandler(next connect.StreamingHandlerFunc) connect.StreamingHandlerFunc {
	return func(ctx context.Context, conn connect.StreamingHandlerConn) error {
		start := time.Now()
		procedure := conn.Spec().Procedure
		userID := GetUserID(ctx)

		slog.Info("Stream opened", "procedure", procedure, "user_id", userID)
		err := next(ctx, conn)
		logRPC(procedure, userID, start, err)
		return err
	}
}

func logRPC(procedure, userID string, start time.Time, err error) {
	duration := time.Since(start).Milliseconds()
	if err != nil {
		var connectErr *connect.Error
		if errors.As(err, &connectErr) {
			slog.Warn("RPC error",
				"procedure", procedure,
				"code", connectErr.Code(),
				"error", connectErr.Message(),
				"user_id", userID,
				"duration_ms", duration,
			)
		} else {
			slog.Error("RPC error",
				"procedure", procedure,
				"error", err,
				"user_id", userID,
				"duration_ms", duration,
			)
		}
		return
	}

	slog.Info("RPC ok",
		"procedure", procedure,
		"user_id", userID,
		"duration_ms", duration,
	)
}
