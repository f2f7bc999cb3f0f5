package logger

import (
	"context"
	"log/slog"
)

type contextKey string

const RequestIDKey contextKey = "request_id"
const CommandKey contextKey = "command"

func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, RequestIDKey, id)
}

func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(RequestIDKey).(string); ok {
		return id
	}
	return ""
}

func WithCommand(ctx context.Context, kind string) context.Context {
	return context.WithValue(ctx, CommandKey, kind)
}

func GetCommand(ctx context.Context) string {
	if kind, ok := ctx.Value(CommandKey).(string); ok {
		return kind
	}
	return ""
}

// FromContext returns the default logger annotated with request attributes.
func FromContext(ctx context.Context) *slog.Logger {
	l := slog.Default()
	if id := GetRequestID(ctx); id != "" {
		l = l.With("request_id", id)
	}
	if kind := GetCommand(ctx); kind != "" {
		l = l.With("command", kind)
	}
	return l
}
