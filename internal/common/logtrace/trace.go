package logtrace

import (
	"context"
)

type requestIdContextKey string

// RequestIdKey is the context key under which the request logger stores the request ID.
const RequestIdKey = requestIdContextKey("requestId")

// RequestIdFromContext extracts the request ID from the context.
// Returns an empty string if the context is nil or if no request ID is found.
func RequestIdFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	r, ok := ctx.Value(RequestIdKey).(string)
	if !ok {
		return ""
	}
	return r
}

// WithRequestId returns a copy of ctx carrying the request ID.
func WithRequestId(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, RequestIdKey, id)
}
