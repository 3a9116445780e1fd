package core

import "context"

type contextKey string

const ctxKeyOrigin contextKey = "run_origin"

// ContextWithOrigin records where a validation came from (client IP, "cli")
// so the recorded run can carry it.
func ContextWithOrigin(ctx context.Context, origin string) context.Context {
	return context.WithValue(ctx, ctxKeyOrigin, origin)
}

// OriginFromContext returns the origin set by ContextWithOrigin, or "".
func OriginFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeyOrigin).(string); ok {
		return v
	}
	return ""
}
