package core

import "context"

type contextKey string

const ctxKeyOrigin contextKey = "change_origin"

// ContextWithOrigin records who issued a mutation, such as a client IP or a
// CLI user. It is copied onto published changes.
func ContextWithOrigin(ctx context.Context, origin string) context.Context {
	return context.WithValue(ctx, ctxKeyOrigin, origin)
}

// OriginFromContext extracts the mutation origin from context.
func OriginFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeyOrigin).(string); ok {
		return v
	}
	return ""
}
