package middleware

import "context"

type contextKey int

const (
	ctxActor contextKey = iota
	ctxRequestID
)

// ActorFromContext returns the actor resolved from a bearer token, if any.
func ActorFromContext(ctx context.Context) string {
	return stringValue(ctx, ctxActor)
}

// WithActor injects the token actor into the context.
func WithActor(ctx context.Context, actor string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxActor, actor)
}

// RequestIDFromContext returns the id assigned by RequestID.
func RequestIDFromContext(ctx context.Context) string {
	return stringValue(ctx, ctxRequestID)
}

func stringValue(ctx context.Context, key contextKey) string {
	if ctx == nil {
		return ""
	}
	v, _ := ctx.Value(key).(string)
	return v
}
