package auth

import "context"

// AnonymousCaller is the identity of requests without a session.
const AnonymousCaller = "anonymous"

type callerCtxKey struct{}

func WithCaller(ctx context.Context, caller string) context.Context {
	return context.WithValue(ctx, callerCtxKey{}, caller)
}

func CallerFromContext(ctx context.Context) string {
	if caller, ok := ctx.Value(callerCtxKey{}).(string); ok && caller != "" {
		return caller
	}
	return AnonymousCaller
}

// ContextCaller reads the caller put into the request context by the auth middleware.
type ContextCaller struct{}

func (ContextCaller) CurrentCaller(ctx context.Context) string {
	return CallerFromContext(ctx)
}
