package shared

import "context"

type callerContextKey struct{}

// ContextWithCaller stores the authenticated principal in context.
func ContextWithCaller(ctx context.Context, caller Principal) context.Context {
	return context.WithValue(ctx, callerContextKey{}, caller)
}

// CallerFromContext extracts the authenticated principal from context.
func CallerFromContext(ctx context.Context) (Principal, bool) {
	caller, ok := ctx.Value(callerContextKey{}).(Principal)
	if !ok || caller.IsZero() {
		return Principal{}, false
	}
	return caller, true
}
