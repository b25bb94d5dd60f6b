package tools

import "context"

type callerKey struct{}

// WithCaller tags ctx with the identity of whoever issued the call, usually
// the API key of an HTTP request. Audit records hash it.
func WithCaller(ctx context.Context, caller string) context.Context {
	return context.WithValue(ctx, callerKey{}, caller)
}

func Caller(ctx context.Context) string {
	s, _ := ctx.Value(callerKey{}).(string)
	return s
}
