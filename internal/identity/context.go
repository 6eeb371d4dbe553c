package identity

import "context"

type contextKey struct{}

// WithUser returns a context carrying the verified user email.
func WithUser(ctx context.Context, email string) context.Context {
	return context.WithValue(ctx, contextKey{}, email)
}

// UserFromContext returns the verified user email, or "" when absent.
func UserFromContext(ctx context.Context) string {
	email, _ := ctx.Value(contextKey{}).(string)
	return email
}
