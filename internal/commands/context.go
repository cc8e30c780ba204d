package commands

import "context"

const AnonymousUser = "anonymous"

type userIDKey struct{}

// WithUserID attaches the caller's user id. Empty ids are ignored.
func WithUserID(ctx context.Context, userID string) context.Context {
	if userID == "" {
		return ctx
	}
	return context.WithValue(ctx, userIDKey{}, userID)
}

// UserID returns the caller's user id, or AnonymousUser when none was set.
func UserID(ctx context.Context) string {
	if userID, ok := ctx.Value(userIDKey{}).(string); ok && userID != "" {
		return userID
	}
	return AnonymousUser
}
