// Package context provides request-scoped values extraction.
package context

import (
	"context"
	"time"
)

// UserContext contains the acting identity of a request.
type UserContext struct {
	UserID string
	Email  string
	Name   string
	Roles  []string

	// Token is the bearer credential forwarded to the backend.
	Token     string
	ExpiresAt time.Time
}

type userContextKey struct{}

// WithUser adds UserContext to context.
func WithUser(ctx context.Context, user *UserContext) context.Context {
	return context.WithValue(ctx, userContextKey{}, user)
}

// GetUser returns UserContext from context.
func GetUser(ctx context.Context) *UserContext {
	if v, ok := ctx.Value(userContextKey{}).(*UserContext); ok {
		return v
	}
	return nil
}

// GetUserID returns user ID from context or empty string.
func GetUserID(ctx context.Context) string {
	if u := GetUser(ctx); u != nil {
		return u.UserID
	}
	return ""
}

// GetToken returns the bearer token from context or empty string.
func GetToken(ctx context.Context) string {
	if u := GetUser(ctx); u != nil {
		return u.Token
	}
	return ""
}
