package auth

import (
	"context"
	"time"

	"formdesk/internal/core/apperror"
	appctx "formdesk/internal/core/context"
	"formdesk/pkg/logger"
)

// Renewer exchanges a token for a fresh one on the backend.
type Renewer interface {
	RefreshToken(ctx context.Context, token string) (string, error)
}

// TokenRefresher renews the request credential when it is about to expire.
type TokenRefresher struct {
	renewer Renewer
	parser  *TokenParser
	skew    time.Duration
	now     func() time.Time
}

// NewTokenRefresher creates a refresher renewing tokens within skew of expiry.
func NewTokenRefresher(renewer Renewer, parser *TokenParser, skew time.Duration) *TokenRefresher {
	if skew <= 0 {
		skew = 2 * time.Minute
	}
	return &TokenRefresher{renewer: renewer, parser: parser, skew: skew, now: time.Now}
}

// Ensure returns ctx with a fresh credential. An expired token that cannot
// be renewed is unauthorized; a still-valid one is kept when renewal fails.
func (r *TokenRefresher) Ensure(ctx context.Context) (context.Context, error) {
	user := appctx.GetUser(ctx)
	if user == nil || user.Token == "" {
		return ctx, apperror.NewUnauthorized("authentication required")
	}

	exp := user.ExpiresAt
	if exp.IsZero() {
		var err error
		if exp, err = Expiry(user.Token); err != nil {
			// No exp claim: nothing to refresh ahead of.
			return ctx, nil
		}
	}

	now := r.now()
	if exp.Sub(now) > r.skew {
		return ctx, nil
	}

	fresh, err := r.renewer.RefreshToken(ctx, user.Token)
	if err != nil {
		if !exp.After(now) {
			logger.Warn(ctx, "token expired and refresh failed", "error", err)
			return ctx, apperror.NewUnauthorized("session expired, please sign in again").WithCause(err)
		}
		logger.Warn(ctx, "token refresh failed, using current token", "error", err)
		return ctx, nil
	}

	renewed, err := r.parser.Parse(fresh)
	if err != nil {
		renewed = &appctx.UserContext{Token: fresh}
		if t, expErr := Expiry(fresh); expErr == nil {
			renewed.ExpiresAt = t
		}
	}
	next := *user
	next.Token = fresh
	next.ExpiresAt = renewed.ExpiresAt
	logger.Debug(ctx, "token refreshed", "expires_at", next.ExpiresAt)
	return appctx.WithUser(ctx, &next), nil
}
