package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"formdesk/internal/core/apperror"
	appctx "formdesk/internal/core/context"
)

// TokenParser turns a bearer token into the acting user.
type TokenParser interface {
	Parse(tokenString string) (*appctx.UserContext, error)
}

// Auth middleware reads the bearer token and populates user context. The
// raw token stays on the user so upstream calls can forward it; expiry is
// left to the backend and the refresher.
func Auth(parser TokenParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortUnauthorized(c, "missing authorization header")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || strings.TrimSpace(parts[1]) == "" {
			abortUnauthorized(c, "invalid authorization header format")
			return
		}

		user, err := parser.Parse(strings.TrimSpace(parts[1]))
		if err != nil {
			abortUnauthorized(c, "invalid token")
			return
		}
		if user.UserID == "" && user.Email == "" {
			abortUnauthorized(c, "token carries no identity")
			return
		}

		c.Request = c.Request.WithContext(appctx.WithUser(c.Request.Context(), user))
		c.Set("user_id", user.UserID)

		c.Next()
	}
}

func abortUnauthorized(c *gin.Context, message string) {
	_ = c.Error(apperror.NewUnauthorized(message))
	c.Abort()
}

// CredentialRefresher renews the request credential ahead of expiry.
type CredentialRefresher interface {
	Ensure(ctx context.Context) (context.Context, error)
}

// FreshCredential guards routes that mutate backend state. It must run
// after Auth.
func FreshCredential(refresher CredentialRefresher) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, err := refresher.Ensure(c.Request.Context())
		if err != nil {
			_ = c.Error(err)
			c.Abort()
			return
		}
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
