// Package auth reads the acting identity from backend-issued bearer tokens
// and keeps the credential fresh before state-mutating calls.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	appctx "formdesk/internal/core/context"
)

// Claims represents the claims of a backend access token.
type Claims struct {
	jwt.RegisteredClaims
	UserID string   `json:"id,omitempty"`
	Email  string   `json:"email"`
	Name   string   `json:"name,omitempty"`
	Roles  []string `json:"roles,omitempty"`
	Role   string   `json:"role,omitempty"`
}

// ErrNoExpiry is returned for tokens without an exp claim.
var ErrNoExpiry = errors.New("token has no expiry")

// TokenParser turns bearer tokens into user contexts. With a secret the
// HMAC signature is verified; without one the backend stays the verifier
// and only the claims are read. Expiry is not enforced here: an expired
// token still identifies the user so the refresher can renew it.
type TokenParser struct {
	secret []byte
}

// NewTokenParser creates a parser. secret may be empty.
func NewTokenParser(secret string) *TokenParser {
	var key []byte
	if secret != "" {
		key = []byte(secret)
	}
	return &TokenParser{secret: key}
}

// Verifies reports whether signatures are checked.
func (p *TokenParser) Verifies() bool { return p.secret != nil }

// Parse validates tokenString and returns the user context it carries.
func (p *TokenParser) Parse(tokenString string) (*appctx.UserContext, error) {
	claims := &Claims{}
	if p.secret != nil {
		token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return p.secret, nil
		}, jwt.WithoutClaimsValidation())
		if err != nil {
			return nil, fmt.Errorf("parse token: %w", err)
		}
		if !token.Valid {
			return nil, fmt.Errorf("invalid token claims")
		}
	} else {
		if _, _, err := jwt.NewParser().ParseUnverified(tokenString, claims); err != nil {
			return nil, fmt.Errorf("parse token: %w", err)
		}
	}
	return claims.userContext(tokenString), nil
}

// Expiry returns the exp claim of tokenString without verifying it.
func Expiry(tokenString string) (time.Time, error) {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenString, claims); err != nil {
		return time.Time{}, fmt.Errorf("parse token: %w", err)
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, ErrNoExpiry
	}
	return claims.ExpiresAt.Time, nil
}

func (c *Claims) userContext(token string) *appctx.UserContext {
	userID := c.UserID
	if userID == "" {
		userID = c.Subject
	}
	roles := c.Roles
	if len(roles) == 0 && c.Role != "" {
		roles = []string{c.Role}
	}
	u := &appctx.UserContext{
		UserID: userID,
		Email:  c.Email,
		Name:   c.Name,
		Roles:  roles,
		Token:  token,
	}
	if c.ExpiresAt != nil {
		u.ExpiresAt = c.ExpiresAt.Time
	}
	return u
}
