package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"formdesk/internal/core/apperror"
	appctx "formdesk/internal/core/context"
)

const secret = "test-secret"

func signToken(t *testing.T, key string, userID string, exp time.Time) string {
	t.Helper()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
		Email: userID + "@example.com",
		Role:  "staff",
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(key))
	require.NoError(t, err)
	return s
}

type stubRenewer struct {
	token string
	err   error
	calls int
}

func (r *stubRenewer) RefreshToken(context.Context, string) (string, error) {
	r.calls++
	return r.token, r.err
}

func TestTokenParser_Verified(t *testing.T) {
	p := NewTokenParser(secret)
	tok := signToken(t, secret, "u-1", time.Now().Add(time.Hour))

	u, err := p.Parse(tok)
	require.NoError(t, err)
	assert.Equal(t, "u-1", u.UserID)
	assert.Equal(t, "u-1@example.com", u.Email)
	assert.Equal(t, []string{"staff"}, u.Roles)
	assert.Equal(t, tok, u.Token)
	assert.False(t, u.ExpiresAt.IsZero())

	_, err = p.Parse(signToken(t, "other", "u-1", time.Now().Add(time.Hour)))
	assert.Error(t, err)
}

func TestTokenParser_UnverifiedReadsClaims(t *testing.T) {
	p := NewTokenParser("")
	assert.False(t, p.Verifies())

	u, err := p.Parse(signToken(t, "whatever", "u-2", time.Now().Add(time.Hour)))
	require.NoError(t, err)
	assert.Equal(t, "u-2", u.UserID)

	_, err = p.Parse("not-a-token")
	assert.Error(t, err)
}

func TestTokenParser_ExpiredStillIdentifies(t *testing.T) {
	u, err := NewTokenParser(secret).Parse(signToken(t, secret, "u-3", time.Now().Add(-time.Hour)))
	require.NoError(t, err)
	assert.Equal(t, "u-3", u.UserID)
}

func withToken(tok string) context.Context {
	return appctx.WithUser(context.Background(), &appctx.UserContext{UserID: "u-1", Token: tok})
}

func TestRefresher_FreshTokenUntouched(t *testing.T) {
	renewer := &stubRenewer{}
	r := NewTokenRefresher(renewer, NewTokenParser(""), time.Minute)
	tok := signToken(t, secret, "u-1", time.Now().Add(time.Hour))

	ctx, err := r.Ensure(withToken(tok))
	require.NoError(t, err)
	assert.Equal(t, tok, appctx.GetToken(ctx))
	assert.Equal(t, 0, renewer.calls)
}

func TestRefresher_RenewsNearExpiry(t *testing.T) {
	fresh := signToken(t, secret, "u-1", time.Now().Add(time.Hour))
	renewer := &stubRenewer{token: fresh}
	r := NewTokenRefresher(renewer, NewTokenParser(""), 5*time.Minute)

	ctx, err := r.Ensure(withToken(signToken(t, secret, "u-1", time.Now().Add(time.Minute))))
	require.NoError(t, err)
	assert.Equal(t, 1, renewer.calls)
	assert.Equal(t, fresh, appctx.GetToken(ctx))
	assert.Equal(t, "u-1", appctx.GetUserID(ctx))
	assert.True(t, appctx.GetUser(ctx).ExpiresAt.After(time.Now().Add(30*time.Minute)))
}

func TestRefresher_ExpiredAndUnrenewable(t *testing.T) {
	renewer := &stubRenewer{err: errors.New("refresh rejected")}
	r := NewTokenRefresher(renewer, NewTokenParser(""), time.Minute)

	_, err := r.Ensure(withToken(signToken(t, secret, "u-1", time.Now().Add(-time.Minute))))
	assert.True(t, apperror.HasCode(err, apperror.CodeUnauthorized))
}

func TestRefresher_StillValidKeepsTokenOnFailure(t *testing.T) {
	renewer := &stubRenewer{err: errors.New("refresh rejected")}
	r := NewTokenRefresher(renewer, NewTokenParser(""), 5*time.Minute)
	tok := signToken(t, secret, "u-1", time.Now().Add(time.Minute))

	ctx, err := r.Ensure(withToken(tok))
	require.NoError(t, err)
	assert.Equal(t, tok, appctx.GetToken(ctx))
}

func TestRefresher_RequiresToken(t *testing.T) {
	r := NewTokenRefresher(&stubRenewer{}, NewTokenParser(""), time.Minute)
	_, err := r.Ensure(context.Background())
	assert.True(t, apperror.HasCode(err, apperror.CodeUnauthorized))
}
