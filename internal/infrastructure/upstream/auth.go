package upstream

import (
	"context"
	"net/http"

	"formdesk/internal/core/apperror"
	appctx "formdesk/internal/core/context"
	"formdesk/internal/domain/auth"
)

var _ auth.Renewer = (*Client)(nil)

const pathRefresh = "/api/auth/refresh"

type refreshed struct {
	Token       string `json:"token"`
	AccessToken string `json:"accessToken"`
}

// RefreshToken exchanges token for a fresh one.
func (c *Client) RefreshToken(ctx context.Context, token string) (string, error) {
	if appctx.GetToken(ctx) != token {
		ctx = appctx.WithUser(ctx, &appctx.UserContext{UserID: appctx.GetUserID(ctx), Token: token})
	}
	var out refreshed
	if _, err := c.call(ctx, "auth.refresh", http.MethodPost, pathRefresh, nil, struct{}{}, &out); err != nil {
		return "", err
	}
	if out.Token != "" {
		return out.Token, nil
	}
	if out.AccessToken != "" {
		return out.AccessToken, nil
	}
	return "", apperror.NewUpstream(http.StatusOK, "Refresh response carried no token")
}
