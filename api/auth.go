package api

import (
	"context"
	"time"

	"servigo-client/models"
)

// LoginResponse is the token envelope returned by the auth endpoint.
type LoginResponse struct {
	AccessToken string          `json:"access_token"`
	TokenType   string          `json:"token_type"`
	ExpiresIn   int64           `json:"expires_in"`
	Account     *models.Account `json:"account"`
}

// Login exchanges credentials for a token. Session issuance rules are entirely
// server-side; the client just stores what comes back.
func (c *Client) Login(ctx context.Context, email, password string) (*Session, error) {
	var resp LoginResponse
	payload := map[string]string{"email": email, "password": password}
	if err := c.postJSON(ctx, "/auth/login", payload, &resp); err != nil {
		return nil, err
	}
	return &Session{
		AccessToken: resp.AccessToken,
		Account:     resp.Account,
		SavedAt:     time.Now(),
	}, nil
}

// Profile re-fetches the authenticated account, refreshing the cached copy.
func (c *Client) Profile(ctx context.Context) (*models.Account, error) {
	var resp struct {
		Account models.Account `json:"account"`
	}
	if err := c.get(ctx, "/auth/me", &resp); err != nil {
		return nil, err
	}
	return &resp.Account, nil
}
