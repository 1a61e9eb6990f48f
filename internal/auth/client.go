package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/vanhoc/mocktest/internal/apierr"
	"github.com/vanhoc/mocktest/internal/httpclient"
	"github.com/vanhoc/mocktest/internal/model"
	"github.com/vanhoc/mocktest/internal/validator"
)

// Client talks to the auth service and keeps the TokenStore in sync.
type Client struct {
	http  *httpclient.Client
	store TokenStore
	log   zerolog.Logger
}

// NewClient creates an auth Client.
func NewClient(http *httpclient.Client, store TokenStore, log zerolog.Logger) *Client {
	return &Client{
		http:  http,
		store: store,
		log:   log.With().Str("component", "auth_client").Logger(),
	}
}

// Login exchanges credentials for a token and persists it.
func (c *Client) Login(ctx context.Context, email, password string) (*Identity, error) {
	req := model.LoginRequest{Email: email, Password: password}
	if err := validator.Struct(req); err != nil {
		return nil, err
	}

	var res model.LoginResult
	if err := c.http.PostPublic(ctx, "/auth/login", req, &res); err != nil {
		c.log.Warn().Err(err).Str("email", email).Msg("Login failed")
		return nil, fmt.Errorf("login: %w", err)
	}
	if res.Token == "" {
		return nil, apierr.New(apierr.KindServerError, "login response carries no token")
	}

	claims, err := ParseClaims(res.Token)
	if err != nil {
		return nil, apierr.Wrap(apierr.KindServerError, "login returned a malformed token", err)
	}
	account, err := claims.Account()
	if err != nil {
		return nil, apierr.Wrap(apierr.KindServerError, "login returned a malformed token", err)
	}

	if err := c.store.Save(ctx, res.Token); err != nil {
		return nil, fmt.Errorf("save token: %w", err)
	}

	c.log.Info().Int64("account_id", account).Msg("Logged in")
	return &Identity{Token: res.Token, AccountID: account, Claims: claims}, nil
}

// Logout forgets the stored token.
func (c *Client) Logout(ctx context.Context) error {
	if err := c.store.Clear(ctx); err != nil && !errors.Is(err, ErrNoToken) {
		return fmt.Errorf("clear token: %w", err)
	}
	return nil
}
