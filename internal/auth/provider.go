// Package auth holds the explicit authentication context handed to the
// REST clients: where the bearer token lives, what account it names and
// whether it is still usable.
package auth

import (
	"context"
	"errors"
	"time"

	"github.com/vanhoc/mocktest/internal/apierr"
)

// Identity is a usable token together with its decoded claims.
type Identity struct {
	Token     string
	AccountID int64
	Claims    *Claims
}

// Provider reads the token from a TokenStore and rejects missing, malformed
// or expired tokens as AuthRequired.
type Provider struct {
	store TokenStore
	now   func() time.Time
}

// NewProvider creates a Provider over store.
func NewProvider(store TokenStore) *Provider {
	return &Provider{store: store, now: time.Now}
}

// Store returns the backing TokenStore.
func (p *Provider) Store() TokenStore {
	return p.store
}

// Token implements httpclient.TokenSource.
func (p *Provider) Token(ctx context.Context) (string, error) {
	id, err := p.Identity(ctx)
	if err != nil {
		return "", err
	}
	return id.Token, nil
}

// Identity returns the current token and account.
func (p *Provider) Identity(ctx context.Context) (*Identity, error) {
	token, err := p.store.Load(ctx)
	if err != nil {
		if errors.Is(err, ErrNoToken) {
			return nil, apierr.New(apierr.KindAuthRequired, "not logged in")
		}
		return nil, apierr.Wrap(apierr.KindAuthRequired, "load token", err)
	}

	claims, err := ParseClaims(token)
	if err != nil {
		return nil, apierr.Wrap(apierr.KindAuthRequired, "stored token is malformed", err)
	}
	if claims.ExpiresAt != nil && !claims.ExpiresAt.After(p.now()) {
		return nil, apierr.New(apierr.KindAuthRequired, "session expired")
	}

	account, err := claims.Account()
	if err != nil {
		return nil, apierr.Wrap(apierr.KindAuthRequired, "stored token is malformed", err)
	}

	return &Identity{Token: token, AccountID: account, Claims: claims}, nil
}

// redisTTL derives a key expiry from the token's exp claim; 0 means no expiry.
func redisTTL(token string) time.Duration {
	claims, err := ParseClaims(token)
	if err != nil || claims.ExpiresAt == nil {
		return 0
	}
	ttl := time.Until(claims.ExpiresAt.Time)
	if ttl <= 0 {
		return time.Second
	}
	return ttl
}
