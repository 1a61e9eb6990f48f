package auth

import (
	"fmt"
	"strconv"

	"github.com/golang-jwt/jwt/v5"
)

// Claims are the fields the client reads from the bearer token. The token
// is not verified here; the services verify it on every call.
type Claims struct {
	jwt.RegisteredClaims
	AccountID int64  `json:"accountId,omitempty"`
	Email     string `json:"email,omitempty"`
	Role      string `json:"role,omitempty"`
	Tier      string `json:"tier,omitempty"`
}

// Account returns the account id, falling back to a numeric subject.
func (c *Claims) Account() (int64, error) {
	if c.AccountID > 0 {
		return c.AccountID, nil
	}
	if c.Subject != "" {
		id, err := strconv.ParseInt(c.Subject, 10, 64)
		if err == nil && id > 0 {
			return id, nil
		}
	}
	return 0, fmt.Errorf("token carries no account id")
}

// ParseClaims decodes the claims of a JWT without checking its signature.
func ParseClaims(token string) (*Claims, error) {
	claims := &Claims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}
	return claims, nil
}
