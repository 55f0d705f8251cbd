package chatsdk

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AccessClaims are the claims the rolechat backend puts in its access
// tokens.
type AccessClaims struct {
	jwt.RegisteredClaims

	UserID    uint64 `json:"user_id"`
	Role      string `json:"role,omitempty"`
	Status    string `json:"status,omitempty"`
	TokenType string `json:"token_type,omitempty"`
}

// ParseAccessClaims reads the claims of an access token WITHOUT verifying its
// signature. The client has no key to verify with; use the result for
// display only, never for authorization decisions.
func ParseAccessClaims(token string) (*AccessClaims, error) {
	var claims AccessClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return nil, fmt.Errorf("parse access token: %w", err)
	}
	return &claims, nil
}

// ExpiresIn returns how long until the token expires, negative once it has.
// Zero means the token carries no expiry.
func (c *AccessClaims) ExpiresIn(now time.Time) time.Duration {
	if c.ExpiresAt == nil {
		return 0
	}
	return c.ExpiresAt.Sub(now)
}
