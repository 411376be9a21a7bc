package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AuthClaims represents the verified content of a bearer token
type AuthClaims interface {
	Subject() string
	RoleNames() []string
	HasRole(role string) bool
	Expires() time.Time
	IssuedAt() time.Time
}

// JWTClaims is the concrete implementation of AuthClaims. Access tokens
// carry the roles claim, refresh tokens leave it empty.
type JWTClaims struct {
	jwt.RegisteredClaims
	Roles []string `json:"roles,omitempty"`
}

var _ AuthClaims = (*JWTClaims)(nil)

// Subject returns the subject claim, the principal's username
func (c *JWTClaims) Subject() string {
	return c.RegisteredClaims.Subject
}

// RoleNames returns the role claims embedded in the token
func (c *JWTClaims) RoleNames() []string {
	return c.Roles
}

// HasRole checks if the token carries a specific role claim
func (c *JWTClaims) HasRole(role string) bool {
	for _, r := range c.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// Expires returns the expiration time
func (c *JWTClaims) Expires() time.Time {
	if c.RegisteredClaims.ExpiresAt != nil {
		return c.RegisteredClaims.ExpiresAt.Time
	}
	return time.Time{}
}

// IssuedAt returns the issued at time
func (c *JWTClaims) IssuedAt() time.Time {
	if c.RegisteredClaims.IssuedAt != nil {
		return c.RegisteredClaims.IssuedAt.Time
	}
	return time.Time{}
}
