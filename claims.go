package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AuthClaims is a verified, decoded token payload. Local tokens carry
// the username in the subject; federated tokens carry the issuer's
// subject id. Email and Name are optional and empty when the issuer did
// not include them.
type AuthClaims interface {
	Subject() string
	UserID() string
	Email() string
	Name() string
	Role() string
	HasRole(role string) bool
	IsAdmin() bool
	Expires() time.Time
	IssuedAt() time.Time
}

// JWTClaims is the concrete implementation of AuthClaims
type JWTClaims struct {
	jwt.RegisteredClaims
	UID       string `json:"uid,omitempty"`
	UserRole  string `json:"role,omitempty"`
	UserEmail string `json:"email,omitempty"`
	FullName  string `json:"name,omitempty"`
}

// Verify interface compliance
var _ AuthClaims = (*JWTClaims)(nil)

// Subject returns the subject claim
func (c *JWTClaims) Subject() string {
	return c.RegisteredClaims.Subject
}

// UserID returns the user ID, falling back to the subject for tokens
// minted before the uid claim existed.
func (c *JWTClaims) UserID() string {
	if c.UID != "" {
		return c.UID
	}
	return c.Subject()
}

// Email returns the optional email claim
func (c *JWTClaims) Email() string {
	return c.UserEmail
}

// Name returns the optional display name claim
func (c *JWTClaims) Name() string {
	return c.FullName
}

// Role returns the global role
func (c *JWTClaims) Role() string {
	return c.UserRole
}

// HasRole checks if the user has a specific role
func (c *JWTClaims) HasRole(role string) bool {
	return c.UserRole == role
}

// IsAdmin checks if the claims carry the admin role
func (c *JWTClaims) IsAdmin() bool {
	return c.UserRole == RoleAdmin
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
