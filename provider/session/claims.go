package session

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-guard"
)

// Claims is the payload of a session token. It doubles as the identity
// pushed to guards.
type Claims struct {
	jwt.RegisteredClaims
	SID      string `json:"sid"`
	Login    string `json:"usr,omitempty"`
	Mail     string `json:"email,omitempty"`
	UserRole string `json:"role,omitempty"`
}

var _ guard.Identity = (*Claims)(nil)

func (c *Claims) ID() string {
	return c.RegisteredClaims.Subject
}

func (c *Claims) Username() string {
	return c.Login
}

func (c *Claims) Email() string {
	return c.Mail
}

func (c *Claims) Role() string {
	return c.UserRole
}

// SessionID returns the server side session backing the token
func (c *Claims) SessionID() string {
	return c.SID
}

// Expires returns the token expiration, zero when unset
func (c *Claims) Expires() time.Time {
	if c.ExpiresAt == nil {
		return time.Time{}
	}
	return c.ExpiresAt.Time
}
