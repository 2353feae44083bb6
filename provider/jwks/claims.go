package jwks

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-guard"
)

// Claims are the identity claims read from a verified token
type Claims struct {
	jwt.RegisteredClaims
	PreferredUsername string `json:"preferred_username,omitempty"`
	Mail              string `json:"email,omitempty"`
	UserRole          string `json:"role,omitempty"`
}

var _ guard.Identity = (*Claims)(nil)

func (c *Claims) ID() string { return c.Subject }

func (c *Claims) Username() string {
	if c.PreferredUsername != "" {
		return c.PreferredUsername
	}
	return c.Mail
}

func (c *Claims) Email() string { return c.Mail }

func (c *Claims) Role() string { return c.UserRole }

func (c *Claims) Expires() time.Time {
	if c.ExpiresAt == nil {
		return time.Time{}
	}
	return c.ExpiresAt.Time
}
