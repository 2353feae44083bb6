package repository

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// User is an account of the first party identity service
type User struct {
	bun.BaseModel `bun:"table:users,alias:usr"`

	ID           uuid.UUID  `bun:"id,pk,type:uuid" json:"id"`
	Username     string     `bun:"username,notnull,unique" json:"username"`
	Email        string     `bun:"email,notnull,unique" json:"email"`
	Role         string     `bun:"user_role,notnull" json:"user_role"`
	PasswordHash string     `bun:"password_hash" json:"-"`
	LoggedInAt   *time.Time `bun:"loggedin_at,nullzero" json:"loggedin_at,omitempty"`
	CreatedAt    time.Time  `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
}

// Session is a server side record backing a session token. Revoking it
// signs the token out even if the token itself has not expired.
type Session struct {
	bun.BaseModel `bun:"table:sessions,alias:ses"`

	ID        uuid.UUID  `bun:"id,pk,type:uuid" json:"id"`
	UserID    uuid.UUID  `bun:"user_id,notnull,type:uuid" json:"user_id"`
	ExpiresAt time.Time  `bun:"expires_at,notnull" json:"expires_at"`
	RevokedAt *time.Time `bun:"revoked_at,nullzero" json:"revoked_at,omitempty"`
	CreatedAt time.Time  `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
}

// Active reports whether the session can still authenticate at now
func (s *Session) Active(now time.Time) bool {
	if s == nil || s.RevokedAt != nil {
		return false
	}
	return now.Before(s.ExpiresAt)
}
