package guard

import (
	"context"
	"fmt"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Error(format string, args ...any)
}

// Identity holds the attributes of a signed in identity
type Identity interface {
	ID() string
	Username() string
	Email() string
	Role() string
}

// Unsubscribe releases a subscription made with OnAuthStateChanged.
// Calling it more than once must be safe.
type Unsubscribe func()

// AuthStateHandler receives identity change notifications. A nil identity
// means the identity is signed out.
type AuthStateHandler func(identity Identity)

// IdentityProvider is the external identity service a guard resolves against.
//
// IsAuthenticated is the one-shot probe. OnAuthStateChanged registers a push
// subscription; notifications may arrive at any time and on any goroutine,
// including synchronously from within OnAuthStateChanged itself. Handlers must
// not be called after the returned Unsubscribe has run.
type IdentityProvider interface {
	IsAuthenticated(ctx context.Context) (bool, error)
	OnAuthStateChanged(handler AuthStateHandler) Unsubscribe
}

// Config holds the navigation targets used by guards
type Config interface {
	GetAnonEntryPath() string
	GetLandingPath() string
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] GUARD "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] GUARD "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] GUARD "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}

// DefaultLogger returns the stdout logger used when none is configured.
func DefaultLogger() Logger {
	return defLogger{}
}
