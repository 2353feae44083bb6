package guard

import (
	"github.com/goliatone/go-errors"
)

const (
	TextCodeProbeFailure   = "GUARD_PROBE_FAILURE"
	TextCodeGuardActivated = "GUARD_ALREADY_ACTIVATED"
	TextCodeGuardInactive  = "GUARD_INACTIVE"
)

// ErrProbeFailure is the template for failed initial resolution calls.
// Use NewProbeFailure to wrap the provider error.
var ErrProbeFailure = errors.New("identity probe failed", errors.CategoryAuth).
	WithTextCode(TextCodeProbeFailure).
	WithCode(errors.CodeUnauthorized)

// ErrGuardActivated is returned when Activate runs twice on one instance
var ErrGuardActivated = errors.New("guard already activated", errors.CategoryConflict).
	WithTextCode(TextCodeGuardActivated).
	WithCode(errors.CodeConflict)

// ErrGuardInactive is returned when waiting on a guard that was deactivated
var ErrGuardInactive = errors.New("guard is not active", errors.CategoryConflict).
	WithTextCode(TextCodeGuardInactive).
	WithCode(errors.CodeConflict)

// NewProbeFailure wraps a provider error as a ProbeFailure
func NewProbeFailure(err error) *errors.Error {
	return errors.Wrap(err, errors.CategoryAuth, ErrProbeFailure.Message).
		WithTextCode(TextCodeProbeFailure).
		WithCode(errors.CodeUnauthorized)
}

// IsProbeFailure reports whether err is a ProbeFailure
func IsProbeFailure(err error) bool {
	return hasTextCode(err, TextCodeProbeFailure)
}

// IsGuardInactive reports whether err signals a deactivated guard
func IsGuardInactive(err error) bool {
	return hasTextCode(err, TextCodeGuardInactive)
}

func hasTextCode(err error, code string) bool {
	if err == nil {
		return false
	}
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		return false
	}
	return richErr.TextCode == code
}
