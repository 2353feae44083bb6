package guard

// AuthState is the resolved identity state held by a guard instance.
type AuthState int

const (
	// StateUnknown is the initial state, resolution is pending
	StateUnknown AuthState = iota
	// StateAuthenticated means the provider reported a signed in identity
	StateAuthenticated
	// StateUnauthenticated means no identity, or the probe failed
	StateUnauthenticated
)

func (s AuthState) String() string {
	switch s {
	case StateUnknown:
		return "unknown"
	case StateAuthenticated:
		return "authenticated"
	case StateUnauthenticated:
		return "unauthenticated"
	default:
		return "invalid"
	}
}

// Resolved reports whether the state is no longer Unknown
func (s AuthState) Resolved() bool {
	return s == StateAuthenticated || s == StateUnauthenticated
}

// MarshalText implements encoding.TextMarshaler
func (s AuthState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// StateFromBool maps a probe result to an AuthState
func StateFromBool(authenticated bool) AuthState {
	if authenticated {
		return StateAuthenticated
	}
	return StateUnauthenticated
}

// StateFromIdentity maps a notification payload to an AuthState
func StateFromIdentity(identity Identity) AuthState {
	if identity == nil {
		return StateUnauthenticated
	}
	return StateAuthenticated
}
