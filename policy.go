package guard

const (
	// DefaultAnonEntryPath is where RequireAuth sends unauthenticated visitors
	DefaultAnonEntryPath = "/login"
	// DefaultLandingPath is where RequireAnon sends authenticated visitors
	DefaultLandingPath = "/"
)

// Policy selects which AuthState a guard lets through.
type Policy int

const (
	// RequireAuth renders content only for authenticated identities
	RequireAuth Policy = iota + 1
	// RequireAnon renders content only for unauthenticated visitors
	RequireAnon
)

func (p Policy) String() string {
	switch p {
	case RequireAuth:
		return "require_auth"
	case RequireAnon:
		return "require_anon"
	default:
		return "invalid"
	}
}

// Outcome is what the navigation layer should do with a request.
type Outcome int

const (
	// OutcomePending renders the resolution indicator
	OutcomePending Outcome = iota
	// OutcomeRender renders the guarded content
	OutcomeRender
	// OutcomeRedirect navigates to Decision.Target
	OutcomeRedirect
)

func (o Outcome) String() string {
	switch o {
	case OutcomePending:
		return "pending"
	case OutcomeRender:
		return "render"
	case OutcomeRedirect:
		return "redirect"
	default:
		return "invalid"
	}
}

// Redirects holds the targets a guard navigates to when it rejects a state.
type Redirects struct {
	// AnonEntry is the anonymous entry point, used by RequireAuth
	AnonEntry string
	// Landing is the default authenticated landing target, used by RequireAnon
	Landing string
}

// DefaultRedirects returns the /login and / targets
func DefaultRedirects() Redirects {
	return Redirects{
		AnonEntry: DefaultAnonEntryPath,
		Landing:   DefaultLandingPath,
	}
}

// RedirectsFromConfig reads targets from cfg, keeping defaults for empty values
func RedirectsFromConfig(cfg Config) Redirects {
	r := DefaultRedirects()
	if cfg == nil {
		return r
	}
	if p := cfg.GetAnonEntryPath(); p != "" {
		r.AnonEntry = p
	}
	if p := cfg.GetLandingPath(); p != "" {
		r.Landing = p
	}
	return r
}

func (r Redirects) normalize() Redirects {
	def := DefaultRedirects()
	if r.AnonEntry == "" {
		r.AnonEntry = def.AnonEntry
	}
	if r.Landing == "" {
		r.Landing = def.Landing
	}
	return r
}

// Decision is the render policy result for one AuthState.
type Decision struct {
	Outcome Outcome
	Target  string
	State   AuthState
}

// Decide applies the policy to state. Unknown always yields OutcomePending.
func (p Policy) Decide(state AuthState, redirects Redirects) Decision {
	redirects = redirects.normalize()
	d := Decision{State: state}

	if !state.Resolved() {
		d.Outcome = OutcomePending
		return d
	}

	switch p {
	case RequireAnon:
		if state == StateAuthenticated {
			d.Outcome = OutcomeRedirect
			d.Target = redirects.Landing
			return d
		}
		d.Outcome = OutcomeRender
	default:
		if state == StateUnauthenticated {
			d.Outcome = OutcomeRedirect
			d.Target = redirects.AnonEntry
			return d
		}
		d.Outcome = OutcomeRender
	}

	return d
}
