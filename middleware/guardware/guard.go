package guardware

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-guard"
)

const (
	DefaultContextKey       = "auth_state"
	DefaultRejectedRouteKey = "rejected_route"
	DefaultResolveTimeout   = 2 * time.Second
	DefaultRejectedRouteTTL = 5 * time.Minute
)

// ProviderFactory builds the identity provider for one request. The returned
// provider may outlive the request (its probe is not cancelled on
// deactivation), so it must not retain c: copy what it needs eagerly.
type ProviderFactory func(c *fiber.Ctx) (guard.IdentityProvider, error)

type Config struct {
	// Filter skips the guard when it returns true
	Filter func(*fiber.Ctx) bool
	// Policy defaults to guard.RequireAuth
	Policy guard.Policy
	// Provider is required
	Provider ProviderFactory
	// Redirects defaults to /login and /
	Redirects guard.Redirects
	// ResolveTimeout bounds how long a request waits for the first
	// resolution before the pending indicator is rendered
	ResolveTimeout time.Duration
	// PendingHandler renders the resolution indicator
	PendingHandler fiber.Handler
	// ContextKey is the Locals key holding the resolved guard.AuthState
	ContextKey string
	// RejectedRouteKey names the cookie remembering the URL a RequireAuth
	// guard rejected. Set DisableRejectedRoute to skip it.
	RejectedRouteKey     string
	RejectedRouteTTL     time.Duration
	DisableRejectedRoute bool
	// CookieSecure marks the rejected route cookie as Secure
	CookieSecure bool
	Logger       guard.Logger
	// GuardOptions are appended to every guard instance
	GuardOptions []guard.Option
}

// New returns a fiber handler that binds one guard instance to each request.
// The guard is deactivated on every exit path once the handler chain returns.
func New(config ...Config) fiber.Handler {
	cfg := GetDefaultConfig(config...)

	return func(c *fiber.Ctx) error {
		if cfg.Filter != nil && cfg.Filter(c) {
			return c.Next()
		}

		provider, err := cfg.Provider(c)
		if err != nil || provider == nil {
			if err == nil {
				err = errNilProvider
			}
			cfg.Logger.Error("guard provider for %s failed: %v", c.Path(), err)
			provider = guard.FailingProvider(err)
		}

		opts := make([]guard.Option, 0, len(cfg.GuardOptions)+2)
		opts = append(opts, guard.WithLogger(cfg.Logger), guard.WithRedirects(cfg.Redirects))
		opts = append(opts, cfg.GuardOptions...)

		g := guard.New(provider, cfg.Policy, opts...)

		ctx := c.UserContext()
		if err := g.Activate(ctx); err != nil {
			return err
		}
		defer g.Deactivate()

		waitCtx, cancel := context.WithTimeout(ctx, cfg.ResolveTimeout)
		_, _ = g.Await(waitCtx)
		cancel()

		d := g.Decision()
		c.Locals(cfg.ContextKey, d.State)

		switch d.Outcome {
		case guard.OutcomeRender:
			return c.Next()
		case guard.OutcomeRedirect:
			cfg.Logger.Debug("guard %s redirecting %s to %s (%s)", g.ID(), c.Path(), d.Target, d.State)
			if cfg.Policy == guard.RequireAuth && !cfg.DisableRejectedRoute {
				SetRejectedRoute(c, cfg)
			}
			return c.Redirect(d.Target, RedirectStatus(c))
		default:
			cfg.Logger.Debug("guard %s unresolved after %s for %s", g.ID(), cfg.ResolveTimeout, c.Path())
			return cfg.PendingHandler(c)
		}
	}
}

// RequireAuth guards content that needs an authenticated identity
func RequireAuth(cfg Config) fiber.Handler {
	cfg.Policy = guard.RequireAuth
	return New(cfg)
}

// RequireAnon guards content only anonymous visitors may see
func RequireAnon(cfg Config) fiber.Handler {
	cfg.Policy = guard.RequireAnon
	return New(cfg)
}

func GetDefaultConfig(config ...Config) (cfg Config) {
	if len(config) > 0 {
		cfg = config[0]
	}

	if cfg.Provider == nil {
		panic("GUARD: guard middleware configuration: Provider is required.")
	}

	if cfg.Policy == 0 {
		cfg.Policy = guard.RequireAuth
	}

	if cfg.Redirects.AnonEntry == "" {
		cfg.Redirects.AnonEntry = guard.DefaultAnonEntryPath
	}

	if cfg.Redirects.Landing == "" {
		cfg.Redirects.Landing = guard.DefaultLandingPath
	}

	if cfg.ResolveTimeout <= 0 {
		cfg.ResolveTimeout = DefaultResolveTimeout
	}

	if cfg.PendingHandler == nil {
		cfg.PendingHandler = DefaultPendingHandler
	}

	if cfg.ContextKey == "" {
		cfg.ContextKey = DefaultContextKey
	}

	if cfg.RejectedRouteKey == "" {
		cfg.RejectedRouteKey = DefaultRejectedRouteKey
	}

	if cfg.RejectedRouteTTL <= 0 {
		cfg.RejectedRouteTTL = DefaultRejectedRouteTTL
	}

	if cfg.Logger == nil {
		cfg.Logger = guard.DefaultLogger()
	}

	return cfg
}

// DefaultPendingHandler asks the client to retry shortly
func DefaultPendingHandler(c *fiber.Ctx) error {
	c.Set(fiber.HeaderCacheControl, "no-store")
	c.Set(fiber.HeaderRetryAfter, "1")
	c.Set("Refresh", "1")
	return c.Status(fiber.StatusAccepted).SendString("Resolving session...")
}

// RedirectStatus is 302 for safe methods and 303 otherwise, so a rejected
// form POST is followed with a GET.
func RedirectStatus(c *fiber.Ctx) int {
	switch c.Method() {
	case fiber.MethodGet, fiber.MethodHead:
		return fiber.StatusFound
	default:
		return fiber.StatusSeeOther
	}
}

// StateFromContext returns the AuthState stored by the guard for this request
func StateFromContext(c *fiber.Ctx, key ...string) (guard.AuthState, bool) {
	k := DefaultContextKey
	if len(key) > 0 && key[0] != "" {
		k = key[0]
	}
	state, ok := c.Locals(k).(guard.AuthState)
	return state, ok
}
