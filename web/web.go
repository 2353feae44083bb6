// Package web renders the pages of the scheduling application and serves the
// sign in, sign out and session state endpoints.
package web

import (
	"context"
	"embed"
	"io/fs"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/template/django/v3"
	"github.com/goliatone/go-guard"
	"github.com/goliatone/go-guard/middleware/csrf"
	"github.com/goliatone/go-guard/middleware/guardware"
	"github.com/goliatone/go-guard/provider/session"
	"github.com/goliatone/go-guard/routes"
)

//go:embed views/*.html
var viewsFS embed.FS

// Authenticator is the first party identity service used by the login form
type Authenticator interface {
	Login(ctx context.Context, identifier, password string) (string, *session.Claims, error)
	Logout(ctx context.Context, token string) error
}

type Config struct {
	// Provider builds the identity provider of a request, shared with the guards
	Provider guardware.ProviderFactory
	// Sessions is nil when sign in happens at a third party
	Sessions         Authenticator
	ExternalLoginURL string
	Extractors       []guardware.TokenExtractor
	CookieName       string
	CookieSecure     bool
	Redirects        guard.Redirects
	RejectedRouteKey string
	// Heartbeat is the interval of keep alive comments on state streams
	Heartbeat time.Duration
	Logger    guard.Logger
}

// Handler holds the page handlers
type Handler struct {
	cfg Config
}

func New(cfg Config) *Handler {
	if cfg.Provider == nil {
		panic("web: Provider is required")
	}
	if cfg.CookieName == "" {
		cfg.CookieName = "guard_session"
	}
	if cfg.Extractors == nil {
		cfg.Extractors = guardware.GetExtractors("header:Authorization,cookie:"+cfg.CookieName, "Bearer")
	}
	if cfg.Redirects == (guard.Redirects{}) {
		cfg.Redirects = guard.DefaultRedirects()
	}
	if cfg.RejectedRouteKey == "" {
		cfg.RejectedRouteKey = guardware.DefaultRejectedRouteKey
	}
	if cfg.Heartbeat <= 0 {
		cfg.Heartbeat = 15 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = guard.DefaultLogger()
	}
	return &Handler{cfg: cfg}
}

// Engine returns the view engine over the embedded templates
func Engine() *django.Engine {
	views, err := fs.Sub(viewsFS, "views")
	if err != nil {
		panic(err)
	}
	return django.NewFileSystem(http.FS(views), ".html")
}

// Pages maps the handlers onto the routes table
func (h *Handler) Pages() routes.Pages {
	pages := routes.Pages{
		Login:               h.LoginPage,
		Home:                h.page("Schedule", "Your upcoming shifts."),
		Onboarding:          h.page("Onboarding", "Finish setting up your profile."),
		ManagerDashboard:    h.page("Manager dashboard", "Coverage and open shifts across your teams."),
		SupervisorDashboard: h.page("Supervisor dashboard", "Today's roster and pending swaps."),
		Logout:              h.Logout,
		AuthState:           h.AuthState,
		Health:              Health,
	}
	if h.cfg.Sessions != nil {
		pages.LoginSubmit = h.LoginSubmit
	}
	return pages
}

// Pending renders the resolution indicator; it can back guardware's
// PendingHandler when the app uses Engine
func Pending(c *fiber.Ctx) error {
	c.Set(fiber.HeaderCacheControl, "no-store")
	c.Set(fiber.HeaderRetryAfter, "1")
	return c.Status(fiber.StatusAccepted).Render("pending", fiber.Map{})
}

func Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

func (h *Handler) page(title, summary string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		state, _ := guardware.StateFromContext(c)
		return c.Render("page", bind(c, fiber.Map{
			"title":   title,
			"summary": summary,
			"state":   state.String(),
		}))
	}
}

// bind adds the CSRF form bindings to m
func bind(c *fiber.Ctx, m fiber.Map) fiber.Map {
	for k, v := range csrf.TemplateHelpers(c) {
		m[k] = v
	}
	return m
}
