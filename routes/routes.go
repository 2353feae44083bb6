// Package routes holds the fixed path table of the scheduling application
// and composes each page with its guard.
package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-guard"
	"github.com/goliatone/go-guard/middleware/guardware"
)

const (
	Root                = "/"
	Login               = "/login"
	Logout              = "/logout"
	Onboarding          = "/onboarding"
	ManagerDashboard    = "/manager-dashboard"
	SupervisorDashboard = "/supervisor-dashboard"
	AuthState           = "/auth/state"
	Health              = "/healthz"
	CatchAll            = "*"
)

// Pages are the handlers mounted on the path table. Nil handlers are
// skipped, except the guarded pages which are required.
type Pages struct {
	Login               fiber.Handler
	LoginSubmit         fiber.Handler
	Home                fiber.Handler
	Onboarding          fiber.Handler
	ManagerDashboard    fiber.Handler
	SupervisorDashboard fiber.Handler
	Logout              fiber.Handler
	AuthState           fiber.Handler
	Health              fiber.Handler
}

// Route is one entry of the path table. Unguarded routes have a zero Policy.
type Route struct {
	Name    string
	Method  string
	Path    string
	Policy  guard.Policy
	Handler fiber.Handler
}

// Table returns the path table for pages, in registration order
func Table(pages Pages) []Route {
	return []Route{
		{Name: "health", Method: fiber.MethodGet, Path: Health, Handler: pages.Health},
		{Name: "login", Method: fiber.MethodGet, Path: Login, Policy: guard.RequireAnon, Handler: pages.Login},
		{Name: "login.submit", Method: fiber.MethodPost, Path: Login, Policy: guard.RequireAnon, Handler: pages.LoginSubmit},
		{Name: "logout", Method: fiber.MethodGet, Path: Logout, Handler: pages.Logout},
		{Name: "logout.submit", Method: fiber.MethodPost, Path: Logout, Handler: pages.Logout},
		{Name: "auth.state", Method: fiber.MethodGet, Path: AuthState, Handler: pages.AuthState},
		{Name: "home", Method: fiber.MethodGet, Path: Root, Policy: guard.RequireAuth, Handler: pages.Home},
		{Name: "onboarding", Method: fiber.MethodGet, Path: Onboarding, Policy: guard.RequireAuth, Handler: pages.Onboarding},
		{Name: "dashboard.manager", Method: fiber.MethodGet, Path: ManagerDashboard, Policy: guard.RequireAuth, Handler: pages.ManagerDashboard},
		{Name: "dashboard.supervisor", Method: fiber.MethodGet, Path: SupervisorDashboard, Policy: guard.RequireAuth, Handler: pages.SupervisorDashboard},
	}
}

// Register mounts the path table on router, wrapping guarded routes with a
// guardware handler built from mw, and redirects every other path to Root.
// The use handlers run ahead of every table route but never ahead of the
// catch-all.
func Register(router fiber.Router, pages Pages, mw guardware.Config, use ...fiber.Handler) {
	if mw.Redirects == (guard.Redirects{}) {
		mw.Redirects = guard.DefaultRedirects()
	}

	guards := map[guard.Policy]fiber.Handler{
		guard.RequireAuth: guardware.RequireAuth(mw),
		guard.RequireAnon: guardware.RequireAnon(mw),
	}

	for _, route := range Table(pages) {
		if route.Handler == nil {
			if route.Policy != 0 {
				panic("routes: guarded page " + route.Name + " has no handler")
			}
			continue
		}

		handlers := make([]fiber.Handler, 0, len(use)+2)
		handlers = append(handlers, use...)
		if mwh, ok := guards[route.Policy]; ok {
			handlers = append(handlers, mwh)
		}
		handlers = append(handlers, route.Handler)

		if route.Method == fiber.MethodGet {
			// Get also answers HEAD
			router.Get(route.Path, handlers...).Name(route.Name)
			continue
		}
		router.Add(route.Method, route.Path, handlers...).Name(route.Name)
	}

	router.Use(RedirectUnknown(Root))
}

// RedirectUnknown redirects any request that matched no route to target,
// whatever the caller's AuthState
func RedirectUnknown(target string) fiber.Handler {
	if target == "" {
		target = Root
	}
	return func(c *fiber.Ctx) error {
		return c.Redirect(target, guardware.RedirectStatus(c))
	}
}
