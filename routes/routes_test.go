package routes_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-guard"
	"github.com/goliatone/go-guard/middleware/guardware"
	"github.com/goliatone/go-guard/routes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

func page(name string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.SendString(name)
	}
}

func pages() routes.Pages {
	return routes.Pages{
		Login:               page("login"),
		LoginSubmit:         page("login.submit"),
		Home:                page("home"),
		Onboarding:          page("onboarding"),
		ManagerDashboard:    page("manager"),
		SupervisorDashboard: page("supervisor"),
		Logout:              page("logout"),
		Health:              page("ok"),
	}
}

func newApp(authenticated bool) *fiber.App {
	app := fiber.New()
	routes.Register(app, pages(), guardware.Config{
		Provider: func(*fiber.Ctx) (guard.IdentityProvider, error) {
			return guard.ProviderFuncs{
				Probe: func(context.Context) (bool, error) { return authenticated, nil },
			}, nil
		},
		Logger: nopLogger{},
	})
	return app
}

func TestTopLevelRouteConstants(t *testing.T) {
	assert.Equal(t, "/", routes.Root)
	assert.Equal(t, "/login", routes.Login)
	assert.Equal(t, "/onboarding", routes.Onboarding)
	assert.Equal(t, "/manager-dashboard", routes.ManagerDashboard)
	assert.Equal(t, "/supervisor-dashboard", routes.SupervisorDashboard)
}

func TestTablePolicies(t *testing.T) {
	policies := map[string]guard.Policy{}
	for _, r := range routes.Table(pages()) {
		if r.Method == fiber.MethodGet {
			policies[r.Path] = r.Policy
		}
	}

	assert.Equal(t, guard.RequireAnon, policies[routes.Login])
	assert.Equal(t, guard.RequireAuth, policies[routes.Root])
	assert.Equal(t, guard.RequireAuth, policies[routes.Onboarding])
	assert.Equal(t, guard.RequireAuth, policies[routes.ManagerDashboard])
	assert.Equal(t, guard.RequireAuth, policies[routes.SupervisorDashboard])
	assert.Zero(t, policies[routes.Health])
}

func TestGuardedRoutes(t *testing.T) {
	tests := []struct {
		name          string
		authenticated bool
		path          string
		status        int
		location      string
		body          string
	}{
		{name: "home signed in", authenticated: true, path: "/", status: fiber.StatusOK, body: "home"},
		{name: "home signed out", authenticated: false, path: "/", status: fiber.StatusFound, location: "/login"},
		{name: "onboarding signed out", authenticated: false, path: "/onboarding", status: fiber.StatusFound, location: "/login"},
		{name: "manager signed in", authenticated: true, path: "/manager-dashboard", status: fiber.StatusOK, body: "manager"},
		{name: "supervisor signed out", authenticated: false, path: "/supervisor-dashboard", status: fiber.StatusFound, location: "/login"},
		{name: "login signed out", authenticated: false, path: "/login", status: fiber.StatusOK, body: "login"},
		{name: "login signed in", authenticated: true, path: "/login", status: fiber.StatusFound, location: "/"},
		{name: "health is unguarded", authenticated: false, path: "/healthz", status: fiber.StatusOK, body: "ok"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := newApp(tt.authenticated).Test(httptest.NewRequest(http.MethodGet, tt.path, nil))
			require.NoError(t, err)

			assert.Equal(t, tt.status, resp.StatusCode)
			if tt.location != "" {
				assert.Equal(t, tt.location, resp.Header.Get(fiber.HeaderLocation))
			}
			if tt.body != "" {
				b, err := io.ReadAll(resp.Body)
				require.NoError(t, err)
				assert.Equal(t, tt.body, string(b))
			}
		})
	}
}

func TestUnknownPathsRedirectToRoot(t *testing.T) {
	for _, authenticated := range []bool{true, false} {
		app := newApp(authenticated)
		for _, path := range []string{"/nope", "/manager-dashboard/extra", "/a/b/c?x=1"} {
			resp, err := app.Test(httptest.NewRequest(http.MethodGet, path, nil))
			require.NoError(t, err)

			assert.Equal(t, fiber.StatusFound, resp.StatusCode, path)
			assert.Equal(t, "/", resp.Header.Get(fiber.HeaderLocation), path)
		}

		resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/nope", nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusSeeOther, resp.StatusCode)
	}
}

func TestUnknownPathsIgnoreLandingAndRouteMiddleware(t *testing.T) {
	app := fiber.New()
	reject := func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusForbidden)
	}
	routes.Register(app, pages(), guardware.Config{
		Provider: func(*fiber.Ctx) (guard.IdentityProvider, error) {
			return guard.AnonymousProvider(), nil
		},
		Redirects: guard.Redirects{AnonEntry: "/login", Landing: "/manager-dashboard"},
		Logger:    nopLogger{},
	}, reject)

	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/somewhere", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/", resp.Header.Get(fiber.HeaderLocation))

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/somewhere", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusFound, resp.StatusCode)
	assert.Equal(t, "/", resp.Header.Get(fiber.HeaderLocation))

	resp, err = app.Test(httptest.NewRequest(http.MethodPost, routes.Login, nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode, "table routes run the use handlers")
}

func TestRegisterPanicsWithoutGuardedPage(t *testing.T) {
	p := pages()
	p.Home = nil
	assert.Panics(t, func() {
		routes.Register(fiber.New(), p, guardware.Config{
			Provider: func(*fiber.Ctx) (guard.IdentityProvider, error) { return guard.AnonymousProvider(), nil },
		})
	})
}
