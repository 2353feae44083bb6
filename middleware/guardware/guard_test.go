package guardware_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-guard"
	"github.com/goliatone/go-guard/middleware/guardware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

func staticProvider(ok bool, err error) guardware.ProviderFactory {
	return func(*fiber.Ctx) (guard.IdentityProvider, error) {
		return guard.ProviderFuncs{
			Probe: func(context.Context) (bool, error) { return ok, err },
		}, nil
	}
}

func newApp(t *testing.T, mw fiber.Handler) *fiber.App {
	t.Helper()
	app := fiber.New()
	handler := func(c *fiber.Ctx) error {
		state, _ := guardware.StateFromContext(c)
		return c.SendString("content:" + state.String())
	}
	app.Get("/dashboard", mw, handler)
	app.Post("/dashboard", mw, handler)
	return app
}

func body(t *testing.T, resp *http.Response) string {
	t.Helper()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(b)
}

func findCookie(resp *http.Response, name string) *http.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestRequireAuthRendersForAuthenticated(t *testing.T) {
	app := newApp(t, guardware.RequireAuth(guardware.Config{
		Provider: staticProvider(true, nil),
		Logger:   nopLogger{},
	}))

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/dashboard", nil))
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "content:authenticated", body(t, resp))
}

func TestRequireAuthRedirectsUnauthenticated(t *testing.T) {
	app := newApp(t, guardware.RequireAuth(guardware.Config{
		Provider: staticProvider(false, nil),
		Logger:   nopLogger{},
	}))

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/dashboard?tab=week", nil))
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusFound, resp.StatusCode)
	assert.Equal(t, "/login", resp.Header.Get(fiber.HeaderLocation))

	cookie := findCookie(resp, guardware.DefaultRejectedRouteKey)
	require.NotNil(t, cookie)
	assert.Equal(t, "/dashboard?tab=week", cookie.Value)
	assert.True(t, cookie.HttpOnly)
}

func TestRequireAuthRedirectsPostWithSeeOther(t *testing.T) {
	app := newApp(t, guardware.RequireAuth(guardware.Config{
		Provider: staticProvider(false, nil),
		Logger:   nopLogger{},
	}))

	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/dashboard", nil))
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/login", resp.Header.Get(fiber.HeaderLocation))
}

func TestRequireAuthProbeFailureRedirectsToLogin(t *testing.T) {
	app := newApp(t, guardware.RequireAuth(guardware.Config{
		Provider: staticProvider(false, errors.New("NetworkError")),
		Logger:   nopLogger{},
	}))

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/dashboard", nil))
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusFound, resp.StatusCode)
	assert.Equal(t, "/login", resp.Header.Get(fiber.HeaderLocation))
}

func TestRequireAuthFactoryErrorRedirectsToLogin(t *testing.T) {
	app := newApp(t, guardware.RequireAuth(guardware.Config{
		Provider: func(*fiber.Ctx) (guard.IdentityProvider, error) {
			return nil, errors.New("identity service unavailable")
		},
		Logger: nopLogger{},
	}))

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/dashboard", nil))
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusFound, resp.StatusCode)
	assert.Equal(t, "/login", resp.Header.Get(fiber.HeaderLocation))
}

func TestRequireAnonRedirectsAuthenticated(t *testing.T) {
	app := newApp(t, guardware.RequireAnon(guardware.Config{
		Provider: staticProvider(true, nil),
		Logger:   nopLogger{},
	}))

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/dashboard", nil))
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusFound, resp.StatusCode)
	assert.Equal(t, "/", resp.Header.Get(fiber.HeaderLocation))
	assert.Nil(t, findCookie(resp, guardware.DefaultRejectedRouteKey))
}

func TestRequireAnonRendersForUnauthenticated(t *testing.T) {
	app := newApp(t, guardware.RequireAnon(guardware.Config{
		Provider: staticProvider(false, nil),
		Logger:   nopLogger{},
	}))

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/dashboard", nil))
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "content:unauthenticated", body(t, resp))
}

func TestGuardRendersPendingWhenUnresolved(t *testing.T) {
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })

	app := newApp(t, guardware.RequireAuth(guardware.Config{
		Provider: func(*fiber.Ctx) (guard.IdentityProvider, error) {
			return guard.ProviderFuncs{
				Probe: func(context.Context) (bool, error) {
					<-release
					return true, nil
				},
			}, nil
		},
		ResolveTimeout: 20 * time.Millisecond,
		Logger:         nopLogger{},
	}))

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/dashboard", nil))
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusAccepted, resp.StatusCode)
	assert.Equal(t, "1", resp.Header.Get("Refresh"))
	assert.NotContains(t, body(t, resp), "content:")
}

func TestGuardCustomPendingHandler(t *testing.T) {
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })

	app := newApp(t, guardware.RequireAnon(guardware.Config{
		Provider: func(*fiber.Ctx) (guard.IdentityProvider, error) {
			return guard.ProviderFuncs{
				Probe: func(context.Context) (bool, error) {
					<-release
					return false, nil
				},
			}, nil
		},
		ResolveTimeout: 10 * time.Millisecond,
		PendingHandler: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusServiceUnavailable).SendString("spinner")
		},
		Logger: nopLogger{},
	}))

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/dashboard", nil))
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, "spinner", body(t, resp))
}

func TestGuardReleasesSubscriptionAfterRequest(t *testing.T) {
	subscribed := make(chan struct{}, 1)
	released := make(chan struct{}, 1)

	app := newApp(t, guardware.RequireAuth(guardware.Config{
		Provider: func(*fiber.Ctx) (guard.IdentityProvider, error) {
			return guard.ProviderFuncs{
				Probe: func(context.Context) (bool, error) { return true, nil },
				Subscribe: func(guard.AuthStateHandler) guard.Unsubscribe {
					subscribed <- struct{}{}
					return func() { released <- struct{}{} }
				},
			}, nil
		},
		Logger: nopLogger{},
	}))

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/dashboard", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	select {
	case <-subscribed:
	default:
		t.Fatal("guard never subscribed")
	}

	select {
	case <-released:
	case <-time.After(time.Second):
		t.Fatal("subscription was not released")
	}
}

func TestGuardFilterSkips(t *testing.T) {
	app := newApp(t, guardware.RequireAuth(guardware.Config{
		Provider: staticProvider(false, nil),
		Filter: func(c *fiber.Ctx) bool {
			return c.Query("skip") == "1"
		},
		Logger: nopLogger{},
	}))

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/dashboard?skip=1", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestGetDefaultConfigPanicsWithoutProvider(t *testing.T) {
	assert.Panics(t, func() {
		guardware.GetDefaultConfig(guardware.Config{})
	})
}

func TestGetDefaultConfigDefaults(t *testing.T) {
	cfg := guardware.GetDefaultConfig(guardware.Config{Provider: staticProvider(true, nil)})

	assert.Equal(t, guard.RequireAuth, cfg.Policy)
	assert.Equal(t, "/login", cfg.Redirects.AnonEntry)
	assert.Equal(t, "/", cfg.Redirects.Landing)
	assert.Equal(t, guardware.DefaultResolveTimeout, cfg.ResolveTimeout)
	assert.Equal(t, guardware.DefaultContextKey, cfg.ContextKey)
	assert.NotNil(t, cfg.PendingHandler)
	assert.NotNil(t, cfg.Logger)
}
