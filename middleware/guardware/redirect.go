package guardware

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
)

// SetRejectedRoute remembers the current URL so a later login can return to it
func SetRejectedRoute(c *fiber.Ctx, cfg Config) {
	c.Cookie(&fiber.Cookie{
		Name:     cfg.RejectedRouteKey,
		Value:    c.OriginalURL(),
		Expires:  time.Now().Add(cfg.RejectedRouteTTL),
		HTTPOnly: true,
		Secure:   cfg.CookieSecure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

// GetRejectedRouteOrDefault returns the remembered URL, or def when there is
// none or it is not a local path. The cookie is cleared either way.
func GetRejectedRouteOrDefault(c *fiber.Ctx, key, def string) string {
	if key == "" {
		key = DefaultRejectedRouteKey
	}

	r := strings.Clone(c.Cookies(key))
	c.ClearCookie(key)

	if !IsLocalPath(r) {
		return def
	}
	return r
}

// IsLocalPath rejects empty, absolute and scheme relative URLs
func IsLocalPath(p string) bool {
	if p == "" || !strings.HasPrefix(p, "/") {
		return false
	}
	if strings.HasPrefix(p, "//") || strings.HasPrefix(p, "/\\") {
		return false
	}
	return true
}
