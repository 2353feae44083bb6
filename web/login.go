package web

import (
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-guard/middleware/guardware"
	"github.com/goliatone/go-guard/provider/session"
)

// LoginPayload is the sign in form
type LoginPayload struct {
	Identifier string `form:"identifier" json:"identifier"`
	Password   string `form:"password" json:"password"`
}

func (r LoginPayload) Validate() error {
	if err := errors.ValidateWithOzzo(func() error {
		return validation.ValidateStruct(&r,
			validation.Field(&r.Identifier, validation.Required, validation.Length(2, 254)),
			validation.Field(&r.Password, validation.Required, validation.Length(1, 200)),
		)
	}, "invalid login request payload"); err != nil {
		return err
	}
	return nil
}

func (h *Handler) LoginPage(c *fiber.Ctx) error {
	return c.Render("login", bind(c, fiber.Map{
		"external_login_url": h.cfg.ExternalLoginURL,
	}))
}

// LoginSubmit signs the user in and returns them to the route they were
// rejected from, or the landing path
func (h *Handler) LoginSubmit(c *fiber.Ctx) error {
	payload := new(LoginPayload)
	if err := c.BodyParser(payload); err != nil {
		return h.loginError(c, fiber.StatusBadRequest, "", "Invalid request.")
	}
	payload.Identifier = strings.TrimSpace(payload.Identifier)

	if err := payload.Validate(); err != nil {
		return h.loginError(c, fiber.StatusBadRequest, payload.Identifier, "Enter your email or username and password.")
	}

	token, claims, err := h.cfg.Sessions.Login(c.UserContext(), payload.Identifier, payload.Password)
	if err != nil {
		if errors.Is(err, session.ErrInvalidCredentials) {
			return h.loginError(c, fiber.StatusUnauthorized, payload.Identifier, "Invalid credentials.")
		}
		h.cfg.Logger.Error("login failed: %v", err)
		return h.loginError(c, fiber.StatusInternalServerError, payload.Identifier, "Sign in is unavailable, try again later.")
	}

	c.Cookie(&fiber.Cookie{
		Name:     h.cfg.CookieName,
		Value:    token,
		Expires:  claims.Expires(),
		HTTPOnly: true,
		Secure:   h.cfg.CookieSecure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})

	target := guardware.GetRejectedRouteOrDefault(c, h.cfg.RejectedRouteKey, h.cfg.Redirects.Landing)
	return c.Redirect(target, fiber.StatusSeeOther)
}

func (h *Handler) loginError(c *fiber.Ctx, status int, identifier, msg string) error {
	return c.Status(status).Render("login", bind(c, fiber.Map{
		"error":              msg,
		"identifier":         identifier,
		"external_login_url": h.cfg.ExternalLoginURL,
	}))
}

// Logout revokes the caller's session, when there is one, and clears the
// session cookie
func (h *Handler) Logout(c *fiber.Ctx) error {
	token, err := guardware.ExtractToken(c, h.cfg.Extractors)
	if err == nil && token != "" && h.cfg.Sessions != nil {
		if err := h.cfg.Sessions.Logout(c.UserContext(), strings.Clone(token)); err != nil {
			h.cfg.Logger.Error("logout failed: %v", err)
		}
	}

	c.ClearCookie(h.cfg.CookieName)
	return c.Redirect(h.cfg.Redirects.AnonEntry, guardware.RedirectStatus(c))
}
