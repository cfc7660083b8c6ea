package handlers

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/xxwlkq/ecommerce-system/internal/domain"
	applog "github.com/xxwlkq/ecommerce-system/internal/log"
	"github.com/xxwlkq/ecommerce-system/internal/services"
)

// SessionCookie holds the opaque session id bound to a user on login.
const SessionCookie = "sid"

func setSID(c *fiber.Ctx, sid string) {
	c.Cookie(&fiber.Cookie{
		Name:     SessionCookie,
		Value:    sid,
		Path:     "/",
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
		Secure:   false,
	})
}

func expireSID(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
		Expires:  time.Now().Add(-1 * time.Hour),
	})
}

func setUser(c *fiber.Ctx, u *domain.User) {
	c.Locals("user", u)
	c.Locals("user_id", u.ID)
}

func currentUser(c *fiber.Ctx) *domain.User {
	u, _ := c.Locals("user").(*domain.User)
	return u
}

// sessionUser returns the user already loaded for this request, or looks the
// session cookie up.
func sessionUser(c *fiber.Ctx, auth *services.AuthService) *domain.User {
	if u := currentUser(c); u != nil {
		return u
	}
	sid := c.Cookies(SessionCookie)
	if sid == "" {
		return nil
	}
	u, err := auth.CurrentUser(c.UserContext(), sid)
	if err != nil || u == nil {
		return nil
	}
	setUser(c, u)
	return u
}

// actor is the caller as seen by the services; User is nil for guests.
func actor(c *fiber.Ctx) services.Actor {
	return services.Actor{User: currentUser(c), SessionID: c.Cookies(SessionCookie)}
}

// LoadUser attaches the session's user to the request when there is one.
func LoadUser(auth *services.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sessionUser(c, auth)
		return c.Next()
	}
}

// RequireUser rejects requests without a logged-in user with 401.
func RequireUser(auth *services.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if sessionUser(c, auth) == nil {
			return unauthenticated(c)
		}
		return c.Next()
	}
}

// RequireAdmin lets only administrators through. API callers get a JSON 403,
// browsers the notfound page.
func RequireAdmin(auth *services.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		u := sessionUser(c, auth)
		if u != nil && u.IsAdmin {
			return c.Next()
		}
		c.Status(fiber.StatusForbidden)
		fields := map[string]any{}
		if u != nil {
			fields["user"] = u.ID
		}
		applog.Security(c, "access.denied.admin", fields)
		if strings.HasPrefix(c.Path(), "/api/") {
			return c.JSON(fiber.Map{"success": false, "msg": "access denied", "error": "forbidden"})
		}
		return render(c, "notfound", fiber.Map{"Message": "Access denied"})
	}
}
