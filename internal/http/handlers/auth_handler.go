package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	applog "github.com/xxwlkq/ecommerce-system/internal/log"
	"github.com/xxwlkq/ecommerce-system/internal/services"
)

type AuthHandler struct {
	Auth *services.AuthService
}

type registerReq struct {
	Username string `json:"username" form:"username"`
	Phone    string `json:"phone" form:"phone"`
	Password string `json:"password" form:"password"`
}

type loginReq struct {
	// Account is a user id, username or phone number.
	Account  string `json:"account" form:"account"`
	Password string `json:"password" form:"password"`
}

type profileReq struct {
	Username *string `json:"username"`
	Phone    *string `json:"phone"`
}

// POST /api/v1/auth/register
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req registerReq
	if err := c.BodyParser(&req); err != nil {
		return badInput(c, "auth.register", "body", "malformed request")
	}
	u, err := h.Auth.Register(c.UserContext(), req.Username, req.Phone, req.Password)
	if err != nil {
		if errors.Is(err, services.ErrDuplicate) {
			applog.Security(c, "auth.register.fail", map[string]any{"username": req.Username, "reason": "duplicate"})
		}
		return fail(c, "auth.register", err)
	}
	c.Status(fiber.StatusCreated)
	applog.Audit(c, "auth.register.success", map[string]any{"user": u.ID})
	return ok(c, "registered", fiber.Map{"data": u})
}

// POST /api/v1/auth/login
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req loginReq
	if err := c.BodyParser(&req); err != nil {
		return badInput(c, "auth.login", "body", "malformed request")
	}
	// A presented sid is never promoted to an authenticated session.
	sid := uuid.NewString()
	u, err := h.Auth.Login(c.UserContext(), sid, req.Account, req.Password)
	if err != nil {
		c.Status(fiber.StatusUnauthorized)
		applog.Security(c, "auth.login.fail", map[string]any{"account": req.Account})
		return fail(c, "auth.login", err)
	}
	if old := c.Cookies(SessionCookie); old != "" {
		if err := h.Auth.Logout(c.UserContext(), old); err != nil {
			applog.Error(c, "auth.session.rotate", err, nil)
		}
	}
	setSID(c, sid)
	setUser(c, u)
	applog.Audit(c, "auth.login.success", map[string]any{"user": u.ID})
	return ok(c, "logged in", fiber.Map{"data": u})
}

// POST /api/v1/auth/logout
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	if sid := c.Cookies(SessionCookie); sid != "" {
		if err := h.Auth.Logout(c.UserContext(), sid); err != nil {
			applog.Error(c, "auth.logout.fail", err, nil)
		}
	}
	expireSID(c)
	applog.Audit(c, "auth.logout", nil)
	return ok(c, "logged out", nil)
}

// GET /api/v1/me
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	return ok(c, "", fiber.Map{"data": currentUser(c)})
}

// POST /api/v1/me/profile
func (h *AuthHandler) UpdateProfile(c *fiber.Ctx) error {
	var req profileReq
	if err := c.BodyParser(&req); err != nil {
		return badInput(c, "profile.update", "body", "malformed request")
	}
	u, err := h.Auth.UpdateProfile(c.UserContext(), currentUser(c).ID, req.Username, req.Phone)
	if err != nil {
		return fail(c, "profile.update", err)
	}
	setUser(c, u)
	applog.Audit(c, "profile.update", nil)
	return ok(c, "profile updated", fiber.Map{"data": u})
}

// GET /api/v1/me/stats
func (h *AuthHandler) Stats(c *fiber.Ctx) error {
	st, err := h.Auth.Stats(c.UserContext(), currentUser(c).ID)
	if err != nil {
		return fail(c, "profile.stats", err)
	}
	return ok(c, "", fiber.Map{"data": st})
}
