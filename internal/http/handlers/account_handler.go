package handlers

import (
	"encoding/json"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	applog "github.com/xxwlkq/ecommerce-system/internal/log"
	"github.com/xxwlkq/ecommerce-system/internal/services"
	"github.com/xxwlkq/ecommerce-system/internal/validate"
)

// AccountHandler serves the logged-in user's wallet, favorites and addresses.
type AccountHandler struct {
	Auth      *services.AuthService
	Addresses *services.AddressService
}

type rechargeReq struct {
	Amount    json.Number `json:"amount" form:"amount"`
	PayMethod string      `json:"pay_method" form:"pay_method"`
}

type favoriteReq struct {
	ProductID int64 `json:"product_id" form:"product_id"`
}

// money parses a JSON number or numeric string.
func money(n json.Number) (decimal.Decimal, bool) {
	d, err := decimal.NewFromString(string(n))
	return d, err == nil
}

// POST /api/v1/recharge
func (h *AccountHandler) Recharge(c *fiber.Ctx) error {
	var req rechargeReq
	if err := c.BodyParser(&req); err != nil {
		return badInput(c, "wallet.recharge", "body", "malformed request")
	}
	amount, valid := money(req.Amount)
	if !valid {
		return badInput(c, "wallet.recharge", "amount", "must be a number")
	}
	bal, err := h.Auth.Recharge(c.UserContext(), actor(c), amount, req.PayMethod)
	if err != nil {
		return fail(c, "wallet.recharge", err)
	}
	applog.Audit(c, "wallet.recharge", map[string]any{"amount": amount.StringFixed(2), "pay_method": req.PayMethod})
	return ok(c, "recharge successful", fiber.Map{"new_balance": bal})
}

// GET /api/v1/favorites
func (h *AccountHandler) Favorites(c *fiber.Ctx) error {
	ps, err := h.Auth.Favorites(c.UserContext(), currentUser(c).ID)
	if err != nil {
		return fail(c, "favorites.list", err)
	}
	return ok(c, "", fiber.Map{"data": ps, "count": len(ps)})
}

func parseFavorite(c *fiber.Ctx) (int64, error) {
	var req favoriteReq
	if err := c.BodyParser(&req); err != nil {
		return 0, &services.InputError{Field: "body", Reason: "malformed request"}
	}
	if req.ProductID <= 0 {
		return 0, &services.InputError{Field: "product_id", Reason: "must be a positive integer"}
	}
	return req.ProductID, nil
}

// POST /api/v1/favorites/add is idempotent.
func (h *AccountHandler) AddFavorite(c *fiber.Ctx) error {
	pid, err := parseFavorite(c)
	if err != nil {
		return fail(c, "favorites.add", err)
	}
	added, err := h.Auth.AddFavorite(c.UserContext(), actor(c), pid)
	if err != nil {
		return fail(c, "favorites.add", err)
	}
	msg := "already in favorites"
	if added {
		msg = "added to favorites"
		applog.Info(c, "favorites.add", map[string]any{"product_id": pid})
	}
	return ok(c, msg, fiber.Map{"added": added})
}

// POST /api/v1/favorites/remove
func (h *AccountHandler) RemoveFavorite(c *fiber.Ctx) error {
	pid, err := parseFavorite(c)
	if err != nil {
		return fail(c, "favorites.remove", err)
	}
	removed, err := h.Auth.RemoveFavorite(c.UserContext(), actor(c), pid)
	if err != nil {
		return fail(c, "favorites.remove", err)
	}
	msg := "not in favorites"
	if removed {
		msg = "removed from favorites"
		applog.Info(c, "favorites.remove", map[string]any{"product_id": pid})
	}
	return ok(c, msg, fiber.Map{"removed": removed})
}

// GET /api/v1/addresses
func (h *AccountHandler) ListAddresses(c *fiber.Ctx) error {
	as, err := h.Addresses.List(c.UserContext(), currentUser(c).ID)
	if err != nil {
		return fail(c, "addresses.list", err)
	}
	return ok(c, "", fiber.Map{"data": as})
}

// POST /api/v1/addresses
func (h *AccountHandler) AddAddress(c *fiber.Ctx) error {
	var in services.AddressInput
	if err := c.BodyParser(&in); err != nil {
		return badInput(c, "addresses.add", "body", "malformed request")
	}
	a, err := h.Addresses.Add(c.UserContext(), currentUser(c).ID, in)
	if err != nil {
		return fail(c, "addresses.add", err)
	}
	c.Status(fiber.StatusCreated)
	return ok(c, "address added", fiber.Map{"data": a})
}

// POST /api/v1/addresses/:id
func (h *AccountHandler) UpdateAddress(c *fiber.Ctx) error {
	id, valid := validate.ID(c.Params("id"))
	if !valid {
		return badInput(c, "addresses.update", "address_id", "must be a positive integer")
	}
	var in services.AddressInput
	if err := c.BodyParser(&in); err != nil {
		return badInput(c, "addresses.update", "body", "malformed request")
	}
	a, err := h.Addresses.Update(c.UserContext(), id, currentUser(c).ID, in)
	if err != nil {
		return fail(c, "addresses.update", err)
	}
	return ok(c, "address updated", fiber.Map{"data": a})
}

// POST /api/v1/addresses/:id/default
func (h *AccountHandler) SetDefaultAddress(c *fiber.Ctx) error {
	id, valid := validate.ID(c.Params("id"))
	if !valid {
		return badInput(c, "addresses.default", "address_id", "must be a positive integer")
	}
	if err := h.Addresses.SetDefault(c.UserContext(), id, currentUser(c).ID); err != nil {
		return fail(c, "addresses.default", err)
	}
	return ok(c, "default address set", nil)
}

// POST /api/v1/addresses/:id/delete
func (h *AccountHandler) DeleteAddress(c *fiber.Ctx) error {
	id, valid := validate.ID(c.Params("id"))
	if !valid {
		return badInput(c, "addresses.delete", "address_id", "must be a positive integer")
	}
	if err := h.Addresses.Delete(c.UserContext(), id, currentUser(c).ID); err != nil {
		return fail(c, "addresses.delete", err)
	}
	return ok(c, "address deleted", nil)
}
