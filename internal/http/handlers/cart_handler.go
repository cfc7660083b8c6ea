package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/xxwlkq/ecommerce-system/internal/domain"
	applog "github.com/xxwlkq/ecommerce-system/internal/log"
	"github.com/xxwlkq/ecommerce-system/internal/services"
)

type CartHandler struct {
	Cart *services.CartService
}

type cartReq struct {
	ProductID int64 `json:"product_id" form:"product_id"`
	Quantity  *int  `json:"quantity" form:"quantity"`
}

func (r cartReq) qty(def int) int {
	if r.Quantity == nil {
		return def
	}
	return *r.Quantity
}

func cartBody(s domain.CartSummary) fiber.Map {
	return fiber.Map{"cart_count": s.Count, "total_amount": s.Total}
}

func parseCart(c *fiber.Ctx) (cartReq, error) {
	var req cartReq
	if err := c.BodyParser(&req); err != nil {
		return req, &services.InputError{Field: "body", Reason: "malformed request"}
	}
	if req.ProductID <= 0 {
		return req, &services.InputError{Field: "product_id", Reason: "must be a positive integer"}
	}
	return req, nil
}

// GET /api/v1/cart
func (h *CartHandler) View(c *fiber.Ctx) error {
	cv, err := h.Cart.View(c.UserContext(), currentUser(c).ID)
	if err != nil {
		return fail(c, "cart.view", err)
	}
	return ok(c, "", fiber.Map{"data": cv.Items, "cart_count": cv.Count, "total_amount": cv.Total})
}

// POST /api/v1/cart/add
func (h *CartHandler) Add(c *fiber.Ctx) error {
	req, err := parseCart(c)
	if err != nil {
		return fail(c, "cart.add", err)
	}
	s, err := h.Cart.Add(c.UserContext(), actor(c), req.ProductID, req.qty(1))
	if err != nil {
		return fail(c, "cart.add", err)
	}
	applog.Info(c, "cart.add", map[string]any{"product_id": req.ProductID, "quantity": req.qty(1)})
	return ok(c, "added to cart", cartBody(s))
}

// POST /api/v1/cart/update; quantity 0 removes the line.
func (h *CartHandler) Update(c *fiber.Ctx) error {
	req, err := parseCart(c)
	if err != nil {
		return fail(c, "cart.update", err)
	}
	if req.Quantity == nil {
		return badInput(c, "cart.update", "quantity", "required")
	}
	s, err := h.Cart.SetQuantity(c.UserContext(), actor(c), req.ProductID, *req.Quantity)
	if err != nil {
		return fail(c, "cart.update", err)
	}
	applog.Info(c, "cart.update", map[string]any{"product_id": req.ProductID, "quantity": *req.Quantity})
	return ok(c, "cart updated", cartBody(s))
}

// POST /api/v1/cart/remove
func (h *CartHandler) Remove(c *fiber.Ctx) error {
	req, err := parseCart(c)
	if err != nil {
		return fail(c, "cart.remove", err)
	}
	s, err := h.Cart.Remove(c.UserContext(), actor(c), req.ProductID)
	if err != nil {
		return fail(c, "cart.remove", err)
	}
	applog.Info(c, "cart.remove", map[string]any{"product_id": req.ProductID})
	return ok(c, "removed from cart", cartBody(s))
}

// POST /api/v1/cart/clear
func (h *CartHandler) Clear(c *fiber.Ctx) error {
	s, err := h.Cart.Clear(c.UserContext(), actor(c))
	if err != nil {
		return fail(c, "cart.clear", err)
	}
	return ok(c, "cart cleared", cartBody(s))
}
