package handlers

import (
	"github.com/gofiber/fiber/v2"

	applog "github.com/xxwlkq/ecommerce-system/internal/log"
	"github.com/xxwlkq/ecommerce-system/internal/services"
	"github.com/xxwlkq/ecommerce-system/internal/validate"
)

type OrderHandler struct {
	Orders *services.OrderService
}

type purchaseReq struct {
	AddressID *int64 `json:"address_id" form:"address_id"`
}

// POST /api/v1/orders buys the whole cart. address_id is optional; the
// default address is used without it.
func (h *OrderHandler) Purchase(c *fiber.Ctx) error {
	var req purchaseReq
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return badInput(c, "orders.purchase", "body", "malformed request")
		}
	}
	if req.AddressID != nil && *req.AddressID <= 0 {
		return badInput(c, "orders.purchase", "address_id", "must be a positive integer")
	}
	rcpt, err := h.Orders.Purchase(c.UserContext(), actor(c), req.AddressID)
	if err != nil {
		return fail(c, "orders.purchase", err)
	}
	c.Status(fiber.StatusCreated)
	applog.Audit(c, "orders.purchase", map[string]any{
		"order_id": rcpt.OrderID,
		"total":    rcpt.Total.StringFixed(2),
	})
	return ok(c, "purchase successful", fiber.Map{
		"order_id":     rcpt.OrderID,
		"total_amount": rcpt.Total,
		"new_balance":  rcpt.NewBalance,
	})
}

// GET /api/v1/orders
func (h *OrderHandler) List(c *fiber.Ctx) error {
	list, err := h.Orders.ListByUser(c.UserContext(), currentUser(c).ID)
	if err != nil {
		return fail(c, "orders.list", err)
	}
	return ok(c, "", fiber.Map{"data": list, "count": len(list)})
}

// GET /api/v1/orders/:id
func (h *OrderHandler) Detail(c *fiber.Ctx) error {
	id, valid := validate.ID(c.Params("id"))
	if !valid {
		return badInput(c, "orders.detail", "order_id", "must be a positive integer")
	}
	o, err := h.Orders.Get(c.UserContext(), id, actor(c))
	if err != nil {
		return fail(c, "orders.detail", err)
	}
	return ok(c, "", fiber.Map{"data": o})
}

// POST /api/v1/orders/:id/cancel, also mounted for admins.
func (h *OrderHandler) Cancel(c *fiber.Ctx) error {
	id, valid := validate.ID(c.Params("id"))
	if !valid {
		return badInput(c, "orders.cancel", "order_id", "must be a positive integer")
	}
	res, err := h.Orders.Cancel(c.UserContext(), id, actor(c))
	if err != nil {
		return fail(c, "orders.cancel", err)
	}
	applog.Audit(c, "orders.cancel", map[string]any{"order_id": id, "skipped": res.SkippedProductIDs})
	return ok(c, "order cancelled", fiber.Map{
		"order_id":            res.OrderID,
		"new_balance":         res.NewBalance,
		"skipped_product_ids": res.SkippedProductIDs,
	})
}
