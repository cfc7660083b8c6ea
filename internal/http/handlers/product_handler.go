package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/xxwlkq/ecommerce-system/internal/services"
	"github.com/xxwlkq/ecommerce-system/internal/validate"
)

type ProductHandler struct {
	Catalog *services.CatalogService
}

// GET /api/v1/products?category=
func (h *ProductHandler) List(c *fiber.Ctx) error {
	ps, err := h.Catalog.List(c.UserContext(), c.Query("category"))
	if err != nil {
		return fail(c, "products.list", err)
	}
	return ok(c, "", fiber.Map{"data": ps, "count": len(ps)})
}

// GET /api/v1/products/categories
func (h *ProductHandler) Categories(c *fiber.Ctx) error {
	cats, err := h.Catalog.Categories(c.UserContext())
	if err != nil {
		return fail(c, "products.categories", err)
	}
	return ok(c, "", fiber.Map{"data": cats})
}

// GET /api/v1/products/:id records a view for the caller, guest or not.
func (h *ProductHandler) Detail(c *fiber.Ctx) error {
	id, valid := validate.ID(c.Params("id"))
	if !valid {
		return badInput(c, "products.detail", "product_id", "must be a positive integer")
	}
	p, err := h.Catalog.View(c.UserContext(), actor(c), id)
	if err != nil {
		return fail(c, "products.detail", err)
	}
	return ok(c, "", fiber.Map{"data": p})
}
