package handlers

import (
	"bytes"
	"encoding/json"

	"github.com/gofiber/fiber/v2"

	"github.com/xxwlkq/ecommerce-system/internal/domain"
	applog "github.com/xxwlkq/ecommerce-system/internal/log"
	"github.com/xxwlkq/ecommerce-system/internal/services"
	"github.com/xxwlkq/ecommerce-system/internal/validate"
)

type AdminHandler struct {
	Catalog   *services.CatalogService
	Orders    *services.OrderService
	Auth      *services.AuthService
	Analytics *services.AnalyticsService
	Export    *services.ExportService
}

type productReq struct {
	Name        *string      `json:"name"`
	Category    *string      `json:"category"`
	Price       *json.Number `json:"price"`
	Stock       *int         `json:"stock"`
	Description *string      `json:"description"`
	Image       *string      `json:"image"`
}

func (r productReq) patch() (domain.ProductPatch, error) {
	p := domain.ProductPatch{
		Name:        r.Name,
		Category:    r.Category,
		Stock:       r.Stock,
		Description: r.Description,
		Image:       r.Image,
	}
	if r.Price != nil {
		d, valid := money(*r.Price)
		if !valid {
			return p, &services.InputError{Field: "price", Reason: "must be a number"}
		}
		p.Price = &d
	}
	return p, nil
}

func parseProduct(c *fiber.Ctx) (domain.ProductPatch, error) {
	var req productReq
	if err := c.BodyParser(&req); err != nil {
		return domain.ProductPatch{}, &services.InputError{Field: "body", Reason: "malformed request"}
	}
	return req.patch()
}

// GET /admin
func (h *AdminHandler) Dashboard(c *fiber.Ctx) error {
	d, err := h.Analytics.Dashboard(c.UserContext())
	if err != nil {
		applog.Error(c, "admin.dashboard.fail", err, nil)
		return c.Status(fiber.StatusInternalServerError).Render("notfound", fiber.Map{"Message": "Could not load the dashboard"})
	}
	return render(c, "admin_dashboard", fiber.Map{"D": d})
}

// GET /api/v1/admin/analytics
func (h *AdminHandler) AnalyticsJSON(c *fiber.Ctx) error {
	d, err := h.Analytics.Dashboard(c.UserContext())
	if err != nil {
		return fail(c, "admin.analytics", err)
	}
	return ok(c, "", fiber.Map{"data": d})
}

// GET /api/v1/admin/orders
func (h *AdminHandler) OrdersList(c *fiber.Ctx) error {
	list, err := h.Orders.ListAll(c.UserContext())
	if err != nil {
		return fail(c, "admin.orders.list", err)
	}
	return ok(c, "", fiber.Map{"data": list, "count": len(list)})
}

// GET /api/v1/admin/users
func (h *AdminHandler) Users(c *fiber.Ctx) error {
	us, err := h.Auth.Users(c.UserContext())
	if err != nil {
		return fail(c, "admin.users.list", err)
	}
	return ok(c, "", fiber.Map{"data": us, "count": len(us)})
}

// POST /api/v1/admin/products
func (h *AdminHandler) CreateProduct(c *fiber.Ctx) error {
	patch, err := parseProduct(c)
	if err != nil {
		return fail(c, "admin.products.create", err)
	}
	p, err := h.Catalog.Create(c.UserContext(), patch.Apply(domain.Product{}))
	if err != nil {
		return fail(c, "admin.products.create", err)
	}
	c.Status(fiber.StatusCreated)
	applog.Audit(c, "admin.products.create", map[string]any{"product_id": p.ID, "name": p.Name})
	return ok(c, "product created", fiber.Map{"data": p})
}

// POST /api/v1/admin/products/:id applies the fields present in the body.
func (h *AdminHandler) UpdateProduct(c *fiber.Ctx) error {
	id, valid := validate.ID(c.Params("id"))
	if !valid {
		return badInput(c, "admin.products.update", "product_id", "must be a positive integer")
	}
	patch, err := parseProduct(c)
	if err != nil {
		return fail(c, "admin.products.update", err)
	}
	p, err := h.Catalog.Update(c.UserContext(), id, patch)
	if err != nil {
		return fail(c, "admin.products.update", err)
	}
	applog.Audit(c, "admin.products.update", map[string]any{"product_id": id})
	return ok(c, "product updated", fiber.Map{"data": p})
}

// POST /api/v1/admin/products/:id/delete
func (h *AdminHandler) DeleteProduct(c *fiber.Ctx) error {
	id, valid := validate.ID(c.Params("id"))
	if !valid {
		return badInput(c, "admin.products.delete", "product_id", "must be a positive integer")
	}
	if err := h.Catalog.Delete(c.UserContext(), id); err != nil {
		return fail(c, "admin.products.delete", err)
	}
	applog.Audit(c, "admin.products.delete", map[string]any{"product_id": id})
	return ok(c, "product deleted", nil)
}

type stockReq struct {
	Delta int `json:"delta" form:"delta"`
}

// POST /api/v1/admin/products/:id/stock adds delta, flooring at zero.
func (h *AdminHandler) AdjustStock(c *fiber.Ctx) error {
	id, valid := validate.ID(c.Params("id"))
	if !valid {
		return badInput(c, "admin.inventory.adjust", "product_id", "must be a positive integer")
	}
	var req stockReq
	if err := c.BodyParser(&req); err != nil {
		return badInput(c, "admin.inventory.adjust", "body", "malformed request")
	}
	stock, clamped, err := h.Catalog.AdjustStock(c.UserContext(), id, req.Delta)
	if err != nil {
		return fail(c, "admin.inventory.adjust", err)
	}
	applog.Audit(c, "admin.inventory.adjust", map[string]any{
		"product_id": id,
		"delta":      req.Delta,
		"stock":      stock,
		"clamped":    clamped,
	})
	return ok(c, "stock updated", fiber.Map{"stock": stock, "clamped": clamped})
}

// GET /api/v1/admin/export/:key streams a CSV download.
func (h *AdminHandler) ExportCSV(c *fiber.Ctx) error {
	key := c.Params("key")
	var buf bytes.Buffer
	if err := h.Export.Export(c.UserContext(), key, &buf); err != nil {
		return fail(c, "admin.export", err)
	}
	applog.Audit(c, "admin.export", map[string]any{"key": key})
	c.Set(fiber.HeaderContentType, "text/csv; charset=utf-8")
	c.Attachment(key + ".csv")
	return c.Send(buf.Bytes())
}
