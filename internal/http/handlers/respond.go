package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	applog "github.com/xxwlkq/ecommerce-system/internal/log"
	"github.com/xxwlkq/ecommerce-system/internal/services"
)

const genericFailure = "Something went wrong, please try again later"

// ok writes the success envelope merged with data.
func ok(c *fiber.Ctx, msg string, data fiber.Map) error {
	body := fiber.Map{"success": true, "msg": msg}
	for k, v := range data {
		body[k] = v
	}
	return c.JSON(body)
}

// failure is the status, kind and extra body fields for one error.
type failure struct {
	status int
	kind   string
	msg    string
	extra  fiber.Map
}

func classify(err error) failure {
	var (
		ie *services.InputError
		se *services.InsufficientStockError
		be *services.InsufficientBalanceError
	)
	switch {
	case errors.As(err, &ie):
		return failure{fiber.StatusBadRequest, "invalid_input", ie.Error(), fiber.Map{"field": ie.Field}}
	case errors.As(err, &se):
		return failure{fiber.StatusConflict, "insufficient_stock", se.Error(), fiber.Map{
			"product_id": se.ProductID,
			"requested":  se.Requested,
			"available":  se.Available,
		}}
	case errors.As(err, &be):
		return failure{fiber.StatusConflict, "insufficient_balance", be.Error(), fiber.Map{
			"need_recharge": true,
			"shortfall":     be.Shortfall.StringFixed(2),
		}}
	case errors.Is(err, services.ErrInsufficientBalance):
		return failure{fiber.StatusConflict, "insufficient_balance", err.Error(), fiber.Map{"need_recharge": true}}
	case errors.Is(err, services.ErrInsufficientStock):
		return failure{fiber.StatusConflict, "insufficient_stock", err.Error(), nil}
	case errors.Is(err, services.ErrNotFound):
		return failure{fiber.StatusNotFound, "not_found", "not found", nil}
	case errors.Is(err, services.ErrDuplicate):
		return failure{fiber.StatusConflict, "duplicate", "already exists", nil}
	case errors.Is(err, services.ErrInvalidInput):
		return failure{fiber.StatusBadRequest, "invalid_input", err.Error(), nil}
	case errors.Is(err, services.ErrEmptyCart):
		return failure{fiber.StatusBadRequest, "empty_cart", err.Error(), nil}
	case errors.Is(err, services.ErrNoAddress):
		return failure{fiber.StatusBadRequest, "no_address", err.Error(), nil}
	case errors.Is(err, services.ErrNotInCart):
		return failure{fiber.StatusBadRequest, "not_in_cart", err.Error(), nil}
	case errors.Is(err, services.ErrForbidden):
		return failure{fiber.StatusForbidden, "forbidden", "access denied", nil}
	case errors.Is(err, services.ErrInvalidState):
		return failure{fiber.StatusConflict, "invalid_state", err.Error(), nil}
	case errors.Is(err, services.ErrBadCreds):
		return failure{fiber.StatusUnauthorized, "bad_credentials", err.Error(), nil}
	}
	return failure{fiber.StatusInternalServerError, "internal", genericFailure, nil}
}

// fail maps a service error onto the failure envelope. Internal errors are
// logged under action+".fail" and never echoed to the client.
func fail(c *fiber.Ctx, action string, err error) error {
	f := classify(err)
	body := fiber.Map{"success": false, "msg": f.msg, "error": f.kind}
	for k, v := range f.extra {
		body[k] = v
	}
	c.Status(f.status)
	switch {
	case f.status == fiber.StatusInternalServerError:
		applog.Error(c, action+".fail", err, nil)
	case f.status == fiber.StatusForbidden:
		applog.Security(c, action+".denied", nil)
	default:
		applog.Info(c, action+".rejected", map[string]any{"error": f.kind})
	}
	return c.JSON(body)
}

// badInput rejects a request whose body or params did not parse.
func badInput(c *fiber.Ctx, action, field, reason string) error {
	applog.Security(c, "validation.fail", map[string]any{"action": action, "field": field})
	return fail(c, action, &services.InputError{Field: field, Reason: reason})
}

func unauthenticated(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"success": false,
		"msg":     "please log in first",
		"error":   "unauthenticated",
	})
}
