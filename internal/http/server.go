// Package server assembles the Fiber application: middleware stack, views
// and routes.
package server

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/csrf"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/fiber/v2/utils"
	html "github.com/gofiber/template/html/v2"

	"github.com/xxwlkq/ecommerce-system/internal/http/handlers"
	applog "github.com/xxwlkq/ecommerce-system/internal/log"
	"github.com/xxwlkq/ecommerce-system/internal/metrics"
	"github.com/xxwlkq/ecommerce-system/web"
)

const friendlyError = "Something went wrong. Please try again."

type Options struct {
	// CSRF enables double-submit tokens read from the X-CSRF-Token header.
	CSRF bool
	// RateLimit is requests per minute per client IP. 0 disables it.
	RateLimit int
	// AuthLimit is login or register attempts per 10 minutes per client IP. 0 disables it.
	AuthLimit int
	// BodyLimit caps request bodies in bytes.
	BodyLimit int
}

// DefaultOptions are the production settings.
func DefaultOptions() Options {
	return Options{CSRF: true, RateLimit: 60, AuthLimit: 5, BodyLimit: 1 << 20}
}

func isAPI(c *fiber.Ctx) bool { return strings.HasPrefix(c.Path(), "/api/") }

// errorHandler answers API paths with the JSON failure envelope and pages with
// the notfound view. Internals are logged, never sent.
func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	c.Status(code)
	msg := friendlyError
	if code < fiber.StatusInternalServerError {
		msg = utils.StatusMessage(code)
		applog.Info(c, "server.reject", map[string]any{"error": err.Error()})
	} else {
		applog.Error(c, "server.error", err, nil)
	}
	if isAPI(c) {
		kind := strings.ToLower(strings.ReplaceAll(utils.StatusMessage(code), " ", "_"))
		return c.JSON(fiber.Map{"success": false, "msg": msg, "error": kind})
	}
	if code == fiber.StatusNotFound {
		msg = "Page not found"
	}
	if rerr := c.Render("notfound", fiber.Map{"Message": msg}); rerr != nil {
		return c.SendString(msg)
	}
	return nil
}

func tooMany(action string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		applog.Security(c, action, nil)
		return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
			"success": false,
			"msg":     "Too many attempts. Please try again later.",
			"error":   "rate_limited",
		})
	}
}

func authLimiter(max int, name string) fiber.Handler {
	if max <= 0 {
		return func(c *fiber.Ctx) error { return c.Next() }
	}
	return limiter.New(limiter.Config{
		Max:          max,
		Expiration:   10 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string { return c.IP() + "|" + name },
		LimitReached: tooMany("rate." + name + ".hit"),
	})
}

// New builds the application over d.
func New(d *handlers.Deps, opts Options) *fiber.App {
	engine := html.NewFileSystem(http.FS(web.Templates()), ".html")

	bodyLimit := opts.BodyLimit
	if bodyLimit <= 0 {
		bodyLimit = 1 << 20
	}
	app := fiber.New(fiber.Config{
		Views:        engine,
		BodyLimit:    bodyLimit,
		ErrorHandler: errorHandler,
	})

	// ---------- Middlewares ----------
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(metrics.Middleware())
	app.Use(helmet.New())
	app.Use(cors.New())
	app.Use(handlers.LoadUser(d.Auth))
	if opts.RateLimit > 0 {
		app.Use(limiter.New(limiter.Config{
			Max:        opts.RateLimit,
			Expiration: time.Minute,
			Next: func(c *fiber.Ctx) bool {
				p := c.Path()
				return p == "/healthz" || p == "/metrics"
			},
			LimitReached: tooMany("rate.global.hit"),
		}))
	}
	if opts.CSRF {
		app.Use(csrf.New(csrf.Config{
			KeyLookup:      "header:X-CSRF-Token",
			CookieName:     "csrf_",
			CookieSameSite: "Lax",
			CookieSecure:   false, // set true behind HTTPS
			ContextKey:     "csrf",
			Expiration:     time.Hour,
			ErrorHandler: func(c *fiber.Ctx, err error) error {
				c.Status(fiber.StatusForbidden)
				applog.Security(c, "csrf.fail", map[string]any{"reason": err.Error()})
				return c.JSON(fiber.Map{
					"success": false,
					"msg":     "Security check failed. Please refresh and try again.",
					"error":   "csrf",
				})
			},
		}))
	}

	// ---------- Ops ----------
	app.Get("/healthz", func(c *fiber.Ctx) error { return c.JSON(fiber.Map{"ok": true}) })
	app.Get("/metrics", metrics.Handler())

	// ---------- API ----------
	user := handlers.RequireUser(d.Auth)
	admin := handlers.RequireAdmin(d.Auth)
	api := app.Group("/api/v1")

	api.Post("/auth/register", authLimiter(opts.AuthLimit, "register"), d.AuthHandler.Register)
	api.Post("/auth/login", authLimiter(opts.AuthLimit, "login"), d.AuthHandler.Login)
	api.Post("/auth/logout", d.AuthHandler.Logout)
	api.Get("/me", user, d.AuthHandler.Me)
	api.Post("/me/profile", user, d.AuthHandler.UpdateProfile)
	api.Get("/me/stats", user, d.AuthHandler.Stats)

	api.Get("/products", d.ProductHandler.List)
	api.Get("/products/categories", d.ProductHandler.Categories)
	api.Get("/products/:id", d.ProductHandler.Detail)

	api.Get("/cart", user, d.CartHandler.View)
	api.Post("/cart/add", user, d.CartHandler.Add)
	api.Post("/cart/update", user, d.CartHandler.Update)
	api.Post("/cart/remove", user, d.CartHandler.Remove)
	api.Post("/cart/clear", user, d.CartHandler.Clear)

	api.Post("/orders", user, d.OrderHandler.Purchase)
	api.Get("/orders", user, d.OrderHandler.List)
	api.Get("/orders/:id", user, d.OrderHandler.Detail)
	api.Post("/orders/:id/cancel", user, d.OrderHandler.Cancel)

	api.Post("/recharge", user, d.AccountHandler.Recharge)
	api.Get("/favorites", user, d.AccountHandler.Favorites)
	api.Post("/favorites/add", user, d.AccountHandler.AddFavorite)
	api.Post("/favorites/remove", user, d.AccountHandler.RemoveFavorite)
	api.Get("/addresses", user, d.AccountHandler.ListAddresses)
	api.Post("/addresses", user, d.AccountHandler.AddAddress)
	api.Post("/addresses/:id", user, d.AccountHandler.UpdateAddress)
	api.Post("/addresses/:id/default", user, d.AccountHandler.SetDefaultAddress)
	api.Post("/addresses/:id/delete", user, d.AccountHandler.DeleteAddress)

	// ---------- Admin ----------
	app.Get("/admin", admin, d.AdminHandler.Dashboard)
	adm := api.Group("/admin", admin)
	adm.Get("/analytics", d.AdminHandler.AnalyticsJSON)
	adm.Get("/orders", d.AdminHandler.OrdersList)
	adm.Post("/orders/:id/cancel", d.OrderHandler.Cancel)
	adm.Get("/users", d.AdminHandler.Users)
	adm.Post("/products", d.AdminHandler.CreateProduct)
	adm.Post("/products/:id", d.AdminHandler.UpdateProduct)
	adm.Post("/products/:id/delete", d.AdminHandler.DeleteProduct)
	adm.Post("/products/:id/stock", d.AdminHandler.AdjustStock)
	adm.Get("/export/:key", d.AdminHandler.ExportCSV)

	app.Use(func(c *fiber.Ctx) error { return fiber.ErrNotFound })
	return app
}
