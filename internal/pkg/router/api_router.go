package router

import (
	"time"

	"github.com/TimoLindner/Fanlume/app/controllers"
	"github.com/TimoLindner/Fanlume/internal/pkg/middleware"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
)

// ApiRouter carries the JSON API under /api/v1.
type ApiRouter struct {
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	api := app.Group("/api/v1", limiter.New(limiter.Config{
		Max:        60,
		Expiration: 1 * time.Minute,
	}))

	api.Post("/register", controllers.HandleRegister)
	api.Post("/login", controllers.HandleLogin)
	api.Post("/logout", controllers.HandleLogout)

	// Deferred registration has no session yet, so checkout intent creation
	// does its own per-purpose auth check.
	api.Post("/checkout", controllers.HandleCreateCheckout)

	authed := api.Group("", middleware.RequireAPIAuth())
	authed.Get("/entitlement", controllers.HandleEntitlementCheck)
	authed.Post("/subscription/cancel", controllers.HandleCancelSubscription)

	admin := api.Group("/admin", middleware.RequireAdmin())
	admin.Post("/free-access", controllers.HandleAdminFreeAccessGrant)
}

func NewApiRouter() *ApiRouter {
	return &ApiRouter{}
}
