package router

import (
	"github.com/TimoLindner/Fanlume/app/controllers"
	"github.com/TimoLindner/Fanlume/internal/pkg/middleware"
	"github.com/TimoLindner/Fanlume/internal/pkg/session"
	"github.com/gofiber/fiber/v2"
)

// HttpRouter carries the browser-facing routes and the provider webhook.
type HttpRouter struct {
}

func (h HttpRouter) InstallRouter(app *fiber.App) {
	session.NewSessionStore()
	app.Use(middleware.UserContextMiddleware())

	// The webhook authenticates by signature, not session; it must stay
	// outside every auth guard.
	app.Post("/webhooks/billing", controllers.HandleBillingWebhook)

	app.Get("/checkout/success", controllers.HandleCheckoutSuccess)
	app.Get("/checkout/cancel", controllers.HandleCheckoutCancel)

	app.Get("/account", middleware.RequireAuth(), controllers.HandleAccountOverview)

	premium := app.Group("/premium", middleware.RequirePaidAccess())
	premium.Get("/:itemRef", controllers.HandlePremiumContent)
}

func NewHttpRouter() *HttpRouter {
	return &HttpRouter{}
}
