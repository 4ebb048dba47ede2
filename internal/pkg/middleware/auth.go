package middleware

import (
	"github.com/TimoLindner/Fanlume/internal/pkg/usercontext"
	"github.com/gofiber/fiber/v2"
	"github.com/sujit-baniya/flash"
)

// RequireAuth guards browser routes: anonymous requests are redirected to the
// login page with a flash message.
func RequireAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if usercontext.IsLoggedIn(c) {
			return c.Next()
		}
		fm := fiber.Map{
			"type":    "error",
			"message": "Please sign in first.",
		}
		return flash.WithError(c, fm).Redirect("/login")
	}
}

// RequireAPIAuth guards JSON routes: anonymous requests get 401 instead of a
// redirect.
func RequireAPIAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if usercontext.IsLoggedIn(c) {
			return c.Next()
		}
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "authentication required",
		})
	}
}

// RequireAdmin guards administrative routes.
func RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := usercontext.GetUserContext(c)
		if !ctx.IsLoggedIn {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "authentication required",
			})
		}
		if !ctx.IsAdmin {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "admin role required",
			})
		}
		return c.Next()
	}
}
