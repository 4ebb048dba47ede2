package middleware

import (
	"time"

	"github.com/TimoLindner/Fanlume/app/repository"
	"github.com/TimoLindner/Fanlume/internal/pkg/database"
	"github.com/TimoLindner/Fanlume/internal/pkg/entitlements"
	"github.com/TimoLindner/Fanlume/internal/pkg/session"
	"github.com/TimoLindner/Fanlume/internal/pkg/usercontext"
	"github.com/gofiber/fiber/v2"
)

// UserContextMiddleware resolves the session into a UserContext once per
// request. Entitlement is recomputed from a fresh account snapshot on every
// request; it is never stored in the session, so a reconciliation handler
// flipping the account is visible on the very next request.
func UserContextMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userCtx := usercontext.UserContext{}

		store := session.GetSessionStore()
		if store == nil {
			c.Locals("USER_CONTEXT", userCtx)
			return c.Next()
		}

		sess, err := store.Get(c)
		if err != nil {
			c.Locals("USER_CONTEXT", userCtx)
			return c.Next()
		}

		if auth, ok := sess.Get(usercontext.AuthKey).(bool); ok && auth {
			userCtx.IsLoggedIn = true
			if v, ok := sess.Get(usercontext.KeyUserID).(uint); ok {
				userCtx.UserID = v
			}
			if v, ok := sess.Get(usercontext.KeyUsername).(string); ok {
				userCtx.Username = v
			}

			if userCtx.UserID != 0 {
				userRepo := repository.NewUserRepository(database.GetDB())
				if user, err := userRepo.GetByID(userCtx.UserID); err == nil {
					userCtx.IsAdmin = user.IsAdmin()
					userCtx.Entitled = entitlements.IsEntitled(user, time.Now())
				} else {
					// Stale session for a deleted account.
					userCtx = usercontext.UserContext{}
				}
			}
		}

		c.Locals("USER_CONTEXT", userCtx)
		return c.Next()
	}
}
