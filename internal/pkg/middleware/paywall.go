package middleware

import (
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/TimoLindner/Fanlume/internal/pkg/cache"
	"github.com/TimoLindner/Fanlume/internal/pkg/usercontext"
	"github.com/gofiber/fiber/v2"
	"github.com/sujit-baniya/flash"
)

// paywallGracePeriod is how long a signed-in but non-entitled account may
// keep browsing premium routes before being sent to checkout. The window
// starts at the first premium request and is tracked in the cache, so it
// survives restarts but expires on its own.
const paywallGracePeriod = 24 * time.Hour

// RequirePaidAccess guards premium routes. Entitled accounts pass through.
// Non-entitled accounts get a one-time grace window; once it runs out they
// are redirected to the upgrade checkout.
func RequirePaidAccess() fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := usercontext.GetUserContext(c)
		if !ctx.IsLoggedIn {
			fm := fiber.Map{
				"type":    "error",
				"message": "Please sign in to view this content.",
			}
			return flash.WithError(c, fm).Redirect("/login")
		}
		if ctx.Entitled {
			return c.Next()
		}

		if withinGracePeriod(ctx.UserID) {
			return c.Next()
		}

		fm := fiber.Map{
			"type":    "info",
			"message": "Your free preview has ended. Upgrade to keep watching.",
		}
		return flash.WithInfo(c, fm).Redirect("/upgrade")
	}
}

// withinGracePeriod records the first premium visit and reports whether the
// window is still open. Cache failures fail open: a cache outage must not
// lock paying-intent users out of the preview.
func withinGracePeriod(userID uint) bool {
	key := fmt.Sprintf("paywall:grace:%d", userID)
	now := strconv.FormatInt(time.Now().Unix(), 10)

	created, err := cache.SetNX(key, now, paywallGracePeriod*2)
	if err != nil {
		log.Printf("[Paywall] grace tracking unavailable for user %d: %v", userID, err)
		return true
	}
	if created {
		return true
	}

	raw, err := cache.Get(key)
	if err != nil {
		return true
	}
	firstSeen, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return true
	}
	return !graceExpired(time.Unix(firstSeen, 0), time.Now())
}

// graceExpired reports whether a grace window opened at firstSeen has run
// out at the given instant.
func graceExpired(firstSeen, now time.Time) bool {
	return now.Sub(firstSeen) >= paywallGracePeriod
}
