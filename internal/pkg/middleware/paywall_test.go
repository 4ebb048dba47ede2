package middleware

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/TimoLindner/Fanlume/internal/pkg/usercontext"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// paywallTestApp mounts RequirePaidAccess behind a stub that injects the
// given user context, the way UserContextMiddleware would.
func paywallTestApp(ctx usercontext.UserContext) *fiber.App {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("USER_CONTEXT", ctx)
		return c.Next()
	})
	app.Get("/premium/:itemRef", RequirePaidAccess(), func(c *fiber.Ctx) error {
		return c.SendString("content")
	})
	return app
}

func TestRequirePaidAccessEntitledPassesThrough(t *testing.T) {
	app := paywallTestApp(usercontext.UserContext{
		UserID:     1,
		IsLoggedIn: true,
		Entitled:   true,
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/premium/video-7", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestRequirePaidAccessAnonymousRedirectsToLogin(t *testing.T) {
	app := paywallTestApp(usercontext.UserContext{})

	resp, err := app.Test(httptest.NewRequest("GET", "/premium/video-7", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusFound, resp.StatusCode)
	assert.Equal(t, "/login", resp.Header.Get("Location"))
}

func TestGraceExpired(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name      string
		firstSeen time.Time
		want      bool
	}{
		{"window just opened", now, false},
		{"inside the window", now.Add(-paywallGracePeriod / 2), false},
		{"exactly at the boundary", now.Add(-paywallGracePeriod), true},
		{"long past the window", now.Add(-3 * paywallGracePeriod), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := graceExpired(tt.firstSeen, now); got != tt.want {
				t.Fatalf("graceExpired() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRequireAuthRedirectsAnonymous(t *testing.T) {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("USER_CONTEXT", usercontext.UserContext{})
		return c.Next()
	})
	app.Get("/account", RequireAuth(), func(c *fiber.Ctx) error {
		return c.SendString("account")
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/account", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusFound, resp.StatusCode)
	assert.Equal(t, "/login", resp.Header.Get("Location"))
}

func TestRequireAdmin(t *testing.T) {
	newApp := func(ctx usercontext.UserContext) *fiber.App {
		app := fiber.New()
		app.Use(func(c *fiber.Ctx) error {
			c.Locals("USER_CONTEXT", ctx)
			return c.Next()
		})
		app.Post("/admin/free-access", RequireAdmin(), func(c *fiber.Ctx) error {
			return c.SendString("ok")
		})
		return app
	}

	resp, err := newApp(usercontext.UserContext{}).Test(httptest.NewRequest("POST", "/admin/free-access", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	resp, err = newApp(usercontext.UserContext{UserID: 1, IsLoggedIn: true}).Test(httptest.NewRequest("POST", "/admin/free-access", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	resp, err = newApp(usercontext.UserContext{UserID: 1, IsLoggedIn: true, IsAdmin: true}).Test(httptest.NewRequest("POST", "/admin/free-access", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}
