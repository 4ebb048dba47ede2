package controllers

import (
	"github.com/TimoLindner/Fanlume/internal/pkg/session"
	"github.com/TimoLindner/Fanlume/internal/pkg/usercontext"
	"github.com/gofiber/fiber/v2"
)

// Session keys shared by the auth controller and middlewares.
const (
	AUTH_KEY      = usercontext.AuthKey
	USER_ID       = usercontext.KeyUserID
	USER_NAME     = usercontext.KeyUsername
	USER_IS_ADMIN = usercontext.KeyIsAdmin
)

// destroySession clears the caller's session, ignoring a missing store.
func destroySession(c *fiber.Ctx) {
	store := session.GetSessionStore()
	if store == nil {
		return
	}
	sess, err := store.Get(c)
	if err != nil {
		return
	}
	_ = sess.Destroy()
}
