package controllers

import (
	"errors"
	"log"
	"time"

	"github.com/TimoLindner/Fanlume/app/models"
	"github.com/TimoLindner/Fanlume/app/repository"
	"github.com/TimoLindner/Fanlume/internal/pkg/database"
	"github.com/TimoLindner/Fanlume/internal/pkg/session"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type registerRequest struct {
	Name     string `json:"name" validate:"required,min=3,max=150"`
	Email    string `json:"email" validate:"omitempty,email,max=200"`
	Password string `json:"password" validate:"required,min=6"`
	Bio      string `json:"bio" validate:"max=1000"`
}

type loginRequest struct {
	Name     string `json:"name"`
	Password string `json:"password"`
}

// HandleRegister creates an account interactively. Deferred registration via
// checkout shares the same models.CreateUser path, which is what lets a name
// conflict between the two flows collapse onto one account.
func HandleRegister(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	user, err := models.CreateUser(req.Name, req.Email, req.Password)
	if err != nil {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": err.Error()})
	}
	user.Bio = req.Bio

	userRepo := repository.NewUserRepository(database.GetDB())
	if err := userRepo.Create(user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "display name already taken"})
		}
		log.Printf("[Auth] failed to create account %q: %v", req.Name, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "could not create account"})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"id":   user.ID,
		"name": user.Name,
	})
}

// HandleLogin authenticates by display name and opens a session.
func HandleLogin(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	userRepo := repository.NewUserRepository(database.GetDB())
	user, err := userRepo.GetByName(req.Name)
	if err != nil || !user.CheckPassword(req.Password) {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid credentials"})
	}

	store := session.GetSessionStore()
	if store == nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "session store unavailable"})
	}
	sess, err := store.Get(c)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "could not open session"})
	}
	sess.Set(AUTH_KEY, true)
	sess.Set(USER_ID, user.ID)
	sess.Set(USER_NAME, user.Name)
	sess.Set(USER_IS_ADMIN, user.IsAdmin())
	if err := sess.Save(); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "could not save session"})
	}

	now := time.Now()
	user.LastLoginAt = &now
	if err := userRepo.Update(user); err != nil {
		log.Printf("[Auth] failed to record last login for user %d: %v", user.ID, err)
	}

	return c.JSON(fiber.Map{
		"id":   user.ID,
		"name": user.Name,
	})
}

// HandleLogout destroys the caller's session.
func HandleLogout(c *fiber.Ctx) error {
	destroySession(c)
	return c.JSON(fiber.Map{"message": "logged out"})
}
