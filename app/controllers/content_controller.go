package controllers

import (
	"time"

	"github.com/TimoLindner/Fanlume/app/repository"
	"github.com/TimoLindner/Fanlume/internal/pkg/database"
	"github.com/TimoLindner/Fanlume/internal/pkg/entitlements"
	"github.com/TimoLindner/Fanlume/internal/pkg/usercontext"
	"github.com/gofiber/fiber/v2"
)

// HandlePremiumContent stands in for the content collaborator behind the
// paywall: delivery itself lives elsewhere, this endpoint just hands out the
// reference a paywalled caller is allowed to fetch.
func HandlePremiumContent(c *fiber.Ctx) error {
	itemRef := c.Params("itemRef")
	if itemRef == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "item reference is required"})
	}
	return c.JSON(fiber.Map{
		"item_ref":   itemRef,
		"stream_url": "/media/" + itemRef,
	})
}

// HandleAccountOverview is the signed-in account page: profile basics, the
// current entitlement snapshot and the purchase history.
func HandleAccountOverview(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)

	db := database.GetDB()
	user, err := repository.NewUserRepository(db).GetByID(userCtx.UserID)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "account not found"})
	}
	purchases, err := repository.NewPurchaseRepository(db).ListByUser(user.ID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "could not load purchases"})
	}

	return c.JSON(fiber.Map{
		"name":        user.Name,
		"bio":         user.Bio,
		"entitlement": entitlements.Evaluate(user, time.Now()),
		"purchases":   purchases,
	})
}
