package controllers

import (
	"errors"
	"log"
	"time"

	"github.com/TimoLindner/Fanlume/app/repository"
	"github.com/TimoLindner/Fanlume/internal/pkg/billing"
	"github.com/TimoLindner/Fanlume/internal/pkg/database"
	"github.com/TimoLindner/Fanlume/internal/pkg/entitlements"
	"github.com/TimoLindner/Fanlume/internal/pkg/env"
	"github.com/TimoLindner/Fanlume/internal/pkg/usercontext"
	"github.com/gofiber/fiber/v2"
	"github.com/sujit-baniya/flash"
)

type checkoutRequest struct {
	Purpose     string `json:"purpose" validate:"required,oneof=purchase upgrade deferred_registration"`
	ItemRef     string `json:"item_ref"`
	ItemName    string `json:"item_name"`
	PriceRef    string `json:"price_ref"`
	AmountCents int64  `json:"amount_cents"`
	Currency    string `json:"currency"`

	// Deferred registration only.
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Bio      string `json:"bio"`
}

// HandleCreateCheckout originates a checkout intent and returns the hosted
// checkout URL the client redirects to.
func HandleCreateCheckout(c *fiber.Ctx) error {
	var req checkoutRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	purpose := billing.CheckoutPurpose(req.Purpose)
	userCtx := usercontext.GetUserContext(c)
	if purpose != billing.PurposeDeferredRegistration && !userCtx.IsLoggedIn {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "authentication required"})
	}

	baseURL := env.GetEnv("PUBLIC_BASE_URL", "http://localhost:8080")
	intentReq := &billing.IntentRequest{
		Purpose:     purpose,
		AccountID:   userCtx.UserID,
		ItemRef:     req.ItemRef,
		ItemName:    req.ItemName,
		PriceRef:    req.PriceRef,
		AmountCents: req.AmountCents,
		Currency:    req.Currency,
		SuccessURL:  baseURL + "/checkout/success",
		CancelURL:   baseURL + "/checkout/cancel",
	}
	if purpose == billing.PurposeDeferredRegistration {
		intentReq.Candidate = &billing.RegistrationCandidate{
			Name:     req.Name,
			Email:    req.Email,
			Password: req.Password,
			Bio:      req.Bio,
		}
	}

	svc := billing.NewServiceFromDB(database.GetDB())
	intent, err := svc.BuildIntent(c.Context(), intentReq)
	if err != nil {
		switch {
		case errors.Is(err, billing.ErrAlreadyOwned):
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "item already owned"})
		case errors.Is(err, billing.ErrNameTaken):
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "display name already taken"})
		case errors.Is(err, billing.ErrAccountNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "account not found"})
		default:
			log.Printf("[Billing] failed to build %s intent: %v", purpose, err)
			return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "could not create checkout"})
		}
	}

	return c.JSON(fiber.Map{
		"intent_id":    intent.ProviderIntentID,
		"redirect_url": intent.RedirectURL,
	})
}

// HandleBillingWebhook is the single inbound surface for provider events.
// Response codes drive the provider's redelivery: 200 acknowledges (including
// permanent failures and replays), 401 rejects bad signatures, 5xx asks for a
// retry.
func HandleBillingWebhook(c *fiber.Ctx) error {
	payload := c.Body()
	signature := c.Get(billing.SignatureHeader)
	secret := env.GetEnv("BILLING_WEBHOOK_SECRET", "")

	svc := billing.NewServiceFromDB(database.GetDB())

	event, err := billing.VerifyEvent(payload, signature, secret)
	if err != nil {
		if errors.Is(err, billing.ErrInvalidSignature) {
			log.Printf("[Billing] rejected webhook with invalid signature from %s", c.IP())
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid signature"})
		}
		// Authenticated but unparseable: the sender is the provider, so
		// acknowledge after recording; redelivery cannot fix the payload.
		log.Printf("[Billing] acknowledged malformed webhook payload: %v", err)
		if _, _, recErr := svc.RecordWebhookEvent(c.Context(), billing.WebhookEventInput{
			PayloadJSON:    string(payload),
			SignatureValid: true,
		}); recErr != nil {
			log.Printf("[Billing] failed to record malformed webhook: %v", recErr)
		}
		return c.JSON(fiber.Map{"received": true})
	}

	created, row, err := svc.RecordWebhookEvent(c.Context(), billing.WebhookEventInput{
		EventID:        event.ID,
		EventType:      event.Type,
		PayloadJSON:    string(payload),
		SignatureValid: true,
	})
	if err != nil {
		log.Printf("[Billing] failed to record webhook event %s: %v", event.ID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "could not record event"})
	}
	if !created && row.ProcessedAt != nil {
		log.Printf("[Billing] replayed webhook event %s acknowledged", event.ID)
		return c.JSON(fiber.Map{"received": true, "duplicate": true})
	}

	if err := svc.ProcessEvent(c.Context(), event); err != nil {
		if billing.IsPermanent(err) {
			log.Printf("[Billing] permanent failure for event %s: %v", event.ID, err)
			if markErr := svc.MarkWebhookProcessed(c.Context(), row.ID, err); markErr != nil {
				log.Printf("[Billing] failed to mark event %s processed: %v", event.ID, markErr)
			}
			return c.JSON(fiber.Map{"received": true})
		}
		log.Printf("[Billing] transient failure for event %s, requesting redelivery: %v", event.ID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "processing failed"})
	}

	if err := svc.MarkWebhookProcessed(c.Context(), row.ID, nil); err != nil {
		log.Printf("[Billing] failed to mark event %s processed: %v", event.ID, err)
	}
	return c.JSON(fiber.Map{"received": true})
}

// HandleEntitlementCheck reports the caller's current entitlement snapshot.
func HandleEntitlementCheck(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "authentication required"})
	}

	userRepo := repository.NewUserRepository(database.GetDB())
	user, err := userRepo.GetByID(userCtx.UserID)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "account not found"})
	}

	return c.JSON(entitlements.Evaluate(user, time.Now()))
}

// HandleCancelSubscription forwards a cancel request to the provider. The
// local account flips when the cancellation event arrives on the webhook.
func HandleCancelSubscription(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "authentication required"})
	}

	svc := billing.NewServiceFromDB(database.GetDB())
	if err := svc.CancelAccountSubscription(c.Context(), userCtx.UserID); err != nil {
		switch {
		case errors.Is(err, billing.ErrNoSubscription):
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "no active subscription"})
		case errors.Is(err, billing.ErrAccountNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "account not found"})
		default:
			log.Printf("[Billing] failed to cancel subscription for user %d: %v", userCtx.UserID, err)
			return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "could not cancel subscription"})
		}
	}
	return c.JSON(fiber.Map{"message": "cancellation requested"})
}

type freeAccessRequest struct {
	UserID  uint `json:"user_id" validate:"required"`
	Granted bool `json:"granted"`
}

// HandleAdminFreeAccessGrant toggles the free-access override on an account.
func HandleAdminFreeAccessGrant(c *fiber.Ctx) error {
	var req freeAccessRequest
	if err := c.BodyParser(&req); err != nil || req.UserID == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	userRepo := repository.NewUserRepository(database.GetDB())
	if _, err := userRepo.GetByID(req.UserID); err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "account not found"})
	}
	if err := userRepo.SetFreeAccess(req.UserID, req.Granted); err != nil {
		log.Printf("[Billing] failed to set free access for user %d: %v", req.UserID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "could not update account"})
	}

	log.Printf("[Billing] admin %d set free access=%t for user %d", usercontext.GetUserID(c), req.Granted, req.UserID)
	return c.JSON(fiber.Map{"user_id": req.UserID, "free_access_granted": req.Granted})
}

// HandleCheckoutSuccess is the browser landing page after a completed
// checkout. Account state comes from the webhook, not from this redirect.
func HandleCheckoutSuccess(c *fiber.Ctx) error {
	fm := fiber.Map{
		"type":    "success",
		"message": "Payment received. Your access will be active in a moment.",
	}
	return flash.WithSuccess(c, fm).Redirect("/")
}

// HandleCheckoutCancel is the browser landing page after an abandoned checkout.
func HandleCheckoutCancel(c *fiber.Ctx) error {
	fm := fiber.Map{
		"type":    "info",
		"message": "Checkout canceled. You have not been charged.",
	}
	return flash.WithInfo(c, fm).Redirect("/")
}
