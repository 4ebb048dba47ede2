package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/TimoLindner/Fanlume/app/models"
	"github.com/TimoLindner/Fanlume/internal/pkg/security"
	"gorm.io/gorm"
)

// defaultSubscriptionPeriod is applied when a payload carries no usable
// period end. The next invoice.paid corrects the estimate.
const defaultSubscriptionPeriod = 30 * 24 * time.Hour

// ProcessEvent reconciles one verified billing event into account state.
// Handlers are idempotent: replaying any delivery converges on the same
// state. A plain error return means the delivery should be retried by the
// provider; failures wrapped with Permanent are acknowledged by the caller.
func (s *Service) ProcessEvent(ctx context.Context, event *Event) error {
	switch event.Type {
	case EventCheckoutCompleted:
		return s.handleCheckoutCompleted(ctx, event)
	case EventInvoicePaid:
		return s.handleInvoicePaid(ctx, event)
	case EventSubscriptionCanceled:
		return s.handleSubscriptionCanceled(ctx, event)
	case EventCheckoutExpired:
		// Pending registrations expire through their token TTL; nothing to
		// tear down here.
		log.Printf("[Billing] checkout expired, event=%s", event.ID)
		return nil
	default:
		log.Printf("[Billing] ignoring unhandled event type %s, event=%s", event.Type, event.ID)
		return nil
	}
}

func (s *Service) handleCheckoutCompleted(ctx context.Context, event *Event) error {
	var session checkoutSessionPayload
	if err := json.Unmarshal(event.Raw, &session); err != nil {
		return Permanent(fmt.Errorf("malformed checkout session payload: %w", err))
	}

	purpose := CheckoutPurpose(session.Metadata[metaKeyPurpose])
	switch purpose {
	case PurposePurchase:
		return s.completePurchase(event, &session)
	case PurposeUpgrade:
		return s.completeUpgrade(ctx, event, &session)
	case PurposeDeferredRegistration:
		return s.completeDeferredRegistration(ctx, event, &session)
	default:
		// Sessions created outside this engine carry no purpose tag.
		log.Printf("[Billing] checkout %s completed without purpose metadata, event=%s", session.ID, event.ID)
		return nil
	}
}

func (s *Service) completePurchase(event *Event, session *checkoutSessionPayload) error {
	userID, err := accountIDFromMetadata(session.Metadata)
	if err != nil {
		return Permanent(err)
	}
	itemRef := session.Metadata[metaKeyItemRef]
	if itemRef == "" {
		return Permanent(fmt.Errorf("checkout %s carries no item reference", session.ID))
	}
	if _, err := s.repo.GetUserByID(userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Permanent(fmt.Errorf("no account %d for checkout %s", userID, session.ID))
		}
		return err
	}

	purchasedAt := event.CreatedAt
	if purchasedAt.IsZero() {
		purchasedAt = time.Now()
	}
	created, err := s.repo.CreatePurchaseIfAbsent(&models.Purchase{
		UserID:      userID,
		ItemRef:     itemRef,
		CheckoutRef: session.ID,
		AmountCents: session.AmountTotal,
		PurchasedAt: purchasedAt,
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// Same user and item through a different checkout: the item is
			// owned either way, redelivery cannot fix anything.
			return Permanent(err)
		}
		return err
	}
	if !created {
		log.Printf("[Billing] purchase for checkout %s already recorded, event=%s", session.ID, event.ID)
		return nil
	}

	if err := s.repo.CreateNotification(userID, models.NOTIFICATION_PURCHASE, fmt.Sprintf("Your purchase of %s is complete.", itemRef), userID); err != nil {
		log.Printf("[Billing] failed to create purchase notification for user %d: %v", userID, err)
	}
	return nil
}

func (s *Service) completeUpgrade(ctx context.Context, event *Event, session *checkoutSessionPayload) error {
	userID, err := accountIDFromMetadata(session.Metadata)
	if err != nil {
		return Permanent(err)
	}
	if session.Subscription == "" {
		return Permanent(fmt.Errorf("upgrade checkout %s carries no subscription", session.ID))
	}

	endsAt := s.resolvePeriodEnd(ctx, session.Subscription, event.CreatedAt)
	if err := s.repo.ActivateSubscription(userID, session.Subscription, endsAt); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// The subscription ref is already attached to another account;
			// redelivering the event cannot resolve the conflict.
			return Permanent(err)
		}
		return err
	}

	if err := s.repo.CreateNotification(userID, models.NOTIFICATION_SUBSCRIPTION, "Your subscription is now active.", userID); err != nil {
		log.Printf("[Billing] failed to create subscription notification for user %d: %v", userID, err)
	}
	return nil
}

func (s *Service) completeDeferredRegistration(ctx context.Context, event *Event, session *checkoutSessionPayload) error {
	signed := session.Metadata[metaKeyRegistrationToken]
	if signed == "" {
		return Permanent(fmt.Errorf("deferred registration checkout %s carries no token", session.ID))
	}
	claims, err := security.VerifyRegistrationToken(signed, s.tokenSecret)
	if err != nil {
		return Permanent(fmt.Errorf("registration token rejected: %w", err))
	}

	pending, err := s.repo.GetPendingRegistrationByToken(claims.PendingToken)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Permanent(fmt.Errorf("no pending registration for checkout %s", session.ID))
		}
		return err
	}
	if pending.IsConsumed() {
		log.Printf("[Billing] pending registration %d already consumed, event=%s", pending.ID, event.ID)
		return nil
	}

	user := &models.User{
		Name:               pending.Name,
		Email:              pending.Email,
		Password:           pending.PasswordHash,
		Role:               models.ROLE_USER,
		SubscriptionStatus: models.SUBSCRIPTION_INACTIVE,
		Bio:                pending.Bio,
	}
	if err := s.repo.CreateUser(user); err != nil {
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return err
		}
		// The name was registered interactively while checkout was open.
		// The payment belongs to that person either way, so the refs attach
		// to the existing account instead of minting a second one.
		existing, lookupErr := s.repo.GetUserByName(pending.Name)
		if lookupErr != nil {
			return lookupErr
		}
		log.Printf("[Billing] deferred registration %q resolved to existing account %d, event=%s", pending.Name, existing.ID, event.ID)
		user = existing
	}

	if session.Customer != "" {
		if _, err := s.repo.AttachBillingCustomerRef(user.ID, session.Customer); err != nil {
			return err
		}
	}

	// The registration was paid for, so the account always comes out ACTIVE,
	// even on the off chance the session carries no subscription reference.
	endsAt := event.CreatedAt
	if endsAt.IsZero() {
		endsAt = time.Now()
	}
	endsAt = endsAt.Add(defaultSubscriptionPeriod)
	if session.Subscription != "" {
		endsAt = s.resolvePeriodEnd(ctx, session.Subscription, event.CreatedAt)
	}
	if err := s.repo.ActivateSubscription(user.ID, session.Subscription, endsAt); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return Permanent(err)
		}
		return err
	}

	if err := s.repo.ConsumePendingRegistration(pending.ID); err != nil {
		return err
	}

	if err := s.repo.CreateNotification(user.ID, models.NOTIFICATION_SUBSCRIPTION, "Welcome! Your account is ready and your subscription is active.", user.ID); err != nil {
		log.Printf("[Billing] failed to create welcome notification for user %d: %v", user.ID, err)
	}
	return nil
}

func (s *Service) handleInvoicePaid(ctx context.Context, event *Event) error {
	_ = ctx
	var invoice invoicePayload
	if err := json.Unmarshal(event.Raw, &invoice); err != nil {
		return Permanent(fmt.Errorf("malformed invoice payload: %w", err))
	}
	if invoice.Subscription == "" {
		// One-off invoices do not touch subscription state.
		log.Printf("[Billing] invoice %s has no subscription, event=%s", invoice.ID, event.ID)
		return nil
	}

	periodEnd := time.Now().Add(defaultSubscriptionPeriod)
	if invoice.PeriodEnd > 0 {
		periodEnd = time.Unix(invoice.PeriodEnd, 0)
	}

	matched, err := s.repo.ExtendSubscription(invoice.Subscription, periodEnd)
	if err != nil {
		return err
	}
	if matched == 0 {
		// The invoice may have outrun its checkout.session.completed; let
		// the provider redeliver once the account exists.
		return fmt.Errorf("no account for subscription %s yet", invoice.Subscription)
	}
	return nil
}

func (s *Service) handleSubscriptionCanceled(ctx context.Context, event *Event) error {
	_ = ctx
	var sub subscriptionPayload
	if err := json.Unmarshal(event.Raw, &sub); err != nil {
		return Permanent(fmt.Errorf("malformed subscription payload: %w", err))
	}
	if sub.ID == "" {
		return Permanent(fmt.Errorf("subscription cancellation without id, event=%s", event.ID))
	}

	matched, err := s.repo.CancelBySubscriptionRef(sub.ID)
	if err != nil {
		return err
	}
	if matched == 0 {
		// Already canceled, or the subscription never mapped to an account.
		// Either way the desired end state holds.
		log.Printf("[Billing] cancellation for unknown subscription %s, event=%s", sub.ID, event.ID)
	}
	return nil
}

// resolvePeriodEnd asks the provider for the authoritative period end and
// falls back to a conservative default when the lookup fails. ExtendSubscription
// only ever moves the date forward, so a short estimate is safe.
func (s *Service) resolvePeriodEnd(ctx context.Context, subRef string, eventTime time.Time) time.Time {
	if detail, err := s.provider.GetSubscription(ctx, subRef); err == nil && !detail.CurrentPeriodEnd.IsZero() {
		return detail.CurrentPeriodEnd
	} else if err != nil {
		log.Printf("[Billing] could not fetch subscription %s from provider: %v", subRef, err)
	}
	base := eventTime
	if base.IsZero() {
		base = time.Now()
	}
	return base.Add(defaultSubscriptionPeriod)
}

func accountIDFromMetadata(metadata map[string]string) (uint, error) {
	raw := metadata[metaKeyAccountID]
	if raw == "" {
		return 0, errors.New("checkout metadata carries no account id")
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid account id %q in checkout metadata", raw)
	}
	return uint(id), nil
}
