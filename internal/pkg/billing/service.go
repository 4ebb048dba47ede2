package billing

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"

	"github.com/TimoLindner/Fanlume/app/models"
	"github.com/TimoLindner/Fanlume/internal/pkg/env"
	"gorm.io/gorm"
)

// Service is the entitlement & billing reconciliation engine: it originates
// checkout intents and applies verified billing events to account state.
type Service struct {
	repo        Repository
	provider    Provider
	tokenSecret string
}

// NewService creates a billing service from injected collaborators.
func NewService(repo Repository, provider Provider, tokenSecret string) *Service {
	return &Service{repo: repo, provider: provider, tokenSecret: tokenSecret}
}

// NewServiceFromDB creates a billing service from a GORM DB handle using the
// process-wide provider client.
func NewServiceFromDB(db *gorm.DB) *Service {
	return NewService(NewRepository(db), GetProvider(), env.GetEnv("BILLING_TOKEN_SECRET", ""))
}

// RecordWebhookEvent persists webhook payloads idempotently. The second
// return reports whether this delivery was the first one seen.
func (s *Service) RecordWebhookEvent(ctx context.Context, in WebhookEventInput) (bool, *models.BillingWebhookEvent, error) {
	_ = ctx
	eventID := strings.TrimSpace(in.EventID)
	if eventID == "" {
		sum := sha256.Sum256([]byte(in.PayloadJSON))
		eventID = "hash:" + hex.EncodeToString(sum[:])
	}

	event := &models.BillingWebhookEvent{
		EventID:        eventID,
		EventType:      strings.TrimSpace(in.EventType),
		PayloadJSON:    in.PayloadJSON,
		SignatureValid: in.SignatureValid,
	}
	return s.repo.CreateWebhookEventIfNotExists(event)
}

// MarkWebhookProcessed marks an event as processed and stores an optional error.
func (s *Service) MarkWebhookProcessed(ctx context.Context, webhookEventID uint, processingErr error) error {
	_ = ctx
	if webhookEventID == 0 {
		return errors.New("webhook_event_id is required")
	}
	errMsg := ""
	if processingErr != nil {
		errMsg = processingErr.Error()
	}
	return s.repo.MarkWebhookProcessed(webhookEventID, errMsg)
}

// CancelAccountSubscription asks the provider to cancel the account's
// subscription. Local state is left untouched: the cancellation event coming
// back through the webhook is what flips the account, so provider and local
// state cannot diverge on who initiated the cancel.
func (s *Service) CancelAccountSubscription(ctx context.Context, userID uint) error {
	user, err := s.repo.GetUserByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrAccountNotFound
		}
		return err
	}
	subRef := user.SubscriptionRef()
	if subRef == "" {
		return ErrNoSubscription
	}
	return s.provider.CancelSubscription(ctx, subRef)
}
