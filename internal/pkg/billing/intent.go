package billing

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/TimoLindner/Fanlume/app/models"
	"github.com/TimoLindner/Fanlume/internal/pkg/security"
	"gorm.io/gorm"
)

// registrationTokenTTL bounds how long a deferred-registration checkout may
// stay open before its token stops being redeemable.
const registrationTokenTTL = 24 * time.Hour

// RegistrationCandidate carries the sign-up data for a deferred registration.
// The raw password stays inside this process; only a signed opaque token is
// put on the checkout intent.
type RegistrationCandidate struct {
	Name     string
	Email    string
	Password string
	Bio      string
}

// IntentRequest describes one checkout intent origination.
type IntentRequest struct {
	Purpose     CheckoutPurpose
	AccountID   uint
	ItemRef     string
	ItemName    string
	PriceRef    string
	AmountCents int64
	Currency    string
	Candidate   *RegistrationCandidate
	SuccessURL  string
	CancelURL   string
}

// BuildIntent validates the request, prepares purpose-specific state and asks
// the provider for a hosted checkout session.
func (s *Service) BuildIntent(ctx context.Context, req *IntentRequest) (*Intent, error) {
	switch req.Purpose {
	case PurposePurchase:
		return s.buildPurchaseIntent(ctx, req)
	case PurposeUpgrade:
		return s.buildUpgradeIntent(ctx, req)
	case PurposeDeferredRegistration:
		return s.buildDeferredRegistrationIntent(ctx, req)
	default:
		return nil, fmt.Errorf("unknown checkout purpose %q", req.Purpose)
	}
}

func (s *Service) buildPurchaseIntent(ctx context.Context, req *IntentRequest) (*Intent, error) {
	if req.ItemRef == "" {
		return nil, errors.New("item reference is required")
	}
	user, err := s.requireUser(req.AccountID)
	if err != nil {
		return nil, err
	}

	owned, err := s.repo.PurchaseExists(user.ID, req.ItemRef)
	if err != nil {
		return nil, err
	}
	if owned {
		return nil, ErrAlreadyOwned
	}

	return s.provider.CreateCheckoutIntent(ctx, &IntentParams{
		Mode:        ModeOneTime,
		CustomerRef: user.BillingCustomerRef,
		PriceRef:    req.PriceRef,
		ItemName:    req.ItemName,
		AmountCents: req.AmountCents,
		Currency:    req.Currency,
		Metadata: map[string]string{
			metaKeyPurpose:   string(PurposePurchase),
			metaKeyAccountID: strconv.FormatUint(uint64(user.ID), 10),
			metaKeyItemRef:   req.ItemRef,
		},
		SuccessURL: req.SuccessURL,
		CancelURL:  req.CancelURL,
	})
}

func (s *Service) buildUpgradeIntent(ctx context.Context, req *IntentRequest) (*Intent, error) {
	user, err := s.requireUser(req.AccountID)
	if err != nil {
		return nil, err
	}

	customerRef := user.BillingCustomerRef
	if customerRef == "" {
		created, err := s.provider.CreateCustomer(ctx, user.Name, user.Email)
		if err != nil {
			return nil, err
		}
		// Concurrent upgrades may race on the backfill; whichever ref won
		// the conditional write is the one every intent must reuse.
		customerRef, err = s.repo.AttachBillingCustomerRef(user.ID, created)
		if err != nil {
			return nil, err
		}
	}

	return s.provider.CreateCheckoutIntent(ctx, &IntentParams{
		Mode:        ModeRecurring,
		CustomerRef: customerRef,
		PriceRef:    req.PriceRef,
		ItemName:    req.ItemName,
		AmountCents: req.AmountCents,
		Currency:    req.Currency,
		Metadata: map[string]string{
			metaKeyPurpose:   string(PurposeUpgrade),
			metaKeyAccountID: strconv.FormatUint(uint64(user.ID), 10),
		},
		SuccessURL: req.SuccessURL,
		CancelURL:  req.CancelURL,
	})
}

func (s *Service) buildDeferredRegistrationIntent(ctx context.Context, req *IntentRequest) (*Intent, error) {
	if req.Candidate == nil {
		return nil, errors.New("registration candidate is required")
	}

	if _, err := s.repo.GetUserByName(req.Candidate.Name); err == nil {
		return nil, ErrNameTaken
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	pending, err := models.NewPendingRegistration(req.Candidate.Name, req.Candidate.Email, req.Candidate.Password, req.Candidate.Bio)
	if err != nil {
		return nil, err
	}
	if err := s.repo.CreatePendingRegistration(pending); err != nil {
		return nil, err
	}

	token, err := security.GenerateRegistrationToken(pending.Token, registrationTokenTTL, s.tokenSecret)
	if err != nil {
		return nil, err
	}

	return s.provider.CreateCheckoutIntent(ctx, &IntentParams{
		Mode:          ModeRecurring,
		CustomerEmail: req.Candidate.Email,
		PriceRef:      req.PriceRef,
		ItemName:      req.ItemName,
		AmountCents:   req.AmountCents,
		Currency:      req.Currency,
		Metadata: map[string]string{
			metaKeyPurpose:           string(PurposeDeferredRegistration),
			metaKeyRegistrationToken: token,
		},
		SuccessURL: req.SuccessURL,
		CancelURL:  req.CancelURL,
	})
}

func (s *Service) requireUser(id uint) (*models.User, error) {
	if id == 0 {
		return nil, ErrAccountNotFound
	}
	user, err := s.repo.GetUserByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return user, nil
}
