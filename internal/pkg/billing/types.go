package billing

import (
	"encoding/json"
	"errors"
	"time"
)

// CheckoutPurpose tags an outbound checkout intent so the matching
// reconciliation handler can complete it without further interactive input.
type CheckoutPurpose string

const (
	PurposePurchase             CheckoutPurpose = "purchase"
	PurposeUpgrade              CheckoutPurpose = "upgrade"
	PurposeDeferredRegistration CheckoutPurpose = "deferred_registration"
)

// CheckoutMode selects between a one-time payment and a recurring subscription.
type CheckoutMode string

const (
	ModeOneTime   CheckoutMode = "one_time"
	ModeRecurring CheckoutMode = "recurring"
)

// Inbound event kinds this engine reconciles. Anything else is acknowledged
// and ignored for forward compatibility.
const (
	EventCheckoutCompleted    = "checkout.session.completed"
	EventCheckoutExpired      = "checkout.session.expired"
	EventInvoicePaid          = "invoice.paid"
	EventSubscriptionCanceled = "customer.subscription.deleted"
)

// Metadata keys carried through the provider's checkout intent. The values
// are opaque to the provider and only consumed by reconciliation handlers.
const (
	metaKeyPurpose           = "fanlume_purpose"
	metaKeyAccountID         = "fanlume_account_id"
	metaKeyItemRef           = "fanlume_item_ref"
	metaKeyRegistrationToken = "fanlume_registration_token"
)

var (
	// ErrAlreadyOwned rejects a purchase intent for an item the account owns.
	ErrAlreadyOwned = errors.New("item already owned by this account")

	// ErrInvalidSignature is the aggregate verification failure. It never
	// reveals whether the timestamp, the signature or the body mismatched.
	ErrInvalidSignature = errors.New("invalid webhook signature")

	// ErrAccountNotFound rejects an intent for a missing account.
	ErrAccountNotFound = errors.New("account not found")

	// ErrNameTaken rejects a deferred registration for a taken display name.
	ErrNameTaken = errors.New("display name already taken")

	// ErrNoSubscription rejects a cancel request for an account without one.
	ErrNoSubscription = errors.New("account has no billing subscription")
)

// permanentError marks a handler failure that will not resolve on redelivery.
// Such events are logged and acknowledged; only transient failures propagate
// so the provider retries them.
type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent wraps err as a non-retryable reconciliation failure.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err was marked with Permanent.
func IsPermanent(err error) bool {
	var pe *permanentError
	return errors.As(err, &pe)
}

// Event is a verified, parsed billing event envelope. It exists only for the
// duration of one delivery; durable dedupe lives in BillingWebhookEvent rows.
type Event struct {
	ID        string
	Type      string
	CreatedAt time.Time
	Raw       json.RawMessage
}

// WebhookEventInput is the normalized input for webhook event persistence.
type WebhookEventInput struct {
	EventID        string
	EventType      string
	PayloadJSON    string
	SignatureValid bool
}

// checkoutSessionPayload is the slice of the provider's checkout session
// object the handlers consume.
type checkoutSessionPayload struct {
	ID           string            `json:"id"`
	Mode         string            `json:"mode"`
	Customer     string            `json:"customer"`
	Subscription string            `json:"subscription"`
	AmountTotal  int64             `json:"amount_total"`
	Metadata     map[string]string `json:"metadata"`
}

type invoicePayload struct {
	ID           string `json:"id"`
	Customer     string `json:"customer"`
	Subscription string `json:"subscription"`
	PeriodEnd    int64  `json:"period_end"`
}

type subscriptionPayload struct {
	ID               string `json:"id"`
	Status           string `json:"status"`
	Customer         string `json:"customer"`
	CurrentPeriodEnd int64  `json:"current_period_end"`
}
