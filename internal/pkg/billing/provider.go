package billing

import (
	"context"
	"sync"
	"time"
)

// IntentParams describes an outbound checkout intent, provider-neutral.
type IntentParams struct {
	Mode          CheckoutMode
	CustomerRef   string
	CustomerEmail string
	PriceRef      string
	ItemName      string
	AmountCents   int64
	Currency      string
	Metadata      map[string]string
	SuccessURL    string
	CancelURL     string
}

// Intent is the provider's answer to a checkout intent: an opaque id and the
// hosted checkout page the user is redirected to.
type Intent struct {
	ProviderIntentID string
	RedirectURL      string
}

// SubscriptionDetail is the slice of provider subscription state the
// reconciliation handlers need.
type SubscriptionDetail struct {
	ID               string
	Status           string
	CustomerRef      string
	CurrentPeriodEnd time.Time
}

// Provider is the narrow billing-provider integration point. Everything this
// engine needs from the payment processor goes through these four calls; all
// of them are independent, cancellable network calls with bounded timeouts.
type Provider interface {
	CreateCheckoutIntent(ctx context.Context, params *IntentParams) (*Intent, error)
	CreateCustomer(ctx context.Context, name, email string) (string, error)
	GetSubscription(ctx context.Context, subRef string) (*SubscriptionDetail, error)
	CancelSubscription(ctx context.Context, subRef string) error
}

var (
	providerMu      sync.Mutex
	defaultProvider Provider
)

// GetProvider returns the process-wide billing provider client, lazily
// constructed from the environment on first use. The client is stateless
// HTTP, so there is no teardown.
func GetProvider() Provider {
	providerMu.Lock()
	defer providerMu.Unlock()
	if defaultProvider == nil {
		defaultProvider = NewStripeProviderFromEnv()
	}
	return defaultProvider
}

// SetProvider replaces the process-wide provider. Used by tests and by
// alternate wiring at startup.
func SetProvider(p Provider) {
	providerMu.Lock()
	defer providerMu.Unlock()
	defaultProvider = p
}
