package billing

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/TimoLindner/Fanlume/internal/pkg/env"
	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"
)

const stripeRequestTimeout = 15 * time.Second

// stripeProvider implements Provider against the Stripe API. The API client
// is injected once at construction; no package-global key is set.
type stripeProvider struct {
	api *client.API
}

// NewStripeProviderFromEnv builds the Stripe-backed provider from env config.
func NewStripeProviderFromEnv() Provider {
	api := &client.API{}
	api.Init(env.GetEnv("STRIPE_SECRET_KEY", ""), stripe.NewBackends(&http.Client{
		Timeout: stripeRequestTimeout,
	}))
	return &stripeProvider{api: api}
}

func (p *stripeProvider) CreateCheckoutIntent(ctx context.Context, in *IntentParams) (*Intent, error) {
	params := &stripe.CheckoutSessionParams{
		SuccessURL: stripe.String(in.SuccessURL),
		CancelURL:  stripe.String(in.CancelURL),
	}
	params.Context = ctx

	switch in.Mode {
	case ModeRecurring:
		params.Mode = stripe.String(string(stripe.CheckoutSessionModeSubscription))
	default:
		params.Mode = stripe.String(string(stripe.CheckoutSessionModePayment))
	}

	item := &stripe.CheckoutSessionLineItemParams{
		Quantity: stripe.Int64(1),
	}
	if in.PriceRef != "" {
		item.Price = stripe.String(in.PriceRef)
	} else {
		currency := in.Currency
		if currency == "" {
			currency = "eur"
		}
		item.PriceData = &stripe.CheckoutSessionLineItemPriceDataParams{
			Currency:   stripe.String(currency),
			UnitAmount: stripe.Int64(in.AmountCents),
			ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
				Name: stripe.String(in.ItemName),
			},
		}
	}
	params.LineItems = []*stripe.CheckoutSessionLineItemParams{item}

	if in.CustomerRef != "" {
		params.Customer = stripe.String(in.CustomerRef)
	} else if in.CustomerEmail != "" {
		params.CustomerEmail = stripe.String(in.CustomerEmail)
	}
	for k, v := range in.Metadata {
		params.AddMetadata(k, v)
	}

	s, err := p.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, err
	}
	return &Intent{ProviderIntentID: s.ID, RedirectURL: s.URL}, nil
}

func (p *stripeProvider) CreateCustomer(ctx context.Context, name, email string) (string, error) {
	params := &stripe.CustomerParams{
		Name:  stripe.String(strings.TrimSpace(name)),
		Email: stripe.String(strings.TrimSpace(email)),
	}
	params.Context = ctx

	c, err := p.api.Customers.New(params)
	if err != nil {
		return "", err
	}
	return c.ID, nil
}

func (p *stripeProvider) GetSubscription(ctx context.Context, subRef string) (*SubscriptionDetail, error) {
	if strings.TrimSpace(subRef) == "" {
		return nil, errors.New("subscription reference is required")
	}
	params := &stripe.SubscriptionParams{}
	params.Context = ctx

	s, err := p.api.Subscriptions.Get(subRef, params)
	if err != nil {
		return nil, err
	}

	detail := &SubscriptionDetail{
		ID:     s.ID,
		Status: string(s.Status),
	}
	if s.Customer != nil {
		detail.CustomerRef = s.Customer.ID
	}
	if s.CurrentPeriodEnd > 0 {
		detail.CurrentPeriodEnd = time.Unix(s.CurrentPeriodEnd, 0)
	}
	return detail, nil
}

func (p *stripeProvider) CancelSubscription(ctx context.Context, subRef string) error {
	if strings.TrimSpace(subRef) == "" {
		return errors.New("subscription reference is required")
	}
	params := &stripe.SubscriptionCancelParams{}
	params.Context = ctx

	_, err := p.api.Subscriptions.Cancel(subRef, params)
	return err
}
