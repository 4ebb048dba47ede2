package billing

import (
	"context"
	"testing"
	"time"

	"github.com/TimoLindner/Fanlume/app/models"
	"github.com/TimoLindner/Fanlume/internal/pkg/security"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildPurchaseIntent(t *testing.T) {
	svc, repo, provider := newTestService()
	user := addUser(repo, "bob")

	intent, err := svc.BuildIntent(context.Background(), &IntentRequest{
		Purpose:     PurposePurchase,
		AccountID:   user.ID,
		ItemRef:     "video-7",
		ItemName:    "Episode 7",
		AmountCents: 499,
		SuccessURL:  "https://fanlume.example/checkout/success",
		CancelURL:   "https://fanlume.example/checkout/cancel",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, intent.RedirectURL)

	require.Len(t, provider.intents, 1)
	params := provider.intents[0]
	assert.Equal(t, ModeOneTime, params.Mode)
	assert.Equal(t, "video-7", params.Metadata[metaKeyItemRef])
	assert.Equal(t, string(PurposePurchase), params.Metadata[metaKeyPurpose])
}

func TestBuildPurchaseIntentAlreadyOwned(t *testing.T) {
	svc, repo, _ := newTestService()
	user := addUser(repo, "bob")
	repo.owned[ownershipKey(user.ID, "video-7")] = true

	_, err := svc.BuildIntent(context.Background(), &IntentRequest{
		Purpose:   PurposePurchase,
		AccountID: user.ID,
		ItemRef:   "video-7",
	})
	assert.ErrorIs(t, err, ErrAlreadyOwned)
}

func TestBuildPurchaseIntentUnknownAccount(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.BuildIntent(context.Background(), &IntentRequest{
		Purpose:   PurposePurchase,
		AccountID: 999,
		ItemRef:   "video-7",
	})
	assert.ErrorIs(t, err, ErrAccountNotFound)
}

func TestBuildUpgradeIntentBackfillsCustomerOnce(t *testing.T) {
	svc, repo, provider := newTestService()
	user := addUser(repo, "carol")

	for i := 0; i < 2; i++ {
		_, err := svc.BuildIntent(context.Background(), &IntentRequest{
			Purpose:   PurposeUpgrade,
			AccountID: user.ID,
			PriceRef:  "price_monthly",
		})
		require.NoError(t, err)
	}

	// The customer is created exactly once; the persisted ref is reused on
	// every later intent.
	assert.Equal(t, 1, provider.customers)
	require.Len(t, provider.intents, 2)
	assert.Equal(t, provider.intents[0].CustomerRef, provider.intents[1].CustomerRef)
	assert.Equal(t, user.BillingCustomerRef, provider.intents[1].CustomerRef)
	assert.Equal(t, ModeRecurring, provider.intents[0].Mode)
}

func TestBuildDeferredRegistrationIntentHidesPassword(t *testing.T) {
	svc, repo, provider := newTestService()

	_, err := svc.BuildIntent(context.Background(), &IntentRequest{
		Purpose:  PurposeDeferredRegistration,
		PriceRef: "price_monthly",
		Candidate: &RegistrationCandidate{
			Name:     "alice",
			Email:    "alice@example.com",
			Password: "s3cret-pw",
		},
	})
	require.NoError(t, err)

	require.Len(t, provider.intents, 1)
	params := provider.intents[0]
	assert.Equal(t, ModeRecurring, params.Mode)
	assert.Equal(t, "alice@example.com", params.CustomerEmail)

	// The metadata that crosses to the provider must contain only the signed
	// token; no credential material, no candidate fields.
	for key, value := range params.Metadata {
		assert.NotContains(t, value, "s3cret-pw", "metadata %s leaks the raw password", key)
		assert.NotContains(t, value, "alice@example.com", "metadata %s leaks the email", key)
	}
	signed := params.Metadata[metaKeyRegistrationToken]
	require.NotEmpty(t, signed)

	claims, err := security.VerifyRegistrationToken(signed, testTokenSecret)
	require.NoError(t, err)

	pending, err := repo.GetPendingRegistrationByToken(claims.PendingToken)
	require.NoError(t, err)
	assert.Equal(t, "alice", pending.Name)
	assert.NotEqual(t, "s3cret-pw", pending.PasswordHash, "the stored credential must be hashed")
}

func TestBuildDeferredRegistrationIntentNameTaken(t *testing.T) {
	svc, repo, _ := newTestService()
	addUser(repo, "alice")

	_, err := svc.BuildIntent(context.Background(), &IntentRequest{
		Purpose:   PurposeDeferredRegistration,
		Candidate: &RegistrationCandidate{Name: "alice", Password: "s3cret-pw"},
	})
	assert.ErrorIs(t, err, ErrNameTaken)
}

func TestBuildIntentUnknownPurpose(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.BuildIntent(context.Background(), &IntentRequest{Purpose: "sponsorship"})
	assert.Error(t, err)
}

func TestCancelAccountSubscription(t *testing.T) {
	svc, repo, provider := newTestService()
	user := addUser(repo, "erin")
	require.NoError(t, repo.ActivateSubscription(user.ID, "sub_55", time.Now().Add(24*time.Hour)))

	require.NoError(t, svc.CancelAccountSubscription(context.Background(), user.ID))
	assert.Equal(t, []string{"sub_55"}, provider.canceled)

	// Local state waits for the provider's cancellation event.
	assert.Equal(t, models.SUBSCRIPTION_ACTIVE, user.SubscriptionStatus)
}

func TestCancelAccountSubscriptionWithoutOne(t *testing.T) {
	svc, repo, _ := newTestService()
	user := addUser(repo, "frank")

	err := svc.CancelAccountSubscription(context.Background(), user.ID)
	assert.ErrorIs(t, err, ErrNoSubscription)
}
