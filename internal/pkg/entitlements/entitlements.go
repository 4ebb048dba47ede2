// Package entitlements answers the single question the rest of the platform
// asks about an account: may it see paid content right now. The evaluation is
// pure; all state lives on the account record.
package entitlements

import (
	"time"

	"github.com/TimoLindner/Fanlume/app/models"
)

// IsEntitled reports whether the account may access paid content at the given
// instant. Free access granted by an admin or the community growth reward
// always wins; otherwise the subscription must be active and its paid period
// must not have ended. A canceled subscription keeps entitling the account
// until that period runs out because the status flip to CANCELED does not
// touch the end date.
func IsEntitled(u *models.User, now time.Time) bool {
	if u == nil {
		return false
	}
	if u.FreeAccessGranted {
		return true
	}
	if u.SubscriptionStatus != models.SUBSCRIPTION_ACTIVE {
		return false
	}
	return u.SubscriptionEndsAt != nil && u.SubscriptionEndsAt.After(now)
}

// Snapshot is the externally visible entitlement state of an account.
type Snapshot struct {
	Entitled   bool       `json:"entitled"`
	Status     string     `json:"status"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
	FreeAccess bool       `json:"free_access"`
}

// Evaluate produces the full snapshot served by the entitlement endpoint.
func Evaluate(u *models.User, now time.Time) Snapshot {
	if u == nil {
		return Snapshot{Status: models.SUBSCRIPTION_INACTIVE}
	}
	return Snapshot{
		Entitled:   IsEntitled(u, now),
		Status:     u.SubscriptionStatus,
		ExpiresAt:  u.SubscriptionEndsAt,
		FreeAccess: u.FreeAccessGranted,
	}
}
