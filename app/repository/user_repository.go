package repository

import (
	"strings"
	"time"

	"github.com/TimoLindner/Fanlume/app/models"
	"gorm.io/gorm"
)

// userRepository implements the UserRepository interface
type userRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new user repository instance
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

// Create creates a new user in the database
func (r *userRepository) Create(user *models.User) error {
	return r.db.Create(user).Error
}

// GetByID retrieves a user by their ID
func (r *userRepository) GetByID(id uint) (*models.User, error) {
	var user models.User
	err := r.db.First(&user, id).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByName retrieves a user by their display name
func (r *userRepository) GetByName(name string) (*models.User, error) {
	var user models.User
	err := r.db.Where("name = ?", strings.TrimSpace(name)).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Update saves an existing user
func (r *userRepository) Update(user *models.User) error {
	return r.db.Save(user).Error
}

// AttachBillingCustomerRef backfills the provider customer reference, but only
// when none is set yet, so a retried checkout reuses the first customer. The
// effective reference is re-read and returned either way.
func (r *userRepository) AttachBillingCustomerRef(userID uint, customerRef string) (string, error) {
	err := r.db.Model(&models.User{}).
		Where("id = ? AND (billing_customer_ref IS NULL OR billing_customer_ref = '')", userID).
		Update("billing_customer_ref", customerRef).Error
	if err != nil {
		return "", err
	}

	var user models.User
	if err := r.db.Select("billing_customer_ref").First(&user, userID).Error; err != nil {
		return "", err
	}
	return user.BillingCustomerRef, nil
}

// ActivateSubscription moves an account to ACTIVE with the given subscription
// reference and period end. Status and reference are written unconditionally;
// the period end carries the same forward-only guard as ExtendSubscription,
// so a replayed completion event can never roll an already-renewed expiry
// backward. An empty subRef leaves the stored reference untouched.
func (r *userRepository) ActivateSubscription(userID uint, subRef string, endsAt time.Time) error {
	updates := map[string]interface{}{
		"subscription_status": models.SUBSCRIPTION_ACTIVE,
	}
	if subRef != "" {
		updates["billing_subscription_ref"] = subRef
	}
	if err := r.db.Model(&models.User{}).Where("id = ?", userID).Updates(updates).Error; err != nil {
		return err
	}

	return r.db.Model(&models.User{}).
		Where("id = ? AND (subscription_ends_at IS NULL OR subscription_ends_at < ?)", userID, endsAt).
		Update("subscription_ends_at", endsAt).Error
}

// ExtendSubscription extends the paid period for the account holding subRef.
// The WHERE clause enforces the monotonic rule: a stale renewal event can
// never move subscription_ends_at backward. The matched count comes from an
// explicit count on the reference, not from UPDATE RowsAffected: the MySQL
// driver reports changed rows, so a renewal that re-states the current period
// end for an already-active account would otherwise look like a miss.
func (r *userRepository) ExtendSubscription(subRef string, periodEnd time.Time) (int64, error) {
	var matched int64
	if err := r.db.Model(&models.User{}).
		Where("billing_subscription_ref = ?", subRef).
		Count(&matched).Error; err != nil {
		return 0, err
	}
	if matched == 0 {
		return 0, nil
	}

	err := r.db.Model(&models.User{}).
		Where("billing_subscription_ref = ? AND (subscription_ends_at IS NULL OR subscription_ends_at < ?)", subRef, periodEnd).
		Update("subscription_ends_at", periodEnd).Error
	if err != nil {
		return 0, err
	}

	err = r.db.Model(&models.User{}).
		Where("billing_subscription_ref = ?", subRef).
		Update("subscription_status", models.SUBSCRIPTION_ACTIVE).Error
	if err != nil {
		return 0, err
	}
	return matched, nil
}

// CancelBySubscriptionRef marks every account holding subRef as CANCELED.
// Zero matches is success: the event may arrive after local deletion.
func (r *userRepository) CancelBySubscriptionRef(subRef string) (int64, error) {
	tx := r.db.Model(&models.User{}).
		Where("billing_subscription_ref = ?", subRef).
		Update("subscription_status", models.SUBSCRIPTION_CANCELED)
	return tx.RowsAffected, tx.Error
}

// SetFreeAccess toggles the alternate entitlement grant for an account.
func (r *userRepository) SetFreeAccess(userID uint, granted bool) error {
	return r.db.Model(&models.User{}).Where("id = ?", userID).
		Update("free_access_granted", granted).Error
}

// List retrieves users with pagination
func (r *userRepository) List(offset, limit int) ([]models.User, error) {
	var users []models.User
	err := r.db.Offset(offset).Limit(limit).Order("created_at DESC").Find(&users).Error
	return users, err
}

// Count returns the total number of users
func (r *userRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&models.User{}).Count(&count).Error
	return count, err
}
