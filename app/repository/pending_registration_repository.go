package repository

import (
	"time"

	"github.com/TimoLindner/Fanlume/app/models"
	"gorm.io/gorm"
)

// pendingRegistrationRepository implements the PendingRegistrationRepository interface
type pendingRegistrationRepository struct {
	db *gorm.DB
}

// NewPendingRegistrationRepository creates a new pending registration repository instance
func NewPendingRegistrationRepository(db *gorm.DB) PendingRegistrationRepository {
	return &pendingRegistrationRepository{db: db}
}

// Create stores a deferred-registration candidate
func (r *pendingRegistrationRepository) Create(pending *models.PendingRegistration) error {
	return r.db.Create(pending).Error
}

// GetByToken retrieves a candidate by its locally generated token
func (r *pendingRegistrationRepository) GetByToken(token string) (*models.PendingRegistration, error) {
	var pending models.PendingRegistration
	err := r.db.Where("token = ?", token).First(&pending).Error
	if err != nil {
		return nil, err
	}
	return &pending, nil
}

// MarkConsumed stamps the candidate as completed. Stamping an already
// consumed row again writes the same fact and stays idempotent.
func (r *pendingRegistrationRepository) MarkConsumed(id uint) error {
	now := time.Now()
	return r.db.Model(&models.PendingRegistration{}).
		Where("id = ? AND consumed_at IS NULL", id).
		Update("consumed_at", &now).Error
}

// DeleteExpired removes unconsumed candidates older than the given cutoff.
// Expired checkouts leave no provider-side state to release, so this is
// plain housekeeping.
func (r *pendingRegistrationRepository) DeleteExpired(olderThan time.Time) (int64, error) {
	tx := r.db.Where("consumed_at IS NULL AND created_at < ?", olderThan).
		Delete(&models.PendingRegistration{})
	return tx.RowsAffected, tx.Error
}
