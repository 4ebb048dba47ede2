package repository

import (
	"time"

	"github.com/TimoLindner/Fanlume/app/models"
	"gorm.io/gorm"
)

// spaceRepository implements the SpaceRepository interface
type spaceRepository struct {
	db *gorm.DB
}

// NewSpaceRepository creates a new space repository instance
func NewSpaceRepository(db *gorm.DB) SpaceRepository {
	return &spaceRepository{db: db}
}

// Create creates a new community space
func (r *spaceRepository) Create(space *models.Space) error {
	return r.db.Create(space).Error
}

// GetByID retrieves a space by its ID
func (r *spaceRepository) GetByID(id uint) (*models.Space, error) {
	var space models.Space
	err := r.db.First(&space, id).Error
	if err != nil {
		return nil, err
	}
	return &space, nil
}

// UpdateMemberCount stores the member count reported by the membership collaborator
func (r *spaceRepository) UpdateMemberCount(id uint, count int) error {
	return r.db.Model(&models.Space{}).Where("id = ?", id).
		Update("member_count", count).Error
}

// MarkGrowthRewarded sets the reward flag and reports whether this call was
// the first to do so. The conditional update is what makes the threshold
// grant fire exactly once per space under concurrent membership changes.
func (r *spaceRepository) MarkGrowthRewarded(id uint) (bool, error) {
	now := time.Now()
	tx := r.db.Model(&models.Space{}).
		Where("id = ? AND growth_reward_granted_at IS NULL", id).
		Update("growth_reward_granted_at", &now)
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}
