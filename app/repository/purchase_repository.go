package repository

import (
	"github.com/TimoLindner/Fanlume/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// purchaseRepository implements the PurchaseRepository interface
type purchaseRepository struct {
	db *gorm.DB
}

// NewPurchaseRepository creates a new purchase repository instance
func NewPurchaseRepository(db *gorm.DB) PurchaseRepository {
	return &purchaseRepository{db: db}
}

// CreateIfAbsent inserts a purchase keyed by its checkout reference and
// reports whether this call created the row. A duplicate completion event
// for the same checkout hits the unique index and becomes a no-op.
func (r *purchaseRepository) CreateIfAbsent(purchase *models.Purchase) (bool, error) {
	tx := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "checkout_ref"}},
		DoNothing: true,
	}).Create(purchase)
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

// ExistsByUserAndItem reports whether the account already owns the item.
func (r *purchaseRepository) ExistsByUserAndItem(userID uint, itemRef string) (bool, error) {
	var count int64
	err := r.db.Model(&models.Purchase{}).
		Where("user_id = ? AND item_ref = ?", userID, itemRef).
		Count(&count).Error
	return count > 0, err
}

// ListByUser retrieves all purchases for an account
func (r *purchaseRepository) ListByUser(userID uint) ([]models.Purchase, error) {
	var purchases []models.Purchase
	err := r.db.Where("user_id = ?", userID).Order("purchased_at DESC").Find(&purchases).Error
	return purchases, err
}
