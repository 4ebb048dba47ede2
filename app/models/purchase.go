package models

import "time"

// Purchase records a completed one-time checkout for a catalog item. The
// CheckoutRef unique index is the idempotency key: replaying the same
// checkout.completed event can never produce a second row.
type Purchase struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	UserID      uint      `gorm:"not null;index:ux_purchases_user_item,unique,priority:1" json:"user_id"`
	ItemRef     string    `gorm:"type:varchar(191);not null;index:ux_purchases_user_item,unique,priority:2" json:"item_ref"`
	CheckoutRef string    `gorm:"type:varchar(191);not null;uniqueIndex" json:"checkout_ref"`
	AmountCents int64     `gorm:"not null;default:0" json:"amount_cents"`
	PurchasedAt time.Time `gorm:"type:timestamp;not null" json:"purchased_at"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
