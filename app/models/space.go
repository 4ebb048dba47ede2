package models

import (
	"time"

	"gorm.io/gorm"
)

// Space is a community room owned by one account. Membership management
// itself lives in the chat collaborator; this engine only consumes the
// member count for the growth reward and keeps the "already rewarded" flag
// so the grant can fire exactly once per space.
type Space struct {
	ID                    uint           `gorm:"primaryKey" json:"id"`
	Name                  string         `gorm:"type:varchar(150);not null" json:"name" validate:"required,min=3,max=150"`
	OwnerID               uint           `gorm:"not null;index" json:"owner_id"`
	MemberCount           int            `gorm:"not null;default:0" json:"member_count"`
	GrowthRewardGrantedAt *time.Time     `gorm:"type:timestamp;default:null" json:"growth_reward_granted_at,omitempty"`
	CreatedAt             time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt             time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt             gorm.DeletedAt `gorm:"index" json:"-"`
}

// IsGrowthRewarded reports whether the threshold grant already fired.
func (s *Space) IsGrowthRewarded() bool {
	return s.GrowthRewardGrantedAt != nil
}
