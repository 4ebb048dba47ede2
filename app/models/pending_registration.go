package models

import (
	"crypto/rand"
	"encoding/hex"
	"time"
)

// PendingRegistration holds a deferred-registration candidate server-side.
// Only the generated token crosses the trust boundary to the billing
// provider; the raw password never leaves this service and is hashed before
// the row is written.
type PendingRegistration struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	Token        string     `gorm:"type:varchar(64);not null;uniqueIndex" json:"-"`
	Name         string     `gorm:"type:varchar(150);not null" json:"name" validate:"required,min=3,max=150"`
	Email        string     `gorm:"type:varchar(200);default:''" json:"email" validate:"omitempty,email,max=200"`
	PasswordHash string     `gorm:"type:text;not null" json:"-"`
	Bio          string     `gorm:"type:text;default:null" json:"bio"`
	ConsumedAt   *time.Time `gorm:"type:timestamp;default:null" json:"consumed_at,omitempty"`
	CreatedAt    time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// NewPendingRegistration hashes the raw password and assigns a random token.
func NewPendingRegistration(name, email, rawPassword, bio string) (*PendingRegistration, error) {
	hash, err := HashPassword(rawPassword)
	if err != nil {
		return nil, err
	}

	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		return nil, err
	}

	return &PendingRegistration{
		Token:        hex.EncodeToString(b),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Bio:          bio,
	}, nil
}

// IsConsumed reports whether this candidate already completed registration.
func (p *PendingRegistration) IsConsumed() bool {
	return p.ConsumedAt != nil
}
