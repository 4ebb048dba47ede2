package models

import (
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	ROLE_USER  = "user"
	ROLE_ADMIN = "admin"
	ROLE_OWNER = "owner"

	SUBSCRIPTION_INACTIVE = "inactive"
	SUBSCRIPTION_ACTIVE   = "active"
	SUBSCRIPTION_CANCELED = "canceled"
)

// User is the account record this engine reconciles billing events into.
// Subscription fields are mutated only by reconciliation handlers, admin
// action or the community growth grant - never by request handlers directly.
type User struct {
	ID                     uint           `gorm:"primaryKey" json:"id"`
	Name                   string         `gorm:"uniqueIndex;type:varchar(150) CHARACTER SET utf8 COLLATE utf8_bin" json:"name" validate:"required,min=3,max=150"`
	Email                  string         `gorm:"type:varchar(200);index" json:"email" validate:"omitempty,email,max=200"`
	Password               string         `gorm:"type:text" json:"-" validate:"required,min=6"`
	Role                   string         `gorm:"type:varchar(50);default:'user'" json:"role" validate:"oneof=user admin owner"`
	SubscriptionStatus     string         `gorm:"type:varchar(50);default:'inactive';index" json:"subscription_status" validate:"oneof=inactive active canceled"`
	SubscriptionEndsAt     *time.Time     `gorm:"type:timestamp;default:null" json:"subscription_ends_at,omitempty"`
	BillingCustomerRef     string         `gorm:"type:varchar(191);default:''" json:"-"`
	BillingSubscriptionRef *string        `gorm:"type:varchar(191);uniqueIndex;default:null" json:"-"`
	FreeAccessGranted      bool           `gorm:"default:false" json:"free_access_granted"`
	Bio                    string         `gorm:"type:text;default:null" json:"bio" validate:"max=1000"`
	LastLoginAt            *time.Time     `gorm:"type:timestamp;default:null" json:"last_login_at"`
	CreatedAt              time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt              time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt              gorm.DeletedAt `gorm:"index" json:"-"`
}

func (u *User) Validate() error {
	v := validator.New()

	return v.Struct(u)
}

// CreateUser builds a validated account with a hashed credential. The caller
// persists it; interactive and deferred registration share this path.
func CreateUser(username string, email string, password string) (*User, error) {
	pw, err := HashPassword(password)
	if err != nil {
		return nil, err
	}

	u := &User{
		Name:               username,
		Email:              email,
		Password:           pw,
		Role:               ROLE_USER,
		SubscriptionStatus: SUBSCRIPTION_INACTIVE,
	}

	err = u.Validate()
	if err != nil {
		return nil, err
	}

	return u, nil
}

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)

	return string(bytes), err
}

// CheckPasswordHash compares the given password with the stored hash.
func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))

	return err == nil
}

// CheckPassword verifies if the provided password matches the user's stored password
func (u *User) CheckPassword(password string) bool {
	return CheckPasswordHash(password, u.Password)
}

// SetPassword hashes and sets a new password for the user
func (u *User) SetPassword(password string) error {
	hashedPassword, err := HashPassword(password)
	if err != nil {
		return err
	}
	u.Password = hashedPassword
	return nil
}

// IsAdmin reports whether the user may perform administrative actions.
func (u *User) IsAdmin() bool {
	return u.Role == ROLE_ADMIN || u.Role == ROLE_OWNER
}

// SubscriptionRef returns the attached billing subscription reference, or "".
func (u *User) SubscriptionRef() string {
	if u.BillingSubscriptionRef == nil {
		return ""
	}
	return *u.BillingSubscriptionRef
}

// HasSubscriptionExpired reports whether a stored ACTIVE status is already
// stale because the paid period crossed its end without a cancellation event.
func (u *User) HasSubscriptionExpired(now time.Time) bool {
	if u.SubscriptionStatus != SUBSCRIPTION_ACTIVE {
		return false
	}
	return u.SubscriptionEndsAt != nil && !u.SubscriptionEndsAt.After(now)
}
