package repository

import (
	"time"

	"github.com/TimoLindner/Fanlume/app/models"
	"gorm.io/gorm"
)

// UserRepository defines the interface for account-related database operations.
// Subscription mutations are expressed as conditional update-by-key statements
// so concurrent reconciliation handlers for the same account cannot lose
// updates through read-modify-write races.
type UserRepository interface {
	Create(user *models.User) error
	GetByID(id uint) (*models.User, error)
	GetByName(name string) (*models.User, error)
	Update(user *models.User) error
	AttachBillingCustomerRef(userID uint, customerRef string) (string, error)
	ActivateSubscription(userID uint, subRef string, endsAt time.Time) error
	ExtendSubscription(subRef string, periodEnd time.Time) (int64, error)
	CancelBySubscriptionRef(subRef string) (int64, error)
	SetFreeAccess(userID uint, granted bool) error
	List(offset, limit int) ([]models.User, error)
	Count() (int64, error)
}

// PurchaseRepository defines the interface for one-time purchase records
type PurchaseRepository interface {
	CreateIfAbsent(purchase *models.Purchase) (bool, error)
	ExistsByUserAndItem(userID uint, itemRef string) (bool, error)
	ListByUser(userID uint) ([]models.Purchase, error)
}

// PendingRegistrationRepository manages deferred-registration candidates
type PendingRegistrationRepository interface {
	Create(pending *models.PendingRegistration) error
	GetByToken(token string) (*models.PendingRegistration, error)
	MarkConsumed(id uint) error
	DeleteExpired(olderThan time.Time) (int64, error)
}

// SpaceRepository defines the interface for community space operations
type SpaceRepository interface {
	Create(space *models.Space) error
	GetByID(id uint) (*models.Space, error)
	UpdateMemberCount(id uint, count int) error
	MarkGrowthRewarded(id uint) (bool, error)
}

// Repositories struct holds all repository instances
type Repositories struct {
	User                UserRepository
	Purchase            PurchaseRepository
	PendingRegistration PendingRegistrationRepository
	Space               SpaceRepository
}

// NewRepositories creates a new instance of all repositories
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		User:                NewUserRepository(db),
		Purchase:            NewPurchaseRepository(db),
		PendingRegistration: NewPendingRegistrationRepository(db),
		Space:               NewSpaceRepository(db),
	}
}
