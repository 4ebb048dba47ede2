package billing

import (
	"time"

	"github.com/TimoLindner/Fanlume/app/models"
	apprepo "github.com/TimoLindner/Fanlume/app/repository"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository provides the DB operations the reconciliation engine needs.
type Repository interface {
	GetUserByID(id uint) (*models.User, error)
	GetUserByName(name string) (*models.User, error)
	CreateUser(user *models.User) error
	AttachBillingCustomerRef(userID uint, customerRef string) (string, error)
	ActivateSubscription(userID uint, subRef string, endsAt time.Time) error
	ExtendSubscription(subRef string, periodEnd time.Time) (int64, error)
	CancelBySubscriptionRef(subRef string) (int64, error)
	PurchaseExists(userID uint, itemRef string) (bool, error)
	CreatePurchaseIfAbsent(purchase *models.Purchase) (bool, error)
	CreatePendingRegistration(pending *models.PendingRegistration) error
	GetPendingRegistrationByToken(token string) (*models.PendingRegistration, error)
	ConsumePendingRegistration(id uint) error
	CreateWebhookEventIfNotExists(event *models.BillingWebhookEvent) (bool, *models.BillingWebhookEvent, error)
	MarkWebhookProcessed(id uint, processingError string) error
	CreateNotification(userID uint, notificationType, content string, referenceID uint) error
}

// gormRepository backs the billing Repository with GORM, delegating to the
// shared app repositories where an operation already exists there.
type gormRepository struct {
	db    *gorm.DB
	repos *apprepo.Repositories
}

// NewRepository creates a billing repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db, repos: apprepo.NewRepositories(db)}
}

func (r *gormRepository) GetUserByID(id uint) (*models.User, error) {
	return r.repos.User.GetByID(id)
}

func (r *gormRepository) GetUserByName(name string) (*models.User, error) {
	return r.repos.User.GetByName(name)
}

func (r *gormRepository) CreateUser(user *models.User) error {
	return r.repos.User.Create(user)
}

func (r *gormRepository) AttachBillingCustomerRef(userID uint, customerRef string) (string, error) {
	return r.repos.User.AttachBillingCustomerRef(userID, customerRef)
}

func (r *gormRepository) ActivateSubscription(userID uint, subRef string, endsAt time.Time) error {
	return r.repos.User.ActivateSubscription(userID, subRef, endsAt)
}

func (r *gormRepository) ExtendSubscription(subRef string, periodEnd time.Time) (int64, error) {
	return r.repos.User.ExtendSubscription(subRef, periodEnd)
}

func (r *gormRepository) CancelBySubscriptionRef(subRef string) (int64, error) {
	return r.repos.User.CancelBySubscriptionRef(subRef)
}

func (r *gormRepository) PurchaseExists(userID uint, itemRef string) (bool, error) {
	return r.repos.Purchase.ExistsByUserAndItem(userID, itemRef)
}

func (r *gormRepository) CreatePurchaseIfAbsent(purchase *models.Purchase) (bool, error) {
	return r.repos.Purchase.CreateIfAbsent(purchase)
}

func (r *gormRepository) CreatePendingRegistration(pending *models.PendingRegistration) error {
	return r.repos.PendingRegistration.Create(pending)
}

func (r *gormRepository) GetPendingRegistrationByToken(token string) (*models.PendingRegistration, error) {
	return r.repos.PendingRegistration.GetByToken(token)
}

func (r *gormRepository) ConsumePendingRegistration(id uint) error {
	return r.repos.PendingRegistration.MarkConsumed(id)
}

func (r *gormRepository) CreateWebhookEventIfNotExists(event *models.BillingWebhookEvent) (bool, *models.BillingWebhookEvent, error) {
	tx := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "event_id"}},
		DoNothing: true,
	}).Create(event)
	if tx.Error != nil {
		return false, nil, tx.Error
	}

	created := tx.RowsAffected > 0
	var stored models.BillingWebhookEvent
	if err := r.db.Where("event_id = ?", event.EventID).First(&stored).Error; err != nil {
		return false, nil, err
	}
	return created, &stored, nil
}

func (r *gormRepository) MarkWebhookProcessed(id uint, processingError string) error {
	now := time.Now()
	updates := map[string]interface{}{
		"processed_at":     &now,
		"processing_error": processingError,
	}
	return r.db.Model(&models.BillingWebhookEvent{}).Where("id = ?", id).Updates(updates).Error
}

func (r *gormRepository) CreateNotification(userID uint, notificationType, content string, referenceID uint) error {
	return models.CreateNotification(r.db, userID, notificationType, content, referenceID)
}
