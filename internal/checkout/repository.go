package checkout

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// Repository persists the checkout sessions handed to the gateway.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, session *models.CheckoutSession) error
	FindBySessionID(ctx context.Context, sessionID string) (*models.CheckoutSession, error)
	MarkCompleted(ctx context.Context, tx *gorm.DB, sessionID string, orderID uuid.UUID, at time.Time) error
	MarkExpired(ctx context.Context, sessionID string, at time.Time) (bool, error)
	ListOpenBefore(ctx context.Context, before time.Time, limit int) ([]models.CheckoutSession, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a checkout session repository.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, session *models.CheckoutSession) error {
	if session.ID == uuid.Nil {
		session.ID = uuid.New()
	}
	if session.Status == "" {
		session.Status = enums.CheckoutSessionOpen
	}
	return r.db.WithContext(ctx).Create(session).Error
}

func (r *repository) FindBySessionID(ctx context.Context, sessionID string) (*models.CheckoutSession, error) {
	var session models.CheckoutSession
	if err := r.db.WithContext(ctx).First(&session, "session_id = ?", sessionID).Error; err != nil {
		return nil, err
	}
	return &session, nil
}

// MarkCompleted links the session to its order inside the caller's
// transaction. Sessions this service never recorded are ignored.
func (r *repository) MarkCompleted(ctx context.Context, tx *gorm.DB, sessionID string, orderID uuid.UUID, at time.Time) error {
	conn := r.db
	if tx != nil {
		conn = tx
	}
	return conn.WithContext(ctx).
		Model(&models.CheckoutSession{}).
		Where("session_id = ?", sessionID).
		Updates(map[string]any{
			"status":      enums.CheckoutSessionCompleted,
			"order_id":    orderID,
			"resolved_at": at,
		}).Error
}

// MarkExpired only moves open sessions and reports whether a row changed.
func (r *repository) MarkExpired(ctx context.Context, sessionID string, at time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.CheckoutSession{}).
		Where("session_id = ? AND status = ?", sessionID, enums.CheckoutSessionOpen).
		Updates(map[string]any{
			"status":      enums.CheckoutSessionExpired,
			"resolved_at": at,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// ListOpenBefore returns the oldest open sessions created before the cutoff.
func (r *repository) ListOpenBefore(ctx context.Context, before time.Time, limit int) ([]models.CheckoutSession, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []models.CheckoutSession
	err := r.db.WithContext(ctx).
		Where("status = ? AND created_at < ?", enums.CheckoutSessionOpen, before).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
