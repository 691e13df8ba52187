package orders

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/serialstock/pkg/db/models"
	"github.com/angelmondragon/serialstock/pkg/enums"
)

// Repository defines persistence operations for payment orders.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.PaymentOrder) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.PaymentOrder, error)
	FindAwaitingPaymentBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.PaymentOrder, error)
	MarkPaymentTimedOut(ctx context.Context, id uuid.UUID, reason string, at time.Time) (bool, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, order *models.PaymentOrder) error {
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.PaymentOrder, error) {
	var order models.PaymentOrder
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

// FindAwaitingPaymentBefore lists open orders still awaiting payment that were created before cutoff.
func (r *repository) FindAwaitingPaymentBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.PaymentOrder, error) {
	query := r.db.WithContext(ctx).
		Where("payment_status = ? AND status = ? AND created_at < ?", enums.PaymentStatusAwaiting, enums.OrderStatusPending, cutoff).
		Order("created_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var rows []models.PaymentOrder
	err := query.Find(&rows).Error
	return rows, err
}

// MarkPaymentTimedOut cancels the order if it is still awaiting payment.
func (r *repository) MarkPaymentTimedOut(ctx context.Context, id uuid.UUID, reason string, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.PaymentOrder{}).
		Where("id = ? AND payment_status = ? AND status = ?", id, enums.PaymentStatusAwaiting, enums.OrderStatusPending).
		Updates(map[string]any{
			"status":         enums.OrderStatusCancelled,
			"payment_status": enums.PaymentStatusFailed,
			"cancel_reason":  reason,
			"cancelled_at":   at,
			"updated_at":     at,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
