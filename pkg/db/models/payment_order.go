package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/serialstock/pkg/enums"
)

// PaymentOrder is the slice of the order aggregate the payment reconciler needs.
type PaymentOrder struct {
	ID            uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	CustomerID    string              `gorm:"column:customer_id;not null"`
	Status        enums.OrderStatus   `gorm:"column:status;type:text;not null;default:'pending'"`
	PaymentStatus enums.PaymentStatus `gorm:"column:payment_status;type:text;not null;default:'awaiting';index:ix_payment_orders_awaiting,priority:1"`
	CancelReason  *string             `gorm:"column:cancel_reason"`
	CancelledAt   *time.Time          `gorm:"column:cancelled_at"`
	CreatedAt     time.Time           `gorm:"column:created_at;not null;index:ix_payment_orders_awaiting,priority:2"`
	UpdatedAt     time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName pins the table name.
func (PaymentOrder) TableName() string {
	return "payment_orders"
}
