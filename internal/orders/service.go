package orders

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/serialstock/pkg/db/models"
	"github.com/angelmondragon/serialstock/pkg/enums"
	pkgerrors "github.com/angelmondragon/serialstock/pkg/errors"
	"github.com/angelmondragon/serialstock/pkg/outbox"
)

// PaymentTimeoutReason is stored on orders cancelled for non-payment.
const PaymentTimeoutReason = "payment timed out"

// StatusUpdater is the order mutation the payment reconciler depends on.
type StatusUpdater interface {
	MarkPaymentTimedOut(ctx context.Context, orderID uuid.UUID, reason string) (bool, error)
}

// Finder lists orders the reconciler should look at.
type Finder interface {
	FindAwaitingPayment(ctx context.Context, createdBefore time.Time, limit int) ([]models.PaymentOrder, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.Event) error
}

// Service implements order lookups and the payment-timeout cancel for the
// single-database deployment.
type Service interface {
	StatusUpdater
	Finder
}

type service struct {
	tx     txRunner
	repo   Repository
	outbox outboxPublisher
	now    func() time.Time
}

// PaymentTimedOutEvent is the outbox payload announcing a cancelled order.
type PaymentTimedOutEvent struct {
	OrderID     uuid.UUID `json:"orderId"`
	CustomerID  string    `json:"customerId"`
	Reason      string    `json:"reason"`
	CancelledAt time.Time `json:"cancelledAt"`
}

func NewService(tx txRunner, repo Repository, publisher outboxPublisher, now func() time.Time) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if now == nil {
		now = time.Now
	}
	return &service{tx: tx, repo: repo, outbox: publisher, now: now}, nil
}

func (s *service) FindAwaitingPayment(ctx context.Context, createdBefore time.Time, limit int) ([]models.PaymentOrder, error) {
	rows, err := s.repo.FindAwaitingPaymentBefore(ctx, createdBefore.UTC(), limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "load awaiting orders")
	}
	return rows, nil
}

// MarkPaymentTimedOut cancels the order and queues an order event in the same
// transaction. Orders already paid or cancelled are left untouched and report
// false.
func (s *service) MarkPaymentTimedOut(ctx context.Context, orderID uuid.UUID, reason string) (bool, error) {
	if orderID == uuid.Nil {
		return false, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	if reason == "" {
		reason = PaymentTimeoutReason
	}
	now := s.now().UTC()
	var cancelled bool
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindByID(ctx, orderID)
		if err != nil {
			return err
		}
		if order == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		cancelled, err = repo.MarkPaymentTimedOut(ctx, orderID, reason, now)
		if err != nil || !cancelled {
			return err
		}
		return s.outbox.Emit(ctx, tx, outbox.Event{
			Type:          enums.EventOrderPaymentTimedOut,
			AggregateType: enums.AggregatePaymentOrder,
			AggregateID:   orderID.String(),
			Actor:         outbox.SystemActor,
			Data: PaymentTimedOutEvent{
				OrderID:     orderID,
				CustomerID:  order.CustomerID,
				Reason:      reason,
				CancelledAt: now,
			},
			OccurredAt: now,
		})
	})
	if err != nil {
		if pkgerrors.As(err) != nil {
			return false, err
		}
		return false, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "cancel order")
	}
	return cancelled, nil
}
