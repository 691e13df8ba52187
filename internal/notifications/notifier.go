package notifications

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

// KindPaymentTimedOut tags customer notifications about cancelled unpaid orders.
const KindPaymentTimedOut = "payment_timed_out"

// Notifier tells customers about order changes they did not initiate.
type Notifier interface {
	NotifyPaymentTimedOut(ctx context.Context, order models.PaymentOrder) error
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.Event) error
}

// Request is the outbox payload a delivery worker turns into an email or push.
type Request struct {
	Kind       string    `json:"kind"`
	OrderID    uuid.UUID `json:"orderId"`
	CustomerID string    `json:"customerId"`
	Message    string    `json:"message"`
}

type outboxNotifier struct {
	tx     txRunner
	outbox outboxPublisher
	now    func() time.Time
}

// NewOutboxNotifier queues notification requests through the outbox so
// delivery happens out of band.
func NewOutboxNotifier(tx txRunner, publisher outboxPublisher, now func() time.Time) (Notifier, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if now == nil {
		now = time.Now
	}
	return &outboxNotifier{tx: tx, outbox: publisher, now: now}, nil
}

func (n *outboxNotifier) NotifyPaymentTimedOut(ctx context.Context, order models.PaymentOrder) error {
	if order.ID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	event := outbox.Event{
		Type:          enums.EventNotificationRequested,
		AggregateType: enums.AggregatePaymentOrder,
		AggregateID:   order.ID.String(),
		Actor:         outbox.SystemActor,
		Data: Request{
			Kind:       KindPaymentTimedOut,
			OrderID:    order.ID,
			CustomerID: order.CustomerID,
			Message:    "Your order was cancelled because payment was not received in time.",
		},
		OccurredAt: n.now().UTC(),
	}
	err := n.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return n.outbox.EmitIfNotExists(ctx, tx, event)
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodePersistence, err, "queue payment timeout notification")
	}
	return nil
}
