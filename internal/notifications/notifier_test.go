package notifications

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/serialstock/pkg/db/models"
	"github.com/angelmondragon/serialstock/pkg/enums"
	pkgerrors "github.com/angelmondragon/serialstock/pkg/errors"
	"github.com/angelmondragon/serialstock/pkg/outbox"
)

type stubTx struct{}

func (stubTx) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(&gorm.DB{})
}

type recordingPublisher struct {
	events []outbox.Event
	err    error
}

func (r *recordingPublisher) EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.Event) error {
	if r.err != nil {
		return r.err
	}
	r.events = append(r.events, event)
	return nil
}

func TestNotifyPaymentTimedOutQueuesRequest(t *testing.T) {
	pub := &recordingPublisher{}
	now := time.Date(2026, 7, 1, 9, 0, 0, 0, time.UTC)
	notifier, err := NewOutboxNotifier(stubTx{}, pub, func() time.Time { return now })
	if err != nil {
		t.Fatalf("new notifier: %v", err)
	}
	order := models.PaymentOrder{ID: uuid.New(), CustomerID: "cust-9"}

	if err := notifier.NotifyPaymentTimedOut(context.Background(), order); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if len(pub.events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(pub.events))
	}
	event := pub.events[0]
	if event.Type != enums.EventNotificationRequested || event.AggregateType != enums.AggregatePaymentOrder {
		t.Fatalf("unexpected event routing: %+v", event)
	}
	if event.AggregateID != order.ID.String() {
		t.Fatalf("expected aggregate %s, got %s", order.ID, event.AggregateID)
	}
	req, ok := event.Data.(Request)
	if !ok || req.CustomerID != "cust-9" || req.Kind != KindPaymentTimedOut {
		t.Fatalf("unexpected payload: %#v", event.Data)
	}
	if !event.OccurredAt.Equal(now) {
		t.Fatalf("expected occurred at %s, got %s", now, event.OccurredAt)
	}
}

func TestNotifyPaymentTimedOutWrapsFailures(t *testing.T) {
	notifier, err := NewOutboxNotifier(stubTx{}, &recordingPublisher{err: errors.New("boom")}, nil)
	if err != nil {
		t.Fatalf("new notifier: %v", err)
	}
	err = notifier.NotifyPaymentTimedOut(context.Background(), models.PaymentOrder{ID: uuid.New()})
	if !pkgerrors.Is(err, pkgerrors.CodePersistence) {
		t.Fatalf("expected persistence error, got %v", err)
	}
	err = notifier.NotifyPaymentTimedOut(context.Background(), models.PaymentOrder{})
	if !pkgerrors.Is(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
