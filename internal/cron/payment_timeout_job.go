package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/angelmondragon/serialstock/internal/audit"
	"github.com/angelmondragon/serialstock/internal/orders"
	"github.com/angelmondragon/serialstock/pkg/db/models"
	"github.com/angelmondragon/serialstock/pkg/enums"
	"github.com/angelmondragon/serialstock/pkg/logger"
)

const (
	systemActor          = "SYSTEM"
	paymentTimeoutReason = "payment timeout"
)

type awaitingOrderFinder interface {
	FindAwaitingPayment(ctx context.Context, createdBefore time.Time, limit int) ([]models.PaymentOrder, error)
}

type correlationReleaser interface {
	ReleaseByCorrelationID(ctx context.Context, correlationID, actor, reason string) (int, error)
}

type paymentTimeoutNotifier interface {
	NotifyPaymentTimedOut(ctx context.Context, order models.PaymentOrder) error
}

type auditRecorder interface {
	Record(ctx context.Context, tx *gorm.DB, entry audit.Entry) (*models.UnitAuditRecord, error)
}

// PaymentTimeoutJobParams configure the unpaid order sweep.
type PaymentTimeoutJobParams struct {
	Logger    *logger.Logger
	Orders    awaitingOrderFinder
	Updater   orders.StatusUpdater
	Releaser  correlationReleaser
	Notifier  paymentTimeoutNotifier
	Audit     auditRecorder
	Deadline  time.Duration
	BatchSize int
	Now       func() time.Time
}

type paymentTimeoutJob struct {
	logg      *logger.Logger
	orders    awaitingOrderFinder
	updater   orders.StatusUpdater
	releaser  correlationReleaser
	notifier  paymentTimeoutNotifier
	audit     auditRecorder
	deadline  time.Duration
	batchSize int
	now       func() time.Time
}

// PaymentTimeoutRecord is stored as the after-snapshot of the order-level audit entry.
type PaymentTimeoutRecord struct {
	OrderID       uuid.UUID `json:"order_id"`
	CustomerID    string    `json:"customer_id"`
	UnitsReleased int       `json:"units_released"`
	Cancelled     bool      `json:"cancelled"`
	Notified      bool      `json:"notified"`
	Skipped       string    `json:"skipped,omitempty"`
}

const skipNotAwaiting = "order no longer awaiting payment"

// NewPaymentTimeoutJob builds the job that cancels orders whose payment never arrived.
func NewPaymentTimeoutJob(params PaymentTimeoutJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("order finder required")
	}
	if params.Updater == nil {
		return nil, fmt.Errorf("order status updater required")
	}
	if params.Releaser == nil {
		return nil, fmt.Errorf("correlation releaser required")
	}
	if params.Notifier == nil {
		return nil, fmt.Errorf("notifier required")
	}
	if params.Audit == nil {
		return nil, fmt.Errorf("audit recorder required")
	}
	if params.Deadline <= 0 {
		return nil, fmt.Errorf("payment deadline must be positive")
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultBatchSize
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &paymentTimeoutJob{
		logg:      params.Logger,
		orders:    params.Orders,
		updater:   params.Updater,
		releaser:  params.Releaser,
		notifier:  params.Notifier,
		audit:     params.Audit,
		deadline:  params.Deadline,
		batchSize: batch,
		now:       now,
	}, nil
}

func (j *paymentTimeoutJob) Name() string { return "payment-timeout" }

func (j *paymentTimeoutJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.deadline)
	pending, err := j.orders.FindAwaitingPayment(ctx, cutoff, j.batchSize)
	if err != nil {
		return fmt.Errorf("query awaiting orders: %w", err)
	}
	var errs error
	for _, order := range pending {
		if ctx.Err() != nil {
			return multierr.Append(errs, ctx.Err())
		}
		errs = multierr.Append(errs, j.reconcile(ctx, order))
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"orders": len(pending),
		"failed": len(multierr.Errors(errs)),
	})
	j.logg.Info(logCtx, "payment timeout sweep complete")
	return errs
}

// reconcile cancels the order first. An order that was paid or cancelled since
// it was listed keeps its units and gets no notification. Otherwise every step
// runs even when an earlier one fails.
func (j *paymentTimeoutJob) reconcile(ctx context.Context, order models.PaymentOrder) error {
	orderID := order.ID.String()
	ctx = j.logg.WithFields(ctx, map[string]any{"order_id": orderID, "customer_id": order.CustomerID})
	summary := PaymentTimeoutRecord{OrderID: order.ID, CustomerID: order.CustomerID}
	var errs error

	cancelled, err := j.updater.MarkPaymentTimedOut(ctx, order.ID, orders.PaymentTimeoutReason)
	switch {
	case err != nil:
		j.logg.Error(ctx, "payment timeout: cancel order failed", err)
		errs = multierr.Append(errs, fmt.Errorf("order %s cancel: %w", orderID, err))
	case !cancelled:
		j.logg.Info(ctx, "payment timeout: order no longer awaiting payment")
		summary.Skipped = skipNotAwaiting
	default:
		summary.Cancelled = true
		j.logg.Info(ctx, "payment timeout: order cancelled")
	}

	if summary.Skipped == "" {
		released, err := j.releaser.ReleaseByCorrelationID(ctx, orderID, systemActor, paymentTimeoutReason)
		if err != nil {
			j.logg.Error(ctx, "payment timeout: release units failed", err)
			errs = multierr.Append(errs, fmt.Errorf("order %s release units: %w", orderID, err))
		} else {
			summary.UnitsReleased = released
			j.logg.Info(j.logg.WithField(ctx, "released", released), "payment timeout: units released")
		}

		if err := j.notifier.NotifyPaymentTimedOut(ctx, order); err != nil {
			j.logg.Error(ctx, "payment timeout: notify customer failed", err)
			errs = multierr.Append(errs, fmt.Errorf("order %s notify: %w", orderID, err))
		} else {
			summary.Notified = true
			j.logg.Info(ctx, "payment timeout: customer notification queued")
		}
	}

	_, err = j.audit.Record(ctx, nil, audit.Entry{
		Action:        enums.AuditActionPaymentTimeout,
		Actor:         systemActor,
		Reason:        paymentTimeoutReason,
		After:         summary,
		CorrelationID: orderID,
	})
	if err != nil {
		j.logg.Error(ctx, "payment timeout: audit record failed", err)
		errs = multierr.Append(errs, fmt.Errorf("order %s audit: %w", orderID, err))
	} else {
		j.logg.Info(ctx, "payment timeout: audit recorded")
	}
	return errs
}
