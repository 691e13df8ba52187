package main

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
	"gorm.io/gorm"

	"github.com/angelmondragon/serialstock/pkg/config"
	"github.com/angelmondragon/serialstock/pkg/db/models"
	"github.com/angelmondragon/serialstock/pkg/enums"
	"github.com/angelmondragon/serialstock/pkg/logger"
	"github.com/angelmondragon/serialstock/pkg/metrics"
	"github.com/angelmondragon/serialstock/pkg/outbox"
)

const (
	publishTimeout = 15 * time.Second
	maxPause       = 10 * time.Second
	pauseJitter    = 250 * time.Millisecond
)

type txRunner interface {
	Ping(ctx context.Context) error
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type streamWriter interface {
	Ping(ctx context.Context) error
	XAdd(ctx context.Context, stream string, maxLen int64, fields map[string]any) (string, error)
	StreamKey(aggregate string) string
}

type eventStore interface {
	FetchUnpublishedForPublish(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error)
	MarkPublishedTx(tx *gorm.DB, id uuid.UUID) error
	MarkFailedTx(tx *gorm.DB, id uuid.UUID, cause error) error
	MarkTerminalTx(tx *gorm.DB, id uuid.UUID, cause error, terminalAttempts int) error
}

type deadLetters interface {
	InsertTx(tx *gorm.DB, entry models.OutboxDLQ) error
}

// poisonError marks a row that can never be delivered as stored.
type poisonError struct{ error }

func (p poisonError) Unwrap() error { return p.error }

// RelayParams wires a Relay.
type RelayParams struct {
	Config  config.OutboxConfig
	Logger  *logger.Logger
	Metrics *metrics.RelayMetrics
	DB      txRunner
	Streams streamWriter
	Events  eventStore
	DLQ     deadLetters
}

// Relay forwards committed outbox rows to one Redis stream per aggregate type.
// A row is published, retried on the next batch, or dead-lettered.
type Relay struct {
	cfg     config.OutboxConfig
	logg    *logger.Logger
	metrics *metrics.RelayMetrics
	db      txRunner
	streams streamWriter
	events  eventStore
	dlq     deadLetters
	now     func() time.Time
}

func NewRelay(p RelayParams) (*Relay, error) {
	var missing []string
	for name, ok := range map[string]bool{
		"logger": p.Logger != nil, "db": p.DB != nil, "streams": p.Streams != nil,
		"events": p.Events != nil, "dlq": p.DLQ != nil,
	} {
		if !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		slices.Sort(missing)
		return nil, fmt.Errorf("relay: missing dependencies %v", missing)
	}

	cfg := p.Config
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 500 * time.Millisecond
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 10
	}
	return &Relay{
		cfg:     cfg,
		logg:    p.Logger,
		metrics: p.Metrics,
		db:      p.DB,
		streams: p.Streams,
		events:  p.Events,
		dlq:     p.DLQ,
		now:     time.Now,
	}, nil
}

// pauses yields growing, jittered waits starting at the poll interval.
func (r *Relay) pauses() retry.Backoff {
	b := retry.NewExponential(r.cfg.PollInterval)
	b = retry.WithCappedDuration(maxPause, b)
	return retry.WithJitter(pauseJitter, b)
}

// Run drains the outbox until ctx is cancelled. Full batches are followed
// immediately by the next one; idle polls and failures back off.
func (r *Relay) Run(ctx context.Context) error {
	for name, ping := range map[string]func(context.Context) error{"database": r.db.Ping, "redis": r.streams.Ping} {
		if err := ping(ctx); err != nil {
			return fmt.Errorf("relay: %s unreachable: %w", name, err)
		}
	}

	idle := r.pauses()
	for {
		n, err := r.drain(ctx)
		if err != nil {
			r.logg.Error(ctx, "outbox batch failed", err)
		}
		if err == nil && n >= r.cfg.BatchSize {
			idle = r.pauses()
			continue
		}
		if err == nil && n > 0 {
			idle = r.pauses()
		}
		wait, _ := idle.Next()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

// drain claims one batch and settles every row in it within one transaction.
func (r *Relay) drain(ctx context.Context) (int, error) {
	var claimed int
	err := r.db.WithTx(ctx, func(tx *gorm.DB) error {
		rows, err := r.events.FetchUnpublishedForPublish(tx, r.cfg.BatchSize, r.cfg.MaxAttempts)
		if err != nil {
			return fmt.Errorf("claim batch: %w", err)
		}
		claimed = len(rows)
		r.metrics.ObserveBatch(claimed)
		for _, row := range rows {
			if err := r.settle(ctx, tx, row); err != nil {
				return err
			}
		}
		return nil
	})
	return claimed, err
}

func (r *Relay) settle(ctx context.Context, tx *gorm.DB, row models.OutboxEvent) error {
	stream := r.streams.StreamKey(string(row.AggregateType))
	ctx = r.logg.WithFields(ctx, map[string]any{
		"outbox_id":     row.ID.String(),
		"event_type":    row.EventType,
		"aggregate_id":  row.AggregateID,
		"stream":        stream,
		"attempt_count": row.AttemptCount,
	})

	sendErr := r.send(ctx, stream, row)
	var poison poisonError
	switch {
	case sendErr == nil:
		if err := r.events.MarkPublishedTx(tx, row.ID); err != nil {
			return fmt.Errorf("mark %s published: %w", row.ID, err)
		}
		r.metrics.Inc(string(row.EventType), metrics.RelayPublished)
		r.logg.Debug(ctx, "outbox event relayed")
		return nil
	case errors.As(sendErr, &poison):
		return r.deadLetter(ctx, tx, row, enums.OutboxDLQReasonNonRetryable, sendErr)
	case row.AttemptCount+1 >= r.cfg.MaxAttempts:
		return r.deadLetter(ctx, tx, row, enums.OutboxDLQReasonMaxAttempts, fmt.Errorf("gave up after %d attempts: %w", row.AttemptCount+1, sendErr))
	}

	if err := r.events.MarkFailedTx(tx, row.ID, sendErr); err != nil {
		return fmt.Errorf("mark %s failed: %w", row.ID, err)
	}
	r.metrics.Inc(string(row.EventType), metrics.RelayRetried)
	r.logg.Warn(r.logg.WithField(ctx, "error", sendErr.Error()), "outbox relay attempt failed")
	return nil
}

// send validates row and appends it to stream.
func (r *Relay) send(ctx context.Context, stream string, row models.OutboxEvent) error {
	if !row.EventType.IsValid() || !row.AggregateType.IsValid() {
		return poisonError{fmt.Errorf("unroutable event %q for aggregate %q", row.EventType, row.AggregateType)}
	}
	env, err := outbox.DecodeEnvelope(row.Payload)
	if err != nil {
		return poisonError{err}
	}

	sendCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	_, err = r.streams.XAdd(sendCtx, stream, r.cfg.StreamMaxLen, map[string]any{
		"event_id":       env.EventID,
		"event_type":     string(row.EventType),
		"aggregate_type": string(row.AggregateType),
		"aggregate_id":   row.AggregateID,
		"occurred_at":    env.OccurredAt.UTC().Format(time.RFC3339Nano),
		"payload":        string(row.Payload),
	})
	return err
}

func (r *Relay) deadLetter(ctx context.Context, tx *gorm.DB, row models.OutboxEvent, reason enums.OutboxDLQErrorReason, cause error) error {
	msg := cause.Error()
	if err := r.dlq.InsertTx(tx, models.OutboxDLQ{
		EventID:       row.ID,
		EventType:     row.EventType,
		AggregateType: row.AggregateType,
		AggregateID:   row.AggregateID,
		Payload:       row.Payload,
		ErrorReason:   reason,
		ErrorMessage:  &msg,
		AttemptCount:  row.AttemptCount,
		FailedAt:      r.now().UTC(),
	}); err != nil {
		return fmt.Errorf("dead-letter %s: %w", row.ID, err)
	}
	if err := r.events.MarkTerminalTx(tx, row.ID, cause, r.cfg.MaxAttempts); err != nil {
		return fmt.Errorf("park %s: %w", row.ID, err)
	}
	r.metrics.Inc(string(row.EventType), metrics.RelayDeadLettered)
	r.logg.Warn(r.logg.WithFields(ctx, map[string]any{"error_reason": reason, "error": msg}), "outbox event dead-lettered")
	return nil
}
