// Package outbox queues domain events inside business transactions and
// tracks their delivery by the relay.
package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/serialstock/pkg/db/models"
	"github.com/angelmondragon/serialstock/pkg/logger"
)

var errNoTx = errors.New("outbox: transaction required")

type Service struct {
	repo *Repository
	logg *logger.Logger
	now  func() time.Time
}

func NewService(repo *Repository, logg *logger.Logger) *Service {
	return &Service{repo: repo, logg: logg, now: time.Now}
}

// Emit queues event in tx. A duplicate (type, aggregate) pair is an error.
func (s *Service) Emit(ctx context.Context, tx *gorm.DB, event Event) error {
	row, err := s.row(tx, event)
	if err != nil {
		return err
	}
	if err := s.repo.InsertTx(tx, row); err != nil {
		return fmt.Errorf("outbox: insert %s: %w", event.Type, err)
	}
	s.queued(ctx, row, true)
	return nil
}

// EmitIfNotExists queues event unless one of the same type is already queued
// for the aggregate. Concurrent callers race on the unique index, not a read.
func (s *Service) EmitIfNotExists(ctx context.Context, tx *gorm.DB, event Event) error {
	row, err := s.row(tx, event)
	if err != nil {
		return err
	}
	inserted, err := s.repo.InsertIgnoreTx(tx, row)
	if err != nil {
		return fmt.Errorf("outbox: insert %s: %w", event.Type, err)
	}
	s.queued(ctx, row, inserted)
	return nil
}

func (s *Service) row(tx *gorm.DB, event Event) (models.OutboxEvent, error) {
	if tx == nil {
		return models.OutboxEvent{}, errNoTx
	}
	if err := event.validate(); err != nil {
		return models.OutboxEvent{}, err
	}
	data, err := json.Marshal(event.Data)
	if err != nil {
		return models.OutboxEvent{}, fmt.Errorf("outbox: encode data: %w", err)
	}
	occurred := event.OccurredAt
	if occurred.IsZero() {
		occurred = s.now()
	}
	version := event.Version
	if version == 0 {
		version = SchemaVersion
	}
	payload, err := json.Marshal(Envelope{
		EventID:    uuid.NewString(),
		Version:    version,
		OccurredAt: occurred.UTC(),
		Actor:      event.Actor,
		Data:       data,
	})
	if err != nil {
		return models.OutboxEvent{}, fmt.Errorf("outbox: encode envelope: %w", err)
	}
	return models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     event.Type,
		AggregateType: event.AggregateType,
		AggregateID:   event.AggregateID,
		Payload:       payload,
		CreatedAt:     occurred.UTC(),
	}, nil
}

func (s *Service) queued(ctx context.Context, row models.OutboxEvent, inserted bool) {
	if s.logg == nil {
		return
	}
	ctx = s.logg.WithFields(ctx, map[string]any{
		"outbox_id":      row.ID.String(),
		"event_type":     row.EventType,
		"aggregate_type": row.AggregateType,
		"aggregate_id":   row.AggregateID,
	})
	if !inserted {
		s.logg.Debug(ctx, "outbox event already queued")
		return
	}
	s.logg.Info(ctx, "outbox event queued")
}
