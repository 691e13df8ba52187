package audit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/serialstock/pkg/db/models"
	"github.com/angelmondragon/serialstock/pkg/enums"
	pkgerrors "github.com/angelmondragon/serialstock/pkg/errors"
	"github.com/angelmondragon/serialstock/pkg/pagination"
)

// Entry is the data an audit record captures.
type Entry struct {
	UnitID        *int64
	Action        enums.AuditAction
	Actor         string
	Reason        string
	Before        any
	After         any
	Channel       string
	CorrelationID string
}

// Query selects a timeline by unit or by correlation id.
type Query struct {
	UnitID        *int64
	CorrelationID string
	Page          pagination.Params
}

// History is one page of audit records in creation order.
type History struct {
	Records []models.UnitAuditRecord `json:"records"`
	Page    int                      `json:"page"`
	Size    int                      `json:"size"`
	HasMore bool                     `json:"has_more"`
}

// Service records and reads the audit trail.
type Service interface {
	Record(ctx context.Context, tx *gorm.DB, entry Entry) (*models.UnitAuditRecord, error)
	History(ctx context.Context, query Query) (*History, error)
}

type service struct {
	repo Repository
	now  func() time.Time
}

// NewService wires an audit service with the provided repository.
func NewService(repo Repository, now func() time.Time) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("audit repository required")
	}
	if now == nil {
		now = time.Now
	}
	return &service{repo: repo, now: now}, nil
}

// Record appends an entry. When tx is set the insert joins that transaction so the
// record commits or rolls back with the change it describes.
func (s *service) Record(ctx context.Context, tx *gorm.DB, entry Entry) (*models.UnitAuditRecord, error) {
	if !entry.Action.IsValid() {
		return nil, fmt.Errorf("invalid audit action %q", entry.Action)
	}
	actor := strings.TrimSpace(entry.Actor)
	if actor == "" {
		return nil, fmt.Errorf("audit actor is required")
	}
	before, err := marshalSnapshot(entry.Before)
	if err != nil {
		return nil, fmt.Errorf("marshal before snapshot: %w", err)
	}
	after, err := marshalSnapshot(entry.After)
	if err != nil {
		return nil, fmt.Errorf("marshal after snapshot: %w", err)
	}

	record := &models.UnitAuditRecord{
		UnitID:         entry.UnitID,
		Action:         entry.Action,
		Actor:          actor,
		Reason:         optional(entry.Reason),
		BeforeSnapshot: before,
		AfterSnapshot:  after,
		Channel:        optional(entry.Channel),
		CorrelationID:  optional(entry.CorrelationID),
		CreatedAt:      s.now().UTC(),
	}
	if err := s.repo.WithTx(tx).Create(ctx, record); err != nil {
		return nil, err
	}
	return record, nil
}

func (s *service) History(ctx context.Context, query Query) (*History, error) {
	correlationID := strings.TrimSpace(query.CorrelationID)
	if query.UnitID == nil && correlationID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unit_id or correlation_id is required")
	}
	params := query.Page.Normalize()

	var (
		records []models.UnitAuditRecord
		err     error
	)
	if query.UnitID != nil {
		records, err = s.repo.ListByUnit(ctx, *query.UnitID, params)
	} else {
		records, err = s.repo.ListByCorrelation(ctx, correlationID, params)
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "load audit history")
	}

	history := &History{Page: params.Page, Size: params.Size}
	if len(records) > params.Size {
		history.HasMore = true
		records = records[:params.Size]
	}
	if records == nil {
		records = []models.UnitAuditRecord{}
	}
	history.Records = records
	return history, nil
}

func optional(value string) *string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return &value
}
