package audit

import (
	"context"

	"gorm.io/gorm"

	"github.com/angelmondragon/serialstock/pkg/db/models"
	"github.com/angelmondragon/serialstock/pkg/pagination"
)

// Repository manages persistence for audit records. Records are insert-only.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, record *models.UnitAuditRecord) error
	ListByUnit(ctx context.Context, unitID int64, params pagination.Params) ([]models.UnitAuditRecord, error)
	ListByCorrelation(ctx context.Context, correlationID string, params pagination.Params) ([]models.UnitAuditRecord, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an audit repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, record *models.UnitAuditRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}

// ListByUnit returns one page plus one extra row so callers can detect a next page.
func (r *repository) ListByUnit(ctx context.Context, unitID int64, params pagination.Params) ([]models.UnitAuditRecord, error) {
	return r.list(r.db.WithContext(ctx).Where("unit_id = ?", unitID), params)
}

func (r *repository) ListByCorrelation(ctx context.Context, correlationID string, params pagination.Params) ([]models.UnitAuditRecord, error) {
	return r.list(r.db.WithContext(ctx).Where("correlation_id = ?", correlationID), params)
}

func (r *repository) list(query *gorm.DB, params pagination.Params) ([]models.UnitAuditRecord, error) {
	params = params.Normalize()
	var records []models.UnitAuditRecord
	err := query.
		Order("id ASC").
		Offset(params.Offset()).
		Limit(params.Size + 1).
		Find(&records).Error
	return records, err
}
