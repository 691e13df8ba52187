package models

import (
	"encoding/json"
	"time"

	"github.com/angelmondragon/serialstock/pkg/enums"
)

// UnitAuditRecord is an append-only entry describing one unit transition, or an
// order-level event when UnitID is nil.
type UnitAuditRecord struct {
	ID             int64             `gorm:"column:id;primaryKey;autoIncrement"`
	UnitID         *int64            `gorm:"column:unit_id;index:ix_unit_audit_unit"`
	Action         enums.AuditAction `gorm:"column:action;type:text;not null"`
	Actor          string            `gorm:"column:actor;not null"`
	Reason         *string           `gorm:"column:reason"`
	BeforeSnapshot json.RawMessage   `gorm:"column:before_snapshot;type:jsonb"`
	AfterSnapshot  json.RawMessage   `gorm:"column:after_snapshot;type:jsonb"`
	Channel        *string           `gorm:"column:channel"`
	CorrelationID  *string           `gorm:"column:correlation_id;index:ix_unit_audit_correlation"`
	CreatedAt      time.Time         `gorm:"column:created_at;not null;index:ix_unit_audit_created"`
}

// TableName pins the table name.
func (UnitAuditRecord) TableName() string {
	return "unit_audit_records"
}
