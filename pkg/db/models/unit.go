package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/serialstock/pkg/enums"
)

// Unit is one physical, individually serialized item of stock.
type Unit struct {
	ID                       int64                     `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	SerialValue              string                    `gorm:"column:serial_value;not null;uniqueIndex:ux_units_serial_value" json:"serial_value"`
	VariantID                uuid.UUID                 `gorm:"column:variant_id;type:uuid;not null;index:ix_units_variant_status,priority:1" json:"variant_id"`
	Status                   enums.UnitStatus          `gorm:"column:status;type:text;not null;default:'AVAILABLE';index:ix_units_variant_status,priority:2" json:"status"`
	ReservedAt               *time.Time                `gorm:"column:reserved_at" json:"reserved_at,omitempty"`
	ReservationChannel       *enums.ReservationChannel `gorm:"column:reservation_channel;type:text" json:"reservation_channel,omitempty"`
	ReservationCorrelationID *string                   `gorm:"column:reservation_correlation_id;index:ix_units_correlation" json:"reservation_correlation_id,omitempty"`
	BatchNumber              *string                   `gorm:"column:batch_number" json:"batch_number,omitempty"`
	ManufactureDate          *time.Time                `gorm:"column:manufacture_date" json:"manufacture_date,omitempty"`
	WarrantyExpiry           *time.Time                `gorm:"column:warranty_expiry" json:"warranty_expiry,omitempty"`
	Supplier                 *string                   `gorm:"column:supplier" json:"supplier,omitempty"`
	ImportBatchID            *string                   `gorm:"column:import_batch_id" json:"import_batch_id,omitempty"`
	Notes                    *string                   `gorm:"column:notes" json:"notes,omitempty"`
	CreatedAt                time.Time                 `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	CreatedBy                string                    `gorm:"column:created_by;not null" json:"created_by"`
	UpdatedAt                time.Time                 `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
	UpdatedBy                string                    `gorm:"column:updated_by;not null" json:"updated_by"`
}

// TableName pins the table name.
func (Unit) TableName() string {
	return "units"
}
