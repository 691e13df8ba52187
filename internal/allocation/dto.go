package allocation

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/serialstock/pkg/db/models"
	"github.com/angelmondragon/serialstock/pkg/enums"
)

// SystemActor is recorded for changes made by background sweeps.
const SystemActor = "SYSTEM"

// ReserveInput captures a request to hold units of one variant.
type ReserveInput struct {
	VariantID     uuid.UUID
	Quantity      int
	Channel       enums.ReservationChannel
	CorrelationID string
	Actor         string
}

// Reservation is the set of units claimed by one Reserve call.
type Reservation struct {
	Units      []models.Unit `json:"units"`
	ReservedAt time.Time     `json:"reserved_at"`
	ExpiresAt  time.Time     `json:"expires_at"`
}

// Provenance is the descriptive data attached to newly registered units.
type Provenance struct {
	BatchNumber     string
	ManufactureDate *time.Time
	WarrantyExpiry  *time.Time
	Supplier        string
	Notes           string
}

// ImportInput registers units with caller-supplied serial numbers.
type ImportInput struct {
	VariantID     uuid.UUID
	Serials       []string
	ImportBatchID string
	Provenance    Provenance
	Actor         string
}

// GenerateInput registers Count units with system-issued serial numbers
// of the form {prefix}-{yyyymmdd}-{seq}.
type GenerateInput struct {
	VariantID  uuid.UUID
	Prefix     string
	Count      int
	Provenance Provenance
	Actor      string
}
