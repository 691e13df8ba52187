package audit

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/serialstock/pkg/db/models"
	"github.com/angelmondragon/serialstock/pkg/enums"
)

// UnitSnapshot is the unit state captured before and after a change.
type UnitSnapshot struct {
	SerialValue   string                    `json:"serial_value"`
	VariantID     uuid.UUID                 `json:"variant_id"`
	Status        enums.UnitStatus          `json:"status"`
	ReservedAt    *time.Time                `json:"reserved_at,omitempty"`
	Channel       *enums.ReservationChannel `json:"reservation_channel,omitempty"`
	CorrelationID *string                   `json:"reservation_correlation_id,omitempty"`
}

// SnapshotOf captures the mutable state of a unit.
func SnapshotOf(unit models.Unit) *UnitSnapshot {
	return &UnitSnapshot{
		SerialValue:   unit.SerialValue,
		VariantID:     unit.VariantID,
		Status:        unit.Status,
		ReservedAt:    unit.ReservedAt,
		Channel:       unit.ReservationChannel,
		CorrelationID: unit.ReservationCorrelationID,
	}
}

func marshalSnapshot(v any) (json.RawMessage, error) {
	if v == nil {
		return nil, nil
	}
	if snap, ok := v.(*UnitSnapshot); ok && snap == nil {
		return nil, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(raw), nil
}
