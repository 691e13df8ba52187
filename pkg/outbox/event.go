package outbox

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/angelmondragon/serialstock/pkg/enums"
)

// SchemaVersion is stamped on envelopes that do not set one.
const SchemaVersion = 1

// Event is a domain fact queued in the same transaction as the state change it describes.
type Event struct {
	Type          enums.OutboxEventType
	AggregateType enums.OutboxAggregateType
	AggregateID   string
	Actor         *Actor
	Data          any
	Version       int
	OccurredAt    time.Time
}

func (e Event) validate() error {
	switch {
	case !e.Type.IsValid():
		return fmt.Errorf("outbox: unknown event type %q", e.Type)
	case !e.AggregateType.IsValid():
		return fmt.Errorf("outbox: unknown aggregate type %q", e.AggregateType)
	case e.AggregateID == "":
		return errors.New("outbox: aggregate id is required")
	}
	return nil
}

// Actor identifies who caused the event.
type Actor struct {
	Name    string `json:"name"`
	Channel string `json:"channel,omitempty"`
}

// SystemActor attributes events to background processes.
var SystemActor = &Actor{Name: "SYSTEM"}

// Envelope is the JSON document stored in outbox_events.payload.
type Envelope struct {
	EventID    string          `json:"event_id"`
	Version    int             `json:"schema_version"`
	OccurredAt time.Time       `json:"occurred_at"`
	Actor      *Actor          `json:"actor,omitempty"`
	Data       json.RawMessage `json:"data"`
}

// DecodeEnvelope parses a stored payload and rejects envelopes without an id.
func DecodeEnvelope(raw []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return env, fmt.Errorf("outbox: decode envelope: %w", err)
	}
	if env.EventID == "" {
		return env, errors.New("outbox: envelope missing event id")
	}
	return env, nil
}
