package units

import (
	"fmt"

	"github.com/angelmondragon/serialstock/pkg/enums"
	pkgerrors "github.com/angelmondragon/serialstock/pkg/errors"
)

// Event names a lifecycle change requested on a unit.
type Event string

const (
	EventReserve         Event = "reserve"
	EventRelease         Event = "release"
	EventExpire          Event = "expire"
	EventSell            Event = "sell"
	EventReturn          Event = "return"
	EventRefund          Event = "refund"
	EventDamage          Event = "damage"
	EventMarkUnavailable Event = "mark_unavailable"
)

type rule struct {
	from []enums.UnitStatus
	to   enums.UnitStatus
}

// A nil from list means the event applies from any status.
var rules = map[Event]rule{
	EventReserve:         {from: []enums.UnitStatus{enums.UnitStatusAvailable}, to: enums.UnitStatusReserved},
	EventRelease:         {from: []enums.UnitStatus{enums.UnitStatusReserved}, to: enums.UnitStatusAvailable},
	EventExpire:          {from: []enums.UnitStatus{enums.UnitStatusReserved}, to: enums.UnitStatusAvailable},
	EventSell:            {from: []enums.UnitStatus{enums.UnitStatusReserved, enums.UnitStatusAvailable}, to: enums.UnitStatusSold},
	EventReturn:          {from: []enums.UnitStatus{enums.UnitStatusSold}, to: enums.UnitStatusReturned},
	EventRefund:          {from: []enums.UnitStatus{enums.UnitStatusSold, enums.UnitStatusReturned}, to: enums.UnitStatusAvailable},
	EventDamage:          {from: []enums.UnitStatus{enums.UnitStatusAvailable, enums.UnitStatusReserved}, to: enums.UnitStatusDamaged},
	EventMarkUnavailable: {to: enums.UnitStatusUnavailable},
}

// Events lists every known event.
func Events() []Event {
	return []Event{
		EventReserve,
		EventRelease,
		EventExpire,
		EventSell,
		EventReturn,
		EventRefund,
		EventDamage,
		EventMarkUnavailable,
	}
}

// Transition returns the status a unit moves to when event is applied in the
// current status, or a STATE_CONFLICT error when the move is not allowed.
func Transition(current enums.UnitStatus, event Event) (enums.UnitStatus, error) {
	r, ok := rules[event]
	if !ok {
		return "", pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown unit event %q", event))
	}
	if !current.IsValid() {
		return "", conflict(current, r.to, event)
	}
	if r.from == nil {
		return r.to, nil
	}
	for _, from := range r.from {
		if from == current {
			return r.to, nil
		}
	}
	return "", conflict(current, r.to, event)
}

// Allowed reports whether event may be applied in the current status.
func Allowed(current enums.UnitStatus, event Event) bool {
	_, err := Transition(current, event)
	return err == nil
}

// AuditAction maps an event onto the audit action recorded for it.
func (e Event) AuditAction() enums.AuditAction {
	switch e {
	case EventReserve:
		return enums.AuditActionReserve
	case EventRelease, EventExpire:
		return enums.AuditActionRelease
	case EventSell:
		return enums.AuditActionSell
	case EventReturn:
		return enums.AuditActionReturn
	default:
		return enums.AuditActionStatusChange
	}
}

func conflict(current, requested enums.UnitStatus, event Event) error {
	return pkgerrors.New(
		pkgerrors.CodeStateConflict,
		fmt.Sprintf("cannot %s unit in status %s", event, current),
	).WithDetails(map[string]any{
		"current":   current,
		"requested": requested,
		"event":     event,
	})
}
