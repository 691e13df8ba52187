package enums

// UnitStatus tracks where a serialized unit sits in its lifecycle.
type UnitStatus string

const (
	UnitStatusAvailable   UnitStatus = "AVAILABLE"
	UnitStatusReserved    UnitStatus = "RESERVED"
	UnitStatusSold        UnitStatus = "SOLD"
	UnitStatusReturned    UnitStatus = "RETURNED"
	UnitStatusDamaged     UnitStatus = "DAMAGED"
	UnitStatusUnavailable UnitStatus = "UNAVAILABLE"
)

var unitStatuses = []UnitStatus{
	UnitStatusAvailable, UnitStatusReserved, UnitStatusSold,
	UnitStatusReturned, UnitStatusDamaged, UnitStatusUnavailable,
}

// UnitStatuses returns every known status in declaration order.
func UnitStatuses() []UnitStatus { return cloned(unitStatuses) }

func (s UnitStatus) String() string { return string(s) }

func (s UnitStatus) IsValid() bool { return member(unitStatuses, s) }
