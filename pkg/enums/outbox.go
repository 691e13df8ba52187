package enums

// OutboxAggregateType maps to the aggregate_type column of outbox_events and
// names the stream an event is relayed to.
type OutboxAggregateType string

const (
	AggregatePaymentOrder OutboxAggregateType = "payment_order"
	AggregateUnit         OutboxAggregateType = "unit"
)

var aggregateTypes = []OutboxAggregateType{AggregatePaymentOrder, AggregateUnit}

func (a OutboxAggregateType) IsValid() bool { return member(aggregateTypes, a) }

// OutboxEventType maps to the event_type column of outbox_events.
type OutboxEventType string

const (
	EventOrderPaymentTimedOut  OutboxEventType = "order_payment_timed_out"
	EventNotificationRequested OutboxEventType = "notification_requested"
)

var eventTypes = []OutboxEventType{EventOrderPaymentTimedOut, EventNotificationRequested}

func (e OutboxEventType) IsValid() bool { return member(eventTypes, e) }

// OutboxDLQErrorReason records why the relay gave up on an event.
type OutboxDLQErrorReason string

const (
	OutboxDLQReasonMaxAttempts  OutboxDLQErrorReason = "max_attempts"
	OutboxDLQReasonNonRetryable OutboxDLQErrorReason = "non_retryable"
)
