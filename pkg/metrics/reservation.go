package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Reservation outcomes.
const (
	OutcomeReserved     = "reserved"
	OutcomeInsufficient = "insufficient"
	OutcomeHoldLimit    = "hold_limit"
	OutcomeError        = "error"
)

// ReservationMetrics tracks allocation attempts and released units.
type ReservationMetrics struct {
	attempts *prometheus.CounterVec
	released *prometheus.CounterVec
	retries  prometheus.Counter
}

// NewReservationMetrics registers the reservation metrics on the provided registerer.
func NewReservationMetrics(reg prometheus.Registerer) *ReservationMetrics {
	if reg == nil {
		return &ReservationMetrics{}
	}
	attempts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "reservation_attempts_total",
		Help: "Reservation attempts by channel and outcome.",
	}, []string{"channel", "outcome"})
	released := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "units_released_total",
		Help: "Units returned to AVAILABLE, by reason.",
	}, []string{"reason"})
	retries := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "reservation_conflict_retries_total",
		Help: "Reservation transactions retried after losing a unit to a concurrent caller.",
	})
	reg.MustRegister(attempts, released, retries)
	return &ReservationMetrics{attempts: attempts, released: released, retries: retries}
}

// ObserveAttempt counts one reservation attempt.
func (m *ReservationMetrics) ObserveAttempt(channel, outcome string) {
	if m == nil || m.attempts == nil {
		return
	}
	m.attempts.WithLabelValues(normalizeLabel(channel), outcome).Inc()
}

// AddReleased counts units moved back to AVAILABLE.
func (m *ReservationMetrics) AddReleased(reason string, n int) {
	if m == nil || m.released == nil || n <= 0 {
		return
	}
	m.released.WithLabelValues(normalizeLabel(reason)).Add(float64(n))
}

func (m *ReservationMetrics) IncRetry() {
	if m == nil || m.retries == nil {
		return
	}
	m.retries.Inc()
}
