package units

import (
	"time"

	"github.com/angelmondragon/serialstock/pkg/config"
	"github.com/angelmondragon/serialstock/pkg/enums"
)

// TimeoutPolicy maps a reservation channel onto how long its holds last.
type TimeoutPolicy struct {
	byChannel map[enums.ReservationChannel]time.Duration
	fallback  time.Duration
}

// NewTimeoutPolicy builds the policy from reservation config.
func NewTimeoutPolicy(cfg config.ReservationConfig) TimeoutPolicy {
	return TimeoutPolicy{
		byChannel: map[enums.ReservationChannel]time.Duration{
			enums.ReservationChannelCart:     cfg.CartHold,
			enums.ReservationChannelCheckout: cfg.CheckoutHold,
			enums.ReservationChannelOnline:   cfg.OnlineHold,
			enums.ReservationChannelPOS:      cfg.POSHold,
		},
		fallback: cfg.DefaultHold,
	}
}

// For returns the hold duration for the channel, falling back to the default.
func (p TimeoutPolicy) For(channel enums.ReservationChannel) time.Duration {
	if d, ok := p.byChannel[channel]; ok && d > 0 {
		return d
	}
	return p.fallback
}

// Default is the hold applied to channels without their own setting.
func (p TimeoutPolicy) Default() time.Duration {
	return p.fallback
}

// Cutoff is the reserved_at bound below which a hold on channel has expired.
func (p TimeoutPolicy) Cutoff(channel enums.ReservationChannel, now time.Time) time.Time {
	return now.Add(-p.For(channel))
}

// ExpiresAt is when a hold placed at reservedAt on channel lapses.
func (p TimeoutPolicy) ExpiresAt(channel enums.ReservationChannel, reservedAt time.Time) time.Time {
	return reservedAt.Add(p.For(channel))
}

// Expired reports whether a hold placed at reservedAt has outlived its channel timeout.
// A hold exactly at the boundary is still live.
func (p TimeoutPolicy) Expired(channel enums.ReservationChannel, reservedAt, now time.Time) bool {
	return reservedAt.Before(p.Cutoff(channel, now))
}
