package enums

// ReservationChannel identifies which surface placed a hold on a unit.
type ReservationChannel string

const (
	ReservationChannelCart     ReservationChannel = "CART"
	ReservationChannelCheckout ReservationChannel = "CHECKOUT"
	ReservationChannelOnline   ReservationChannel = "ONLINE"
	ReservationChannelPOS      ReservationChannel = "POS"
)

var reservationChannels = []ReservationChannel{
	ReservationChannelCart, ReservationChannelCheckout, ReservationChannelOnline, ReservationChannelPOS,
}

// ReservationChannels returns every known channel.
func ReservationChannels() []ReservationChannel { return cloned(reservationChannels) }

func (c ReservationChannel) String() string { return string(c) }

func (c ReservationChannel) IsValid() bool { return member(reservationChannels, c) }

// ParseReservationChannel accepts any casing, so "cart" and "CART" are the same channel.
func ParseReservationChannel(value string) (ReservationChannel, error) {
	return parse("reservation channel", reservationChannels, value, true)
}
