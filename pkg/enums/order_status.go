package enums

// OrderStatus is the coarse order lifecycle the reconciler reads and cancels.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusCancelled OrderStatus = "cancelled"
)

var orderStatuses = []OrderStatus{OrderStatusPending, OrderStatusConfirmed, OrderStatusCancelled}

func (o OrderStatus) IsValid() bool { return member(orderStatuses, o) }

// PaymentStatus tracks whether an order's payment has been confirmed.
type PaymentStatus string

const (
	PaymentStatusAwaiting PaymentStatus = "awaiting"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusFailed   PaymentStatus = "failed"
)

var paymentStatuses = []PaymentStatus{PaymentStatusAwaiting, PaymentStatusPaid, PaymentStatusFailed}

func (p PaymentStatus) IsValid() bool { return member(paymentStatuses, p) }
