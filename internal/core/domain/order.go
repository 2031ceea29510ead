package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusConfirmed  OrderStatus = "confirmed"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

type PaymentMethod string

const (
	PaymentMethodCOD    PaymentMethod = "cod"
	PaymentMethodOnline PaymentMethod = "online"
)

func (m PaymentMethod) Valid() bool {
	return m == PaymentMethodCOD || m == PaymentMethodOnline
}

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
	PaymentStatusRefunded  PaymentStatus = "refunded"
)

type Order struct {
	ID                string
	UserID            string
	OrderNumber       string
	Subtotal          decimal.Decimal
	Discount          decimal.Decimal
	DeliveryCharge    decimal.Decimal
	Total             decimal.Decimal
	Status            OrderStatus
	PaymentMethod     PaymentMethod
	PaymentStatus     PaymentStatus
	AddressID         string
	CouponCode        *string // code actually applied
	Notes             string
	RazorpayPaymentID *string
	RazorpaySignature *string
	Items             []OrderItem
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// OrderItem keeps the unit price frozen at checkout time.
type OrderItem struct {
	ID          string
	OrderID     string
	ProductID   string
	ProductName string
	Quantity    int
	Price       decimal.Decimal
}

// Cancellable reports whether the order may still be cancelled.
func (o *Order) Cancellable() bool {
	return o.Status == OrderStatusPending || o.Status == OrderStatusConfirmed
}

// StatusUpdate is a partial update applied by an admin or the payment gateway.
type StatusUpdate struct {
	Status            *OrderStatus
	PaymentStatus     *PaymentStatus
	RazorpayPaymentID *string
	RazorpaySignature *string
}

func (u StatusUpdate) Empty() bool {
	return u.Status == nil && u.PaymentStatus == nil && u.RazorpayPaymentID == nil && u.RazorpaySignature == nil
}
