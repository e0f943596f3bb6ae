package domain

import "time"

type PaymentMethod string

const (
	PaymentMethodUPI        PaymentMethod = "upi"
	PaymentMethodCard       PaymentMethod = "card"
	PaymentMethodNetbanking PaymentMethod = "netbanking"
	PaymentMethodCOD        PaymentMethod = "cod"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentMethodUPI, PaymentMethodCard, PaymentMethodNetbanking, PaymentMethodCOD:
		return true
	}
	return false
}

type PaymentStatus string

const (
	// Orders are recorded as paid at creation time; there is no gateway
	// integration and no pending or failed intermediate state.
	PaymentStatusCompleted PaymentStatus = "completed"
)

type DeliveryStatus string

const (
	DeliveryStatusOrdered   DeliveryStatus = "ordered"
	DeliveryStatusShipped   DeliveryStatus = "shipped"
	DeliveryStatusDelivered DeliveryStatus = "delivered"
)

type Order struct {
	ID             string         `json:"id"`
	UserID         string         `json:"user_id"`
	TotalCents     int64          `json:"total_cents"`
	PaymentMethod  PaymentMethod  `json:"payment_method"`
	PaymentStatus  PaymentStatus  `json:"payment_status"`
	DeliveryStatus DeliveryStatus `json:"delivery_status"`
	Address        string         `json:"address"`
	Phone          string         `json:"phone"`
	Lines          []OrderLine    `json:"lines"`
	CreatedAt      time.Time      `json:"created_at"`
}

// OrderLine captures the unit price at time of purchase; later catalog
// price changes never affect a recorded order.
type OrderLine struct {
	ProductID  string `json:"product_id"`
	Quantity   int    `json:"quantity"`
	PriceCents int64  `json:"price_cents"`
}
