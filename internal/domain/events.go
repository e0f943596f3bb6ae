package domain

import "time"

type OrderPlacedEvent struct {
	OrderID       string        `json:"order_id"`
	UserID        string        `json:"user_id"`
	TotalCents    int64         `json:"total_cents"`
	PaymentMethod PaymentMethod `json:"payment_method"`
	Lines         []OrderLine   `json:"lines"`
	PlacedAt      time.Time     `json:"placed_at"`
}
