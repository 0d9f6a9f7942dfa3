package domain

import "time"

type PaymentCapturedEvent struct {
	IntentID       string    `json:"intent_id"`
	GatewayOrderID string    `json:"gateway_order_id"`
	UserID         string    `json:"user_id"`
	Amount         int64     `json:"amount"`
	Timestamp      time.Time `json:"timestamp"`
}

type OrderPlacedEvent struct {
	OrderID     string    `json:"order_id"`
	UserID      string    `json:"user_id"`
	PaymentType string    `json:"payment_type"`
	Total       int64     `json:"total"`
	Timestamp   time.Time `json:"timestamp"`
}
