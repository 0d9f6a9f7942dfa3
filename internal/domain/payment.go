package domain

import "time"

// IntentStatus tracks a payment intent through the two-phase flow:
// the intent is reserved before the gateway charge, marked captured once
// the payment is verified, and confirmed only after the order record is
// written. Captured-but-unconfirmed intents are picked up by the
// reconciler.
type IntentStatus string

const (
	IntentStatusCreated   IntentStatus = "created"
	IntentStatusCaptured  IntentStatus = "captured"
	IntentStatusConfirmed IntentStatus = "confirmed"
	IntentStatusCancelled IntentStatus = "cancelled"
	IntentStatusFailed    IntentStatus = "failed"
)

// PaymentIntent reserves order intent ahead of the gateway charge.
// Draft holds the order record to submit once payment is verified.
type PaymentIntent struct {
	ID             string       `json:"id"`
	GatewayOrderID string       `json:"gateway_order_id"`
	UserID         string       `json:"user_id"`
	Amount         int64        `json:"amount"`
	Status         IntentStatus `json:"status"`
	Draft          OrderRecord  `json:"draft"`
	OrderID        string       `json:"order_id,omitempty"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
}
