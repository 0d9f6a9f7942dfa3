package domain

import "time"

// Payment types accepted at checkout.
const (
	PaymentTypeCOD = "COD"
	PaymentTypeUPI = "UPI"
)

// PaymentStatusCompleted is set on an order only after the gateway
// payment has been verified.
const PaymentStatusCompleted = "COMPLETED"

// OrderRecord is the write-once order submission. The client never
// re-reads or mutates it after posting. Price fields are in paise.
type OrderRecord struct {
	ID              string    `json:"id,omitempty"`
	BuyerRole       string    `json:"ordered_role"`
	BuyerName       string    `json:"ordered_name"`
	BuyerUserID     string    `json:"ordered_user_id"`
	ItemName        string    `json:"item_name"`
	Quantity        int       `json:"quantity"`
	Category        string    `json:"category"`
	Price           int64     `json:"price"`
	OrderStatus     *string   `json:"order_status"`
	PaymentType     string    `json:"payment_type"`
	PaymentStatus   *string   `json:"payment_status"`
	OrderDateTime   time.Time `json:"order_date_time"`
	Address         string    `json:"address"`
	PhoneNo         string    `json:"phone_no"`
	PaymentReceived bool      `json:"payment_received"`
}
