package payloads

import (
	"time"

	"github.com/google/uuid"
)

// OrderCreatedEvent is published once per materialized order.
type OrderCreatedEvent struct {
	OrderID          uuid.UUID `json:"order_id"`
	PaymentSessionID string    `json:"payment_session_id"`
	CustomerEmail    string    `json:"customer_email"`
	ItemCount        int       `json:"item_count"`
	Subtotal         string    `json:"subtotal"`
	Shipping         string    `json:"shipping"`
	Tax              string    `json:"tax"`
	Total            string    `json:"total"`
	Source           string    `json:"source"`
	CreatedAt        time.Time `json:"created_at"`
}

// CheckoutSessionExpiredEvent reports a hosted checkout that was never paid.
type CheckoutSessionExpiredEvent struct {
	SessionID string    `json:"session_id"`
	CartID    string    `json:"cart_id"`
	Total     string    `json:"total"`
	ExpiredAt time.Time `json:"expired_at"`
}
