package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

// Confirmation is a payment result reported by the gateway, either through a
// webhook, the confirmation page, or reconciliation.
type Confirmation struct {
	SessionID       string
	PaymentIntentID string
	PaymentStatus   enums.PaymentStatus
	CustomerEmail   string
	AmountTotal     *decimal.Decimal
	Metadata        map[string]string
	Source          string
}

// Confirmation sources.
const (
	SourceWebhook      = "webhook"
	SourceConfirmation = "confirmation"
	SourceReconcile    = "reconcile"
)

// Order is the API view of an order.
type Order struct {
	ID               uuid.UUID           `json:"id"`
	CustomerEmail    string              `json:"customer_email"`
	CustomerName     string              `json:"customer_name"`
	ShippingAddress  types.Address       `json:"shipping_address"`
	Items            types.LineSnapshots `json:"items"`
	Subtotal         string              `json:"subtotal"`
	Shipping         string              `json:"shipping"`
	Tax              string              `json:"tax"`
	Total            string              `json:"total"`
	Status           enums.OrderStatus   `json:"status"`
	PaymentSessionID string              `json:"payment_session_id"`
	CreatedAt        time.Time           `json:"created_at"`
}

// MaterializeResult reports the order for a session and whether this call created it.
type MaterializeResult struct {
	Order   Order
	Created bool
	CartID  string
}

// ListResult is one page of a customer's order history.
type ListResult struct {
	Orders     []Order `json:"orders"`
	NextCursor string  `json:"next_cursor,omitempty"`
}

func toOrder(m models.Order) Order {
	items := m.Items
	if items == nil {
		items = types.LineSnapshots{}
	}
	return Order{
		ID:               m.ID,
		CustomerEmail:    m.CustomerEmail,
		CustomerName:     m.CustomerName,
		ShippingAddress:  m.ShippingAddress,
		Items:            items,
		Subtotal:         m.Subtotal.StringFixed(2),
		Shipping:         m.Shipping.StringFixed(2),
		Tax:              m.Tax.StringFixed(2),
		Total:            m.Total.StringFixed(2),
		Status:           m.Status,
		PaymentSessionID: m.PaymentSessionID,
		CreatedAt:        m.CreatedAt,
	}
}
