package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

// OrderPaymentSessionConstraint guards one order per payment session.
const OrderPaymentSessionConstraint = "orders_payment_session_id_key"

// Order is materialized once per confirmed payment session.
type Order struct {
	ID               uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	CustomerEmail    string              `gorm:"column:customer_email;not null;index:orders_customer_email_idx"`
	CustomerName     string              `gorm:"column:customer_name;not null"`
	ShippingAddress  types.Address       `gorm:"column:shipping_address;type:jsonb;not null"`
	Items            types.LineSnapshots `gorm:"column:items;type:jsonb;not null"`
	Subtotal         decimal.Decimal     `gorm:"column:subtotal;type:numeric(12,2);not null"`
	Shipping         decimal.Decimal     `gorm:"column:shipping;type:numeric(12,2);not null"`
	Tax              decimal.Decimal     `gorm:"column:tax;type:numeric(12,2);not null"`
	Total            decimal.Decimal     `gorm:"column:total;type:numeric(12,2);not null"`
	Status           enums.OrderStatus   `gorm:"column:status;not null"`
	PaymentSessionID string              `gorm:"column:payment_session_id;not null;uniqueIndex:orders_payment_session_id_key"`
	PaymentIntentID  *string             `gorm:"column:payment_intent_id"`
	CreatedAt        time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
