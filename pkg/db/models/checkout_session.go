package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// CheckoutSession records a hosted payment session handed to the gateway so
// unconfirmed payments can be reconciled later.
type CheckoutSession struct {
	ID            uuid.UUID                   `gorm:"column:id;type:uuid;primaryKey"`
	SessionID     string                      `gorm:"column:session_id;not null;uniqueIndex:checkout_sessions_session_id_key"`
	CartID        string                      `gorm:"column:cart_id;not null"`
	CustomerEmail string                      `gorm:"column:customer_email;not null"`
	Subtotal      decimal.Decimal             `gorm:"column:subtotal;type:numeric(12,2);not null"`
	Shipping      decimal.Decimal             `gorm:"column:shipping;type:numeric(12,2);not null"`
	Tax           decimal.Decimal             `gorm:"column:tax;type:numeric(12,2);not null"`
	Total         decimal.Decimal             `gorm:"column:total;type:numeric(12,2);not null"`
	Status        enums.CheckoutSessionStatus `gorm:"column:status;not null;index:checkout_sessions_status_created_idx,priority:1"`
	OrderID       *uuid.UUID                  `gorm:"column:order_id;type:uuid"`
	ResolvedAt    *time.Time                  `gorm:"column:resolved_at"`
	CreatedAt     time.Time                   `gorm:"column:created_at;autoCreateTime;index:checkout_sessions_status_created_idx,priority:2"`
	UpdatedAt     time.Time                   `gorm:"column:updated_at;autoUpdateTime"`
}
