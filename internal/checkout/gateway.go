package checkout

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// Gateway creates and reads hosted payment sessions.
type Gateway interface {
	CreateSession(ctx context.Context, req Request) (*Session, error)
	GetSession(ctx context.Context, sessionID string) (*Session, error)
}

// LineEntry is one charge shown on the hosted payment page. UnitAmount is in
// minor currency units.
type LineEntry struct {
	Name        string
	Description string
	Image       string
	UnitAmount  int64
	Quantity    int64
}

// Request describes a hosted payment session to create.
type Request struct {
	Currency      string
	LineEntries   []LineEntry
	CustomerEmail string
	CustomerName  string
	Metadata      map[string]string
	SuccessURL    string
	CancelURL     string
}

// Session is the gateway's view of a payment session.
type Session struct {
	ID              string
	URL             string
	Status          enums.CheckoutSessionStatus
	PaymentStatus   enums.PaymentStatus
	PaymentIntentID string
	CustomerEmail   string
	AmountTotal     *decimal.Decimal
	Metadata        map[string]string
	ExpiresAt       time.Time
}

// Confirmation converts the session into an order confirmation.
func (s Session) Confirmation(source string) orders.Confirmation {
	return orders.Confirmation{
		SessionID:       s.ID,
		PaymentIntentID: s.PaymentIntentID,
		PaymentStatus:   s.PaymentStatus,
		CustomerEmail:   s.CustomerEmail,
		AmountTotal:     s.AmountTotal,
		Metadata:        s.Metadata,
		Source:          source,
	}
}
