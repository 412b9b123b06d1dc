package router

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/internal/analytics/types"
	analyticswriter "github.com/angelmondragon/storefront-backend/internal/analytics/writer"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/payloads"
)

func orderCreatedRow(envelope types.Envelope, event *payloads.OrderCreatedEvent) (types.OrderEventRow, error) {
	row := baseRow(envelope, event.CreatedAt)
	row.OrderID = nonEmpty(event.OrderID.String())
	row.SessionID = nonEmpty(event.PaymentSessionID)
	row.EmailDomain = emailDomain(event.CustomerEmail)
	row.Source = nonEmpty(event.Source)
	items := int64(event.ItemCount)
	row.ItemCount = &items

	amounts := []struct {
		name string
		raw  string
		dst  **int64
	}{
		{"subtotal", event.Subtotal, &row.SubtotalCents},
		{"shipping", event.Shipping, &row.ShippingCents},
		{"tax", event.Tax, &row.TaxCents},
		{"total", event.Total, &row.TotalCents},
	}
	for _, a := range amounts {
		cents, err := toCents(a.raw)
		if err != nil {
			return types.OrderEventRow{}, fmt.Errorf("%s: %w", a.name, err)
		}
		*a.dst = cents
	}

	// Only the domain of the buyer's address reaches BigQuery.
	redacted := *event
	redacted.CustomerEmail = ""
	payload, err := analyticswriter.EncodeJSON(redacted)
	if err != nil {
		return types.OrderEventRow{}, fmt.Errorf("encode payload json: %w", err)
	}
	row.Payload = payload
	return row, nil
}

func sessionExpiredRow(envelope types.Envelope, event *payloads.CheckoutSessionExpiredEvent) (types.OrderEventRow, error) {
	row := baseRow(envelope, event.ExpiredAt)
	row.SessionID = nonEmpty(event.SessionID)
	row.CartID = nonEmpty(event.CartID)
	total, err := toCents(event.Total)
	if err != nil {
		return types.OrderEventRow{}, fmt.Errorf("total: %w", err)
	}
	row.TotalCents = total
	return row, nil
}

// baseRow falls back to the payload's own timestamp when the envelope has none.
func baseRow(envelope types.Envelope, fallback time.Time) types.OrderEventRow {
	occurredAt := envelope.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = fallback.UTC()
	}
	return types.OrderEventRow{
		EventID:    envelope.EventID,
		EventType:  string(envelope.EventType),
		OccurredAt: occurredAt,
	}
}

// emailDomain keeps only the lowercased domain of an address.
func emailDomain(email string) *string {
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return nil
	}
	return nonEmpty(strings.ToLower(email[at+1:]))
}

func nonEmpty(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

// toCents converts a decimal money string to integer cents; blank is nil.
func toCents(value string) (*int64, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, nil
	}
	amount, err := decimal.NewFromString(trimmed)
	if err != nil {
		return nil, err
	}
	cents := amount.Shift(2).Round(0).IntPart()
	return &cents, nil
}
