package types

import (
	"time"

	cbigquery "cloud.google.com/go/bigquery"
)

// OrderEventRow mirrors the order_events BigQuery schema. Money columns are
// integer cents.
type OrderEventRow struct {
	EventID       string             `bigquery:"event_id"`
	EventType     string             `bigquery:"event_type"`
	OccurredAt    time.Time          `bigquery:"occurred_at"`
	OrderID       *string            `bigquery:"order_id"`
	SessionID     *string            `bigquery:"session_id"`
	CartID        *string            `bigquery:"cart_id"`
	EmailDomain   *string            `bigquery:"email_domain"`
	ItemCount     *int64             `bigquery:"item_count"`
	SubtotalCents *int64             `bigquery:"subtotal_cents"`
	ShippingCents *int64             `bigquery:"shipping_cents"`
	TaxCents      *int64             `bigquery:"tax_cents"`
	TotalCents    *int64             `bigquery:"total_cents"`
	Source        *string            `bigquery:"source"`
	Payload       cbigquery.NullJSON `bigquery:"payload"`
}

// OrderEventsSchema is the order_events table definition, partitioned by
// day on occurred_at.
var OrderEventsSchema = cbigquery.Schema{
	{Name: "event_id", Type: cbigquery.StringFieldType, Required: true},
	{Name: "event_type", Type: cbigquery.StringFieldType, Required: true},
	{Name: "occurred_at", Type: cbigquery.TimestampFieldType, Required: true},
	{Name: "order_id", Type: cbigquery.StringFieldType},
	{Name: "session_id", Type: cbigquery.StringFieldType},
	{Name: "cart_id", Type: cbigquery.StringFieldType},
	{Name: "email_domain", Type: cbigquery.StringFieldType},
	{Name: "item_count", Type: cbigquery.IntegerFieldType},
	{Name: "subtotal_cents", Type: cbigquery.IntegerFieldType},
	{Name: "shipping_cents", Type: cbigquery.IntegerFieldType},
	{Name: "tax_cents", Type: cbigquery.IntegerFieldType},
	{Name: "total_cents", Type: cbigquery.IntegerFieldType},
	{Name: "source", Type: cbigquery.StringFieldType},
	{Name: "payload", Type: cbigquery.JSONFieldType},
}
