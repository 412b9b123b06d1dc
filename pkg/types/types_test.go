package types

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestAddressValueScanRoundTrip(t *testing.T) {
	line2 := "Apt 4"
	addr := Address{Line1: "1 Main St", Line2: &line2, City: "Austin", State: "TX", PostalCode: "78701", Country: "US"}
	value, err := addr.Value()
	if err != nil {
		t.Fatalf("value: %v", err)
	}

	var scanned Address
	if err := scanned.Scan(value); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if scanned.City != "Austin" || scanned.Line2 == nil || *scanned.Line2 != "Apt 4" {
		t.Fatalf("unexpected address %+v", scanned)
	}
	if got := scanned.String(); got != "1 Main St, Apt 4, Austin, TX 78701, US" {
		t.Fatalf("unexpected string %q", got)
	}
}

func TestAddressNormalizeAndValidate(t *testing.T) {
	blank := "  "
	addr := Address{Line1: " 9 Elm ", Line2: &blank, City: "Reno", State: "NV", PostalCode: " 89501 "}.Normalized()
	if addr.Line2 != nil || addr.Country != "US" || addr.PostalCode != "89501" {
		t.Fatalf("unexpected normalized address %+v", addr)
	}
	if err := addr.Validate(); err != nil {
		t.Fatalf("expected valid address: %v", err)
	}
	if err := (Address{Line1: "x", City: "y", State: "z"}).Validate(); err == nil {
		t.Fatalf("expected missing postal code error")
	}
}

func TestLineSnapshotsSubtotalAndScan(t *testing.T) {
	lines := LineSnapshots{
		{ProductID: "A", Price: decimal.RequireFromString("19.99"), Quantity: 2},
		{ProductID: "B", Price: decimal.RequireFromString("5"), Quantity: 1},
	}
	if !lines.Subtotal().Equal(decimal.RequireFromString("44.98")) {
		t.Fatalf("unexpected subtotal %s", lines.Subtotal())
	}

	value, err := lines.Value()
	if err != nil {
		t.Fatalf("value: %v", err)
	}
	var scanned LineSnapshots
	if err := scanned.Scan([]byte(value.(string))); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(scanned) != 2 || scanned[1].ProductID != "B" {
		t.Fatalf("unexpected scanned lines %+v", scanned)
	}

	var empty LineSnapshots
	if err := empty.Scan(nil); err != nil || empty == nil {
		t.Fatalf("expected empty non-nil lines, err=%v", err)
	}
	if v, _ := LineSnapshots(nil).Value(); v != "[]" {
		t.Fatalf("expected nil lines to store as [], got %v", v)
	}
}
