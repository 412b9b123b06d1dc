package cart

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/pkg/config"
)

func dec(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func TestComputeTotalsWorkedExamples(t *testing.T) {
	policy := DefaultPricingPolicy()
	tests := []struct {
		name     string
		items    []LineItem
		subtotal string
		shipping string
		tax      string
		total    string
	}{
		{
			name:     "below threshold pays flat shipping",
			items:    []LineItem{{ProductID: "A", Price: dec("90"), Quantity: 1}},
			subtotal: "90", shipping: "10", tax: "7.20", total: "107.20",
		},
		{
			name:     "above threshold ships free",
			items:    []LineItem{{ProductID: "A", Price: dec("50"), Quantity: 3}},
			subtotal: "150", shipping: "0", tax: "12.00", total: "162.00",
		},
		{
			name:     "exactly threshold ships free",
			items:    []LineItem{{ProductID: "A", Price: dec("25"), Quantity: 4}},
			subtotal: "100", shipping: "0", tax: "8.00", total: "108.00",
		},
		{
			name:     "just under threshold",
			items:    []LineItem{{ProductID: "A", Price: dec("99.99"), Quantity: 1}},
			subtotal: "99.99", shipping: "10", tax: "8.00", total: "117.99",
		},
		{
			name: "sale price wins",
			items: []LineItem{
				{ProductID: "A", Price: dec("80"), SalePrice: decPtr("60"), Quantity: 1},
				{ProductID: "B", Price: dec("15.50"), Quantity: 2},
			},
			subtotal: "91", shipping: "10", tax: "7.28", total: "108.28",
		},
		{
			name:     "empty cart is all zero",
			subtotal: "0", shipping: "0", tax: "0", total: "0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := policy.Compute(tt.items)
			assertAmount(t, "subtotal", got.Subtotal, tt.subtotal)
			assertAmount(t, "shipping", got.Shipping, tt.shipping)
			assertAmount(t, "tax", got.Tax, tt.tax)
			assertAmount(t, "total", got.Total, tt.total)
		})
	}
}

func TestComputeTotalsOrderIndependent(t *testing.T) {
	policy := DefaultPricingPolicy()
	items := []LineItem{
		{ProductID: "A", Price: dec("19.99"), Quantity: 3},
		{ProductID: "B", Price: dec("4.35"), SalePrice: decPtr("3.10"), Quantity: 7},
		{ProductID: "C", Price: dec("0.01"), Quantity: 11},
	}
	reversed := []LineItem{items[2], items[0], items[1]}

	first := policy.Compute(items)
	second := policy.Compute(reversed)
	if !first.Total.Equal(second.Total) || !first.Tax.Equal(second.Tax) {
		t.Fatalf("totals depend on order: %+v vs %+v", first, second)
	}
	assertAmount(t, "subtotal", first.Subtotal, "81.78")
	if !policy.Compute(items).Total.Equal(first.Total) {
		t.Fatalf("compute is not idempotent")
	}
}

func TestTaxRoundsHalfAwayFromZero(t *testing.T) {
	policy := PricingPolicy{
		FreeShippingThreshold: dec("100"),
		FlatShippingRate:      dec("10"),
		TaxRate:               dec("0.085"),
	}
	// 10.10 * 0.085 = 0.8585
	got := policy.FromSubtotal(dec("10.10"))
	assertAmount(t, "tax", got.Tax, "0.86")
	assertAmount(t, "total", got.Total, "20.96")

	// 1.00 * 0.085 = 0.085
	got = policy.FromSubtotal(dec("1"))
	assertAmount(t, "tax", got.Tax, "0.09")
}

func TestPolicyFromConfig(t *testing.T) {
	policy := PolicyFromConfig(config.PricingConfig{
		FreeShippingThreshold: dec("75"),
		FlatShippingRate:      dec("5.95"),
		TaxRate:               dec("0.085"),
	})
	got := policy.FromSubtotal(dec("80"))
	assertAmount(t, "shipping", got.Shipping, "0")
	assertAmount(t, "tax", got.Tax, "6.80")

	got = policy.FromSubtotal(dec("20"))
	assertAmount(t, "shipping", got.Shipping, "5.95")
}

func assertAmount(t *testing.T, field string, got decimal.Decimal, want string) {
	t.Helper()
	if !got.Equal(dec(want)) {
		t.Fatalf("%s: expected %s got %s", field, want, got.String())
	}
}

func decPtr(v string) *decimal.Decimal {
	d := dec(v)
	return &d
}
