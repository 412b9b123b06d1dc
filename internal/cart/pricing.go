package cart

import (
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/pkg/config"
)

const moneyPlaces = 2

// PricingPolicy holds the shipping and tax rules applied to a cart.
type PricingPolicy struct {
	FreeShippingThreshold decimal.Decimal
	FlatShippingRate      decimal.Decimal
	TaxRate               decimal.Decimal
}

// DefaultPricingPolicy returns free shipping from 100.00, otherwise 10.00 flat, and 8% tax.
func DefaultPricingPolicy() PricingPolicy {
	return PricingPolicy{
		FreeShippingThreshold: decimal.NewFromInt(100),
		FlatShippingRate:      decimal.NewFromInt(10),
		TaxRate:               decimal.RequireFromString("0.08"),
	}
}

// PolicyFromConfig maps the loaded pricing config onto a policy.
func PolicyFromConfig(cfg config.PricingConfig) PricingPolicy {
	return PricingPolicy{
		FreeShippingThreshold: cfg.FreeShippingThreshold,
		FlatShippingRate:      cfg.FlatShippingRate,
		TaxRate:               cfg.TaxRate,
	}
}

// Totals are derived from cart contents and never stored on their own.
type Totals struct {
	Subtotal decimal.Decimal
	Shipping decimal.Decimal
	Tax      decimal.Decimal
	Total    decimal.Decimal
}

// Compute derives totals for the items. An empty cart has all-zero totals.
func (p PricingPolicy) Compute(items []LineItem) Totals {
	if len(items) == 0 {
		return Totals{
			Subtotal: decimal.Zero,
			Shipping: decimal.Zero,
			Tax:      decimal.Zero,
			Total:    decimal.Zero,
		}
	}
	subtotal := decimal.Zero
	for _, item := range items {
		subtotal = subtotal.Add(item.LineTotal())
	}
	return p.FromSubtotal(subtotal)
}

// FromSubtotal applies shipping and tax to an already summed subtotal.
// Amounts round half away from zero to cents and tax is rounded before the total.
func (p PricingPolicy) FromSubtotal(subtotal decimal.Decimal) Totals {
	subtotal = subtotal.Round(moneyPlaces)
	shipping := p.FlatShippingRate.Round(moneyPlaces)
	if subtotal.GreaterThanOrEqual(p.FreeShippingThreshold) {
		shipping = decimal.Zero
	}
	tax := subtotal.Mul(p.TaxRate).Round(moneyPlaces)
	return Totals{
		Subtotal: subtotal,
		Shipping: shipping,
		Tax:      tax,
		Total:    subtotal.Add(shipping).Add(tax),
	}
}

// IsZero reports whether every amount is zero.
func (t Totals) IsZero() bool {
	return t.Subtotal.IsZero() && t.Shipping.IsZero() && t.Tax.IsZero() && t.Total.IsZero()
}
