package cart

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	errMissingProductID = errors.New("line item product id is required")
	errInvalidQuantity  = errors.New("line item quantity must be at least 1")
	errNegativePrice    = errors.New("line item price must be non-negative")
)

// Key identifies a purchasable configuration. Items sharing a key are merged.
type Key struct {
	ProductID string
	Size      string
	Color     string
}

func (k Key) normalized() Key {
	return Key{
		ProductID: strings.TrimSpace(k.ProductID),
		Size:      strings.TrimSpace(k.Size),
		Color:     strings.TrimSpace(k.Color),
	}
}

// LineItem is one (product, size, color) entry captured at add time.
type LineItem struct {
	ProductID   string           `json:"productId"`
	ProductSlug string           `json:"productSlug"`
	Name        string           `json:"name"`
	Price       decimal.Decimal  `json:"price"`
	SalePrice   *decimal.Decimal `json:"salePrice,omitempty"`
	Image       string           `json:"image"`
	Size        string           `json:"size"`
	Color       string           `json:"color"`
	Quantity    int              `json:"quantity"`
}

// Key returns the identity key of the item.
func (i LineItem) Key() Key {
	return Key{ProductID: i.ProductID, Size: i.Size, Color: i.Color}.normalized()
}

// UnitPrice returns the sale price when set, otherwise the list price.
func (i LineItem) UnitPrice() decimal.Decimal {
	if i.SalePrice != nil {
		return *i.SalePrice
	}
	return i.Price
}

// LineTotal is the effective unit price times quantity.
func (i LineItem) LineTotal() decimal.Decimal {
	return i.UnitPrice().Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Validate checks the invariants an item must hold while it sits in a cart.
func (i LineItem) Validate() error {
	if strings.TrimSpace(i.ProductID) == "" {
		return errMissingProductID
	}
	if i.Quantity < 1 {
		return errInvalidQuantity
	}
	if i.Price.IsNegative() {
		return errNegativePrice
	}
	if i.SalePrice != nil && i.SalePrice.IsNegative() {
		return errNegativePrice
	}
	return nil
}

func (i LineItem) clone() LineItem {
	out := i
	if i.SalePrice != nil {
		sale := *i.SalePrice
		out.SalePrice = &sale
	}
	return out
}
