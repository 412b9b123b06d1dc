package orders

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"go.uber.org/multierr"

	"github.com/angelmondragon/storefront-backend/pkg/types"
)

// Metadata keys echoed back by the payment gateway.
const (
	MetaCartID          = "cart_id"
	MetaCustomerName    = "customer_name"
	MetaShippingAddress = "shipping_address"
	MetaSubtotal        = "subtotal"
	MetaShipping        = "shipping"
	MetaTax             = "tax"
	MetaTotal           = "total"
	MetaItemParts       = "items_parts"

	metaItemPrefix = "items_"

	// MaxMetadataValueLen is the longest value the gateway accepts per key.
	MaxMetadataValueLen = 500
	maxItemParts        = 40
)

// CheckoutMetadata is the cart snapshot attached to a payment session so an
// order can be built after payment without the cart.
type CheckoutMetadata struct {
	CartID          string
	CustomerName    string
	ShippingAddress types.Address
	Subtotal        *decimal.Decimal
	Shipping        *decimal.Decimal
	Tax             *decimal.Decimal
	Total           *decimal.Decimal
	Items           types.LineSnapshots
}

// HasTotals reports whether every amount was present.
func (m CheckoutMetadata) HasTotals() bool {
	return m.Subtotal != nil && m.Shipping != nil && m.Tax != nil && m.Total != nil
}

// Encode flattens the snapshot into string pairs. The items JSON is split
// across items_0..items_N keys to respect the per-value limit.
func (m CheckoutMetadata) Encode() (map[string]string, error) {
	out := map[string]string{
		MetaCartID:       m.CartID,
		MetaCustomerName: m.CustomerName,
	}
	address, err := json.Marshal(m.ShippingAddress)
	if err != nil {
		return nil, fmt.Errorf("encode shipping address: %w", err)
	}
	if len(address) > MaxMetadataValueLen {
		return nil, fmt.Errorf("shipping address exceeds %d characters", MaxMetadataValueLen)
	}
	out[MetaShippingAddress] = string(address)

	for key, amount := range map[string]*decimal.Decimal{
		MetaSubtotal: m.Subtotal,
		MetaShipping: m.Shipping,
		MetaTax:      m.Tax,
		MetaTotal:    m.Total,
	} {
		if amount != nil {
			out[key] = amount.StringFixed(2)
		}
	}

	items := m.Items
	if items == nil {
		items = types.LineSnapshots{}
	}
	raw, err := json.Marshal(items)
	if err != nil {
		return nil, fmt.Errorf("encode items: %w", err)
	}
	parts := splitChunks(string(raw), MaxMetadataValueLen)
	if len(parts) > maxItemParts {
		return nil, fmt.Errorf("cart snapshot too large for payment metadata")
	}
	for idx, part := range parts {
		out[metaItemPrefix+strconv.Itoa(idx)] = part
	}
	out[MetaItemParts] = strconv.Itoa(len(parts))
	return out, nil
}

// ParseCheckoutMetadata reads whatever it can. Fields that fail to parse are
// left empty and reported together in the returned error.
func ParseCheckoutMetadata(raw map[string]string) (CheckoutMetadata, error) {
	var (
		meta CheckoutMetadata
		errs error
	)
	meta.CartID = strings.TrimSpace(raw[MetaCartID])
	meta.CustomerName = strings.TrimSpace(raw[MetaCustomerName])

	if address := strings.TrimSpace(raw[MetaShippingAddress]); address != "" {
		if err := json.Unmarshal([]byte(address), &meta.ShippingAddress); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("shipping address: %w", err))
		}
	}

	meta.Subtotal = parseAmount(raw, MetaSubtotal, &errs)
	meta.Shipping = parseAmount(raw, MetaShipping, &errs)
	meta.Tax = parseAmount(raw, MetaTax, &errs)
	meta.Total = parseAmount(raw, MetaTotal, &errs)

	items, err := joinItems(raw)
	if err != nil {
		errs = multierr.Append(errs, err)
	} else if items != "" {
		if err := json.Unmarshal([]byte(items), &meta.Items); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("items: %w", err))
			meta.Items = nil
		}
	}
	if meta.Items == nil {
		meta.Items = types.LineSnapshots{}
	}
	return meta, errs
}

func parseAmount(raw map[string]string, key string, errs *error) *decimal.Decimal {
	value := strings.TrimSpace(raw[key])
	if value == "" {
		return nil
	}
	amount, err := decimal.NewFromString(value)
	if err != nil {
		*errs = multierr.Append(*errs, fmt.Errorf("%s: %w", key, err))
		return nil
	}
	if amount.IsNegative() {
		*errs = multierr.Append(*errs, fmt.Errorf("%s: negative amount %s", key, value))
		return nil
	}
	return &amount
}

func joinItems(raw map[string]string) (string, error) {
	count := strings.TrimSpace(raw[MetaItemParts])
	if count == "" {
		// Single-key form written before items were chunked.
		return strings.TrimSpace(raw["items"]), nil
	}
	n, err := strconv.Atoi(count)
	if err != nil || n < 0 || n > maxItemParts {
		return "", fmt.Errorf("items: invalid part count %q", count)
	}
	var b strings.Builder
	for idx := 0; idx < n; idx++ {
		part, ok := raw[metaItemPrefix+strconv.Itoa(idx)]
		if !ok {
			return "", fmt.Errorf("items: missing part %d of %d", idx, n)
		}
		b.WriteString(part)
	}
	return b.String(), nil
}

// splitChunks cuts on rune boundaries so every part stays valid UTF-8.
func splitChunks(value string, size int) []string {
	if value == "" {
		return []string{""}
	}
	var parts []string
	for len(value) > size {
		cut := size
		for cut > 0 && !utf8.RuneStart(value[cut]) {
			cut--
		}
		parts = append(parts, value[:cut])
		value = value[cut:]
	}
	return append(parts, value)
}
