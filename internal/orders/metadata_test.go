package orders

import (
	"fmt"
	"strconv"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront-backend/pkg/types"
)

func amount(value string) *decimal.Decimal {
	d := decimal.RequireFromString(value)
	return &d
}

func sampleMetadata(lines int) CheckoutMetadata {
	line2 := "Apt 4"
	items := make(types.LineSnapshots, 0, lines)
	for i := 0; i < lines; i++ {
		items = append(items, types.LineSnapshot{
			ProductID: fmt.Sprintf("prod-%02d", i),
			Slug:      fmt.Sprintf("linen-shirt-%02d", i),
			Name:      "Linen Shirt",
			Price:     decimal.RequireFromString("45.00"),
			Size:      "M",
			Color:     "Sand",
			Quantity:  2,
			Image:     "https://cdn.example.com/linen.jpg",
		})
	}
	return CheckoutMetadata{
		CartID:       "0c8f7a1e-2b7d-4a53-9d0e-6c1d1f3e2a10",
		CustomerName: "Ada Lovelace",
		ShippingAddress: types.Address{
			Line1:      "1 Main St",
			Line2:      &line2,
			City:       "Austin",
			State:      "TX",
			PostalCode: "78701",
			Country:    "US",
		},
		Subtotal: amount("90"),
		Shipping: amount("10"),
		Tax:      amount("7.2"),
		Total:    amount("107.2"),
		Items:    items,
	}
}

func TestEncodeParseRoundTrip(t *testing.T) {
	meta := sampleMetadata(1)

	raw, err := meta.Encode()
	require.NoError(t, err)
	assert.Equal(t, "90.00", raw[MetaSubtotal])
	assert.Equal(t, "107.20", raw[MetaTotal])
	assert.Equal(t, "1", raw[MetaItemParts])

	parsed, err := ParseCheckoutMetadata(raw)
	require.NoError(t, err)
	assert.Equal(t, meta.CartID, parsed.CartID)
	assert.Equal(t, meta.CustomerName, parsed.CustomerName)
	assert.Equal(t, meta.ShippingAddress.String(), parsed.ShippingAddress.String())
	require.True(t, parsed.HasTotals())
	assert.True(t, parsed.Total.Equal(decimal.RequireFromString("107.20")))
	require.Len(t, parsed.Items, 1)
	assert.Equal(t, "linen-shirt-00", parsed.Items[0].Slug)
	assert.True(t, parsed.Items[0].Price.Equal(decimal.RequireFromString("45")))
}

func TestEncodeChunksLargeItemLists(t *testing.T) {
	meta := sampleMetadata(25)

	raw, err := meta.Encode()
	require.NoError(t, err)

	parts, err := strconv.Atoi(raw[MetaItemParts])
	require.NoError(t, err)
	require.Greater(t, parts, 1)
	for key, value := range raw {
		assert.LessOrEqual(t, len(value), MaxMetadataValueLen, "value for %s too long", key)
	}

	parsed, err := ParseCheckoutMetadata(raw)
	require.NoError(t, err)
	require.Len(t, parsed.Items, 25)
	assert.Equal(t, "linen-shirt-24", parsed.Items[24].Slug)
	assert.True(t, parsed.Items.Subtotal().Equal(decimal.NewFromInt(25*90)))
}

func TestEncodeRejectsOversizedCart(t *testing.T) {
	_, err := sampleMetadata(2000).Encode()
	require.Error(t, err)
}

func TestSplitChunksKeepsRunesIntact(t *testing.T) {
	value := strings.Repeat("é", 400)

	parts := splitChunks(value, MaxMetadataValueLen)
	require.Greater(t, len(parts), 1)
	for _, part := range parts {
		assert.True(t, utf8.ValidString(part))
		assert.LessOrEqual(t, len(part), MaxMetadataValueLen)
	}
	assert.Equal(t, value, strings.Join(parts, ""))
}

func TestParseCheckoutMetadataIsLenient(t *testing.T) {
	raw := map[string]string{
		MetaCartID:          " cart-1 ",
		MetaCustomerName:    "Ada",
		MetaShippingAddress: "{not json",
		MetaSubtotal:        "abc",
		MetaShipping:        "-1",
		MetaTax:             "7.20",
		MetaTotal:           "107.20",
		MetaItemParts:       "2",
		"items_0":           `[{"productId":"p1","quantity":1,"price":"90"}]`,
	}

	meta, err := ParseCheckoutMetadata(raw)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "shipping address")
	assert.Contains(t, err.Error(), MetaSubtotal)
	assert.Contains(t, err.Error(), "negative amount")
	assert.Contains(t, err.Error(), "missing part 1")

	assert.Equal(t, "cart-1", meta.CartID)
	assert.Equal(t, "Ada", meta.CustomerName)
	assert.Nil(t, meta.Subtotal)
	assert.Nil(t, meta.Shipping)
	require.NotNil(t, meta.Tax)
	assert.False(t, meta.HasTotals())
	assert.NotNil(t, meta.Items)
	assert.Empty(t, meta.Items)
}

func TestParseCheckoutMetadataLegacyItemsKey(t *testing.T) {
	meta, err := ParseCheckoutMetadata(map[string]string{
		"items": `[{"productId":"p1","slug":"tee","quantity":3,"price":"20.00"}]`,
	})
	require.NoError(t, err)
	require.Len(t, meta.Items, 1)
	assert.Equal(t, 3, meta.Items[0].Quantity)
	assert.True(t, meta.Items.Subtotal().Equal(decimal.NewFromInt(60)))
}

func TestParseCheckoutMetadataEmpty(t *testing.T) {
	meta, err := ParseCheckoutMetadata(nil)
	require.NoError(t, err)
	assert.Empty(t, meta.CartID)
	assert.False(t, meta.HasTotals())
	assert.NotNil(t, meta.Items)
}
