package checkout

import (
	"encoding/json"
	"fmt"
	"net/mail"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/internal/orders"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

// SessionIDPlaceholder is substituted by the gateway with the created session id.
const SessionIDPlaceholder = "{CHECKOUT_SESSION_ID}"

const (
	shippingEntryName = "Shipping"
	taxEntryName      = "Tax"
)

var hundred = decimal.NewFromInt(100)

// StartInput carries the buyer details collected on the checkout form.
type StartInput struct {
	Email   string
	Name    string
	Address types.Address
}

func (in StartInput) normalized() StartInput {
	return StartInput{
		Email:   strings.TrimSpace(in.Email),
		Name:    strings.TrimSpace(in.Name),
		Address: in.Address.Normalized(),
	}
}

func (in StartInput) validate() error {
	if in.Email == "" || in.Name == "" || in.Address.Validate() != nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "missing required fields")
	}
	if _, err := mail.ParseAddress(in.Email); err != nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "missing required fields").
			WithDetails(map[string]any{"email": "invalid"})
	}
	// Both travel as single payment metadata values.
	if utf8.RuneCountInString(in.Name) > orders.MaxMetadataValueLen {
		return pkgerrors.Newf(pkgerrors.CodeValidation, "name exceeds %d characters", orders.MaxMetadataValueLen).
			WithDetails(map[string]any{"name": "too_long"})
	}
	if encoded, err := json.Marshal(in.Address); err != nil || len(encoded) > orders.MaxMetadataValueLen {
		return pkgerrors.Newf(pkgerrors.CodeValidation, "shipping address exceeds %d characters", orders.MaxMetadataValueLen).
			WithDetails(map[string]any{"address": "too_long"})
	}
	return nil
}

// URLs are the storefront pages the gateway returns the buyer to.
type URLs struct {
	BaseURL     string
	SuccessPath string
	CancelPath  string
}

func (u URLs) success() string {
	return joinURL(u.BaseURL, u.SuccessPath) + "?session_id=" + SessionIDPlaceholder
}

func (u URLs) cancel() string {
	return joinURL(u.BaseURL, u.CancelPath)
}

func joinURL(base, path string) string {
	base = strings.TrimRight(strings.TrimSpace(base), "/")
	path = strings.TrimSpace(path)
	if path == "" {
		return base
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return base + path
}

// BuildRequest turns a priced cart into a gateway request. Items become line
// entries at their effective unit price, followed by shipping and tax entries
// when those are non-zero.
func BuildRequest(snapshot *cart.Snapshot, buyer StartInput, currency string, urls URLs) (Request, error) {
	if snapshot == nil || len(snapshot.Items) == 0 {
		return Request{}, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}
	if _, err := url.ParseRequestURI(urls.cancel()); err != nil {
		return Request{}, fmt.Errorf("invalid checkout base url: %w", err)
	}

	entries := make([]LineEntry, 0, len(snapshot.Items)+2)
	lines := make(types.LineSnapshots, 0, len(snapshot.Items))
	for _, item := range snapshot.Items {
		unit := item.UnitPrice()
		entries = append(entries, LineEntry{
			Name:        item.Name,
			Description: describe(item),
			Image:       item.Image,
			UnitAmount:  toCents(unit),
			Quantity:    int64(item.Quantity),
		})
		lines = append(lines, types.LineSnapshot{
			ProductID: item.ProductID,
			Slug:      item.ProductSlug,
			Name:      item.Name,
			Price:     unit,
			Size:      item.Size,
			Color:     item.Color,
			Quantity:  item.Quantity,
			Image:     item.Image,
		})
	}
	totals := snapshot.Totals
	if totals.Shipping.IsPositive() {
		entries = append(entries, LineEntry{Name: shippingEntryName, UnitAmount: toCents(totals.Shipping), Quantity: 1})
	}
	if totals.Tax.IsPositive() {
		entries = append(entries, LineEntry{Name: taxEntryName, UnitAmount: toCents(totals.Tax), Quantity: 1})
	}

	meta := orders.CheckoutMetadata{
		CartID:          snapshot.CartID,
		CustomerName:    buyer.Name,
		ShippingAddress: buyer.Address,
		Subtotal:        &totals.Subtotal,
		Shipping:        &totals.Shipping,
		Tax:             &totals.Tax,
		Total:           &totals.Total,
		Items:           lines,
	}
	metadata, err := meta.Encode()
	if err != nil {
		return Request{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "cart cannot be checked out")
	}

	return Request{
		Currency:      strings.ToLower(strings.TrimSpace(currency)),
		LineEntries:   entries,
		CustomerEmail: buyer.Email,
		CustomerName:  buyer.Name,
		Metadata:      metadata,
		SuccessURL:    urls.success(),
		CancelURL:     urls.cancel(),
	}, nil
}

// describe renders the variant as "Color / Size", omitting blank parts.
func describe(item cart.LineItem) string {
	parts := make([]string, 0, 2)
	if color := strings.TrimSpace(item.Color); color != "" {
		parts = append(parts, color)
	}
	if size := strings.TrimSpace(item.Size); size != "" {
		parts = append(parts, size)
	}
	return strings.Join(parts, " / ")
}

func toCents(amount decimal.Decimal) int64 {
	return amount.Mul(hundred).Round(0).IntPart()
}
