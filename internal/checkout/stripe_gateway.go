package checkout

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/checkout/session"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgstripe "github.com/angelmondragon/storefront-backend/pkg/stripe"
)

// StripeSessionAPI exposes the Stripe Checkout calls the gateway needs.
type StripeSessionAPI interface {
	New(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
	Get(id string, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
}

type stripeSessionAPI struct{}

func (stripeSessionAPI) New(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	return session.New(params)
}

func (stripeSessionAPI) Get(id string, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	return session.Get(id, params)
}

type stripeGateway struct {
	api StripeSessionAPI
}

// NewStripeGateway returns a Gateway backed by Stripe Checkout. A nil api
// uses the package-level Stripe client configured by pkg/stripe.
func NewStripeGateway(client *pkgstripe.Client, api StripeSessionAPI) (Gateway, error) {
	if client == nil && api == nil {
		return nil, errors.New("stripe client required")
	}
	if api == nil {
		api = stripeSessionAPI{}
	}
	return &stripeGateway{api: api}, nil
}

func (g *stripeGateway) CreateSession(ctx context.Context, req Request) (*Session, error) {
	params := sessionParams(req)
	params.Context = ctx
	created, err := g.api.New(params)
	if err != nil {
		return nil, err
	}
	return FromStripeSession(created), nil
}

func (g *stripeGateway) GetSession(ctx context.Context, sessionID string) (*Session, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx
	found, err := g.api.Get(sessionID, params)
	if err != nil {
		return nil, err
	}
	return FromStripeSession(found), nil
}

func sessionParams(req Request) *stripe.CheckoutSessionParams {
	params := &stripe.CheckoutSessionParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL: stripe.String(req.SuccessURL),
		CancelURL:  stripe.String(req.CancelURL),
		Metadata:   req.Metadata,
	}
	if req.CustomerEmail != "" {
		params.CustomerEmail = stripe.String(req.CustomerEmail)
	}
	for _, entry := range req.LineEntries {
		product := &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
			Name: stripe.String(entry.Name),
		}
		if entry.Description != "" {
			product.Description = stripe.String(entry.Description)
		}
		if entry.Image != "" {
			product.Images = []*string{stripe.String(entry.Image)}
		}
		params.LineItems = append(params.LineItems, &stripe.CheckoutSessionLineItemParams{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:    stripe.String(req.Currency),
				UnitAmount:  stripe.Int64(entry.UnitAmount),
				ProductData: product,
			},
			Quantity: stripe.Int64(entry.Quantity),
		})
	}
	return params
}

// FromStripeSession maps a Stripe Checkout session onto the gateway view.
func FromStripeSession(cs *stripe.CheckoutSession) *Session {
	if cs == nil {
		return nil
	}
	out := &Session{
		ID:            cs.ID,
		URL:           cs.URL,
		Status:        sessionStatus(cs.Status),
		PaymentStatus: paymentStatus(cs.PaymentStatus),
		CustomerEmail: strings.TrimSpace(cs.CustomerEmail),
		Metadata:      cs.Metadata,
	}
	if out.CustomerEmail == "" && cs.CustomerDetails != nil {
		out.CustomerEmail = strings.TrimSpace(cs.CustomerDetails.Email)
	}
	if cs.PaymentIntent != nil {
		out.PaymentIntentID = cs.PaymentIntent.ID
	}
	if cs.AmountTotal > 0 {
		total := decimal.New(cs.AmountTotal, -2)
		out.AmountTotal = &total
	}
	if cs.ExpiresAt > 0 {
		out.ExpiresAt = time.Unix(cs.ExpiresAt, 0).UTC()
	}
	return out
}

func sessionStatus(status stripe.CheckoutSessionStatus) enums.CheckoutSessionStatus {
	switch status {
	case stripe.CheckoutSessionStatusComplete:
		return enums.CheckoutSessionCompleted
	case stripe.CheckoutSessionStatusExpired:
		return enums.CheckoutSessionExpired
	default:
		return enums.CheckoutSessionOpen
	}
}

func paymentStatus(status stripe.CheckoutSessionPaymentStatus) enums.PaymentStatus {
	switch status {
	case stripe.CheckoutSessionPaymentStatusPaid:
		return enums.PaymentStatusPaid
	case stripe.CheckoutSessionPaymentStatusNoPaymentRequired:
		return enums.PaymentStatusNoPaymentRequired
	default:
		return enums.PaymentStatusUnpaid
	}
}
