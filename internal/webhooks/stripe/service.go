package stripewebhook

import (
	"context"
	"encoding/json"

	"github.com/stripe/stripe-go/v84"

	"github.com/angelmondragon/storefront-backend/internal/checkout"
	"github.com/angelmondragon/storefront-backend/internal/orders"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

const (
	outcomeProcessed = "processed"
	outcomeIgnored   = "ignored"
	outcomeFailed    = "failed"
)

type sessionResolver interface {
	Complete(ctx context.Context, session *checkout.Session, source string) (*orders.MaterializeResult, error)
	Expire(ctx context.Context, sessionID string) error
}

type webhookRecorder interface {
	IncWebhookEvent(eventType, outcome string)
}

type ServiceParams struct {
	Checkout sessionResolver
	Metrics  webhookRecorder
	Logger   *logger.Logger
}

type Service struct {
	checkout sessionResolver
	metrics  webhookRecorder
	logg     *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Checkout == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "checkout service required")
	}
	return &Service{
		checkout: params.Checkout,
		metrics:  params.Metrics,
		logg:     params.Logger,
	}, nil
}

func (s *Service) HandleEvent(ctx context.Context, event *stripe.Event) error {
	if event == nil || event.Data == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "stripe event data required")
	}
	if s.logg != nil {
		ctx = s.logg.WithFields(ctx, map[string]any{
			"stripe_event_id":   event.ID,
			"stripe_event_type": string(event.Type),
		})
	}

	outcome, err := s.dispatch(ctx, event)
	if err != nil {
		outcome = outcomeFailed
	}
	if s.metrics != nil {
		s.metrics.IncWebhookEvent(string(event.Type), outcome)
	}
	return err
}

func (s *Service) dispatch(ctx context.Context, event *stripe.Event) (string, error) {
	switch event.Type {
	case stripe.EventTypeCheckoutSessionCompleted,
		stripe.EventTypeCheckoutSessionAsyncPaymentSucceeded:
		session, err := decodeSession(event)
		if err != nil {
			return "", err
		}
		if !session.PaymentStatus.IsSettled() {
			s.info(ctx, "checkout session completed awaiting payment")
			return outcomeIgnored, nil
		}
		result, err := s.checkout.Complete(ctx, session, orders.SourceWebhook)
		if err != nil {
			return "", err
		}
		if s.logg != nil {
			s.logg.Info(s.logg.WithFields(ctx, map[string]any{
				"order_id": result.Order.ID.String(),
				"created":  result.Created,
			}), "checkout session fulfilled")
		}
		return outcomeProcessed, nil
	case stripe.EventTypeCheckoutSessionExpired:
		session, err := decodeSession(event)
		if err != nil {
			return "", err
		}
		if err := s.checkout.Expire(ctx, session.ID); err != nil {
			return "", err
		}
		return outcomeProcessed, nil
	case stripe.EventTypePaymentIntentSucceeded:
		s.info(ctx, "payment intent succeeded")
		return outcomeProcessed, nil
	case stripe.EventTypePaymentIntentPaymentFailed:
		if s.logg != nil {
			reason := event.GetObjectValue("last_payment_error", "message")
			s.logg.Warn(s.logg.WithField(ctx, "reason", reason), "payment intent failed")
		}
		return outcomeProcessed, nil
	default:
		return outcomeIgnored, nil
	}
}

func decodeSession(event *stripe.Event) (*checkout.Session, error) {
	var cs stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &cs); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode checkout session event")
	}
	if cs.ID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "checkout session id missing")
	}
	return checkout.FromStripeSession(&cs), nil
}

func (s *Service) info(ctx context.Context, msg string) {
	if s.logg != nil {
		s.logg.Info(ctx, msg)
	}
}
