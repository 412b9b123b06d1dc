package worker

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/internal/analytics/router"
	"github.com/angelmondragon/storefront-backend/internal/analytics/types"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
)

const analyticsConsumerName = "analytics"

// Handler defines how to process analytics envelopes.
type Handler interface {
	Handle(ctx context.Context, envelope types.Envelope) error
}

// HandlerFunc adapts functions to the Handler interface.
type HandlerFunc func(ctx context.Context, envelope types.Envelope) error

// Handle calls the underlying function.
func (fn HandlerFunc) Handle(ctx context.Context, envelope types.Envelope) error {
	if fn == nil {
		return nil
	}
	return fn(ctx, envelope)
}

type receiver interface {
	Receive(ctx context.Context, f func(context.Context, *gcppubsub.Message)) error
}

type idempotencyChecker interface {
	CheckAndMarkProcessed(ctx context.Context, consumer string, eventID uuid.UUID) (bool, error)
	Delete(ctx context.Context, consumer string, eventID uuid.UUID) error
}

// outcome decides whether a message is acked or redelivered.
type outcome int

const (
	outcomeHandled outcome = iota
	outcomeDropped
	outcomeDuplicate
	outcomeRetry
)

func (o outcome) String() string {
	switch o {
	case outcomeHandled:
		return "handled"
	case outcomeDropped:
		return "dropped"
	case outcomeDuplicate:
		return "duplicate"
	default:
		return "retry"
	}
}

// Service consumes order events from Pub/Sub, deduplicating by event id.
type Service struct {
	subscription receiver
	handler      Handler
	manager      idempotencyChecker
	logg         *logger.Logger
}

func NewService(subscription receiver, handler Handler, manager idempotencyChecker, logg *logger.Logger) (*Service, error) {
	switch {
	case subscription == nil:
		return nil, errors.New("analytics subscription is required")
	case handler == nil:
		return nil, errors.New("analytics handler is required")
	case manager == nil:
		return nil, errors.New("idempotency manager is required")
	case logg == nil:
		return nil, errors.New("logger is required")
	}
	if sub, ok := subscription.(*gcppubsub.Subscriber); ok && sub == nil {
		return nil, errors.New("analytics subscription is required")
	}
	return &Service{subscription: subscription, handler: handler, manager: manager, logg: logg}, nil
}

// Run consumes messages until ctx is canceled.
func (s *Service) Run(ctx context.Context) error {
	return s.subscription.Receive(ctx, func(msgCtx context.Context, msg *gcppubsub.Message) {
		if s.process(msgCtx, msg) == outcomeRetry {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

func (s *Service) process(ctx context.Context, msg *gcppubsub.Message) outcome {
	ctx = s.logg.WithField(ctx, "message_id", msg.ID)

	envelope, err := s.buildEnvelope(msg)
	if err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "analytics.invalid_envelope")
		return outcomeDropped
	}
	ctx = s.logg.WithFields(ctx, logger.Fields{
		"event_id":       envelope.EventID,
		"event_type":     envelope.EventType,
		"aggregate_type": envelope.AggregateType,
		"aggregate_id":   envelope.AggregateID,
	})

	eventID, err := uuid.Parse(envelope.EventID)
	if err != nil {
		s.logg.Warn(ctx, "analytics.invalid_event_id")
		return outcomeDropped
	}

	result := s.dispatch(ctx, eventID, envelope)
	s.logg.Debug(s.logg.WithField(ctx, "outcome", result.String()), "analytics.event_processed")
	return result
}

// dispatch marks the event before handling it and releases the mark when
// the handler fails so redelivery can retry.
func (s *Service) dispatch(ctx context.Context, eventID uuid.UUID, envelope types.Envelope) outcome {
	seen, err := s.manager.CheckAndMarkProcessed(ctx, analyticsConsumerName, eventID)
	if err != nil {
		s.logg.Error(ctx, "analytics.idempotency_check_failed", err)
		return outcomeRetry
	}
	if seen {
		return outcomeDuplicate
	}

	err = s.handler.Handle(ctx, envelope)
	switch {
	case err == nil:
		return outcomeHandled
	case errors.Is(err, router.ErrUnsupportedEventType):
		s.logg.Warn(ctx, "analytics.unsupported_event")
		return outcomeDropped
	}

	s.logg.Error(ctx, "analytics.handler_failed", err)
	if delErr := s.manager.Delete(ctx, analyticsConsumerName, eventID); delErr != nil {
		s.logg.Error(ctx, "analytics.idempotency_release_failed", delErr)
	}
	return outcomeRetry
}

// buildEnvelope merges the message body with its routing attributes. The
// body wins for event id and occurrence time; attributes fill gaps.
func (s *Service) buildEnvelope(msg *gcppubsub.Message) (types.Envelope, error) {
	stored, err := outbox.DecodeEnvelope(msg.Data)
	if err != nil {
		return types.Envelope{}, err
	}
	attr := func(key string) string { return strings.TrimSpace(msg.Attributes[key]) }

	eventType, err := enums.ParseOutboxEventType(attr("event_type"))
	if err != nil {
		return types.Envelope{}, fmt.Errorf("event_type: %w", err)
	}
	aggregateType, err := enums.ParseOutboxAggregateType(attr("aggregate_type"))
	if err != nil {
		return types.Envelope{}, fmt.Errorf("aggregate_type: %w", err)
	}
	aggregateID := attr("aggregate_id")
	if aggregateID == "" {
		return types.Envelope{}, errors.New("aggregate_id missing")
	}

	eventID := cmp.Or(strings.TrimSpace(stored.EventID), attr("event_id"))
	if eventID == "" {
		return types.Envelope{}, errors.New("event_id missing")
	}

	occurredAt := stored.OccurredAt
	if occurredAt.IsZero() {
		if parsed, err := time.Parse(time.RFC3339Nano, attr("created_at")); err == nil {
			occurredAt = parsed
		}
	}

	return types.Envelope{
		EventID:       eventID,
		EventType:     eventType,
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		Version:       stored.Version,
		OccurredAt:    occurredAt.UTC(),
		Payload:       stored.Data,
	}, nil
}
