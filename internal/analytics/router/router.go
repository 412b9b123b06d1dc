package router

import (
	"context"
	"errors"
	"fmt"

	"github.com/angelmondragon/storefront-backend/internal/analytics/types"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

var ErrUnsupportedEventType = errors.New("unsupported analytics event type")

// Writer delivers warehouse rows.
type Writer interface {
	InsertOrderEvent(ctx context.Context, row types.OrderEventRow) error
}

// Handler processes one envelope of a given event type.
type Handler interface {
	Handle(ctx context.Context, envelope types.Envelope) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, envelope types.Envelope) error

func (f HandlerFunc) Handle(ctx context.Context, envelope types.Envelope) error {
	return f(ctx, envelope)
}

// Router dispatches analytics envelopes by event type.
type Router struct {
	routes map[enums.OutboxEventType]Handler
}

// NewRouter registers the order_created and checkout_session_expired row
// builders; overrides replace the handler for an already-known event type.
func NewRouter(writer Writer, logg *logger.Logger, overrides map[enums.OutboxEventType]Handler) (*Router, error) {
	if writer == nil {
		return nil, errors.New("writer is required")
	}
	if logg == nil {
		return nil, errors.New("logger is required")
	}

	routes := map[enums.OutboxEventType]Handler{
		enums.EventOrderCreated:           rowRoute(writer, logg, orderCreatedRow),
		enums.EventCheckoutSessionExpired: rowRoute(writer, logg, sessionExpiredRow),
	}
	for event, custom := range overrides {
		if _, known := routes[event]; known && custom != nil {
			routes[event] = custom
		}
	}
	return &Router{routes: routes}, nil
}

func (r *Router) Handle(ctx context.Context, envelope types.Envelope) error {
	route, ok := r.routes[envelope.EventType]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnsupportedEventType, envelope.EventType)
	}
	return route.Handle(ctx, envelope)
}

// rowRoute decodes the payload as T, builds one row and writes it.
func rowRoute[T any](writer Writer, logg *logger.Logger, build func(types.Envelope, *T) (types.OrderEventRow, error)) Handler {
	return HandlerFunc(func(ctx context.Context, envelope types.Envelope) error {
		if len(envelope.Payload) == 0 {
			return fmt.Errorf("empty payload for %s", envelope.EventType)
		}
		var event T
		if err := envelope.Decode(&event); err != nil {
			return fmt.Errorf("decode %s payload: %w", envelope.EventType, err)
		}

		ctx = logg.WithFields(ctx, logger.Fields{
			"event_id":   envelope.EventID,
			"event_type": envelope.EventType,
		})
		row, err := build(envelope, &event)
		if err != nil {
			logg.Error(ctx, "failed to build order event row", err)
			return fmt.Errorf("build %s row: %w", envelope.EventType, err)
		}
		if err := writer.InsertOrderEvent(ctx, row); err != nil {
			logg.Error(ctx, "failed to insert order event row", err)
			return err
		}
		logg.Debug(ctx, "order event row written")
		return nil
	})
}
