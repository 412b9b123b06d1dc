package orders

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// SessionCompleter links a checkout session to the order created for it.
type SessionCompleter interface {
	MarkCompleted(ctx context.Context, tx *gorm.DB, sessionID string, orderID uuid.UUID, at time.Time) error
}

type materializationRecorder interface {
	IncOrderMaterialized(source string, created bool)
}

// Service materializes and reads orders.
type Service interface {
	Materialize(ctx context.Context, confirmation Confirmation) (*MaterializeResult, error)
	Get(ctx context.Context, id uuid.UUID) (*Order, error)
	ListByEmail(ctx context.Context, email string, params pagination.Params) (*ListResult, error)
}

// ServiceParams wires the order service collaborators.
type ServiceParams struct {
	Repo     Repository
	Tx       txRunner
	Outbox   outboxEmitter
	Sessions SessionCompleter
	Policy   cart.PricingPolicy
	Metrics  materializationRecorder
	Logger   *logger.Logger
	Clock    func() time.Time
}

type service struct {
	repo     Repository
	tx       txRunner
	outbox   outboxEmitter
	sessions SessionCompleter
	policy   cart.PricingPolicy
	metrics  materializationRecorder
	logg     *logger.Logger
	clock    func() time.Time
}

// NewService builds an order service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	clock := params.Clock
	if clock == nil {
		clock = func() time.Time { return time.Now().UTC() }
	}
	return &service{
		repo:     params.Repo,
		tx:       params.Tx,
		outbox:   params.Outbox,
		sessions: params.Sessions,
		policy:   params.Policy,
		metrics:  params.Metrics,
		logg:     params.Logger,
		clock:    clock,
	}, nil
}

// Materialize creates the order for a settled payment session exactly once.
// Repeated or concurrent confirmations for the same session return the
// existing order with Created=false.
func (s *service) Materialize(ctx context.Context, confirmation Confirmation) (*MaterializeResult, error) {
	sessionID := strings.TrimSpace(confirmation.SessionID)
	if sessionID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment session id is required")
	}
	if !confirmation.PaymentStatus.IsSettled() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment not completed")
	}
	if s.logg != nil {
		ctx = s.logg.WithSessionID(ctx, sessionID)
	}

	meta, parseErr := ParseCheckoutMetadata(confirmation.Metadata)
	if parseErr != nil {
		s.warn(ctx, "payment metadata partially unreadable", parseErr)
	}

	row := s.buildOrder(sessionID, confirmation, meta)

	var (
		stored  *models.Order
		created bool
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		existing, err := repo.FindBySessionID(ctx, sessionID)
		if err == nil {
			stored = existing
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		if err := repo.Create(ctx, row); err != nil {
			return err
		}
		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   row.ID,
			Data: payloads.OrderCreatedEvent{
				OrderID:          row.ID,
				PaymentSessionID: sessionID,
				CustomerEmail:    row.CustomerEmail,
				ItemCount:        itemCount(row.Items),
				Subtotal:         row.Subtotal.StringFixed(2),
				Shipping:         row.Shipping.StringFixed(2),
				Tax:              row.Tax.StringFixed(2),
				Total:            row.Total.StringFixed(2),
				Source:           confirmation.Source,
				CreatedAt:        row.CreatedAt,
			},
		}); err != nil {
			return err
		}
		if s.sessions != nil {
			if err := s.sessions.MarkCompleted(ctx, tx, sessionID, row.ID, s.clock()); err != nil {
				return err
			}
		}
		stored = row
		created = true
		return nil
	})
	if err != nil {
		if !db.IsUniqueViolation(err, models.OrderPaymentSessionConstraint) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "materialize order")
		}
		// Lost the race to a concurrent confirmation for the same session.
		existing, findErr := s.repo.FindBySessionID(ctx, sessionID)
		if findErr != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, findErr, "load order after conflict")
		}
		stored = existing
		created = false
	}

	if s.metrics != nil {
		s.metrics.IncOrderMaterialized(confirmation.Source, created)
	}
	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"order_id": stored.ID.String(),
			"created":  created,
			"source":   confirmation.Source,
		})
		s.logg.Info(logCtx, "order materialized")
	}

	return &MaterializeResult{
		Order:   toOrder(*stored),
		Created: created,
		CartID:  meta.CartID,
	}, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*Order, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	row, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	order := toOrder(*row)
	return &order, nil
}

func (s *service) ListByEmail(ctx context.Context, email string, params pagination.Params) (*ListResult, error) {
	email = strings.TrimSpace(email)
	if _, err := mail.ParseAddress(email); err != nil || email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "a valid email is required")
	}
	query := listOrdersParams{Email: email, Limit: params.Limit}
	if params.Cursor != "" {
		cursor, err := pagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		query.Cursor = cursor
	}

	rows, next, err := s.repo.ListByEmail(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	result := &ListResult{Orders: make([]Order, 0, len(rows))}
	for _, row := range rows {
		result.Orders = append(result.Orders, toOrder(row))
	}
	if next != nil {
		result.NextCursor = pagination.EncodeCursor(*next)
	}
	return result, nil
}

func (s *service) buildOrder(sessionID string, confirmation Confirmation, meta CheckoutMetadata) *models.Order {
	totals := s.deriveTotals(meta, confirmation.AmountTotal)
	row := &models.Order{
		ID:               uuid.New(),
		CustomerEmail:    strings.TrimSpace(confirmation.CustomerEmail),
		CustomerName:     meta.CustomerName,
		ShippingAddress:  meta.ShippingAddress,
		Items:            meta.Items,
		Subtotal:         totals.Subtotal,
		Shipping:         totals.Shipping,
		Tax:              totals.Tax,
		Total:            totals.Total,
		Status:           enums.OrderStatusPending,
		PaymentSessionID: sessionID,
		CreatedAt:        s.clock(),
	}
	if intent := strings.TrimSpace(confirmation.PaymentIntentID); intent != "" {
		row.PaymentIntentID = &intent
	}
	return row
}

// deriveTotals prefers the amounts echoed in metadata, then recomputes from
// the item snapshot, then falls back to the gateway's charged total.
func (s *service) deriveTotals(meta CheckoutMetadata, amountTotal *decimal.Decimal) cart.Totals {
	if meta.HasTotals() {
		return cart.Totals{
			Subtotal: *meta.Subtotal,
			Shipping: *meta.Shipping,
			Tax:      *meta.Tax,
			Total:    *meta.Total,
		}
	}
	if len(meta.Items) > 0 {
		return s.policy.FromSubtotal(meta.Items.Subtotal())
	}
	total := decimal.Zero
	if amountTotal != nil {
		total = *amountTotal
	}
	return cart.Totals{
		Subtotal: total,
		Shipping: decimal.Zero,
		Tax:      decimal.Zero,
		Total:    total,
	}
}

func (s *service) warn(ctx context.Context, msg string, err error) {
	if s.logg == nil {
		return
	}
	s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), msg)
}

func itemCount(items []types.LineSnapshot) int {
	count := 0
	for _, item := range items {
		count += item.Quantity
	}
	return count
}
