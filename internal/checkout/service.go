package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/payloads"
)

const (
	outcomeCreated = "created"
	outcomeFailed  = "failed"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type cartStore interface {
	Snapshot(ctx context.Context, cartID string) (*cart.Snapshot, error)
	Clear(ctx context.Context, cartID string) error
}

type orderMaterializer interface {
	Materialize(ctx context.Context, confirmation orders.Confirmation) (*orders.MaterializeResult, error)
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type checkoutRecorder interface {
	IncCheckout(outcome string)
}

// Service starts hosted checkouts and resolves their outcome.
type Service interface {
	Start(ctx context.Context, cartID string, input StartInput) (*StartResult, error)
	Confirm(ctx context.Context, sessionID string) (*orders.MaterializeResult, error)
	Complete(ctx context.Context, session *Session, source string) (*orders.MaterializeResult, error)
	Expire(ctx context.Context, sessionID string) error
	Reconcile(ctx context.Context, olderThan time.Duration, limit int) (*ReconcileReport, error)
}

// StartResult is returned to the storefront so it can redirect the buyer.
type StartResult struct {
	SessionID   string `json:"session_id"`
	RedirectURL string `json:"redirect_url"`
}

// ReconcileReport summarizes one reconciliation pass.
type ReconcileReport struct {
	Checked      int
	Materialized int
	Expired      int
	Pending      int
}

// ServiceParams wires the checkout service collaborators.
type ServiceParams struct {
	Carts    cartStore
	Gateway  Gateway
	Repo     Repository
	Orders   orderMaterializer
	Tx       txRunner
	Outbox   outboxEmitter
	Metrics  checkoutRecorder
	Logger   *logger.Logger
	Currency string
	URLs     URLs
	Clock    func() time.Time
}

type service struct {
	carts    cartStore
	gateway  Gateway
	repo     Repository
	orders   orderMaterializer
	tx       txRunner
	outbox   outboxEmitter
	metrics  checkoutRecorder
	logg     *logger.Logger
	currency string
	urls     URLs
	clock    func() time.Time
}

// NewService builds the checkout service.
func NewService(params ServiceParams) (Service, error) {
	switch {
	case params.Carts == nil:
		return nil, fmt.Errorf("cart service required")
	case params.Gateway == nil:
		return nil, fmt.Errorf("payment gateway required")
	case params.Repo == nil:
		return nil, fmt.Errorf("checkout repository required")
	case params.Orders == nil:
		return nil, fmt.Errorf("order service required")
	case params.Tx == nil:
		return nil, fmt.Errorf("transaction runner required")
	case params.Outbox == nil:
		return nil, fmt.Errorf("outbox emitter required")
	}
	if strings.TrimSpace(params.URLs.BaseURL) == "" {
		return nil, fmt.Errorf("checkout base url required")
	}
	currency := strings.TrimSpace(params.Currency)
	if currency == "" {
		currency = "usd"
	}
	clock := params.Clock
	if clock == nil {
		clock = func() time.Time { return time.Now().UTC() }
	}
	return &service{
		carts:    params.Carts,
		gateway:  params.Gateway,
		repo:     params.Repo,
		orders:   params.Orders,
		tx:       params.Tx,
		outbox:   params.Outbox,
		metrics:  params.Metrics,
		logg:     params.Logger,
		currency: currency,
		urls:     params.URLs,
		clock:    clock,
	}, nil
}

// Start creates a hosted payment session for the cart. The cart is left
// untouched; it is cleared only once payment is confirmed.
func (s *service) Start(ctx context.Context, cartID string, input StartInput) (*StartResult, error) {
	input = input.normalized()
	if err := input.validate(); err != nil {
		return nil, err
	}
	if s.logg != nil {
		ctx = s.logg.WithCartID(ctx, cartID)
	}

	snapshot, err := s.carts.Snapshot(ctx, cartID)
	if err != nil {
		return nil, err
	}
	req, err := BuildRequest(snapshot, input, s.currency, s.urls)
	if err != nil {
		return nil, err
	}

	session, err := s.gateway.CreateSession(ctx, req)
	if err != nil {
		s.record(outcomeFailed)
		if s.logg != nil {
			s.logg.Error(ctx, "create payment session failed", err)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create payment session")
	}
	if session == nil || session.ID == "" || session.URL == "" {
		s.record(outcomeFailed)
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "payment session missing id or url")
	}

	row := &models.CheckoutSession{
		SessionID:     session.ID,
		CartID:        snapshot.CartID,
		CustomerEmail: input.Email,
		Subtotal:      snapshot.Totals.Subtotal,
		Shipping:      snapshot.Totals.Shipping,
		Tax:           snapshot.Totals.Tax,
		Total:         snapshot.Totals.Total,
		Status:        enums.CheckoutSessionOpen,
	}
	if err := s.repo.Create(ctx, row); err != nil && s.logg != nil {
		// The buyer can still pay; the webhook resolves the session without this row.
		s.logg.Error(s.logg.WithSessionID(ctx, session.ID), "record checkout session failed", err)
	}

	s.record(outcomeCreated)
	if s.logg != nil {
		s.logg.Info(s.logg.WithSessionID(ctx, session.ID), "checkout session created")
	}
	return &StartResult{SessionID: session.ID, RedirectURL: session.URL}, nil
}

// Confirm is the fallback path for buyers returning from the payment page
// before the webhook has been processed.
func (s *service) Confirm(ctx context.Context, sessionID string) (*orders.MaterializeResult, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "session_id is required")
	}
	session, err := s.gateway.GetSession(ctx, sessionID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "retrieve payment session")
	}
	return s.Complete(ctx, session, orders.SourceConfirmation)
}

// Complete materializes the order for a paid session and clears the cart it
// was built from. Only the confirmation that creates the order clears the
// cart; repeats leave anything added since payment in place.
func (s *service) Complete(ctx context.Context, session *Session, source string) (*orders.MaterializeResult, error) {
	if session == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment session required")
	}
	if !session.PaymentStatus.IsSettled() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment not completed")
	}
	result, err := s.orders.Materialize(ctx, session.Confirmation(source))
	if err != nil {
		return nil, err
	}
	if result.Created && result.CartID != "" {
		if err := s.carts.Clear(ctx, result.CartID); err != nil && s.logg != nil {
			logCtx := s.logg.WithCartID(s.logg.WithSessionID(ctx, session.ID), result.CartID)
			s.logg.Warn(s.logg.WithField(logCtx, "error", err.Error()), "clear cart after payment failed")
		}
	}
	return result, nil
}

// Expire marks an open session expired and emits a checkout_session_expired
// event. Sessions that are unknown or already resolved are left alone.
func (s *service) Expire(ctx context.Context, sessionID string) error {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "session id is required")
	}
	now := s.clock()
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		row, err := repo.FindBySessionID(ctx, sessionID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return err
		}
		changed, err := repo.MarkExpired(ctx, sessionID, now)
		if err != nil || !changed {
			return err
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventCheckoutSessionExpired,
			AggregateType: enums.AggregateCheckoutSession,
			AggregateID:   row.ID,
			Data: payloads.CheckoutSessionExpiredEvent{
				SessionID: sessionID,
				CartID:    row.CartID,
				Total:     row.Total.StringFixed(2),
				ExpiredAt: now,
			},
		})
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "expire checkout session")
	}
	return nil
}

// Reconcile resolves sessions left open longer than olderThan by asking the
// gateway for their state. Failures are collected per session.
func (s *service) Reconcile(ctx context.Context, olderThan time.Duration, limit int) (*ReconcileReport, error) {
	cutoff := s.clock().Add(-olderThan)
	rows, err := s.repo.ListOpenBefore(ctx, cutoff, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list open checkout sessions")
	}

	report := &ReconcileReport{}
	var errs error
	for _, row := range rows {
		report.Checked++
		session, err := s.gateway.GetSession(ctx, row.SessionID)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("session %s: %w", row.SessionID, err))
			continue
		}
		switch {
		case session.PaymentStatus.IsSettled():
			if _, err := s.Complete(ctx, session, orders.SourceReconcile); err != nil {
				errs = multierr.Append(errs, fmt.Errorf("session %s: %w", row.SessionID, err))
				continue
			}
			report.Materialized++
		case session.Status == enums.CheckoutSessionExpired:
			if err := s.Expire(ctx, row.SessionID); err != nil {
				errs = multierr.Append(errs, fmt.Errorf("session %s: %w", row.SessionID, err))
				continue
			}
			report.Expired++
		default:
			report.Pending++
		}
	}
	return report, errs
}

func (s *service) record(outcome string) {
	if s.metrics != nil {
		s.metrics.IncCheckout(outcome)
	}
}
