package checkout

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
)

var fixedNow = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

type stubCarts struct {
	snapshot *cart.Snapshot
	err      error
	clearErr error
	cleared  []string
}

func (s *stubCarts) Snapshot(_ context.Context, cartID string) (*cart.Snapshot, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.snapshot == nil {
		return &cart.Snapshot{CartID: cartID}, nil
	}
	return s.snapshot, nil
}

func (s *stubCarts) Clear(_ context.Context, cartID string) error {
	s.cleared = append(s.cleared, cartID)
	return s.clearErr
}

type stubGateway struct {
	created   []Request
	createErr error
	sessions  map[string]*Session
	getErr    error
}

func (g *stubGateway) CreateSession(_ context.Context, req Request) (*Session, error) {
	if g.createErr != nil {
		return nil, g.createErr
	}
	g.created = append(g.created, req)
	id := fmt.Sprintf("cs_test_%d", len(g.created))
	return &Session{ID: id, URL: "https://pay.example.com/" + id, Status: enums.CheckoutSessionOpen}, nil
}

func (g *stubGateway) GetSession(_ context.Context, sessionID string) (*Session, error) {
	if g.getErr != nil {
		return nil, g.getErr
	}
	session, ok := g.sessions[sessionID]
	if !ok {
		return nil, fmt.Errorf("no such session %s", sessionID)
	}
	return session, nil
}

type stubOrders struct {
	calls []orders.Confirmation
	err   error
}

func (s *stubOrders) Materialize(_ context.Context, confirmation orders.Confirmation) (*orders.MaterializeResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.calls = append(s.calls, confirmation)
	meta, _ := orders.ParseCheckoutMetadata(confirmation.Metadata)
	return &orders.MaterializeResult{
		Order:   orders.Order{ID: uuid.New(), PaymentSessionID: confirmation.SessionID},
		Created: len(s.calls) == 1,
		CartID:  meta.CartID,
	}, nil
}

type outcomeCounter map[string]int

func (c outcomeCounter) IncCheckout(outcome string) {
	c[outcome]++
}

type checkoutFixture struct {
	conn    *gorm.DB
	carts   *stubCarts
	gateway *stubGateway
	orders  *stubOrders
	metrics outcomeCounter
	repo    Repository
	svc     Service
}

func newCheckoutFixture(t *testing.T) *checkoutFixture {
	t.Helper()
	dsn := fmt.Sprintf("file:checkout_%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&models.CheckoutSession{}, &models.OutboxEvent{}))

	fx := &checkoutFixture{
		conn:    conn,
		carts:   &stubCarts{snapshot: testSnapshot(shirt(2))},
		gateway: &stubGateway{sessions: map[string]*Session{}},
		orders:  &stubOrders{},
		metrics: outcomeCounter{},
		repo:    NewRepository(conn),
	}
	svc, err := NewService(ServiceParams{
		Carts:    fx.carts,
		Gateway:  fx.gateway,
		Repo:     fx.repo,
		Orders:   fx.orders,
		Tx:       db.Wrap(conn),
		Outbox:   outbox.NewService(outbox.NewRepository(conn), nil),
		Metrics:  fx.metrics,
		Currency: "usd",
		URLs:     testURLs,
		Clock:    func() time.Time { return fixedNow },
	})
	require.NoError(t, err)
	fx.svc = svc
	return fx
}

func (fx *checkoutFixture) seedSession(t *testing.T, sessionID string, createdAt time.Time) {
	t.Helper()
	require.NoError(t, fx.repo.Create(context.Background(), &models.CheckoutSession{
		SessionID:     sessionID,
		CartID:        testCartID,
		CustomerEmail: "ada@example.com",
		Total:         dec("96.40"),
		CreatedAt:     createdAt,
	}))
}

func paidSession(t *testing.T, sessionID string) *Session {
	t.Helper()
	req, err := BuildRequest(testSnapshot(shirt(2)), testBuyer(), "usd", testURLs)
	require.NoError(t, err)
	total := dec("96.40")
	return &Session{
		ID:              sessionID,
		Status:          enums.CheckoutSessionCompleted,
		PaymentStatus:   enums.PaymentStatusPaid,
		PaymentIntentID: "pi_1",
		CustomerEmail:   "ada@example.com",
		AmountTotal:     &total,
		Metadata:        req.Metadata,
	}
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	_, err := NewService(ServiceParams{})
	require.Error(t, err)
}

func TestStartCreatesSessionAndRecordsIt(t *testing.T) {
	fx := newCheckoutFixture(t)
	ctx := context.Background()

	result, err := fx.svc.Start(ctx, testCartID, testBuyer())
	require.NoError(t, err)
	assert.Equal(t, "cs_test_1", result.SessionID)
	assert.Equal(t, "https://pay.example.com/cs_test_1", result.RedirectURL)
	require.Len(t, fx.gateway.created, 1)
	assert.Equal(t, "ada@example.com", fx.gateway.created[0].CustomerEmail)
	assert.Empty(t, fx.carts.cleared)
	assert.Equal(t, 1, fx.metrics[outcomeCreated])

	row, err := fx.repo.FindBySessionID(ctx, "cs_test_1")
	require.NoError(t, err)
	assert.Equal(t, enums.CheckoutSessionOpen, row.Status)
	assert.Equal(t, testCartID, row.CartID)
	assert.Equal(t, "96.40", row.Total.StringFixed(2))
}

func TestStartValidation(t *testing.T) {
	fx := newCheckoutFixture(t)
	buyer := testBuyer()
	buyer.Email = ""

	_, err := fx.svc.Start(context.Background(), testCartID, buyer)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing required fields")
	assert.Empty(t, fx.gateway.created)
}

func TestStartRejectsEmptyCart(t *testing.T) {
	fx := newCheckoutFixture(t)
	fx.carts.snapshot = testSnapshot()

	_, err := fx.svc.Start(context.Background(), testCartID, testBuyer())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cart is empty")
	assert.Empty(t, fx.gateway.created)
}

func TestStartGatewayFailureLeavesCartUntouched(t *testing.T) {
	fx := newCheckoutFixture(t)
	fx.gateway.createErr = errors.New("stripe unavailable")

	_, err := fx.svc.Start(context.Background(), testCartID, testBuyer())
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
	assert.Empty(t, fx.carts.cleared)
	assert.Equal(t, 1, fx.metrics[outcomeFailed])

	var count int64
	require.NoError(t, fx.conn.Model(&models.CheckoutSession{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestConfirmMaterializesAndClearsCart(t *testing.T) {
	fx := newCheckoutFixture(t)
	fx.gateway.sessions["cs_paid"] = paidSession(t, "cs_paid")

	result, err := fx.svc.Confirm(context.Background(), "cs_paid")
	require.NoError(t, err)
	assert.True(t, result.Created)
	require.Len(t, fx.orders.calls, 1)
	assert.Equal(t, orders.SourceConfirmation, fx.orders.calls[0].Source)
	assert.Equal(t, "pi_1", fx.orders.calls[0].PaymentIntentID)
	assert.Equal(t, []string{testCartID}, fx.carts.cleared)
}

func TestRepeatedConfirmationKeepsCart(t *testing.T) {
	fx := newCheckoutFixture(t)
	ctx := context.Background()
	fx.gateway.sessions["cs_paid"] = paidSession(t, "cs_paid")

	first, err := fx.svc.Confirm(ctx, "cs_paid")
	require.NoError(t, err)
	assert.True(t, first.Created)

	second, err := fx.svc.Confirm(ctx, "cs_paid")
	require.NoError(t, err)
	assert.False(t, second.Created)

	_, err = fx.svc.Complete(ctx, paidSession(t, "cs_paid"), orders.SourceWebhook)
	require.NoError(t, err)

	assert.Len(t, fx.orders.calls, 3)
	assert.Equal(t, []string{testCartID}, fx.carts.cleared)
}

func TestConfirmRejectsUnpaidSession(t *testing.T) {
	fx := newCheckoutFixture(t)
	session := paidSession(t, "cs_unpaid")
	session.PaymentStatus = enums.PaymentStatusUnpaid
	fx.gateway.sessions["cs_unpaid"] = session

	_, err := fx.svc.Confirm(context.Background(), "cs_unpaid")
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	assert.Contains(t, err.Error(), "payment not completed")
	assert.Empty(t, fx.orders.calls)
	assert.Empty(t, fx.carts.cleared)
}

func TestConfirmGatewayFailure(t *testing.T) {
	fx := newCheckoutFixture(t)
	fx.gateway.getErr = errors.New("timeout")

	_, err := fx.svc.Confirm(context.Background(), "cs_any")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))

	_, err = fx.svc.Confirm(context.Background(), " ")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestCompleteIgnoresCartClearFailure(t *testing.T) {
	fx := newCheckoutFixture(t)
	fx.carts.clearErr = errors.New("redis down")

	result, err := fx.svc.Complete(context.Background(), paidSession(t, "cs_clear"), orders.SourceWebhook)
	require.NoError(t, err)
	assert.NotNil(t, result)
	assert.Equal(t, []string{testCartID}, fx.carts.cleared)
}

func TestExpireMarksOpenSessionOnce(t *testing.T) {
	fx := newCheckoutFixture(t)
	ctx := context.Background()
	fx.seedSession(t, "cs_expire", fixedNow.Add(-time.Hour))

	require.NoError(t, fx.svc.Expire(ctx, "cs_expire"))
	require.NoError(t, fx.svc.Expire(ctx, "cs_expire"))
	require.NoError(t, fx.svc.Expire(ctx, "cs_unknown"))

	row, err := fx.repo.FindBySessionID(ctx, "cs_expire")
	require.NoError(t, err)
	assert.Equal(t, enums.CheckoutSessionExpired, row.Status)
	require.NotNil(t, row.ResolvedAt)

	var events []models.OutboxEvent
	require.NoError(t, fx.conn.Find(&events).Error)
	require.Len(t, events, 1)
	assert.Equal(t, enums.EventCheckoutSessionExpired, events[0].EventType)
	assert.Equal(t, row.ID, events[0].AggregateID)
}

func TestReconcileResolvesStaleSessions(t *testing.T) {
	fx := newCheckoutFixture(t)
	ctx := context.Background()
	old := fixedNow.Add(-time.Hour)

	fx.seedSession(t, "cs_paid", old)
	fx.seedSession(t, "cs_expired", old.Add(time.Second))
	fx.seedSession(t, "cs_open", old.Add(2*time.Second))
	fx.seedSession(t, "cs_broken", old.Add(3*time.Second))
	fx.seedSession(t, "cs_recent", fixedNow.Add(-time.Minute))

	fx.gateway.sessions["cs_paid"] = paidSession(t, "cs_paid")
	fx.gateway.sessions["cs_expired"] = &Session{ID: "cs_expired", Status: enums.CheckoutSessionExpired, PaymentStatus: enums.PaymentStatusUnpaid}
	fx.gateway.sessions["cs_open"] = &Session{ID: "cs_open", Status: enums.CheckoutSessionOpen, PaymentStatus: enums.PaymentStatusUnpaid}

	report, err := fx.svc.Reconcile(ctx, 15*time.Minute, 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cs_broken")
	assert.Equal(t, &ReconcileReport{Checked: 4, Materialized: 1, Expired: 1, Pending: 1}, report)

	require.Len(t, fx.orders.calls, 1)
	assert.Equal(t, orders.SourceReconcile, fx.orders.calls[0].Source)

	expired, err := fx.repo.FindBySessionID(ctx, "cs_expired")
	require.NoError(t, err)
	assert.Equal(t, enums.CheckoutSessionExpired, expired.Status)
}
