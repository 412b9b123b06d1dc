package orders

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

var fixedNow = time.Date(2026, 3, 14, 15, 9, 26, 0, time.UTC)

type completedSession struct {
	sessionID string
	orderID   uuid.UUID
}

type recordingSessions struct {
	calls []completedSession
	err   error
}

func (r *recordingSessions) MarkCompleted(_ context.Context, tx *gorm.DB, sessionID string, orderID uuid.UUID, _ time.Time) error {
	if tx == nil {
		return errors.New("expected transaction")
	}
	if r.err != nil {
		return r.err
	}
	r.calls = append(r.calls, completedSession{sessionID: sessionID, orderID: orderID})
	return nil
}

type materializeCount struct {
	created   int
	duplicate int
}

func (m *materializeCount) IncOrderMaterialized(_ string, created bool) {
	if created {
		m.created++
		return
	}
	m.duplicate++
}

// hiddenRowsRepo makes transactional lookups miss so the insert hits the
// unique index, as when two confirmations race.
type hiddenRowsRepo struct {
	Repository
	hide bool
}

func (r *hiddenRowsRepo) WithTx(tx *gorm.DB) Repository {
	return &hiddenRowsRepo{Repository: r.Repository.WithTx(tx), hide: true}
}

func (r *hiddenRowsRepo) FindBySessionID(ctx context.Context, sessionID string) (*models.Order, error) {
	if r.hide {
		return nil, gorm.ErrRecordNotFound
	}
	return r.Repository.FindBySessionID(ctx, sessionID)
}

type orderFixture struct {
	conn     *gorm.DB
	svc      Service
	sessions *recordingSessions
	metrics  *materializeCount
}

func setupOrdersTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:orders_%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&models.Order{}, &models.OutboxEvent{}))
	return conn
}

func newOrderFixture(t *testing.T, wrap func(Repository) Repository) *orderFixture {
	t.Helper()
	conn := setupOrdersTestDB(t)
	repo := NewRepository(conn)
	if wrap != nil {
		repo = wrap(repo)
	}
	fx := &orderFixture{
		conn:     conn,
		sessions: &recordingSessions{},
		metrics:  &materializeCount{},
	}
	svc, err := NewService(ServiceParams{
		Repo:     repo,
		Tx:       db.Wrap(conn),
		Outbox:   outbox.NewService(outbox.NewRepository(conn), nil),
		Sessions: fx.sessions,
		Policy:   cart.DefaultPricingPolicy(),
		Metrics:  fx.metrics,
		Clock:    func() time.Time { return fixedNow },
	})
	require.NoError(t, err)
	fx.svc = svc
	return fx
}

func (fx *orderFixture) count(t *testing.T, model any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, fx.conn.Model(model).Count(&n).Error)
	return n
}

func paidConfirmation(t *testing.T, sessionID string, meta CheckoutMetadata) Confirmation {
	t.Helper()
	raw, err := meta.Encode()
	require.NoError(t, err)
	return Confirmation{
		SessionID:       sessionID,
		PaymentIntentID: "pi_123",
		PaymentStatus:   enums.PaymentStatusPaid,
		CustomerEmail:   "ada@example.com",
		AmountTotal:     amount("107.20"),
		Metadata:        raw,
		Source:          SourceWebhook,
	}
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	_, err := NewService(ServiceParams{})
	require.Error(t, err)
}

func TestMaterializeCreatesOrderOnce(t *testing.T) {
	fx := newOrderFixture(t, nil)
	ctx := context.Background()
	confirmation := paidConfirmation(t, "cs_test_1", sampleMetadata(2))

	first, err := fx.svc.Materialize(ctx, confirmation)
	require.NoError(t, err)
	assert.True(t, first.Created)
	assert.Equal(t, sampleMetadata(0).CartID, first.CartID)
	assert.Equal(t, "cs_test_1", first.Order.PaymentSessionID)
	assert.Equal(t, enums.OrderStatusPending, first.Order.Status)
	assert.Equal(t, "90.00", first.Order.Subtotal)
	assert.Equal(t, "10.00", first.Order.Shipping)
	assert.Equal(t, "7.20", first.Order.Tax)
	assert.Equal(t, "107.20", first.Order.Total)
	assert.Len(t, first.Order.Items, 2)
	assert.Equal(t, "Austin", first.Order.ShippingAddress.City)

	confirmation.Source = SourceConfirmation
	second, err := fx.svc.Materialize(ctx, confirmation)
	require.NoError(t, err)
	assert.False(t, second.Created)
	assert.Equal(t, first.Order.ID, second.Order.ID)

	assert.EqualValues(t, 1, fx.count(t, &models.Order{}))
	assert.EqualValues(t, 1, fx.count(t, &models.OutboxEvent{}))
	require.Len(t, fx.sessions.calls, 1)
	assert.Equal(t, first.Order.ID, fx.sessions.calls[0].orderID)
	assert.Equal(t, 1, fx.metrics.created)
	assert.Equal(t, 1, fx.metrics.duplicate)

	var stored models.Order
	require.NoError(t, fx.conn.First(&stored, "id = ?", first.Order.ID).Error)
	require.NotNil(t, stored.PaymentIntentID)
	assert.Equal(t, "pi_123", *stored.PaymentIntentID)
}

func TestMaterializeRejectsUnpaidSession(t *testing.T) {
	fx := newOrderFixture(t, nil)
	confirmation := paidConfirmation(t, "cs_unpaid", sampleMetadata(1))
	confirmation.PaymentStatus = enums.PaymentStatusUnpaid

	_, err := fx.svc.Materialize(context.Background(), confirmation)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	assert.Zero(t, fx.count(t, &models.Order{}))
	assert.Zero(t, fx.count(t, &models.OutboxEvent{}))
}

func TestMaterializeRequiresSessionID(t *testing.T) {
	fx := newOrderFixture(t, nil)
	_, err := fx.svc.Materialize(context.Background(), Confirmation{PaymentStatus: enums.PaymentStatusPaid})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestMaterializeTotalsFallbacks(t *testing.T) {
	tests := []struct {
		name     string
		metadata func(t *testing.T) map[string]string
		amount   *decimal.Decimal
		want     [4]string
	}{
		{
			name: "recomputed from items",
			metadata: func(t *testing.T) map[string]string {
				meta := sampleMetadata(1)
				meta.Subtotal, meta.Shipping, meta.Tax, meta.Total = nil, nil, nil, nil
				raw, err := meta.Encode()
				require.NoError(t, err)
				return raw
			},
			want: [4]string{"90.00", "10.00", "7.20", "107.20"},
		},
		{
			name: "gateway amount when metadata unreadable",
			metadata: func(t *testing.T) map[string]string {
				return map[string]string{MetaItemParts: "x"}
			},
			amount: amount("55.50"),
			want:   [4]string{"55.50", "0.00", "0.00", "55.50"},
		},
		{
			name: "zero without metadata or amount",
			metadata: func(t *testing.T) map[string]string {
				return nil
			},
			want: [4]string{"0.00", "0.00", "0.00", "0.00"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fx := newOrderFixture(t, nil)
			result, err := fx.svc.Materialize(context.Background(), Confirmation{
				SessionID:     "cs_" + uuid.NewString(),
				PaymentStatus: enums.PaymentStatusPaid,
				CustomerEmail: "ada@example.com",
				AmountTotal:   tt.amount,
				Metadata:      tt.metadata(t),
				Source:        SourceReconcile,
			})
			require.NoError(t, err)
			got := [4]string{result.Order.Subtotal, result.Order.Shipping, result.Order.Tax, result.Order.Total}
			assert.Equal(t, tt.want, got)
			assert.NotNil(t, result.Order.Items)
		})
	}
}

func TestMaterializeRollsBackWhenSessionUpdateFails(t *testing.T) {
	fx := newOrderFixture(t, nil)
	fx.sessions.err = errors.New("session row locked")

	_, err := fx.svc.Materialize(context.Background(), paidConfirmation(t, "cs_rollback", sampleMetadata(1)))
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
	assert.Zero(t, fx.count(t, &models.Order{}))
	assert.Zero(t, fx.count(t, &models.OutboxEvent{}))
}

func TestMaterializeResolvesLostRace(t *testing.T) {
	fx := newOrderFixture(t, func(repo Repository) Repository {
		return &hiddenRowsRepo{Repository: repo}
	})
	ctx := context.Background()

	winner := models.Order{
		ID:               uuid.New(),
		CustomerEmail:    "ada@example.com",
		CustomerName:     "Ada Lovelace",
		Subtotal:         decimal.NewFromInt(90),
		Shipping:         decimal.NewFromInt(10),
		Tax:              decimal.RequireFromString("7.20"),
		Total:            decimal.RequireFromString("107.20"),
		Status:           enums.OrderStatusPending,
		PaymentSessionID: "cs_race",
		CreatedAt:        fixedNow,
	}
	require.NoError(t, NewRepository(fx.conn).Create(ctx, &winner))

	result, err := fx.svc.Materialize(ctx, paidConfirmation(t, "cs_race", sampleMetadata(1)))
	require.NoError(t, err)
	assert.False(t, result.Created)
	assert.Equal(t, winner.ID, result.Order.ID)
	assert.EqualValues(t, 1, fx.count(t, &models.Order{}))
	assert.Zero(t, fx.count(t, &models.OutboxEvent{}))
	assert.Equal(t, 1, fx.metrics.duplicate)
}

func TestGetOrder(t *testing.T) {
	fx := newOrderFixture(t, nil)
	ctx := context.Background()

	created, err := fx.svc.Materialize(ctx, paidConfirmation(t, "cs_get", sampleMetadata(1)))
	require.NoError(t, err)

	order, err := fx.svc.Get(ctx, created.Order.ID)
	require.NoError(t, err)
	assert.Equal(t, "cs_get", order.PaymentSessionID)

	_, err = fx.svc.Get(ctx, uuid.New())
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	_, err = fx.svc.Get(ctx, uuid.Nil)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestListByEmailPaginates(t *testing.T) {
	fx := newOrderFixture(t, nil)
	ctx := context.Background()
	repo := NewRepository(fx.conn)

	for i := 0; i < 5; i++ {
		row := models.Order{
			ID:               uuid.New(),
			CustomerEmail:    "Ada@Example.com",
			Subtotal:         decimal.NewFromInt(int64(10 * (i + 1))),
			Status:           enums.OrderStatusPending,
			PaymentSessionID: fmt.Sprintf("cs_list_%d", i),
			CreatedAt:        fixedNow.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, repo.Create(ctx, &row))
	}
	other := models.Order{
		ID:               uuid.New(),
		CustomerEmail:    "grace@example.com",
		Status:           enums.OrderStatusPending,
		PaymentSessionID: "cs_other",
		CreatedAt:        fixedNow,
	}
	require.NoError(t, repo.Create(ctx, &other))

	first, err := fx.svc.ListByEmail(ctx, "ada@example.com", pagination.Params{Limit: 2})
	require.NoError(t, err)
	require.Len(t, first.Orders, 2)
	assert.Equal(t, "cs_list_4", first.Orders[0].PaymentSessionID)
	assert.Equal(t, "cs_list_3", first.Orders[1].PaymentSessionID)
	require.NotEmpty(t, first.NextCursor)

	second, err := fx.svc.ListByEmail(ctx, "ada@example.com", pagination.Params{Limit: 2, Cursor: first.NextCursor})
	require.NoError(t, err)
	require.Len(t, second.Orders, 2)
	assert.Equal(t, "cs_list_2", second.Orders[0].PaymentSessionID)
	assert.Equal(t, "cs_list_1", second.Orders[1].PaymentSessionID)

	third, err := fx.svc.ListByEmail(ctx, "ada@example.com", pagination.Params{Limit: 2, Cursor: second.NextCursor})
	require.NoError(t, err)
	require.Len(t, third.Orders, 1)
	assert.Equal(t, "cs_list_0", third.Orders[0].PaymentSessionID)
	assert.Empty(t, third.NextCursor)
}

func TestListByEmailValidation(t *testing.T) {
	fx := newOrderFixture(t, nil)
	ctx := context.Background()

	_, err := fx.svc.ListByEmail(ctx, "not-an-email", pagination.Params{})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = fx.svc.ListByEmail(ctx, "ada@example.com", pagination.Params{Cursor: "%%%"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}
