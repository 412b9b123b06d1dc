package webhooks

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/webhook"

	stripewebhook "github.com/angelmondragon/storefront-backend/internal/webhooks/stripe"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

const testSecret = "whsec_test"

func TestStripeWebhookHandlesEventOnce(t *testing.T) {
	h := newWebhookHarness(t)
	payload, signature := completedSessionEvent(t)

	first := h.post(payload, signature)
	require.Equal(t, http.StatusOK, first.Code, first.Body.String())
	assert.JSONEq(t, `{"data":{"received":true}}`, first.Body.String())

	replay := h.post(payload, signature)
	require.Equal(t, http.StatusOK, replay.Code, replay.Body.String())
	assert.Equal(t, 1, h.service.calls, "redelivered event id must not be handled twice")
}

func TestStripeWebhookRejectsBeforeHandling(t *testing.T) {
	payload, _ := completedSessionEvent(t)
	oversized := bytes.Repeat([]byte("a"), maxWebhookBytes+1)

	cases := []struct {
		name      string
		body      []byte
		signature string
		want      int
	}{
		{name: "bad signature", body: payload, signature: "t=1,v1=invalid", want: http.StatusUnauthorized},
		{name: "no signature", body: payload, want: http.StatusUnauthorized},
		{name: "signed with another secret", body: payload, signature: sign(payload, "whsec_other"), want: http.StatusUnauthorized},
		{name: "oversized body", body: oversized, signature: sign(oversized, testSecret), want: http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newWebhookHarness(t)
			rec := h.post(tc.body, tc.signature)
			assert.Equal(t, tc.want, rec.Code, rec.Body.String())
			assert.Zero(t, h.service.calls)
			assert.Empty(t, h.store.data, "rejected events must not be marked")
		})
	}
}

func TestStripeWebhookFailureReleasesMark(t *testing.T) {
	h := newWebhookHarness(t)
	h.service.errs = []error{pkgerrors.New(pkgerrors.CodeDependency, "db down")}
	payload, signature := completedSessionEvent(t)

	assert.Equal(t, http.StatusBadGateway, h.post(payload, signature).Code)
	assert.Empty(t, h.store.data)
	assert.Equal(t, http.StatusOK, h.post(payload, signature).Code)
	assert.Equal(t, 2, h.service.calls)
}

func TestStripeWebhookUnconfigured(t *testing.T) {
	handler := StripeWebhook(&fakeStripeWebhookService{}, nil, nil, nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/stripe", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

type webhookHarness struct {
	handler http.Handler
	service *fakeStripeWebhookService
	store   *markStore
}

func newWebhookHarness(t *testing.T) *webhookHarness {
	t.Helper()
	store := &markStore{data: map[string]string{}}
	guard, err := stripewebhook.NewEventGuard(store, time.Minute)
	require.NoError(t, err)
	service := &fakeStripeWebhookService{}
	return &webhookHarness{
		handler: StripeWebhook(service, signingSecret(testSecret), guard, nil),
		service: service,
		store:   store,
	}
}

func (h *webhookHarness) post(body []byte, signature string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/stripe", bytes.NewReader(body))
	if signature != "" {
		req.Header.Set(stripeSignatureHeader, signature)
	}
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	return rec
}

func completedSessionEvent(t *testing.T) ([]byte, string) {
	t.Helper()
	session, err := json.Marshal(stripe.CheckoutSession{
		ID:            "cs_test_" + uuid.NewString(),
		Status:        stripe.CheckoutSessionStatusComplete,
		PaymentStatus: stripe.CheckoutSessionPaymentStatusPaid,
		AmountTotal:   5320,
		Metadata:      map[string]string{"cart_id": uuid.NewString()},
	})
	require.NoError(t, err)
	payload, err := json.Marshal(stripe.Event{
		ID:         "evt_" + uuid.NewString(),
		Type:       stripe.EventTypeCheckoutSessionCompleted,
		Object:     "event",
		APIVersion: stripe.APIVersion,
		Data:       &stripe.EventData{Raw: session},
	})
	require.NoError(t, err)
	return payload, sign(payload, testSecret)
}

func sign(payload []byte, secret string) string {
	return webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    secret,
		Timestamp: time.Now(),
	}).Header
}

type signingSecret string

func (s signingSecret) SigningSecret() string { return string(s) }

type fakeStripeWebhookService struct {
	calls int
	errs  []error
}

func (f *fakeStripeWebhookService) HandleEvent(context.Context, *stripe.Event) error {
	f.calls++
	if len(f.errs) == 0 {
		return nil
	}
	err := f.errs[0]
	f.errs = f.errs[1:]
	return err
}

// markStore is an in-memory redis.IdempotencyStore.
type markStore struct {
	mu   sync.Mutex
	data map[string]string
}

func (s *markStore) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data[key], nil
}

func (s *markStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data[key]; ok {
		return false, nil
	}
	s.data[key], _ = value.(string)
	return true, nil
}

func (s *markStore) IdempotencyKey(scope, id string) string {
	return "sf:idempotency:" + scope + ":" + id
}

func (s *markStore) Del(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range keys {
		delete(s.data, key)
	}
	return nil
}
