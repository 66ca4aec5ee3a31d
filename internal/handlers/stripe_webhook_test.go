package handlers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84/webhook"

	"github.com/printhubapp/printhub/internal/cache"
	"github.com/printhubapp/printhub/internal/config"
	"github.com/printhubapp/printhub/internal/db"
	"github.com/printhubapp/printhub/internal/services"
)

const webhookTestSecret = "whsec_test_secret"

type recordingOrderStore struct {
	applyCalls int
	applyErr   error
}

func (s *recordingOrderStore) Create(context.Context, *db.Order, []*db.OrderItem) error {
	return errors.New("not implemented")
}

func (s *recordingOrderStore) GetByID(context.Context, uuid.UUID) (*db.Order, error) {
	return nil, db.ErrOrderNotFound
}

func (s *recordingOrderStore) GetByPaymentIntentID(context.Context, string) (*db.Order, error) {
	return nil, db.ErrOrderNotFound
}

func (s *recordingOrderStore) ListByUser(context.Context, uuid.UUID) ([]*db.Order, error) {
	return nil, nil
}

func (s *recordingOrderStore) UpdateStatus(context.Context, uuid.UUID, db.OrderStatus) error {
	return errors.New("not implemented")
}

func (s *recordingOrderStore) ApplyPaymentEvent(context.Context, string, db.PaymentStatus, db.OrderStatus, []db.PaymentStatus) error {
	s.applyCalls++
	return s.applyErr
}

func newWebhookHandlers(t *testing.T, store services.OrderStore) *Handlers {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cacheProvider, err := cache.NewMemoryProvider()
	if err != nil {
		t.Fatalf("failed to create cache provider: %v", err)
	}
	t.Cleanup(func() { _ = cacheProvider.Close() })

	reconciler := services.NewPaymentReconciler(store, nil, logger)
	return &Handlers{
		config:        &config.Config{StripeWebhookSecret: webhookTestSecret},
		cacheProvider: cacheProvider,
		stripeRouter:  NewStripeEventRouter(reconciler, logger),
		logger:        logger,
	}
}

func signedWebhookRequest(eventID, eventType string) *http.Request {
	payload := fmt.Appendf(nil,
		`{"id":%q,"object":"event","api_version":"2026-01-28.clover","type":%q,"data":{"object":{"id":"pi_123","object":"payment_intent"}}}`,
		eventID, eventType)

	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    webhookTestSecret,
		Timestamp: time.Now(),
		Scheme:    "v1",
	})

	req := httptest.NewRequest(http.MethodPost, "/webhooks/stripe", bytes.NewReader(payload))
	req.Header.Set("Stripe-Signature", signed.Header)
	return req
}

func TestStripeWebhook_OptionsPreflight(t *testing.T) {
	t.Parallel()

	h := newWebhookHandlers(t, &recordingOrderStore{})
	rec := httptest.NewRecorder()

	h.StripeWebhook(rec, httptest.NewRequest(http.MethodOptions, "/webhooks/stripe", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: got=%d want=%d", rec.Code, http.StatusOK)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("unexpected allow-origin header: %q", got)
	}
	if got := rec.Header().Get("Access-Control-Allow-Methods"); !strings.Contains(got, "POST") {
		t.Errorf("allow-methods header missing POST: %q", got)
	}
}

func TestStripeWebhook_WrongMethod(t *testing.T) {
	t.Parallel()

	h := newWebhookHandlers(t, &recordingOrderStore{})
	rec := httptest.NewRecorder()

	h.StripeWebhook(rec, httptest.NewRequest(http.MethodGet, "/webhooks/stripe", nil))

	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("unexpected status: got=%d want=%d", rec.Code, http.StatusMethodNotAllowed)
	}
	if !strings.Contains(rec.Body.String(), "Method not allowed") {
		t.Errorf("unexpected body: %q", rec.Body.String())
	}
}

func TestStripeWebhook_MissingConfiguration(t *testing.T) {
	t.Parallel()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := &Handlers{
		config: &config.Config{},
		logger: logger,
	}
	rec := httptest.NewRecorder()

	h.StripeWebhook(rec, httptest.NewRequest(http.MethodPost, "/webhooks/stripe", bytes.NewBufferString(`{}`)))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("unexpected status: got=%d want=%d", rec.Code, http.StatusInternalServerError)
	}
	if !strings.Contains(rec.Body.String(), "Service configuration error") {
		t.Errorf("unexpected body: %q", rec.Body.String())
	}
}

func TestStripeWebhook_InvalidSignature(t *testing.T) {
	t.Parallel()

	store := &recordingOrderStore{}
	h := newWebhookHandlers(t, store)

	req := httptest.NewRequest(http.MethodPost, "/webhooks/stripe", bytes.NewBufferString(`{}`))
	req.Header.Set("Stripe-Signature", "t=1,v1=deadbeef")
	rec := httptest.NewRecorder()

	h.StripeWebhook(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unexpected status: got=%d want=%d", rec.Code, http.StatusBadRequest)
	}
	if store.applyCalls != 0 {
		t.Errorf("store must not be touched on signature failure")
	}
}

func TestStripeWebhook_ProcessesPaymentIntentSucceeded(t *testing.T) {
	t.Parallel()

	store := &recordingOrderStore{}
	h := newWebhookHandlers(t, store)
	rec := httptest.NewRecorder()

	h.StripeWebhook(rec, signedWebhookRequest("evt_1", "payment_intent.succeeded"))

	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: got=%d want=%d body=%s", rec.Code, http.StatusOK, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "Webhook processed successfully") {
		t.Errorf("unexpected body: %q", rec.Body.String())
	}
	if store.applyCalls != 1 {
		t.Errorf("expected one apply call, got %d", store.applyCalls)
	}
}

func TestStripeWebhook_DuplicateEventIsNotReprocessed(t *testing.T) {
	t.Parallel()

	store := &recordingOrderStore{}
	h := newWebhookHandlers(t, store)

	for range 2 {
		rec := httptest.NewRecorder()
		h.StripeWebhook(rec, signedWebhookRequest("evt_dup", "payment_intent.succeeded"))
		if rec.Code != http.StatusOK {
			t.Fatalf("unexpected status: got=%d", rec.Code)
		}
	}

	if store.applyCalls != 1 {
		t.Errorf("expected duplicate to be deduplicated, got %d apply calls", store.applyCalls)
	}
}

func TestStripeWebhook_UnknownIntentStillSucceeds(t *testing.T) {
	t.Parallel()

	store := &recordingOrderStore{applyErr: db.ErrOrderNotFound}
	h := newWebhookHandlers(t, store)
	rec := httptest.NewRecorder()

	h.StripeWebhook(rec, signedWebhookRequest("evt_ghost", "payment_intent.succeeded"))

	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: got=%d want=%d", rec.Code, http.StatusOK)
	}
}

func TestStripeWebhook_UnhandledEventTypeIsAccepted(t *testing.T) {
	t.Parallel()

	store := &recordingOrderStore{}
	h := newWebhookHandlers(t, store)
	rec := httptest.NewRecorder()

	h.StripeWebhook(rec, signedWebhookRequest("evt_other", "charge.refunded"))

	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: got=%d want=%d", rec.Code, http.StatusOK)
	}
	if store.applyCalls != 0 {
		t.Errorf("unhandled event must not touch the store")
	}
}

func TestStripeWebhook_StoreFailureYields500(t *testing.T) {
	t.Parallel()

	store := &recordingOrderStore{applyErr: errors.New("connection refused")}
	h := newWebhookHandlers(t, store)
	rec := httptest.NewRecorder()

	h.StripeWebhook(rec, signedWebhookRequest("evt_fail", "payment_intent.canceled"))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("unexpected status: got=%d want=%d", rec.Code, http.StatusInternalServerError)
	}

	// The failed event must not be marked processed, so a retry reaches the store.
	rec = httptest.NewRecorder()
	h.StripeWebhook(rec, signedWebhookRequest("evt_fail", "payment_intent.canceled"))
	if store.applyCalls != 2 {
		t.Errorf("expected retry to reach the store, got %d apply calls", store.applyCalls)
	}
}
