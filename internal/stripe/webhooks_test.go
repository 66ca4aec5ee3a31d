package stripe

import (
	"bytes"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stripe/stripe-go/v84/webhook"
)

func TestReadWebhookEvent_MissingSignature(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest("POST", "/webhooks/stripe", bytes.NewBufferString(`{}`))
	_, err := ReadWebhookEvent(req, "whsec_test")
	if err == nil {
		t.Fatal("expected error for missing signature")
	}
}

func TestReadWebhookEvent_BadSignature(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest("POST", "/webhooks/stripe", bytes.NewBufferString(`{}`))
	req.Header.Set("Stripe-Signature", "t=1,v1=deadbeef")
	_, err := ReadWebhookEvent(req, "whsec_test")
	if err == nil {
		t.Fatal("expected error for invalid signature")
	}
}

func TestReadWebhookEvent_Valid(t *testing.T) {
	t.Parallel()

	secret := "whsec_test_secret"
	payload := []byte(`{"id":"evt_test","object":"event","api_version":"2026-01-28.clover","type":"payment_intent.succeeded","data":{"object":{"id":"pi_123","object":"payment_intent"}}}`)

	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    secret,
		Timestamp: time.Now(),
		Scheme:    "v1",
	})

	req := httptest.NewRequest("POST", "/webhooks/stripe", bytes.NewReader(payload))
	req.Header.Set("Stripe-Signature", signed.Header)

	event, err := ReadWebhookEvent(req, secret)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if event == nil || event.ID != "evt_test" {
		t.Fatalf("unexpected event: %+v", event)
	}

	intentID, err := PaymentIntentID(event)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if intentID != "pi_123" {
		t.Fatalf("expected pi_123, got %s", intentID)
	}
}

func TestPaymentIntentID_MissingID(t *testing.T) {
	t.Parallel()

	if _, err := PaymentIntentID(nil); err == nil {
		t.Fatal("expected error for nil event")
	}
}
