// Package stripe provides Stripe webhook validation.
package stripe

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	stripeapi "github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/webhook"
)

// ReadWebhookEvent verifies the request signature against the signing secret
// and returns the parsed event. The payload is never trusted before the
// signature check passes.
func ReadWebhookEvent(r *http.Request, secret string) (*stripeapi.Event, error) {
	signature := r.Header.Get("Stripe-Signature")
	if signature == "" {
		return nil, fmt.Errorf("missing stripe signature header")
	}

	payload, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read request body: %w", err)
	}

	event, err := webhook.ConstructEvent(payload, signature, secret)
	if err != nil {
		return nil, fmt.Errorf("webhook signature validation failed: %w", err)
	}

	return &event, nil
}

// PaymentIntentID extracts data.object.id from a payment_intent.* event.
func PaymentIntentID(event *stripeapi.Event) (string, error) {
	if event == nil || event.Data == nil {
		return "", fmt.Errorf("missing stripe event data")
	}

	var object struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(event.Data.Raw, &object); err != nil {
		return "", fmt.Errorf("invalid event object: %w", err)
	}
	if object.ID == "" {
		return "", fmt.Errorf("missing payment intent ID")
	}

	return object.ID, nil
}
