package handlers

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/getsentry/sentry-go"
	"github.com/getsentry/sentry-go/attribute"
	stripeapi "github.com/stripe/stripe-go/v84"

	"github.com/printhubapp/printhub/internal/logging"
	"github.com/printhubapp/printhub/internal/observability"
	"github.com/printhubapp/printhub/internal/services"
	stripewebhook "github.com/printhubapp/printhub/internal/stripe"
)

// StripeEventRouter dispatches verified Stripe events to the payment
// reconciler. Event types outside the payment_intent lifecycle are
// acknowledged without action.
type StripeEventRouter struct {
	reconciler *services.PaymentReconciler
	logger     *slog.Logger
}

func NewStripeEventRouter(reconciler *services.PaymentReconciler, logger *slog.Logger) *StripeEventRouter {
	return &StripeEventRouter{
		reconciler: reconciler,
		logger:     logger,
	}
}

func (r *StripeEventRouter) Handle(ctx context.Context, event *stripeapi.Event) error {
	span := sentry.StartSpan(
		ctx,
		"handler.stripe_router.handle",
		sentry.WithOpName("handler.stripe_router"),
		sentry.WithDescription("StripeEventRouter.Handle"),
		sentry.WithSpanOrigin(sentry.SpanOriginManual),
	)
	defer span.Finish()
	ctx = span.Context()

	meter := observability.MeterFromContext(ctx)
	meter.SetAttributes(attribute.String("webhook.provider", "stripe"))
	meter.Count("webhook.router.received", 1)
	recordFailed := func(reason string) {
		meter.Count("webhook.router.failed", 1, sentry.WithAttributes(attribute.String("reason", reason)))
	}

	if event == nil {
		recordFailed("missing_event")
		return fmt.Errorf("missing stripe event")
	}
	if event.Data == nil {
		recordFailed("missing_event_data")
		return fmt.Errorf("missing stripe event data")
	}
	meter.SetAttributes(attribute.String("webhook.event_type", string(event.Type)))

	logger := logging.FromContext(ctx, r.logger)

	switch event.Type {
	case "payment_intent.succeeded", "payment_intent.payment_failed", "payment_intent.canceled":
	default:
		logger.Info("unhandled Stripe event type", "type", event.Type)
		meter.Count("webhook.router.unhandled", 1)
		span.Status = sentry.SpanStatusOK
		return nil
	}

	paymentIntentID, err := stripewebhook.PaymentIntentID(event)
	if err != nil {
		recordFailed("missing_payment_intent_id")
		return fmt.Errorf("failed to extract payment intent id: %w", err)
	}

	var handlerErr error
	switch event.Type {
	case "payment_intent.succeeded":
		handlerErr = r.reconciler.HandlePaymentIntentSucceeded(ctx, paymentIntentID)
	case "payment_intent.payment_failed":
		handlerErr = r.reconciler.HandlePaymentIntentFailed(ctx, paymentIntentID)
	case "payment_intent.canceled":
		handlerErr = r.reconciler.HandlePaymentIntentCanceled(ctx, paymentIntentID)
	}
	if handlerErr != nil {
		recordFailed("reconciler_failed")
		return handlerErr
	}

	meter.Count("webhook.router.processed", 1)
	span.Status = sentry.SpanStatusOK
	return nil
}
