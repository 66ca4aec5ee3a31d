package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/getsentry/sentry-go"
	"github.com/getsentry/sentry-go/attribute"

	"github.com/printhubapp/printhub/internal/db"
	"github.com/printhubapp/printhub/internal/email"
	"github.com/printhubapp/printhub/internal/logging"
	"github.com/printhubapp/printhub/internal/observability"
)

// PaymentReconciler translates payment provider events into order state.
// All updates are keyed on the payment intent correlation token and guarded
// against out-of-order delivery; replays of an applied event are no-ops.
type PaymentReconciler struct {
	store       OrderStore
	emailSender email.Provider
	logger      *slog.Logger
}

func NewPaymentReconciler(store OrderStore, emailSender email.Provider, logger *slog.Logger) *PaymentReconciler {
	return &PaymentReconciler{
		store:       store,
		emailSender: emailSender,
		logger:      logger,
	}
}

func (r *PaymentReconciler) loggerFromContext(ctx context.Context) *slog.Logger {
	return logging.FromContext(ctx, r.logger)
}

// HandlePaymentIntentSucceeded marks the order paid and confirmed, then
// sends the confirmation email. Email failures never fail the webhook.
func (r *PaymentReconciler) HandlePaymentIntentSucceeded(ctx context.Context, paymentIntentID string) error {
	allowedFrom := []db.PaymentStatus{db.PaymentPending, db.PaymentProcessing, db.PaymentFailed, db.PaymentSucceeded}
	applied, err := r.apply(ctx, "payment_intent.succeeded", paymentIntentID, db.PaymentSucceeded, db.StatusConfirmed, allowedFrom)
	if err != nil || !applied {
		return err
	}

	r.sendConfirmationEmail(ctx, paymentIntentID)
	return nil
}

// HandlePaymentIntentFailed marks the order failed and canceled. A stale
// failure arriving after success is refused by the transition guard.
func (r *PaymentReconciler) HandlePaymentIntentFailed(ctx context.Context, paymentIntentID string) error {
	allowedFrom := []db.PaymentStatus{db.PaymentPending, db.PaymentProcessing, db.PaymentFailed}
	_, err := r.apply(ctx, "payment_intent.payment_failed", paymentIntentID, db.PaymentFailed, db.StatusCanceled, allowedFrom)
	return err
}

// HandlePaymentIntentCanceled marks the order canceled on both axes.
func (r *PaymentReconciler) HandlePaymentIntentCanceled(ctx context.Context, paymentIntentID string) error {
	allowedFrom := []db.PaymentStatus{db.PaymentPending, db.PaymentProcessing, db.PaymentCanceled}
	_, err := r.apply(ctx, "payment_intent.canceled", paymentIntentID, db.PaymentCanceled, db.StatusCanceled, allowedFrom)
	return err
}

func (r *PaymentReconciler) apply(ctx context.Context, eventType, paymentIntentID string, paymentStatus db.PaymentStatus, orderStatus db.OrderStatus, allowedFrom []db.PaymentStatus) (bool, error) {
	span := sentry.StartSpan(
		ctx,
		"service.reconciler.apply",
		sentry.WithOpName("service.reconciler"),
		sentry.WithDescription(eventType),
		sentry.WithSpanOrigin(sentry.SpanOriginManual),
	)
	defer span.Finish()
	ctx = span.Context()

	logger := r.loggerFromContext(ctx)
	meter := observability.MeterFromContext(ctx)
	meter.SetAttributes(attribute.String("webhook.event_type", eventType))

	err := r.store.ApplyPaymentEvent(ctx, paymentIntentID, paymentStatus, orderStatus, allowedFrom)
	switch {
	case err == nil:
		meter.Count("webhook.reconcile.applied", 1)
		span.Status = sentry.SpanStatusOK
		logger.Info("payment event applied", "event_type", eventType, "payment_intent_id", paymentIntentID, "payment_status", paymentStatus, "order_status", orderStatus)
		return true, nil
	case errors.Is(err, db.ErrOrderNotFound):
		// No order carries this token and none ever will; a non-2xx here
		// would only make the provider retry-storm.
		meter.Count("webhook.reconcile.unknown_intent", 1)
		span.Status = sentry.SpanStatusOK
		logger.Warn("payment event for unknown payment intent", "event_type", eventType, "payment_intent_id", paymentIntentID)
		return false, nil
	case errors.Is(err, db.ErrStaleTransition):
		meter.Count("webhook.reconcile.stale", 1)
		span.Status = sentry.SpanStatusOK
		logger.Info("ignoring stale payment event", "event_type", eventType, "payment_intent_id", paymentIntentID, "error", err)
		return false, nil
	default:
		meter.Count("webhook.reconcile.failed", 1, sentry.WithAttributes(
			attribute.String("reason", "store_failed"),
		))
		span.Status = sentry.SpanStatusInternalError
		return false, fmt.Errorf("failed to apply %s: %w", eventType, err)
	}
}

func (r *PaymentReconciler) sendConfirmationEmail(ctx context.Context, paymentIntentID string) {
	if r.emailSender == nil {
		return
	}
	logger := r.loggerFromContext(ctx)

	order, err := r.store.GetByPaymentIntentID(ctx, paymentIntentID)
	if err != nil {
		logger.Error("failed to load order for confirmation email", "error", err, "payment_intent_id", paymentIntentID)
		return
	}

	msg, err := email.RenderOrderConfirmation(order)
	if err != nil {
		logger.Error("failed to render confirmation email", "error", err, "order_id", order.ID)
		return
	}
	if err := r.emailSender.SendEmail(ctx, msg); err != nil {
		logger.Error("failed to send confirmation email", "error", err, "order_id", order.ID)
		return
	}
	logger.Info("confirmation email sent", "order_id", order.ID)
}
