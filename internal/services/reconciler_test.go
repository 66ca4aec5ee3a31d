package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/printhubapp/printhub/internal/db"
	"github.com/printhubapp/printhub/internal/email"
)

type fakeEmailProvider struct {
	sent    []*email.Email
	sendErr error
}

func (f *fakeEmailProvider) SendEmail(_ context.Context, msg *email.Email) error {
	f.sent = append(f.sent, msg)
	return f.sendErr
}

func (f *fakeEmailProvider) ValidateAPIKey(context.Context) error { return nil }

func paidOrder() *db.Order {
	return &db.Order{
		ID:               uuid.New(),
		CustomerName:     "Ada",
		CustomerEmail:    "ada@example.com",
		TotalAmountCents: 1500,
		Currency:         "eur",
		PaymentIntentID:  "pi_123",
		PaymentStatus:    db.PaymentSucceeded,
		Status:           db.StatusConfirmed,
	}
}

func newReconciler(store *fakeOrderStore, sender email.Provider) *PaymentReconciler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewPaymentReconciler(store, sender, logger)
}

func TestPaymentReconciler_Dispatch(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name              string
		handle            func(*PaymentReconciler, context.Context) error
		wantPaymentStatus db.PaymentStatus
		wantOrderStatus   db.OrderStatus
		wantAllowedFrom   []db.PaymentStatus
	}{
		{
			name: "succeeded confirms the order",
			handle: func(r *PaymentReconciler, ctx context.Context) error {
				return r.HandlePaymentIntentSucceeded(ctx, "pi_123")
			},
			wantPaymentStatus: db.PaymentSucceeded,
			wantOrderStatus:   db.StatusConfirmed,
			wantAllowedFrom:   []db.PaymentStatus{db.PaymentPending, db.PaymentProcessing, db.PaymentFailed, db.PaymentSucceeded},
		},
		{
			name: "failed cancels the order",
			handle: func(r *PaymentReconciler, ctx context.Context) error {
				return r.HandlePaymentIntentFailed(ctx, "pi_123")
			},
			wantPaymentStatus: db.PaymentFailed,
			wantOrderStatus:   db.StatusCanceled,
			wantAllowedFrom:   []db.PaymentStatus{db.PaymentPending, db.PaymentProcessing, db.PaymentFailed},
		},
		{
			name: "canceled cancels both axes",
			handle: func(r *PaymentReconciler, ctx context.Context) error {
				return r.HandlePaymentIntentCanceled(ctx, "pi_123")
			},
			wantPaymentStatus: db.PaymentCanceled,
			wantOrderStatus:   db.StatusCanceled,
			wantAllowedFrom:   []db.PaymentStatus{db.PaymentPending, db.PaymentProcessing, db.PaymentCanceled},
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			store := &fakeOrderStore{
				getByIntentFunc: func(context.Context, string) (*db.Order, error) {
					return paidOrder(), nil
				},
			}

			err := tc.handle(newReconciler(store, nil), context.Background())
			require.NoError(t, err)

			require.Len(t, store.applyPaymentEvents, 1)
			got := store.applyPaymentEvents[0]
			assert.Equal(t, "pi_123", got.paymentIntentID)
			assert.Equal(t, tc.wantPaymentStatus, got.paymentStatus)
			assert.Equal(t, tc.wantOrderStatus, got.orderStatus)
			assert.Equal(t, tc.wantAllowedFrom, got.allowedFrom)
		})
	}
}

func TestPaymentReconciler_Succeeded_SendsConfirmationEmail(t *testing.T) {
	t.Parallel()

	store := &fakeOrderStore{
		getByIntentFunc: func(_ context.Context, paymentIntentID string) (*db.Order, error) {
			assert.Equal(t, "pi_123", paymentIntentID)
			return paidOrder(), nil
		},
	}
	sender := &fakeEmailProvider{}

	err := newReconciler(store, sender).HandlePaymentIntentSucceeded(context.Background(), "pi_123")
	require.NoError(t, err)

	require.Len(t, sender.sent, 1)
	assert.Equal(t, "ada@example.com", sender.sent[0].To)
}

func TestPaymentReconciler_EmailFailureDoesNotFailWebhook(t *testing.T) {
	t.Parallel()

	store := &fakeOrderStore{
		getByIntentFunc: func(context.Context, string) (*db.Order, error) {
			return paidOrder(), nil
		},
	}
	sender := &fakeEmailProvider{sendErr: errors.New("smtp down")}

	err := newReconciler(store, sender).HandlePaymentIntentSucceeded(context.Background(), "pi_123")
	assert.NoError(t, err)
}

func TestPaymentReconciler_UnknownIntentIsNotAnError(t *testing.T) {
	t.Parallel()

	store := &fakeOrderStore{applyPaymentErr: db.ErrOrderNotFound}
	sender := &fakeEmailProvider{}

	err := newReconciler(store, sender).HandlePaymentIntentSucceeded(context.Background(), "pi_ghost")
	assert.NoError(t, err)
	assert.Empty(t, sender.sent, "no email for an unmatched event")
}

func TestPaymentReconciler_StaleTransitionIsNotAnError(t *testing.T) {
	t.Parallel()

	store := &fakeOrderStore{applyPaymentErr: db.ErrStaleTransition}

	err := newReconciler(store, nil).HandlePaymentIntentFailed(context.Background(), "pi_123")
	assert.NoError(t, err)
}

func TestPaymentReconciler_StoreFailureSurfaces(t *testing.T) {
	t.Parallel()

	storeErr := errors.New("connection refused")
	store := &fakeOrderStore{applyPaymentErr: storeErr}
	sender := &fakeEmailProvider{}

	err := newReconciler(store, sender).HandlePaymentIntentCanceled(context.Background(), "pi_123")
	assert.ErrorIs(t, err, storeErr)
	assert.Empty(t, sender.sent)
}
