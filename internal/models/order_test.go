package models

import "testing"

func TestPaymentStatusValid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		status PaymentStatus
		want   bool
	}{
		{name: "pending", status: PaymentPending, want: true},
		{name: "processing", status: PaymentProcessing, want: true},
		{name: "succeeded", status: PaymentSucceeded, want: true},
		{name: "failed", status: PaymentFailed, want: true},
		{name: "canceled", status: PaymentCanceled, want: true},
		{name: "empty", status: PaymentStatus(""), want: false},
		{name: "unknown value", status: PaymentStatus("refunded"), want: false},
		{name: "case sensitive", status: PaymentStatus("Succeeded"), want: false},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := tc.status.Valid(); got != tc.want {
				t.Fatalf("Valid(%q) = %v, want %v", tc.status, got, tc.want)
			}
		})
	}
}

func TestOrderStatusValid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		status OrderStatus
		want   bool
	}{
		{name: "processing", status: StatusProcessing, want: true},
		{name: "confirmed", status: StatusConfirmed, want: true},
		{name: "printing", status: StatusPrinting, want: true},
		{name: "completed", status: StatusCompleted, want: true},
		{name: "shipped", status: StatusShipped, want: true},
		{name: "delivered", status: StatusDelivered, want: true},
		{name: "canceled", status: StatusCanceled, want: true},
		{name: "empty", status: OrderStatus(""), want: false},
		{name: "unknown value", status: OrderStatus("on_hold"), want: false},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := tc.status.Valid(); got != tc.want {
				t.Fatalf("Valid(%q) = %v, want %v", tc.status, got, tc.want)
			}
		})
	}
}
