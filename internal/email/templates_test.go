package email

import (
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/printhubapp/printhub/internal/models"
)

func TestRenderOrderConfirmation(t *testing.T) {
	t.Parallel()

	order := &models.Order{
		ID:               uuid.MustParse("4fa2b1de-0000-0000-0000-000000000000"),
		CustomerName:     "Ada",
		CustomerEmail:    "ada@example.com",
		TotalAmountCents: 4500,
		Currency:         "eur",
		Items: []models.OrderItem{
			{ProductName: "A2 Poster", Variant: "black", Quantity: 2, UnitPriceCents: 1500},
			{ProductName: "Classic Mug", Quantity: 1, UnitPriceCents: 1500},
		},
	}

	msg, err := RenderOrderConfirmation(order)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if msg.To != "ada@example.com" {
		t.Errorf("unexpected recipient: %s", msg.To)
	}
	if !strings.Contains(msg.Subject, "4fa2b1de") {
		t.Errorf("subject missing order ref: %s", msg.Subject)
	}
	for _, want := range []string{"Ada", "A2 Poster (black) x2", "30.00 eur", "Total: 45.00 eur"} {
		if !strings.Contains(msg.Text, want) {
			t.Errorf("text body missing %q:\n%s", want, msg.Text)
		}
	}
	if !strings.Contains(msg.HTML, "Classic Mug") {
		t.Errorf("html body missing item:\n%s", msg.HTML)
	}
}

func TestRenderOrderConfirmation_EscapesHTMLBody(t *testing.T) {
	t.Parallel()

	order := &models.Order{
		ID:            uuid.New(),
		CustomerName:  `Ada <script>alert("hi")</script>`,
		CustomerEmail: "ada@example.com",
		Currency:      "eur",
		Items: []models.OrderItem{
			{ProductName: "A2 Poster", Quantity: 1, UnitPriceCents: 1500},
		},
	}

	msg, err := RenderOrderConfirmation(order)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if strings.Contains(msg.HTML, "<script>") {
		t.Errorf("html body must escape customer input:\n%s", msg.HTML)
	}
	if !strings.Contains(msg.HTML, "&lt;script&gt;") {
		t.Errorf("html body missing escaped customer name:\n%s", msg.HTML)
	}
	if !strings.Contains(msg.Text, "<script>") {
		t.Errorf("text body is rendered verbatim:\n%s", msg.Text)
	}
}

func TestRenderOrderConfirmation_NilOrder(t *testing.T) {
	t.Parallel()

	if _, err := RenderOrderConfirmation(nil); err == nil {
		t.Fatal("expected error for nil order")
	}
}

func TestFormatCents(t *testing.T) {
	t.Parallel()

	tests := []struct {
		cents    int64
		currency string
		want     string
	}{
		{cents: 0, currency: "eur", want: "0.00 eur"},
		{cents: 5, currency: "eur", want: "0.05 eur"},
		{cents: 1990, currency: "usd", want: "19.90 usd"},
		{cents: -250, currency: "eur", want: "-2.50 eur"},
	}

	for _, tc := range tests {
		if got := FormatCents(tc.cents, tc.currency); got != tc.want {
			t.Errorf("FormatCents(%d, %s) = %q, want %q", tc.cents, tc.currency, got, tc.want)
		}
	}
}
