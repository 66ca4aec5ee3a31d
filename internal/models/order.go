package models

import (
	"time"

	"github.com/google/uuid"
)

// PaymentStatus is the payment provider's view of an order.
type PaymentStatus string

const (
	PaymentPending    PaymentStatus = "pending"
	PaymentProcessing PaymentStatus = "processing"
	PaymentSucceeded  PaymentStatus = "succeeded"
	PaymentFailed     PaymentStatus = "failed"
	PaymentCanceled   PaymentStatus = "canceled"
)

// OrderStatus is the fulfillment state of an order.
type OrderStatus string

const (
	StatusProcessing OrderStatus = "processing"
	StatusConfirmed  OrderStatus = "confirmed"
	StatusPrinting   OrderStatus = "printing"
	StatusCompleted  OrderStatus = "completed"
	StatusShipped    OrderStatus = "shipped"
	StatusDelivered  OrderStatus = "delivered"
	StatusCanceled   OrderStatus = "canceled"
)

var paymentStatuses = map[PaymentStatus]struct{}{
	PaymentPending:    {},
	PaymentProcessing: {},
	PaymentSucceeded:  {},
	PaymentFailed:     {},
	PaymentCanceled:   {},
}

var orderStatuses = map[OrderStatus]struct{}{
	StatusProcessing: {},
	StatusConfirmed:  {},
	StatusPrinting:   {},
	StatusCompleted:  {},
	StatusShipped:    {},
	StatusDelivered:  {},
	StatusCanceled:   {},
}

// Valid reports whether s is a member of the closed payment status set.
func (s PaymentStatus) Valid() bool {
	_, ok := paymentStatuses[s]
	return ok
}

// Valid reports whether s is a member of the closed order status set.
func (s OrderStatus) Valid() bool {
	_, ok := orderStatuses[s]
	return ok
}

const DefaultCurrency = "eur"

// ShippingAddress is the structured delivery address attached to an order.
type ShippingAddress struct {
	Address    string `json:"address"`
	City       string `json:"city"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

type Order struct {
	ID               uuid.UUID        `json:"id"`
	UserID           *uuid.UUID       `json:"user_id,omitempty"`
	CustomerName     string           `json:"customer_name"`
	CustomerEmail    string           `json:"customer_email"`
	CustomerPhone    string           `json:"customer_phone,omitempty"`
	ShippingAddress  *ShippingAddress `json:"shipping_address,omitempty"`
	TotalAmountCents int64            `json:"total_amount_cents"`
	Currency         string           `json:"currency"`
	PaymentIntentID  string           `json:"payment_intent_id,omitempty"`
	PaymentStatus    PaymentStatus    `json:"payment_status"`
	Status           OrderStatus      `json:"status"`
	Items            []OrderItem      `json:"items,omitempty"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
}

// OrderItem is a single catalog line on an order. Items are immutable after
// insert and are removed only by the cascade when their order is deleted.
type OrderItem struct {
	ID             uuid.UUID `json:"id"`
	OrderID        uuid.UUID `json:"order_id"`
	ProductID      string    `json:"product_id"`
	ProductName    string    `json:"product_name"`
	Quantity       int       `json:"quantity"`
	UnitPriceCents int64     `json:"unit_price_cents"`
	Variant        string    `json:"variant,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}
