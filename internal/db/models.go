package db

import "github.com/printhubapp/printhub/internal/models"

type Order = models.Order
type OrderItem = models.OrderItem
type ShippingAddress = models.ShippingAddress
type OrderStatus = models.OrderStatus
type PaymentStatus = models.PaymentStatus

const DefaultCurrency = models.DefaultCurrency

const (
	PaymentPending    = models.PaymentPending
	PaymentProcessing = models.PaymentProcessing
	PaymentSucceeded  = models.PaymentSucceeded
	PaymentFailed     = models.PaymentFailed
	PaymentCanceled   = models.PaymentCanceled
)

const (
	StatusProcessing = models.StatusProcessing
	StatusConfirmed  = models.StatusConfirmed
	StatusPrinting   = models.StatusPrinting
	StatusCompleted  = models.StatusCompleted
	StatusShipped    = models.StatusShipped
	StatusDelivered  = models.StatusDelivered
	StatusCanceled   = models.StatusCanceled
)
