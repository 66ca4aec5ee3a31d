package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/getsentry/sentry-go"
	"github.com/getsentry/sentry-go/attribute"
	"github.com/google/uuid"

	"github.com/printhubapp/printhub/internal/auth"
	"github.com/printhubapp/printhub/internal/catalog"
	"github.com/printhubapp/printhub/internal/db"
	"github.com/printhubapp/printhub/internal/logging"
	"github.com/printhubapp/printhub/internal/observability"
)

var (
	ErrPermissionDenied = errors.New("permission denied")
	ErrInvalidInput     = errors.New("invalid input")
	ErrInvalidStatus    = errors.New("invalid order status")
)

// OrderService is the access facade for orders. Ownership is checked here,
// explicitly, against the caller identity passed into every operation.
// Storage errors otherwise surface to the caller unchanged in meaning.
type OrderService struct {
	store   OrderStore
	catalog *catalog.Catalog
	pricer  orderPricer
	logger  *slog.Logger
}

// OrderStore is the persistence surface the facade and reconciler need.
type OrderStore interface {
	Create(ctx context.Context, order *db.Order, items []*db.OrderItem) error
	GetByID(ctx context.Context, orderID uuid.UUID) (*db.Order, error)
	GetByPaymentIntentID(ctx context.Context, paymentIntentID string) (*db.Order, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*db.Order, error)
	UpdateStatus(ctx context.Context, orderID uuid.UUID, status db.OrderStatus) error
	ApplyPaymentEvent(ctx context.Context, paymentIntentID string, paymentStatus db.PaymentStatus, orderStatus db.OrderStatus, allowedFrom []db.PaymentStatus) error
}

type orderPricer interface {
	LinePrice(catalog *catalog.Catalog, productID, variant string, quantity int) (int64, error)
	Currency(catalog *catalog.Catalog) string
}

func NewOrderService(store OrderStore, cat *catalog.Catalog, pricer orderPricer, logger *slog.Logger) *OrderService {
	return &OrderService{
		store:   store,
		catalog: cat,
		pricer:  pricer,
		logger:  logger,
	}
}

func (s *OrderService) loggerFromContext(ctx context.Context) *slog.Logger {
	return logging.FromContext(ctx, s.logger)
}

type CreateOrderInput struct {
	UserID          *uuid.UUID
	CustomerName    string
	CustomerEmail   string
	CustomerPhone   string
	ShippingAddress *db.ShippingAddress
	PaymentIntentID string
	Items           []CreateOrderItem
}

type CreateOrderItem struct {
	ProductID string
	Quantity  int
	Variant   string
}

// CreateOrder validates and prices the order from the catalog, then persists
// it with its items. The declared owning user must be the caller.
func (s *OrderService) CreateOrder(ctx context.Context, identity auth.Identity, input CreateOrderInput) (*db.Order, error) {
	span := sentry.StartSpan(
		ctx,
		"service.order.create",
		sentry.WithOpName("service.order"),
		sentry.WithDescription("CreateOrder"),
		sentry.WithSpanOrigin(sentry.SpanOriginManual),
	)
	defer span.Finish()
	ctx = span.Context()

	meter := observability.MeterFromContext(ctx)
	meter.Count("order.create.received", 1)
	recordFailure := func(reason string) {
		meter.Count("order.create.failed", 1, sentry.WithAttributes(
			attribute.String("reason", reason),
		))
	}

	if strings.TrimSpace(input.CustomerName) == "" {
		recordFailure("missing_customer_name")
		return nil, fmt.Errorf("%w: customer_name is required", ErrInvalidInput)
	}
	if strings.TrimSpace(input.CustomerEmail) == "" {
		recordFailure("missing_customer_email")
		return nil, fmt.Errorf("%w: customer_email is required", ErrInvalidInput)
	}
	if len(input.Items) == 0 {
		recordFailure("missing_items")
		return nil, fmt.Errorf("%w: at least one item is required", ErrInvalidInput)
	}
	if input.UserID != nil && !identity.CanActFor(*input.UserID) {
		recordFailure("permission_denied")
		return nil, fmt.Errorf("%w: cannot create an order for another user", ErrPermissionDenied)
	}

	var totalCents int64
	items := make([]*db.OrderItem, 0, len(input.Items))
	for _, line := range input.Items {
		if line.Quantity <= 0 {
			recordFailure("invalid_quantity")
			return nil, fmt.Errorf("%w: quantity must be positive", ErrInvalidInput)
		}

		lineCents, err := s.pricer.LinePrice(s.catalog, line.ProductID, line.Variant, line.Quantity)
		if err != nil {
			recordFailure("pricing_failed")
			return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		product := s.catalog.FindProduct(line.ProductID)

		totalCents += lineCents
		items = append(items, &db.OrderItem{
			ProductID:      line.ProductID,
			ProductName:    product.Name,
			Quantity:       line.Quantity,
			UnitPriceCents: lineCents / int64(line.Quantity),
			Variant:        line.Variant,
		})
	}

	order := &db.Order{
		UserID:           input.UserID,
		CustomerName:     input.CustomerName,
		CustomerEmail:    input.CustomerEmail,
		CustomerPhone:    input.CustomerPhone,
		ShippingAddress:  input.ShippingAddress,
		TotalAmountCents: totalCents,
		Currency:         s.pricer.Currency(s.catalog),
		PaymentIntentID:  input.PaymentIntentID,
		PaymentStatus:    db.PaymentPending,
		Status:           db.StatusProcessing,
	}

	if err := s.store.Create(ctx, order, items); err != nil {
		recordFailure("store_create_failed")
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	meter.Count("order.created", 1)
	s.loggerFromContext(ctx).Info("order created", "order_id", order.ID, "total_cents", order.TotalAmountCents, "items", len(items))
	return order, nil
}

// GetOrderByPaymentIntent returns the order matching the payment provider
// correlation token, with items. Orders the caller may not see behave as if
// they did not exist.
func (s *OrderService) GetOrderByPaymentIntent(ctx context.Context, identity auth.Identity, paymentIntentID string) (*db.Order, error) {
	if strings.TrimSpace(paymentIntentID) == "" {
		return nil, fmt.Errorf("%w: payment intent id is required", ErrInvalidInput)
	}

	order, err := s.store.GetByPaymentIntentID(ctx, paymentIntentID)
	if err != nil {
		return nil, err
	}
	if !s.canSee(identity, order) {
		return nil, db.ErrOrderNotFound
	}
	return order, nil
}

// GetUserOrders returns all orders owned by userID, newest first. An empty
// result is not an error.
func (s *OrderService) GetUserOrders(ctx context.Context, identity auth.Identity, userID uuid.UUID) ([]*db.Order, error) {
	if !identity.CanActFor(userID) {
		return nil, fmt.Errorf("%w: cannot list another user's orders", ErrPermissionDenied)
	}
	return s.store.ListByUser(ctx, userID)
}

// UpdateOrderStatus advances fulfillment to one of the closed set of order
// statuses. Only the owning user or the service identity may do so.
func (s *OrderService) UpdateOrderStatus(ctx context.Context, identity auth.Identity, orderID uuid.UUID, status db.OrderStatus) error {
	if !status.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	order, err := s.store.GetByID(ctx, orderID)
	if err != nil {
		return err
	}
	if order.UserID != nil && !identity.CanActFor(*order.UserID) {
		return fmt.Errorf("%w: not the order owner", ErrPermissionDenied)
	}
	if order.UserID == nil && !identity.Service {
		return fmt.Errorf("%w: anonymous orders are service-managed", ErrPermissionDenied)
	}

	if err := s.store.UpdateStatus(ctx, orderID, status); err != nil {
		return err
	}

	s.loggerFromContext(ctx).Info("order status updated", "order_id", orderID, "status", status)
	return nil
}

func (s *OrderService) canSee(identity auth.Identity, order *db.Order) bool {
	if identity.Service {
		return true
	}
	if order.UserID == nil {
		return false
	}
	return identity.CanActFor(*order.UserID)
}
