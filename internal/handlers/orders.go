package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/printhubapp/printhub/internal/auth"
	"github.com/printhubapp/printhub/internal/db"
	"github.com/printhubapp/printhub/internal/services"
)

const pgUniqueViolation = "23505"

type createOrderRequest struct {
	UserID          *uuid.UUID             `json:"user_id,omitempty"`
	CustomerName    string                 `json:"customer_name"`
	CustomerEmail   string                 `json:"customer_email"`
	CustomerPhone   string                 `json:"customer_phone,omitempty"`
	ShippingAddress *db.ShippingAddress    `json:"shipping_address,omitempty"`
	PaymentIntentID string                 `json:"payment_intent_id,omitempty"`
	Items           []createOrderItemEntry `json:"items"`
}

type createOrderItemEntry struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
	Variant   string `json:"variant,omitempty"`
}

type updateOrderStatusRequest struct {
	Status string `json:"status"`
}

// CreateOrder handles POST /api/v1/orders.
func (h *Handlers) CreateOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.loggerFromContext(ctx)

	identity, ok := auth.FromContext(ctx)
	if !ok {
		http.Error(w, "Authorization required", http.StatusUnauthorized)
		return
	}

	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	input := services.CreateOrderInput{
		UserID:          req.UserID,
		CustomerName:    req.CustomerName,
		CustomerEmail:   req.CustomerEmail,
		CustomerPhone:   req.CustomerPhone,
		ShippingAddress: req.ShippingAddress,
		PaymentIntentID: req.PaymentIntentID,
	}
	for _, item := range req.Items {
		input.Items = append(input.Items, services.CreateOrderItem{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Variant:   item.Variant,
		})
	}

	order, err := h.orderService.CreateOrder(ctx, identity, input)
	if err != nil {
		h.writeOrderError(w, r, err, "failed to create order")
		return
	}

	logger.Info("order created via API", "order_id", order.ID)
	h.writeJSON(w, r, http.StatusCreated, order)
}

// GetUserOrders handles GET /api/v1/orders. Users list their own orders;
// the service identity may name any user with ?user_id=.
func (h *Handlers) GetUserOrders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	identity, ok := auth.FromContext(ctx)
	if !ok {
		http.Error(w, "Authorization required", http.StatusUnauthorized)
		return
	}

	userID := identity.UserID
	if raw := r.URL.Query().Get("user_id"); raw != "" {
		parsed, err := uuid.Parse(raw)
		if err != nil {
			http.Error(w, "Invalid user id", http.StatusBadRequest)
			return
		}
		userID = parsed
	}
	if userID == uuid.Nil {
		http.Error(w, "user_id is required", http.StatusBadRequest)
		return
	}

	orders, err := h.orderService.GetUserOrders(ctx, identity, userID)
	if err != nil {
		h.writeOrderError(w, r, err, "failed to list orders")
		return
	}
	if orders == nil {
		orders = []*db.Order{}
	}

	h.writeJSON(w, r, http.StatusOK, orders)
}

// GetOrderByPaymentIntent handles GET /api/v1/orders/payment-intent/{id}.
func (h *Handlers) GetOrderByPaymentIntent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	identity, ok := auth.FromContext(ctx)
	if !ok {
		http.Error(w, "Authorization required", http.StatusUnauthorized)
		return
	}

	paymentIntentID := mux.Vars(r)["id"]
	order, err := h.orderService.GetOrderByPaymentIntent(ctx, identity, paymentIntentID)
	if err != nil {
		h.writeOrderError(w, r, err, "failed to load order")
		return
	}

	h.writeJSON(w, r, http.StatusOK, order)
}

// UpdateOrderStatus handles PATCH /api/v1/orders/{id}/status.
func (h *Handlers) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.loggerFromContext(ctx)

	identity, ok := auth.FromContext(ctx)
	if !ok {
		http.Error(w, "Authorization required", http.StatusUnauthorized)
		return
	}

	orderID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "Invalid order id", http.StatusBadRequest)
		return
	}

	var req updateOrderStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.orderService.UpdateOrderStatus(ctx, identity, orderID, db.OrderStatus(req.Status)); err != nil {
		h.writeOrderError(w, r, err, "failed to update order status")
		return
	}

	logger.Info("order status updated via API", "order_id", orderID, "status", req.Status)
	h.writeJSON(w, r, http.StatusOK, map[string]string{"status": req.Status})
}

func (h *Handlers) writeOrderError(w http.ResponseWriter, r *http.Request, err error, logMsg string) {
	logger := h.loggerFromContext(r.Context())

	var pgErr *pgconn.PgError
	switch {
	case errors.Is(err, services.ErrInvalidInput), errors.Is(err, services.ErrInvalidStatus):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, services.ErrPermissionDenied):
		http.Error(w, "Forbidden", http.StatusForbidden)
	case errors.Is(err, db.ErrOrderNotFound):
		http.Error(w, "Order not found", http.StatusNotFound)
	case errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation:
		logger.Warn(logMsg, "error", err, "constraint", pgErr.ConstraintName)
		http.Error(w, "Conflict", http.StatusConflict)
	default:
		logger.Error(logMsg, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

func (h *Handlers) writeJSON(w http.ResponseWriter, r *http.Request, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.loggerFromContext(r.Context()).Error("failed to encode response", "error", err)
	}
}
