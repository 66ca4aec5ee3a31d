package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

type OrderStore struct {
	pool *pgxpool.Pool
}

var (
	ErrOrderNotFound   = errors.New("order not found")
	ErrStaleTransition = errors.New("stale payment status transition")
)

func NewOrderStore(pool *pgxpool.Pool) *OrderStore {
	return &OrderStore{pool: pool}
}

const orderColumns = `id, user_id, customer_name, customer_email, customer_phone,
	shipping_address, total_amount_cents, currency, payment_intent_id,
	payment_status, status, created_at, updated_at`

// Create inserts an order and its items in a single transaction. The order's
// generated fields (id, timestamps) and each item's id are written back.
func (s *OrderStore) Create(ctx context.Context, order *Order, items []*OrderItem) error {
	if order.Currency == "" {
		order.Currency = DefaultCurrency
	}
	if order.PaymentStatus == "" {
		order.PaymentStatus = PaymentPending
	}
	if order.Status == "" {
		order.Status = StatusProcessing
	}

	var shippingAddressJSON []byte
	if order.ShippingAddress != nil {
		var err error
		shippingAddressJSON, err = json.Marshal(order.ShippingAddress)
		if err != nil {
			return err
		}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	row := tx.QueryRow(ctx, `
		INSERT INTO orders (user_id, customer_name, customer_email, customer_phone,
			shipping_address, total_amount_cents, currency, payment_intent_id,
			payment_status, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at, updated_at
	`,
		order.UserID,
		order.CustomerName,
		order.CustomerEmail,
		textOrNull(order.CustomerPhone),
		shippingAddressJSON,
		order.TotalAmountCents,
		order.Currency,
		textOrNull(order.PaymentIntentID),
		string(order.PaymentStatus),
		string(order.Status),
	)
	if err := row.Scan(&order.ID, &order.CreatedAt, &order.UpdatedAt); err != nil {
		return err
	}

	for _, item := range items {
		item.OrderID = order.ID
		if item.Quantity == 0 {
			item.Quantity = 1
		}
		itemRow := tx.QueryRow(ctx, `
			INSERT INTO order_items (order_id, product_id, product_name, quantity, unit_price_cents, variant)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id, created_at
		`,
			item.OrderID,
			item.ProductID,
			item.ProductName,
			item.Quantity,
			item.UnitPriceCents,
			textOrNull(item.Variant),
		)
		if err := itemRow.Scan(&item.ID, &item.CreatedAt); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	order.Items = make([]OrderItem, len(items))
	for i, item := range items {
		order.Items[i] = *item
	}
	return nil
}

func (s *OrderStore) GetByID(ctx context.Context, orderID uuid.UUID) (*Order, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, orderID)
	order, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	if err := s.loadItems(ctx, order); err != nil {
		return nil, err
	}
	return order, nil
}

// GetByPaymentIntentID looks an order up by its payment provider correlation
// token. The unique index on payment_intent_id guarantees at most one match.
func (s *OrderStore) GetByPaymentIntentID(ctx context.Context, paymentIntentID string) (*Order, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE payment_intent_id = $1`, paymentIntentID)
	order, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	if err := s.loadItems(ctx, order); err != nil {
		return nil, err
	}
	return order, nil
}

// ListByUser returns all orders owned by userID, newest first, with items.
// An empty result is not an error.
func (s *OrderStore) ListByUser(ctx context.Context, userID uuid.UUID) ([]*Order, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE user_id = $1
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []*Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, order := range orders {
		if err := s.loadItems(ctx, order); err != nil {
			return nil, err
		}
	}
	return orders, nil
}

// UpdateStatus sets the fulfillment status. The updated_at refresh comes from
// the table trigger.
func (s *OrderStore) UpdateStatus(ctx context.Context, orderID uuid.UUID, status OrderStatus) error {
	cmdTag, err := s.pool.Exec(ctx, `UPDATE orders SET status = $1 WHERE id = $2`, string(status), orderID)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrOrderNotFound
	}
	return nil
}

// ApplyPaymentEvent reconciles a payment provider event into order state.
// The update is keyed on the correlation token and guarded by allowedFrom:
// a replay of an already-applied event matches its own target state and is
// idempotent, while an out-of-order regression matches zero rows and is
// reported as ErrStaleTransition. An unknown token is ErrOrderNotFound.
func (s *OrderStore) ApplyPaymentEvent(ctx context.Context, paymentIntentID string, paymentStatus PaymentStatus, orderStatus OrderStatus, allowedFrom []PaymentStatus) error {
	from := make([]string, len(allowedFrom))
	for i, status := range allowedFrom {
		from[i] = string(status)
	}

	cmdTag, err := s.pool.Exec(ctx, `
		UPDATE orders
		SET payment_status = $1, status = $2
		WHERE payment_intent_id = $3 AND payment_status = ANY($4)
	`, string(paymentStatus), string(orderStatus), paymentIntentID, from)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() > 0 {
		return nil
	}

	var exists bool
	if err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM orders WHERE payment_intent_id = $1)`, paymentIntentID).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return ErrOrderNotFound
	}
	return fmt.Errorf("%w: expected payment_status in %v", ErrStaleTransition, from)
}

func (s *OrderStore) loadItems(ctx context.Context, order *Order) error {
	rows, err := s.pool.Query(ctx, `
		SELECT id, order_id, product_id, product_name, quantity, unit_price_cents, variant, created_at
		FROM order_items
		WHERE order_id = $1
		ORDER BY created_at
	`, order.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var item OrderItem
		var variant pgtype.Text
		if err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.ProductName, &item.Quantity, &item.UnitPriceCents, &variant, &item.CreatedAt); err != nil {
			return err
		}
		if variant.Valid {
			item.Variant = variant.String
		}
		order.Items = append(order.Items, item)
	}
	return rows.Err()
}

func scanOrder(row pgx.Row) (*Order, error) {
	var (
		order               Order
		customerPhone       pgtype.Text
		paymentIntentID     pgtype.Text
		shippingAddressJSON []byte
		paymentStatus       string
		status              string
	)

	err := row.Scan(
		&order.ID,
		&order.UserID,
		&order.CustomerName,
		&order.CustomerEmail,
		&customerPhone,
		&shippingAddressJSON,
		&order.TotalAmountCents,
		&order.Currency,
		&paymentIntentID,
		&paymentStatus,
		&status,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if customerPhone.Valid {
		order.CustomerPhone = customerPhone.String
	}
	if paymentIntentID.Valid {
		order.PaymentIntentID = paymentIntentID.String
	}
	order.PaymentStatus = PaymentStatus(paymentStatus)
	order.Status = OrderStatus(status)

	if shippingAddressJSON != nil {
		order.ShippingAddress = &ShippingAddress{}
		if err := json.Unmarshal(shippingAddressJSON, order.ShippingAddress); err != nil {
			return nil, err
		}
	}

	return &order, nil
}

func textOrNull(value string) pgtype.Text {
	return pgtype.Text{String: value, Valid: value != ""}
}
