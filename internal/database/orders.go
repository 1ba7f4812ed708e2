package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const orderColumns = `id, user_id, customer_name, customer_email, customer_phone,
	delivery_address, payment_method, installment_stage, payment_mode,
	payment_timing, payment_status, order_status, total_amount,
	location_images, contract_signature, agreed_to_terms, created_at, updated_at`

func scanOrder(row interface{ Scan(dest ...any) error }) (Order, error) {
	var o Order
	err := row.Scan(
		&o.ID, &o.UserID, &o.CustomerName, &o.CustomerEmail, &o.CustomerPhone,
		&o.DeliveryAddress, &o.PaymentMethod, &o.InstallmentStage, &o.PaymentMode,
		&o.PaymentTiming, &o.PaymentStatus, &o.OrderStatus, &o.TotalAmount,
		&o.LocationImages, &o.ContractSignature, &o.AgreedToTerms,
		&o.CreatedAt, &o.UpdatedAt,
	)
	return o, err
}

type CreateOrderParams struct {
	UserID            uuid.UUID
	CustomerName      string
	CustomerEmail     string
	CustomerPhone     pgtype.Text
	DeliveryAddress   string
	PaymentMethod     string
	InstallmentStage  pgtype.Text
	PaymentMode       pgtype.Text
	PaymentTiming     pgtype.Text
	PaymentStatus     string
	OrderStatus       string
	TotalAmount       pgtype.Numeric
	LocationImages    []string
	ContractSignature pgtype.Text
	AgreedToTerms     bool
}

const createOrder = `INSERT INTO orders (user_id, customer_name, customer_email,
	customer_phone, delivery_address, payment_method, installment_stage,
	payment_mode, payment_timing, payment_status, order_status, total_amount,
	location_images, contract_signature, agreed_to_terms)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
RETURNING ` + orderColumns

func (q *Queries) CreateOrder(ctx context.Context, arg CreateOrderParams) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, createOrder,
		arg.UserID, arg.CustomerName, arg.CustomerEmail, arg.CustomerPhone,
		arg.DeliveryAddress, arg.PaymentMethod, arg.InstallmentStage,
		arg.PaymentMode, arg.PaymentTiming, arg.PaymentStatus, arg.OrderStatus,
		arg.TotalAmount, arg.LocationImages, arg.ContractSignature, arg.AgreedToTerms,
	))
}

const getOrder = `SELECT ` + orderColumns + `
FROM orders WHERE id = $1`

func (q *Queries) GetOrder(ctx context.Context, id uuid.UUID) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, getOrder, id))
}

const getOrderForUpdate = `SELECT ` + orderColumns + `
FROM orders WHERE id = $1
FOR NO KEY UPDATE`

// GetOrderForUpdate locks the order row so concurrent status updates and
// cancellations against the same order serialize instead of racing.
func (q *Queries) GetOrderForUpdate(ctx context.Context, id uuid.UUID) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, getOrderForUpdate, id))
}

type ListOrdersParams struct {
	OrderStatus pgtype.Text
	Limit       int32
	Offset      int32
}

const listOrders = `SELECT ` + orderColumns + `
FROM orders
WHERE ($1::text IS NULL OR order_status = $1)
ORDER BY created_at DESC
LIMIT $2 OFFSET $3`

func (q *Queries) ListOrders(ctx context.Context, arg ListOrdersParams) ([]Order, error) {
	rows, err := q.db.Query(ctx, listOrders, arg.OrderStatus, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectOrders(rows)
}

const listOrdersByUser = `SELECT ` + orderColumns + `
FROM orders WHERE user_id = $1
ORDER BY created_at DESC`

func (q *Queries) ListOrdersByUser(ctx context.Context, userID uuid.UUID) ([]Order, error) {
	rows, err := q.db.Query(ctx, listOrdersByUser, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectOrders(rows)
}

func collectOrders(rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}) ([]Order, error) {
	var orders []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

type UpdateOrderStateParams struct {
	ID               uuid.UUID
	OrderStatus      string
	PaymentStatus    string
	InstallmentStage pgtype.Text
}

const updateOrderState = `UPDATE orders
SET order_status = $2, payment_status = $3, installment_stage = $4,
	updated_at = now()
WHERE id = $1
RETURNING ` + orderColumns

func (q *Queries) UpdateOrderState(ctx context.Context, arg UpdateOrderStateParams) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, updateOrderState,
		arg.ID, arg.OrderStatus, arg.PaymentStatus, arg.InstallmentStage,
	))
}

type CreateOrderItemParams struct {
	OrderID   uuid.UUID
	ProductID uuid.UUID
	Quantity  int32
	UnitPrice pgtype.Numeric
	Subtotal  pgtype.Numeric
}

const createOrderItem = `INSERT INTO order_items (order_id, product_id, quantity,
	unit_price, subtotal)
VALUES ($1, $2, $3, $4, $5)
RETURNING id, order_id, product_id, quantity, unit_price, subtotal`

func (q *Queries) CreateOrderItem(ctx context.Context, arg CreateOrderItemParams) (OrderItem, error) {
	var item OrderItem
	err := q.db.QueryRow(ctx, createOrderItem,
		arg.OrderID, arg.ProductID, arg.Quantity, arg.UnitPrice, arg.Subtotal,
	).Scan(&item.ID, &item.OrderID, &item.ProductID, &item.Quantity, &item.UnitPrice, &item.Subtotal)
	return item, err
}

const listOrderItemsByOrder = `SELECT id, order_id, product_id, quantity,
	unit_price, subtotal
FROM order_items WHERE order_id = $1
ORDER BY id`

func (q *Queries) ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]OrderItem, error) {
	rows, err := q.db.Query(ctx, listOrderItemsByOrder, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []OrderItem
	for rows.Next() {
		var item OrderItem
		if err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.Quantity, &item.UnitPrice, &item.Subtotal); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

type CreateTrackingUpdateParams struct {
	OrderID uuid.UUID
	Status  string
	Message string
}

const createTrackingUpdate = `INSERT INTO tracking_updates (order_id, status, message)
VALUES ($1, $2, $3)
RETURNING id, order_id, status, message, created_at`

func (q *Queries) CreateTrackingUpdate(ctx context.Context, arg CreateTrackingUpdateParams) (TrackingUpdate, error) {
	var tu TrackingUpdate
	err := q.db.QueryRow(ctx, createTrackingUpdate, arg.OrderID, arg.Status, arg.Message).
		Scan(&tu.ID, &tu.OrderID, &tu.Status, &tu.Message, &tu.CreatedAt)
	return tu, err
}

const listTrackingUpdatesByOrder = `SELECT id, order_id, status, message, created_at
FROM tracking_updates WHERE order_id = $1
ORDER BY created_at, id`

func (q *Queries) ListTrackingUpdatesByOrder(ctx context.Context, orderID uuid.UUID) ([]TrackingUpdate, error) {
	rows, err := q.db.Query(ctx, listTrackingUpdatesByOrder, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var updates []TrackingUpdate
	for rows.Next() {
		var tu TrackingUpdate
		if err := rows.Scan(&tu.ID, &tu.OrderID, &tu.Status, &tu.Message, &tu.CreatedAt); err != nil {
			return nil, err
		}
		updates = append(updates, tu)
	}
	return updates, rows.Err()
}

type CreatePaymentReceiptParams struct {
	OrderID    uuid.UUID
	Stage      string
	Url        string
	UploadedBy uuid.UUID
}

const createPaymentReceipt = `INSERT INTO payment_receipts (order_id, stage, url, uploaded_by)
VALUES ($1, $2, $3, $4)
RETURNING id, order_id, stage, url, uploaded_by, created_at`

func (q *Queries) CreatePaymentReceipt(ctx context.Context, arg CreatePaymentReceiptParams) (PaymentReceipt, error) {
	var pr PaymentReceipt
	err := q.db.QueryRow(ctx, createPaymentReceipt, arg.OrderID, arg.Stage, arg.Url, arg.UploadedBy).
		Scan(&pr.ID, &pr.OrderID, &pr.Stage, &pr.Url, &pr.UploadedBy, &pr.CreatedAt)
	return pr, err
}

const listPaymentReceiptsByOrder = `SELECT id, order_id, stage, url, uploaded_by, created_at
FROM payment_receipts WHERE order_id = $1
ORDER BY created_at, id`

func (q *Queries) ListPaymentReceiptsByOrder(ctx context.Context, orderID uuid.UUID) ([]PaymentReceipt, error) {
	rows, err := q.db.Query(ctx, listPaymentReceiptsByOrder, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var receipts []PaymentReceipt
	for rows.Next() {
		var pr PaymentReceipt
		if err := rows.Scan(&pr.ID, &pr.OrderID, &pr.Stage, &pr.Url, &pr.UploadedBy, &pr.CreatedAt); err != nil {
			return nil, err
		}
		receipts = append(receipts, pr)
	}
	return receipts, rows.Err()
}

type ListReceiptUploadsRow struct {
	OrderID      uuid.UUID `json:"order_id"`
	CustomerName string    `json:"customer_name"`
	Stage        string    `json:"stage"`
	Url          string    `json:"url"`
	CreatedAt    time.Time `json:"created_at"`
}

const listReceiptUploads = `SELECT r.order_id, o.customer_name, r.stage, r.url, r.created_at
FROM payment_receipts r
JOIN orders o ON o.id = r.order_id
ORDER BY r.created_at DESC`

// ListReceiptUploads flattens every order's receipts into one feed for
// staff review. Derived on read, never stored.
func (q *Queries) ListReceiptUploads(ctx context.Context) ([]ListReceiptUploadsRow, error) {
	rows, err := q.db.Query(ctx, listReceiptUploads)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var uploads []ListReceiptUploadsRow
	for rows.Next() {
		var row ListReceiptUploadsRow
		if err := rows.Scan(&row.OrderID, &row.CustomerName, &row.Stage, &row.Url, &row.CreatedAt); err != nil {
			return nil, err
		}
		uploads = append(uploads, row)
	}
	return uploads, rows.Err()
}

type ListLocationImageUploadsRow struct {
	OrderID      uuid.UUID `json:"order_id"`
	CustomerName string    `json:"customer_name"`
	Images       []string  `json:"images"`
	CreatedAt    time.Time `json:"created_at"`
}

const listLocationImageUploads = `SELECT id, customer_name, location_images, created_at
FROM orders
WHERE cardinality(location_images) > 0
ORDER BY created_at DESC`

func (q *Queries) ListLocationImageUploads(ctx context.Context) ([]ListLocationImageUploadsRow, error) {
	rows, err := q.db.Query(ctx, listLocationImageUploads)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var uploads []ListLocationImageUploadsRow
	for rows.Next() {
		var row ListLocationImageUploadsRow
		if err := rows.Scan(&row.OrderID, &row.CustomerName, &row.Images, &row.CreatedAt); err != nil {
			return nil, err
		}
		uploads = append(uploads, row)
	}
	return uploads, rows.Err()
}
