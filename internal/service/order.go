package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/prefabmart/api/internal/database"
	"github.com/prefabmart/api/internal/enum"
	"github.com/shopspring/decimal"
)

// Errors returned by the order service.
var (
	ErrEmptyItems           = errors.New("products are required")
	ErrMissingCustomerInfo  = errors.New("customer info is required")
	ErrMissingPaymentInfo   = errors.New("payment info is required")
	ErrMissingContractInfo  = errors.New("signed contract info is required")
	ErrInvalidTotal         = errors.New("invalid total_amount")
	ErrInvalidQuantity      = errors.New("quantity must be > 0")
	ErrInvalidProductID     = errors.New("invalid product_id")
	ErrInvalidPaymentMethod = errors.New("invalid payment_method")
	ErrProductNotFound      = errors.New("product not found")
	ErrInsufficientStock    = errors.New("insufficient stock")
	ErrOrderNotFound        = errors.New("order not found")
	ErrForbidden            = errors.New("not allowed for this order")
	ErrNoChanges            = errors.New("no valid fields to update")
	ErrInvalidOrderStatus   = errors.New("invalid order_status")
	ErrInvalidPaymentStatus = errors.New("invalid payment_status")
	ErrInvalidStage         = errors.New("invalid payment_stage")
	ErrNotCancellable       = errors.New("order is already being processed")
)

// TxBeginner starts a new database transaction.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// OrderStore defines the DB methods needed by the order lifecycle engine.
// Satisfied by *database.Queries (and its tx-bound variant).
type OrderStore interface {
	GetProductForUpdate(ctx context.Context, id uuid.UUID) (database.Product, error)
	AdjustProductStock(ctx context.Context, arg database.AdjustProductStockParams) (database.Product, error)
	CreateOrder(ctx context.Context, arg database.CreateOrderParams) (database.Order, error)
	CreateOrderItem(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error)
	GetOrderForUpdate(ctx context.Context, id uuid.UUID) (database.Order, error)
	UpdateOrderState(ctx context.Context, arg database.UpdateOrderStateParams) (database.Order, error)
	ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.OrderItem, error)
	CreateTrackingUpdate(ctx context.Context, arg database.CreateTrackingUpdateParams) (database.TrackingUpdate, error)
	CreatePaymentReceipt(ctx context.Context, arg database.CreatePaymentReceiptParams) (database.PaymentReceipt, error)
	CreateActivityLog(ctx context.Context, arg database.CreateActivityLogParams) (database.ActivityLog, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (database.User, error)
}

// NewOrderStore creates an OrderStore from a DBTX (pool or tx).
// This allows the service to create store instances from transactions.
type NewOrderStore func(db database.DBTX) OrderStore

// OrderNotifier receives lifecycle events after a successful commit.
// Satisfied by *Dispatcher; narrow interface for testability. Implementations
// never report failure back: notification and log fan-out is best-effort.
type OrderNotifier interface {
	OrderCreated(ctx context.Context, order database.Order)
	OrderUpdated(ctx context.Context, change OrderChange)
	ReceiptUploaded(ctx context.Context, order database.Order, stage string)
}

// OrderChange captures an order's state before and after an update, for the
// dispatcher's rule table.
type OrderChange struct {
	Before database.Order
	After  database.Order
}

// StatusChanged reports whether order_status differs across the change.
func (c OrderChange) StatusChanged() bool {
	return c.Before.OrderStatus != c.After.OrderStatus
}

// PaymentChanged reports whether payment_status differs across the change.
func (c OrderChange) PaymentChanged() bool {
	return c.Before.PaymentStatus != c.After.PaymentStatus
}

// CreateOrderRequest is the validated input for placing an order.
type CreateOrderRequest struct {
	UserID         uuid.UUID
	Items          []CreateOrderItemRequest
	CustomerInfo   CustomerInfo
	PaymentInfo    PaymentInfo
	ContractInfo   ContractInfo
	TotalAmount    string
	LocationImages []string
}

// CreateOrderItemRequest is a single cart line item.
type CreateOrderItemRequest struct {
	ProductID string
	Quantity  int32
}

// CustomerInfo is the buyer contact + delivery snapshot denormalized onto
// the order at checkout. It is never re-synced with the user record.
type CustomerInfo struct {
	Name            string
	Email           string
	Phone           string
	DeliveryAddress string
}

// PaymentInfo describes how the buyer intends to pay.
type PaymentInfo struct {
	PaymentMethod string
	PaymentMode   string
	PaymentTiming string
}

// ContractInfo is the buyer's agreement captured at checkout.
type ContractInfo struct {
	Signature     string
	AgreedToTerms bool
}

// UpdateOrderRequest is a patch to an existing order. Empty fields are
// "not requested"; at least one recognized change must be present.
type UpdateOrderRequest struct {
	OrderStatus       string
	PaymentStatus     string
	PaymentReceiptURL string
	PaymentStage      string
}

// OrderService handles order lifecycle business logic.
type OrderService struct {
	pool     TxBeginner
	newStore NewOrderStore
	notifier OrderNotifier
}

// NewOrderService creates a new OrderService.
func NewOrderService(pool TxBeginner, newStore NewOrderStore, notifier OrderNotifier) *OrderService {
	return &OrderService{pool: pool, newStore: newStore, notifier: notifier}
}

// CreateOrder validates the checkout submission, reserves stock, and writes
// the order, its items, the first tracking entry, and the activity-log
// record in one transaction. Notifications go out only after commit; their
// failure never undoes the order.
func (s *OrderService) CreateOrder(ctx context.Context, req CreateOrderRequest) (*database.Order, error) {
	// --- Validate required groups ---
	if len(req.Items) == 0 {
		return nil, ErrEmptyItems
	}
	if req.CustomerInfo.Name == "" || req.CustomerInfo.Email == "" || req.CustomerInfo.DeliveryAddress == "" {
		return nil, ErrMissingCustomerInfo
	}
	if req.PaymentInfo.PaymentMethod == "" {
		return nil, ErrMissingPaymentInfo
	}
	if !isValidPaymentMethod(req.PaymentInfo.PaymentMethod) {
		return nil, ErrInvalidPaymentMethod
	}
	if req.ContractInfo.Signature == "" || !req.ContractInfo.AgreedToTerms {
		return nil, ErrMissingContractInfo
	}

	total, err := decimal.NewFromString(req.TotalAmount)
	if err != nil || total.LessThanOrEqual(decimal.Zero) {
		return nil, ErrInvalidTotal
	}

	// --- Begin transaction ---
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	// --- Reserve stock per line item ---
	type reservedItem struct {
		productID uuid.UUID
		quantity  int32
		unitPrice decimal.Decimal
	}
	var reserved []reservedItem

	for i, item := range req.Items {
		if item.Quantity <= 0 {
			return nil, fmt.Errorf("products[%d]: %w", i, ErrInvalidQuantity)
		}

		productID, err := uuid.Parse(item.ProductID)
		if err != nil {
			return nil, fmt.Errorf("products[%d]: %w", i, ErrInvalidProductID)
		}

		// Row lock so a concurrent checkout can't pass the same stock check.
		product, err := store.GetProductForUpdate(ctx, productID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, fmt.Errorf("products[%d]: %w", i, ErrProductNotFound)
			}
			return nil, fmt.Errorf("products[%d]: get product: %w", i, err)
		}

		if product.Stock < item.Quantity {
			return nil, fmt.Errorf("products[%d] (%s): %w", i, product.Name, ErrInsufficientStock)
		}

		if _, err := store.AdjustProductStock(ctx, database.AdjustProductStockParams{
			ID:    productID,
			Delta: -item.Quantity,
		}); err != nil {
			return nil, fmt.Errorf("products[%d]: reserve stock: %w", i, err)
		}

		reserved = append(reserved, reservedItem{
			productID: productID,
			quantity:  item.Quantity,
			unitPrice: numericToDecimal(product.Price),
		})
	}

	// Installment orders start at the initial (50%) stage; full-payment
	// orders never carry a stage.
	stage := pgtype.Text{}
	if req.PaymentInfo.PaymentMethod == enum.PaymentMethodInstallment {
		stage = pgtype.Text{String: enum.InstallmentStageInitial, Valid: true}
	}

	// --- Insert order ---
	order, err := store.CreateOrder(ctx, database.CreateOrderParams{
		UserID:            req.UserID,
		CustomerName:      req.CustomerInfo.Name,
		CustomerEmail:     req.CustomerInfo.Email,
		CustomerPhone:     textOrNull(req.CustomerInfo.Phone),
		DeliveryAddress:   req.CustomerInfo.DeliveryAddress,
		PaymentMethod:     req.PaymentInfo.PaymentMethod,
		InstallmentStage:  stage,
		PaymentMode:       textOrNull(req.PaymentInfo.PaymentMode),
		PaymentTiming:     textOrNull(req.PaymentInfo.PaymentTiming),
		PaymentStatus:     enum.PaymentStatusPending,
		OrderStatus:       enum.OrderStatusPending,
		TotalAmount:       decimalToNumeric(total),
		LocationImages:    req.LocationImages,
		ContractSignature: textOrNull(req.ContractInfo.Signature),
		AgreedToTerms:     req.ContractInfo.AgreedToTerms,
	})
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	// --- Insert items ---
	for _, ri := range reserved {
		subtotal := ri.unitPrice.Mul(decimal.NewFromInt32(ri.quantity))
		if _, err := store.CreateOrderItem(ctx, database.CreateOrderItemParams{
			OrderID:   order.ID,
			ProductID: ri.productID,
			Quantity:  ri.quantity,
			UnitPrice: decimalToNumeric(ri.unitPrice),
			Subtotal:  decimalToNumeric(subtotal),
		}); err != nil {
			return nil, fmt.Errorf("create order item: %w", err)
		}
	}

	// --- First tracking entry + audit record ---
	if _, err := store.CreateTrackingUpdate(ctx, database.CreateTrackingUpdateParams{
		OrderID: order.ID,
		Status:  enum.OrderStatusPending,
		Message: "Order placed, awaiting verification",
	}); err != nil {
		return nil, fmt.Errorf("create tracking update: %w", err)
	}

	if _, err := store.CreateActivityLog(ctx, database.CreateActivityLogParams{
		UserID:   pgtype.UUID{Bytes: req.UserID, Valid: true},
		UserName: req.CustomerInfo.Name,
		Action:   "Order placed",
		Details:  fmt.Sprintf("order %s placed, total %s", order.ID, total.StringFixed(2)),
		Category: enum.ActivityCategoryOrder,
	}); err != nil {
		return nil, fmt.Errorf("create activity log: %w", err)
	}

	// --- Commit ---
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	s.notifier.OrderCreated(ctx, order)

	return &order, nil
}

// UpdateOrder applies a staff status/payment patch or a receipt upload to
// an existing order, deriving the installment stage from payment-status
// transitions, and appends the matching tracking entries. All writes share
// one transaction; dispatch happens after commit.
func (s *OrderService) UpdateOrder(ctx context.Context, actor Actor, orderID uuid.UUID, req UpdateOrderRequest) (*database.Order, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	order, err := store.GetOrderForUpdate(ctx, orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}

	// --- Authorization ---
	wantsState := req.OrderStatus != "" || req.PaymentStatus != ""
	wantsReceipt := req.PaymentReceiptURL != ""

	if wantsState && !CanSetOrderState(actor) {
		return nil, ErrForbidden
	}
	if wantsReceipt && !CanAttachReceipt(actor, order.UserID) {
		return nil, ErrForbidden
	}
	if !IsStaff(actor.Role) && actor.ID != order.UserID {
		return nil, ErrForbidden
	}

	// --- Compute the diff ---
	newState := database.UpdateOrderStateParams{
		ID:               order.ID,
		OrderStatus:      order.OrderStatus,
		PaymentStatus:    order.PaymentStatus,
		InstallmentStage: order.InstallmentStage,
	}
	changed := false
	var details []string
	var trackings []database.CreateTrackingUpdateParams

	if req.OrderStatus != "" && req.OrderStatus != order.OrderStatus {
		if !isValidOrderStatus(req.OrderStatus) {
			return nil, ErrInvalidOrderStatus
		}
		newState.OrderStatus = req.OrderStatus
		changed = true
		details = append(details, fmt.Sprintf("order status %q -> %q", order.OrderStatus, req.OrderStatus))
		trackings = append(trackings, database.CreateTrackingUpdateParams{
			OrderID: order.ID,
			Status:  req.OrderStatus,
			Message: "Order status updated to " + req.OrderStatus,
		})
	}

	if req.PaymentStatus != "" && req.PaymentStatus != order.PaymentStatus {
		if !isValidPaymentStatus(req.PaymentStatus) {
			return nil, ErrInvalidPaymentStatus
		}
		newState.PaymentStatus = req.PaymentStatus
		changed = true
		details = append(details, fmt.Sprintf("payment status %q -> %q", order.PaymentStatus, req.PaymentStatus))
		trackings = append(trackings, database.CreateTrackingUpdateParams{
			OrderID: order.ID,
			Status:  newState.OrderStatus,
			Message: "Payment status updated to " + req.PaymentStatus,
		})

		// The stage is a pure function of the new payment status,
		// independent of the stage the order was in before.
		if order.PaymentMethod == enum.PaymentMethodInstallment {
			newState.InstallmentStage = pgtype.Text{
				String: stageForPaymentStatus(req.PaymentStatus),
				Valid:  true,
			}
		}
	}

	if wantsReceipt {
		if !isValidStage(req.PaymentStage) {
			return nil, ErrInvalidStage
		}
		changed = true
		details = append(details, fmt.Sprintf("receipt uploaded for %s stage", req.PaymentStage))
		trackings = append(trackings, database.CreateTrackingUpdateParams{
			OrderID: order.ID,
			Status:  newState.OrderStatus,
			Message: "Payment receipt uploaded for " + StageLabel(req.PaymentStage),
		})
	}

	if !changed {
		return nil, ErrNoChanges
	}

	// --- Apply ---
	updated, err := store.UpdateOrderState(ctx, newState)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("update order: %w", err)
	}

	if wantsReceipt {
		if _, err := store.CreatePaymentReceipt(ctx, database.CreatePaymentReceiptParams{
			OrderID:    order.ID,
			Stage:      req.PaymentStage,
			Url:        req.PaymentReceiptURL,
			UploadedBy: actor.ID,
		}); err != nil {
			return nil, fmt.Errorf("create payment receipt: %w", err)
		}
	}

	for _, tu := range trackings {
		if _, err := store.CreateTrackingUpdate(ctx, tu); err != nil {
			return nil, fmt.Errorf("create tracking update: %w", err)
		}
	}

	actorUser, err := store.GetUserByID(ctx, actor.ID)
	if err != nil {
		return nil, fmt.Errorf("get actor: %w", err)
	}
	if _, err := store.CreateActivityLog(ctx, database.CreateActivityLogParams{
		UserID:   pgtype.UUID{Bytes: actor.ID, Valid: true},
		UserName: actorUser.FullName,
		Action:   "Order updated",
		Details:  fmt.Sprintf("order %s: %s", order.ID, strings.Join(details, "; ")),
		Category: enum.ActivityCategoryOrder,
	}); err != nil {
		return nil, fmt.Errorf("create activity log: %w", err)
	}

	// --- Commit ---
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	if wantsReceipt {
		s.notifier.ReceiptUploaded(ctx, updated, req.PaymentStage)
	}
	change := OrderChange{Before: order, After: updated}
	if change.StatusChanged() || change.PaymentChanged() {
		s.notifier.OrderUpdated(ctx, change)
	}

	return &updated, nil
}

// CancelOrder lets the owning client withdraw an order that hasn't been
// verified yet. Stock for every line item is restored in the same
// transaction that flips the status.
func (s *OrderService) CancelOrder(ctx context.Context, actor Actor, orderID uuid.UUID) (*database.Order, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	order, err := store.GetOrderForUpdate(ctx, orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}

	if !CanCancelOrder(actor, order.UserID) {
		return nil, ErrForbidden
	}
	if order.OrderStatus != enum.OrderStatusPending {
		return nil, ErrNotCancellable
	}

	updated, err := store.UpdateOrderState(ctx, database.UpdateOrderStateParams{
		ID:               order.ID,
		OrderStatus:      enum.OrderStatusCancelled,
		PaymentStatus:    order.PaymentStatus,
		InstallmentStage: order.InstallmentStage,
	})
	if err != nil {
		return nil, fmt.Errorf("cancel order: %w", err)
	}

	// --- Restore stock ---
	items, err := store.ListOrderItemsByOrder(ctx, order.ID)
	if err != nil {
		return nil, fmt.Errorf("list order items: %w", err)
	}
	for _, item := range items {
		if _, err := store.AdjustProductStock(ctx, database.AdjustProductStockParams{
			ID:    item.ProductID,
			Delta: item.Quantity,
		}); err != nil {
			return nil, fmt.Errorf("restore stock: %w", err)
		}
	}

	if _, err := store.CreateTrackingUpdate(ctx, database.CreateTrackingUpdateParams{
		OrderID: order.ID,
		Status:  enum.OrderStatusCancelled,
		Message: "Order cancelled by customer",
	}); err != nil {
		return nil, fmt.Errorf("create tracking update: %w", err)
	}

	if _, err := store.CreateActivityLog(ctx, database.CreateActivityLogParams{
		UserID:   pgtype.UUID{Bytes: actor.ID, Valid: true},
		UserName: order.CustomerName,
		Action:   "Order cancelled",
		Details:  fmt.Sprintf("order %s cancelled by customer, stock restored", order.ID),
		Category: enum.ActivityCategoryOrder,
	}); err != nil {
		return nil, fmt.Errorf("create activity log: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	s.notifier.OrderUpdated(ctx, OrderChange{Before: order, After: updated})

	return &updated, nil
}

// --- Helpers ---

func isValidOrderStatus(s string) bool {
	switch s {
	case enum.OrderStatusPending, enum.OrderStatusProcessing,
		enum.OrderStatusInProduction, enum.OrderStatusShipped,
		enum.OrderStatusDelivered, enum.OrderStatusCompleted,
		enum.OrderStatusCancelled:
		return true
	}
	return false
}

func isValidPaymentStatus(s string) bool {
	switch s {
	case enum.PaymentStatusPending, enum.PaymentStatus50Paid,
		enum.PaymentStatus90Paid, enum.PaymentStatus100Paid:
		return true
	}
	return false
}

func isValidStage(s string) bool {
	switch s {
	case enum.InstallmentStageInitial, enum.InstallmentStagePreDelivery,
		enum.InstallmentStageFinal:
		return true
	}
	return false
}

func isValidPaymentMethod(s string) bool {
	switch s {
	case enum.PaymentMethodInstallment, enum.PaymentMethodFull:
		return true
	}
	return false
}

// stageForPaymentStatus maps a payment status to the installment stage now
// due: 50% paid (or back to Pending) means the initial tranche, 90% the
// pre-delivery tranche, 100% the final one.
func stageForPaymentStatus(paymentStatus string) string {
	switch paymentStatus {
	case enum.PaymentStatus90Paid:
		return enum.InstallmentStagePreDelivery
	case enum.PaymentStatus100Paid:
		return enum.InstallmentStageFinal
	default:
		return enum.InstallmentStageInitial
	}
}

// StageLabel renders an installment stage in customer-facing language.
func StageLabel(stage string) string {
	switch stage {
	case enum.InstallmentStageInitial:
		return "Initial Payment (50%)"
	case enum.InstallmentStagePreDelivery:
		return "Pre-Delivery Payment (40%)"
	case enum.InstallmentStageFinal:
		return "Final Payment (10%)"
	}
	return stage
}

func textOrNull(s string) pgtype.Text {
	if s == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: s, Valid: true}
}

func numericToDecimal(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid {
		return decimal.Zero
	}
	val, err := n.Value()
	if err != nil || val == nil {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(val.(string))
	if err != nil {
		return decimal.Zero
	}
	return d
}

func decimalToNumeric(d decimal.Decimal) pgtype.Numeric {
	var n pgtype.Numeric
	_ = n.Scan(d.StringFixed(2))
	return n
}
