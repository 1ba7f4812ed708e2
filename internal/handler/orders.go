package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/prefabmart/api/internal/database"
	"github.com/prefabmart/api/internal/enum"
	"github.com/prefabmart/api/internal/middleware"
	"github.com/prefabmart/api/internal/service"
)

// OrderServicer defines the service methods needed by order handlers.
// Satisfied by *service.OrderService; narrow interface for testability.
type OrderServicer interface {
	CreateOrder(ctx context.Context, req service.CreateOrderRequest) (*database.Order, error)
	UpdateOrder(ctx context.Context, actor service.Actor, orderID uuid.UUID, req service.UpdateOrderRequest) (*database.Order, error)
	CancelOrder(ctx context.Context, actor service.Actor, orderID uuid.UUID) (*database.Order, error)
}

// OrderStore defines the database methods needed by order read handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type OrderStore interface {
	GetOrder(ctx context.Context, id uuid.UUID) (database.Order, error)
	ListOrders(ctx context.Context, arg database.ListOrdersParams) ([]database.Order, error)
	ListOrdersByUser(ctx context.Context, userID uuid.UUID) ([]database.Order, error)
	ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.OrderItem, error)
	ListTrackingUpdatesByOrder(ctx context.Context, orderID uuid.UUID) ([]database.TrackingUpdate, error)
	ListPaymentReceiptsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.PaymentReceipt, error)
	ListReceiptUploads(ctx context.Context) ([]database.ListReceiptUploadsRow, error)
	ListLocationImageUploads(ctx context.Context) ([]database.ListLocationImageUploadsRow, error)
}

// OrderHandler handles order endpoints.
type OrderHandler struct {
	svc   OrderServicer
	store OrderStore
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(svc OrderServicer, store OrderStore) *OrderHandler {
	return &OrderHandler{svc: svc, store: store}
}

// RegisterRoutes registers order endpoints on the given Chi router.
// The router is expected to run behind the Authenticate middleware.
func (h *OrderHandler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.Create)
	r.Get("/my-orders", h.MyOrders)
	r.With(middleware.RequireRole(enum.UserRoleAdmin, enum.UserRolePersonnel)).Get("/", h.List)
	r.With(middleware.RequireRole(enum.UserRoleAdmin, enum.UserRolePersonnel)).Get("/uploads", h.Uploads)
	r.Get("/{id}", h.Get)
	r.Patch("/{id}", h.Update)
	r.Delete("/{id}", h.Cancel)
}

// --- Request / Response types ---

type createOrderRequest struct {
	Products       []createOrderItemRequest `json:"products"`
	CustomerInfo   customerInfoRequest      `json:"customer_info"`
	PaymentInfo    paymentInfoRequest       `json:"payment_info"`
	ContractInfo   contractInfoRequest      `json:"contract_info"`
	TotalAmount    string                   `json:"total_amount"`
	LocationImages []string                 `json:"location_images"`
}

type createOrderItemRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int32  `json:"quantity"`
}

type customerInfoRequest struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Phone           string `json:"phone"`
	DeliveryAddress string `json:"delivery_address"`
}

type paymentInfoRequest struct {
	PaymentMethod string `json:"payment_method"`
	PaymentMode   string `json:"payment_mode"`
	PaymentTiming string `json:"payment_timing"`
}

type contractInfoRequest struct {
	Signature     string `json:"signature"`
	AgreedToTerms bool   `json:"agreed_to_terms"`
}

type updateOrderRequest struct {
	OrderStatus       string `json:"order_status"`
	PaymentStatus     string `json:"payment_status"`
	PaymentReceiptURL string `json:"payment_receipt_url"`
	PaymentStage      string `json:"payment_stage"`
}

// orderDetailResponse extends the order row with its line items, tracking
// history and receipts grouped by installment stage.
type orderDetailResponse struct {
	database.Order
	Items           []database.OrderItem              `json:"items"`
	TrackingUpdates []database.TrackingUpdate         `json:"tracking_updates"`
	PaymentReceipts map[string][]database.PaymentReceipt `json:"payment_receipts"`
}

// orderListResponse wraps a list of orders with pagination metadata.
type orderListResponse struct {
	Orders []database.Order `json:"orders"`
	Limit  int              `json:"limit"`
	Offset int              `json:"offset"`
}

type uploadsResponse struct {
	Receipts       []database.ListReceiptUploadsRow       `json:"receipts"`
	LocationImages []database.ListLocationImageUploadsRow `json:"location_images"`
}

// --- Handlers ---

// Create handles POST /orders.
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	items := make([]service.CreateOrderItemRequest, len(req.Products))
	for i, p := range req.Products {
		items[i] = service.CreateOrderItemRequest{
			ProductID: p.ProductID,
			Quantity:  p.Quantity,
		}
	}

	order, err := h.svc.CreateOrder(r.Context(), service.CreateOrderRequest{
		UserID: claims.UserID,
		Items:  items,
		CustomerInfo: service.CustomerInfo{
			Name:            req.CustomerInfo.Name,
			Email:           req.CustomerInfo.Email,
			Phone:           req.CustomerInfo.Phone,
			DeliveryAddress: req.CustomerInfo.DeliveryAddress,
		},
		PaymentInfo: service.PaymentInfo{
			PaymentMethod: req.PaymentInfo.PaymentMethod,
			PaymentMode:   req.PaymentInfo.PaymentMode,
			PaymentTiming: req.PaymentInfo.PaymentTiming,
		},
		ContractInfo: service.ContractInfo{
			Signature:     req.ContractInfo.Signature,
			AgreedToTerms: req.ContractInfo.AgreedToTerms,
		},
		TotalAmount:    req.TotalAmount,
		LocationImages: req.LocationImages,
	})
	if err != nil {
		if errors.Is(err, service.ErrProductNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
			return
		}
		if errors.Is(err, service.ErrInsufficientStock) {
			writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
			return
		}
		if isCheckoutValidationError(err) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		log.Printf("ERROR: create order: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusCreated, order)
}

// List handles GET /orders (staff only).
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePagination(r)

	params := database.ListOrdersParams{
		Limit:  int32(limit),
		Offset: int32(offset),
	}
	if s := r.URL.Query().Get("status"); s != "" {
		params.OrderStatus = pgtype.Text{String: s, Valid: true}
	}

	orders, err := h.store.ListOrders(r.Context(), params)
	if err != nil {
		log.Printf("ERROR: list orders: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	if orders == nil {
		orders = []database.Order{}
	}

	writeJSON(w, http.StatusOK, orderListResponse{Orders: orders, Limit: limit, Offset: offset})
}

// MyOrders handles GET /orders/my-orders.
func (h *OrderHandler) MyOrders(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	orders, err := h.store.ListOrdersByUser(r.Context(), claims.UserID)
	if err != nil {
		log.Printf("ERROR: list my orders: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	if orders == nil {
		orders = []database.Order{}
	}

	writeJSON(w, http.StatusOK, orders)
}

// Get handles GET /orders/{id}.
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	order, err := h.store.GetOrder(r.Context(), orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
			return
		}
		log.Printf("ERROR: get order: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	actor := service.Actor{ID: claims.UserID, Role: claims.Role}
	if !service.CanViewOrder(actor, order.UserID) {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "forbidden"})
		return
	}

	items, err := h.store.ListOrderItemsByOrder(r.Context(), orderID)
	if err != nil {
		log.Printf("ERROR: list order items: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	tracking, err := h.store.ListTrackingUpdatesByOrder(r.Context(), orderID)
	if err != nil {
		log.Printf("ERROR: list tracking updates: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	receipts, err := h.store.ListPaymentReceiptsByOrder(r.Context(), orderID)
	if err != nil {
		log.Printf("ERROR: list payment receipts: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	grouped := map[string][]database.PaymentReceipt{
		enum.InstallmentStageInitial:     {},
		enum.InstallmentStagePreDelivery: {},
		enum.InstallmentStageFinal:       {},
	}
	for _, rec := range receipts {
		grouped[rec.Stage] = append(grouped[rec.Stage], rec)
	}

	writeJSON(w, http.StatusOK, orderDetailResponse{
		Order:           order,
		Items:           items,
		TrackingUpdates: tracking,
		PaymentReceipts: grouped,
	})
}

// Update handles PATCH /orders/{id}: staff status/payment changes and
// customer receipt uploads.
func (h *OrderHandler) Update(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	var req updateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	order, err := h.svc.UpdateOrder(r.Context(), service.Actor{ID: claims.UserID, Role: claims.Role}, orderID, service.UpdateOrderRequest{
		OrderStatus:       req.OrderStatus,
		PaymentStatus:     req.PaymentStatus,
		PaymentReceiptURL: req.PaymentReceiptURL,
		PaymentStage:      req.PaymentStage,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrOrderNotFound):
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
		case errors.Is(err, service.ErrForbidden):
			writeJSON(w, http.StatusForbidden, map[string]string{"error": "forbidden"})
		case errors.Is(err, service.ErrNoChanges),
			errors.Is(err, service.ErrInvalidOrderStatus),
			errors.Is(err, service.ErrInvalidPaymentStatus),
			errors.Is(err, service.ErrInvalidStage):
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		default:
			log.Printf("ERROR: update order: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		}
		return
	}

	writeJSON(w, http.StatusOK, order)
}

// Cancel handles DELETE /orders/{id}: a customer withdrawing a still
// pending order.
func (h *OrderHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	order, err := h.svc.CancelOrder(r.Context(), service.Actor{ID: claims.UserID, Role: claims.Role}, orderID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrOrderNotFound):
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
		case errors.Is(err, service.ErrForbidden):
			writeJSON(w, http.StatusForbidden, map[string]string{"error": "forbidden"})
		case errors.Is(err, service.ErrNotCancellable):
			writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
		default:
			log.Printf("ERROR: cancel order: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		}
		return
	}

	writeJSON(w, http.StatusOK, order)
}

// Uploads handles GET /orders/uploads (staff only): every customer receipt
// and location photo across all orders, for the verification dashboard.
func (h *OrderHandler) Uploads(w http.ResponseWriter, r *http.Request) {
	receipts, err := h.store.ListReceiptUploads(r.Context())
	if err != nil {
		log.Printf("ERROR: list receipt uploads: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	images, err := h.store.ListLocationImageUploads(r.Context())
	if err != nil {
		log.Printf("ERROR: list location image uploads: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	if receipts == nil {
		receipts = []database.ListReceiptUploadsRow{}
	}
	if images == nil {
		images = []database.ListLocationImageUploadsRow{}
	}

	writeJSON(w, http.StatusOK, uploadsResponse{Receipts: receipts, LocationImages: images})
}

// --- Helpers ---

func isCheckoutValidationError(err error) bool {
	return errors.Is(err, service.ErrEmptyItems) ||
		errors.Is(err, service.ErrMissingCustomerInfo) ||
		errors.Is(err, service.ErrMissingPaymentInfo) ||
		errors.Is(err, service.ErrMissingContractInfo) ||
		errors.Is(err, service.ErrInvalidTotal) ||
		errors.Is(err, service.ErrInvalidQuantity) ||
		errors.Is(err, service.ErrInvalidProductID) ||
		errors.Is(err, service.ErrInvalidPaymentMethod)
}

func parsePagination(r *http.Request) (limit, offset int) {
	limit = 20
	if s := r.URL.Query().Get("limit"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 {
			limit = v
		}
	}
	if limit > 100 {
		limit = 100
	}

	offset = 0
	if s := r.URL.Query().Get("offset"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v >= 0 {
			offset = v
		}
	}
	return limit, offset
}
