package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/prefabmart/api/internal/auth"
	"github.com/prefabmart/api/internal/database"
	"github.com/prefabmart/api/internal/enum"
	"github.com/prefabmart/api/internal/handler"
	"github.com/prefabmart/api/internal/middleware"
	"github.com/prefabmart/api/internal/service"
)

// --- Mock OrderServicer ---

type mockOrderService struct {
	createFn func(ctx context.Context, req service.CreateOrderRequest) (*database.Order, error)
	updateFn func(ctx context.Context, actor service.Actor, orderID uuid.UUID, req service.UpdateOrderRequest) (*database.Order, error)
	cancelFn func(ctx context.Context, actor service.Actor, orderID uuid.UUID) (*database.Order, error)
}

func (m *mockOrderService) CreateOrder(ctx context.Context, req service.CreateOrderRequest) (*database.Order, error) {
	return m.createFn(ctx, req)
}
func (m *mockOrderService) UpdateOrder(ctx context.Context, actor service.Actor, orderID uuid.UUID, req service.UpdateOrderRequest) (*database.Order, error) {
	return m.updateFn(ctx, actor, orderID, req)
}
func (m *mockOrderService) CancelOrder(ctx context.Context, actor service.Actor, orderID uuid.UUID) (*database.Order, error) {
	return m.cancelFn(ctx, actor, orderID)
}

// --- Mock OrderStore ---

type mockOrderReadStore struct {
	getOrderFn                   func(ctx context.Context, id uuid.UUID) (database.Order, error)
	listOrdersFn                 func(ctx context.Context, arg database.ListOrdersParams) ([]database.Order, error)
	listOrdersByUserFn           func(ctx context.Context, userID uuid.UUID) ([]database.Order, error)
	listOrderItemsByOrderFn      func(ctx context.Context, orderID uuid.UUID) ([]database.OrderItem, error)
	listTrackingUpdatesByOrderFn func(ctx context.Context, orderID uuid.UUID) ([]database.TrackingUpdate, error)
	listPaymentReceiptsByOrderFn func(ctx context.Context, orderID uuid.UUID) ([]database.PaymentReceipt, error)
	listReceiptUploadsFn         func(ctx context.Context) ([]database.ListReceiptUploadsRow, error)
	listLocationImageUploadsFn   func(ctx context.Context) ([]database.ListLocationImageUploadsRow, error)
}

func (m *mockOrderReadStore) GetOrder(ctx context.Context, id uuid.UUID) (database.Order, error) {
	return m.getOrderFn(ctx, id)
}
func (m *mockOrderReadStore) ListOrders(ctx context.Context, arg database.ListOrdersParams) ([]database.Order, error) {
	return m.listOrdersFn(ctx, arg)
}
func (m *mockOrderReadStore) ListOrdersByUser(ctx context.Context, userID uuid.UUID) ([]database.Order, error) {
	return m.listOrdersByUserFn(ctx, userID)
}
func (m *mockOrderReadStore) ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.OrderItem, error) {
	if m.listOrderItemsByOrderFn != nil {
		return m.listOrderItemsByOrderFn(ctx, orderID)
	}
	return nil, nil
}
func (m *mockOrderReadStore) ListTrackingUpdatesByOrder(ctx context.Context, orderID uuid.UUID) ([]database.TrackingUpdate, error) {
	if m.listTrackingUpdatesByOrderFn != nil {
		return m.listTrackingUpdatesByOrderFn(ctx, orderID)
	}
	return nil, nil
}
func (m *mockOrderReadStore) ListPaymentReceiptsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.PaymentReceipt, error) {
	if m.listPaymentReceiptsByOrderFn != nil {
		return m.listPaymentReceiptsByOrderFn(ctx, orderID)
	}
	return nil, nil
}
func (m *mockOrderReadStore) ListReceiptUploads(ctx context.Context) ([]database.ListReceiptUploadsRow, error) {
	if m.listReceiptUploadsFn != nil {
		return m.listReceiptUploadsFn(ctx)
	}
	return nil, nil
}
func (m *mockOrderReadStore) ListLocationImageUploads(ctx context.Context) ([]database.ListLocationImageUploadsRow, error) {
	if m.listLocationImageUploadsFn != nil {
		return m.listLocationImageUploadsFn(ctx)
	}
	return nil, nil
}

// --- Helpers ---

func newOrderRouter(svc *mockOrderService, store *mockOrderReadStore) chi.Router {
	h := handler.NewOrderHandler(svc, store)
	r := chi.NewRouter()
	r.Use(middleware.Authenticate(testSecret))
	r.Route("/orders", h.RegisterRoutes)
	return r
}

func doAuthRequest(t *testing.T, router http.Handler, method, path string, body interface{}, userID uuid.UUID, role string) *httptest.ResponseRecorder {
	t.Helper()

	token, err := auth.GenerateToken(testSecret, userID, role)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	var req *http.Request
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request: %v", err)
		}
		req = httptest.NewRequest(method, path, bytes.NewReader(b))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func checkoutBody(productID uuid.UUID) map[string]interface{} {
	return map[string]interface{}{
		"products": []map[string]interface{}{
			{"product_id": productID.String(), "quantity": 1},
		},
		"customer_info": map[string]string{
			"name":             "Budi Santoso",
			"email":            "budi@test.com",
			"delivery_address": "Jl. Merdeka 1, Bandung",
		},
		"payment_info": map[string]string{
			"payment_method": enum.PaymentMethodInstallment,
		},
		"contract_info": map[string]interface{}{
			"signature":       "Budi Santoso",
			"agreed_to_terms": true,
		},
		"total_amount": "185000.00",
	}
}

// --- Create ---

func TestCreateOrderEndpoint_Success(t *testing.T) {
	userID := uuid.New()
	var got service.CreateOrderRequest
	svc := &mockOrderService{
		createFn: func(ctx context.Context, req service.CreateOrderRequest) (*database.Order, error) {
			got = req
			return &database.Order{ID: uuid.New(), UserID: req.UserID, OrderStatus: enum.OrderStatusPending}, nil
		},
	}
	r := newOrderRouter(svc, &mockOrderReadStore{})

	rr := doAuthRequest(t, r, "POST", "/orders", checkoutBody(uuid.New()), userID, enum.UserRoleClient)

	if rr.Code != http.StatusCreated {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusCreated, rr.Body.String())
	}
	// The order is always placed for the authenticated user, not a body field.
	if got.UserID != userID {
		t.Errorf("service got user %v, want %v", got.UserID, userID)
	}
}

func TestCreateOrderEndpoint_RequiresAuth(t *testing.T) {
	r := newOrderRouter(&mockOrderService{}, &mockOrderReadStore{})

	b, _ := json.Marshal(checkoutBody(uuid.New()))
	req := httptest.NewRequest("POST", "/orders", bytes.NewReader(b))
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusUnauthorized)
	}
}

func TestCreateOrderEndpoint_InsufficientStockConflicts(t *testing.T) {
	svc := &mockOrderService{
		createFn: func(ctx context.Context, req service.CreateOrderRequest) (*database.Order, error) {
			return nil, service.ErrInsufficientStock
		},
	}
	r := newOrderRouter(svc, &mockOrderReadStore{})

	rr := doAuthRequest(t, r, "POST", "/orders", checkoutBody(uuid.New()), uuid.New(), enum.UserRoleClient)

	if rr.Code != http.StatusConflict {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusConflict)
	}
}

func TestCreateOrderEndpoint_UnknownProductNotFound(t *testing.T) {
	svc := &mockOrderService{
		createFn: func(ctx context.Context, req service.CreateOrderRequest) (*database.Order, error) {
			return nil, service.ErrProductNotFound
		},
	}
	r := newOrderRouter(svc, &mockOrderReadStore{})

	rr := doAuthRequest(t, r, "POST", "/orders", checkoutBody(uuid.New()), uuid.New(), enum.UserRoleClient)

	if rr.Code != http.StatusNotFound {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusNotFound)
	}
}

func TestCreateOrderEndpoint_ValidationErrors(t *testing.T) {
	svc := &mockOrderService{
		createFn: func(ctx context.Context, req service.CreateOrderRequest) (*database.Order, error) {
			return nil, service.ErrMissingCustomerInfo
		},
	}
	r := newOrderRouter(svc, &mockOrderReadStore{})

	rr := doAuthRequest(t, r, "POST", "/orders", checkoutBody(uuid.New()), uuid.New(), enum.UserRoleClient)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

// --- List / MyOrders ---

func TestListOrders_StaffOnly(t *testing.T) {
	store := &mockOrderReadStore{
		listOrdersFn: func(ctx context.Context, arg database.ListOrdersParams) ([]database.Order, error) {
			return []database.Order{{ID: uuid.New()}}, nil
		},
	}
	r := newOrderRouter(&mockOrderService{}, store)

	rr := doAuthRequest(t, r, "GET", "/orders", nil, uuid.New(), enum.UserRolePersonnel)
	if rr.Code != http.StatusOK {
		t.Fatalf("staff list status: got %d, want %d", rr.Code, http.StatusOK)
	}

	rr = doAuthRequest(t, r, "GET", "/orders", nil, uuid.New(), enum.UserRoleClient)
	if rr.Code != http.StatusForbidden {
		t.Errorf("client list status: got %d, want %d", rr.Code, http.StatusForbidden)
	}
}

func TestListOrders_StatusFilter(t *testing.T) {
	var got database.ListOrdersParams
	store := &mockOrderReadStore{
		listOrdersFn: func(ctx context.Context, arg database.ListOrdersParams) ([]database.Order, error) {
			got = arg
			return nil, nil
		},
	}
	r := newOrderRouter(&mockOrderService{}, store)

	rr := doAuthRequest(t, r, "GET", "/orders?status=Shipped&limit=5", nil, uuid.New(), enum.UserRoleAdmin)
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusOK)
	}
	if !got.OrderStatus.Valid || got.OrderStatus.String != enum.OrderStatusShipped {
		t.Errorf("status filter = %+v", got.OrderStatus)
	}
	if got.Limit != 5 {
		t.Errorf("limit = %d, want 5", got.Limit)
	}
}

func TestMyOrders_ScopedToCaller(t *testing.T) {
	userID := uuid.New()
	var asked uuid.UUID
	store := &mockOrderReadStore{
		listOrdersByUserFn: func(ctx context.Context, uid uuid.UUID) ([]database.Order, error) {
			asked = uid
			return []database.Order{{ID: uuid.New(), UserID: uid}}, nil
		},
	}
	r := newOrderRouter(&mockOrderService{}, store)

	rr := doAuthRequest(t, r, "GET", "/orders/my-orders", nil, userID, enum.UserRoleClient)
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusOK)
	}
	if asked != userID {
		t.Errorf("queried user %v, want %v", asked, userID)
	}
}

// --- Get ---

func TestGetOrder_OwnerSeesDetail(t *testing.T) {
	ownerID := uuid.New()
	orderID := uuid.New()
	store := &mockOrderReadStore{
		getOrderFn: func(ctx context.Context, id uuid.UUID) (database.Order, error) {
			return database.Order{ID: orderID, UserID: ownerID}, nil
		},
		listPaymentReceiptsByOrderFn: func(ctx context.Context, oid uuid.UUID) ([]database.PaymentReceipt, error) {
			return []database.PaymentReceipt{
				{ID: uuid.New(), OrderID: oid, Stage: enum.InstallmentStageInitial, Url: "https://cdn.example.com/r1.jpg"},
			}, nil
		},
	}
	r := newOrderRouter(&mockOrderService{}, store)

	rr := doAuthRequest(t, r, "GET", "/orders/"+orderID.String(), nil, ownerID, enum.UserRoleClient)
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}

	resp := decodeResponse(t, rr)
	receipts, ok := resp["payment_receipts"].(map[string]interface{})
	if !ok {
		t.Fatal("expected payment_receipts object grouped by stage")
	}
	initial, ok := receipts[enum.InstallmentStageInitial].([]interface{})
	if !ok || len(initial) != 1 {
		t.Errorf("initial stage receipts = %v", receipts[enum.InstallmentStageInitial])
	}
	if _, ok := receipts[enum.InstallmentStageFinal]; !ok {
		t.Error("expected final stage key even when empty")
	}
}

func TestGetOrder_OtherClientForbidden(t *testing.T) {
	orderID := uuid.New()
	store := &mockOrderReadStore{
		getOrderFn: func(ctx context.Context, id uuid.UUID) (database.Order, error) {
			return database.Order{ID: orderID, UserID: uuid.New()}, nil
		},
	}
	r := newOrderRouter(&mockOrderService{}, store)

	rr := doAuthRequest(t, r, "GET", "/orders/"+orderID.String(), nil, uuid.New(), enum.UserRoleClient)
	if rr.Code != http.StatusForbidden {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusForbidden)
	}
}

func TestGetOrder_NotFound(t *testing.T) {
	store := &mockOrderReadStore{
		getOrderFn: func(ctx context.Context, id uuid.UUID) (database.Order, error) {
			return database.Order{}, pgx.ErrNoRows
		},
	}
	r := newOrderRouter(&mockOrderService{}, store)

	rr := doAuthRequest(t, r, "GET", "/orders/"+uuid.New().String(), nil, uuid.New(), enum.UserRoleAdmin)
	if rr.Code != http.StatusNotFound {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusNotFound)
	}
}

// --- Update ---

func TestUpdateOrder_MapsServiceErrors(t *testing.T) {
	cases := []struct {
		err  error
		code int
	}{
		{service.ErrOrderNotFound, http.StatusNotFound},
		{service.ErrForbidden, http.StatusForbidden},
		{service.ErrNoChanges, http.StatusBadRequest},
		{service.ErrInvalidOrderStatus, http.StatusBadRequest},
		{errors.New("tx deadlock"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		svc := &mockOrderService{
			updateFn: func(ctx context.Context, actor service.Actor, orderID uuid.UUID, req service.UpdateOrderRequest) (*database.Order, error) {
				return nil, tc.err
			},
		}
		r := newOrderRouter(svc, &mockOrderReadStore{})

		rr := doAuthRequest(t, r, "PATCH", "/orders/"+uuid.New().String(),
			map[string]string{"order_status": enum.OrderStatusProcessing},
			uuid.New(), enum.UserRoleAdmin)
		if rr.Code != tc.code {
			t.Errorf("%v: status: got %d, want %d", tc.err, rr.Code, tc.code)
		}
	}
}

func TestUpdateOrder_PassesActorAndPatch(t *testing.T) {
	userID := uuid.New()
	orderID := uuid.New()
	var gotActor service.Actor
	var gotReq service.UpdateOrderRequest
	svc := &mockOrderService{
		updateFn: func(ctx context.Context, actor service.Actor, oid uuid.UUID, req service.UpdateOrderRequest) (*database.Order, error) {
			gotActor = actor
			gotReq = req
			return &database.Order{ID: oid, OrderStatus: req.OrderStatus}, nil
		},
	}
	r := newOrderRouter(svc, &mockOrderReadStore{})

	rr := doAuthRequest(t, r, "PATCH", "/orders/"+orderID.String(), map[string]string{
		"order_status":   enum.OrderStatusShipped,
		"payment_status": enum.PaymentStatus90Paid,
	}, userID, enum.UserRolePersonnel)

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}
	if gotActor.ID != userID || gotActor.Role != enum.UserRolePersonnel {
		t.Errorf("actor = %+v", gotActor)
	}
	if gotReq.OrderStatus != enum.OrderStatusShipped || gotReq.PaymentStatus != enum.PaymentStatus90Paid {
		t.Errorf("patch = %+v", gotReq)
	}
}

// --- Cancel ---

func TestCancelOrder_Endpoint(t *testing.T) {
	orderID := uuid.New()
	svc := &mockOrderService{
		cancelFn: func(ctx context.Context, actor service.Actor, oid uuid.UUID) (*database.Order, error) {
			return &database.Order{ID: oid, OrderStatus: enum.OrderStatusCancelled}, nil
		},
	}
	r := newOrderRouter(svc, &mockOrderReadStore{})

	rr := doAuthRequest(t, r, "DELETE", "/orders/"+orderID.String(), nil, uuid.New(), enum.UserRoleClient)
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}
}

func TestCancelOrder_AlreadyProcessingConflicts(t *testing.T) {
	svc := &mockOrderService{
		cancelFn: func(ctx context.Context, actor service.Actor, oid uuid.UUID) (*database.Order, error) {
			return nil, service.ErrNotCancellable
		},
	}
	r := newOrderRouter(svc, &mockOrderReadStore{})

	rr := doAuthRequest(t, r, "DELETE", "/orders/"+uuid.New().String(), nil, uuid.New(), enum.UserRoleClient)
	if rr.Code != http.StatusConflict {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusConflict)
	}
}

// --- Uploads ---

func TestUploads_StaffOnly(t *testing.T) {
	store := &mockOrderReadStore{
		listReceiptUploadsFn: func(ctx context.Context) ([]database.ListReceiptUploadsRow, error) {
			return []database.ListReceiptUploadsRow{{CustomerName: "Budi Santoso"}}, nil
		},
	}
	r := newOrderRouter(&mockOrderService{}, store)

	rr := doAuthRequest(t, r, "GET", "/orders/uploads", nil, uuid.New(), enum.UserRoleAdmin)
	if rr.Code != http.StatusOK {
		t.Fatalf("staff uploads status: got %d, want %d", rr.Code, http.StatusOK)
	}

	rr = doAuthRequest(t, r, "GET", "/orders/uploads", nil, uuid.New(), enum.UserRoleClient)
	if rr.Code != http.StatusForbidden {
		t.Errorf("client uploads status: got %d, want %d", rr.Code, http.StatusForbidden)
	}
}
