package service

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/prefabmart/api/internal/database"
	"github.com/prefabmart/api/internal/enum"
	"github.com/prefabmart/api/internal/ws"
)

// mockDispatchStore records created notifications.
type mockDispatchStore struct {
	notifications []database.CreateNotificationParams
	staff         []database.User
	createErr     error
}

func (m *mockDispatchStore) CreateNotification(ctx context.Context, arg database.CreateNotificationParams) (database.Notification, error) {
	if m.createErr != nil {
		return database.Notification{}, m.createErr
	}
	m.notifications = append(m.notifications, arg)
	return database.Notification{
		ID:      uuid.New(),
		UserID:  arg.UserID,
		OrderID: arg.OrderID,
		Type:    arg.Type,
		Title:   arg.Title,
		Message: arg.Message,
	}, nil
}

func (m *mockDispatchStore) ListStaffUsers(ctx context.Context) ([]database.User, error) {
	return m.staff, nil
}

// mockBroadcaster records pushed events.
type mockBroadcaster struct {
	events []struct {
		userID uuid.UUID
		event  ws.Event
	}
}

func (m *mockBroadcaster) BroadcastToUser(userID uuid.UUID, event ws.Event) {
	m.events = append(m.events, struct {
		userID uuid.UUID
		event  ws.Event
	}{userID, event})
}

func newTestDispatcher() (*Dispatcher, *mockDispatchStore, *mockBroadcaster) {
	store := &mockDispatchStore{}
	hub := &mockBroadcaster{}
	return NewDispatcher(store, hub), store, hub
}

func installmentOrder(status, payment string) database.Order {
	return database.Order{
		ID:            uuid.New(),
		UserID:        uuid.New(),
		CustomerName:  "Budi Santoso",
		PaymentMethod: enum.PaymentMethodInstallment,
		OrderStatus:   status,
		PaymentStatus: payment,
	}
}

func change(before, after database.Order) OrderChange {
	after.ID = before.ID
	after.UserID = before.UserID
	after.PaymentMethod = before.PaymentMethod
	return OrderChange{Before: before, After: after}
}

// single asserts exactly one notification went out and returns it.
func single(t *testing.T, store *mockDispatchStore) database.CreateNotificationParams {
	t.Helper()
	if len(store.notifications) != 1 {
		t.Fatalf("got %d notifications, want 1", len(store.notifications))
	}
	return store.notifications[0]
}

func TestOrderUpdated_CompletedAndFullyPaid(t *testing.T) {
	d, store, _ := newTestDispatcher()

	before := installmentOrder(enum.OrderStatusDelivered, enum.PaymentStatus100Paid)
	after := installmentOrder(enum.OrderStatusCompleted, enum.PaymentStatus100Paid)
	d.OrderUpdated(context.Background(), change(before, after))

	n := single(t, store)
	if n.Type != enum.NotificationTypeOrderCompleted {
		t.Errorf("type = %q, want %q", n.Type, enum.NotificationTypeOrderCompleted)
	}
}

func TestOrderUpdated_AlreadyCompletedIsSilent(t *testing.T) {
	d, store, _ := newTestDispatcher()

	// Completed + fully paid on both sides; a redundant write upstream
	// must not re-congratulate the customer. Nothing else changed either,
	// so no rule fires.
	before := installmentOrder(enum.OrderStatusCompleted, enum.PaymentStatus100Paid)
	after := installmentOrder(enum.OrderStatusCompleted, enum.PaymentStatus100Paid)
	d.OrderUpdated(context.Background(), change(before, after))

	if len(store.notifications) != 0 {
		t.Fatalf("got %d notifications, want 0", len(store.notifications))
	}
}

func TestOrderUpdated_InProductionRequestsPreDeliveryPayment(t *testing.T) {
	d, store, _ := newTestDispatcher()

	before := installmentOrder(enum.OrderStatusProcessing, enum.PaymentStatus50Paid)
	after := installmentOrder(enum.OrderStatusInProduction, enum.PaymentStatus50Paid)
	d.OrderUpdated(context.Background(), change(before, after))

	n := single(t, store)
	if n.Type != enum.NotificationTypePaymentRequest {
		t.Errorf("type = %q, want %q", n.Type, enum.NotificationTypePaymentRequest)
	}
	if !strings.Contains(n.Message, "40%") {
		t.Errorf("message %q should name the 40%% tranche", n.Message)
	}
}

func TestOrderUpdated_ShippedRequestsFinalPayment(t *testing.T) {
	d, store, _ := newTestDispatcher()

	before := installmentOrder(enum.OrderStatusInProduction, enum.PaymentStatus90Paid)
	after := installmentOrder(enum.OrderStatusShipped, enum.PaymentStatus90Paid)
	d.OrderUpdated(context.Background(), change(before, after))

	n := single(t, store)
	if n.Type != enum.NotificationTypePaymentRequest {
		t.Errorf("type = %q, want %q", n.Type, enum.NotificationTypePaymentRequest)
	}
	if !strings.Contains(n.Message, "10%") {
		t.Errorf("message %q should name the 10%% tranche", n.Message)
	}
}

func TestOrderUpdated_FullPaymentOrderGetsNoPaymentRequest(t *testing.T) {
	d, store, _ := newTestDispatcher()

	before := installmentOrder(enum.OrderStatusProcessing, enum.PaymentStatusPending)
	before.PaymentMethod = enum.PaymentMethodFull
	after := installmentOrder(enum.OrderStatusInProduction, enum.PaymentStatusPending)
	d.OrderUpdated(context.Background(), change(before, after))

	// Falls through to the generic status update instead.
	n := single(t, store)
	if n.Type != enum.NotificationTypeOrderUpdate {
		t.Errorf("type = %q, want %q", n.Type, enum.NotificationTypeOrderUpdate)
	}
}

func TestOrderUpdated_PendingToProcessingConfirmsReservation(t *testing.T) {
	d, store, _ := newTestDispatcher()

	before := installmentOrder(enum.OrderStatusPending, enum.PaymentStatusPending)
	after := installmentOrder(enum.OrderStatusProcessing, enum.PaymentStatusPending)
	d.OrderUpdated(context.Background(), change(before, after))

	n := single(t, store)
	if n.Type != enum.NotificationTypeReservationConfirmed {
		t.Errorf("type = %q, want %q", n.Type, enum.NotificationTypeReservationConfirmed)
	}
}

func TestOrderUpdated_Cancelled(t *testing.T) {
	d, store, _ := newTestDispatcher()

	before := installmentOrder(enum.OrderStatusPending, enum.PaymentStatusPending)
	after := installmentOrder(enum.OrderStatusCancelled, enum.PaymentStatusPending)
	d.OrderUpdated(context.Background(), change(before, after))

	n := single(t, store)
	if n.Type != enum.NotificationTypeOrderUpdate {
		t.Errorf("type = %q, want %q", n.Type, enum.NotificationTypeOrderUpdate)
	}
	if !strings.Contains(n.Message, "cancelled") {
		t.Errorf("message %q should mention cancellation", n.Message)
	}
}

func TestOrderUpdated_PaymentOnlyConfirmed(t *testing.T) {
	d, store, _ := newTestDispatcher()

	before := installmentOrder(enum.OrderStatusProcessing, enum.PaymentStatusPending)
	after := installmentOrder(enum.OrderStatusProcessing, enum.PaymentStatus50Paid)
	d.OrderUpdated(context.Background(), change(before, after))

	n := single(t, store)
	if n.Type != enum.NotificationTypePaymentConfirmed {
		t.Errorf("type = %q, want %q", n.Type, enum.NotificationTypePaymentConfirmed)
	}
}

func TestOrderUpdated_PaymentResetIsPlainUpdate(t *testing.T) {
	d, store, _ := newTestDispatcher()

	before := installmentOrder(enum.OrderStatusProcessing, enum.PaymentStatus50Paid)
	after := installmentOrder(enum.OrderStatusProcessing, enum.PaymentStatusPending)
	d.OrderUpdated(context.Background(), change(before, after))

	n := single(t, store)
	if n.Type != enum.NotificationTypePaymentUpdate {
		t.Errorf("type = %q, want %q", n.Type, enum.NotificationTypePaymentUpdate)
	}
}

func TestOrderUpdated_FirstMatchWins(t *testing.T) {
	d, store, _ := newTestDispatcher()

	// Status and payment both change, and the status change alone matches
	// the production payment-request rule. Only that one fires.
	before := installmentOrder(enum.OrderStatusProcessing, enum.PaymentStatusPending)
	after := installmentOrder(enum.OrderStatusInProduction, enum.PaymentStatus50Paid)
	d.OrderUpdated(context.Background(), change(before, after))

	n := single(t, store)
	if n.Type != enum.NotificationTypePaymentRequest {
		t.Errorf("type = %q, want %q", n.Type, enum.NotificationTypePaymentRequest)
	}
}

func TestOrderUpdated_DeliversToOrderOwner(t *testing.T) {
	d, store, hub := newTestDispatcher()

	before := installmentOrder(enum.OrderStatusPending, enum.PaymentStatusPending)
	after := installmentOrder(enum.OrderStatusProcessing, enum.PaymentStatusPending)
	c := change(before, after)
	d.OrderUpdated(context.Background(), c)

	n := single(t, store)
	if n.UserID != c.After.UserID {
		t.Errorf("notification addressed to %v, want owner %v", n.UserID, c.After.UserID)
	}
	if len(hub.events) != 1 {
		t.Fatalf("got %d ws events, want 1", len(hub.events))
	}
	if hub.events[0].userID != c.After.UserID {
		t.Errorf("ws event addressed to %v, want owner %v", hub.events[0].userID, c.After.UserID)
	}
	if hub.events[0].event.Type != "notification.created" {
		t.Errorf("ws event type = %q", hub.events[0].event.Type)
	}
}

func TestOrderCreated_FansOutToStaff(t *testing.T) {
	d, store, _ := newTestDispatcher()
	staffA, staffB := uuid.New(), uuid.New()
	store.staff = []database.User{{ID: staffA}, {ID: staffB}}

	order := installmentOrder(enum.OrderStatusPending, enum.PaymentStatusPending)
	d.OrderCreated(context.Background(), order)

	// One for the customer plus one per staff account.
	if len(store.notifications) != 3 {
		t.Fatalf("got %d notifications, want 3", len(store.notifications))
	}
	if store.notifications[0].UserID != order.UserID {
		t.Errorf("first notification should go to the customer")
	}
	byUser := map[uuid.UUID]string{}
	for _, n := range store.notifications[1:] {
		byUser[n.UserID] = n.Type
	}
	if byUser[staffA] != enum.NotificationTypeNewOrder || byUser[staffB] != enum.NotificationTypeNewOrder {
		t.Errorf("staff notifications = %v", byUser)
	}
}

func TestReceiptUploaded_NamesStageAndCustomer(t *testing.T) {
	d, store, _ := newTestDispatcher()
	store.staff = []database.User{{ID: uuid.New()}}

	order := installmentOrder(enum.OrderStatusInProduction, enum.PaymentStatus50Paid)
	d.ReceiptUploaded(context.Background(), order, enum.InstallmentStagePreDelivery)

	n := single(t, store)
	if n.Type != enum.NotificationTypePaymentReceipt {
		t.Errorf("type = %q, want %q", n.Type, enum.NotificationTypePaymentReceipt)
	}
	if !strings.Contains(n.Message, "Pre-Delivery Payment (40%)") {
		t.Errorf("message %q should carry the stage label", n.Message)
	}
	if !strings.Contains(n.Message, order.CustomerName) {
		t.Errorf("message %q should carry the customer name", n.Message)
	}
}

func TestDeliver_InsertFailureDoesNotPush(t *testing.T) {
	d, store, hub := newTestDispatcher()
	store.createErr = context.DeadlineExceeded

	before := installmentOrder(enum.OrderStatusPending, enum.PaymentStatusPending)
	after := installmentOrder(enum.OrderStatusProcessing, enum.PaymentStatusPending)
	d.OrderUpdated(context.Background(), change(before, after))

	if len(hub.events) != 0 {
		t.Fatalf("got %d ws events after failed insert, want 0", len(hub.events))
	}
}
