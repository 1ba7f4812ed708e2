package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/prefabmart/api/internal/database"
	"github.com/prefabmart/api/internal/enum"
	"github.com/prefabmart/api/internal/ws"
)

// DispatchStore defines the DB methods the dispatcher needs.
// Satisfied by *database.Queries bound to the pool; dispatch runs outside
// the order transaction.
type DispatchStore interface {
	CreateNotification(ctx context.Context, arg database.CreateNotificationParams) (database.Notification, error)
	ListStaffUsers(ctx context.Context) ([]database.User, error)
}

// Broadcaster pushes an event to every live connection of one user.
// Satisfied by *ws.Hub.
type Broadcaster interface {
	BroadcastToUser(userID uuid.UUID, event ws.Event)
}

// Dispatcher turns committed order changes into notifications. Every path
// is best-effort: a failed insert or push is logged and dropped, it never
// propagates back to the request that caused it.
type Dispatcher struct {
	store DispatchStore
	hub   Broadcaster
}

// NewDispatcher creates a new Dispatcher.
func NewDispatcher(store DispatchStore, hub Broadcaster) *Dispatcher {
	return &Dispatcher{store: store, hub: hub}
}

// notification is a rule's output before it is addressed to a user.
type notification struct {
	typ     string
	title   string
	message string
}

// notificationRule pairs a predicate over an order change with the
// notification it produces. Rules are evaluated in order and the first
// match wins, so the specific cases must stay above the generic ones.
type notificationRule struct {
	match func(c OrderChange) bool
	build func(c OrderChange) notification
}

var orderUpdateRules = []notificationRule{
	{
		// Fully paid and completed. Suppressed when the order was
		// already in that terminal state before the change.
		match: func(c OrderChange) bool {
			was := c.Before.OrderStatus == enum.OrderStatusCompleted &&
				c.Before.PaymentStatus == enum.PaymentStatus100Paid
			now := c.After.OrderStatus == enum.OrderStatusCompleted &&
				c.After.PaymentStatus == enum.PaymentStatus100Paid
			return now && !was
		},
		build: func(c OrderChange) notification {
			return notification{
				typ:     enum.NotificationTypeOrderCompleted,
				title:   "Order Completed",
				message: fmt.Sprintf("Your order %s is complete and fully paid. Thank you for building with us!", shortID(c.After.ID)),
			}
		},
	},
	{
		match: func(c OrderChange) bool {
			return c.StatusChanged() &&
				c.After.OrderStatus == enum.OrderStatusInProduction &&
				c.After.PaymentMethod == enum.PaymentMethodInstallment
		},
		build: func(c OrderChange) notification {
			return notification{
				typ:     enum.NotificationTypePaymentRequest,
				title:   "Payment Due: " + StageLabel(enum.InstallmentStagePreDelivery),
				message: fmt.Sprintf("Your order %s has entered production. The pre-delivery payment (40%%) is now due.", shortID(c.After.ID)),
			}
		},
	},
	{
		match: func(c OrderChange) bool {
			return c.StatusChanged() &&
				c.After.OrderStatus == enum.OrderStatusShipped &&
				c.After.PaymentMethod == enum.PaymentMethodInstallment
		},
		build: func(c OrderChange) notification {
			return notification{
				typ:     enum.NotificationTypePaymentRequest,
				title:   "Payment Due: " + StageLabel(enum.InstallmentStageFinal),
				message: fmt.Sprintf("Your order %s has been shipped. The final payment (10%%) is now due.", shortID(c.After.ID)),
			}
		},
	},
	{
		match: func(c OrderChange) bool {
			return c.Before.OrderStatus == enum.OrderStatusPending &&
				c.After.OrderStatus == enum.OrderStatusProcessing
		},
		build: func(c OrderChange) notification {
			return notification{
				typ:     enum.NotificationTypeReservationConfirmed,
				title:   "Reservation Confirmed",
				message: fmt.Sprintf("Your order %s has been verified and your reservation is confirmed.", shortID(c.After.ID)),
			}
		},
	},
	{
		match: func(c OrderChange) bool {
			return c.StatusChanged() && c.After.OrderStatus == enum.OrderStatusCancelled
		},
		build: func(c OrderChange) notification {
			return notification{
				typ:     enum.NotificationTypeOrderUpdate,
				title:   "Order Cancelled",
				message: fmt.Sprintf("Your order %s has been cancelled and reserved stock released.", shortID(c.After.ID)),
			}
		},
	},
	{
		match: func(c OrderChange) bool { return c.StatusChanged() },
		build: func(c OrderChange) notification {
			return notification{
				typ:     enum.NotificationTypeOrderUpdate,
				title:   "Order Update",
				message: fmt.Sprintf("Your order %s is now %s.", shortID(c.After.ID), c.After.OrderStatus),
			}
		},
	},
	{
		// Payment-only change. Confirmations for a recorded payment,
		// plain updates for anything else (e.g. reset to Pending).
		match: func(c OrderChange) bool { return c.PaymentChanged() },
		build: func(c OrderChange) notification {
			if strings.Contains(c.After.PaymentStatus, "Paid") {
				return notification{
					typ:     enum.NotificationTypePaymentConfirmed,
					title:   "Payment Confirmed",
					message: fmt.Sprintf("Your payment for order %s has been confirmed: %s.", shortID(c.After.ID), c.After.PaymentStatus),
				}
			}
			return notification{
				typ:     enum.NotificationTypePaymentUpdate,
				title:   "Payment Update",
				message: fmt.Sprintf("The payment status of your order %s changed to %s.", shortID(c.After.ID), c.After.PaymentStatus),
			}
		},
	},
}

// OrderCreated tells the customer their order is in and alerts every staff
// account that a new order needs verification.
func (d *Dispatcher) OrderCreated(ctx context.Context, order database.Order) {
	d.deliver(ctx, order.UserID, order.ID, notification{
		typ:     enum.NotificationTypeOrderUpdate,
		title:   "Order Received",
		message: fmt.Sprintf("Your order %s has been placed and is awaiting verification.", shortID(order.ID)),
	})

	d.fanOutToStaff(ctx, order.ID, notification{
		typ:     enum.NotificationTypeNewOrder,
		title:   "New Order",
		message: fmt.Sprintf("%s placed order %s and is awaiting verification.", order.CustomerName, shortID(order.ID)),
	})
}

// OrderUpdated runs the change through the rule table and delivers the
// first match to the order's owner.
func (d *Dispatcher) OrderUpdated(ctx context.Context, change OrderChange) {
	for _, rule := range orderUpdateRules {
		if rule.match(change) {
			d.deliver(ctx, change.After.UserID, change.After.ID, rule.build(change))
			return
		}
	}
}

// ReceiptUploaded alerts staff that a customer receipt needs review.
func (d *Dispatcher) ReceiptUploaded(ctx context.Context, order database.Order, stage string) {
	d.fanOutToStaff(ctx, order.ID, notification{
		typ:     enum.NotificationTypePaymentReceipt,
		title:   "Payment Receipt Uploaded",
		message: fmt.Sprintf("%s uploaded a receipt for %s on order %s.", order.CustomerName, StageLabel(stage), shortID(order.ID)),
	})
}

func (d *Dispatcher) fanOutToStaff(ctx context.Context, orderID uuid.UUID, n notification) {
	staff, err := d.store.ListStaffUsers(ctx)
	if err != nil {
		log.Printf("ERROR: dispatch: list staff users: %v", err)
		return
	}
	for _, u := range staff {
		d.deliver(ctx, u.ID, orderID, n)
	}
}

func (d *Dispatcher) deliver(ctx context.Context, userID, orderID uuid.UUID, n notification) {
	created, err := d.store.CreateNotification(ctx, database.CreateNotificationParams{
		UserID:  userID,
		OrderID: pgtype.UUID{Bytes: orderID, Valid: true},
		Type:    n.typ,
		Title:   n.title,
		Message: n.message,
	})
	if err != nil {
		log.Printf("ERROR: dispatch: create notification (%s for %s): %v", n.typ, userID, err)
		return
	}

	payload, err := json.Marshal(created)
	if err != nil {
		log.Printf("ERROR: dispatch: marshal notification %s: %v", created.ID, err)
		return
	}
	d.hub.BroadcastToUser(userID, ws.Event{
		Type:    "notification.created",
		Payload: payload,
	})
}

// shortID renders a uuid the way order numbers appear in the storefront.
func shortID(id uuid.UUID) string {
	return "#" + strings.ToUpper(id.String()[:8])
}
