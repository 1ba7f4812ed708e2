package service

import (
	"github.com/google/uuid"
	"github.com/prefabmart/api/internal/enum"
)

// Actor is the authenticated principal performing an operation, as carried
// by the request's JWT claims.
type Actor struct {
	ID   uuid.UUID
	Role string
}

// IsStaff reports whether the role may act on any order.
func IsStaff(role string) bool {
	return role == enum.UserRoleAdmin || role == enum.UserRolePersonnel
}

// CanViewOrder allows staff to read any order and clients only their own.
func CanViewOrder(actor Actor, ownerID uuid.UUID) bool {
	if IsStaff(actor.Role) {
		return true
	}
	return actor.Role == enum.UserRoleClient && actor.ID == ownerID
}

// CanSetOrderState gates order_status / payment_status / installment_stage
// mutations. Clients never set these directly, regardless of ownership.
func CanSetOrderState(actor Actor) bool {
	return IsStaff(actor.Role)
}

// CanAttachReceipt allows staff on any order and the owning client on theirs.
func CanAttachReceipt(actor Actor, ownerID uuid.UUID) bool {
	if IsStaff(actor.Role) {
		return true
	}
	return actor.Role == enum.UserRoleClient && actor.ID == ownerID
}

// CanCancelOrder restricts cancellation to the owning client. Staff express
// the same outcome by setting order_status to Cancelled through an update.
func CanCancelOrder(actor Actor, ownerID uuid.UUID) bool {
	return actor.Role == enum.UserRoleClient && actor.ID == ownerID
}
