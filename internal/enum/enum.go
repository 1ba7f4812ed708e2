package enum

// ── Group A: State machines (CHECK constrained in DB) ──

const (
	OrderStatusPending      = "Pending"
	OrderStatusProcessing   = "Processing"
	OrderStatusInProduction = "In Production"
	OrderStatusShipped      = "Shipped"
	OrderStatusDelivered    = "Delivered"
	OrderStatusCompleted    = "Completed"
	OrderStatusCancelled    = "Cancelled"
)

const (
	PaymentStatusPending = "Pending"
	PaymentStatus50Paid  = "50% Complete Paid"
	PaymentStatus90Paid  = "90% Complete Paid"
	PaymentStatus100Paid = "100% Complete Paid"
)

const (
	InstallmentStageInitial     = "initial"
	InstallmentStagePreDelivery = "pre_delivery"
	InstallmentStageFinal       = "final"
)

const (
	StaffStatusActive   = "active"
	StaffStatusOnLeave  = "on_leave"
	StaffStatusInactive = "inactive"
)

// ── Group C: Borderline (CHECK constrained in DB) ──

const (
	UserRoleClient    = "client"
	UserRolePersonnel = "personnel"
	UserRoleAdmin     = "admin"
)

const (
	PaymentMethodInstallment = "installment"
	PaymentMethodFull        = "full"
)

// ── Group B: Configurable labels (no DB constraint) ──

const (
	NotificationTypeNewOrder             = "new_order"
	NotificationTypeOrderUpdate          = "order_update"
	NotificationTypeOrderCompleted       = "order_completed"
	NotificationTypeReservationConfirmed = "reservation_confirmed"
	NotificationTypePaymentRequest       = "payment_request"
	NotificationTypePaymentUpdate        = "payment_update"
	NotificationTypePaymentConfirmed     = "payment_confirmed"
	NotificationTypePaymentReceipt       = "payment_receipt"
)

const (
	ActivityCategoryOrder   = "order"
	ActivityCategoryPayment = "payment"
	ActivityCategoryUser    = "user"
	ActivityCategoryProduct = "product"
	ActivityCategorySystem  = "system"
)
