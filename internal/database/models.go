package database

import (
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type User struct {
	ID             uuid.UUID   `json:"id"`
	Email          string      `json:"email"`
	HashedPassword string      `json:"-"`
	FullName       string      `json:"full_name"`
	Role           string      `json:"role"`
	Phone          pgtype.Text `json:"phone"`
	Address        pgtype.Text `json:"address"`
	Status         pgtype.Text `json:"status"`
	Position       pgtype.Text `json:"position"`
	Department     pgtype.Text `json:"department"`
	IsActive       bool        `json:"is_active"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
}

type Product struct {
	ID             uuid.UUID      `json:"id"`
	Name           string         `json:"name"`
	Description    pgtype.Text    `json:"description"`
	Category       pgtype.Text    `json:"category"`
	Price          pgtype.Numeric `json:"price"`
	Stock          int32          `json:"stock"`
	Images         []string       `json:"images"`
	Specifications pgtype.Text    `json:"specifications"`
	IsActive       bool           `json:"is_active"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

type Order struct {
	ID                uuid.UUID      `json:"id"`
	UserID            uuid.UUID      `json:"user_id"`
	CustomerName      string         `json:"customer_name"`
	CustomerEmail     string         `json:"customer_email"`
	CustomerPhone     pgtype.Text    `json:"customer_phone"`
	DeliveryAddress   string         `json:"delivery_address"`
	PaymentMethod     string         `json:"payment_method"`
	InstallmentStage  pgtype.Text    `json:"installment_stage"`
	PaymentMode       pgtype.Text    `json:"payment_mode"`
	PaymentTiming     pgtype.Text    `json:"payment_timing"`
	PaymentStatus     string         `json:"payment_status"`
	OrderStatus       string         `json:"order_status"`
	TotalAmount       pgtype.Numeric `json:"total_amount"`
	LocationImages    []string       `json:"location_images"`
	ContractSignature pgtype.Text    `json:"contract_signature"`
	AgreedToTerms     bool           `json:"agreed_to_terms"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
}

type OrderItem struct {
	ID        uuid.UUID      `json:"id"`
	OrderID   uuid.UUID      `json:"order_id"`
	ProductID uuid.UUID      `json:"product_id"`
	Quantity  int32          `json:"quantity"`
	UnitPrice pgtype.Numeric `json:"unit_price"`
	Subtotal  pgtype.Numeric `json:"subtotal"`
}

type TrackingUpdate struct {
	ID        uuid.UUID `json:"id"`
	OrderID   uuid.UUID `json:"order_id"`
	Status    string    `json:"status"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

type PaymentReceipt struct {
	ID         uuid.UUID `json:"id"`
	OrderID    uuid.UUID `json:"order_id"`
	Stage      string    `json:"stage"`
	Url        string    `json:"url"`
	UploadedBy uuid.UUID `json:"uploaded_by"`
	CreatedAt  time.Time `json:"created_at"`
}

type Notification struct {
	ID        uuid.UUID   `json:"id"`
	UserID    uuid.UUID   `json:"user_id"`
	OrderID   pgtype.UUID `json:"order_id"`
	Type      string      `json:"type"`
	Title     string      `json:"title"`
	Message   string      `json:"message"`
	IsRead    bool        `json:"is_read"`
	CreatedAt time.Time   `json:"created_at"`
}

type ActivityLog struct {
	ID        uuid.UUID   `json:"id"`
	UserID    pgtype.UUID `json:"user_id"`
	UserName  string      `json:"user_name"`
	Action    string      `json:"action"`
	Details   string      `json:"details"`
	Category  string      `json:"category"`
	CreatedAt time.Time   `json:"created_at"`
}
