package models

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var ErrOrderImmutable = errors.New("orders cannot be modified once created")

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "Pending"
	PaymentStatusCompleted PaymentStatus = "Completed"
	PaymentStatusFailed    PaymentStatus = "Failed"
)

// PaymentDetails holds the gateway references of a verified payment.
type PaymentDetails struct {
	GatewayOrderID   string `gorm:"index" json:"razorpay_order_id"`
	GatewayPaymentID string `json:"razorpay_payment_id"`
	GatewaySignature string `json:"razorpay_signature"`
}

// Order is the immutable record of a completed purchase.
type Order struct {
	ID            uuid.UUID       `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	BuyerID       uuid.UUID       `gorm:"type:uuid;not null;index" json:"buyer"`
	Buyer         *User           `gorm:"foreignKey:BuyerID" json:"buyer_details,omitempty"`
	Products      []OrderItem     `gorm:"foreignKey:OrderID" json:"products"`
	Payment       PaymentDetails  `gorm:"embedded" json:"payment"`
	TotalAmount   decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"total_amount"`
	PaymentStatus PaymentStatus   `gorm:"not null" json:"payment_status"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

type OrderItem struct {
	ID        uuid.UUID       `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	OrderID   uuid.UUID       `gorm:"type:uuid;not null;index" json:"-"`
	ProductID uuid.UUID       `gorm:"type:uuid;not null;index" json:"product"`
	Name      string          `json:"name"`
	Quantity  int             `gorm:"not null" json:"quantity"`
	Price     decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"price"`
	CreatedAt time.Time       `json:"created_at"`
}

func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}

func (oi *OrderItem) BeforeCreate(tx *gorm.DB) error {
	if oi.ID == uuid.Nil {
		oi.ID = uuid.New()
	}
	return nil
}

// Orders are append-only; updates are refused at the ORM layer.
func (o *Order) BeforeUpdate(tx *gorm.DB) error {
	return ErrOrderImmutable
}
