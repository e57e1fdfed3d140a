package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type CheckoutStatus string

const (
	CheckoutCreated            CheckoutStatus = "created"
	CheckoutGatewayOrderIssued CheckoutStatus = "gateway_order_issued"
	CheckoutVerified           CheckoutStatus = "verified"
	CheckoutCompleted          CheckoutStatus = "completed"
	CheckoutFailed             CheckoutStatus = "failed"
)

// CheckoutTransitions is the checkout attempt state machine.
var CheckoutTransitions = map[CheckoutStatus][]CheckoutStatus{
	CheckoutCreated:            {CheckoutGatewayOrderIssued, CheckoutFailed},
	CheckoutGatewayOrderIssued: {CheckoutVerified, CheckoutFailed},
	CheckoutVerified:           {CheckoutCompleted, CheckoutFailed},
	CheckoutCompleted:          {},
	CheckoutFailed:             {},
}

// CheckoutAttempt records one pass through create-order and verify-payment.
type CheckoutAttempt struct {
	ID               uuid.UUID       `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	UserID           uuid.UUID       `gorm:"type:uuid;not null;index" json:"user_id"`
	CartID           uuid.UUID       `gorm:"type:uuid;not null" json:"cart_id"`
	Status           CheckoutStatus  `gorm:"not null;index" json:"status"`
	QuantityPolicy   string          `gorm:"not null" json:"quantity_policy"`
	Amount           decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount"`
	AmountMinor      int64           `gorm:"not null" json:"amount_minor"`
	Currency         string          `gorm:"not null" json:"currency"`
	Receipt          string          `gorm:"not null" json:"receipt"`
	GatewayOrderID   string          `gorm:"index" json:"gateway_order_id,omitempty"`
	GatewayPaymentID string          `json:"gateway_payment_id,omitempty"`
	OrderID          *uuid.UUID      `gorm:"type:uuid" json:"order_id,omitempty"`
	FailureReason    string          `json:"failure_reason,omitempty"`
	Lines            []CheckoutLine  `gorm:"serializer:json;not null" json:"lines"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// CheckoutLine is a cart line as it was priced when the gateway order was
// issued.
type CheckoutLine struct {
	ProductID uuid.UUID       `json:"product_id"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

// CheckoutLinesFromCart copies the priced lines of a cart.
func CheckoutLinesFromCart(cart *Cart) []CheckoutLine {
	lines := make([]CheckoutLine, 0, len(cart.Items))
	for _, item := range cart.Items {
		lines = append(lines, CheckoutLine{
			ProductID: item.ProductID,
			Name:      item.Name,
			Quantity:  item.Quantity,
			Price:     item.Price,
		})
	}
	return lines
}

func (a *CheckoutAttempt) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.Status == "" {
		a.Status = CheckoutCreated
	}
	return nil
}

func IsValidCheckoutTransition(from, to CheckoutStatus) bool {
	for _, s := range CheckoutTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// TransitionTo moves the attempt to a new status if the state machine allows it.
func (a *CheckoutAttempt) TransitionTo(to CheckoutStatus) error {
	if !IsValidCheckoutTransition(a.Status, to) {
		return fmt.Errorf("invalid checkout transition %s -> %s", a.Status, to)
	}
	a.Status = to
	return nil
}
