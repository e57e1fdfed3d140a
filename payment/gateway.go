// Package payment talks to the payment gateway: order creation and
// verification of the checkout callback signature.
package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
)

var (
	ErrInvalidSignature = errors.New("payment signature mismatch")
	ErrNotConfigured    = errors.New("payment gateway credentials not configured")
	ErrOrderCreation    = errors.New("gateway did not return an order")
)

type CreateOrderParams struct {
	AmountMinor int64
	Currency    string
	Receipt     string
	Notes       map[string]string
}

// Order is the gateway-side order handle returned to the client so it can
// open the checkout widget.
type Order struct {
	ID        string `json:"id"`
	Amount    int64  `json:"amount"`
	Currency  string `json:"currency"`
	Receipt   string `json:"receipt"`
	Status    string `json:"status"`
	CreatedAt int64  `json:"created_at"`
}

type Gateway interface {
	CreateOrder(ctx context.Context, params CreateOrderParams) (*Order, error)
	VerifyPaymentSignature(orderID, paymentID, signature string) error
	// KeyID is the public key the storefront needs for the checkout widget.
	KeyID() string
}

// Signature computes hex(HMAC-SHA256(secret, orderID + "|" + paymentID)).
func Signature(secret, orderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature compares in constant time.
func VerifySignature(secret, orderID, paymentID, signature string) error {
	expected := Signature(secret, orderID, paymentID)
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return ErrInvalidSignature
	}
	return nil
}

// Disabled stands in when no gateway credentials are configured. Every call
// fails with ErrNotConfigured.
type Disabled struct{}

func (Disabled) CreateOrder(ctx context.Context, params CreateOrderParams) (*Order, error) {
	return nil, ErrNotConfigured
}

func (Disabled) VerifyPaymentSignature(orderID, paymentID, signature string) error {
	return ErrNotConfigured
}

func (Disabled) KeyID() string { return "" }
