package payment

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// MockGateway is an in-memory Gateway for tests. Signatures are checked with
// the real HMAC scheme against Secret unless VerifyFunc is set.
type MockGateway struct {
	CreateOrderFunc func(ctx context.Context, params CreateOrderParams) (*Order, error)
	VerifyFunc      func(orderID, paymentID, signature string) error

	Key    string
	Secret string

	mu      sync.Mutex
	Created []CreateOrderParams
	CallLog []string
}

func NewMockGateway() *MockGateway {
	return &MockGateway{Key: "rzp_test_key", Secret: "rzp_test_secret"}
}

func (m *MockGateway) CreateOrder(ctx context.Context, params CreateOrderParams) (*Order, error) {
	m.mu.Lock()
	m.Created = append(m.Created, params)
	m.CallLog = append(m.CallLog, fmt.Sprintf("CreateOrder(%d, %s)", params.AmountMinor, params.Currency))
	m.mu.Unlock()

	if m.CreateOrderFunc != nil {
		return m.CreateOrderFunc(ctx, params)
	}
	return &Order{
		ID:       "order_" + uuid.NewString()[:14],
		Amount:   params.AmountMinor,
		Currency: params.Currency,
		Receipt:  params.Receipt,
		Status:   "created",
	}, nil
}

func (m *MockGateway) VerifyPaymentSignature(orderID, paymentID, signature string) error {
	m.mu.Lock()
	m.CallLog = append(m.CallLog, fmt.Sprintf("VerifyPaymentSignature(%s, %s)", orderID, paymentID))
	m.mu.Unlock()

	if m.VerifyFunc != nil {
		return m.VerifyFunc(orderID, paymentID, signature)
	}
	return VerifySignature(m.Secret, orderID, paymentID, signature)
}

func (m *MockGateway) KeyID() string {
	return m.Key
}

// Sign returns the signature the gateway would send for orderID/paymentID.
func (m *MockGateway) Sign(orderID, paymentID string) string {
	return Signature(m.Secret, orderID, paymentID)
}

func (m *MockGateway) CreateCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Created)
}
