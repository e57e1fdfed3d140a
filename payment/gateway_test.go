package payment

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestSignatureKnownVector(t *testing.T) {
	// echo -n "order_1|pay_1" | openssl dgst -sha256 -hmac secret
	got := Signature("secret", "order_1", "pay_1")
	want := "52115a0d3400de9e86aade1f1b6eba9e8974604f4e267a9e9a16633a4c8dd2cb"
	if got != want {
		t.Fatalf("expected %s, got %s", want, got)
	}
	if got == Signature("secret", "order_1", "pay_2") {
		t.Error("expected different payment ids to produce different signatures")
	}
	if got == Signature("other", "order_1", "pay_1") {
		t.Error("expected different secrets to produce different signatures")
	}
}

func TestVerifySignature(t *testing.T) {
	sig := Signature("secret", "order_1", "pay_1")
	if err := VerifySignature("secret", "order_1", "pay_1", sig); err != nil {
		t.Errorf("expected valid signature, got %v", err)
	}
}

func TestVerifySignatureTampered(t *testing.T) {
	sig := Signature("secret", "order_1", "pay_1")
	tampered := sig[:len(sig)-1] + "0"
	if tampered == sig {
		tampered = sig[:len(sig)-1] + "1"
	}
	if err := VerifySignature("secret", "order_1", "pay_1", tampered); !errors.Is(err, ErrInvalidSignature) {
		t.Errorf("expected ErrInvalidSignature, got %v", err)
	}
	if err := VerifySignature("secret", "order_1", "pay_1", ""); !errors.Is(err, ErrInvalidSignature) {
		t.Errorf("expected ErrInvalidSignature for empty signature, got %v", err)
	}
}

func TestNewRazorpayGatewayRequiresCredentials(t *testing.T) {
	if _, err := NewRazorpayGateway("", "secret"); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("expected ErrNotConfigured, got %v", err)
	}
	if _, err := NewRazorpayGateway("key", ""); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("expected ErrNotConfigured, got %v", err)
	}
}

type fakeOrders struct {
	data  map[string]interface{}
	body  map[string]interface{}
	err   error
	delay time.Duration
}

func (f *fakeOrders) Create(data map[string]interface{}, extraHeaders map[string]string) (map[string]interface{}, error) {
	f.data = data
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	return f.body, f.err
}

func TestRazorpayCreateOrder(t *testing.T) {
	orders := &fakeOrders{body: map[string]interface{}{
		"id":         "order_abc",
		"amount":     float64(80000),
		"currency":   "INR",
		"receipt":    "receipt_1",
		"status":     "created",
		"created_at": float64(1700000000),
	}}
	gw := &RazorpayGateway{keyID: "key", keySecret: "secret", orders: orders}

	order, err := gw.CreateOrder(context.Background(), CreateOrderParams{AmountMinor: 80000, Currency: "INR", Receipt: "receipt_1"})
	if err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
	if order.ID != "order_abc" || order.Amount != 80000 || order.Currency != "INR" {
		t.Errorf("unexpected order %+v", order)
	}
	if orders.data["amount"] != int64(80000) {
		t.Errorf("expected amount 80000 sent, got %v", orders.data["amount"])
	}
	if orders.data["payment_capture"] != 1 {
		t.Errorf("expected payment_capture 1, got %v", orders.data["payment_capture"])
	}
}

func TestRazorpayCreateOrderError(t *testing.T) {
	gw := &RazorpayGateway{keyID: "key", keySecret: "secret", orders: &fakeOrders{err: errors.New("bad request")}}
	if _, err := gw.CreateOrder(context.Background(), CreateOrderParams{AmountMinor: 100, Currency: "INR"}); err == nil {
		t.Error("expected error from gateway")
	}
}

func TestRazorpayCreateOrderMissingID(t *testing.T) {
	gw := &RazorpayGateway{keyID: "key", keySecret: "secret", orders: &fakeOrders{body: map[string]interface{}{}}}
	if _, err := gw.CreateOrder(context.Background(), CreateOrderParams{AmountMinor: 100, Currency: "INR"}); !errors.Is(err, ErrOrderCreation) {
		t.Errorf("expected ErrOrderCreation, got %v", err)
	}
}

func TestRazorpayCreateOrderContextCancelled(t *testing.T) {
	gw := &RazorpayGateway{keyID: "key", keySecret: "secret", orders: &fakeOrders{delay: 200 * time.Millisecond, body: map[string]interface{}{"id": "order_late"}}}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	if _, err := gw.CreateOrder(ctx, CreateOrderParams{AmountMinor: 100, Currency: "INR"}); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
}

func TestRazorpayVerifyPaymentSignature(t *testing.T) {
	gw := &RazorpayGateway{keyID: "key", keySecret: "secret"}
	if err := gw.VerifyPaymentSignature("order_1", "pay_1", Signature("secret", "order_1", "pay_1")); err != nil {
		t.Errorf("expected valid signature, got %v", err)
	}
	if gw.KeyID() != "key" {
		t.Errorf("expected key id 'key', got %s", gw.KeyID())
	}
}

func TestMockGatewayRecordsCalls(t *testing.T) {
	m := NewMockGateway()
	order, err := m.CreateOrder(context.Background(), CreateOrderParams{AmountMinor: 500, Currency: "INR", Receipt: "r"})
	if err != nil {
		t.Fatal(err)
	}
	if m.CreateCount() != 1 {
		t.Errorf("expected 1 create call, got %d", m.CreateCount())
	}
	if err := m.VerifyPaymentSignature(order.ID, "pay_1", m.Sign(order.ID, "pay_1")); err != nil {
		t.Errorf("expected mock signature to verify, got %v", err)
	}
}

func TestDisabledGateway(t *testing.T) {
	var g Gateway = Disabled{}
	if _, err := g.CreateOrder(context.Background(), CreateOrderParams{AmountMinor: 100, Currency: "INR"}); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("expected ErrNotConfigured, got %v", err)
	}
	if err := g.VerifyPaymentSignature("order_1", "pay_1", "sig"); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("expected ErrNotConfigured, got %v", err)
	}
	if g.KeyID() != "" {
		t.Error("expected empty key id")
	}
}
