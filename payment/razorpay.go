package payment

import (
	"context"
	"fmt"

	razorpay "github.com/razorpay/razorpay-go"
)

// orderCreator is the part of the Razorpay SDK used here.
type orderCreator interface {
	Create(data map[string]interface{}, extraHeaders map[string]string) (map[string]interface{}, error)
}

type RazorpayGateway struct {
	keyID     string
	keySecret string
	orders    orderCreator
}

func NewRazorpayGateway(keyID, keySecret string) (*RazorpayGateway, error) {
	if keyID == "" || keySecret == "" {
		return nil, ErrNotConfigured
	}
	client := razorpay.NewClient(keyID, keySecret)
	return &RazorpayGateway{keyID: keyID, keySecret: keySecret, orders: client.Order}, nil
}

func (r *RazorpayGateway) KeyID() string {
	return r.keyID
}

// CreateOrder issues a gateway order with automatic capture. The SDK call is
// not context aware, so the wait for it is bounded by ctx instead.
func (r *RazorpayGateway) CreateOrder(ctx context.Context, params CreateOrderParams) (*Order, error) {
	data := map[string]interface{}{
		"amount":          params.AmountMinor,
		"currency":        params.Currency,
		"receipt":         params.Receipt,
		"payment_capture": 1,
	}
	if len(params.Notes) > 0 {
		data["notes"] = params.Notes
	}

	type result struct {
		body map[string]interface{}
		err  error
	}
	done := make(chan result, 1)
	go func() {
		body, err := r.orders.Create(data, nil)
		done <- result{body, err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-done:
		if res.err != nil {
			return nil, fmt.Errorf("razorpay: %w", res.err)
		}
		return parseOrder(res.body)
	}
}

func (r *RazorpayGateway) VerifyPaymentSignature(orderID, paymentID, signature string) error {
	return VerifySignature(r.keySecret, orderID, paymentID, signature)
}

func parseOrder(body map[string]interface{}) (*Order, error) {
	id, _ := body["id"].(string)
	if id == "" {
		return nil, ErrOrderCreation
	}
	order := &Order{ID: id}
	order.Currency, _ = body["currency"].(string)
	order.Receipt, _ = body["receipt"].(string)
	order.Status, _ = body["status"].(string)
	order.Amount = toInt64(body["amount"])
	order.CreatedAt = toInt64(body["created_at"])
	return order, nil
}

func toInt64(v interface{}) int64 {
	switch n := v.(type) {
	case float64:
		return int64(n)
	case int64:
		return n
	case int:
		return int64(n)
	}
	return 0
}
