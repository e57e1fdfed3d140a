// Package events publishes domain events to a message bus.
package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

const SubjectOrderCompleted = "orders.completed"

type Publisher interface {
	Publish(ctx context.Context, subject string, payload any) error
	Close() error
}

type OrderCompleted struct {
	OrderID     string               `json:"order_id"`
	BuyerID     string               `json:"buyer_id"`
	TotalAmount decimal.Decimal      `json:"total_amount"`
	Currency    string               `json:"currency"`
	Items       []OrderCompletedItem `json:"items"`
	CompletedAt time.Time            `json:"completed_at"`
}

type OrderCompletedItem struct {
	ProductID string          `json:"product_id"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

// NATSPublisher publishes JSON messages on NATS subjects.
type NATSPublisher struct {
	conn *nats.Conn
}

func NewNATSPublisher(url string) (*NATSPublisher, error) {
	conn, err := nats.Connect(url,
		nats.Name("ecommerce-backend"),
		nats.Timeout(5*time.Second),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, err
	}
	return &NATSPublisher{conn: conn}, nil
}

func (p *NATSPublisher) Publish(ctx context.Context, subject string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return p.conn.Publish(subject, data)
}

func (p *NATSPublisher) Close() error {
	return p.conn.Drain()
}

// RedisPublisher publishes JSON messages on Redis pub/sub channels. The
// client is owned by the caller.
type RedisPublisher struct {
	client redis.UniversalClient
}

func NewRedisPublisher(client redis.UniversalClient) *RedisPublisher {
	return &RedisPublisher{client: client}
}

func (p *RedisPublisher) Publish(ctx context.Context, subject string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return p.client.Publish(ctx, subject, data).Err()
}

func (p *RedisPublisher) Close() error {
	return nil
}

type NopPublisher struct{}

func (NopPublisher) Publish(ctx context.Context, subject string, payload any) error { return nil }
func (NopPublisher) Close() error                                                  { return nil }

// Recorder keeps published events in memory.
type Recorder struct {
	mu     sync.Mutex
	Events []Recorded
	Err    error
}

type Recorded struct {
	Subject string
	Payload any
}

func (r *Recorder) Publish(ctx context.Context, subject string, payload any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.Events = append(r.Events, Recorded{Subject: subject, Payload: payload})
	return nil
}

func (r *Recorder) Close() error { return nil }

func (r *Recorder) Count(subject string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.Events {
		if e.Subject == subject {
			n++
		}
	}
	return n
}
