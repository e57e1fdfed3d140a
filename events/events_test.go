package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisPublisherPublishesJSON(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	ctx := context.Background()
	sub := client.Subscribe(ctx, SubjectOrderCompleted)
	defer sub.Close()
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	pub := NewRedisPublisher(client)
	event := OrderCompleted{OrderID: "o-1", BuyerID: "u-1", TotalAmount: decimal.NewFromInt(800), Currency: "INR"}
	require.NoError(t, pub.Publish(ctx, SubjectOrderCompleted, event))

	select {
	case msg := <-sub.Channel():
		var got OrderCompleted
		require.NoError(t, json.Unmarshal([]byte(msg.Payload), &got))
		assert.Equal(t, "o-1", got.OrderID)
		assert.True(t, got.TotalAmount.Equal(decimal.NewFromInt(800)))
	case <-time.After(2 * time.Second):
		t.Fatal("expected message on orders.completed")
	}
}

func TestNATSPublisherConnectFailure(t *testing.T) {
	_, err := NewNATSPublisher("nats://127.0.0.1:1")
	assert.Error(t, err)
}

func TestRecorder(t *testing.T) {
	r := &Recorder{}
	require.NoError(t, r.Publish(context.Background(), SubjectOrderCompleted, "a"))
	require.NoError(t, r.Publish(context.Background(), "other", "b"))
	assert.Equal(t, 1, r.Count(SubjectOrderCompleted))

	r.Err = errors.New("bus down")
	assert.Error(t, r.Publish(context.Background(), SubjectOrderCompleted, "c"))
	assert.Equal(t, 1, r.Count(SubjectOrderCompleted))
}

func TestNopPublisher(t *testing.T) {
	var p Publisher = NopPublisher{}
	assert.NoError(t, p.Publish(context.Background(), SubjectOrderCompleted, nil))
	assert.NoError(t, p.Close())
}
