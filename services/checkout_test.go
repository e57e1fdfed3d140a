package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"ecommerce-backend/domain"
	"ecommerce-backend/events"
	"ecommerce-backend/models"
	"ecommerce-backend/payment"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type checkoutFixture struct {
	db       *gorm.DB
	carts    *CartService
	checkout *CheckoutService
	gateway  *payment.MockGateway
	events   *events.Recorder
	notifier *recordingNotifier
	metrics  *CheckoutMetrics
	user     *models.User
}

func newCheckoutFixture(t *testing.T, policy QuantityPolicy) *checkoutFixture {
	t.Helper()
	db := setupDB(t)
	f := &checkoutFixture{
		db:       db,
		carts:    NewCartService(db, nopLog),
		gateway:  payment.NewMockGateway(),
		events:   &events.Recorder{},
		notifier: &recordingNotifier{},
		metrics:  NewCheckoutMetrics(nil),
		user:     createUser(t, db),
	}
	f.checkout = NewCheckoutService(db, f.gateway, CheckoutConfig{Currency: "INR", QuantityPolicy: policy}, nopLog,
		WithPublisher(f.events),
		WithNotifier(f.notifier),
		WithMetrics(f.metrics),
		WithClock(func() time.Time { return time.UnixMilli(1700000000000) }),
	)
	return f
}

// fillCart puts [(500, 2), (300, 1)] in the user's cart.
func (f *checkoutFixture) fillCart(t *testing.T) (*models.Product, *models.Product) {
	t.Helper()
	a := createProduct(t, f.db, "Kettle", 500, 10)
	b := createProduct(t, f.db, "Toaster", 300, 10)
	ctx := context.Background()
	_, err := f.carts.AddItem(ctx, f.user.ID, a.ID.String(), 2)
	require.NoError(t, err)
	_, err = f.carts.AddItem(ctx, f.user.ID, b.ID.String(), 1)
	require.NoError(t, err)
	return a, b
}

func TestCreateOrderCollapsesQuantities(t *testing.T) {
	f := newCheckoutFixture(t, QuantityCollapse)
	f.fillCart(t)

	res, err := f.checkout.CreateOrder(context.Background(), f.user.ID, nil)
	require.NoError(t, err)

	assert.True(t, res.Amount.Equal(decimal.NewFromInt(800)), "amount %s", res.Amount)
	require.Len(t, f.gateway.Created, 1)
	assert.Equal(t, int64(80000), f.gateway.Created[0].AmountMinor)
	assert.Equal(t, "INR", f.gateway.Created[0].Currency)
	assert.Equal(t, "receipt_1700000000000", f.gateway.Created[0].Receipt)
	assert.Equal(t, res.AttemptID.String(), f.gateway.Created[0].Notes["checkout_attempt_id"])

	for _, item := range res.Cart.Items {
		assert.Equal(t, 1, item.Quantity)
	}
	assert.True(t, res.Cart.Total.Equal(res.Amount))

	var attempt models.CheckoutAttempt
	require.NoError(t, f.db.First(&attempt, "id = ?", res.AttemptID).Error)
	assert.Equal(t, models.CheckoutGatewayOrderIssued, attempt.Status)
	assert.Equal(t, res.Order.ID, attempt.GatewayOrderID)
	assert.Equal(t, int64(80000), attempt.AmountMinor)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.GatewayOrders))
}

func TestCreateOrderRequestedQuantities(t *testing.T) {
	f := newCheckoutFixture(t, QuantityRequested)
	f.fillCart(t)

	res, err := f.checkout.CreateOrder(context.Background(), f.user.ID, nil)
	require.NoError(t, err)
	assert.True(t, res.Amount.Equal(decimal.NewFromInt(1300)))
	assert.Equal(t, int64(130000), f.gateway.Created[0].AmountMinor)
}

func TestCreateOrderSyncsSnapshot(t *testing.T) {
	f := newCheckoutFixture(t, QuantityCollapse)
	a := createProduct(t, f.db, "Kettle", 500, 4)
	b := createProduct(t, f.db, "Toaster", 300, 4)

	// The snapshot quantity is the product's stock, not purchase intent.
	res, err := f.checkout.CreateOrder(context.Background(), f.user.ID, []SnapshotItem{
		{ProductID: a.ID.String(), Quantity: 4},
		{ProductID: b.ID.String(), Quantity: 4},
		{ProductID: uuid.NewString(), Quantity: 1},
	})
	require.NoError(t, err)
	require.Len(t, res.Cart.Items, 2)
	assert.True(t, res.Amount.Equal(decimal.NewFromInt(800)))
}

func TestCreateOrderSnapshotUsesCatalogPrice(t *testing.T) {
	f := newCheckoutFixture(t, QuantityRequested)
	a := createProduct(t, f.db, "Kettle", 500, 5)
	f.fillCart(t)

	res, err := f.checkout.CreateOrder(context.Background(), f.user.ID, []SnapshotItem{
		{ProductID: a.ID.String(), Quantity: 2},
		{ProductID: a.ID.String(), Quantity: 1},
	})
	require.NoError(t, err)
	require.Len(t, res.Cart.Items, 1)
	assert.Equal(t, 3, res.Cart.Items[0].Quantity)
	assert.True(t, res.Amount.Equal(decimal.NewFromInt(1500)))
}

func TestCreateOrderErrors(t *testing.T) {
	f := newCheckoutFixture(t, QuantityCollapse)
	ctx := context.Background()

	_, err := f.checkout.CreateOrder(ctx, f.user.ID, nil)
	assert.ErrorIs(t, err, domain.ErrEmptyCart)

	_, err = f.checkout.CreateOrder(ctx, f.user.ID, []SnapshotItem{{ProductID: "bad-id"}})
	assert.ErrorIs(t, err, domain.ErrInvalidID)

	_, err = f.checkout.CreateOrder(ctx, f.user.ID, []SnapshotItem{{ProductID: uuid.NewString()}})
	assert.ErrorIs(t, err, domain.ErrEmptyCart)

	free := createProduct(t, f.db, "Sticker", 0, 10)
	_, err = f.carts.AddItem(ctx, f.user.ID, free.ID.String(), 1)
	require.NoError(t, err)
	_, err = f.checkout.CreateOrder(ctx, f.user.ID, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidTotal)
	assert.Equal(t, 0, f.gateway.CreateCount())
}

func TestCreateOrderGatewayFailure(t *testing.T) {
	f := newCheckoutFixture(t, QuantityCollapse)
	f.fillCart(t)
	f.gateway.CreateOrderFunc = func(ctx context.Context, params payment.CreateOrderParams) (*payment.Order, error) {
		return nil, errors.New("gateway timeout")
	}

	_, err := f.checkout.CreateOrder(context.Background(), f.user.ID, nil)
	require.Error(t, err)
	assert.True(t, domain.IsCode(err, domain.EPAYMENT))
	assert.Equal(t, "Failed to create payment order", domain.ErrorMessage(err))

	var attempt models.CheckoutAttempt
	require.NoError(t, f.db.Where("user_id = ?", f.user.ID).First(&attempt).Error)
	assert.Equal(t, models.CheckoutFailed, attempt.Status)
	assert.Equal(t, "gateway timeout", attempt.FailureReason)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.GatewayErrors))
}

func TestVerifyPaymentCompletesOrder(t *testing.T) {
	f := newCheckoutFixture(t, QuantityCollapse)
	a, b := f.fillCart(t)
	ctx := context.Background()

	res, err := f.checkout.CreateOrder(ctx, f.user.ID, nil)
	require.NoError(t, err)

	order, err := f.checkout.VerifyPayment(ctx, f.user.ID, VerifyPaymentParams{
		GatewayOrderID:   res.Order.ID,
		GatewayPaymentID: "pay_1",
		Signature:        f.gateway.Sign(res.Order.ID, "pay_1"),
	})
	require.NoError(t, err)

	assert.Equal(t, models.PaymentStatusCompleted, order.PaymentStatus)
	assert.True(t, order.TotalAmount.Equal(decimal.NewFromInt(800)))
	assert.Equal(t, f.user.ID, order.BuyerID)
	require.Len(t, order.Products, 2)
	assert.Equal(t, a.ID, order.Products[0].ProductID)
	assert.Equal(t, b.ID, order.Products[1].ProductID)

	var stored models.Order
	require.NoError(t, f.db.Preload("Products").First(&stored, "id = ?", order.ID).Error)
	assert.Len(t, stored.Products, 2)
	assert.Equal(t, "pay_1", stored.Payment.GatewayPaymentID)

	cart, err := f.carts.GetCart(ctx, f.user.ID)
	require.NoError(t, err)
	assert.Empty(t, cart.Items)
	assert.True(t, cart.Total.IsZero())

	var attempt models.CheckoutAttempt
	require.NoError(t, f.db.First(&attempt, "id = ?", res.AttemptID).Error)
	assert.Equal(t, models.CheckoutCompleted, attempt.Status)
	require.NotNil(t, attempt.OrderID)
	assert.Equal(t, order.ID, *attempt.OrderID)

	assert.Equal(t, 1, f.events.Count(events.SubjectOrderCompleted))
	assert.Eventually(t, func() bool { return f.notifier.count() == 1 }, time.Second, 10*time.Millisecond)
	assert.Equal(t, 80000.0, testutil.ToFloat64(f.metrics.RevenueMinor.WithLabelValues("INR")))
}

func TestVerifyPaymentTamperedSignature(t *testing.T) {
	f := newCheckoutFixture(t, QuantityCollapse)
	f.fillCart(t)
	ctx := context.Background()

	res, err := f.checkout.CreateOrder(ctx, f.user.ID, nil)
	require.NoError(t, err)

	sig := f.gateway.Sign(res.Order.ID, "pay_1")
	for _, bad := range []string{sig[:len(sig)-1] + "0", f.gateway.Sign(res.Order.ID, "pay_2"), "deadbeef"} {
		if bad == sig {
			continue
		}
		_, err := f.checkout.VerifyPayment(ctx, f.user.ID, VerifyPaymentParams{
			GatewayOrderID:   res.Order.ID,
			GatewayPaymentID: "pay_1",
			Signature:        bad,
		})
		assert.ErrorIs(t, err, domain.ErrSignatureMismatch)
	}

	var orders int64
	require.NoError(t, f.db.Model(&models.Order{}).Count(&orders).Error)
	assert.Zero(t, orders)

	cart, err := f.carts.GetCart(ctx, f.user.ID)
	require.NoError(t, err)
	assert.Len(t, cart.Items, 2)
	assert.Zero(t, f.events.Count(events.SubjectOrderCompleted))
}

func TestVerifyPaymentReplay(t *testing.T) {
	f := newCheckoutFixture(t, QuantityCollapse)
	f.fillCart(t)
	ctx := context.Background()

	res, err := f.checkout.CreateOrder(ctx, f.user.ID, nil)
	require.NoError(t, err)
	params := VerifyPaymentParams{
		GatewayOrderID:   res.Order.ID,
		GatewayPaymentID: "pay_1",
		Signature:        f.gateway.Sign(res.Order.ID, "pay_1"),
	}

	_, err = f.checkout.VerifyPayment(ctx, f.user.ID, params)
	require.NoError(t, err)

	_, err = f.checkout.VerifyPayment(ctx, f.user.ID, params)
	assert.ErrorIs(t, err, domain.ErrPaymentProcessed)
	assert.True(t, domain.IsCode(err, domain.ECONFLICT))

	var orders int64
	require.NoError(t, f.db.Model(&models.Order{}).Count(&orders).Error)
	assert.Equal(t, int64(1), orders)
}

func TestVerifyPaymentErrors(t *testing.T) {
	f := newCheckoutFixture(t, QuantityCollapse)
	ctx := context.Background()

	_, err := f.checkout.VerifyPayment(ctx, f.user.ID, VerifyPaymentParams{GatewayOrderID: "order_1"})
	assert.True(t, domain.IsCode(err, domain.EINVALID))

	params := VerifyPaymentParams{
		GatewayOrderID:   "order_unknown",
		GatewayPaymentID: "pay_1",
		Signature:        f.gateway.Sign("order_unknown", "pay_1"),
	}
	_, err = f.checkout.VerifyPayment(ctx, f.user.ID, params)
	assert.ErrorIs(t, err, domain.ErrCartNotFound)

	f.fillCart(t)
	_, err = f.checkout.VerifyPayment(ctx, f.user.ID, params)
	assert.ErrorIs(t, err, domain.ErrCheckoutNotFound)
}

func TestPaymentKey(t *testing.T) {
	f := newCheckoutFixture(t, QuantityCollapse)
	assert.Equal(t, "rzp_test_key", f.checkout.PaymentKey())
}

func TestParseQuantityPolicy(t *testing.T) {
	p, err := ParseQuantityPolicy("")
	require.NoError(t, err)
	assert.Equal(t, QuantityCollapse, p)

	p, err = ParseQuantityPolicy("requested")
	require.NoError(t, err)
	assert.Equal(t, QuantityRequested, p)

	_, err = ParseQuantityPolicy("all")
	assert.Error(t, err)
}

func TestCreateOrderChecksStoredLinesAgainstStock(t *testing.T) {
	for _, policy := range []QuantityPolicy{QuantityCollapse, QuantityRequested} {
		t.Run(string(policy), func(t *testing.T) {
			f := newCheckoutFixture(t, policy)
			a, _ := f.fillCart(t)

			stock := 0
			if policy == QuantityRequested {
				stock = 1 // the cart holds 2
			}
			require.NoError(t, f.db.Model(a).Update("quantity", stock).Error)

			_, err := f.checkout.CreateOrder(context.Background(), f.user.ID, nil)
			require.Error(t, err)
			assert.True(t, domain.IsCode(err, domain.EINVALID))
			assert.Equal(t, fmt.Sprintf("Only %d items available in stock", stock), domain.ErrorMessage(err))
			assert.Equal(t, 0, f.gateway.CreateCount())

			var attempts int64
			require.NoError(t, f.db.Model(&models.CheckoutAttempt{}).Count(&attempts).Error)
			assert.Zero(t, attempts)
		})
	}
}

func TestCreateOrderStoresChargedLines(t *testing.T) {
	f := newCheckoutFixture(t, QuantityCollapse)
	a, b := f.fillCart(t)

	res, err := f.checkout.CreateOrder(context.Background(), f.user.ID, nil)
	require.NoError(t, err)

	var attempt models.CheckoutAttempt
	require.NoError(t, f.db.First(&attempt, "id = ?", res.AttemptID).Error)
	require.Len(t, attempt.Lines, 2)
	assert.Equal(t, a.ID, attempt.Lines[0].ProductID)
	assert.Equal(t, 1, attempt.Lines[0].Quantity)
	assert.True(t, attempt.Lines[0].Price.Equal(decimal.NewFromInt(500)))
	assert.Equal(t, b.ID, attempt.Lines[1].ProductID)
}

func TestVerifyPaymentAfterCartCleared(t *testing.T) {
	f := newCheckoutFixture(t, QuantityCollapse)
	a, b := f.fillCart(t)
	ctx := context.Background()

	res, err := f.checkout.CreateOrder(ctx, f.user.ID, nil)
	require.NoError(t, err)
	_, err = f.carts.ClearCart(ctx, f.user.ID)
	require.NoError(t, err)

	order, err := f.checkout.VerifyPayment(ctx, f.user.ID, VerifyPaymentParams{
		GatewayOrderID:   res.Order.ID,
		GatewayPaymentID: "pay_1",
		Signature:        f.gateway.Sign(res.Order.ID, "pay_1"),
	})
	require.NoError(t, err)
	assert.True(t, order.TotalAmount.Equal(decimal.NewFromInt(800)), "total %s", order.TotalAmount)
	require.Len(t, order.Products, 2)
	assert.Equal(t, a.ID, order.Products[0].ProductID)
	assert.Equal(t, b.ID, order.Products[1].ProductID)

	var orders int64
	require.NoError(t, f.db.Model(&models.Order{}).Count(&orders).Error)
	assert.Equal(t, int64(1), orders)

	var attempt models.CheckoutAttempt
	require.NoError(t, f.db.First(&attempt, "id = ?", res.AttemptID).Error)
	assert.Equal(t, models.CheckoutCompleted, attempt.Status)
}

func TestVerifyPaymentWithoutChargedLinesFailsAttempt(t *testing.T) {
	f := newCheckoutFixture(t, QuantityCollapse)
	f.fillCart(t)
	ctx := context.Background()

	res, err := f.checkout.CreateOrder(ctx, f.user.ID, nil)
	require.NoError(t, err)
	var stored models.CheckoutAttempt
	require.NoError(t, f.db.First(&stored, "id = ?", res.AttemptID).Error)
	stored.Lines = nil
	require.NoError(t, f.db.Save(&stored).Error)
	_, err = f.carts.ClearCart(ctx, f.user.ID)
	require.NoError(t, err)

	_, err = f.checkout.VerifyPayment(ctx, f.user.ID, VerifyPaymentParams{
		GatewayOrderID:   res.Order.ID,
		GatewayPaymentID: "pay_1",
		Signature:        f.gateway.Sign(res.Order.ID, "pay_1"),
	})
	assert.ErrorIs(t, err, domain.ErrEmptyCart)

	var attempt models.CheckoutAttempt
	require.NoError(t, f.db.First(&attempt, "id = ?", res.AttemptID).Error)
	assert.Equal(t, models.CheckoutFailed, attempt.Status)
	assert.Equal(t, "pay_1", attempt.GatewayPaymentID)
	assert.NotEmpty(t, attempt.FailureReason)
}
