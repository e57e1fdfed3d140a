package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ecommerce-backend/domain"
	"ecommerce-backend/events"
	"ecommerce-backend/models"
	"ecommerce-backend/payment"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// QuantityPolicy decides how many units of each cart line are charged at
// checkout.
type QuantityPolicy string

const (
	// QuantityCollapse charges exactly one unit per distinct product.
	QuantityCollapse QuantityPolicy = "collapse"
	// QuantityRequested charges the quantity held in the cart.
	QuantityRequested QuantityPolicy = "requested"
)

func ParseQuantityPolicy(s string) (QuantityPolicy, error) {
	switch QuantityPolicy(s) {
	case QuantityCollapse, QuantityRequested:
		return QuantityPolicy(s), nil
	case "":
		return QuantityCollapse, nil
	}
	return "", fmt.Errorf("unknown quantity policy %q", s)
}

// SnapshotItem is one entry of the cart a client sends with create-order.
type SnapshotItem struct {
	ProductID string
	Quantity  int
}

type CheckoutConfig struct {
	Currency       string
	QuantityPolicy QuantityPolicy
}

// OrderNotifier is told about every completed order.
type OrderNotifier interface {
	SendOrderConfirmation(ctx context.Context, buyer *models.User, order *models.Order) error
}

// CheckoutService runs the two checkout phases: issuing a gateway order for
// the cart and turning a verified payment into an Order.
type CheckoutService struct {
	db       *gorm.DB
	gateway  payment.Gateway
	events   events.Publisher
	notifier OrderNotifier
	metrics  *CheckoutMetrics
	cfg      CheckoutConfig
	log      zerolog.Logger
	now      func() time.Time
}

type CheckoutOption func(*CheckoutService)

func WithPublisher(p events.Publisher) CheckoutOption {
	return func(s *CheckoutService) { s.events = p }
}

func WithNotifier(n OrderNotifier) CheckoutOption {
	return func(s *CheckoutService) { s.notifier = n }
}

func WithMetrics(m *CheckoutMetrics) CheckoutOption {
	return func(s *CheckoutService) { s.metrics = m }
}

func WithClock(now func() time.Time) CheckoutOption {
	return func(s *CheckoutService) { s.now = now }
}

func NewCheckoutService(db *gorm.DB, gateway payment.Gateway, cfg CheckoutConfig, log zerolog.Logger, opts ...CheckoutOption) *CheckoutService {
	if cfg.Currency == "" {
		cfg.Currency = "INR"
	}
	if cfg.QuantityPolicy == "" {
		cfg.QuantityPolicy = QuantityCollapse
	}
	s := &CheckoutService{
		db:      db,
		gateway: gateway,
		events:  events.NopPublisher{},
		cfg:     cfg,
		log:     log.With().Str("component", "checkout").Logger(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		s.metrics = NewCheckoutMetrics(nil)
	}
	return s
}

// CheckoutResult is what the storefront needs to open the payment widget.
type CheckoutResult struct {
	AttemptID uuid.UUID
	Order     *payment.Order
	Amount    decimal.Decimal
	Cart      *models.Cart
}

// CreateOrder syncs an optional client snapshot into the cart, applies the
// quantity policy and asks the gateway for an order over the recomputed
// total.
func (s *CheckoutService) CreateOrder(ctx context.Context, userID uuid.UUID, snapshot []SnapshotItem) (*CheckoutResult, error) {
	const op = "checkout.create"

	var cart *models.Cart
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(snapshot) > 0 {
			if err := s.syncSnapshot(tx, userID, snapshot); err != nil {
				return err
			}
		}

		var err error
		cart, err = loadCart(tx, userID)
		if errors.Is(err, domain.ErrCartNotFound) {
			return domain.ErrEmptyCart
		}
		if err != nil {
			return err
		}
		if cart.IsEmpty() {
			return domain.ErrEmptyCart
		}

		for i := range cart.Items {
			item := &cart.Items[i]
			if s.cfg.QuantityPolicy == QuantityCollapse {
				item.Quantity = 1
			}
			product, err := findProduct(tx, item.ProductID)
			if err != nil {
				return err
			}
			if item.Quantity > product.Quantity {
				return domain.InsufficientStock(op, product.Quantity)
			}
		}
		return saveCart(tx, cart)
	})
	if err != nil {
		return nil, err
	}

	total := cart.Recalculate()
	if total.LessThanOrEqual(decimal.Zero) {
		return nil, domain.ErrInvalidTotal
	}

	attempt := &models.CheckoutAttempt{
		UserID:         userID,
		CartID:         cart.ID,
		Status:         models.CheckoutCreated,
		QuantityPolicy: string(s.cfg.QuantityPolicy),
		Amount:         total,
		AmountMinor:    models.MinorUnits(total),
		Currency:       s.cfg.Currency,
		Receipt:        fmt.Sprintf("receipt_%d", s.now().UnixMilli()),
		Lines:          models.CheckoutLinesFromCart(cart),
	}
	if err := s.db.WithContext(ctx).Create(attempt).Error; err != nil {
		return nil, domain.Internal(err, op)
	}

	gwOrder, err := s.gateway.CreateOrder(ctx, payment.CreateOrderParams{
		AmountMinor: attempt.AmountMinor,
		Currency:    attempt.Currency,
		Receipt:     attempt.Receipt,
		Notes:       map[string]string{"checkout_attempt_id": attempt.ID.String()},
	})
	if err == nil && gwOrder == nil {
		err = payment.ErrOrderCreation
	}
	if err != nil {
		s.metrics.GatewayErrors.Inc()
		s.failAttempt(ctx, attempt, err.Error())
		s.log.Error().Err(err).Str("attempt_id", attempt.ID.String()).Int64("amount_minor", attempt.AmountMinor).Msg("gateway order creation failed")
		return nil, domain.WrapError(err, domain.EPAYMENT, op, domain.ErrGateway.Message)
	}

	if err := attempt.TransitionTo(models.CheckoutGatewayOrderIssued); err != nil {
		return nil, domain.Internal(err, op)
	}
	attempt.GatewayOrderID = gwOrder.ID
	if err := s.db.WithContext(ctx).Save(attempt).Error; err != nil {
		return nil, domain.Internal(err, op)
	}
	s.metrics.GatewayOrders.Inc()

	s.log.Info().
		Str("user_id", userID.String()).
		Str("attempt_id", attempt.ID.String()).
		Str("gateway_order_id", gwOrder.ID).
		Int64("amount_minor", attempt.AmountMinor).
		Msg("checkout started")

	view, err := (&CartService{db: s.db, log: s.log}).GetCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &CheckoutResult{AttemptID: attempt.ID, Order: gwOrder, Amount: total, Cart: view}, nil
}

// syncSnapshot makes the stored cart hold exactly the products in the
// snapshot, priced from the catalog. Unknown products are skipped.
func (s *CheckoutService) syncSnapshot(tx *gorm.DB, userID uuid.UUID, snapshot []SnapshotItem) error {
	const op = "checkout.sync"

	cart, err := loadOrCreateCart(tx, userID)
	if err != nil {
		return err
	}

	existing := make(map[uuid.UUID]uuid.UUID, len(cart.Items))
	for _, item := range cart.Items {
		existing[item.ProductID] = item.ID
	}

	synced := models.Cart{ID: cart.ID, UserID: cart.UserID, Items: []models.CartItem{}}
	for _, entry := range snapshot {
		pid, err := parseID(entry.ProductID)
		if err != nil {
			return err
		}

		qty := 1
		if s.cfg.QuantityPolicy == QuantityRequested {
			if entry.Quantity < 0 {
				return domain.InvalidInput(op, "Quantity must be a positive integer")
			}
			if entry.Quantity > 0 {
				qty = entry.Quantity
			}
		}

		product, err := findProduct(tx, pid)
		if errors.Is(err, domain.ErrProductNotFound) {
			s.log.Warn().Str("product_id", pid.String()).Msg("skipping unknown product in cart snapshot")
			continue
		}
		if err != nil {
			return err
		}

		if i := synced.ProductIndex(pid); i >= 0 {
			if s.cfg.QuantityPolicy == QuantityRequested {
				synced.Items[i].Quantity += qty
			}
			qty = synced.Items[i].Quantity
			if qty > product.Quantity {
				return domain.InsufficientStock(op, product.Quantity)
			}
			continue
		}
		if qty > product.Quantity {
			return domain.InsufficientStock(op, product.Quantity)
		}

		synced.Items = append(synced.Items, models.CartItem{
			ID:        existing[pid],
			ProductID: pid,
			Quantity:  qty,
			Price:     product.Price,
			Name:      product.Name,
			Image:     product.PhotoPath(),
		})
	}

	return saveCart(tx, &synced)
}

type VerifyPaymentParams struct {
	GatewayOrderID   string
	GatewayPaymentID string
	Signature        string
}

// VerifyPayment checks the gateway callback signature and, when it matches,
// records the Order and empties the cart in one transaction. A gateway order
// can complete at most once.
func (s *CheckoutService) VerifyPayment(ctx context.Context, userID uuid.UUID, p VerifyPaymentParams) (*models.Order, error) {
	const op = "checkout.verify"

	if p.GatewayOrderID == "" || p.GatewayPaymentID == "" || p.Signature == "" {
		return nil, domain.InvalidInput(op, "Payment order ID, payment ID and signature are required")
	}

	db := s.db.WithContext(ctx)
	if _, err := loadCart(db, userID); err != nil {
		return nil, err
	}

	if err := s.gateway.VerifyPaymentSignature(p.GatewayOrderID, p.GatewayPaymentID, p.Signature); err != nil {
		s.metrics.SignatureFailures.Inc()
		s.log.Warn().Str("user_id", userID.String()).Str("gateway_order_id", p.GatewayOrderID).Msg("payment signature mismatch")
		return nil, domain.ErrSignatureMismatch
	}

	var attempt models.CheckoutAttempt
	err := db.Where("gateway_order_id = ? AND user_id = ?", p.GatewayOrderID, userID).First(&attempt).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrCheckoutNotFound
	}
	if err != nil {
		return nil, domain.Internal(err, op)
	}

	switch attempt.Status {
	case models.CheckoutCompleted:
		return nil, domain.ErrPaymentProcessed
	case models.CheckoutFailed:
		return nil, domain.Errorf(domain.ECONFLICT, op, "Checkout attempt has failed")
	case models.CheckoutGatewayOrderIssued:
		res := db.Model(&models.CheckoutAttempt{}).
			Where("id = ? AND status = ?", attempt.ID, models.CheckoutGatewayOrderIssued).
			Updates(map[string]interface{}{
				"status":             models.CheckoutVerified,
				"gateway_payment_id": p.GatewayPaymentID,
				"updated_at":         s.now(),
			})
		if res.Error != nil {
			return nil, domain.Internal(res.Error, op)
		}
		attempt.Status = models.CheckoutVerified
		attempt.GatewayPaymentID = p.GatewayPaymentID
	}

	order := &models.Order{
		ID:      uuid.New(),
		BuyerID: userID,
		Payment: models.PaymentDetails{
			GatewayOrderID:   p.GatewayOrderID,
			GatewayPaymentID: p.GatewayPaymentID,
			GatewaySignature: p.Signature,
		},
		PaymentStatus: models.PaymentStatusCompleted,
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.CheckoutAttempt{}).
			Where("id = ? AND status = ?", attempt.ID, models.CheckoutVerified).
			Updates(map[string]interface{}{
				"status":     models.CheckoutCompleted,
				"order_id":   order.ID,
				"updated_at": s.now(),
			})
		if res.Error != nil {
			return domain.Internal(res.Error, op)
		}
		if res.RowsAffected == 0 {
			return domain.ErrPaymentProcessed
		}

		cart, err := loadCart(tx, userID)
		if err != nil {
			return err
		}

		lines := models.CheckoutLinesFromCart(cart)
		order.TotalAmount = cart.Recalculate()
		if cart.IsEmpty() {
			// A captured payment always yields an order.
			if len(attempt.Lines) == 0 {
				return domain.ErrEmptyCart
			}
			s.log.Warn().
				Str("attempt_id", attempt.ID.String()).
				Str("gateway_payment_id", p.GatewayPaymentID).
				Msg("cart emptied before verify-payment, ordering the charged lines")
			lines = attempt.Lines
			order.TotalAmount = attempt.Amount
		} else if !order.TotalAmount.Equal(attempt.Amount) {
			s.log.Warn().
				Str("attempt_id", attempt.ID.String()).
				Str("charged", attempt.Amount.String()).
				Str("cart_total", order.TotalAmount.String()).
				Msg("cart changed between create-order and verify-payment")
		}
		for _, line := range lines {
			order.Products = append(order.Products, models.OrderItem{
				OrderID:   order.ID,
				ProductID: line.ProductID,
				Name:      line.Name,
				Quantity:  line.Quantity,
				Price:     line.Price,
			})
		}

		if err := tx.Omit(clause.Associations).Create(order).Error; err != nil {
			return domain.Internal(err, op)
		}
		if err := tx.Create(&order.Products).Error; err != nil {
			return domain.Internal(err, op)
		}

		cart.Clear()
		return saveCart(tx, cart)
	})
	if errors.Is(err, domain.ErrEmptyCart) {
		s.log.Error().
			Str("attempt_id", attempt.ID.String()).
			Str("gateway_order_id", p.GatewayOrderID).
			Str("gateway_payment_id", p.GatewayPaymentID).
			Int64("amount_minor", attempt.AmountMinor).
			Msg("verified payment has no lines to order, needs reconciliation")
		s.failAttempt(ctx, &attempt, "verified payment with empty cart")
	}
	if err != nil {
		return nil, err
	}

	s.metrics.OrdersCompleted.Inc()
	s.metrics.RevenueMinor.WithLabelValues(attempt.Currency).Add(float64(models.MinorUnits(order.TotalAmount)))
	s.log.Info().
		Str("user_id", userID.String()).
		Str("order_id", order.ID.String()).
		Str("total", order.TotalAmount.String()).
		Msg("payment verified")

	s.announce(ctx, order, attempt.Currency)
	return order, nil
}

// PaymentKey returns the public gateway key for the storefront.
func (s *CheckoutService) PaymentKey() string {
	return s.gateway.KeyID()
}

func (s *CheckoutService) failAttempt(ctx context.Context, attempt *models.CheckoutAttempt, reason string) {
	if err := attempt.TransitionTo(models.CheckoutFailed); err != nil {
		return
	}
	attempt.FailureReason = reason
	if err := s.db.WithContext(ctx).Save(attempt).Error; err != nil {
		s.log.Error().Err(err).Str("attempt_id", attempt.ID.String()).Msg("failed to record failed checkout")
	}
}

// announce publishes the completion event and sends the confirmation e-mail.
// Neither can fail the checkout.
func (s *CheckoutService) announce(ctx context.Context, order *models.Order, currency string) {
	event := events.OrderCompleted{
		OrderID:     order.ID.String(),
		BuyerID:     order.BuyerID.String(),
		TotalAmount: order.TotalAmount,
		Currency:    currency,
		CompletedAt: s.now(),
	}
	for _, item := range order.Products {
		event.Items = append(event.Items, events.OrderCompletedItem{
			ProductID: item.ProductID.String(),
			Quantity:  item.Quantity,
			Price:     item.Price,
		})
	}
	if err := s.events.Publish(ctx, events.SubjectOrderCompleted, event); err != nil {
		s.log.Warn().Err(err).Str("order_id", order.ID.String()).Msg("failed to publish order event")
	}

	if s.notifier == nil {
		return
	}
	var buyer models.User
	if err := s.db.WithContext(ctx).First(&buyer, "id = ?", order.BuyerID).Error; err != nil {
		s.log.Warn().Err(err).Str("order_id", order.ID.String()).Msg("buyer not found for confirmation")
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := s.notifier.SendOrderConfirmation(ctx, &buyer, order); err != nil {
			s.log.Warn().Err(err).Str("order_id", order.ID.String()).Msg("failed to send order confirmation")
		}
	}()
}
