package services

import (
	"context"
	"errors"
	"time"

	"ecommerce-backend/domain"
	"ecommerce-backend/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CartService manages the per-user cart. Every mutation loads the whole cart,
// changes it in memory and writes it back, recomputing the total.
type CartService struct {
	db  *gorm.DB
	log zerolog.Logger
}

func NewCartService(db *gorm.DB, log zerolog.Logger) *CartService {
	return &CartService{db: db, log: log.With().Str("component", "cart").Logger()}
}

// AddItem puts quantity units of a product in the user's cart, merging with an
// existing line for the same product. The cart is created on first use.
func (s *CartService) AddItem(ctx context.Context, userID uuid.UUID, productID string, quantity int) (*models.Cart, error) {
	const op = "cart.add"

	if productID == "" || quantity == 0 {
		return nil, domain.InvalidInput(op, "Product ID and quantity are required")
	}
	if quantity < 0 {
		return nil, domain.InvalidInput(op, "Quantity must be a positive integer")
	}
	pid, err := parseID(productID)
	if err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		product, err := findProduct(tx, pid)
		if err != nil {
			return err
		}
		if product.Quantity < quantity {
			return domain.InsufficientStock(op, product.Quantity)
		}

		cart, err := loadOrCreateCart(tx, userID)
		if err != nil {
			return err
		}

		if i := cart.ProductIndex(pid); i >= 0 {
			merged := cart.Items[i].Quantity + quantity
			if merged > product.Quantity {
				return domain.StockExceeded(op, product.Quantity)
			}
			cart.Items[i].Quantity = merged
		} else {
			cart.Items = append(cart.Items, models.CartItem{
				CartID:    cart.ID,
				ProductID: pid,
				Quantity:  quantity,
				Price:     product.Price,
				Name:      product.Name,
				Image:     product.PhotoPath(),
			})
		}

		return saveCart(tx, cart)
	})
	if err != nil {
		return nil, err
	}

	s.log.Debug().Str("user_id", userID.String()).Str("product_id", pid.String()).Int("quantity", quantity).Msg("item added")
	return s.GetCart(ctx, userID)
}

// UpdateItem sets the quantity of a cart line. A quantity of zero or less
// removes the line.
func (s *CartService) UpdateItem(ctx context.Context, userID uuid.UUID, itemID string, quantity int) (*models.Cart, error) {
	const op = "cart.update"

	if itemID == "" {
		return nil, domain.InvalidInput(op, "Item ID and quantity are required")
	}
	iid, err := parseID(itemID)
	if err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cart, err := loadCart(tx, userID)
		if err != nil {
			return err
		}
		i := cart.ItemIndex(iid)
		if i < 0 {
			return domain.ErrCartItemNotFound
		}

		if quantity <= 0 {
			cart.RemoveItem(i)
			return saveCart(tx, cart)
		}

		product, err := findProduct(tx, cart.Items[i].ProductID)
		if err != nil {
			return err
		}
		if quantity > product.Quantity {
			return domain.InsufficientStock(op, product.Quantity)
		}
		cart.Items[i].Quantity = quantity
		return saveCart(tx, cart)
	})
	if err != nil {
		return nil, err
	}
	return s.GetCart(ctx, userID)
}

func (s *CartService) RemoveItem(ctx context.Context, userID uuid.UUID, itemID string) (*models.Cart, error) {
	iid, err := parseID(itemID)
	if err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cart, err := loadCart(tx, userID)
		if err != nil {
			return err
		}
		i := cart.ItemIndex(iid)
		if i < 0 {
			return domain.ErrCartItemNotFound
		}
		cart.RemoveItem(i)
		return saveCart(tx, cart)
	})
	if err != nil {
		return nil, err
	}
	return s.GetCart(ctx, userID)
}

// ClearCart empties an existing cart. Clearing an already empty cart succeeds.
func (s *CartService) ClearCart(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	var cart *models.Cart
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		cart, err = loadCart(tx, userID)
		if err != nil {
			return err
		}
		cart.Clear()
		return saveCart(tx, cart)
	})
	if err != nil {
		return nil, err
	}
	return cart, nil
}

// GetCart returns the user's cart with products resolved for display. A user
// without a cart gets an empty one rather than an error.
func (s *CartService) GetCart(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	var cart models.Cart
	err := s.db.WithContext(ctx).
		Preload("Items", byPosition).
		Preload("Items.Product", func(db *gorm.DB) *gorm.DB {
			return db.Select(models.ProductListColumns)
		}).
		Where("user_id = ?", userID).
		First(&cart).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.EmptyCart(userID), nil
	}
	if err != nil {
		return nil, domain.Internal(err, "cart.get")
	}

	if cart.Items == nil {
		cart.Items = []models.CartItem{}
	}
	cart.Recalculate()
	return &cart, nil
}

func parseID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, domain.ErrInvalidID
	}
	return id, nil
}

func byPosition(db *gorm.DB) *gorm.DB {
	return db.Order("position ASC")
}

func findProduct(tx *gorm.DB, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	err := tx.Select(models.ProductListColumns).Where("id = ?", id).First(&product).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrProductNotFound
	}
	if err != nil {
		return nil, domain.Internal(err, "product.find")
	}
	return &product, nil
}

func loadCart(tx *gorm.DB, userID uuid.UUID) (*models.Cart, error) {
	var cart models.Cart
	err := tx.Preload("Items", byPosition).Where("user_id = ?", userID).First(&cart).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrCartNotFound
	}
	if err != nil {
		return nil, domain.Internal(err, "cart.load")
	}
	return &cart, nil
}

func loadOrCreateCart(tx *gorm.DB, userID uuid.UUID) (*models.Cart, error) {
	cart, err := loadCart(tx, userID)
	if err == nil {
		return cart, nil
	}
	if !errors.Is(err, domain.ErrCartNotFound) {
		return nil, err
	}

	cart = models.EmptyCart(userID)
	if err := tx.Omit(clause.Associations).Create(cart).Error; err != nil {
		return nil, domain.Internal(err, "cart.create")
	}
	return cart, nil
}

// saveCart writes the whole cart back: line items are replaced and the total
// recomputed from them.
func saveCart(tx *gorm.DB, cart *models.Cart) error {
	cart.Recalculate()
	now := time.Now()

	for i := range cart.Items {
		item := &cart.Items[i]
		if item.ID == uuid.Nil {
			item.ID = uuid.New()
		}
		item.CartID = cart.ID
		item.Position = i
		item.UpdatedAt = now
	}

	if err := tx.Where("cart_id = ?", cart.ID).Delete(&models.CartItem{}).Error; err != nil {
		return domain.Internal(err, "cart.save")
	}
	if len(cart.Items) > 0 {
		if err := tx.Omit(clause.Associations).Create(&cart.Items).Error; err != nil {
			return domain.Internal(err, "cart.save")
		}
	}

	err := tx.Model(&models.Cart{}).Where("id = ?", cart.ID).
		Updates(map[string]interface{}{"total": cart.Total, "updated_at": now}).Error
	if err != nil {
		return domain.Internal(err, "cart.save")
	}
	cart.UpdatedAt = now
	return nil
}
