package services

import (
	"context"
	"sync"
	"testing"

	"ecommerce-backend/database"
	"ecommerce-backend/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Connect("sqlite://:memory:")
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	return db
}

func createUser(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()
	user := &models.User{Name: "Asha", Email: uuid.NewString()[:8] + "@example.com", Password: "x", Role: models.RoleCustomer}
	require.NoError(t, db.Create(user).Error)
	return user
}

func createProduct(t *testing.T, db *gorm.DB, name string, price int64, stock int) *models.Product {
	t.Helper()
	var cat models.Category
	if err := db.Where("slug = ?", "general").First(&cat).Error; err != nil {
		cat = models.Category{Name: "General", Slug: "general"}
		require.NoError(t, db.Create(&cat).Error)
	}
	p := &models.Product{
		Name:        name,
		Slug:        uuid.NewString(),
		Description: name + " description",
		Price:       decimal.NewFromInt(price),
		CategoryID:  cat.ID,
		Quantity:    stock,
	}
	require.NoError(t, db.Create(p).Error)
	return p
}

type recordingNotifier struct {
	mu     sync.Mutex
	orders []uuid.UUID
}

func (n *recordingNotifier) SendOrderConfirmation(ctx context.Context, buyer *models.User, order *models.Order) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.orders = append(n.orders, order.ID)
	return nil
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.orders)
}

var nopLog = zerolog.Nop()
