package services

import (
	"context"
	"testing"

	"ecommerce-backend/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddItemThenGetCart(t *testing.T) {
	db := setupDB(t)
	svc := NewCartService(db, nopLog)
	user := createUser(t, db)
	product := createProduct(t, db, "Lamp", 250, 10)
	ctx := context.Background()

	_, err := svc.AddItem(ctx, user.ID, product.ID.String(), 3)
	require.NoError(t, err)

	cart, err := svc.GetCart(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 3, cart.Items[0].Quantity)
	assert.Equal(t, "Lamp", cart.Items[0].Name)
	assert.True(t, cart.Total.Equal(decimal.NewFromInt(750)), "total %s", cart.Total)
	require.NotNil(t, cart.Items[0].Product)
	assert.Equal(t, product.Slug, cart.Items[0].Product.Slug)
}

func TestAddItemMergesLines(t *testing.T) {
	db := setupDB(t)
	svc := NewCartService(db, nopLog)
	user := createUser(t, db)
	product := createProduct(t, db, "Mug", 100, 5)
	ctx := context.Background()

	_, err := svc.AddItem(ctx, user.ID, product.ID.String(), 2)
	require.NoError(t, err)
	cart, err := svc.AddItem(ctx, user.ID, product.ID.String(), 3)
	require.NoError(t, err)

	require.Len(t, cart.Items, 1)
	assert.Equal(t, 5, cart.Items[0].Quantity)
	assert.True(t, cart.Total.Equal(decimal.NewFromInt(500)))

	_, err = svc.AddItem(ctx, user.ID, product.ID.String(), 1)
	require.Error(t, err)
	assert.Equal(t, "Cannot add more than 5 items to cart", domain.ErrorMessage(err))

	cart, err = svc.GetCart(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, cart.Items[0].Quantity)
}

func TestAddItemValidation(t *testing.T) {
	db := setupDB(t)
	svc := NewCartService(db, nopLog)
	user := createUser(t, db)
	product := createProduct(t, db, "Pen", 10, 2)
	ctx := context.Background()

	_, err := svc.AddItem(ctx, user.ID, "", 1)
	assert.True(t, domain.IsCode(err, domain.EINVALID))

	_, err = svc.AddItem(ctx, user.ID, product.ID.String(), -1)
	assert.True(t, domain.IsCode(err, domain.EINVALID))

	_, err = svc.AddItem(ctx, user.ID, "not-a-uuid", 1)
	assert.ErrorIs(t, err, domain.ErrInvalidID)

	_, err = svc.AddItem(ctx, user.ID, uuid.NewString(), 1)
	assert.ErrorIs(t, err, domain.ErrProductNotFound)

	_, err = svc.AddItem(ctx, user.ID, product.ID.String(), 3)
	require.Error(t, err)
	assert.Equal(t, "Only 2 items available in stock", domain.ErrorMessage(err))
}

func TestUpdateItem(t *testing.T) {
	db := setupDB(t)
	svc := NewCartService(db, nopLog)
	user := createUser(t, db)
	a := createProduct(t, db, "A", 100, 10)
	b := createProduct(t, db, "B", 40, 10)
	ctx := context.Background()

	_, err := svc.AddItem(ctx, user.ID, a.ID.String(), 1)
	require.NoError(t, err)
	cart, err := svc.AddItem(ctx, user.ID, b.ID.String(), 2)
	require.NoError(t, err)
	require.Len(t, cart.Items, 2)
	itemA := cart.Items[0].ID.String()

	cart, err = svc.UpdateItem(ctx, user.ID, itemA, 4)
	require.NoError(t, err)
	assert.True(t, cart.Total.Equal(decimal.NewFromInt(480)))

	_, err = svc.UpdateItem(ctx, user.ID, itemA, 11)
	assert.True(t, domain.IsCode(err, domain.EINVALID))

	cart, err = svc.UpdateItem(ctx, user.ID, itemA, 0)
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, b.ID, cart.Items[0].ProductID)
	assert.True(t, cart.Total.Equal(decimal.NewFromInt(80)))

	_, err = svc.RemoveItem(ctx, user.ID, itemA)
	assert.ErrorIs(t, err, domain.ErrCartItemNotFound)
}

func TestUpdateWithoutCart(t *testing.T) {
	db := setupDB(t)
	svc := NewCartService(db, nopLog)
	user := createUser(t, db)

	_, err := svc.UpdateItem(context.Background(), user.ID, uuid.NewString(), 1)
	assert.ErrorIs(t, err, domain.ErrCartNotFound)
}

func TestRemoveItemKeepsOrder(t *testing.T) {
	db := setupDB(t)
	svc := NewCartService(db, nopLog)
	user := createUser(t, db)
	ctx := context.Background()

	var cartItems []string
	for _, name := range []string{"first", "second", "third"} {
		p := createProduct(t, db, name, 10, 5)
		cart, err := svc.AddItem(ctx, user.ID, p.ID.String(), 1)
		require.NoError(t, err)
		cartItems = append(cartItems, cart.Items[len(cart.Items)-1].ID.String())
	}

	cart, err := svc.RemoveItem(ctx, user.ID, cartItems[1])
	require.NoError(t, err)
	require.Len(t, cart.Items, 2)
	assert.Equal(t, "first", cart.Items[0].Name)
	assert.Equal(t, "third", cart.Items[1].Name)
}

func TestClearCartIsIdempotent(t *testing.T) {
	db := setupDB(t)
	svc := NewCartService(db, nopLog)
	user := createUser(t, db)
	p := createProduct(t, db, "Bag", 900, 3)
	ctx := context.Background()

	_, err := svc.ClearCart(ctx, user.ID)
	assert.ErrorIs(t, err, domain.ErrCartNotFound)

	_, err = svc.AddItem(ctx, user.ID, p.ID.String(), 1)
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		cart, err := svc.ClearCart(ctx, user.ID)
		require.NoError(t, err)
		assert.Empty(t, cart.Items)
		assert.True(t, cart.Total.IsZero())
	}
}

func TestGetCartWithoutCart(t *testing.T) {
	db := setupDB(t)
	svc := NewCartService(db, nopLog)
	user := createUser(t, db)

	cart, err := svc.GetCart(context.Background(), user.ID)
	require.NoError(t, err)
	assert.NotNil(t, cart.Items)
	assert.Empty(t, cart.Items)
	assert.True(t, cart.Total.IsZero())
	assert.Equal(t, user.ID, cart.UserID)
}
