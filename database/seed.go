package database

import (
	"ecommerce-backend/models"
	"ecommerce-backend/utils"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type seedCategory struct {
	name, description string
}

type seedProduct struct {
	name, category string
	price          int64
	quantity       int
	description    string
	photoURL       string
}

var demoCategories = []seedCategory{
	{"Electronics", "Gadgets, devices and accessories"},
	{"Fashion", "Clothing, footwear and accessories"},
	{"Home & Living", "Furniture, decor and essentials"},
	{"Sports", "Fitness gear, sportswear and more"},
	{"Books", "Fiction, non-fiction and education"},
	{"Grocery", "Daily essentials and fresh goods"},
}

var demoProducts = []seedProduct{
	{"Wireless Noise-Cancelling Headphones", "Electronics", 4999, 50, "Over-ear headphones with 30-hour battery life and active noise cancellation.", "https://images.unsplash.com/photo-1505740420928-5e560c06d30e?w=600&q=80"},
	{"Smart Watch Pro X", "Electronics", 8999, 30, "Smartwatch with health monitoring, GPS and a 7-day battery.", "https://images.unsplash.com/photo-1523275335684-37898b6baf30?w=600&q=80"},
	{"Portable Bluetooth Speaker", "Electronics", 1999, 80, "20W speaker with IPX7 waterproofing and 12-hour playtime.", "https://images.unsplash.com/photo-1608043152269-423dbba4e7e1?w=600&q=80"},
	{"USB-C Hub 7-in-1", "Electronics", 1299, 75, "4K HDMI, 100W PD charging, USB 3.0 and card readers.", "https://images.unsplash.com/photo-1625842268584-8f3296236761?w=600&q=80"},
	{"Premium Slim-Fit Chinos", "Fashion", 1499, 100, "Stretch-cotton slim-fit chinos for office and casual wear.", "https://images.unsplash.com/photo-1542272604-787c3835535d?w=600&q=80"},
	{"Classic Leather Sneakers", "Fashion", 2999, 50, "Minimalist leather sneakers with cushioned insole.", "https://images.unsplash.com/photo-1542291026-7eec264c27ff?w=600&q=80"},
	{"Hooded Sweatshirt", "Fashion", 1299, 80, "Heavyweight fleece hoodie with kangaroo pocket.", "https://images.unsplash.com/photo-1556821840-3a63f15732ce?w=600&q=80"},
	{"Ceramic Pour-Over Coffee Set", "Home & Living", 1799, 35, "Handcrafted ceramic dripper with matching server.", "https://images.unsplash.com/photo-1495474472287-4d71bcdd2085?w=600&q=80"},
	{"Minimalist Desk Lamp", "Home & Living", 2199, 28, "LED desk lamp with 5 brightness levels and a USB charging port.", "https://images.unsplash.com/photo-1507473885765-e6ed057f782c?w=600&q=80"},
	{"Yoga Mat with Straps", "Sports", 1199, 60, "6mm anti-slip yoga mat with alignment lines and carry strap.", "https://images.unsplash.com/photo-1601925228088-8e4c56ec5f03?w=600&q=80"},
	{"Adjustable Dumbbell Set", "Sports", 5999, 15, "Adjustable dumbbells from 5 to 25 kg with a quick-change dial.", "https://images.unsplash.com/photo-1571019613454-1cb2f99b2d8b?w=600&q=80"},
	{"Atomic Habits (Paperback)", "Books", 499, 150, "A practical guide to building good habits and breaking bad ones.", "https://images.unsplash.com/photo-1544947950-fa07a98d237f?w=600&q=80"},
	{"The Psychology of Money", "Books", 399, 120, "Timeless lessons on wealth, greed and happiness.", "https://images.unsplash.com/photo-1512820790803-83ca734da794?w=600&q=80"},
	{"Organic Honey 500g", "Grocery", 499, 90, "Raw, unfiltered organic honey with no additives.", "https://images.unsplash.com/photo-1587049352846-4a222e784d38?w=600&q=80"},
	{"Cold Brew Coffee Pack", "Grocery", 799, 60, "Cold brew concentrate, 10 servings per pack.", "https://images.unsplash.com/photo-1461023058943-07fcbe16d735?w=600&q=80"},
}

// SeedCatalog upserts the demo categories and products by slug. It is safe
// to run on every start.
func SeedCatalog(db *gorm.DB, log zerolog.Logger) error {
	categoryIDs := make(map[string]models.Category, len(demoCategories))

	for _, c := range demoCategories {
		category := models.Category{Name: c.name, Slug: utils.Slugify(c.name), Description: c.description}
		err := db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "slug"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "description", "updated_at"}),
		}).Create(&category).Error
		if err != nil {
			return err
		}
		if err := db.Where("slug = ?", category.Slug).First(&category).Error; err != nil {
			return err
		}
		categoryIDs[c.name] = category
	}

	for _, p := range demoProducts {
		product := models.Product{
			Name:        p.name,
			Slug:        utils.Slugify(p.name),
			Description: p.description,
			Price:       decimal.NewFromInt(p.price),
			CategoryID:  categoryIDs[p.category].ID,
			Quantity:    p.quantity,
			Shipping:    true,
			PhotoURL:    p.photoURL,
		}
		err := db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "slug"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "description", "price", "category_id", "quantity", "photo_url", "updated_at"}),
		}).Create(&product).Error
		if err != nil {
			return err
		}
	}

	log.Info().Int("categories", len(demoCategories)).Int("products", len(demoProducts)).Msg("catalog seeded")
	return nil
}
