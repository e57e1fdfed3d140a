package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PhotoRoute is the public path that serves a product's photo.
const PhotoRoute = "/api/v1/product/product-photo/"

type Product struct {
	ID               uuid.UUID       `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	Name             string          `gorm:"not null" json:"name"`
	Slug             string          `gorm:"uniqueIndex;not null" json:"slug"`
	Description      string          `gorm:"type:text;not null" json:"description"`
	Price            decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"price"`
	CategoryID       uuid.UUID       `gorm:"type:uuid;not null;index" json:"category_id"`
	Category         *Category       `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
	Quantity         int             `gorm:"not null;default:0" json:"quantity"`
	Shipping         bool            `gorm:"default:false" json:"shipping"`
	PhotoURL         string          `json:"photo_url,omitempty"`
	PhotoData        []byte          `json:"-"`
	PhotoContentType string          `json:"-"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

func (p *Product) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// HasPhoto reports whether a photo is stored, either externally or inline.
// PhotoContentType is only set alongside inline bytes, so this works on rows
// loaded without photo_data.
func (p *Product) HasPhoto() bool {
	return p.PhotoURL != "" || p.PhotoContentType != ""
}

// PhotoPath returns the API path for the product photo, or "" when there is none.
func (p *Product) PhotoPath() string {
	if !p.HasPhoto() {
		return ""
	}
	return PhotoRoute + p.ID.String()
}

// ProductListColumns is the projection used by list endpoints; it leaves out
// the inline photo bytes.
var ProductListColumns = []string{
	"id", "name", "slug", "description", "price", "category_id",
	"quantity", "shipping", "photo_url", "photo_content_type", "created_at", "updated_at",
}
