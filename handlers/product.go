package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"strconv"
	"strings"

	"ecommerce-backend/domain"
	"ecommerce-backend/models"
	"ecommerce-backend/storage"
	"ecommerce-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const productsPerPage = 12

// ProductHandler serves the catalog. With a nil Storage photos are kept
// inline in the products table.
type ProductHandler struct {
	DB      *gorm.DB
	Storage storage.Storage
	Log     zerolog.Logger
	// TempDir receives uploads while they are pushed to storage; empty means
	// the OS default.
	TempDir string
}

type productForm struct {
	Name        string
	Description string
	Price       decimal.Decimal
	CategoryID  uuid.UUID
	Quantity    int
	Shipping    bool
	Photo       *multipart.FileHeader
}

// parseProductForm reads and validates the multipart product fields.
func parseProductForm(c *gin.Context) (*productForm, error) {
	const op = "product.form"

	f := &productForm{
		Name:        strings.TrimSpace(c.PostForm("name")),
		Description: strings.TrimSpace(c.PostForm("description")),
	}
	price := strings.TrimSpace(c.PostForm("price"))
	category := strings.TrimSpace(c.PostForm("category"))
	quantity := strings.TrimSpace(c.PostForm("quantity"))

	switch {
	case f.Name == "":
		return nil, domain.InvalidInput(op, "Name is Required")
	case f.Description == "":
		return nil, domain.InvalidInput(op, "Description is Required")
	case price == "":
		return nil, domain.InvalidInput(op, "Price is Required")
	case category == "":
		return nil, domain.InvalidInput(op, "Category is Required")
	case quantity == "":
		return nil, domain.InvalidInput(op, "Quantity is Required")
	}

	var err error
	if f.Price, err = decimal.NewFromString(price); err != nil || f.Price.IsNegative() {
		return nil, domain.InvalidInput(op, "Price must be a non-negative number")
	}
	if f.Quantity, err = strconv.Atoi(quantity); err != nil || f.Quantity < 0 {
		return nil, domain.InvalidInput(op, "Quantity must be a non-negative integer")
	}
	if f.CategoryID, err = uuid.Parse(category); err != nil {
		return nil, domain.ErrInvalidID
	}
	if s := c.PostForm("shipping"); s != "" {
		f.Shipping, _ = strconv.ParseBool(s)
	}

	if fh, err := c.FormFile("photo"); err == nil {
		if err := utils.ValidateFileUpload(fh); err != nil {
			return nil, domain.InvalidInput(op, "%s", err.Error())
		}
		f.Photo = fh
	} else if !errors.Is(err, http.ErrMissingFile) {
		return nil, domain.InvalidInput(op, "Invalid photo upload")
	}

	return f, nil
}

type storedPhoto struct {
	URL         string
	Data        []byte
	ContentType string
}

// storePhoto spools the upload to a temporary file and pushes it to storage.
// The temporary file is removed on every path.
func (h *ProductHandler) storePhoto(ctx context.Context, fh *multipart.FileHeader) (*storedPhoto, error) {
	src, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer src.Close()

	tmp, err := os.CreateTemp(h.TempDir, "product-upload-*")
	if err != nil {
		return nil, err
	}
	defer func() {
		tmp.Close()
		if err := os.Remove(tmp.Name()); err != nil && !os.IsNotExist(err) {
			h.Log.Warn().Err(err).Str("path", tmp.Name()).Msg("failed to remove temp upload")
		}
	}()

	if _, err := io.Copy(tmp, src); err != nil {
		return nil, err
	}
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}

	contentType := fh.Header.Get("Content-Type")
	if h.Storage == nil {
		data, err := io.ReadAll(tmp)
		if err != nil {
			return nil, err
		}
		return &storedPhoto{Data: data, ContentType: contentType}, nil
	}

	url, err := h.Storage.Upload(ctx, tmp, fh.Filename, contentType)
	if err != nil {
		return nil, err
	}
	return &storedPhoto{URL: url}, nil
}

func (p *storedPhoto) apply(product *models.Product) {
	product.PhotoURL = p.URL
	product.PhotoData = p.Data
	product.PhotoContentType = p.ContentType
}

// uniqueSlug derives a slug from name, appending -2, -3, ... on collision.
func uniqueSlug(db *gorm.DB, name string, except uuid.UUID) (string, error) {
	base := utils.Slugify(name)
	if base == "" {
		base = "product"
	}
	candidate := base
	for i := 2; ; i++ {
		var count int64
		if err := db.Model(&models.Product{}).Where("slug = ? AND id <> ?", candidate, except).Count(&count).Error; err != nil {
			return "", err
		}
		if count == 0 {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, i)
	}
}

func (h *ProductHandler) categoryExists(id uuid.UUID) error {
	var count int64
	if err := h.DB.Model(&models.Category{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return domain.Internal(err, "product.category")
	}
	if count == 0 {
		return domain.ErrCategoryNotFound
	}
	return nil
}

func (h *ProductHandler) CreateProduct(c *gin.Context) {
	form, err := parseProductForm(c)
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	if err := h.categoryExists(form.CategoryID); err != nil {
		respondError(c, h.Log, err)
		return
	}

	product := models.Product{
		Name:        form.Name,
		Description: form.Description,
		Price:       form.Price,
		CategoryID:  form.CategoryID,
		Quantity:    form.Quantity,
		Shipping:    form.Shipping,
	}
	if product.Slug, err = uniqueSlug(h.DB, form.Name, uuid.Nil); err != nil {
		respondError(c, h.Log, domain.Internal(err, "product.create"))
		return
	}

	if form.Photo != nil {
		photo, err := h.storePhoto(c.Request.Context(), form.Photo)
		if err != nil {
			h.Log.Error().Err(err).Str("filename", form.Photo.Filename).Msg("photo upload failed")
			respondError(c, h.Log, domain.WrapError(err, domain.EINTERNAL, "product.create", "Photo upload failed"))
			return
		}
		photo.apply(&product)
	}

	if err := h.DB.Create(&product).Error; err != nil {
		respondError(c, h.Log, domain.Internal(err, "product.create"))
		return
	}

	h.Log.Info().Str("product_id", product.ID.String()).Str("slug", product.Slug).Msg("product created")
	respondOK(c, http.StatusCreated, "Product Created Successfully", gin.H{"product": product})
}

// UpdateProduct replaces all fields of a product. When a new photo is sent the
// previous external photo is deleted before the upload.
func (h *ProductHandler) UpdateProduct(c *gin.Context) {
	id, err := uuid.Parse(c.Param("pid"))
	if err != nil {
		respondError(c, h.Log, domain.ErrInvalidID)
		return
	}
	form, err := parseProductForm(c)
	if err != nil {
		respondError(c, h.Log, err)
		return
	}

	var product models.Product
	err = h.DB.Select(models.ProductListColumns).Where("id = ?", id).First(&product).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		respondError(c, h.Log, domain.ErrProductNotFound)
		return
	}
	if err != nil {
		respondError(c, h.Log, domain.Internal(err, "product.update"))
		return
	}
	if err := h.categoryExists(form.CategoryID); err != nil {
		respondError(c, h.Log, err)
		return
	}

	updates := map[string]interface{}{
		"name":        form.Name,
		"description": form.Description,
		"price":       form.Price,
		"category_id": form.CategoryID,
		"quantity":    form.Quantity,
		"shipping":    form.Shipping,
	}
	if updates["slug"], err = uniqueSlug(h.DB, form.Name, id); err != nil {
		respondError(c, h.Log, domain.Internal(err, "product.update"))
		return
	}

	if form.Photo != nil {
		if product.PhotoURL != "" {
			h.deletePhoto(c.Request.Context(), id, product.PhotoURL)
		}
		photo, err := h.storePhoto(c.Request.Context(), form.Photo)
		if err != nil {
			h.Log.Error().Err(err).Str("product_id", id.String()).Msg("photo upload failed")
			respondError(c, h.Log, domain.WrapError(err, domain.EINTERNAL, "product.update", "Photo upload failed"))
			return
		}
		updates["photo_url"] = photo.URL
		updates["photo_data"] = photo.Data
		updates["photo_content_type"] = photo.ContentType
	}

	if err := h.DB.Model(&models.Product{}).Where("id = ?", id).Updates(updates).Error; err != nil {
		respondError(c, h.Log, domain.Internal(err, "product.update"))
		return
	}

	var updated models.Product
	if err := h.DB.Select(models.ProductListColumns).Preload("Category").Where("id = ?", id).First(&updated).Error; err != nil {
		respondError(c, h.Log, domain.Internal(err, "product.update"))
		return
	}
	respondOK(c, http.StatusOK, "Product Updated Successfully", gin.H{"product": updated})
}

// deletePhoto removes an external photo. Failures are logged only.
func (h *ProductHandler) deletePhoto(ctx context.Context, productID uuid.UUID, url string) {
	if h.Storage == nil {
		return
	}
	if err := h.Storage.Delete(ctx, url); err != nil {
		h.Log.Warn().Err(err).Str("product_id", productID.String()).Str("url", url).Msg("failed to delete product photo")
	}
}

// GetProducts returns the newest products.
func (h *ProductHandler) GetProducts(c *gin.Context) {
	var products []models.Product
	err := h.DB.Select(models.ProductListColumns).Preload("Category").
		Order("created_at DESC").
		Limit(productsPerPage).
		Find(&products).Error
	if err != nil {
		respondError(c, h.Log, domain.Internal(err, "product.list"))
		return
	}
	respondOK(c, http.StatusOK, "All Products", gin.H{"counTotal": len(products), "products": products})
}

func (h *ProductHandler) GetProduct(c *gin.Context) {
	var product models.Product
	err := h.DB.Select(models.ProductListColumns).Preload("Category").
		Where("slug = ?", c.Param("slug")).
		First(&product).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		respondError(c, h.Log, domain.ErrProductNotFound)
		return
	}
	if err != nil {
		respondError(c, h.Log, domain.Internal(err, "product.get"))
		return
	}
	respondOK(c, http.StatusOK, "Single Product Fetched", gin.H{"product": product})
}

func (h *ProductHandler) GetProductByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, h.Log, domain.ErrInvalidID)
		return
	}

	var product models.Product
	err = h.DB.Select(models.ProductListColumns).Preload("Category").Where("id = ?", id).First(&product).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		respondError(c, h.Log, domain.ErrProductNotFound)
		return
	}
	if err != nil {
		respondError(c, h.Log, domain.Internal(err, "product.get"))
		return
	}
	respondOK(c, http.StatusOK, "Single Product Fetched Successfully", gin.H{"product": product})
}

// ProductPhoto redirects to the external photo or serves the inline bytes.
func (h *ProductHandler) ProductPhoto(c *gin.Context) {
	id, err := uuid.Parse(c.Param("pid"))
	if err != nil {
		respondError(c, h.Log, domain.ErrInvalidID)
		return
	}

	var product models.Product
	err = h.DB.Select("id", "photo_url", "photo_data", "photo_content_type").Where("id = ?", id).First(&product).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		respondError(c, h.Log, domain.ErrProductNotFound)
		return
	}
	if err != nil {
		respondError(c, h.Log, domain.Internal(err, "product.photo"))
		return
	}

	if product.PhotoURL != "" {
		c.Redirect(http.StatusFound, product.PhotoURL)
		return
	}
	if len(product.PhotoData) > 0 {
		c.Header("Cache-Control", "public, max-age=3600")
		c.Data(http.StatusOK, product.PhotoContentType, product.PhotoData)
		return
	}
	c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Photo not found for this product"})
}

// DeleteProduct removes the external photo (best effort), the product's cart
// lines and the product itself.
func (h *ProductHandler) DeleteProduct(c *gin.Context) {
	id, err := uuid.Parse(c.Param("pid"))
	if err != nil {
		respondError(c, h.Log, domain.ErrInvalidID)
		return
	}

	var product models.Product
	err = h.DB.Select("id", "photo_url").Where("id = ?", id).First(&product).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		respondError(c, h.Log, domain.ErrProductNotFound)
		return
	}
	if err != nil {
		respondError(c, h.Log, domain.Internal(err, "product.delete"))
		return
	}

	if product.PhotoURL != "" {
		h.deletePhoto(c.Request.Context(), id, product.PhotoURL)
	}

	err = h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("product_id = ?", id).Delete(&models.CartItem{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Product{}, "id = ?", id).Error
	})
	if err != nil {
		respondError(c, h.Log, domain.Internal(err, "product.delete"))
		return
	}

	h.Log.Info().Str("product_id", id.String()).Msg("product deleted")
	respondOK(c, http.StatusOK, "Product Deleted successfully", nil)
}

// ProductFilters matches products by category set and price range.
// Body: {"checked": [categoryID...], "radio": [min, max]}.
func (h *ProductHandler) ProductFilters(c *gin.Context) {
	var req struct {
		Checked []string          `json:"checked"`
		Radio   []decimal.Decimal `json:"radio"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Error While Filtering Products")
		return
	}

	query := h.DB.Select(models.ProductListColumns)
	if len(req.Checked) > 0 {
		ids := make([]uuid.UUID, 0, len(req.Checked))
		for _, raw := range req.Checked {
			id, err := uuid.Parse(raw)
			if err != nil {
				respondError(c, h.Log, domain.ErrInvalidID)
				return
			}
			ids = append(ids, id)
		}
		query = query.Where("category_id IN ?", ids)
	}
	if len(req.Radio) == 2 {
		query = query.Where("price >= ? AND price <= ?", req.Radio[0], req.Radio[1])
	}

	var products []models.Product
	if err := query.Order("created_at DESC").Find(&products).Error; err != nil {
		respondError(c, h.Log, domain.Internal(err, "product.filter"))
		return
	}
	respondOK(c, http.StatusOK, "", gin.H{"products": products})
}

func (h *ProductHandler) ProductCount(c *gin.Context) {
	var total int64
	if err := h.DB.Model(&models.Product{}).Count(&total).Error; err != nil {
		respondError(c, h.Log, domain.Internal(err, "product.count"))
		return
	}
	respondOK(c, http.StatusOK, "", gin.H{"total": total})
}

// ProductList returns one page of products, newest first.
func (h *ProductHandler) ProductList(c *gin.Context) {
	page, err := strconv.Atoi(c.Param("page"))
	if err != nil || page < 1 {
		page = 1
	}

	var products []models.Product
	err = h.DB.Select(models.ProductListColumns).
		Order("created_at DESC").
		Offset((page - 1) * productsPerPage).
		Limit(productsPerPage).
		Find(&products).Error
	if err != nil {
		respondError(c, h.Log, domain.Internal(err, "product.page"))
		return
	}
	respondOK(c, http.StatusOK, "", gin.H{"products": products})
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// SearchProducts matches the keyword case-insensitively against name or
// description. The storefront expects a bare array.
func (h *ProductHandler) SearchProducts(c *gin.Context) {
	pattern := "%" + likeEscaper.Replace(strings.ToLower(c.Param("keyword"))) + "%"

	products := []models.Product{}
	err := h.DB.Select(models.ProductListColumns).
		Where(`LOWER(name) LIKE ? ESCAPE '\' OR LOWER(description) LIKE ? ESCAPE '\'`, pattern, pattern).
		Order("created_at DESC").
		Find(&products).Error
	if err != nil {
		respondError(c, h.Log, domain.Internal(err, "product.search"))
		return
	}
	c.JSON(http.StatusOK, products)
}

// RelatedProducts returns up to three other products from the same category.
func (h *ProductHandler) RelatedProducts(c *gin.Context) {
	pid, err := uuid.Parse(c.Param("pid"))
	if err != nil {
		respondError(c, h.Log, domain.ErrInvalidID)
		return
	}
	cid, err := uuid.Parse(c.Param("cid"))
	if err != nil {
		respondError(c, h.Log, domain.ErrInvalidID)
		return
	}

	var products []models.Product
	err = h.DB.Select(models.ProductListColumns).Preload("Category").
		Where("category_id = ? AND id <> ?", cid, pid).
		Order("created_at DESC").
		Limit(3).
		Find(&products).Error
	if err != nil {
		respondError(c, h.Log, domain.Internal(err, "product.related"))
		return
	}
	respondOK(c, http.StatusOK, "", gin.H{"products": products})
}

func (h *ProductHandler) ProductsByCategory(c *gin.Context) {
	var category models.Category
	err := h.DB.Where("slug = ?", c.Param("slug")).First(&category).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		respondError(c, h.Log, domain.ErrCategoryNotFound)
		return
	}
	if err != nil {
		respondError(c, h.Log, domain.Internal(err, "product.category"))
		return
	}

	var products []models.Product
	err = h.DB.Select(models.ProductListColumns).Preload("Category").
		Where("category_id = ?", category.ID).
		Order("created_at DESC").
		Find(&products).Error
	if err != nil {
		respondError(c, h.Log, domain.Internal(err, "product.category"))
		return
	}
	respondOK(c, http.StatusOK, "", gin.H{"category": category, "products": products})
}
