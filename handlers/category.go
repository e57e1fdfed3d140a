package handlers

import (
	"errors"
	"net/http"
	"strings"

	"ecommerce-backend/domain"
	"ecommerce-backend/models"
	"ecommerce-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

type CategoryHandler struct {
	DB  *gorm.DB
	Log zerolog.Logger
}

type categoryRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

func (h *CategoryHandler) GetCategories(c *gin.Context) {
	var categories []models.Category
	if err := h.DB.Order("name ASC").Find(&categories).Error; err != nil {
		respondError(c, h.Log, domain.Internal(err, "category.list"))
		return
	}
	respondOK(c, http.StatusOK, "All Categories List", gin.H{"category": categories})
}

func (h *CategoryHandler) GetCategory(c *gin.Context) {
	var category models.Category
	err := h.DB.Where("slug = ?", c.Param("slug")).First(&category).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		respondError(c, h.Log, domain.ErrCategoryNotFound)
		return
	}
	if err != nil {
		respondError(c, h.Log, domain.Internal(err, "category.get"))
		return
	}
	respondOK(c, http.StatusOK, "Get Single Category Successfully", gin.H{"category": category})
}

func (h *CategoryHandler) CreateCategory(c *gin.Context) {
	var req categoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Name is required")
		return
	}
	name := strings.TrimSpace(req.Name)

	if taken, err := h.nameTaken(name, uuid.Nil); err != nil {
		respondError(c, h.Log, domain.Internal(err, "category.create"))
		return
	} else if taken {
		respondError(c, h.Log, domain.ErrCategoryExists)
		return
	}

	category := models.Category{
		Name:        name,
		Slug:        utils.Slugify(name),
		Description: req.Description,
	}
	if err := h.DB.Create(&category).Error; err != nil {
		respondError(c, h.Log, domain.Internal(err, "category.create"))
		return
	}

	respondOK(c, http.StatusCreated, "New category created", gin.H{"category": category})
}

func (h *CategoryHandler) UpdateCategory(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, h.Log, domain.ErrInvalidID)
		return
	}

	var req categoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Name is required")
		return
	}
	name := strings.TrimSpace(req.Name)

	var category models.Category
	err = h.DB.Where("id = ?", id).First(&category).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		respondError(c, h.Log, domain.ErrCategoryNotFound)
		return
	}
	if err != nil {
		respondError(c, h.Log, domain.Internal(err, "category.update"))
		return
	}

	if taken, err := h.nameTaken(name, id); err != nil {
		respondError(c, h.Log, domain.Internal(err, "category.update"))
		return
	} else if taken {
		respondError(c, h.Log, domain.ErrCategoryExists)
		return
	}

	category.Name = name
	category.Slug = utils.Slugify(name)
	category.Description = req.Description
	if err := h.DB.Save(&category).Error; err != nil {
		respondError(c, h.Log, domain.Internal(err, "category.update"))
		return
	}

	respondOK(c, http.StatusOK, "Category Updated Successfully", gin.H{"category": category})
}

func (h *CategoryHandler) DeleteCategory(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, h.Log, domain.ErrInvalidID)
		return
	}

	var productCount int64
	if err := h.DB.Model(&models.Product{}).Where("category_id = ?", id).Count(&productCount).Error; err != nil {
		respondError(c, h.Log, domain.Internal(err, "category.delete"))
		return
	}
	if productCount > 0 {
		respondError(c, h.Log, domain.ErrCategoryInUse)
		return
	}

	res := h.DB.Delete(&models.Category{}, "id = ?", id)
	if res.Error != nil {
		respondError(c, h.Log, domain.Internal(res.Error, "category.delete"))
		return
	}
	if res.RowsAffected == 0 {
		respondError(c, h.Log, domain.ErrCategoryNotFound)
		return
	}

	respondOK(c, http.StatusOK, "Category Deleted Successfully", nil)
}

// nameTaken reports whether another category already uses name or its slug.
func (h *CategoryHandler) nameTaken(name string, except uuid.UUID) (bool, error) {
	var count int64
	err := h.DB.Model(&models.Category{}).
		Where("(LOWER(name) = LOWER(?) OR slug = ?) AND id <> ?", name, utils.Slugify(name), except).
		Count(&count).Error
	return count > 0, err
}
