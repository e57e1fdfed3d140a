package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"ecommerce-backend/domain"
	"ecommerce-backend/middleware"
	"ecommerce-backend/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// OrderHandler serves the read-only order history. Orders are written only
// by the checkout flow.
type OrderHandler struct {
	DB  *gorm.DB
	Log zerolog.Logger
}

func buyerColumns(db *gorm.DB) *gorm.DB {
	return db.Select("id", "name", "email", "phone", "address", "role")
}

func (h *OrderHandler) GetOrders(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var orders []models.Order
	err := h.DB.Preload("Products").
		Where("buyer_id = ?", userID).
		Order("created_at DESC").
		Find(&orders).Error
	if err != nil {
		respondError(c, h.Log, domain.Internal(err, "orders.list"))
		return
	}

	respondOK(c, http.StatusOK, "", gin.H{"orders": orders})
}

// GetAllOrders lists every order for admins, newest first. Optional query
// parameters: page (1-based), limit and status.
func (h *OrderHandler) GetAllOrders(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	if page < 1 {
		page = 1
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if limit < 1 || limit > 200 {
		limit = 50
	}

	status := c.Query("status")
	filter := func(db *gorm.DB) *gorm.DB {
		if status != "" {
			return db.Where("payment_status = ?", status)
		}
		return db
	}

	var total int64
	if err := h.DB.Model(&models.Order{}).Scopes(filter).Count(&total).Error; err != nil {
		respondError(c, h.Log, domain.Internal(err, "orders.all"))
		return
	}

	var orders []models.Order
	err := h.DB.Scopes(filter).Preload("Products").Preload("Buyer", buyerColumns).
		Order("created_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&orders).Error
	if err != nil {
		respondError(c, h.Log, domain.Internal(err, "orders.all"))
		return
	}

	respondOK(c, http.StatusOK, "", gin.H{
		"orders": orders,
		"total":  total,
		"page":   page,
		"limit":  limit,
	})
}

// GetOrder returns one order to its buyer or to an admin.
func (h *OrderHandler) GetOrder(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, h.Log, domain.ErrInvalidID)
		return
	}

	var order models.Order
	err = h.DB.Preload("Products").Preload("Buyer", buyerColumns).Where("id = ?", id).First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		respondError(c, h.Log, domain.ErrOrderNotFound)
		return
	}
	if err != nil {
		respondError(c, h.Log, domain.Internal(err, "orders.get"))
		return
	}

	role, _ := c.Get(middleware.ContextUserRole)
	if order.BuyerID != userID && role != models.RoleAdmin {
		respondError(c, h.Log, domain.ErrOrderNotFound)
		return
	}

	respondOK(c, http.StatusOK, "", gin.H{"order": order})
}
