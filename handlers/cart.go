package handlers

import (
	"net/http"

	"ecommerce-backend/services"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

type CartHandler struct {
	Carts *services.CartService
	Log   zerolog.Logger
}

func (h *CartHandler) AddToCart(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var req struct {
		ProductID string `json:"productId"`
		Quantity  int    `json:"quantity"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Product ID and quantity are required")
		return
	}

	cart, err := h.Carts.AddItem(c.Request.Context(), userID, req.ProductID, req.Quantity)
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	respondOK(c, http.StatusOK, "Product added to cart successfully", gin.H{"cart": cart})
}

func (h *CartHandler) GetCart(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	cart, err := h.Carts.GetCart(c.Request.Context(), userID)
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	message := ""
	if cart.IsEmpty() {
		message = "Cart is empty"
	}
	respondOK(c, http.StatusOK, message, gin.H{"cart": cart})
}

func (h *CartHandler) UpdateCartItem(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var req struct {
		ItemID   string `json:"itemId"`
		Quantity *int   `json:"quantity"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.ItemID == "" || req.Quantity == nil {
		badRequest(c, "Item ID and quantity are required")
		return
	}

	cart, err := h.Carts.UpdateItem(c.Request.Context(), userID, req.ItemID, *req.Quantity)
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	respondOK(c, http.StatusOK, "Cart updated successfully", gin.H{"cart": cart})
}

func (h *CartHandler) RemoveCartItem(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	cart, err := h.Carts.RemoveItem(c.Request.Context(), userID, c.Param("itemId"))
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	respondOK(c, http.StatusOK, "Item removed from cart successfully", gin.H{"cart": cart})
}

func (h *CartHandler) ClearCart(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	cart, err := h.Carts.ClearCart(c.Request.Context(), userID)
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	respondOK(c, http.StatusOK, "Cart cleared successfully", gin.H{"cart": cart})
}
