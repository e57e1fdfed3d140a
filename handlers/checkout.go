package handlers

import (
	"errors"
	"io"
	"net/http"

	"ecommerce-backend/services"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

type CheckoutHandler struct {
	Checkout *services.CheckoutService
	Log      zerolog.Logger
}

// snapshotEntry accepts both the storefront's "_id" and "productId" keys.
type snapshotEntry struct {
	ID        string `json:"_id"`
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

func (e snapshotEntry) productID() string {
	if e.ProductID != "" {
		return e.ProductID
	}
	return e.ID
}

// CreateOrder opens a gateway order for the caller's cart. The body may carry
// the storefront's cart, which replaces the stored one first.
func (h *CheckoutHandler) CreateOrder(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var req struct {
		Cart []snapshotEntry `json:"cart"`
	}
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		badRequest(c, "Invalid request body")
		return
	}

	snapshot := make([]services.SnapshotItem, 0, len(req.Cart))
	for _, entry := range req.Cart {
		snapshot = append(snapshot, services.SnapshotItem{ProductID: entry.productID(), Quantity: entry.Quantity})
	}

	result, err := h.Checkout.CreateOrder(c.Request.Context(), userID, snapshot)
	if err != nil {
		respondError(c, h.Log, err)
		return
	}

	respondOK(c, http.StatusOK, "", gin.H{
		"order":      result.Order,
		"amount":     result.Amount,
		"cart":       result.Cart.Items,
		"attempt_id": result.AttemptID,
	})
}

func (h *CheckoutHandler) VerifyPayment(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var req struct {
		OrderID   string `json:"razorpay_order_id"`
		PaymentID string `json:"razorpay_payment_id"`
		Signature string `json:"razorpay_signature"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}

	order, err := h.Checkout.VerifyPayment(c.Request.Context(), userID, services.VerifyPaymentParams{
		GatewayOrderID:   req.OrderID,
		GatewayPaymentID: req.PaymentID,
		Signature:        req.Signature,
	})
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	respondOK(c, http.StatusOK, "Payment verified successfully", gin.H{"order": order})
}

func (h *CheckoutHandler) GetPaymentKey(c *gin.Context) {
	respondOK(c, http.StatusOK, "", gin.H{"key": h.Checkout.PaymentKey()})
}
