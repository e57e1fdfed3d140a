package routes

import (
	"net/http"

	"ecommerce-backend/handlers"
	"ecommerce-backend/middleware"
	"ecommerce-backend/services"
	"ecommerce-backend/storage"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// Deps carries everything the HTTP layer needs. Optional fields may be nil:
// Idempotency falls back to an in-process store, RateLimiter to no limiting
// and Gatherer to the default Prometheus registry.
type Deps struct {
	DB          *gorm.DB
	Storage     storage.Storage
	Carts       *services.CartService
	Checkout    *services.CheckoutService
	Idempotency middleware.IdempotencyStore
	RateLimiter *middleware.RateLimiter
	Gatherer    prometheus.Gatherer
	Log         zerolog.Logger
	TempDir     string
}

func SetupRoutes(r *gin.Engine, deps Deps) {
	authHandler := &handlers.AuthHandler{DB: deps.DB, Log: deps.Log}
	categoryHandler := &handlers.CategoryHandler{DB: deps.DB, Log: deps.Log}
	productHandler := &handlers.ProductHandler{DB: deps.DB, Storage: deps.Storage, Log: deps.Log, TempDir: deps.TempDir}
	cartHandler := &handlers.CartHandler{Carts: deps.Carts, Log: deps.Log}
	checkoutHandler := &handlers.CheckoutHandler{Checkout: deps.Checkout, Log: deps.Log}
	orderHandler := &handlers.OrderHandler{DB: deps.DB, Log: deps.Log}

	idempotency := deps.Idempotency
	if idempotency == nil {
		idempotency = middleware.NewMemoryIdempotencyStore()
	}
	limit := func(c *gin.Context) { c.Next() }
	if deps.RateLimiter != nil {
		limit = deps.RateLimiter.Middleware()
	}

	requireAuth := middleware.AuthMiddleware()
	requireAdmin := middleware.AdminMiddleware()

	api := r.Group("/api/v1")

	// Auth and account routes
	auth := api.Group("/auth")
	{
		auth.POST("/register", limit, authHandler.Register)
		auth.POST("/login", limit, authHandler.Login)
		auth.GET("/user-auth", requireAuth, authHandler.UserAuth)
		auth.GET("/admin-auth", requireAuth, requireAdmin, authHandler.AdminAuth)
		auth.GET("/profile", requireAuth, authHandler.GetProfile)
		auth.PUT("/profile", requireAuth, authHandler.UpdateProfile)
		auth.GET("/orders", requireAuth, orderHandler.GetOrders)
		auth.GET("/orders/:id", requireAuth, orderHandler.GetOrder)
		auth.GET("/all-orders", requireAuth, requireAdmin, orderHandler.GetAllOrders)
	}

	category := api.Group("/category")
	{
		category.GET("/get-category", categoryHandler.GetCategories)
		category.GET("/single-category/:slug", categoryHandler.GetCategory)
		category.POST("/create-category", requireAuth, requireAdmin, categoryHandler.CreateCategory)
		category.PUT("/update-category/:id", requireAuth, requireAdmin, categoryHandler.UpdateCategory)
		category.DELETE("/delete-category/:id", requireAuth, requireAdmin, categoryHandler.DeleteCategory)
	}

	product := api.Group("/product")
	{
		// Catalog
		product.GET("/get-product", productHandler.GetProducts)
		product.GET("/get-product/:slug", productHandler.GetProduct)
		product.GET("/get-product-by-id/:id", productHandler.GetProductByID)
		product.GET("/product-photo/:pid", productHandler.ProductPhoto)
		product.POST("/product-filters", productHandler.ProductFilters)
		product.GET("/product-count", productHandler.ProductCount)
		product.GET("/product-list/:page", productHandler.ProductList)
		product.GET("/search/:keyword", productHandler.SearchProducts)
		product.GET("/related-product/:pid/:cid", productHandler.RelatedProducts)
		product.GET("/product-category/:slug", productHandler.ProductsByCategory)

		product.POST("/create-product", requireAuth, requireAdmin, productHandler.CreateProduct)
		product.PUT("/update-product/:pid", requireAuth, requireAdmin, productHandler.UpdateProduct)
		product.DELETE("/delete-product/:pid", requireAuth, requireAdmin, productHandler.DeleteProduct)

		// Cart
		product.POST("/cart/add", requireAuth, cartHandler.AddToCart)
		product.GET("/cart", requireAuth, cartHandler.GetCart)
		product.PUT("/cart/update", requireAuth, cartHandler.UpdateCartItem)
		product.DELETE("/cart/remove/:itemId", requireAuth, cartHandler.RemoveCartItem)
		product.DELETE("/cart/clear", requireAuth, cartHandler.ClearCart)

		// Checkout. The razorpay-prefixed paths are kept for older storefront builds.
		createOrder := []gin.HandlerFunc{requireAuth, limit, middleware.Idempotency(idempotency, deps.Log), checkoutHandler.CreateOrder}
		product.POST("/create-order", createOrder...)
		product.POST("/create-razorpay-order", createOrder...)
		product.POST("/verify-payment", requireAuth, checkoutHandler.VerifyPayment)
		product.POST("/verify-razorpay-payment", requireAuth, checkoutHandler.VerifyPayment)
		product.GET("/get-payment-key", requireAuth, checkoutHandler.GetPaymentKey)
		product.GET("/get-razorpay-key", requireAuth, checkoutHandler.GetPaymentKey)
	}

	gatherer := deps.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}
