package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ecommerce-backend/config"
	"ecommerce-backend/database"
	"ecommerce-backend/events"
	"ecommerce-backend/middleware"
	"ecommerce-backend/payment"
	"ecommerce-backend/routes"
	"ecommerce-backend/services"
	"ecommerce-backend/storage"
	"ecommerce-backend/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
)

func main() {
	// Load environment variables
	_ = config.LoadEnv()

	cfg, err := config.Load()
	if err != nil {
		bootLog := utils.NewLogger("production", "info")
		bootLog.Fatal().Err(err).Msg("invalid configuration")
	}
	log := utils.NewLogger(cfg.Env, cfg.LogLevel)

	// Validate critical environment variables
	if err := config.ValidateEnv(); err != nil {
		log.Fatal().Err(err).Msg("environment validation failed")
	}
	for _, w := range cfg.Warnings() {
		log.Warn().Msg(w)
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	if err := database.Migrate(db); err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}
	if err := database.CreateDefaultAdmin(db, cfg.AdminEmail, cfg.AdminPassword, log); err != nil {
		log.Warn().Err(err).Msg("could not create default admin")
	}
	if cfg.SeedCatalog {
		if err := database.SeedCatalog(db, log); err != nil {
			log.Warn().Err(err).Msg("could not seed catalog")
		}
	}

	ctx := context.Background()

	store, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		log.Error().Err(err).Str("provider", cfg.Storage.Provider).Msg("image storage unavailable, photos will be stored inline")
		// storage.New returns a typed nil on failure.
		store = nil
	}

	var gateway payment.Gateway = payment.Disabled{}
	if rzp, err := payment.NewRazorpayGateway(cfg.Razorpay.KeyID, cfg.Razorpay.KeySecret); err != nil {
		log.Warn().Err(err).Msg("payment gateway disabled")
	} else {
		gateway = rzp
	}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Fatal().Err(err).Msg("invalid REDIS_URL")
		}
		redisClient = redis.NewClient(opts)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Warn().Err(err).Msg("redis not reachable, continuing")
		}
	}

	var publisher events.Publisher = events.NopPublisher{}
	switch {
	case cfg.NATSURL != "":
		np, err := events.NewNATSPublisher(cfg.NATSURL)
		if err != nil {
			log.Warn().Err(err).Msg("nats unavailable, order events disabled")
		} else {
			publisher = np
		}
	case redisClient != nil:
		publisher = events.NewRedisPublisher(redisClient)
	}

	var idempotency middleware.IdempotencyStore = middleware.NewMemoryIdempotencyStore()
	if redisClient != nil {
		idempotency = middleware.NewRedisIdempotencyStore(redisClient)
	}

	policy, err := services.ParseQuantityPolicy(cfg.Checkout.QuantityPolicy)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid checkout configuration")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	checkoutOpts := []services.CheckoutOption{
		services.WithPublisher(publisher),
		services.WithMetrics(services.NewCheckoutMetrics(reg)),
	}
	if cfg.SMTP.Enabled() {
		checkoutOpts = append(checkoutOpts, services.WithNotifier(utils.NewSMTPMailer(cfg.SMTP, log)))
	}
	checkout := services.NewCheckoutService(db, gateway, services.CheckoutConfig{
		Currency:       cfg.Checkout.Currency,
		QuantityPolicy: policy,
	}, log, checkoutOpts...)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestID(), middleware.RequestLogger(log), middleware.NewMetrics(reg).Middleware())

	// Limit multipart form memory to 10MB
	r.MaxMultipartMemory = 10 << 20

	origins := []string{}
	for _, o := range []string{cfg.FrontendURL, cfg.AdminURL} {
		if o != "" {
			origins = append(origins, o)
		}
	}
	r.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", middleware.IdempotencyKeyHeader, middleware.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", middleware.IdempotentReplayHeader, middleware.RequestIDHeader},
		AllowCredentials: true,
	}))

	if local, ok := store.(*storage.LocalStorage); ok && local.BaseURL() != "" {
		r.Static(local.BaseURL(), local.Root())
	}

	routes.SetupRoutes(r, routes.Deps{
		DB:          db,
		Storage:     store,
		Carts:       services.NewCartService(db, log),
		Checkout:    checkout,
		Idempotency: idempotency,
		RateLimiter: middleware.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst),
		Gatherer:    reg,
		Log:         log,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	if err := publisher.Close(); err != nil {
		log.Warn().Err(err).Msg("error closing event publisher")
	}
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			log.Warn().Err(err).Msg("error closing redis client")
		}
	}
	if sqlDB, err := db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			log.Warn().Err(err).Msg("error closing database connection")
		} else {
			log.Info().Msg("database connection closed")
		}
	}

	log.Info().Msg("server exited gracefully")
}
