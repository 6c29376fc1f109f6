package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	cartapp "github.com/recordshop/backend/internal/application/cart"
	catalogapp "github.com/recordshop/backend/internal/application/catalog"
	checkoutapp "github.com/recordshop/backend/internal/application/checkout"
	inventoryapp "github.com/recordshop/backend/internal/application/inventory"
	orderapp "github.com/recordshop/backend/internal/application/order"
	paymentapp "github.com/recordshop/backend/internal/application/payment"
	promotionapp "github.com/recordshop/backend/internal/application/promotion"
	"github.com/recordshop/backend/internal/domain/order"
	"github.com/recordshop/backend/internal/domain/shared/valueobject"
	"github.com/recordshop/backend/internal/infrastructure/cache"
	"github.com/recordshop/backend/internal/infrastructure/config"
	"github.com/recordshop/backend/internal/infrastructure/event"
	"github.com/recordshop/backend/internal/infrastructure/gateway"
	"github.com/recordshop/backend/internal/infrastructure/logger"
	"github.com/recordshop/backend/internal/infrastructure/persistence"
	"github.com/recordshop/backend/internal/interfaces/http/handler"
	"github.com/recordshop/backend/internal/interfaces/http/middleware"
	"github.com/recordshop/backend/internal/interfaces/http/router"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting record shop backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Initialize database connection
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, log, logger.MapGormLogLevel(cfg.Log.Level))
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	if err := db.Migrate(); err != nil {
		log.Fatal("Failed to migrate database schema", zap.Error(err))
	}
	log.Info("Database connected and migrated")

	// Initialize repositories
	catalogRepo := persistence.NewGormCatalogRepository(db.DB)
	inventoryRepo := persistence.NewGormInventoryRepository(db.DB)
	couponRepo := persistence.NewGormCouponRepository(db.DB)
	cartRepo := persistence.NewGormCartRepository(db.DB)
	orderRepo := persistence.NewGormOrderRepository(db.DB)
	paymentRepo := persistence.NewGormPaymentRepository(db.DB)
	txScope := persistence.NewGormTransactionScope(db.DB)

	// Checkout pricing from config
	shippingFee, err := valueobject.NewMoneyFromString(cfg.Checkout.ShippingFee, cfg.Checkout.Currency)
	if err != nil {
		log.Fatal("Invalid shipping fee in config", zap.Error(err))
	}
	freeShippingAbove, err := valueobject.NewMoneyFromString(cfg.Checkout.FreeShippingAbove, cfg.Checkout.Currency)
	if err != nil {
		log.Fatal("Invalid free shipping threshold in config", zap.Error(err))
	}
	shippingCalc := order.FlatRateShipping{Fee: shippingFee, FreeThreshold: freeShippingAbove}
	taxCalc := order.FlatRateTax{Percent: decimal.NewFromFloat(cfg.Checkout.TaxPercent)}

	// Stripe gateway
	stripeGateway, err := gateway.NewStripeGateway(&cfg.Stripe, log)
	if err != nil {
		log.Fatal("Failed to initialize payment gateway", zap.Error(err))
	}

	// Idempotency store: redis when configured, in-memory otherwise
	storeFactory := cache.NewIdempotencyStoreFactory(cfg.Redis, cache.WithLogger(log))
	idempotencyStore, err := storeFactory.CreateStore()
	if err != nil {
		log.Fatal("Failed to initialize idempotency store", zap.Error(err))
	}

	// In-process domain event bus
	eventBus := event.NewInMemoryEventBus(log)
	eventBus.Subscribe(inventoryapp.NewLowStockAlertHandler(log))

	// Initialize application services
	catalogService := catalogapp.NewService(catalogRepo, log)
	inventoryService := inventoryapp.NewService(inventoryRepo, log)
	promotionService := promotionapp.NewService(couponRepo, log)
	cartService := cartapp.NewService(cartRepo, catalogRepo, inventoryRepo, couponRepo, txScope, log)
	checkoutService := checkoutapp.NewService(txScope, catalogRepo, shippingCalc, taxCalc, log)
	orderService := orderapp.NewService(orderRepo, txScope, log)
	paymentService := paymentapp.NewService(paymentRepo, orderRepo, stripeGateway, log)
	webhookService := paymentapp.NewWebhookService(paymentRepo, stripeGateway, orderService, idempotencyStore, log)

	inventoryService.SetEventPublisher(eventBus)
	checkoutService.SetEventPublisher(eventBus)
	orderService.SetEventPublisher(eventBus)

	// Expired-cart sweeper
	purgeCtx, stopPurge := context.WithCancel(context.Background())
	defer stopPurge()
	go func() {
		ticker := time.NewTicker(cfg.Cart.PurgeInterval)
		defer ticker.Stop()
		for {
			select {
			case <-purgeCtx.Done():
				return
			case <-ticker.C:
				if _, err := cartService.PurgeExpired(purgeCtx); err != nil {
					log.Warn("Cart purge failed", zap.Error(err))
				}
			}
		}
	}()

	// Set Gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()

	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	// Middleware stack: request ID first so every later stage logs it
	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.Secure())
	engine.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     cfg.HTTP.CORSAllowOrigins,
		AllowMethods:     cfg.HTTP.CORSAllowMethods,
		AllowHeaders:     cfg.HTTP.CORSAllowHeaders,
		ExposeHeaders:    []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))
	engine.Use(middleware.Session())

	// Health check endpoint (outside API versioning)
	engine.GET("/health", healthHandler(db))

	// Register API routes
	r := router.NewRouter(engine, router.WithAPIVersion("v1"))
	r.Register(handler.NewCatalogHandler(catalogService)).
		Register(handler.NewInventoryHandler(inventoryService)).
		Register(handler.NewPromotionHandler(promotionService)).
		Register(handler.NewCartHandler(cartService)).
		Register(handler.NewCheckoutHandler(checkoutService)).
		Register(handler.NewOrderHandler(orderService)).
		Register(handler.NewPaymentHandler(paymentService)).
		Register(handler.NewWebhookHandler(webhookService))
	r.Setup()

	// Create HTTP server with config
	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	// Start server in goroutine
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	stopPurge()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// healthHandler reports process and database health
func healthHandler(db *persistence.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		reqLog := logger.GetGinLogger(c)
		if err := db.Ping(); err != nil {
			reqLog.Warn("Health check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"time":     time.Now().Format(time.RFC3339),
				"database": "error",
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":   "healthy",
			"time":     time.Now().Format(time.RFC3339),
			"database": "ok",
		})
	}
}
