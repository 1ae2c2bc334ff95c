package app

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cartfuse/checkout-core/pkg/cache"
	"github.com/cartfuse/checkout-core/pkg/clients"
	"github.com/cartfuse/checkout-core/pkg/database"
	middleware "github.com/cartfuse/checkout-core/pkg/middlewares"
	"github.com/cartfuse/checkout-core/pkg/reconcile"
	"github.com/cartfuse/checkout-core/pkg/repositories"
	"github.com/cartfuse/checkout-core/services/checkout-api/configs"
	"github.com/cartfuse/checkout-core/services/checkout-api/internal/handlers"
	"github.com/cartfuse/checkout-core/services/checkout-api/internal/services"
)

// NewApp wires dependencies, builds the Gin engine, and returns an *http.Server and a cleanup func.
// It reads configuration from environment variables via configs.Load.
func NewApp(ctx context.Context, logger *zap.Logger) (*http.Server, func(), error) {
	// Load config
	cfg, err := configs.Load(logger)
	if err != nil {
		return nil, nil, err
	}

	// Initialize postgres db
	dbConfig := database.Config{
		PrimaryDSN: cfg.PrimaryDbAddr,
		ReadDSNs:   []string{cfg.ReadDbAddr},
		MaxConns:   cfg.MaxDbCons,
		MinConns:   cfg.MinDbCons,
	}
	db, disconnect, err := database.New(ctx, logger, dbConfig)
	if err != nil {
		return nil, nil, err
	}

	// Run migrations on primary
	if err = database.RunMigrations(logger, cfg.PrimaryDbAddr); err != nil {
		disconnect()
		return nil, nil, err
	}

	// Redis backs the release reconciliation queue
	redisClient, redisCloser, err := cache.New(ctx, cache.Config{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	if err != nil {
		disconnect()
		return nil, nil, err
	}

	// Setup dependencies
	baseHandler := handlers.NewBaseHandler(logger)

	store := repositories.NewStore(db, logger,
		repositories.NewOrderRepository(),
		repositories.NewSessionRepository(),
		repositories.NewWebhookEventRepository(),
		repositories.NewOutboxRepository(),
	)

	cartClient := clients.NewCartClient(logger, cfg.CartApiUrl, cfg.UpstreamTimeout)
	inventoryClient := clients.NewInventoryClient(logger, cfg.InventoryApiUrl, cfg.UpstreamTimeout)
	paymentClient := clients.NewPaymentClient(logger, cfg.PaymentApiUrl, cfg.UpstreamTimeout)

	releaseQueue := reconcile.NewRedisQueue(logger, redisClient, reconcile.DefaultQueueKey)
	shippingService := services.NewShippingService(logger, cfg)
	checkoutService := services.NewCheckoutService(services.CheckoutServiceConfig{
		Logger:    logger,
		Config:    cfg,
		Carts:     cartClient,
		Inventory: inventoryClient,
		Payments:  paymentClient,
		Store:     store,
		Shipping:  shippingService,
		Releases:  releaseQueue,
	})
	orderService := services.NewOrderService(logger, store)

	checkoutHandler := handlers.NewCheckoutHandler(logger, checkoutService)
	orderHandler := handlers.NewOrderHandler(logger, orderService)

	// Router
	r := gin.Default()

	api := r.Group("/api/v1")
	api.Use(middleware.TraceID())
	api.Use(middleware.Metrics())
	api.Use(middleware.Auth(logger, []byte(cfg.JwtSecret)))

	checkoutHandler.RegisterRoutes(api)
	orderHandler.RegisterRoutes(api)
	baseHandler.RegisterRoutes(r)

	addr := fmt.Sprintf(":%s", cfg.Port)
	srv := &http.Server{Addr: addr, Handler: r}

	cleanup := func() {
		// close db pools
		disconnect()
		// close redis client
		redisCloser()
	}

	return srv, cleanup, nil
}
