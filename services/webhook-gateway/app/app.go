package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cartfuse/checkout-core/pkg"
	"github.com/cartfuse/checkout-core/pkg/cache"
	"github.com/cartfuse/checkout-core/pkg/database"
	middleware "github.com/cartfuse/checkout-core/pkg/middlewares"
	"github.com/cartfuse/checkout-core/pkg/repositories"
	"github.com/cartfuse/checkout-core/services/webhook-gateway/configs"
	"github.com/cartfuse/checkout-core/services/webhook-gateway/internal/handlers"
	"github.com/cartfuse/checkout-core/services/webhook-gateway/internal/services"
)

const webhookRateKey = "webhook:intake_rate"

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

	// Redis backs the distributed intake throttle
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

	ttl := cfg.WebhookRateTTL
	if ttl <= 0 {
		ttl = time.Minute
	}
	limiter := pkg.NewDistributedLimiter(redisClient, webhookRateKey, cfg.WebhookRateLimit, cfg.WebhookRateBurst, ttl, logger)

	webhookService := services.NewWebhookService(logger, store)
	webhookHandler := handlers.NewWebhookHandler(logger, webhookService, limiter, []byte(cfg.WebhookSecret), cfg.SignatureAlg)

	// Router
	r := gin.Default()

	api := r.Group("/api/v1")
	api.Use(middleware.TraceID())
	api.Use(middleware.Metrics())

	webhookHandler.RegisterRoutes(api)
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
