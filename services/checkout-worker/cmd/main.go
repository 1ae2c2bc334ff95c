package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/cartfuse/checkout-core/pkg"
	"github.com/cartfuse/checkout-core/pkg/cache"
	"github.com/cartfuse/checkout-core/pkg/clients"
	"github.com/cartfuse/checkout-core/pkg/database"
	"github.com/cartfuse/checkout-core/pkg/dtos"
	kafkautils "github.com/cartfuse/checkout-core/pkg/kafka"
	"github.com/cartfuse/checkout-core/pkg/reconcile"
	"github.com/cartfuse/checkout-core/pkg/repositories"
	"github.com/cartfuse/checkout-core/services/checkout-worker/configs"
	"github.com/cartfuse/checkout-core/services/checkout-worker/internal/services"
)

// main initializes and runs the checkout worker service.
func main() {
	// Initialize global logger with default configuration
	pkg.InitLogger()
	logger := pkg.Logger
	defer logger.Sync() // Ensure all buffered logs are flushed on exit

	// Load configuration from environment and optional config file
	cfg, err := configs.Load(logger)
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	// Initialize PostgreSQL database connection
	dbConfig := database.Config{
		PrimaryDSN: cfg.PrimaryDbAddr,
		ReadDSNs:   []string{cfg.ReadDbAddr},
		MaxConns:   cfg.MaxDbCons,
		MinConns:   cfg.MinDbCons,
	}
	db, disconnect, err := database.New(context.Background(), logger, dbConfig)
	if err != nil {
		logger.Fatal("failed to initialize database", zap.Error(err))
	}
	defer disconnect() // Ensure database connections are closed on shutdown

	// Create a context that can be canceled for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize Redis client backing the release queue
	redisClient, redisCloser, err := cache.New(ctx, cache.Config{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	if err != nil {
		logger.Fatal("failed to initialize redis", zap.Error(err))
	}
	logger.Info("redis client initialized successfully")

	// Make sure the topics this worker publishes to exist
	err = kafkautils.InitKafkaTopics(logger, ctx, kafkautils.KafkaConfig{
		BootstrapServers: cfg.KafkaBrokers,
		Topics: []kafkautils.TopicConfig{
			{Topic: dtos.TopicOrderCreated, NumPartitions: int(cfg.KafkaPartition), ReplicationFactor: 1},
			{Topic: dtos.TopicOrderPaid, NumPartitions: int(cfg.KafkaPartition), ReplicationFactor: 1},
			{Topic: dtos.TopicReleaseDLQ, NumPartitions: int(cfg.KafkaPartition), ReplicationFactor: 1},
		},
	})
	if err != nil {
		logger.Fatal("failed to initialize kafka topics", zap.Error(err))
	}

	producer, err := kafkautils.NewPublisher(logger, cfg.KafkaBrokers)
	if err != nil {
		logger.Fatal("failed to create kafka publisher", zap.Error(err))
	}

	// Outbox drain loop
	outboxPublisher := services.NewOutboxPublisher(services.OutboxPublisherConfig{
		Context:  ctx,
		Logger:   logger,
		Config:   cfg,
		DB:       db,
		Outbox:   repositories.NewOutboxRepository(),
		Producer: producer,
	})
	closeOutbox := outboxPublisher.Start()

	// Reservation release reconciliation loop
	reconciler := services.NewReleaseReconciler(services.ReleaseReconcilerConfig{
		Context:   ctx,
		Logger:    logger,
		Config:    cfg,
		Queue:     reconcile.NewRedisQueue(logger, redisClient, reconcile.DefaultQueueKey),
		Inventory: clients.NewInventoryClient(logger, cfg.InventoryApiUrl, cfg.UpstreamTimeout),
		Producer:  producer,
	})
	closeReconciler := reconciler.Start()

	// Expose Prometheus metrics
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	metricsSrv := &http.Server{Addr: cfg.MetricsAddr, Handler: mux}
	go func() {
		logger.Sugar().Infow("metrics server started", "addr", cfg.MetricsAddr)
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server error", zap.Error(err))
		}
	}()

	// Handle graceful shutdown on SIGINT or SIGTERM
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	osSignal := <-sigChan
	logger.Info("received shutdown signal", zap.String("signal", osSignal.String()))

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	cancel() // Trigger context cancellation
	closeOutbox()
	closeReconciler()
	producer.Close()
	redisCloser()
	if err = metricsSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("metrics server shutdown error", zap.Error(err))
	}
	logger.Info("service shutdown completed successfully")
}
