package configs

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/cartfuse/checkout-core/pkg/utils"
)

// Config holds application configuration for checkout-worker.
type Config struct {
	MetricsAddr   string `mapstructure:"METRICS_ADDR" validate:"required"`
	KafkaBrokers  string `mapstructure:"KAFKA_BROKERS" validate:"required"`
	PrimaryDbAddr string `mapstructure:"PRIMARY_DB_ADDR" validate:"required"`
	ReadDbAddr    string `mapstructure:"READ_DB_ADDR"`
	MaxDbCons     int32  `mapstructure:"MAX_DB_CONNECTIONS" validate:"min=1"`
	MinDbCons     int32  `mapstructure:"MIN_DB_CONNECTIONS" validate:"min=1"`

	RedisAddr     string `mapstructure:"REDIS_ADDR" validate:"required"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`

	KafkaPartition uint32 `mapstructure:"KAFKA_PARTITION" validate:"min=1"`

	// Outbox draining
	OutboxBatchSize    int           `mapstructure:"OUTBOX_BATCH_SIZE" validate:"min=1"`
	OutboxPollInterval time.Duration `mapstructure:"OUTBOX_POLL_INTERVAL" validate:"required"`

	// Reservation release reconciliation
	InventoryApiUrl    string        `mapstructure:"INVENTORY_API_URL" validate:"required"`
	UpstreamTimeout    time.Duration `mapstructure:"UPSTREAM_TIMEOUT"`
	ReleaseBaseBackoff time.Duration `mapstructure:"RELEASE_BASE_BACKOFF" validate:"required"`
	ReleaseMaxBackoff  time.Duration `mapstructure:"RELEASE_MAX_BACKOFF" validate:"required"`
	MaxReleaseAttempts int           `mapstructure:"MAX_RELEASE_ATTEMPTS" validate:"min=1,max=10"`
}

func Load(logger *zap.Logger) (*Config, error) {
	viper.SetEnvPrefix("app") // Prefix for env vars
	viper.AutomaticEnv()

	// Default values
	viper.SetDefault("METRICS_ADDR", ":9090")
	viper.SetDefault("MAX_DB_CONNECTIONS", "10")
	viper.SetDefault("MIN_DB_CONNECTIONS", "2")
	viper.SetDefault("KAFKA_PARTITION", "4")
	viper.SetDefault("OUTBOX_BATCH_SIZE", "100")
	viper.SetDefault("OUTBOX_POLL_INTERVAL", "500ms")
	viper.SetDefault("UPSTREAM_TIMEOUT", "2s")
	viper.SetDefault("RELEASE_BASE_BACKOFF", "2s")
	viper.SetDefault("RELEASE_MAX_BACKOFF", "1m")
	viper.SetDefault("MAX_RELEASE_ATTEMPTS", "5")

	// Optional: Read from config.yaml if exists
	if gin.ReleaseMode == gin.Mode() {
		viper.SetConfigName("config.prod")
	} else if gin.TestMode == gin.Mode() {
		logger.Warn("running in test mode")
		viper.SetConfigName("config.test")
	} else {
		logger.Warn("running in development mode")
		viper.SetConfigName("config.dev")
	}
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./services/checkout-worker/configs")
	_ = viper.ReadInConfig() // Ignore if no file

	var cfg Config
	if err := utils.ParseStructEnv(&cfg); err != nil {
		return nil, err
	}

	// Validate after unmarshal
	validate := validator.New()
	if err := validate.Struct(&cfg); err != nil {
		return nil, utils.FormatConfigErrors(logger, err, cfg)
	}
	return &cfg, nil
}
