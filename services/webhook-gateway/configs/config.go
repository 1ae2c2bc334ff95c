package configs

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/cartfuse/checkout-core/pkg/utils"
)

type Config struct {
	Port          string `mapstructure:"PORT" validate:"required"`
	PrimaryDbAddr string `mapstructure:"PRIMARY_DB_ADDR" validate:"required"`
	ReadDbAddr    string `mapstructure:"READ_DB_ADDR"`
	MaxDbCons     int32  `mapstructure:"MAX_DB_CONNECTIONS" validate:"min=1"`
	MinDbCons     int32  `mapstructure:"MIN_DB_CONNECTIONS" validate:"min=1"`

	RedisAddr     string `mapstructure:"REDIS_ADDR" validate:"required"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`

	// Shared secret the payment provider signs request bodies with.
	WebhookSecret string `mapstructure:"WEBHOOK_SECRET" validate:"required"`
	SignatureAlg  string `mapstructure:"SIGNATURE_ALG" validate:"oneof=sha256 sha512"`

	// Global webhook intake throttle, 0 disables it.
	WebhookRateLimit int           `mapstructure:"WEBHOOK_RATE_LIMIT" validate:"min=0"`
	WebhookRateBurst int           `mapstructure:"WEBHOOK_RATE_BURST" validate:"min=0"`
	WebhookRateTTL   time.Duration `mapstructure:"WEBHOOK_RATE_TTL"`
}

func Load(logger *zap.Logger) (*Config, error) {
	viper.SetEnvPrefix("app") // Prefix for env vars
	viper.AutomaticEnv()

	// Default values
	viper.SetDefault("PORT", "8082")
	viper.SetDefault("MAX_DB_CONNECTIONS", "10")
	viper.SetDefault("MIN_DB_CONNECTIONS", "2")
	viper.SetDefault("SIGNATURE_ALG", utils.SignatureAlgSHA256)
	viper.SetDefault("WEBHOOK_RATE_LIMIT", "0")
	viper.SetDefault("WEBHOOK_RATE_BURST", "0")
	viper.SetDefault("WEBHOOK_RATE_TTL", "1m")

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
	viper.AddConfigPath("./services/webhook-gateway/configs")
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
