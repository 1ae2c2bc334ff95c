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

	JwtSecret string `mapstructure:"JWT_SECRET" validate:"required"`

	CartApiUrl      string        `mapstructure:"CART_API_URL" validate:"required"`
	InventoryApiUrl string        `mapstructure:"INVENTORY_API_URL" validate:"required"`
	PaymentApiUrl   string        `mapstructure:"PAYMENT_API_URL" validate:"required"`
	UpstreamTimeout time.Duration `mapstructure:"UPSTREAM_TIMEOUT"`

	ShippingFlatFee  string `mapstructure:"SHIPPING_FLAT_FEE" validate:"required"`
	ShippingFreeOver string `mapstructure:"SHIPPING_FREE_OVER"`

	MaxItemsPerOrder   int   `mapstructure:"MAX_ITEMS_PER_ORDER" validate:"min=1"`
	MaxQuantityPerItem int64 `mapstructure:"MAX_QUANTITY_PER_ITEM" validate:"min=1"`
}

func Load(logger *zap.Logger) (*Config, error) {
	viper.SetEnvPrefix("app") // Prefix for env vars
	viper.AutomaticEnv()

	// Default values
	viper.SetDefault("PORT", "8081")
	viper.SetDefault("MAX_DB_CONNECTIONS", "10")
	viper.SetDefault("MIN_DB_CONNECTIONS", "2")
	viper.SetDefault("UPSTREAM_TIMEOUT", "2s")
	viper.SetDefault("SHIPPING_FLAT_FEE", "5.00")
	viper.SetDefault("MAX_ITEMS_PER_ORDER", "100")
	viper.SetDefault("MAX_QUANTITY_PER_ITEM", "100")

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
	viper.AddConfigPath("./services/checkout-api/configs")
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
