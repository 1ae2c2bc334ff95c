package utils

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/cartfuse/checkout-core/pkg"
)

// IsEmpty checks if a string is empty.
func IsEmpty(s string) bool {
	return s == ""
}

func GetTraceID(c *gin.Context) (string, error) {
	traceID := c.GetString(pkg.TraceId)
	if IsEmpty(traceID) {
		return "", errors.New("trace id is empty")
	}
	return traceID, nil
}

// GetUserID returns the authenticated user id set by the auth middleware.
func GetUserID(c *gin.Context) (uuid.UUID, error) {
	raw := c.GetString(pkg.UserId)
	if IsEmpty(raw) {
		return uuid.Nil, errors.New("user id is empty")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("user id is not a uuid: %w", err)
	}
	return id, nil
}

// ParseStructEnv binds env vars to struct fields using a mapstructure tag
func ParseStructEnv(cfg interface{}) error {
	v := reflect.ValueOf(cfg).Elem()
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		tag := field.Tag.Get("mapstructure")
		if err := viper.BindEnv(tag); err != nil {
			return err
		}
	}
	return viper.Unmarshal(cfg)
}

// FormatConfigErrors flattens validator errors from a config struct into one
// readable message listing every failing key.
func FormatConfigErrors(logger *zap.Logger, err error, cfg any) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		logger.Error("invalid config value",
			zap.String("field", fe.StructField()),
			zap.String("rule", fe.Tag()),
		)
		parts = append(parts, fmt.Sprintf("%s (%s)", fe.StructField(), fe.Tag()))
	}
	return fmt.Errorf("invalid configuration for %T: %s", cfg, strings.Join(parts, ", "))
}
