package middleware

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/cartfuse/checkout-core/pkg"
	"github.com/cartfuse/checkout-core/pkg/utils"
)

// Auth returns Gin middleware enforcing a Bearer token signed with the shared
// HMAC secret. The token subject becomes the authenticated user id available
// under pkg.UserId.
func Auth(logger *zap.Logger, secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		traceID := c.GetString(pkg.TraceId)

		tokenStr, err := bearerToken(c.GetHeader("Authorization"))
		if err != nil {
			abortUnauthorized(c, logger, traceID, err)
			return
		}

		token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return secret, nil
		})
		if err != nil {
			abortUnauthorized(c, logger, traceID, fmt.Errorf("invalid token: %w", err))
			return
		}
		if !token.Valid {
			abortUnauthorized(c, logger, traceID, errors.New("invalid token"))
			return
		}

		subject, err := token.Claims.GetSubject()
		if err != nil || utils.IsEmpty(subject) {
			abortUnauthorized(c, logger, traceID, errors.New("token has no subject"))
			return
		}

		c.Set(pkg.UserId, subject)
		c.Next()
	}
}

func bearerToken(header string) (string, error) {
	if utils.IsEmpty(header) {
		return "", errors.New("missing authorization header")
	}
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", errors.New("invalid authorization header")
	}
	return parts[1], nil
}

func abortUnauthorized(c *gin.Context, logger *zap.Logger, traceID string, cause error) {
	err := pkg.NewAppError(pkg.ErrUnauthorizedCode, pkg.ErrUnauthorizedCode.Message, cause)
	resp := pkg.ToErrorResponse(logger, traceID, err)
	c.AbortWithStatusJSON(resp.Status, resp)
}
