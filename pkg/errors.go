package pkg

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
)

var ExposeErrorDetails = false

func init() {
	if gin.DebugMode == gin.Mode() || gin.TestMode == gin.Mode() {
		ExposeErrorDetails = true
	}
}

// Reusable errors
var (
	SqlErrForeignKeyViolation = errors.New("foreign key violation")
	SqlError                  = errors.New("sql error")

	// ErrEventAlreadyProcessed signals that a webhook event id was already
	// recorded. Callers treat it as success, not failure.
	ErrEventAlreadyProcessed = errors.New("event already processed")

	ErrOrderNotFound  = errors.New("order not found")
	ErrAmountMismatch = errors.New("payment amount does not match order total")
)

// ErrorCode defines a standardized error code
type ErrorCode struct {
	Code    string
	Status  int
	Message string // default message
}

var (
	// Generic app
	ErrInvalidInputCode   = ErrorCode{Code: "APP_INVALID_INPUT", Status: http.StatusBadRequest, Message: "invalid input"}
	ErrServerCode         = ErrorCode{Code: "APP_INTERNAL", Status: http.StatusInternalServerError, Message: "internal server error"}
	ErrRecordNotFoundCode = ErrorCode{Code: "APP_NOT_FOUND", Status: http.StatusNotFound, Message: "record not found"}
	ErrUnauthorizedCode   = ErrorCode{Code: "AUTH_UNAUTHORIZED", Status: http.StatusUnauthorized, Message: "authentication required"}
	ErrRateLimitedCode    = ErrorCode{Code: "APP_RATE_LIMITED", Status: http.StatusTooManyRequests, Message: "too many requests"}

	// Checkout pipeline
	ErrCheckoutValidationCode  = ErrorCode{Code: "CHECKOUT_VALIDATION", Status: http.StatusBadRequest, Message: "invalid checkout request"}
	ErrEmptyCartCode           = ErrorCode{Code: "CHECKOUT_EMPTY_CART", Status: http.StatusUnprocessableEntity, Message: "cart is empty"}
	ErrCartUnavailableCode     = ErrorCode{Code: "CHECKOUT_CART_UNAVAILABLE", Status: http.StatusServiceUnavailable, Message: "cart service unavailable"}
	ErrStockConflictCode       = ErrorCode{Code: "CHECKOUT_STOCK_CONFLICT", Status: http.StatusConflict, Message: "insufficient stock"}
	ErrPaymentIntentFailedCode = ErrorCode{Code: "CHECKOUT_PAYMENT_INTENT_FAILED", Status: http.StatusBadGateway, Message: "payment intent creation failed"}

	// Orders
	ErrOrderNotFoundCode     = ErrorCode{Code: "ORDER_NOT_FOUND", Status: http.StatusNotFound, Message: "order not found"}
	ErrInvalidTransitionCode = ErrorCode{Code: "ORDER_INVALID_TRANSITION", Status: http.StatusConflict, Message: "invalid order state transition"}

	// Webhooks
	ErrInvalidSignatureCode = ErrorCode{Code: "WEBHOOK_INVALID_SIGNATURE", Status: http.StatusUnauthorized, Message: "invalid webhook signature"}
	ErrAmountMismatchCode   = ErrorCode{Code: "WEBHOOK_AMOUNT_MISMATCH", Status: http.StatusUnprocessableEntity, Message: "payment amount mismatch"}

	// SQL layer
	ErrSQLUnknownCode   = ErrorCode{Code: "SQL_UNKNOWN", Status: http.StatusInternalServerError, Message: "sql error"}
	ErrSQLConflictCode  = ErrorCode{Code: "SQL_CONFLICT", Status: http.StatusConflict, Message: "sql conflict"}
	ErrSQLDuplicateCode = ErrorCode{Code: "SQL_DUPLICATE", Status: http.StatusConflict, Message: "duplicate record"}
	ErrSQLInvalidInput  = ErrorCode{Code: "SQL_INVALID_INPUT", Status: http.StatusBadRequest, Message: "invalid input"}
)

// FieldIssue describes one rejected field of a request payload.
type FieldIssue struct {
	Field string `json:"field"`
	Issue string `json:"issue"`
}

type AppError struct {
	Code    ErrorCode
	Message string       // public-facing message
	Fields  []FieldIssue // optional per-field validation issues
	Cause   error        // internal cause (wrapped)
}

func (e AppError) Error() string {
	if e.Cause == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Cause)
}
func (e AppError) Unwrap() error { return e.Cause }

func NewAppError(code ErrorCode, msg string, cause error) error {
	return AppError{Code: code, Message: msg, Cause: cause}
}

// NewValidationError builds a CHECKOUT_VALIDATION error carrying the list of
// rejected fields.
func NewValidationError(fields ...FieldIssue) error {
	return AppError{Code: ErrCheckoutValidationCode, Message: ErrCheckoutValidationCode.Message, Fields: fields}
}

// ErrorResponse defines the standardized error response format
type ErrorResponse struct {
	Status  int          `json:"-"`
	Code    string       `json:"code"`
	Message string       `json:"message"`
	Details []FieldIssue `json:"details,omitempty"`
	Cause   string       `json:"cause,omitempty"` // only populated when ExposeErrorDetails
}

// ToErrorResponse converts an error into an ErrorResponse, logging details and optionally exposing error messages.
// If the error is not an AppError, it is converted to a generic 500 error.
func ToErrorResponse(logger *zap.Logger, traceID string, err error) ErrorResponse {
	var appErr AppError
	if errors.As(err, &appErr) {
		resp := ErrorResponse{
			Status:  appErr.Code.Status,
			Code:    appErr.Code.Code,
			Message: appErr.Message,
			Details: appErr.Fields,
		}
		logger.Error("application error", zap.String(TraceId, traceID), zap.Error(err))
		if ExposeErrorDetails {
			resp.Cause = err.Error()
		}
		return resp
	}
	// Unknown error : 500
	resp := ErrorResponse{
		Status:  ErrServerCode.Status,
		Code:    ErrServerCode.Code,
		Message: ErrServerCode.Message,
	}
	logger.Error("application error", zap.String(TraceId, traceID), zap.Error(err))
	if ExposeErrorDetails {
		resp.Cause = err.Error()
	}
	return resp
}

// HandleSQLError maps pg errors -> AppError with proper codes/status
func HandleSQLError(traceId string, logger *zap.Logger, err error) error {
	var pgErr *pgconn.PgError
	if errors.Is(err, pgx.ErrNoRows) {
		logger.Warn("sql error : no records found", zap.String(TraceId, traceId))
		return NewAppError(ErrRecordNotFoundCode, "no records found", err)
	}
	if !errors.As(err, &pgErr) {
		logger.Error("sql error : unknown", zap.String(TraceId, traceId), zap.Error(err))
		return NewAppError(ErrSQLUnknownCode, "sql error", err)
	}

	// Log rich pg error context
	logger.Error("sql error",
		zap.String(TraceId, traceId),
		zap.String("code", pgErr.Code),
		zap.String("message", pgErr.Message),
		zap.String("detail", pgErr.Detail),
		zap.String("schema", pgErr.SchemaName),
		zap.String("table", pgErr.TableName),
		zap.String("column", pgErr.ColumnName),
		zap.String("constraint", pgErr.ConstraintName),
	)

	switch pgErr.Code {
	case "23505": // unique_violation
		return NewAppError(ErrSQLDuplicateCode, "duplicate value violates unique constraint", SqlError)
	case "23503": // foreign_key_violation
		return NewAppError(ErrSQLConflictCode, "foreign key violation", SqlErrForeignKeyViolation)
	case "22P02": // invalid_text_representation Ex: bad UUID
		return NewAppError(ErrSQLInvalidInput, "invalid input syntax", SqlError)
	case "22001": // string_data_right_truncation
		return NewAppError(ErrSQLInvalidInput, "value too long for column", SqlError)
	case "22003": // numeric_value_out_of_range
		return NewAppError(ErrSQLInvalidInput, "numeric value out of range", SqlError)
	default:
		return NewAppError(ErrSQLUnknownCode, "sql error", SqlError)
	}
}

// IsUniqueViolation reports whether err is a raw pg unique violation or the
// SQL_DUPLICATE AppError produced from one.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return true
	}
	var appErr AppError
	return errors.As(err, &appErr) && appErr.Code.Code == ErrSQLDuplicateCode.Code
}
