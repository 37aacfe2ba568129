// Package apperror provides structured error handling following RFC 7807 Problem Details.
// All business errors must use AppError for consistent API responses.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes following domain-driven design
const (
	// Infrastructure errors (5xx)
	CodeInternal  = "INTERNAL_ERROR"
	CodeDatabase  = "DATABASE_ERROR"
	CodeTransient = "TRANSIENT_FAILURE"

	// Validation errors (400)
	CodeValidation      = "VALIDATION_ERROR"
	CodeEmptySale       = "EMPTY_SALE"
	CodeInvalidMovement = "INVALID_MOVEMENT"

	// Pricing rule violations (422)
	CodeNegativeValue    = "NEGATIVE_VALUE"
	CodeSellingBelowCost = "SELLING_BELOW_COST"
	CodeSellingAboveMrp  = "SELLING_ABOVE_MRP"

	// Stock and refund rule violations (422)
	CodeInsufficientStock     = "INSUFFICIENT_STOCK"
	CodeOverReturn            = "OVER_RETURN"
	CodeBatchTrackingDisabled = "BATCH_TRACKING_DISABLED"

	// Not found (404)
	CodeNotFound         = "NOT_FOUND"
	CodeBatchNotFound    = "BATCH_NOT_FOUND"
	CodeSaleNotFound     = "SALE_NOT_FOUND"
	CodeSaleItemNotFound = "SALE_ITEM_NOT_FOUND"
	CodeProductNotFound  = "PRODUCT_NOT_FOUND"

	// Conflict (409)
	CodeConflict    = "CONFLICT"
	CodeDuplicate   = "DUPLICATE_ENTRY"
	CodeIdempotency = "IDEMPOTENCY_CONFLICT"

	// Throttling (429)
	CodeRateLimited = "RATE_LIMITED"
)

// AppError is the standard error type for the service.
// It implements error interface and provides structured details for API responses.
type AppError struct {
	// Code is a machine-readable error identifier
	Code string `json:"code"`

	// Message is a human-readable error description
	Message string `json:"message"`

	// Details contains additional context (field errors, quantities, etc.)
	Details map[string]any `json:"details,omitempty"`

	// HTTPStatus is the suggested HTTP status code
	HTTPStatus int `json:"-"`

	// Err is the underlying error (not exposed in JSON)
	Err error `json:"-"`
}

// Error implements error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *AppError) Unwrap() error {
	return e.Err
}

// WithDetail adds a key-value pair to error details
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// WithCause sets the underlying error
func (e *AppError) WithCause(err error) *AppError {
	e.Err = err
	return e
}

// --- Factory functions for common errors ---

// NewValidation creates a validation error (400)
func NewValidation(message string) *AppError {
	return &AppError{
		Code:       CodeValidation,
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
	}
}

// NewQuantityTooLarge rejects a quantity above the supported maximum (400).
func NewQuantityTooLarge(field string, value, limit int64) *AppError {
	return NewValidation(fmt.Sprintf("%s exceeds the maximum of %d", field, limit)).
		WithDetail("field", field).
		WithDetail("value", value).
		WithDetail("max", limit)
}

// NewNotFound creates a not found error (404)
func NewNotFound(entity string, id any) *AppError {
	return &AppError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", entity),
		HTTPStatus: http.StatusNotFound,
		Details:    map[string]any{"entity": entity, "id": id},
	}
}

// NewBatchNotFound creates a missing batch error (404)
func NewBatchNotFound(batchID any) *AppError {
	return &AppError{
		Code:       CodeBatchNotFound,
		Message:    "Batch not found",
		HTTPStatus: http.StatusNotFound,
		Details:    map[string]any{"batch_id": batchID},
	}
}

// NewProductNotFound creates a missing product error (404)
func NewProductNotFound(productID any) *AppError {
	return &AppError{
		Code:       CodeProductNotFound,
		Message:    "Product not found",
		HTTPStatus: http.StatusNotFound,
		Details:    map[string]any{"product_id": productID},
	}
}

// NewSaleNotFound creates a missing sale error (404)
func NewSaleNotFound(saleID any) *AppError {
	return &AppError{
		Code:       CodeSaleNotFound,
		Message:    "Sale not found",
		HTTPStatus: http.StatusNotFound,
		Details:    map[string]any{"sale_id": saleID},
	}
}

// NewSaleItemNotFound creates a missing sale line error (404)
func NewSaleItemNotFound(saleID, saleItemID any) *AppError {
	return &AppError{
		Code:       CodeSaleItemNotFound,
		Message:    "Sale item not found",
		HTTPStatus: http.StatusNotFound,
		Details:    map[string]any{"sale_id": saleID, "sale_item_id": saleItemID},
	}
}

// NewBusinessRule creates a business rule violation error (422)
func NewBusinessRule(code, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: http.StatusUnprocessableEntity,
	}
}

// NewInsufficientStock creates a stock shortage error
func NewInsufficientStock(batchID string, requested, available int64) *AppError {
	return &AppError{
		Code:       CodeInsufficientStock,
		Message:    "Insufficient stock",
		HTTPStatus: http.StatusUnprocessableEntity,
		Details: map[string]any{
			"batch_id":  batchID,
			"requested": requested,
			"available": available,
		},
	}
}

// NewOverReturn is returned when a return exceeds the remaining returnable quantity.
func NewOverReturn(saleItemID string, requested, remaining int64) *AppError {
	return &AppError{
		Code:       CodeOverReturn,
		Message:    "Return quantity exceeds remaining returnable quantity",
		HTTPStatus: http.StatusUnprocessableEntity,
		Details: map[string]any{
			"sale_item_id": saleItemID,
			"requested":    requested,
			"remaining":    remaining,
		},
	}
}

// NewEmptySale creates an error for a sale without lines (400)
func NewEmptySale() *AppError {
	return &AppError{
		Code:       CodeEmptySale,
		Message:    "Sale must contain at least one item",
		HTTPStatus: http.StatusBadRequest,
	}
}

// NewInvalidMovement creates an error for a delta that does not match its movement type (400)
func NewInvalidMovement(message string) *AppError {
	return &AppError{
		Code:       CodeInvalidMovement,
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
	}
}

// NewTransientFailure is returned after lock contention retries are exhausted (503).
func NewTransientFailure(attempts int, err error) *AppError {
	return &AppError{
		Code:       CodeTransient,
		Message:    "Operation could not be serialized, please retry",
		HTTPStatus: http.StatusServiceUnavailable,
		Details:    map[string]any{"attempts": attempts},
		Err:        err,
	}
}

// NewInternal creates an internal server error (hides details from client)
func NewInternal(err error) *AppError {
	return &AppError{
		Code:       CodeInternal,
		Message:    "Internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// NewIdempotencyConflict creates error when operation is already in progress
func NewIdempotencyConflict(key string) *AppError {
	return &AppError{
		Code:       CodeIdempotency,
		Message:    "Operation already in progress or completed",
		HTTPStatus: http.StatusConflict,
		Details:    map[string]any{"idempotency_key": key},
	}
}

// NewIdempotencyMismatch is returned when the same idempotency key is reused for
// a different request (different operation/body hash).
func NewIdempotencyMismatch(key string) *AppError {
	return &AppError{
		Code:       CodeIdempotency,
		Message:    "Idempotency key mismatch",
		HTTPStatus: http.StatusConflict,
		Details:    map[string]any{"idempotency_key": key},
	}
}

// NewRateLimited is returned when a client exceeds its request rate (429).
func NewRateLimited(client string) *AppError {
	return &AppError{
		Code:       CodeRateLimited,
		Message:    "Rate limit exceeded, please retry later",
		HTTPStatus: http.StatusTooManyRequests,
		Details:    map[string]any{"client": client},
	}
}

// NewConflict creates a conflict error (409)
func NewConflict(message string) *AppError {
	return &AppError{
		Code:       CodeConflict,
		Message:    message,
		HTTPStatus: http.StatusConflict,
	}
}

// NewDuplicate creates a duplicate entry error (409)
func NewDuplicate(entity, field, value string) *AppError {
	return &AppError{
		Code:       CodeDuplicate,
		Message:    fmt.Sprintf("%s with this %s already exists", entity, field),
		HTTPStatus: http.StatusConflict,
		Details:    map[string]any{"entity": entity, "field": field, "value": value},
	}
}

// --- Helper functions ---

// AsAppError extracts AppError from error chain
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// HasCode reports whether the error chain carries an AppError with the given code.
func HasCode(err error, code string) bool {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code == code
	}
	return false
}
