package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"tillpoint/internal/core/apperror"
	appctx "tillpoint/internal/core/context"
	"tillpoint/internal/infrastructure/http/v1/dto"
	"tillpoint/internal/infrastructure/http/v1/handlers"
	"tillpoint/internal/infrastructure/idempotency"
	"tillpoint/pkg/logger"
)

// ErrorHandler middleware transforms errors into consistent JSON responses.
// Hides internal errors from clients while logging full details.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		err := c.Errors.Last().Err

		// If response already written by handler, do not override it.
		if c.Writer.Written() {
			return
		}

		status, body := errorResponse(c, err)

		finishIdempotency(c, status, body)

		c.JSON(status, body)
	}
}

// finishIdempotency stores a client error for replay. Server errors release
// the key instead, so the client can retry a transient failure with it.
func finishIdempotency(c *gin.Context, status int, body dto.ErrorResponse) {
	key, exists := c.Get(handlers.IdempotencyKeyCtx)
	if !exists {
		return
	}
	v, _ := c.Get(handlers.IdempotencyStoreCtx)
	store, ok := v.(idempotency.Store)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	var err error
	if status >= http.StatusInternalServerError {
		err = store.ReleaseKey(ctx, key.(string))
	} else {
		err = store.FailKey(ctx, key.(string), status, "application/json", body)
	}
	if err != nil {
		logger.Warn(ctx, "finish idempotency key", "key", key, "status", status, "error", err)
	}
}

func errorResponse(c *gin.Context, err error) (int, dto.ErrorResponse) {
	if appErr, ok := apperror.AsAppError(err); ok {
		if appErr.Err != nil {
			logger.Error(c.Request.Context(), "request error",
				"code", appErr.Code,
				"cause", appErr.Err,
			)
		}
		return appErr.HTTPStatus, dto.ErrorResponse{
			Code:    appErr.Code,
			Message: appErr.Message,
			Details: appErr.Details,
		}
	}

	logger.Error(c.Request.Context(), "unhandled error",
		"error", err,
	)
	return http.StatusInternalServerError, dto.ErrorResponse{
		Code:    apperror.CodeInternal,
		Message: "Internal server error",
		Details: map[string]any{
			"request_id": appctx.GetRequestID(c.Request.Context()),
		},
	}
}
