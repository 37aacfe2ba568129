package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	appctx "tillpoint/internal/core/context"
)

const (
	HeaderOperatorID = "X-Operator-ID"
	HeaderTerminalID = "X-Terminal-ID"
)

// Operator copies the till operator headers into the request context.
//
// Authentication happens upstream of this service; the ids are recorded on
// sales, returns and audit entries as given.
func Operator() gin.HandlerFunc {
	return func(c *gin.Context) {
		op := &appctx.OperatorContext{
			OperatorID: strings.TrimSpace(c.GetHeader(HeaderOperatorID)),
			TerminalID: strings.TrimSpace(c.GetHeader(HeaderTerminalID)),
		}
		if op.OperatorID != "" || op.TerminalID != "" {
			c.Request = c.Request.WithContext(appctx.WithOperator(c.Request.Context(), op))
		}
		c.Next()
	}
}
