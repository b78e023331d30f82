package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/bakery/orderdesk/internal/infrastructure/logger"
	"github.com/bakery/orderdesk/internal/interfaces/http/dto"
)

// BodyLimit caps request bodies at maxBytes. Dashboard writes are small
// JSON documents (view settings, action reasons, assignee lists), so an
// oversized declared length is refused before the handler runs and a
// chunked body is cut off while it is read.
func BodyLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			c.Next()
			return
		}

		if c.Request.ContentLength > maxBytes {
			logger.FromContext(c.Request.Context()).Warn("Request body over limit",
				zap.Int64("content_length", c.Request.ContentLength),
				zap.Int64("limit", maxBytes),
			)
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, dto.NewErrorResponseWithRequestID(
				dto.ErrCodeTooLarge,
				"Request body exceeds maximum allowed size",
				logger.GetRequestID(c.Request.Context()),
			))
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}
