package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/crosslist/backend/internal/interfaces/http/dto"
)

// BodyLimit caps request bodies at maxBytes. Requests declaring an oversized
// Content-Length are rejected before any reading happens; chunked uploads are
// wrapped in a MaxBytesReader so handlers fail at the same boundary. Webhook
// payloads from the marketplaces are small, anything bigger is noise or abuse.
func BodyLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxBytes {
			c.AbortWithStatusJSON(
				dto.GetHTTPStatus(dto.ErrCodePayloadTooLarge),
				dto.NewErrorResponse(dto.ErrCodePayloadTooLarge, "Request body exceeds the allowed size"),
			)
			return
		}

		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}
