package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"ltgsite/internal/reqctx"
)

const CorrelationIDHeader = reqctx.CorrelationIDHeader

const (
	correlationIDKey       = "correlationID"
	maxCorrelationIDLength = 64
)

// CorrelationIDMiddleware reuses a well-formed incoming id or mints a new one,
// echoes it in the response and stores it in the request context.
func CorrelationIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(CorrelationIDHeader)
		if !validCorrelationID(id) {
			id = uuid.NewString()
		}

		c.Set(correlationIDKey, id)
		c.Request = c.Request.WithContext(reqctx.WithCorrelationID(c.Request.Context(), id))
		c.Header(CorrelationIDHeader, id)

		c.Next()
	}
}

// validCorrelationID accepts short ids made of letters, digits, '-' and '_'.
func validCorrelationID(id string) bool {
	if id == "" || len(id) > maxCorrelationIDLength {
		return false
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return false
		}
	}
	return true
}

func GetCorrelationID(c *gin.Context) string {
	return c.GetString(correlationIDKey)
}
