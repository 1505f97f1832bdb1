package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// TabIDHeader identifies one admin browser tab. Form state and drafts are
// scoped to it.
const TabIDHeader = "X-Tab-ID"

const tabIDKey = "tabID"

const maxTabIDLen = 128

// TabMiddleware requires a tab id header on admin form routes.
func TabMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(TabIDHeader))
		if id == "" || len(id) > maxTabIDLen {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "X-Tab-ID fehlt oder ist ungültig."})
			return
		}
		c.Set(tabIDKey, id)
		c.Next()
	}
}

// TabID returns the id stored by TabMiddleware.
func TabID(c *gin.Context) string {
	if v, ok := c.Get(tabIDKey); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
