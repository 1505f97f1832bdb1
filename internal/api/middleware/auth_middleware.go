package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"ltgsite/internal/auth"
)

const (
	userIDKey      = "userID"
	accessTokenKey = "accessToken"
)

// TokenValidator verifies access tokens. *auth.AuthService satisfies it.
type TokenValidator interface {
	ValidateToken(tokenString string) (*auth.TokenClaims, error)
}

func abortUnauthorized(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
}

// BearerToken returns the token of an "Authorization: Bearer" header.
func BearerToken(c *gin.Context) string {
	parts := strings.Fields(c.GetHeader("Authorization"))
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}

// AuthMiddleware validates the access token and stores the user id and
// token in the context.
func AuthMiddleware(validator TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		rawToken := BearerToken(c)
		if rawToken == "" {
			abortUnauthorized(c)
			return
		}

		claims, err := validator.ValidateToken(rawToken)
		if err != nil {
			LoggerFromContext(c).Info("access token rejected", slog.Any("error", err))
			abortUnauthorized(c)
			return
		}

		c.Set(userIDKey, claims.Subject)
		c.Set(accessTokenKey, rawToken)
		c.Next()
	}
}

// UserID returns the id stored by AuthMiddleware.
func UserID(c *gin.Context) (string, bool) {
	v, ok := c.Get(userIDKey)
	if !ok {
		return "", false
	}
	id, ok := v.(string)
	return id, ok && id != ""
}

// AccessToken returns the raw token stored by AuthMiddleware.
func AccessToken(c *gin.Context) string {
	if v, ok := c.Get(accessTokenKey); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
