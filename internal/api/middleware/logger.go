package middleware

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"

	"ltgsite/internal/reqctx"
)

const slogLoggerKey = "slogLogger"

// SlogLoggerMiddleware stores a request scoped logger carrying the
// correlation id, both on the gin context and in the request context, and
// logs every completed request.
func SlogLoggerMiddleware(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		correlationID := GetCorrelationID(c)
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		requestLogger := logger.With(
			slog.String("correlation_id", correlationID),
			slog.String("method", c.Request.Method),
			slog.String("path", path),
		)
		if tab := c.GetHeader(TabIDHeader); tab != "" {
			requestLogger = requestLogger.With(slog.String("tab_id", tab))
		}
		c.Set(slogLoggerKey, requestLogger)
		c.Request = c.Request.WithContext(reqctx.WithLogger(c.Request.Context(), requestLogger))

		start := time.Now()
		c.Next()

		requestLogger.Info("request completed",
			slog.Int("status", c.Writer.Status()),
			slog.Duration("latency", time.Since(start)),
		)
	}
}

// LoggerFromContext returns the request logger, or slog.Default.
func LoggerFromContext(c *gin.Context) *slog.Logger {
	return LoggerOr(c, slog.Default())
}

// LoggerOr returns the request logger, or fallback when none was stored.
func LoggerOr(c *gin.Context, fallback *slog.Logger) *slog.Logger {
	if value, ok := c.Get(slogLoggerKey); ok {
		if logger, ok := value.(*slog.Logger); ok {
			return logger
		}
	}
	if fallback == nil {
		return slog.Default()
	}
	return fallback
}
