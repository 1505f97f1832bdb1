package api

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"ltgsite/internal/api/middleware"
	"ltgsite/internal/metrics"
)

// RouterOptions configures NewRouter.
type RouterOptions struct {
	// Server labels the request metrics.
	Server         string
	Logger         *slog.Logger
	AllowedOrigins []string
	// StaticDir, when set, is served for every path without a route.
	StaticDir string
	// NoCORS leaves CORS headers and preflight answers to the handlers.
	NoCORS bool
}

// NewRouter builds the gin engine with the shared middleware chain, a
// health check and the metrics endpoint.
func NewRouter(opts RouterOptions) *gin.Engine {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	router := gin.New()
	router.Use(
		gin.Recovery(),
		middleware.CorrelationIDMiddleware(),
		middleware.SlogLoggerMiddleware(opts.Logger),
		metrics.GinMiddleware(opts.Server),
	)
	if !opts.NoCORS {
		router.Use(middleware.CORSMiddleware(opts.AllowedOrigins))
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	if opts.StaticDir != "" {
		files := http.FileServer(http.Dir(opts.StaticDir))
		router.NoRoute(func(c *gin.Context) {
			if c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead {
				NotFound(c, "not found")
				return
			}
			files.ServeHTTP(c.Writer, c.Request)
		})
	}

	return router
}
