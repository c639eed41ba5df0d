package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jonesrussell/mxindex/internal/api/middleware"
	"github.com/jonesrussell/mxindex/internal/config"
	"github.com/jonesrussell/mxindex/internal/logger"
	"github.com/jonesrussell/mxindex/internal/metrics"
)

// RouterOptions configures the API router.
type RouterOptions struct {
	Metrics            *metrics.Metrics
	RateLimitPerMinute int
}

// NewRouter builds the gin engine with all middleware and routes.
func NewRouter(h *Handler, log logger.Interface, opts RouterOptions) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(log))
	if opts.Metrics != nil {
		router.Use(opts.Metrics.Middleware())
	}
	router.Use(middleware.NewRateLimiter(opts.RateLimitPerMinute).Middleware())

	router.GET("/", h.Root)
	router.GET("/health", h.Health)
	if opts.Metrics != nil {
		router.GET("/metrics", gin.WrapH(opts.Metrics.Handler()))
	}

	router.GET("/servers", h.ListServers)
	router.POST("/servers", h.AddServer)
	router.GET("/servers/search", h.SearchServers)
	router.GET("/servers/:domain", h.GetServerInfo)

	if h.runner != nil {
		router.POST("/discover", h.Discover)
	}

	return router
}

// NewHTTPServer wraps the router in an http.Server with the configured
// timeouts.
func NewHTTPServer(router *gin.Engine, cfg config.ServerConfig) *http.Server {
	return &http.Server{
		Addr:         cfg.Address,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
}

// requestLogger logs every request with its status and latency.
func requestLogger(log logger.Interface) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		log.Info("http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
			"client_ip", c.ClientIP(),
		)
	}
}
