package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"secknow-backend/internal/shared/config"
	"secknow-backend/internal/shared/metrics"
	"secknow-backend/internal/shared/server/middleware"
)

const (
	rateGroupDefault = "DEFAULT"
	rateGroupPolling = "POLLING"

	// pollingRateFactor scales the default bucket for the live suggestions endpoint.
	pollingRateFactor = 5
)

// RouteRegistrar is implemented by every feature handler.
type RouteRegistrar interface {
	RegisterRoutes(rg *gin.RouterGroup)
}

// RouterDeps carries what the router needs. Nil handlers are skipped.
type RouterDeps struct {
	Config   config.Config
	DB       Pinger
	Hub      ConsumerCounter
	Limiter  *middleware.RateLimiter
	Handlers []RouteRegistrar
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	cfg := deps.Config
	if cfg.Env != "dev" && cfg.Env != "local" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(cfg.CORSAllowOrigin),
		middleware.Auth(cfg.Env),
		middleware.RateLimit(rateLimitConfig(cfg, deps.Limiter)),
	)

	r.GET("/metrics", metrics.Handler())

	api := r.Group("/api/v1")
	api.GET("/health", healthHandler(deps.DB, deps.Hub))
	for _, h := range deps.Handlers {
		if h != nil {
			h.RegisterRoutes(api)
		}
	}

	return r
}

func rateLimitConfig(cfg config.Config, limiter *middleware.RateLimiter) middleware.RateLimitConfig {
	return middleware.RateLimitConfig{
		DefaultGroup: rateGroupDefault,
		Limiter:      limiter,
		GroupFor: func(c *gin.Context) string {
			if c.Request.Method == http.MethodGet && c.FullPath() == "/api/v1/assets/:id/suggestions/live" {
				return rateGroupPolling
			}
			return rateGroupDefault
		},
		Rules: map[string]middleware.RateLimitRule{
			rateGroupDefault: {Rate: cfg.RateLimitRPS, Burst: cfg.RateLimitBurst},
			rateGroupPolling: {Rate: cfg.RateLimitRPS * pollingRateFactor, Burst: cfg.RateLimitBurst * pollingRateFactor},
		},
	}
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
