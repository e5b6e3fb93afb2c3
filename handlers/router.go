package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/docchat/backend/internal/auth"
	"github.com/docchat/backend/internal/config"
	"github.com/docchat/backend/internal/document/service"
	"github.com/docchat/backend/pkg/middleware"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

var startTime = time.Now()

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Dependencies is everything the router wires into handlers.
type Dependencies struct {
	Config   *config.Config
	Auth     *auth.Service
	Docs     *service.Service
	Store    Pinger
	Redis    *redis.Client
	Gatherer prometheus.Gatherer
}

// NewRouter builds the gin engine with all routes and middleware.
func NewRouter(d Dependencies) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(), middleware.CORS(d.Config.Server.CORSOrigins))

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "healthy")
	})
	r.GET("/ready", readiness(d))

	gatherer := d.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	RegisterSwagger(r)

	requireUser := middleware.Auth(d.Auth)
	limit := rateLimiter(d)

	public := r.Group("/")
	if limit != nil {
		public.Use(limit)
	}
	NewAuthHandler(d.Auth).Register(public, requireUser)

	protected := r.Group("/", requireUser)
	if limit != nil {
		protected.Use(limit)
	}
	NewDocumentHandler(d.Docs, d.Config.Upload.MaxBytes).Register(protected)
	return r
}

// rateLimiter returns nil when rate limiting is disabled.
func rateLimiter(d Dependencies) gin.HandlerFunc {
	rl := d.Config.RateLimit
	if !rl.Enabled {
		return nil
	}
	if rl.UseRedis && d.Redis != nil {
		return middleware.RedisRateLimitMiddleware(d.Redis, rl.RPS, rl.Burst, time.Duration(rl.WindowSeconds)*time.Second)
	}
	return middleware.RateLimitMiddleware(rl.RPS, rl.Burst)
}

// readiness returns 200 only when critical dependencies are available.
func readiness(d Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		ready := true
		deps := map[string]bool{}
		deps["store"] = d.Store != nil && d.Store.Ping(ctx) == nil
		if !deps["store"] {
			ready = false
		}
		if d.Redis != nil {
			deps["redis"] = d.Redis.Ping(ctx).Err() == nil
			if !deps["redis"] {
				ready = false
			}
		}

		status, label := http.StatusOK, "ready"
		if !ready {
			status, label = http.StatusServiceUnavailable, "not_ready"
		}
		c.JSON(status, gin.H{"status": label, "deps": deps, "uptime": time.Since(startTime).String()})
	}
}
