package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	ginprom "github.com/zsais/go-gin-prometheus"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Options configures the router.
type Options struct {
	Production   bool
	RateLimit    float64
	RateBurst    int
	AllowOrigins []string
	Metrics      bool
	Health       func(ctx context.Context) error
}

// NewRouter builds the gin engine with middleware and routes. The limiter
// janitor stops when ctx is done.
func NewRouter(ctx context.Context, pools PoolService, access Access, opts Options, logger *zap.Logger) *gin.Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Production {
		gin.SetMode(gin.ReleaseMode)
	}
	h := &Handler{pools: pools, access: access, secureCookie: opts.Production, logger: logger}

	r := gin.New()
	if opts.Metrics {
		p := ginprom.NewPrometheus("poollens")
		p.Use(r)
	}

	corsCfg := cors.DefaultConfig()
	if len(opts.AllowOrigins) > 0 {
		corsCfg.AllowOrigins = opts.AllowOrigins
		corsCfg.AllowCredentials = true
	} else {
		corsCfg.AllowAllOrigins = true
	}
	corsCfg.AddAllowHeaders("Authorization", headerRequestID)

	r.Use(
		requestID(),
		accessLog(logger),
		recoverer(logger),
		cors.New(corsCfg),
	)
	if opts.RateLimit > 0 {
		store := NewLimiterStore(rate.Limit(opts.RateLimit), opts.RateBurst, 10*time.Minute)
		store.StartJanitor(ctx, time.Minute)
		r.Use(rateLimit(store, logger))
	}

	r.GET("/healthz", func(c *gin.Context) {
		if opts.Health != nil {
			if err := opts.Health(c.Request.Context()); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "message": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	api.GET("/pools/upcoming", h.upcoming)
	api.GET("/pools/past", h.past)
	api.GET("/pools/drafts", h.requireAuth(), h.drafts)
	api.POST("/pools/drafts", h.requireAuth(), h.createDraft)
	api.GET("/pools/:poolId", h.pool)
	api.GET("/pools/:poolId/participants", h.participants)
	api.GET("/pools/:poolId/winners/:address", h.winner)
	api.POST("/pools/:poolId/refresh", h.requireAuth(), h.refresh)
	api.PUT("/pools/:poolId/metadata", h.requireAuth(), h.updateMetadata)
	api.GET("/users/:address/pools", h.userPools)
	api.GET("/admin/check", h.adminCheck)

	api.GET("/user-cookies", h.getCookies)
	api.POST("/user-cookies", h.setCookie)
	api.DELETE("/user-cookies", h.deleteCookie)

	return r
}

// NewServer wraps handler in an http.Server with the usual timeouts.
func NewServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:           addr,
		Handler:        handler,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   30 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}
}
