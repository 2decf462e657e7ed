// router/router.go

package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dev-mohitbeniwal/sentinel/controller"
	"github.com/dev-mohitbeniwal/sentinel/middleware"
)

// Options configures the HTTP surface. Rate limits count requests per
// RateLimitWindow; a zero limit disables that scope. The limiter needs Redis.
type Options struct {
	// RateLimitRequests is the per-IP budget for policy and audit routes.
	RateLimitRequests int
	// DecisionRateLimitRequests is the per-IP budget for decision routes.
	DecisionRateLimitRequests int
	// AdminRateLimitRequests is the per-subject budget for admin routes.
	AdminRateLimitRequests int
	RateLimitWindow        time.Duration

	JWTSecret  []byte
	AdminGroup string
	Metrics    http.Handler
}

func limiter(scope string, limit int, per time.Duration) []gin.HandlerFunc {
	if limit <= 0 {
		return nil
	}
	return []gin.HandlerFunc{middleware.RateLimiter(middleware.RateLimit{Scope: scope, Limit: limit, Per: per})}
}

func SetupRouter(controllers *controller.Controllers, opts Options) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.Logger())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if opts.Metrics != nil {
		router.GET("/metrics", gin.WrapH(opts.Metrics))
	}

	api := router.Group("/api/v1")
	decisions := api.Group("", limiter(middleware.ScopeDecision, opts.DecisionRateLimitRequests, opts.RateLimitWindow)...)
	management := api.Group("", limiter(middleware.ScopeAPI, opts.RateLimitRequests, opts.RateLimitWindow)...)

	// The admin budget runs after authentication so it is keyed by subject.
	admin := append([]gin.HandlerFunc{middleware.GroupAuthMiddleware(opts.JWTSecret, []string{opts.AdminGroup})},
		limiter(middleware.ScopeAdmin, opts.AdminRateLimitRequests, opts.RateLimitWindow)...)

	controllers.Access.RegisterRoutes(decisions)
	controllers.Policy.RegisterRoutes(management, admin...)
	if controllers.Audit != nil {
		controllers.Audit.RegisterRoutes(management, admin...)
	}

	return router
}
