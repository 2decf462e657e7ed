package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/dev-mohitbeniwal/sentinel/db"
	logger "github.com/dev-mohitbeniwal/sentinel/logging"
	"github.com/dev-mohitbeniwal/sentinel/util"
)

// Rate limit scopes. Each scope keeps its own window per caller.
const (
	ScopeDecision = "decision"
	ScopeAdmin    = "admin"
	ScopeAPI      = "api"
)

// RateLimit is one scope's budget.
type RateLimit struct {
	Scope string
	Limit int
	Per   time.Duration
}

// RateLimiter counts requests per scope and caller in Redis. Mount it after
// GroupAuthMiddleware to key administrators by their token subject; other
// callers are keyed by client IP.
func RateLimiter(rl RateLimit) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller := CallerKey(c)
		allowed, err := db.RateLimit(c, rl.Scope+":"+caller, rl.Limit, rl.Per)
		if err != nil {
			logger.Error("Rate limiting failed",
				zap.Error(err),
				zap.String("scope", rl.Scope),
				zap.String("caller", caller))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Rate limiting failed"})
			c.Abort()
			return
		}

		c.Header("X-RateLimit-Scope", rl.Scope)
		c.Header("X-RateLimit-Limit", strconv.Itoa(rl.Limit))
		c.Header("X-RateLimit-Duration", rl.Per.String())

		if !allowed {
			logger.Warn("Rate limit exceeded",
				zap.String("scope", rl.Scope),
				zap.String("caller", caller),
				zap.Int("limit", rl.Limit),
				zap.Duration("per", rl.Per))
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "Rate limit exceeded"})
			c.Abort()
			return
		}

		c.Next()
	}
}

// CallerKey identifies the caller for rate limiting: the authenticated
// subject when one is set, the client IP otherwise.
func CallerKey(c *gin.Context) string {
	if sub := c.GetString(util.UserIDKey); sub != "" {
		return "sub:" + sub
	}
	return "ip:" + c.ClientIP()
}
