// util/http_util.go
package util

import (
	"context"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	logger "github.com/dev-mohitbeniwal/sentinel/logging"
)

// UserIDKey is the gin context key the auth middleware stores the caller under.
const UserIDKey = "userID"

func RespondWithError(c *gin.Context, code int, message string, err error) {
	logger.Error(message,
		zap.Error(err),
		zap.String("path", c.Request.URL.Path),
		zap.String("method", c.Request.Method))
	c.JSON(code, gin.H{"error": message})
}

func GetUserIDFromContext(c *gin.Context) (string, error) {
	userID, exists := c.Get(UserIDKey)
	if !exists {
		return "", nil
	}
	id, _ := userID.(string)
	return id, nil
}

// ActorFromContext returns the authenticated caller when ctx is a request
// context populated by the auth middleware, or "system" otherwise.
func ActorFromContext(ctx context.Context) string {
	if ctx == nil {
		return "system"
	}
	if id, ok := ctx.Value(UserIDKey).(string); ok && id != "" {
		return id
	}
	return "system"
}
