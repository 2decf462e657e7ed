// controller/audit_controller.go
package controller

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dev-mohitbeniwal/sentinel/audit"
	sentinel_errors "github.com/dev-mohitbeniwal/sentinel/errors"
	"github.com/dev-mohitbeniwal/sentinel/util"
)

const defaultAuditWindow = 24 * time.Hour

type AuditController struct {
	auditService audit.Service
	now          func() time.Time
}

func NewAuditController(auditService audit.Service) *AuditController {
	return &AuditController{auditService: auditService, now: time.Now}
}

// RegisterRoutes registers the audit query route behind admin.
func (ac *AuditController) RegisterRoutes(r *gin.RouterGroup, admin ...gin.HandlerFunc) {
	r.Group("/audit", admin...).GET("/logs", ac.QueryLogs)
}

// QueryLogs endpoint. from and to are RFC3339 and default to the last 24h.
func (ac *AuditController) QueryLogs(c *gin.Context) {
	to := ac.now().UTC()
	from := to.Add(-defaultAuditWindow)

	var err error
	if v := c.Query("to"); v != "" {
		if to, err = time.Parse(time.RFC3339, v); err != nil {
			util.RespondWithError(c, http.StatusBadRequest, "Invalid 'to' timestamp", err)
			return
		}
	}
	if v := c.Query("from"); v != "" {
		if from, err = time.Parse(time.RFC3339, v); err != nil {
			util.RespondWithError(c, http.StatusBadRequest, "Invalid 'from' timestamp", err)
			return
		}
	}
	if from.After(to) {
		util.RespondWithError(c, http.StatusBadRequest, "'from' must not be after 'to'", sentinel_errors.ErrInvalidRequest)
		return
	}

	logs, err := ac.auditService.QueryLogs(c, from, to, c.Query("userId"), c.Query("resourceId"))
	if err != nil {
		util.RespondWithError(c, http.StatusInternalServerError, "Failed to query audit logs", err)
		return
	}
	if logs == nil {
		logs = []audit.AuditLog{}
	}
	c.JSON(http.StatusOK, logs)
}
