// controller/policy_controller.go
package controller

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	sentinel_errors "github.com/dev-mohitbeniwal/sentinel/errors"
	logger "github.com/dev-mohitbeniwal/sentinel/logging"
	"github.com/dev-mohitbeniwal/sentinel/model"
	"github.com/dev-mohitbeniwal/sentinel/service"
	"github.com/dev-mohitbeniwal/sentinel/util"
	helper_util "github.com/dev-mohitbeniwal/sentinel/util/helper"
)

type PolicyController struct {
	policyService service.IPolicyService
}

func NewPolicyController(policyService service.IPolicyService) *PolicyController {
	return &PolicyController{
		policyService: policyService,
	}
}

// RegisterRoutes registers the policy routes. admin guards every mutating
// route.
func (pc *PolicyController) RegisterRoutes(r *gin.RouterGroup, admin ...gin.HandlerFunc) {
	policies := r.Group("/policies")
	{
		policies.GET("", pc.ListPolicies)
		policies.GET("/:id", pc.GetPolicy)
	}
	write := policies.Group("", admin...)
	{
		write.POST("", pc.CreatePolicy)
		write.PUT("/:id", pc.UpdatePolicy)
		write.PATCH("/:id/enabled", pc.SetPolicyEnabled)
		write.DELETE("/:id", pc.DeletePolicy)
	}
}

type enabledRequest struct {
	Enabled *bool `json:"enabled" binding:"required"`
}

// CreatePolicy endpoint
func (pc *PolicyController) CreatePolicy(c *gin.Context) {
	policy, ok := bindPolicy(c)
	if !ok {
		return
	}

	created, err := pc.policyService.AddPolicy(c, policy)
	if err != nil {
		respondPolicyError(c, "Failed to create policy", err)
		return
	}

	logActor(c, "Policy created", created.ID)
	c.JSON(http.StatusCreated, model.DocumentFromPolicy(created))
}

// UpdatePolicy endpoint
func (pc *PolicyController) UpdatePolicy(c *gin.Context) {
	policyID := c.Param("id")
	policy, ok := bindPolicy(c)
	if !ok {
		return
	}

	updated, err := pc.policyService.UpdatePolicy(c, policyID, policy)
	if err != nil {
		respondPolicyError(c, "Failed to update policy", err)
		return
	}

	logActor(c, "Policy updated", policyID)
	c.JSON(http.StatusOK, model.DocumentFromPolicy(updated))
}

// SetPolicyEnabled endpoint
func (pc *PolicyController) SetPolicyEnabled(c *gin.Context) {
	policyID := c.Param("id")
	var req enabledRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	updated, err := pc.policyService.SetPolicyEnabled(c, policyID, *req.Enabled)
	if err != nil {
		respondPolicyError(c, "Failed to update policy", err)
		return
	}

	logActor(c, "Policy enablement changed", policyID)
	c.JSON(http.StatusOK, model.DocumentFromPolicy(updated))
}

// DeletePolicy endpoint
func (pc *PolicyController) DeletePolicy(c *gin.Context) {
	policyID := c.Param("id")

	if err := pc.policyService.RemovePolicy(c, policyID); err != nil {
		respondPolicyError(c, "Failed to delete policy", err)
		return
	}

	logActor(c, "Policy deleted", policyID)
	c.Status(http.StatusNoContent)
}

// GetPolicy endpoint
func (pc *PolicyController) GetPolicy(c *gin.Context) {
	policyID := c.Param("id")

	policy, err := pc.policyService.GetPolicy(c, policyID)
	if err != nil {
		respondPolicyError(c, "Failed to retrieve policy", err)
		return
	}

	c.JSON(http.StatusOK, model.DocumentFromPolicy(policy))
}

// ListPolicies endpoint. Results keep evaluation order.
func (pc *PolicyController) ListPolicies(c *gin.Context) {
	limit, offset, err := helper_util.GetPaginationParams(c)
	if err != nil || limit < 0 || offset < 0 {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid pagination parameters", err)
		return
	}

	policies, err := pc.policyService.ListPolicies(c)
	if err != nil {
		util.RespondWithError(c, http.StatusInternalServerError, "Failed to list policies", err)
		return
	}

	page := helper_util.Paginate(len(policies), limit, offset)
	docs := make([]model.PolicyDocument, 0, page.End-page.Start)
	for _, p := range policies[page.Start:page.End] {
		docs = append(docs, model.DocumentFromPolicy(p))
	}
	c.JSON(http.StatusOK, docs)
}

func bindPolicy(c *gin.Context) (*model.SecurityPolicy, bool) {
	var doc model.PolicyDocument
	if err := c.ShouldBindJSON(&doc); err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid policy data", sentinel_errors.ErrInvalidPolicyData)
		return nil, false
	}
	policy, err := doc.ToPolicy()
	if err != nil {
		respondPolicyError(c, "Invalid policy data", err)
		return nil, false
	}
	return policy, true
}

func respondPolicyError(c *gin.Context, message string, err error) {
	var configErr *sentinel_errors.PolicyConfigError
	switch {
	case errors.As(err, &configErr):
		logger.Warn("Rejected policy", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{
			"error":    "Invalid policy data",
			"policyId": configErr.PolicyID,
			"field":    configErr.Field,
			"message":  configErr.Message,
		})
	case errors.Is(err, sentinel_errors.ErrInvalidPolicyData):
		util.RespondWithError(c, http.StatusBadRequest, "Invalid policy data", err)
	case errors.Is(err, sentinel_errors.ErrPolicyNotFound):
		util.RespondWithError(c, http.StatusNotFound, "Policy not found", err)
	case errors.Is(err, sentinel_errors.ErrPolicyConflict):
		util.RespondWithError(c, http.StatusConflict, "Policy already exists", err)
	case errors.Is(err, sentinel_errors.ErrDatabaseOperation):
		util.RespondWithError(c, http.StatusInternalServerError, "Database operation failed", err)
	default:
		util.RespondWithError(c, http.StatusInternalServerError, message, sentinel_errors.ErrInternalServer)
	}
}

func logActor(c *gin.Context, message, policyID string) {
	userID, _ := util.GetUserIDFromContext(c)
	logger.Info(message, zap.String("policyID", policyID), zap.String("userID", userID))
}
