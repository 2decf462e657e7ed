// controller/access_controller.go
package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"

	pdp_model "github.com/dev-mohitbeniwal/sentinel/pdp/model"
	"github.com/dev-mohitbeniwal/sentinel/service"
	"github.com/dev-mohitbeniwal/sentinel/util"
)

type AccessController struct {
	accessService service.IAccessService
}

func NewAccessController(accessService service.IAccessService) *AccessController {
	return &AccessController{accessService: accessService}
}

// RegisterRoutes registers the decision routes
func (ac *AccessController) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/access/evaluate", ac.EvaluateAccess)
	r.POST("/orders/authorize", ac.AuthorizeOrder)
	r.GET("/identities/:id/access-log", ac.AccessHistory)
}

type orderAuthorization struct {
	Authorized bool                     `json:"authorized"`
	Decision   pdp_model.AccessDecision `json:"decision"`
}

// EvaluateAccess endpoint. Every well-formed body yields 200 with a decision,
// including fail-closed denials.
func (ac *AccessController) EvaluateAccess(c *gin.Context) {
	var request pdp_model.AccessRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid access request", err)
		return
	}

	decision := ac.accessService.EvaluateAccess(c.Request.Context(), request)
	c.JSON(http.StatusOK, decision)
}

// AuthorizeOrder endpoint
func (ac *AccessController) AuthorizeOrder(c *gin.Context) {
	var order pdp_model.Order
	if err := c.ShouldBindJSON(&order); err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid order", err)
		return
	}

	decision := ac.accessService.AuthorizeOrder(c.Request.Context(), order)
	c.JSON(http.StatusOK, orderAuthorization{
		Authorized: decision.Allowed(),
		Decision:   decision,
	})
}

// AccessHistory endpoint
func (ac *AccessController) AccessHistory(c *gin.Context) {
	c.JSON(http.StatusOK, ac.accessService.AccessHistory(c.Param("id")))
}
