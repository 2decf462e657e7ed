// controller/controllers.go
package controller

import "github.com/dev-mohitbeniwal/sentinel/service"

type Controllers struct {
	Policy *PolicyController
	Access *AccessController
	Audit  *AuditController
}

func InitializeControllers(services *service.Services) *Controllers {
	controllers := &Controllers{
		Policy: NewPolicyController(services.Policy),
		Access: NewAccessController(services.Access),
	}
	if services.Audit != nil {
		controllers.Audit = NewAuditController(services.Audit)
	}
	return controllers
}
