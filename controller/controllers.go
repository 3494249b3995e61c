// api/controller/controllers.go
package controller

import "github.com/aegisgov/aegis/api/service"

type Controllers struct {
	Request  *AccessRequestController
	Template *AccessTemplateController
}

func InitializeControllers(services *service.Services) *Controllers {
	return &Controllers{
		Request:  NewAccessRequestController(services.Request),
		Template: NewAccessTemplateController(services.Template),
	}
}
