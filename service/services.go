// api/service/services.go
package service

import (
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/aegisgov/aegis/api/audit"
	"github.com/aegisgov/aegis/api/dao"
	"github.com/aegisgov/aegis/api/policy"
	"github.com/aegisgov/aegis/api/util"
)

type Services struct {
	Request  IAccessRequestService
	Template IAccessTemplateService
}

func InitializeServices(
	driver neo4j.Driver,
	ledger audit.Ledger,
	validationUtil *util.ValidationUtil,
	cacheService *util.CacheService,
	notificationSvc *util.NotificationService,
	eventBus *util.EventBus,
) (*Services, error) {
	requestDAO := dao.NewAccessRequestDAO(driver)
	templateDAO := dao.NewAccessTemplateDAO(driver)
	engine := policy.Default()

	services := &Services{
		Request:  NewAccessRequestService(requestDAO, templateDAO, engine, ledger, validationUtil, cacheService, notificationSvc, eventBus),
		Template: NewAccessTemplateService(templateDAO, ledger, validationUtil, cacheService, notificationSvc, eventBus),
	}

	return services, nil
}
