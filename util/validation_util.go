// api/util/validation_util.go

package util

import (
	"fmt"

	"github.com/aegisgov/aegis/api/model"
)

type ValidationUtil struct{}

func NewValidationUtil() *ValidationUtil {
	return &ValidationUtil{}
}

func (v *ValidationUtil) ValidateAccessRequestInput(input model.CreateAccessRequestInput) error {
	if input.ResourceID == "" {
		return fmt.Errorf("resource id cannot be empty")
	}
	if input.ResourceType == "" {
		return fmt.Errorf("resource type cannot be empty")
	}
	return nil
}

func (v *ValidationUtil) ValidateTemplate(template model.AccessTemplate) error {
	if template.Name == "" {
		return fmt.Errorf("template name cannot be empty")
	}
	if template.OrganizationID == "" {
		return fmt.Errorf("template organization cannot be empty")
	}
	if len(template.Grants) == 0 {
		return fmt.Errorf("template must have at least one grant")
	}
	for _, grant := range template.Grants {
		if grant.Scope == "" {
			return fmt.Errorf("grant scope cannot be empty")
		}
		if grant.Permission == "" {
			return fmt.Errorf("grant permission cannot be empty")
		}
	}
	return nil
}
