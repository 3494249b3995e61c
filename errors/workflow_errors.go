// api/errors/workflow_errors.go
package errors

import "errors"

var (
	ErrRequestNotFound    = errors.New("access request not found")
	ErrInvalidRequestData = errors.New("invalid access request data")
	ErrInvalidTransition  = errors.New("access request is not pending")
	ErrPolicyViolation    = errors.New("governance policy violated")
	ErrForbidden          = errors.New("caller may not perform this action")
	ErrDatabaseOperation  = errors.New("database operation failed")
	ErrInternalServer     = errors.New("internal server error")
)
