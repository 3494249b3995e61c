// api/errors/template_errors.go
package errors

import "errors"

var (
	ErrTemplateNotFound    = errors.New("access template not found")
	ErrInvalidTemplateData = errors.New("invalid access template data")
	ErrTemplateInUse       = errors.New("access template referenced by a non-terminal request")
	ErrInvalidPagination   = errors.New("invalid pagination parameters")
)
