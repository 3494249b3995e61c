// api/errors/identity_errors.go
package errors

import "errors"

var (
	ErrUnauthorized        = errors.New("unauthorized")
	ErrUpstreamUnavailable = errors.New("upstream credential exchange failed")
)
