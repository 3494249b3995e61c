// api/model/template.go
package model

import "time"

// Grant is one scoped permission inside an access template.
type Grant struct {
	Scope      string `json:"scope"`      // e.g. "repository", "team"
	Permission string `json:"permission"` // e.g. "read", "write", "admin"
}

// AccessTemplate is a named, versioned bundle of permissions that an access
// request may reference instead of raw grants. Version increments strictly
// on every content change.
type AccessTemplate struct {
	ID             string    `json:"id"`
	OrganizationID string    `json:"organization_id"`
	Name           string    `json:"name"`
	Grants         []Grant   `json:"grants"`
	Version        int       `json:"version"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// TemplateUsage summarizes the requests referencing a template, grouped by
// request status.
type TemplateUsage struct {
	TemplateID string                `json:"template_id"`
	Total      int                   `json:"total"`
	ByStatus   map[RequestStatus]int `json:"by_status"`
}
