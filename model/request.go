// api/model/request.go
package model

import "time"

// RequestStatus is the lifecycle state of an access request.
type RequestStatus string

const (
	StatusPending   RequestStatus = "pending"
	StatusApproved  RequestStatus = "approved"
	StatusRejected  RequestStatus = "rejected"
	StatusCancelled RequestStatus = "cancelled"
)

// Terminal reports whether the status permits no further transitions.
func (s RequestStatus) Terminal() bool {
	return s == StatusApproved || s == StatusRejected || s == StatusCancelled
}

// ValidStatus reports whether s is one of the four known states.
func ValidStatus(s RequestStatus) bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected, StatusCancelled:
		return true
	}
	return false
}

// AccessRequest is a pending or decided request for access to a resource.
// Status only ever moves pending -> {approved, rejected, cancelled}; once
// terminal the record is immutable.
type AccessRequest struct {
	ID              string        `json:"id"`
	OrganizationID  string        `json:"organization_id"`
	RequesterID     string        `json:"requester_id"`
	ResourceType    string        `json:"resource_type"`
	ResourceID      string        `json:"resource_id"`
	TemplateID      string        `json:"template_id,omitempty"`
	TemplateVersion int           `json:"template_version,omitempty"`
	Justification   string        `json:"justification"`
	Status          RequestStatus `json:"status"`
	ApproverID      string        `json:"approver_id,omitempty"`
	DecidedAt       *time.Time    `json:"decided_at,omitempty"`
	CreatedAt       time.Time     `json:"created_at"`
}

// CreateAccessRequestInput carries the caller-supplied fields of a new request.
type CreateAccessRequestInput struct {
	ResourceType  string `json:"resource_type" binding:"required"`
	ResourceID    string `json:"resource_id" binding:"required"`
	TemplateID    string `json:"template_id"`
	Justification string `json:"justification"`
}

// DecisionInput carries approver-supplied context folded into the audit
// entry of an approve or reject transition.
type DecisionInput struct {
	Comment string                 `json:"comment"`
	Details map[string]interface{} `json:"details"`
}
