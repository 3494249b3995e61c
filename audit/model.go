// api/audit/model.go
package audit

import "time"

// Action names recorded in the ledger. The set is closed on purpose:
// reporting consumes these strings verbatim.
const (
	ActionRequestCreated   = "access_request_created"
	ActionRequestApproved  = "access_request_approved"
	ActionRequestRejected  = "access_request_rejected"
	ActionRequestCancelled = "access_request_cancelled"
	ActionPolicyViolated   = "policy_violated"
	ActionTemplateCreated  = "access_template_created"
	ActionTemplateUpdated  = "access_template_updated"
	ActionTemplateDeleted  = "access_template_deleted"
	ActionResourceAccessed = "resource_accessed"
)

// Entry is one append-only audit record. A nil UserID denotes a
// system-originated event. Entries are never updated or deleted once
// written; ordering within a ResourceID is by CreatedAt ascending.
type Entry struct {
	ID             string                 `json:"id"`
	UserID         *string                `json:"user_id"`
	OrganizationID string                 `json:"organization_id"`
	Action         string                 `json:"action"`
	ResourceType   string                 `json:"resource_type"`
	ResourceID     string                 `json:"resource_id"`
	Details        map[string]interface{} `json:"details"`
	CreatedAt      time.Time              `json:"created_at"`
}

// Result reports the outcome of a ledger write. Audit logging is
// best-effort: a failed write never fails the governance action that
// produced it, so callers receive a Result instead of an error and the
// failure is surfaced on the operational channel.
type Result struct {
	Logged bool
	Reason error
}
