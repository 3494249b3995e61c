// api/policy/rules.go
package policy

import "github.com/aegisgov/aegis/api/model"

// SeparationOfDuties forbids a single actor from both requesting and
// approving the same access grant. Rejection is deliberately exempt:
// rejecting one's own request grants no privilege.
func SeparationOfDuties() Rule {
	return Rule{
		Name: "separation_of_duties",
		Check: func(action string, request *model.AccessRequest, actorID string) Decision {
			if action == ActionApprove && actorID == request.RequesterID {
				return Decision{
					Allowed: false,
					Reason:  "requester may not approve their own access request",
				}
			}
			return Decision{Allowed: true}
		},
	}
}

// PendingOnly refuses any decision action against a request that already
// reached a terminal state. The workflow's conditional update enforces this
// at the storage layer too; the rule keeps the invariant visible to callers
// that evaluate transitions without writing.
func PendingOnly() Rule {
	return Rule{
		Name: "pending_only",
		Check: func(action string, request *model.AccessRequest, actorID string) Decision {
			if request.Status != model.StatusPending {
				return Decision{
					Allowed: false,
					Reason:  "request already reached a terminal state",
				}
			}
			return Decision{Allowed: true}
		},
	}
}
