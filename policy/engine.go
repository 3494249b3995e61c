// api/policy/engine.go
package policy

import "github.com/aegisgov/aegis/api/model"

// Action names evaluated by the engine.
const (
	ActionApprove = "approve"
	ActionReject  = "reject"
	ActionCancel  = "cancel"
)

// Decision is the outcome of evaluating a candidate transition against the
// governance rules. A violation is a normal result, never an error: the
// workflow inspects it and turns it into an audit entry plus an error
// response of its own.
type Decision struct {
	Allowed bool   `json:"allowed"`
	Rule    string `json:"rule,omitempty"`
	Reason  string `json:"reason,omitempty"`
}

// Rule is one independently testable governance check over the common
// (action, request, actor) contract.
type Rule struct {
	Name  string
	Check func(action string, request *model.AccessRequest, actorID string) Decision
}

// Engine evaluates rules in a fixed order; the first violation
// short-circuits evaluation.
type Engine struct {
	rules []Rule
}

// NewEngine returns an engine with the given rules. Order matters.
func NewEngine(rules ...Rule) *Engine {
	return &Engine{rules: rules}
}

// Default returns the engine the workflow uses. PendingOnly duplicates the
// storage-layer conditional update on purpose: callers that evaluate a
// transition without writing see the same refusal.
func Default() *Engine {
	return NewEngine(PendingOnly(), SeparationOfDuties())
}

// Evaluate runs every rule against the candidate transition until one
// reports a violation.
func (e *Engine) Evaluate(action string, request *model.AccessRequest, actorID string) Decision {
	for _, rule := range e.rules {
		if decision := rule.Check(action, request, actorID); !decision.Allowed {
			decision.Rule = rule.Name
			return decision
		}
	}
	return Decision{Allowed: true}
}
