// Package policy centralizes authorization decisions. Handlers never perform
// ad-hoc role checks; everything funnels through Engine.Evaluate via the
// resource guard.
package policy

import (
	"github.com/medcore/hospital-api/internal/model"
)

// Deny reasons surfaced in decision records.
const (
	ReasonUnrecognizedRole = "unrecognized role"
	ReasonNoMatchingRule   = "no matching rule"
	ReasonOwnershipFailed  = "ownership predicate failed"
)

// Decision is the verdict for a single (identity, action, resource) triple.
type Decision struct {
	Allowed bool
	Reason  string
}

func allow() Decision {
	return Decision{Allowed: true}
}

func deny(reason string) Decision {
	return Decision{Reason: reason}
}

// Predicate ties a resource to the identities permitted to act on it. A nil
// predicate means the rule holds unconditionally for the role.
type Predicate func(identity model.Identity, resource *model.ResourceRef) bool

// Rule grants a role one verb on one resource type, optionally narrowed by
// an ownership predicate. Rules are additive: an action is allowed iff at
// least one matching rule's predicate holds.
type Rule struct {
	Role     model.Role
	Resource model.ResourceType
	Verb     model.Verb
	Owner    Predicate
}

// Engine evaluates the static rule table. It is loaded once at startup,
// read-only afterwards, and safe for concurrent use.
type Engine struct {
	rules []Rule
}

func NewEngine(rules []Rule) *Engine {
	return &Engine{rules: rules}
}

// Evaluate is a pure function of its inputs: no hidden state, no I/O.
// Matching rules are tried in declaration order; the first passing predicate
// wins. Absence of any matching rule is a deny (default-deny).
func (e *Engine) Evaluate(identity model.Identity, action model.Action, resource *model.ResourceRef) Decision {
	if !identity.Role.Known() {
		return deny(ReasonUnrecognizedRole)
	}

	matched := false
	for _, r := range e.rules {
		if r.Role != identity.Role || r.Resource != action.Resource || r.Verb != action.Verb {
			continue
		}
		matched = true
		if r.Owner == nil {
			return allow()
		}
		if resource != nil && r.Owner(identity, resource) {
			return allow()
		}
	}

	if !matched {
		return deny(ReasonNoMatchingRule)
	}
	return deny(ReasonOwnershipFailed)
}

// HasRule reports whether any rule matches the (role, resource, verb) triple.
// The guard uses it as the role-level pre-check before touching storage.
func (e *Engine) HasRule(role model.Role, resource model.ResourceType, verb model.Verb) bool {
	for _, r := range e.rules {
		if r.Role == role && r.Resource == resource && r.Verb == verb {
			return true
		}
	}
	return false
}

// NeedsResource reports whether evaluating the triple requires the concrete
// resource. False when some matching rule is unconditional, so the guard can
// skip the storage lookup entirely.
func (e *Engine) NeedsResource(role model.Role, resource model.ResourceType, verb model.Verb) bool {
	matched := false
	for _, r := range e.rules {
		if r.Role != role || r.Resource != resource || r.Verb != verb {
			continue
		}
		if r.Owner == nil {
			return false
		}
		matched = true
	}
	return matched
}
