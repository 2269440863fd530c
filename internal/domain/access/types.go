// Package access contains domain types for row-level and field-level
// access control: policies, their keys, and the authorization error.
package access

import (
	"time"

	"github.com/Record-Gate/Recordgate/internal/domain/expr"
)

// Action is the kind of operation a policy governs.
type Action string

const (
	// ActionRead governs row visibility and field visibility.
	ActionRead Action = "read"
	// ActionWrite governs updates to existing records.
	ActionWrite Action = "write"
	// ActionCreate governs creation of new records.
	ActionCreate Action = "create"
	// ActionDelete governs deletion of existing records.
	ActionDelete Action = "delete"
)

// ValidAction reports whether a is one of the four governed actions.
func ValidAction(a Action) bool {
	switch a {
	case ActionRead, ActionWrite, ActionCreate, ActionDelete:
		return true
	}
	return false
}

// Policy binds a model and action (row scope, or a single field for
// field-level read rules) to a boolean-producing expression. Policies are
// loaded once per process or schema reload and never mutated by the engine.
type Policy struct {
	// ID is the unique identifier for this policy.
	ID string
	// Model is the schema model the policy applies to.
	Model string
	// Action is the governed operation.
	Action Action
	// Field narrows the policy to one field; empty means row scope.
	// Field-scoped policies are only meaningful for ActionRead.
	Field string
	// Rule is the expression that must evaluate to true to allow.
	Rule expr.Expression
	// Enabled indicates whether the policy participates in decisions.
	Enabled bool
	// CreatedAt is when the policy was created (UTC).
	CreatedAt time.Time
	// UpdatedAt is when the policy was last modified (UTC).
	UpdatedAt time.Time
}

// Key identifies a policy slot. Absence of a key means the corresponding
// action is denied: deny-by-default is a hard invariant, not a default.
type Key struct {
	Model  string
	Action Action
	Field  string
}

// Key returns the policy's slot key.
func (p Policy) Key() Key {
	return Key{Model: p.Model, Action: p.Action, Field: p.Field}
}

// AuthorizationError is the typed failure surfaced when a mutation is
// rejected. Its message is deliberately generic: deny reasons must not leak
// schema structure to the caller.
type AuthorizationError struct {
	Model  string
	Action Action
}

func (e *AuthorizationError) Error() string {
	return "not authorized"
}
