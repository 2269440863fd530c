// Package recordgate provides a Go SDK for the Record Gate decision API.
//
// Record Gate is a record-level access decision service. This SDK lets Go
// applications check row, field, and write access against the policies
// configured on a Record Gate server, and evaluate ad-hoc expressions. It
// uses only the Go standard library (net/http) with zero external
// dependencies.
//
// Quick start:
//
//	// Set RECORD_GATE_SERVER_ADDR and RECORD_GATE_API_KEY env vars, then:
//	client := recordgate.NewClient()
//
//	allowed, err := client.CheckRow(ctx, recordgate.RowCheck{
//	    Model:  "post",
//	    User:   &recordgate.Identity{ID: "42", Roles: []string{"editor"}},
//	    Record: map[string]any{"id": 7, "authorId": 42},
//	})
package recordgate

// Identity describes the user a check runs on behalf of. A nil Identity in
// a request means an anonymous caller.
type Identity struct {
	// ID uniquely identifies the user.
	ID string `json:"id"`

	// Roles is the list of role names assigned to the user.
	Roles []string `json:"roles,omitempty"`

	// Attributes carries additional user properties referenced by policies
	// through user.* field paths.
	Attributes map[string]any `json:"attributes,omitempty"`
}

// RowCheck is a row-level read check. It is also the input to FilterFields.
type RowCheck struct {
	// Model names the record type the policies are registered under.
	Model string `json:"model"`

	// User is the requesting identity. Nil means anonymous.
	User *Identity `json:"user,omitempty"`

	// Record is the row under decision.
	Record map[string]any `json:"record"`
}

// WriteCheck is a write authorization check.
type WriteCheck struct {
	// Model names the record type the policies are registered under.
	Model string `json:"model"`

	// Action is one of "write", "create", or "delete".
	Action string `json:"action"`

	// User is the requesting identity. Nil means anonymous.
	User *Identity `json:"user,omitempty"`

	// Existing is the stored row. Empty for create.
	Existing map[string]any `json:"existing,omitempty"`

	// Incoming is the proposed row state. Policies reach it through
	// incoming.* field paths on update, or record paths on create.
	Incoming map[string]any `json:"incoming,omitempty"`
}

// EvalRequest evaluates an expression tree against a record context.
type EvalRequest struct {
	// Expression is the JSON expression tree. Any value that marshals to
	// the server's expression schema works, including json.RawMessage.
	Expression any `json:"expression"`

	// User is the identity bound to user.* field paths. Optional.
	User *Identity `json:"user,omitempty"`

	// Record is bound to bare field paths. Optional.
	Record map[string]any `json:"record,omitempty"`

	// Related maps relation names to related records. Optional.
	Related map[string]any `json:"related,omitempty"`

	// Fallback, when non-nil, substitutes for any evaluation failure
	// server-side instead of returning an error.
	Fallback any `json:"fallback,omitempty"`
}

// Wire forms of the server responses.

type allowedResponse struct {
	Allowed bool `json:"allowed"`
}

type fieldsResponse struct {
	Record map[string]any `json:"record"`
}

type evalResponse struct {
	Value any `json:"value"`
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}
