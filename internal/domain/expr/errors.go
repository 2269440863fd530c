package expr

import "fmt"

// EvalError is implemented by every typed evaluation failure. Kind returns a
// stable machine-readable identifier suitable for structured logging and API
// responses; it never carries record data.
type EvalError interface {
	error
	Kind() string
}

// DepthExceededError is returned when evaluation recursion exceeds the
// configured maximum depth. Path names the chain of operations entered, not
// any record content.
type DepthExceededError struct {
	Path string
}

func (e *DepthExceededError) Error() string {
	return fmt.Sprintf("expression depth limit exceeded at %s", e.Path)
}

// Kind implements EvalError.
func (e *DepthExceededError) Kind() string { return "depth_exceeded" }

// UnknownFieldError is returned in strict field-access mode when a path does
// not resolve through the record or related records.
type UnknownFieldError struct {
	Path string
}

func (e *UnknownFieldError) Error() string {
	return fmt.Sprintf("unknown field %q", e.Path)
}

// Kind implements EvalError.
func (e *UnknownFieldError) Kind() string { return "unknown_field" }

// UnknownOperationError is returned when an expression names an operation
// that is not registered, or names a non-permission operation from a
// PermissionCheck node.
type UnknownOperationError struct {
	Name string
}

func (e *UnknownOperationError) Error() string {
	return fmt.Sprintf("unknown operation %q", e.Name)
}

// Kind implements EvalError.
func (e *UnknownOperationError) Kind() string { return "unknown_operation" }

// TypeMismatchError is returned when an operation receives an argument of an
// unexpected type or an unexpected argument count. ArgIndex is -1 for arity
// failures.
type TypeMismatchError struct {
	Op       string
	ArgIndex int
	Expected string
	Actual   string
}

func (e *TypeMismatchError) Error() string {
	if e.ArgIndex < 0 {
		return fmt.Sprintf("operation %q expects %s, got %s", e.Op, e.Expected, e.Actual)
	}
	return fmt.Sprintf("operation %q argument %d expects %s, got %s", e.Op, e.ArgIndex, e.Expected, e.Actual)
}

// Kind implements EvalError.
func (e *TypeMismatchError) Kind() string { return "type_mismatch" }

// DivisionByZeroError is returned when divide or mod receives a zero
// divisor. The engine never silently propagates Inf or NaN.
type DivisionByZeroError struct {
	Op string
}

func (e *DivisionByZeroError) Error() string {
	return fmt.Sprintf("operation %q: division by zero", e.Op)
}

// Kind implements EvalError.
func (e *DivisionByZeroError) Kind() string { return "division_by_zero" }

// Compile-time interface verification.
var (
	_ EvalError = (*DepthExceededError)(nil)
	_ EvalError = (*UnknownFieldError)(nil)
	_ EvalError = (*UnknownOperationError)(nil)
	_ EvalError = (*TypeMismatchError)(nil)
	_ EvalError = (*DivisionByZeroError)(nil)
)
