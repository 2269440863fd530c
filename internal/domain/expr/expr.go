// Package expr defines the expression tree and evaluation context used by the
// Record Gate engine. Trees are produced by the schema loader, treated as
// immutable configuration, and may be evaluated concurrently against many
// contexts.
package expr

// Expression is the closed set of expression node kinds. The interface is
// sealed: only the five node types in this package implement it.
type Expression interface {
	isExpression()
}

// Literal is a constant JSON-representable value: scalar, array, or object.
type Literal struct {
	Value any
}

// FieldAccess resolves a dot-delimited path into the context record or a
// pre-loaded related record. Deep paths resolve segment by segment.
type FieldAccess struct {
	Path string
}

// Operation invokes a registered operation by name with evaluated arguments.
type Operation struct {
	Op   string
	Args []Expression
}

// Condition is a two-argument comparison producing a boolean. It is sugar
// over Operation, kept as a distinct node kind for schema clarity.
type Condition struct {
	Op    string
	Left  Expression
	Right Expression
}

// PermissionCheck invokes an identity-scoped operation (role, ownership,
// authentication checks). Structurally identical to Operation, but dispatch
// is restricted to the permission category so data operations cannot slip
// into a security predicate unnoticed.
type PermissionCheck struct {
	Check string
	Args  []Expression
}

func (Literal) isExpression()         {}
func (FieldAccess) isExpression()     {}
func (Operation) isExpression()       {}
func (Condition) isExpression()       {}
func (PermissionCheck) isExpression() {}

// Lit builds a Literal node.
func Lit(v any) Literal { return Literal{Value: v} }

// Field builds a FieldAccess node.
func Field(path string) FieldAccess { return FieldAccess{Path: path} }

// Op builds an Operation node.
func Op(name string, args ...Expression) Operation {
	return Operation{Op: name, Args: args}
}

// Cond builds a Condition node.
func Cond(op string, left, right Expression) Condition {
	return Condition{Op: op, Left: left, Right: right}
}

// Perm builds a PermissionCheck node.
func Perm(check string, args ...Expression) PermissionCheck {
	return PermissionCheck{Check: check, Args: args}
}
