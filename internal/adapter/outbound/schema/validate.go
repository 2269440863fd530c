package schema

import (
	"fmt"

	"github.com/Record-Gate/Recordgate/internal/domain/expr"
	"github.com/Record-Gate/Recordgate/internal/eval"
)

// Validator checks decoded expression trees against the operation registry
// before they reach the evaluator: unknown operations, arity violations,
// permission-scope violations, and excessive nesting all fail at load time
// rather than mid-evaluation.
type Validator struct {
	evaluator *eval.Evaluator
	maxDepth  int
}

// NewValidator builds a Validator bound to the evaluator whose registry
// (built-ins plus host operations) defines the valid operation set.
// maxDepth should match the evaluator's configured bound; zero means the
// evaluator default.
func NewValidator(evaluator *eval.Evaluator, maxDepth int) *Validator {
	if maxDepth <= 0 {
		maxDepth = eval.DefaultMaxDepth
	}
	return &Validator{evaluator: evaluator, maxDepth: maxDepth}
}

// ValidateExpression walks a tree and returns a descriptive error for the
// first structural problem found. Load-time errors may be verbose; they are
// read by schema authors, not end users.
func (v *Validator) ValidateExpression(node expr.Expression) error {
	return v.walk(node, 0)
}

func (v *Validator) walk(node expr.Expression, depth int) error {
	switch n := node.(type) {
	case expr.Literal:
		return nil
	case expr.FieldAccess:
		if n.Path == "" {
			return fmt.Errorf("field access with empty path")
		}
		return nil
	case expr.Operation:
		return v.checkCall(n.Op, len(n.Args), false, depth, n.Args, nil, nil)
	case expr.Condition:
		return v.checkCall(n.Op, 2, false, depth, nil, n.Left, n.Right)
	case expr.PermissionCheck:
		return v.checkCall(n.Check, len(n.Args), true, depth, n.Args, nil, nil)
	case nil:
		return fmt.Errorf("nil expression node")
	default:
		return fmt.Errorf("unsupported expression node %T", node)
	}
}

func (v *Validator) checkCall(name string, argc int, permOnly bool, depth int, args []expr.Expression, left, right expr.Expression) error {
	depth++
	if depth > v.maxDepth {
		return fmt.Errorf("expression nesting exceeds %d operation levels", v.maxDepth)
	}
	info, ok := v.evaluator.Lookup(name)
	if !ok {
		return fmt.Errorf("unknown operation %q", name)
	}
	if permOnly && !info.Permission {
		return fmt.Errorf("operation %q is not a permission check; use an op node", name)
	}
	if argc < info.MinArgs {
		return fmt.Errorf("operation %q requires at least %d arguments, got %d", name, info.MinArgs, argc)
	}
	if info.MaxArgs >= 0 && argc > info.MaxArgs {
		return fmt.Errorf("operation %q accepts at most %d arguments, got %d", name, info.MaxArgs, argc)
	}
	for i, arg := range args {
		if err := v.walk(arg, depth); err != nil {
			return fmt.Errorf("%s arg %d: %w", name, i, err)
		}
	}
	if left != nil {
		if err := v.walk(left, depth); err != nil {
			return fmt.Errorf("%s left: %w", name, err)
		}
	}
	if right != nil {
		if err := v.walk(right, depth); err != nil {
			return fmt.Errorf("%s right: %w", name, err)
		}
	}
	return nil
}
