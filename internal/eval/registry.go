package eval

import (
	"fmt"
	"sort"

	"github.com/Record-Gate/Recordgate/internal/domain/expr"
)

// opFunc is the implementation signature for eagerly-evaluated operations.
// Arguments arrive already evaluated, left to right.
type opFunc func(e *Evaluator, ctx *expr.Context, args []any) (any, error)

// entry describes one registered operation.
type entry struct {
	name    string
	minArgs int
	maxArgs int // -1 means variadic
	pure    bool
	perm    bool // dispatchable from PermissionCheck nodes
	lazy    bool // evaluated inside the walker with raw argument expressions
	fn      opFunc
}

// CustomFunc is the implementation type for host-defined operations.
// Implementations receive evaluated arguments and the read-only context.
type CustomFunc func(args []any, ctx *expr.Context) (any, error)

// Info describes a registered operation for callers that validate
// expressions before evaluation (the schema loader, the lint command).
type Info struct {
	Name       string
	MinArgs    int
	MaxArgs    int // -1 means variadic
	Pure       bool
	Permission bool
}

// builtins returns the closed catalog of built-in operations. Called once
// per Evaluator construction; the resulting table is read-only afterwards.
func builtins() []entry {
	var out []entry
	out = append(out, mathOps()...)
	out = append(out, stringOps()...)
	out = append(out, dateOps()...)
	out = append(out, logicalOps()...)
	out = append(out, compareOps()...)
	out = append(out, arrayOps()...)
	out = append(out, permissionOps()...)
	return out
}

// buildRegistry merges the built-in catalog with host-defined operations.
// Registering a reserved (built-in) name is a construction-time error so
// collisions fail at startup, never mid-evaluation.
func buildRegistry(custom map[string]CustomFunc) (map[string]entry, error) {
	ops := make(map[string]entry)
	for _, ent := range builtins() {
		ops[ent.name] = ent
	}
	for name, fn := range custom {
		if name == "" {
			return nil, fmt.Errorf("custom operation with empty name")
		}
		if fn == nil {
			return nil, fmt.Errorf("custom operation %q has nil implementation", name)
		}
		if _, reserved := ops[name]; reserved {
			return nil, fmt.Errorf("custom operation %q collides with a reserved name", name)
		}
		impl := fn
		ops[name] = entry{
			name:    name,
			minArgs: 0,
			maxArgs: -1,
			pure:    false, // host implementations make no purity promise
			fn: func(e *Evaluator, ctx *expr.Context, args []any) (any, error) {
				return impl(args, ctx)
			},
		}
	}
	return ops, nil
}

// Lookup returns metadata for a registered operation.
func (e *Evaluator) Lookup(name string) (Info, bool) {
	ent, ok := e.ops[name]
	if !ok {
		return Info{}, false
	}
	return Info{
		Name:       ent.name,
		MinArgs:    ent.minArgs,
		MaxArgs:    ent.maxArgs,
		Pure:       ent.pure,
		Permission: ent.perm,
	}, true
}

// Operations returns metadata for every registered operation, sorted by name.
func (e *Evaluator) Operations() []Info {
	out := make([]Info, 0, len(e.ops))
	for name := range e.ops {
		info, _ := e.Lookup(name)
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// checkArity verifies the declared argument count for an operation.
// Arity failures surface as TypeMismatchError with ArgIndex -1.
func checkArity(ent entry, n int) error {
	if n < ent.minArgs {
		return &expr.TypeMismatchError{
			Op:       ent.name,
			ArgIndex: -1,
			Expected: fmt.Sprintf("at least %d arguments", ent.minArgs),
			Actual:   fmt.Sprintf("%d arguments", n),
		}
	}
	if ent.maxArgs >= 0 && n > ent.maxArgs {
		return &expr.TypeMismatchError{
			Op:       ent.name,
			ArgIndex: -1,
			Expected: fmt.Sprintf("at most %d arguments", ent.maxArgs),
			Actual:   fmt.Sprintf("%d arguments", n),
		}
	}
	return nil
}
