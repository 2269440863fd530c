// Package eval implements the expression evaluation engine: a bounded-depth
// tree walker over expr.Expression nodes, dispatching to a closed operation
// registry built once at construction. Evaluators are immutable after New
// and safe for unbounded concurrent use.
package eval

import (
	"strings"

	"github.com/jonboulle/clockwork"

	"github.com/Record-Gate/Recordgate/internal/domain/expr"
)

// DefaultMaxDepth bounds operation nesting when Config.MaxDepth is zero.
// The guard exists because expressions originate from stored configuration,
// not compiled code; a malformed or adversarial tree must produce a typed
// error, never a stack fault.
const DefaultMaxDepth = 50

// Config is the construction surface for an Evaluator.
type Config struct {
	// MaxDepth bounds operation nesting. Zero means DefaultMaxDepth.
	MaxDepth int
	// Clock supplies time to the now-family operations. Nil means the
	// real clock; tests inject clockwork.NewFakeClock.
	Clock clockwork.Clock
	// CustomOperations are host-defined operations merged into the
	// registry once at construction. Reserved names are rejected.
	CustomOperations map[string]CustomFunc
}

// Evaluator interprets expression trees against evaluation contexts.
type Evaluator struct {
	ops      map[string]entry
	maxDepth int
	clock    clockwork.Clock
}

// New constructs an Evaluator from the given configuration. It fails fast
// when a custom operation collides with a reserved name.
func New(cfg Config) (*Evaluator, error) {
	ops, err := buildRegistry(cfg.CustomOperations)
	if err != nil {
		return nil, err
	}
	maxDepth := cfg.MaxDepth
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	clock := cfg.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Evaluator{ops: ops, maxDepth: maxDepth, clock: clock}, nil
}

// frame carries per-call evaluation state. It is passed by value so the
// depth counter and strictness flag unwind naturally with the recursion.
type frame struct {
	depth  int
	strict bool
	path   string
}

// Evaluate interprets an expression in lenient field-access mode: an
// unresolvable path yields null. This is the mode for computed fields and
// UI visibility expressions, where robustness beats fail-fast strictness.
func (e *Evaluator) Evaluate(node expr.Expression, ctx *expr.Context) (any, error) {
	return e.eval(node, ctx, frame{})
}

// EvaluateStrict interprets an expression with strict field access: an
// unresolvable path yields UnknownFieldError. Policy evaluation always runs
// in this mode, because silently treating "unknown" as permissive is
// dangerous in a security rule.
func (e *Evaluator) EvaluateStrict(node expr.Expression, ctx *expr.Context) (any, error) {
	return e.eval(node, ctx, frame{strict: true})
}

func (e *Evaluator) eval(node expr.Expression, ctx *expr.Context, fr frame) (any, error) {
	if ctx == nil {
		ctx = &expr.Context{}
	}
	switch n := node.(type) {
	case expr.Literal:
		return n.Value, nil
	case expr.FieldAccess:
		return e.resolveField(n.Path, ctx, fr)
	case expr.Operation:
		return e.apply(n.Op, n.Args, ctx, fr, false)
	case expr.Condition:
		return e.apply(n.Op, []expr.Expression{n.Left, n.Right}, ctx, fr, false)
	case expr.PermissionCheck:
		return e.apply(n.Check, n.Args, ctx, fr, true)
	case nil:
		return nil, nil
	default:
		// Unreachable: Expression is sealed to the five kinds above.
		return nil, &expr.UnknownOperationError{Name: "unsupported node"}
	}
}

// apply dispatches one operation node. Depth counts operation frames, so the
// bound is on operation nesting rather than leaf nodes. permOnly restricts
// dispatch to the permission category for PermissionCheck nodes.
func (e *Evaluator) apply(name string, args []expr.Expression, ctx *expr.Context, fr frame, permOnly bool) (any, error) {
	ent, ok := e.ops[name]
	if !ok || (permOnly && !ent.perm) {
		return nil, &expr.UnknownOperationError{Name: name}
	}

	fr.depth++
	fr.path = joinPath(fr.path, name)
	if fr.depth > e.maxDepth {
		return nil, &expr.DepthExceededError{Path: fr.path}
	}

	if err := checkArity(ent, len(args)); err != nil {
		return nil, err
	}

	if ent.lazy {
		return e.applyLazy(ent, args, ctx, fr)
	}

	vals := make([]any, len(args))
	for i, arg := range args {
		v, err := e.eval(arg, ctx, fr)
		if err != nil {
			return nil, err
		}
		vals[i] = v
	}
	return ent.fn(e, ctx, vals)
}

// applyLazy handles the operations that must not evaluate all of their
// arguments: the logical short-circuit family and the higher-order array
// operations, which receive the element expression unevaluated.
func (e *Evaluator) applyLazy(ent entry, args []expr.Expression, ctx *expr.Context, fr frame) (any, error) {
	switch ent.name {
	case "and":
		for i, arg := range args {
			v, err := e.eval(arg, ctx, fr)
			if err != nil {
				return nil, err
			}
			b, ok := v.(bool)
			if !ok {
				return nil, mismatch("and", i, "bool", v)
			}
			if !b {
				return false, nil
			}
		}
		return true, nil

	case "or":
		for i, arg := range args {
			v, err := e.eval(arg, ctx, fr)
			if err != nil {
				return nil, err
			}
			b, ok := v.(bool)
			if !ok {
				return nil, mismatch("or", i, "bool", v)
			}
			if b {
				return true, nil
			}
		}
		return false, nil

	case "if":
		cond, err := e.eval(args[0], ctx, fr)
		if err != nil {
			return nil, err
		}
		b, ok := cond.(bool)
		if !ok {
			return nil, mismatch("if", 0, "bool", cond)
		}
		if b {
			return e.eval(args[1], ctx, fr)
		}
		if len(args) < 3 {
			return nil, nil
		}
		return e.eval(args[2], ctx, fr)

	case "coalesce":
		// Null-fallback semantics: branches evaluate leniently so a
		// missing field falls through to the next candidate even when
		// the surrounding evaluation is strict.
		lenient := fr
		lenient.strict = false
		for _, arg := range args {
			v, err := e.eval(arg, ctx, lenient)
			if err != nil {
				return nil, err
			}
			if v != nil {
				return v, nil
			}
		}
		return nil, nil

	case "exists":
		lenient := fr
		lenient.strict = false
		v, err := e.eval(args[0], ctx, lenient)
		if err != nil {
			return nil, err
		}
		return v != nil, nil

	case "map":
		return e.applyHigherOrder(ent.name, args, ctx, fr)
	case "filter":
		return e.applyHigherOrder(ent.name, args, ctx, fr)
	case "find":
		return e.applyHigherOrder(ent.name, args, ctx, fr)
	case "some":
		return e.applyHigherOrder(ent.name, args, ctx, fr)
	case "every":
		return e.applyHigherOrder(ent.name, args, ctx, fr)
	}
	return nil, &expr.UnknownOperationError{Name: ent.name}
}

// applyHigherOrder evaluates the array operand, then runs the element
// expression once per element against a derived context.
func (e *Evaluator) applyHigherOrder(name string, args []expr.Expression, ctx *expr.Context, fr frame) (any, error) {
	collected, err := e.eval(args[0], ctx, fr)
	if err != nil {
		return nil, err
	}
	arr, ok := collected.([]any)
	if !ok {
		return nil, mismatch(name, 0, "array", collected)
	}

	evalElem := func(i int) (any, error) {
		return e.eval(args[1], elementContext(ctx, arr[i], i), fr)
	}
	predicate := func(i int) (bool, error) {
		v, err := evalElem(i)
		if err != nil {
			return false, err
		}
		b, ok := v.(bool)
		if !ok {
			return false, mismatch(name, 1, "bool", v)
		}
		return b, nil
	}

	switch name {
	case "map":
		out := make([]any, len(arr))
		for i := range arr {
			v, err := evalElem(i)
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil
	case "filter":
		out := make([]any, 0, len(arr))
		for i := range arr {
			keep, err := predicate(i)
			if err != nil {
				return nil, err
			}
			if keep {
				out = append(out, arr[i])
			}
		}
		return out, nil
	case "find":
		for i := range arr {
			hit, err := predicate(i)
			if err != nil {
				return nil, err
			}
			if hit {
				return arr[i], nil
			}
		}
		return nil, nil
	case "some":
		for i := range arr {
			hit, err := predicate(i)
			if err != nil {
				return nil, err
			}
			if hit {
				return true, nil
			}
		}
		return false, nil
	case "every":
		for i := range arr {
			hit, err := predicate(i)
			if err != nil {
				return nil, err
			}
			if !hit {
				return false, nil
			}
		}
		return true, nil
	}
	return nil, &expr.UnknownOperationError{Name: name}
}

// elementContext derives the per-element context for higher-order array
// operations. Object elements expose their fields at the top level; every
// element is additionally bound under the reserved keys "item" and "index".
func elementContext(ctx *expr.Context, elem any, idx int) *expr.Context {
	rec := make(map[string]any)
	if m, ok := elem.(map[string]any); ok {
		for k, v := range m {
			rec[k] = v
		}
	}
	rec["item"] = elem
	rec["index"] = float64(idx)
	return &expr.Context{Record: rec, User: ctx.User, Related: ctx.Related}
}

// resolveField walks a dot-delimited path segment by segment. The first
// segment resolves through the record, falling through to related records;
// later segments require object values. A miss yields null in lenient mode
// and UnknownFieldError in strict mode.
func (e *Evaluator) resolveField(path string, ctx *expr.Context, fr frame) (any, error) {
	miss := func() (any, error) {
		if fr.strict {
			return nil, &expr.UnknownFieldError{Path: path}
		}
		return nil, nil
	}

	segs := strings.Split(path, ".")
	cur, found := any(nil), false
	if ctx.Record != nil {
		cur, found = ctx.Record[segs[0]]
	}
	if !found && ctx.Related != nil {
		cur, found = ctx.Related[segs[0]]
	}
	if !found {
		return miss()
	}
	for _, seg := range segs[1:] {
		m, ok := cur.(map[string]any)
		if !ok {
			return miss()
		}
		cur, ok = m[seg]
		if !ok {
			return miss()
		}
	}
	return cur, nil
}

func joinPath(base, name string) string {
	if base == "" {
		return name
	}
	return base + "/" + name
}
