package eval

import "github.com/Record-Gate/Recordgate/internal/domain/expr"

// logicalOps returns the logical category. and/or/if/coalesce/exists are
// lazy: their argument handling lives in the walker so unnecessary branches
// are never evaluated.
func logicalOps() []entry {
	return []entry{
		{name: "and", minArgs: 2, maxArgs: -1, pure: true, lazy: true},
		{name: "or", minArgs: 2, maxArgs: -1, pure: true, lazy: true},
		{name: "not", minArgs: 1, maxArgs: 1, pure: true, fn: opNot},
		{name: "if", minArgs: 2, maxArgs: 3, pure: true, lazy: true},
		{name: "coalesce", minArgs: 1, maxArgs: -1, pure: true, lazy: true},
		{name: "exists", minArgs: 1, maxArgs: 1, pure: true, lazy: true},
		{name: "isNull", minArgs: 1, maxArgs: 1, pure: true, fn: opIsNull},
		{name: "isEmpty", minArgs: 1, maxArgs: 1, pure: true, fn: opIsEmpty},
	}
}

func opNot(_ *Evaluator, _ *expr.Context, args []any) (any, error) {
	b, ok := args[0].(bool)
	if !ok {
		return nil, mismatch("not", 0, "bool", args[0])
	}
	return !b, nil
}

func opIsNull(_ *Evaluator, _ *expr.Context, args []any) (any, error) {
	return args[0] == nil, nil
}

func opIsEmpty(_ *Evaluator, _ *expr.Context, args []any) (any, error) {
	return isEmptyValue(args[0]), nil
}
