package eval

import (
	"strings"
	"time"

	"github.com/Record-Gate/Recordgate/internal/domain/expr"
)

// compareOps returns the comparison category. Equality is structural (deep)
// for arrays and objects; ordering is defined for numbers, strings, and
// dates only.
func compareOps() []entry {
	return []entry{
		{name: "eq", minArgs: 2, maxArgs: 2, pure: true, fn: opEq},
		{name: "ne", minArgs: 2, maxArgs: 2, pure: true, fn: opNe},
		{name: "gt", minArgs: 2, maxArgs: 2, pure: true, fn: orderingOp("gt")},
		{name: "lt", minArgs: 2, maxArgs: 2, pure: true, fn: orderingOp("lt")},
		{name: "gte", minArgs: 2, maxArgs: 2, pure: true, fn: orderingOp("gte")},
		{name: "lte", minArgs: 2, maxArgs: 2, pure: true, fn: orderingOp("lte")},
		{name: "in", minArgs: 2, maxArgs: 2, pure: true, fn: opIn},
		{name: "between", minArgs: 3, maxArgs: 3, pure: true, fn: opBetween},
	}
}

func opEq(_ *Evaluator, _ *expr.Context, args []any) (any, error) {
	return deepEqual(args[0], args[1]), nil
}

func opNe(_ *Evaluator, _ *expr.Context, args []any) (any, error) {
	return !deepEqual(args[0], args[1]), nil
}

// compareOrdered returns -1, 0, or 1 for a pair of comparable values.
func compareOrdered(op string, a, b any) (int, error) {
	if an, ok := toNumber(a); ok {
		bn, ok := toNumber(b)
		if !ok {
			return 0, mismatch(op, 1, "number", b)
		}
		switch {
		case an < bn:
			return -1, nil
		case an > bn:
			return 1, nil
		default:
			return 0, nil
		}
	}
	if as, ok := a.(string); ok {
		bs, ok := b.(string)
		if !ok {
			return 0, mismatch(op, 1, "string", b)
		}
		return strings.Compare(as, bs), nil
	}
	if at, ok := a.(time.Time); ok {
		bt, ok := toTime(b)
		if !ok {
			return 0, mismatch(op, 1, "date", b)
		}
		switch {
		case at.Before(bt):
			return -1, nil
		case at.After(bt):
			return 1, nil
		default:
			return 0, nil
		}
	}
	return 0, mismatch(op, 0, "number, string, or date", a)
}

func orderingOp(op string) opFunc {
	return func(_ *Evaluator, _ *expr.Context, args []any) (any, error) {
		c, err := compareOrdered(op, args[0], args[1])
		if err != nil {
			return nil, err
		}
		switch op {
		case "gt":
			return c > 0, nil
		case "lt":
			return c < 0, nil
		case "gte":
			return c >= 0, nil
		default:
			return c <= 0, nil
		}
	}
}

func opIn(_ *Evaluator, _ *expr.Context, args []any) (any, error) {
	switch coll := args[1].(type) {
	case []any:
		for _, elem := range coll {
			if deepEqual(args[0], elem) {
				return true, nil
			}
		}
		return false, nil
	case string:
		needle, ok := args[0].(string)
		if !ok {
			return nil, mismatch("in", 0, "string", args[0])
		}
		return strings.Contains(coll, needle), nil
	default:
		return nil, mismatch("in", 1, "array or string", args[1])
	}
}

func opBetween(_ *Evaluator, _ *expr.Context, args []any) (any, error) {
	lo, err := compareOrdered("between", args[0], args[1])
	if err != nil {
		return nil, err
	}
	hi, err := compareOrdered("between", args[0], args[2])
	if err != nil {
		return nil, err
	}
	return lo >= 0 && hi <= 0, nil
}
