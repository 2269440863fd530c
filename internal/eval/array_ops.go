package eval

import "github.com/Record-Gate/Recordgate/internal/domain/expr"

// arrayOps returns the array category. The higher-order operations (map,
// filter, find, some, every) are lazy: their element expression is run by
// the walker against a per-element derived context.
func arrayOps() []entry {
	return []entry{
		{name: "count", minArgs: 1, maxArgs: 1, pure: true, fn: opCount},
		{name: "sum", minArgs: 1, maxArgs: 1, pure: true, fn: opSum},
		{name: "avg", minArgs: 1, maxArgs: 1, pure: true, fn: opAvg},
		{name: "first", minArgs: 1, maxArgs: 1, pure: true, fn: opFirst},
		{name: "last", minArgs: 1, maxArgs: 1, pure: true, fn: opLast},
		{name: "map", minArgs: 2, maxArgs: 2, pure: true, lazy: true},
		{name: "filter", minArgs: 2, maxArgs: 2, pure: true, lazy: true},
		{name: "find", minArgs: 2, maxArgs: 2, pure: true, lazy: true},
		{name: "some", minArgs: 2, maxArgs: 2, pure: true, lazy: true},
		{name: "every", minArgs: 2, maxArgs: 2, pure: true, lazy: true},
		{name: "slice", minArgs: 2, maxArgs: 3, pure: true, fn: opSlice},
		{name: "unique", minArgs: 1, maxArgs: 1, pure: true, fn: opUnique},
		{name: "flatten", minArgs: 1, maxArgs: 1, pure: true, fn: opFlatten},
	}
}

func opCount(_ *Evaluator, _ *expr.Context, args []any) (any, error) {
	arr, err := arrayArg("count", args, 0)
	if err != nil {
		return nil, err
	}
	return float64(len(arr)), nil
}

func opSum(_ *Evaluator, _ *expr.Context, args []any) (any, error) {
	arr, err := arrayArg("sum", args, 0)
	if err != nil {
		return nil, err
	}
	sum := 0.0
	for _, elem := range arr {
		n, ok := toNumber(elem)
		if !ok {
			return nil, mismatch("sum", 0, "array of numbers", elem)
		}
		sum += n
	}
	return finiteResult("sum", sum)
}

func opAvg(_ *Evaluator, _ *expr.Context, args []any) (any, error) {
	arr, err := arrayArg("avg", args, 0)
	if err != nil {
		return nil, err
	}
	if len(arr) == 0 {
		return nil, nil
	}
	sum := 0.0
	for _, elem := range arr {
		n, ok := toNumber(elem)
		if !ok {
			return nil, mismatch("avg", 0, "array of numbers", elem)
		}
		sum += n
	}
	return finiteResult("avg", sum/float64(len(arr)))
}

func opFirst(_ *Evaluator, _ *expr.Context, args []any) (any, error) {
	arr, err := arrayArg("first", args, 0)
	if err != nil {
		return nil, err
	}
	if len(arr) == 0 {
		return nil, nil
	}
	return arr[0], nil
}

func opLast(_ *Evaluator, _ *expr.Context, args []any) (any, error) {
	arr, err := arrayArg("last", args, 0)
	if err != nil {
		return nil, err
	}
	if len(arr) == 0 {
		return nil, nil
	}
	return arr[len(arr)-1], nil
}

func opSlice(_ *Evaluator, _ *expr.Context, args []any) (any, error) {
	arr, err := arrayArg("slice", args, 0)
	if err != nil {
		return nil, err
	}
	start, err := intArg("slice", args, 1)
	if err != nil {
		return nil, err
	}
	end := len(arr)
	if len(args) == 3 {
		end, err = intArg("slice", args, 2)
		if err != nil {
			return nil, err
		}
	}
	start, end = clampRange(start, end, len(arr))
	out := make([]any, end-start)
	copy(out, arr[start:end])
	return out, nil
}

func opUnique(_ *Evaluator, _ *expr.Context, args []any) (any, error) {
	arr, err := arrayArg("unique", args, 0)
	if err != nil {
		return nil, err
	}
	out := make([]any, 0, len(arr))
	for _, elem := range arr {
		seen := false
		for _, kept := range out {
			if deepEqual(elem, kept) {
				seen = true
				break
			}
		}
		if !seen {
			out = append(out, elem)
		}
	}
	return out, nil
}

// opFlatten splices nested arrays one level deep.
func opFlatten(_ *Evaluator, _ *expr.Context, args []any) (any, error) {
	arr, err := arrayArg("flatten", args, 0)
	if err != nil {
		return nil, err
	}
	out := make([]any, 0, len(arr))
	for _, elem := range arr {
		if nested, ok := elem.([]any); ok {
			out = append(out, nested...)
		} else {
			out = append(out, elem)
		}
	}
	return out, nil
}
