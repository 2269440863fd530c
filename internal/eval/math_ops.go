package eval

import (
	"math"

	"github.com/Record-Gate/Recordgate/internal/domain/expr"
)

// mathOps returns the math category of built-in operations. All operands
// must already be numbers; numeric strings are not coerced.
func mathOps() []entry {
	return []entry{
		{name: "add", minArgs: 2, maxArgs: -1, pure: true, fn: opAdd},
		{name: "subtract", minArgs: 2, maxArgs: 2, pure: true, fn: opSubtract},
		{name: "multiply", minArgs: 2, maxArgs: -1, pure: true, fn: opMultiply},
		{name: "divide", minArgs: 2, maxArgs: 2, pure: true, fn: opDivide},
		{name: "mod", minArgs: 2, maxArgs: 2, pure: true, fn: opMod},
		{name: "pow", minArgs: 2, maxArgs: 2, pure: true, fn: opPow},
		{name: "abs", minArgs: 1, maxArgs: 1, pure: true, fn: opAbs},
		{name: "round", minArgs: 1, maxArgs: 1, pure: true, fn: opRound},
		{name: "floor", minArgs: 1, maxArgs: 1, pure: true, fn: opFloor},
		{name: "ceil", minArgs: 1, maxArgs: 1, pure: true, fn: opCeil},
		{name: "min", minArgs: 2, maxArgs: -1, pure: true, fn: opMin},
		{name: "max", minArgs: 2, maxArgs: -1, pure: true, fn: opMax},
	}
}

// finiteResult rejects Inf and NaN results so a non-finite value never
// escapes the engine as an ordinary number.
func finiteResult(op string, n float64) (any, error) {
	if math.IsInf(n, 0) || math.IsNaN(n) {
		return nil, &expr.TypeMismatchError{
			Op:       op,
			ArgIndex: -1,
			Expected: "a finite result",
			Actual:   nonFiniteName(n),
		}
	}
	return n, nil
}

func nonFiniteName(n float64) string {
	switch {
	case math.IsInf(n, 1):
		return "+Inf"
	case math.IsInf(n, -1):
		return "-Inf"
	default:
		return "NaN"
	}
}

func opAdd(_ *Evaluator, _ *expr.Context, args []any) (any, error) {
	sum := 0.0
	for i := range args {
		n, err := numberArg("add", args, i)
		if err != nil {
			return nil, err
		}
		sum += n
	}
	return finiteResult("add", sum)
}

func opSubtract(_ *Evaluator, _ *expr.Context, args []any) (any, error) {
	a, err := numberArg("subtract", args, 0)
	if err != nil {
		return nil, err
	}
	b, err := numberArg("subtract", args, 1)
	if err != nil {
		return nil, err
	}
	return finiteResult("subtract", a-b)
}

func opMultiply(_ *Evaluator, _ *expr.Context, args []any) (any, error) {
	product := 1.0
	for i := range args {
		n, err := numberArg("multiply", args, i)
		if err != nil {
			return nil, err
		}
		product *= n
	}
	return finiteResult("multiply", product)
}

func opDivide(_ *Evaluator, _ *expr.Context, args []any) (any, error) {
	a, err := numberArg("divide", args, 0)
	if err != nil {
		return nil, err
	}
	b, err := numberArg("divide", args, 1)
	if err != nil {
		return nil, err
	}
	if b == 0 {
		return nil, &expr.DivisionByZeroError{Op: "divide"}
	}
	return finiteResult("divide", a/b)
}

func opMod(_ *Evaluator, _ *expr.Context, args []any) (any, error) {
	a, err := numberArg("mod", args, 0)
	if err != nil {
		return nil, err
	}
	b, err := numberArg("mod", args, 1)
	if err != nil {
		return nil, err
	}
	if b == 0 {
		return nil, &expr.DivisionByZeroError{Op: "mod"}
	}
	return math.Mod(a, b), nil
}

func opPow(_ *Evaluator, _ *expr.Context, args []any) (any, error) {
	a, err := numberArg("pow", args, 0)
	if err != nil {
		return nil, err
	}
	b, err := numberArg("pow", args, 1)
	if err != nil {
		return nil, err
	}
	// A zero base with a negative exponent is a division by zero in disguise.
	if a == 0 && b < 0 {
		return nil, &expr.DivisionByZeroError{Op: "pow"}
	}
	return finiteResult("pow", math.Pow(a, b))
}

func opAbs(_ *Evaluator, _ *expr.Context, args []any) (any, error) {
	n, err := numberArg("abs", args, 0)
	if err != nil {
		return nil, err
	}
	return math.Abs(n), nil
}

func opRound(_ *Evaluator, _ *expr.Context, args []any) (any, error) {
	n, err := numberArg("round", args, 0)
	if err != nil {
		return nil, err
	}
	return math.Round(n), nil
}

func opFloor(_ *Evaluator, _ *expr.Context, args []any) (any, error) {
	n, err := numberArg("floor", args, 0)
	if err != nil {
		return nil, err
	}
	return math.Floor(n), nil
}

func opCeil(_ *Evaluator, _ *expr.Context, args []any) (any, error) {
	n, err := numberArg("ceil", args, 0)
	if err != nil {
		return nil, err
	}
	return math.Ceil(n), nil
}

func opMin(_ *Evaluator, _ *expr.Context, args []any) (any, error) {
	best, err := numberArg("min", args, 0)
	if err != nil {
		return nil, err
	}
	for i := 1; i < len(args); i++ {
		n, err := numberArg("min", args, i)
		if err != nil {
			return nil, err
		}
		if n < best {
			best = n
		}
	}
	return best, nil
}

func opMax(_ *Evaluator, _ *expr.Context, args []any) (any, error) {
	best, err := numberArg("max", args, 0)
	if err != nil {
		return nil, err
	}
	for i := 1; i < len(args); i++ {
		n, err := numberArg("max", args, i)
		if err != nil {
			return nil, err
		}
		if n > best {
			best = n
		}
	}
	return best, nil
}
