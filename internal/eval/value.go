package eval

import (
	"math"
	"strconv"
	"time"

	"github.com/Record-Gate/Recordgate/internal/domain/expr"
)

// typeName returns the JSON-flavored type label used in error messages.
// It never includes record values.
func typeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "bool"
	case float64, float32, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return "number"
	case string:
		return "string"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	case time.Time:
		return "date"
	default:
		return "unknown"
	}
}

// toNumber normalizes any supported numeric representation to float64.
// Strings are deliberately not coerced.
func toNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}

// scalarString renders a scalar value as a string for concat/join and
// ownership comparison. Nil renders as the empty string; composite values
// are rejected.
func scalarString(v any) (string, bool) {
	switch s := v.(type) {
	case nil:
		return "", true
	case string:
		return s, true
	case bool:
		return strconv.FormatBool(s), true
	case time.Time:
		return s.Format(time.RFC3339), true
	default:
		if n, ok := toNumber(v); ok {
			return strconv.FormatFloat(n, 'f', -1, 64), true
		}
		return "", false
	}
}

// deepEqual implements structural equality with numeric normalization:
// ints and floats holding the same value compare equal, arrays compare
// elementwise, objects keywise, and dates by instant.
func deepEqual(a, b any) bool {
	if an, ok := toNumber(a); ok {
		bn, ok := toNumber(b)
		return ok && an == bn
	}
	switch av := a.(type) {
	case nil:
		return b == nil
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	case time.Time:
		bv, ok := b.(time.Time)
		return ok && av.Equal(bv)
	case []any:
		bv, ok := b.([]any)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !deepEqual(av[i], bv[i]) {
				return false
			}
		}
		return true
	case map[string]any:
		bv, ok := b.(map[string]any)
		if !ok || len(av) != len(bv) {
			return false
		}
		for k, v := range av {
			bval, present := bv[k]
			if !present || !deepEqual(v, bval) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// isEmptyValue reports whether a value is null, an empty string, or an
// empty array/object. Numbers and booleans are never empty.
func isEmptyValue(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	case []any:
		return len(t) == 0
	case map[string]any:
		return len(t) == 0
	default:
		return false
	}
}

// mismatch builds the TypeMismatchError for argument i of op.
func mismatch(op string, i int, expected string, actual any) error {
	return &expr.TypeMismatchError{Op: op, ArgIndex: i, Expected: expected, Actual: typeName(actual)}
}

// numberArg extracts args[i] as a number or returns a TypeMismatchError.
func numberArg(op string, args []any, i int) (float64, error) {
	n, ok := toNumber(args[i])
	if !ok {
		return 0, mismatch(op, i, "number", args[i])
	}
	return n, nil
}

// intArg extracts args[i] as an integral number.
func intArg(op string, args []any, i int) (int, error) {
	n, err := numberArg(op, args, i)
	if err != nil {
		return 0, err
	}
	if n != math.Trunc(n) {
		return 0, mismatch(op, i, "integer", args[i])
	}
	return int(n), nil
}

// stringArg extracts args[i] as a string or returns a TypeMismatchError.
func stringArg(op string, args []any, i int) (string, error) {
	s, ok := args[i].(string)
	if !ok {
		return "", mismatch(op, i, "string", args[i])
	}
	return s, nil
}

// arrayArg extracts args[i] as an array or returns a TypeMismatchError.
func arrayArg(op string, args []any, i int) ([]any, error) {
	a, ok := args[i].([]any)
	if !ok {
		return nil, mismatch(op, i, "array", args[i])
	}
	return a, nil
}
