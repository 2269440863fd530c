package eval

import (
	"strings"
	"unicode"

	"github.com/Record-Gate/Recordgate/internal/domain/expr"
)

// stringOps returns the string category of built-in operations. Substring
// and length operate on runes, not bytes.
func stringOps() []entry {
	return []entry{
		{name: "concat", minArgs: 1, maxArgs: -1, pure: true, fn: opConcat},
		{name: "upper", minArgs: 1, maxArgs: 1, pure: true, fn: opUpper},
		{name: "lower", minArgs: 1, maxArgs: 1, pure: true, fn: opLower},
		{name: "capitalize", minArgs: 1, maxArgs: 1, pure: true, fn: opCapitalize},
		{name: "trim", minArgs: 1, maxArgs: 1, pure: true, fn: opTrim},
		{name: "substring", minArgs: 2, maxArgs: 3, pure: true, fn: opSubstring},
		{name: "replace", minArgs: 3, maxArgs: 3, pure: true, fn: opReplace},
		{name: "split", minArgs: 2, maxArgs: 2, pure: true, fn: opSplit},
		{name: "join", minArgs: 2, maxArgs: 2, pure: true, fn: opJoin},
		{name: "contains", minArgs: 2, maxArgs: 2, pure: true, fn: opContains},
		{name: "startsWith", minArgs: 2, maxArgs: 2, pure: true, fn: opStartsWith},
		{name: "endsWith", minArgs: 2, maxArgs: 2, pure: true, fn: opEndsWith},
		{name: "length", minArgs: 1, maxArgs: 1, pure: true, fn: opLength},
	}
}

func opConcat(_ *Evaluator, _ *expr.Context, args []any) (any, error) {
	var b strings.Builder
	for i, arg := range args {
		s, ok := scalarString(arg)
		if !ok {
			return nil, mismatch("concat", i, "scalar", arg)
		}
		b.WriteString(s)
	}
	return b.String(), nil
}

func opUpper(_ *Evaluator, _ *expr.Context, args []any) (any, error) {
	s, err := stringArg("upper", args, 0)
	if err != nil {
		return nil, err
	}
	return strings.ToUpper(s), nil
}

func opLower(_ *Evaluator, _ *expr.Context, args []any) (any, error) {
	s, err := stringArg("lower", args, 0)
	if err != nil {
		return nil, err
	}
	return strings.ToLower(s), nil
}

func opCapitalize(_ *Evaluator, _ *expr.Context, args []any) (any, error) {
	s, err := stringArg("capitalize", args, 0)
	if err != nil {
		return nil, err
	}
	runes := []rune(s)
	if len(runes) == 0 {
		return s, nil
	}
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes), nil
}

func opTrim(_ *Evaluator, _ *expr.Context, args []any) (any, error) {
	s, err := stringArg("trim", args, 0)
	if err != nil {
		return nil, err
	}
	return strings.TrimSpace(s), nil
}

func opSubstring(_ *Evaluator, _ *expr.Context, args []any) (any, error) {
	s, err := stringArg("substring", args, 0)
	if err != nil {
		return nil, err
	}
	start, err := intArg("substring", args, 1)
	if err != nil {
		return nil, err
	}
	runes := []rune(s)
	end := len(runes)
	if len(args) == 3 {
		end, err = intArg("substring", args, 2)
		if err != nil {
			return nil, err
		}
	}
	start, end = clampRange(start, end, len(runes))
	return string(runes[start:end]), nil
}

func opReplace(_ *Evaluator, _ *expr.Context, args []any) (any, error) {
	s, err := stringArg("replace", args, 0)
	if err != nil {
		return nil, err
	}
	old, err := stringArg("replace", args, 1)
	if err != nil {
		return nil, err
	}
	repl, err := stringArg("replace", args, 2)
	if err != nil {
		return nil, err
	}
	return strings.ReplaceAll(s, old, repl), nil
}

func opSplit(_ *Evaluator, _ *expr.Context, args []any) (any, error) {
	s, err := stringArg("split", args, 0)
	if err != nil {
		return nil, err
	}
	sep, err := stringArg("split", args, 1)
	if err != nil {
		return nil, err
	}
	parts := strings.Split(s, sep)
	out := make([]any, len(parts))
	for i, p := range parts {
		out[i] = p
	}
	return out, nil
}

func opJoin(_ *Evaluator, _ *expr.Context, args []any) (any, error) {
	arr, err := arrayArg("join", args, 0)
	if err != nil {
		return nil, err
	}
	sep, err := stringArg("join", args, 1)
	if err != nil {
		return nil, err
	}
	parts := make([]string, len(arr))
	for i, elem := range arr {
		s, ok := scalarString(elem)
		if !ok {
			return nil, mismatch("join", 0, "array of scalars", elem)
		}
		parts[i] = s
	}
	return strings.Join(parts, sep), nil
}

func opContains(_ *Evaluator, _ *expr.Context, args []any) (any, error) {
	s, err := stringArg("contains", args, 0)
	if err != nil {
		return nil, err
	}
	sub, err := stringArg("contains", args, 1)
	if err != nil {
		return nil, err
	}
	return strings.Contains(s, sub), nil
}

func opStartsWith(_ *Evaluator, _ *expr.Context, args []any) (any, error) {
	s, err := stringArg("startsWith", args, 0)
	if err != nil {
		return nil, err
	}
	prefix, err := stringArg("startsWith", args, 1)
	if err != nil {
		return nil, err
	}
	return strings.HasPrefix(s, prefix), nil
}

func opEndsWith(_ *Evaluator, _ *expr.Context, args []any) (any, error) {
	s, err := stringArg("endsWith", args, 0)
	if err != nil {
		return nil, err
	}
	suffix, err := stringArg("endsWith", args, 1)
	if err != nil {
		return nil, err
	}
	return strings.HasSuffix(s, suffix), nil
}

func opLength(_ *Evaluator, _ *expr.Context, args []any) (any, error) {
	s, err := stringArg("length", args, 0)
	if err != nil {
		return nil, err
	}
	return float64(len([]rune(s))), nil
}

// clampRange clamps a half-open [start, end) range into [0, n], keeping
// start <= end.
func clampRange(start, end, n int) (int, int) {
	if start < 0 {
		start = 0
	}
	if start > n {
		start = n
	}
	if end < start {
		end = start
	}
	if end > n {
		end = n
	}
	return start, end
}
