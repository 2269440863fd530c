package eval

import (
	"fmt"
	"time"

	"github.com/Record-Gate/Recordgate/internal/domain/expr"
)

// dateOps returns the date category of built-in operations. Every
// now-derived result reads time through the Evaluator's injected clock, so
// tests and replay runs can pin a logical instant.
func dateOps() []entry {
	return []entry{
		{name: "formatDate", minArgs: 1, maxArgs: 2, pure: true, fn: opFormatDate},
		{name: "timeAgo", minArgs: 1, maxArgs: 1, pure: false, fn: opTimeAgo},
		{name: "yearsAgo", minArgs: 1, maxArgs: 1, pure: false, fn: opYearsAgo},
		{name: "monthsAgo", minArgs: 1, maxArgs: 1, pure: false, fn: opMonthsAgo},
		{name: "daysAgo", minArgs: 1, maxArgs: 1, pure: false, fn: opDaysAgo},
		{name: "now", minArgs: 0, maxArgs: 0, pure: false, fn: opNow},
		{name: "currentYear", minArgs: 0, maxArgs: 0, pure: false, fn: opCurrentYear},
		{name: "parseDate", minArgs: 1, maxArgs: 1, pure: true, fn: opParseDate},
		{name: "isPast", minArgs: 1, maxArgs: 1, pure: false, fn: opIsPast},
		{name: "isFuture", minArgs: 1, maxArgs: 1, pure: false, fn: opIsFuture},
	}
}

// dateLayouts are the accepted textual date forms, tried in order.
var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// toTime normalizes a value to a time.Time. Accepts time.Time, textual
// dates in the known layouts, and numbers as Unix seconds.
func toTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case string:
		for _, layout := range dateLayouts {
			if parsed, err := time.Parse(layout, t); err == nil {
				return parsed, true
			}
		}
		return time.Time{}, false
	default:
		if n, ok := toNumber(v); ok {
			return time.Unix(int64(n), 0).UTC(), true
		}
		return time.Time{}, false
	}
}

// timeArg extracts args[i] as a time or returns a TypeMismatchError.
func timeArg(op string, args []any, i int) (time.Time, error) {
	t, ok := toTime(args[i])
	if !ok {
		return time.Time{}, mismatch(op, i, "date", args[i])
	}
	return t, nil
}

func opFormatDate(_ *Evaluator, _ *expr.Context, args []any) (any, error) {
	t, err := timeArg("formatDate", args, 0)
	if err != nil {
		return nil, err
	}
	layout := "2006-01-02"
	if len(args) == 2 {
		layout, err = stringArg("formatDate", args, 1)
		if err != nil {
			return nil, err
		}
	}
	return t.Format(layout), nil
}

func opTimeAgo(e *Evaluator, _ *expr.Context, args []any) (any, error) {
	t, err := timeArg("timeAgo", args, 0)
	if err != nil {
		return nil, err
	}
	return relativeTime(t, e.clock.Now()), nil
}

// relativeTime renders the distance between t and now in the largest whole
// unit, "just now" under a minute.
func relativeTime(t, now time.Time) string {
	d := now.Sub(t)
	suffix := "ago"
	if d < 0 {
		d = -d
		suffix = "from now"
	}
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return plural(int(d.Minutes()), "minute", suffix)
	case d < 24*time.Hour:
		return plural(int(d.Hours()), "hour", suffix)
	case d < 30*24*time.Hour:
		return plural(int(d.Hours()/24), "day", suffix)
	case d < 365*24*time.Hour:
		return plural(int(d.Hours()/(24*30)), "month", suffix)
	default:
		return plural(int(d.Hours()/(24*365)), "year", suffix)
	}
}

func plural(n int, unit, suffix string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s %s", unit, suffix)
	}
	return fmt.Sprintf("%d %ss %s", n, unit, suffix)
}

func opYearsAgo(e *Evaluator, _ *expr.Context, args []any) (any, error) {
	n, err := intArg("yearsAgo", args, 0)
	if err != nil {
		return nil, err
	}
	return e.clock.Now().UTC().AddDate(-n, 0, 0), nil
}

func opMonthsAgo(e *Evaluator, _ *expr.Context, args []any) (any, error) {
	n, err := intArg("monthsAgo", args, 0)
	if err != nil {
		return nil, err
	}
	return e.clock.Now().UTC().AddDate(0, -n, 0), nil
}

func opDaysAgo(e *Evaluator, _ *expr.Context, args []any) (any, error) {
	n, err := intArg("daysAgo", args, 0)
	if err != nil {
		return nil, err
	}
	return e.clock.Now().UTC().AddDate(0, 0, -n), nil
}

func opNow(e *Evaluator, _ *expr.Context, _ []any) (any, error) {
	return e.clock.Now().UTC(), nil
}

func opCurrentYear(e *Evaluator, _ *expr.Context, _ []any) (any, error) {
	return float64(e.clock.Now().UTC().Year()), nil
}

func opParseDate(_ *Evaluator, _ *expr.Context, args []any) (any, error) {
	return timeArg("parseDate", args, 0)
}

func opIsPast(e *Evaluator, _ *expr.Context, args []any) (any, error) {
	t, err := timeArg("isPast", args, 0)
	if err != nil {
		return nil, err
	}
	return t.Before(e.clock.Now()), nil
}

func opIsFuture(e *Evaluator, _ *expr.Context, args []any) (any, error) {
	t, err := timeArg("isFuture", args, 0)
	if err != nil {
		return nil, err
	}
	return t.After(e.clock.Now()), nil
}
