package eval

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
)

// fixedNow is the pinned instant used by the date operation tests.
var fixedNow = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

func fakeClockEvaluator(t *testing.T) *Evaluator {
	t.Helper()
	return mustNew(t, Config{Clock: clockwork.NewFakeClockAt(fixedNow)})
}

func TestNowUsesInjectedClock(t *testing.T) {
	e := fakeClockEvaluator(t)

	got, err := evalOp(t, e, "now")
	if err != nil {
		t.Fatalf("now error = %v", err)
	}
	ts, ok := got.(time.Time)
	if !ok {
		t.Fatalf("now returned %T, want time.Time", got)
	}
	if !ts.Equal(fixedNow) {
		t.Errorf("now = %v, want %v", ts, fixedNow)
	}
}

func TestCurrentYear(t *testing.T) {
	e := fakeClockEvaluator(t)
	got, err := evalOp(t, e, "currentYear")
	if err != nil {
		t.Fatalf("currentYear error = %v", err)
	}
	if got != 2024.0 {
		t.Errorf("currentYear = %v, want 2024", got)
	}
}

func TestAgoOps(t *testing.T) {
	e := fakeClockEvaluator(t)

	tests := []struct {
		op   string
		n    float64
		want time.Time
	}{
		{"yearsAgo", 1, time.Date(2023, 6, 15, 12, 0, 0, 0, time.UTC)},
		{"monthsAgo", 3, time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)},
		{"daysAgo", 10, time.Date(2024, 6, 5, 12, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.op, func(t *testing.T) {
			got, err := evalOp(t, e, tt.op, tt.n)
			if err != nil {
				t.Fatalf("%s error = %v", tt.op, err)
			}
			ts, ok := got.(time.Time)
			if !ok {
				t.Fatalf("%s returned %T, want time.Time", tt.op, got)
			}
			if !ts.Equal(tt.want) {
				t.Errorf("%s(%v) = %v, want %v", tt.op, tt.n, ts, tt.want)
			}
		})
	}
}

func TestParseDateLayouts(t *testing.T) {
	e := fakeClockEvaluator(t)

	tests := []struct {
		name  string
		input any
		want  time.Time
	}{
		{"rfc3339", "2024-06-15T12:00:00Z", fixedNow},
		{"rfc3339 nano", "2024-06-15T12:00:00.5Z", fixedNow.Add(500 * time.Millisecond)},
		{"no zone", "2024-06-15T12:00:00", fixedNow},
		{"date only", "2024-06-15", time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)},
		{"unix seconds", float64(fixedNow.Unix()), fixedNow},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := evalOp(t, e, "parseDate", tt.input)
			if err != nil {
				t.Fatalf("parseDate error = %v", err)
			}
			ts, ok := got.(time.Time)
			if !ok {
				t.Fatalf("parseDate returned %T", got)
			}
			if !ts.Equal(tt.want) {
				t.Errorf("parseDate(%v) = %v, want %v", tt.input, ts, tt.want)
			}
		})
	}

	if _, err := evalOp(t, e, "parseDate", "15/06/2024"); err == nil {
		t.Error("parseDate with unknown layout should fail")
	}
}

func TestFormatDate(t *testing.T) {
	e := fakeClockEvaluator(t)

	got, err := evalOp(t, e, "formatDate", "2024-06-15T12:00:00Z")
	if err != nil {
		t.Fatalf("formatDate error = %v", err)
	}
	if got != "2024-06-15" {
		t.Errorf("formatDate default = %v, want 2024-06-15", got)
	}

	got, err = evalOp(t, e, "formatDate", "2024-06-15T12:00:00Z", "02 Jan 2006")
	if err != nil {
		t.Fatalf("formatDate error = %v", err)
	}
	if got != "15 Jun 2024" {
		t.Errorf("formatDate custom = %v, want 15 Jun 2024", got)
	}
}

func TestIsPastIsFuture(t *testing.T) {
	e := fakeClockEvaluator(t)

	past := "2020-01-01"
	future := "2030-01-01"

	tests := []struct {
		op    string
		input string
		want  bool
	}{
		{"isPast", past, true},
		{"isPast", future, false},
		{"isFuture", future, true},
		{"isFuture", past, false},
	}
	for _, tt := range tests {
		got, err := evalOp(t, e, tt.op, tt.input)
		if err != nil {
			t.Fatalf("%s error = %v", tt.op, err)
		}
		if got != tt.want {
			t.Errorf("%s(%s) = %v, want %v", tt.op, tt.input, got, tt.want)
		}
	}
}

func TestTimeAgoBuckets(t *testing.T) {
	e := fakeClockEvaluator(t)

	tests := []struct {
		name  string
		input time.Time
		want  string
	}{
		{"just now", fixedNow.Add(-30 * time.Second), "just now"},
		{"minutes", fixedNow.Add(-5 * time.Minute), "5 minutes ago"},
		{"one hour", fixedNow.Add(-1 * time.Hour), "1 hour ago"},
		{"days", fixedNow.Add(-72 * time.Hour), "3 days ago"},
		{"months", fixedNow.Add(-65 * 24 * time.Hour), "2 months ago"},
		{"years", fixedNow.Add(-800 * 24 * time.Hour), "2 years ago"},
		{"future", fixedNow.Add(10 * time.Minute), "10 minutes from now"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := evalOp(t, e, "timeAgo", tt.input)
			if err != nil {
				t.Fatalf("timeAgo error = %v", err)
			}
			if got != tt.want {
				t.Errorf("timeAgo = %q, want %q", got, tt.want)
			}
		})
	}
}
