package service

import (
	"testing"

	"github.com/Record-Gate/Recordgate/internal/domain/expr"
	"github.com/Record-Gate/Recordgate/internal/eval"
)

func newTestEvalService(t *testing.T) *EvalService {
	t.Helper()
	evaluator, err := eval.New(eval.Config{})
	if err != nil {
		t.Fatalf("eval.New() error = %v", err)
	}
	return NewEvalService(evaluator, testLogger())
}

func TestEvalServiceIsLenient(t *testing.T) {
	svc := newTestEvalService(t)

	// A missing field is null, not an error, in the computed-field surface.
	got, err := svc.Evaluate(expr.Field("missing"), &expr.Context{})
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if got != nil {
		t.Errorf("Evaluate(missing field) = %v, want nil", got)
	}
}

func TestEvaluateWithFallback(t *testing.T) {
	svc := newTestEvalService(t)
	boom := expr.Op("divide", expr.Lit(1.0), expr.Lit(0.0))

	got := svc.EvaluateWithFallback(boom, &expr.Context{}, "n/a")
	if got != "n/a" {
		t.Errorf("EvaluateWithFallback(error) = %v, want fallback", got)
	}

	got = svc.EvaluateWithFallback(expr.Lit(7.0), &expr.Context{}, "n/a")
	if got != 7.0 {
		t.Errorf("EvaluateWithFallback(ok) = %v, want 7", got)
	}
}
