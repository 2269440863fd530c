package service

import (
	"log/slog"

	"github.com/Record-Gate/Recordgate/internal/domain/expr"
	"github.com/Record-Gate/Recordgate/internal/eval"
)

// EvalService serves the non-security evaluation surface: computed fields
// and conditional UI visibility. It always runs in lenient field-access
// mode, and evaluation failures are recoverable, so the caller gets a
// fallback value while the structured error is logged.
type EvalService struct {
	evaluator *eval.Evaluator
	logger    *slog.Logger
}

// NewEvalService creates an EvalService on top of the shared evaluator.
func NewEvalService(evaluator *eval.Evaluator, logger *slog.Logger) *EvalService {
	return &EvalService{evaluator: evaluator, logger: logger}
}

// Evaluate interprets a computed-field expression leniently.
func (s *EvalService) Evaluate(node expr.Expression, ctx *expr.Context) (any, error) {
	return s.evaluator.Evaluate(node, ctx)
}

// EvaluateWithFallback interprets an expression and substitutes fallback on
// any evaluation failure, logging the error kind (never record data).
func (s *EvalService) EvaluateWithFallback(node expr.Expression, ctx *expr.Context, fallback any) any {
	v, err := s.evaluator.Evaluate(node, ctx)
	if err != nil {
		kind := "error"
		if ee, ok := err.(expr.EvalError); ok {
			kind = ee.Kind()
		}
		s.logger.Debug("computed expression failed, using fallback", "error_kind", kind)
		return fallback
	}
	return v
}
