package schema

import (
	"strings"
	"testing"

	"github.com/Record-Gate/Recordgate/internal/domain/expr"
	"github.com/Record-Gate/Recordgate/internal/eval"
)

func testValidator(t *testing.T, maxDepth int) *Validator {
	t.Helper()
	evaluator, err := eval.New(eval.Config{})
	if err != nil {
		t.Fatalf("eval.New() error = %v", err)
	}
	return NewValidator(evaluator, maxDepth)
}

func TestValidateExpression(t *testing.T) {
	v := testValidator(t, 0)

	tests := []struct {
		name    string
		node    expr.Expression
		wantErr string // empty means valid
	}{
		{
			name: "valid tree",
			node: expr.Op("and",
				expr.Cond("gt", expr.Field("age"), expr.Lit(18.0)),
				expr.Perm("hasRole", expr.Lit("member")),
			),
		},
		{
			name:    "unknown operation",
			node:    expr.Op("frobnicate", expr.Lit(1.0)),
			wantErr: "unknown operation",
		},
		{
			name:    "data op in perm node",
			node:    expr.Perm("add", expr.Lit(1.0), expr.Lit(2.0)),
			wantErr: "not a permission check",
		},
		{
			name:    "too few arguments",
			node:    expr.Op("add", expr.Lit(1.0)),
			wantErr: "at least 2",
		},
		{
			name:    "too many arguments",
			node:    expr.Op("not", expr.Lit(true), expr.Lit(false)),
			wantErr: "at most 1",
		},
		{
			name:    "empty field path",
			node:    expr.Op("exists", expr.Field("")),
			wantErr: "empty path",
		},
		{
			name:    "nil node",
			node:    nil,
			wantErr: "nil expression",
		},
		{
			name:    "error in nested arg names position",
			node:    expr.Op("and", expr.Lit(true), expr.Op("nope")),
			wantErr: "and arg 1",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateExpression(tt.node)
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("ValidateExpression() error = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("ValidateExpression() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidateDepth(t *testing.T) {
	v := testValidator(t, 3)

	node := expr.Expression(expr.Lit(true))
	for i := 0; i < 3; i++ {
		node = expr.Op("not", node)
	}
	if err := v.ValidateExpression(node); err != nil {
		t.Errorf("3 levels under maxDepth=3: error = %v", err)
	}

	node = expr.Op("not", node)
	err := v.ValidateExpression(node)
	if err == nil || !strings.Contains(err.Error(), "nesting exceeds") {
		t.Errorf("4 levels under maxDepth=3: error = %v, want nesting error", err)
	}
}
