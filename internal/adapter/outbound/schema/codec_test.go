package schema

import (
	"testing"

	"github.com/Record-Gate/Recordgate/internal/domain/expr"
)

func TestDecodeExpression(t *testing.T) {
	input := `{
		"kind": "op",
		"op": "and",
		"args": [
			{"kind": "cond", "op": "gt", "left": {"kind": "field", "path": "age"}, "right": {"kind": "literal", "value": 18}},
			{"kind": "perm", "check": "hasRole", "args": [{"kind": "literal", "value": "member"}]}
		]
	}`
	node, err := DecodeExpression([]byte(input))
	if err != nil {
		t.Fatalf("DecodeExpression() error = %v", err)
	}

	op, ok := node.(expr.Operation)
	if !ok {
		t.Fatalf("root node is %T, want Operation", node)
	}
	if op.Op != "and" || len(op.Args) != 2 {
		t.Fatalf("root = %+v", op)
	}

	cond, ok := op.Args[0].(expr.Condition)
	if !ok {
		t.Fatalf("arg 0 is %T, want Condition", op.Args[0])
	}
	if cond.Op != "gt" {
		t.Errorf("cond.Op = %q", cond.Op)
	}
	if f, ok := cond.Left.(expr.FieldAccess); !ok || f.Path != "age" {
		t.Errorf("cond.Left = %+v", cond.Left)
	}
	if l, ok := cond.Right.(expr.Literal); !ok || l.Value != 18.0 {
		t.Errorf("cond.Right = %+v", cond.Right)
	}

	perm, ok := op.Args[1].(expr.PermissionCheck)
	if !ok {
		t.Fatalf("arg 1 is %T, want PermissionCheck", op.Args[1])
	}
	if perm.Check != "hasRole" || len(perm.Args) != 1 {
		t.Errorf("perm = %+v", perm)
	}
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"not json", `{`},
		{"not an object", `[1,2]`},
		{"missing kind", `{"op": "add"}`},
		{"unknown kind", `{"kind": "magic"}`},
		{"field without path", `{"kind": "field"}`},
		{"op without name", `{"kind": "op", "args": []}`},
		{"cond missing side", `{"kind": "cond", "op": "eq", "left": {"kind": "literal", "value": 1}}`},
		{"perm without check", `{"kind": "perm", "args": []}`},
		{"args not array", `{"kind": "op", "op": "add", "args": 5}`},
		{"bad nested arg", `{"kind": "op", "op": "add", "args": [{"kind": "nope"}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := DecodeExpression([]byte(tt.input)); err == nil {
				t.Errorf("DecodeExpression(%s) should fail", tt.input)
			}
		})
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	original := expr.Op("if",
		expr.Perm("isOwner", expr.Lit("authorId")),
		expr.Cond("gte", expr.Field("score"), expr.Lit(0.5)),
		expr.Lit(false),
	)

	data, err := EncodeExpression(original)
	if err != nil {
		t.Fatalf("EncodeExpression() error = %v", err)
	}
	decoded, err := DecodeExpression(data)
	if err != nil {
		t.Fatalf("DecodeExpression() error = %v", err)
	}

	op, ok := decoded.(expr.Operation)
	if !ok || op.Op != "if" || len(op.Args) != 3 {
		t.Fatalf("round trip produced %+v", decoded)
	}
	if p, ok := op.Args[0].(expr.PermissionCheck); !ok || p.Check != "isOwner" {
		t.Errorf("arg 0 = %+v", op.Args[0])
	}
	if c, ok := op.Args[1].(expr.Condition); !ok || c.Op != "gte" {
		t.Errorf("arg 1 = %+v", op.Args[1])
	}
	if l, ok := op.Args[2].(expr.Literal); !ok || l.Value != false {
		t.Errorf("arg 2 = %+v", op.Args[2])
	}
}
