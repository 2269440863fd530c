// Package schema decodes and validates policy bundles: the upstream step
// the evaluation engine assumes has already happened. All JSON/YAML text
// parsing lives here; the engine only ever sees structurally valid trees.
package schema

import (
	"encoding/json"
	"fmt"

	"github.com/Record-Gate/Recordgate/internal/domain/expr"
)

// Node kind tags in the wire format.
const (
	kindLiteral    = "literal"
	kindField      = "field"
	kindOperation  = "op"
	kindCondition  = "cond"
	kindPermission = "perm"
)

// DecodeExpression parses a JSON-encoded expression tree.
func DecodeExpression(data []byte) (expr.Expression, error) {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("invalid expression JSON: %w", err)
	}
	return DecodeNode(raw)
}

// DecodeNode converts an already-unmarshalled generic value (from JSON or
// YAML) into an expression tree. Decoding JSON cannot produce cycles, so
// the evaluator's depth guard is the only traversal defense needed.
func DecodeNode(raw any) (expr.Expression, error) {
	m, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("expression node must be an object, got %T", raw)
	}
	kind, _ := m["kind"].(string)
	switch kind {
	case kindLiteral:
		return expr.Literal{Value: m["value"]}, nil

	case kindField:
		path, _ := m["path"].(string)
		if path == "" {
			return nil, fmt.Errorf("field node requires a non-empty path")
		}
		return expr.FieldAccess{Path: path}, nil

	case kindOperation:
		name, _ := m["op"].(string)
		if name == "" {
			return nil, fmt.Errorf("op node requires an op name")
		}
		args, err := decodeArgs(m["args"])
		if err != nil {
			return nil, fmt.Errorf("op %q: %w", name, err)
		}
		return expr.Operation{Op: name, Args: args}, nil

	case kindCondition:
		name, _ := m["op"].(string)
		if name == "" {
			return nil, fmt.Errorf("cond node requires an op name")
		}
		left, err := DecodeNode(m["left"])
		if err != nil {
			return nil, fmt.Errorf("cond %q left: %w", name, err)
		}
		right, err := DecodeNode(m["right"])
		if err != nil {
			return nil, fmt.Errorf("cond %q right: %w", name, err)
		}
		return expr.Condition{Op: name, Left: left, Right: right}, nil

	case kindPermission:
		name, _ := m["check"].(string)
		if name == "" {
			return nil, fmt.Errorf("perm node requires a check name")
		}
		args, err := decodeArgs(m["args"])
		if err != nil {
			return nil, fmt.Errorf("perm %q: %w", name, err)
		}
		return expr.PermissionCheck{Check: name, Args: args}, nil

	case "":
		return nil, fmt.Errorf("expression node missing kind tag")
	default:
		return nil, fmt.Errorf("unknown expression kind %q", kind)
	}
}

func decodeArgs(raw any) ([]expr.Expression, error) {
	if raw == nil {
		return nil, nil
	}
	list, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("args must be an array, got %T", raw)
	}
	args := make([]expr.Expression, len(list))
	for i, elem := range list {
		node, err := DecodeNode(elem)
		if err != nil {
			return nil, fmt.Errorf("arg %d: %w", i, err)
		}
		args[i] = node
	}
	return args, nil
}

// EncodeExpression serializes an expression tree back to its JSON wire
// form, for persistence in the sqlite store.
func EncodeExpression(node expr.Expression) ([]byte, error) {
	wire, err := buildWire(node)
	if err != nil {
		return nil, err
	}
	return json.Marshal(wire)
}

func buildWire(node expr.Expression) (any, error) {
	switch n := node.(type) {
	case expr.Literal:
		return map[string]any{"kind": kindLiteral, "value": n.Value}, nil
	case expr.FieldAccess:
		return map[string]any{"kind": kindField, "path": n.Path}, nil
	case expr.Operation:
		args, err := buildWireArgs(n.Args)
		if err != nil {
			return nil, err
		}
		return map[string]any{"kind": kindOperation, "op": n.Op, "args": args}, nil
	case expr.Condition:
		left, err := buildWire(n.Left)
		if err != nil {
			return nil, err
		}
		right, err := buildWire(n.Right)
		if err != nil {
			return nil, err
		}
		return map[string]any{"kind": kindCondition, "op": n.Op, "left": left, "right": right}, nil
	case expr.PermissionCheck:
		args, err := buildWireArgs(n.Args)
		if err != nil {
			return nil, err
		}
		return map[string]any{"kind": kindPermission, "check": n.Check, "args": args}, nil
	default:
		return nil, fmt.Errorf("cannot encode expression node %T", node)
	}
}

func buildWireArgs(args []expr.Expression) ([]any, error) {
	out := make([]any, len(args))
	for i, arg := range args {
		wire, err := buildWire(arg)
		if err != nil {
			return nil, err
		}
		out[i] = wire
	}
	return out, nil
}
