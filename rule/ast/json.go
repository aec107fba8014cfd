package ast

import (
	"bytes"
	"encoding/json"
	"fmt"
)

const (
	typeOperator   = "operator"
	typeComparison = "comparison"
)

// wireNode is the plain nested structure rules are stored and transferred as.
// Only Type is mandatory.
type wireNode struct {
	Type       string          `json:"type"`
	Operator   string          `json:"operator,omitempty"`
	Left       *wireNode       `json:"left,omitempty"`
	Right      *wireNode       `json:"right,omitempty"`
	Value      json.RawMessage `json:"value,omitempty"`
	Attribute  string          `json:"attribute,omitempty"`
	IsOptional *bool           `json:"isOptional,omitempty"`
}

// Marshal encodes a tree as JSON.
func Marshal(n Node) ([]byte, error) {
	w, err := toWire(n)
	if err != nil {
		return nil, err
	}
	return json.Marshal(w)
}

// Unmarshal decodes a tree previously encoded with Marshal.
// Numeric and textual values keep their kind.
func Unmarshal(data []byte) (Node, error) {
	var w wireNode
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("cannot decode rule tree: %w", err)
	}
	return fromWire(&w)
}

func toWire(n Node) (*wireNode, error) {
	switch n := n.(type) {
	case OperatorNode:
		if !n.Operator.Valid() {
			return nil, fmt.Errorf("%w: %q", ErrUnknownOperator, n.Operator)
		}

		left, err := toWire(n.Left)
		if err != nil {
			return nil, err
		}
		right, err := toWire(n.Right)
		if err != nil {
			return nil, err
		}

		return &wireNode{Type: typeOperator, Operator: string(n.Operator), Left: left, Right: right}, nil

	case ComparisonNode:
		if !n.Operator.Valid() {
			return nil, fmt.Errorf("%w: %q", ErrUnknownOperator, n.Operator)
		}

		value, err := json.Marshal(n.Value.Interface())
		if err != nil {
			return nil, fmt.Errorf("cannot encode value of %q: %w", n.Attribute, err)
		}

		optional := n.IsOptional
		return &wireNode{
			Type:       typeComparison,
			Operator:   string(n.Operator),
			Attribute:  n.Attribute,
			Value:      value,
			IsOptional: &optional,
		}, nil

	default:
		return nil, fmt.Errorf("%w: %T", ErrInvalidNode, n)
	}
}

func fromWire(w *wireNode) (Node, error) {
	if w == nil {
		return nil, fmt.Errorf("%w: missing node", ErrInvalidNode)
	}

	switch w.Type {
	case typeOperator:
		op := LogicalOperator(w.Operator)
		if !op.Valid() {
			return nil, fmt.Errorf("%w: %q", ErrUnknownOperator, w.Operator)
		}
		if w.Left == nil || w.Right == nil {
			return nil, fmt.Errorf("%w: %s node needs two children", ErrInvalidNode, op)
		}

		left, err := fromWire(w.Left)
		if err != nil {
			return nil, err
		}
		right, err := fromWire(w.Right)
		if err != nil {
			return nil, err
		}

		return OperatorNode{Operator: op, Left: left, Right: right}, nil

	case typeComparison:
		op := ComparisonOperator(w.Operator)
		if !op.Valid() {
			return nil, fmt.Errorf("%w: %q", ErrUnknownOperator, w.Operator)
		}
		if w.Attribute == "" {
			return nil, fmt.Errorf("%w: comparison without attribute", ErrInvalidNode)
		}

		value, err := decodeValue(w.Value)
		if err != nil {
			return nil, fmt.Errorf("%w: attribute %q: %v", ErrInvalidNode, w.Attribute, err)
		}

		return ComparisonNode{
			Operator:   op,
			Attribute:  w.Attribute,
			Value:      value,
			IsOptional: w.IsOptional != nil && *w.IsOptional,
		}, nil

	default:
		return nil, fmt.Errorf("%w: type %q", ErrInvalidNode, w.Type)
	}
}

func decodeValue(raw json.RawMessage) (Value, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return TextValue(""), nil
	}

	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return Value{}, err
		}
		return TextValue(s), nil
	default:
		var f float64
		if err := json.Unmarshal(raw, &f); err != nil {
			return Value{}, fmt.Errorf("value must be a number or a string")
		}
		return NumberValue(f), nil
	}
}

// Tree wraps a Node so it can be embedded in structs that are encoded as JSON.
type Tree struct {
	Root Node
}

func (t Tree) MarshalJSON() ([]byte, error) {
	if t.Root == nil {
		return []byte("null"), nil
	}
	return Marshal(t.Root)
}

func (t *Tree) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		t.Root = nil
		return nil
	}

	n, err := Unmarshal(data)
	if err != nil {
		return err
	}

	t.Root = n
	return nil
}
