package rule

import (
	"cmp"
	"encoding/json"
	"fmt"

	"github.com/thisisjab/rulezilla/rule/ast"
)

// Evaluate walks a rule tree against a record and reports whether the record
// satisfies it.
//
// Both children of an operator node are always evaluated, so an error in either
// branch is surfaced even when the other branch alone decides the result.
// A comparison on an attribute that is missing (or nil) in the record yields the
// comparison's IsOptional flag.
func Evaluate(node ast.Node, record map[string]any) (bool, error) {
	switch n := node.(type) {
	case ast.OperatorNode:
		left, leftErr := Evaluate(n.Left, record)
		right, rightErr := Evaluate(n.Right, record)

		if leftErr != nil {
			return false, leftErr
		}
		if rightErr != nil {
			return false, rightErr
		}

		switch n.Operator {
		case ast.OperatorAnd:
			return left && right, nil
		case ast.OperatorOr:
			return left || right, nil
		default:
			return false, fmt.Errorf("%w: %q", ErrUnknownOperator, n.Operator)
		}

	case ast.ComparisonNode:
		return evaluateComparison(n, record)

	default:
		return false, fmt.Errorf("%w: %T", ErrInvalidNode, node)
	}
}

func evaluateComparison(n ast.ComparisonNode, record map[string]any) (bool, error) {
	if !n.Operator.Valid() {
		return false, fmt.Errorf("%w: %q", ErrUnknownOperator, n.Operator)
	}

	actual, ok := record[n.Attribute]
	if !ok || actual == nil {
		return n.IsOptional, nil
	}

	switch n.Operator {
	case ast.OperatorEq:
		return equals(actual, n.Value), nil
	case ast.OperatorNe:
		return !equals(actual, n.Value), nil
	}

	order, ok := compareOrdered(actual, n.Value)
	if !ok {
		return false, nil
	}

	switch n.Operator {
	case ast.OperatorGt:
		return order > 0, nil
	case ast.OperatorLt:
		return order < 0, nil
	case ast.OperatorGte:
		return order >= 0, nil
	case ast.OperatorLte:
		return order <= 0, nil
	default:
		return false, fmt.Errorf("%w: %q", ErrUnknownOperator, n.Operator)
	}
}

// equals is strict: numbers only equal numeric literals, strings only equal
// textual literals.
func equals(actual any, v ast.Value) bool {
	if v.IsNumber() {
		f, ok := toNumber(actual)
		return ok && f == v.Number()
	}

	s, ok := actual.(string)
	return ok && s == v.Text()
}

// compareOrdered compares a record value with a literal of the same kind.
// The second result is false when the two cannot be ordered.
func compareOrdered(actual any, v ast.Value) (int, bool) {
	if v.IsNumber() {
		f, ok := toNumber(actual)
		if !ok {
			return 0, false
		}
		return cmp.Compare(f, v.Number()), true
	}

	s, ok := actual.(string)
	if !ok {
		return 0, false
	}
	return cmp.Compare(s, v.Text()), true
}

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
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
