package rule

import (
	"errors"
	"testing"

	"github.com/thisisjab/rulezilla/fault"
	"github.com/thisisjab/rulezilla/rule/ast"
)

func TestCombine(t *testing.T) {
	age := ast.Compare("age", ast.OperatorGt, ast.NumberValue(18))
	score := ast.Compare("score", ast.OperatorGte, ast.NumberValue(90))
	a := ast.Compare("a", ast.OperatorGt, ast.NumberValue(1))
	b := ast.Compare("b", ast.OperatorGt, ast.NumberValue(2))
	c := ast.Compare("c", ast.OperatorGt, ast.NumberValue(3))

	tests := []struct {
		rules    []string
		expected ast.Node
	}{
		{[]string{"age > 18"}, age},
		{[]string{"age > 18", "score >= 90"}, ast.Or(age, score)},
		{[]string{"a>1", "b>2", "c>3"}, ast.Or(ast.Or(a, b), c)},
		{[]string{"a>1 AND b>2", "c>3"}, ast.Or(ast.And(a, b), c)},
	}

	for _, tt := range tests {
		actual, err := Combine(tt.rules)
		if err != nil {
			t.Fatalf("Combine(%q) returned error: %v", tt.rules, err)
		}

		if !ast.Equal(actual, tt.expected) {
			t.Fatalf("Combine(%q)\n%s,\nwant %s", tt.rules, ast.String(actual), ast.String(tt.expected))
		}
	}
}

func TestCombineErrors(t *testing.T) {
	_, err := Combine(nil)
	if !errors.Is(err, ErrEmptyRuleSet) {
		t.Fatalf("Combine(nil) error = %v, want %v", err, ErrEmptyRuleSet)
	}
	if !fault.HasCode(err, fault.BadInputCode) {
		t.Fatalf("Combine(nil) error = %v, want a bad input fault", err)
	}

	_, err = Combine([]string{})
	if !errors.Is(err, ErrEmptyRuleSet) {
		t.Fatalf("Combine([]) error = %v, want %v", err, ErrEmptyRuleSet)
	}

	_, err = Combine([]string{"a > 1", "b ?? 2"})
	if !errors.Is(err, ErrNoOperatorFound) {
		t.Fatalf("Combine with an invalid rule error = %v, want %v", err, ErrNoOperatorFound)
	}

	_, err = CombineNodes(ast.Compare("a", ast.OperatorGt, ast.NumberValue(1)), nil)
	if !errors.Is(err, ErrInvalidNode) {
		t.Fatalf("CombineNodes with a nil tree error = %v, want %v", err, ErrInvalidNode)
	}
}

func TestCombineNodesKeepsInputs(t *testing.T) {
	left := ast.Compare("a", ast.OperatorGt, ast.NumberValue(1))
	right := ast.And(ast.Compare("b", ast.OperatorGt, ast.NumberValue(2)), ast.Compare("c", ast.OperatorGt, ast.NumberValue(3)))

	combined, err := CombineNodes(left, right)
	if err != nil {
		t.Fatalf("CombineNodes returned error: %v", err)
	}

	op, ok := combined.(ast.OperatorNode)
	if !ok || op.Operator != ast.OperatorOr {
		t.Fatalf("CombineNodes = %s, want an OR node", ast.String(combined))
	}
	if !ast.Equal(op.Left, left) || !ast.Equal(op.Right, right) {
		t.Fatalf("CombineNodes = %s, children changed", ast.String(combined))
	}
}
