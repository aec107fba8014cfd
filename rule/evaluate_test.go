package rule

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/thisisjab/rulezilla/rule/ast"
	"github.com/thisisjab/rulezilla/rule/parser"
)

func TestEvaluateComparison(t *testing.T) {
	ageOver18 := ast.Compare("age", ast.OperatorGt, ast.NumberValue(18))

	tests := []struct {
		name     string
		node     ast.Node
		record   map[string]any
		expected bool
	}{
		{"greater than", ageOver18, map[string]any{"age": 20}, true},
		{"not greater than", ageOver18, map[string]any{"age": 18}, false},
		{"float record value", ageOver18, map[string]any{"age": 18.5}, true},
		{"json number", ageOver18, map[string]any{"age": json.Number("19")}, true},
		{"missing attribute", ageOver18, map[string]any{}, false},
		{"nil record", ageOver18, nil, false},
		{"nil attribute", ageOver18, map[string]any{"age": nil}, false},
		{"missing optional attribute", MarkOptional(ageOver18, "age"), map[string]any{}, true},
		{"nil optional attribute", MarkOptional(ageOver18, "age"), map[string]any{"age": nil}, true},
		{"present optional attribute", MarkOptional(ageOver18, "age"), map[string]any{"age": 10}, false},
		{"string against number", ageOver18, map[string]any{"age": "20"}, false},
		{"bool against number", ageOver18, map[string]any{"age": true}, false},

		{"gte equal", ast.Compare("score", ast.OperatorGte, ast.NumberValue(90)), map[string]any{"score": 90}, true},
		{"lte equal", ast.Compare("score", ast.OperatorLte, ast.NumberValue(90)), map[string]any{"score": int64(90)}, true},
		{"lt", ast.Compare("score", ast.OperatorLt, ast.NumberValue(90)), map[string]any{"score": uint8(89)}, true},

		{"text equal", ast.Compare("dept", ast.OperatorEq, ast.TextValue("Sales")), map[string]any{"dept": "Sales"}, true},
		{"text equal is case sensitive", ast.Compare("dept", ast.OperatorEq, ast.TextValue("Sales")), map[string]any{"dept": "sales"}, false},
		{"text not equal", ast.Compare("dept", ast.OperatorNe, ast.TextValue("Sales")), map[string]any{"dept": "Marketing"}, true},
		{"number equal", ast.Compare("age", ast.OperatorEq, ast.NumberValue(18)), map[string]any{"age": 18}, true},
		{"no coercion on equal", ast.Compare("age", ast.OperatorEq, ast.NumberValue(18)), map[string]any{"age": "18"}, false},
		{"no coercion on not equal", ast.Compare("age", ast.OperatorNe, ast.NumberValue(18)), map[string]any{"age": "18"}, true},
		{"bool never equals", ast.Compare("active", ast.OperatorEq, ast.TextValue("true")), map[string]any{"active": true}, false},

		{"text ordering", ast.Compare("name", ast.OperatorGt, ast.TextValue("alice")), map[string]any{"name": "bob"}, true},
		{"number against text", ast.Compare("name", ast.OperatorGt, ast.TextValue("alice")), map[string]any{"name": 5}, false},
		{"slice cannot be ordered", ast.Compare("tags", ast.OperatorLt, ast.NumberValue(3)), map[string]any{"tags": []any{1, 2}}, false},
	}

	for _, tt := range tests {
		actual, err := Evaluate(tt.node, tt.record)
		if err != nil {
			t.Fatalf("%s: Evaluate(%s) returned error: %v", tt.name, ast.String(tt.node), err)
		}

		if actual != tt.expected {
			t.Fatalf("%s: Evaluate(%s, %v) = %v, want %v", tt.name, ast.String(tt.node), tt.record, actual, tt.expected)
		}
	}
}

func TestEvaluateLogical(t *testing.T) {
	tree := parser.MustParse("age > 18 AND score >= 90")

	tests := []struct {
		record   map[string]any
		expected bool
	}{
		{map[string]any{"age": 20, "score": 95}, true},
		{map[string]any{"age": 20, "score": 80}, false},
		{map[string]any{"age": 10, "score": 95}, false},
		{map[string]any{"age": 20}, false},
	}

	for _, tt := range tests {
		actual, err := Evaluate(tree, tt.record)
		if err != nil {
			t.Fatalf("Evaluate(%s, %v) returned error: %v", ast.String(tree), tt.record, err)
		}
		if actual != tt.expected {
			t.Fatalf("Evaluate(%s, %v) = %v, want %v", ast.String(tree), tt.record, actual, tt.expected)
		}
	}

	or := ast.Or(
		ast.Compare("age", ast.OperatorGt, ast.NumberValue(18)),
		ast.Compare("score", ast.OperatorGte, ast.NumberValue(90)),
	)

	orTests := []struct {
		record   map[string]any
		expected bool
	}{
		{map[string]any{"age": 20, "score": 10}, true},
		{map[string]any{"age": 10, "score": 95}, true},
		{map[string]any{"age": 10, "score": 10}, false},
		{map[string]any{}, false},
	}

	for _, tt := range orTests {
		actual, err := Evaluate(or, tt.record)
		if err != nil {
			t.Fatalf("Evaluate(%s, %v) returned error: %v", ast.String(or), tt.record, err)
		}
		if actual != tt.expected {
			t.Fatalf("Evaluate(%s, %v) = %v, want %v", ast.String(or), tt.record, actual, tt.expected)
		}
	}
}

func TestEvaluateComplexRule(t *testing.T) {
	tree := parser.MustParse("((age > 30 AND department = 'Sales') OR (age < 25 AND department = 'Marketing')) AND (salary > 50000 OR experience > 5)")

	tests := []struct {
		record   map[string]any
		expected bool
	}{
		{map[string]any{"age": 35, "department": "Sales", "salary": 60000, "experience": 3}, true},
		{map[string]any{"age": 22, "department": "Marketing", "salary": 20000, "experience": 6}, true},
		{map[string]any{"age": 22, "department": "Sales", "salary": 60000, "experience": 6}, false},
		{map[string]any{"age": 35, "department": "Sales", "salary": 20000, "experience": 1}, false},
	}

	for _, tt := range tests {
		actual, err := Evaluate(tree, tt.record)
		if err != nil {
			t.Fatalf("Evaluate(%v) returned error: %v", tt.record, err)
		}
		if actual != tt.expected {
			t.Fatalf("Evaluate(%s, %v) = %v, want %v", ast.String(tree), tt.record, actual, tt.expected)
		}
	}
}

func TestEvaluateErrors(t *testing.T) {
	valid := ast.Compare("age", ast.OperatorGt, ast.NumberValue(18))

	tests := []struct {
		name     string
		node     ast.Node
		expected error
	}{
		{"nil node", nil, ErrInvalidNode},
		{"pointer node", &valid, ErrInvalidNode},
		{"unknown comparison operator", ast.Compare("age", "~", ast.NumberValue(18)), ErrUnknownOperator},
		{"unknown logical operator", ast.OperatorNode{Operator: "XOR", Left: valid, Right: valid}, ErrUnknownOperator},
		{"error in right branch of a true OR", ast.Or(valid, nil), ErrInvalidNode},
		{"error in left branch of a false AND", ast.And(ast.Compare("age", "~", ast.NumberValue(1)), ast.Compare("x", ast.OperatorEq, ast.NumberValue(1))), ErrUnknownOperator},
		{"unknown operator on a missing attribute", ast.Compare("missing", "~", ast.NumberValue(18)), ErrUnknownOperator},
	}

	record := map[string]any{"age": 20}

	for _, tt := range tests {
		_, err := Evaluate(tt.node, record)
		if !errors.Is(err, tt.expected) {
			t.Fatalf("%s: Evaluate error = %v, want %v", tt.name, err, tt.expected)
		}
	}
}

func TestParsedRulesEvaluateWithoutStructuralErrors(t *testing.T) {
	rules := []string{
		"a > 1",
		"a > 1 AND b < 2 OR c = 'x'",
		"(a >= 1 OR b <= 2) AND (c != 3 OR d = '')",
	}

	for _, text := range rules {
		tree := parser.MustParse(text)
		if _, err := Evaluate(tree, map[string]any{"a": 1, "c": "x"}); err != nil {
			t.Fatalf("Evaluate(%q) returned error: %v", text, err)
		}
	}
}

func TestEvaluateConcurrently(t *testing.T) {
	tree := parser.MustParse("age > 18 AND (score >= 90 OR vip = 'yes')")

	var wg sync.WaitGroup
	errs := make(chan error, 64)

	for i := range 64 {
		wg.Go(func() {
			record := map[string]any{"age": 19 + i%3, "score": 80 + i%20}
			expected := record["score"].(int) >= 90

			actual, err := Evaluate(tree, record)
			if err != nil {
				errs <- err
				return
			}
			if actual != expected {
				errs <- errors.New("unexpected result for concurrent evaluation")
			}
		})
	}

	wg.Wait()
	close(errs)

	for err := range errs {
		t.Fatal(err)
	}
}
