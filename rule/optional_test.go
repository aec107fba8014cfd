package rule

import (
	"testing"

	"github.com/thisisjab/rulezilla/rule/ast"
	"github.com/thisisjab/rulezilla/rule/parser"
)

func TestMarkOptional(t *testing.T) {
	original := parser.MustParse("age > 18")

	marked := MarkOptional(original, "age").(ast.ComparisonNode)
	if !marked.IsOptional {
		t.Fatalf("MarkOptional(%s, age) did not mark the comparison", ast.String(original))
	}

	untouched := MarkOptional(original, "score").(ast.ComparisonNode)
	if untouched.IsOptional {
		t.Fatalf("MarkOptional(%s, score) marked an unrelated comparison", ast.String(original))
	}

	if original.(ast.ComparisonNode).IsOptional {
		t.Fatalf("MarkOptional modified its input")
	}
}

func TestMarkOptionalTree(t *testing.T) {
	original := parser.MustParse("(age > 18 AND score >= 90) OR (age < 10 AND dept = 'x')")
	snapshot := parser.MustParse("(age > 18 AND score >= 90) OR (age < 10 AND dept = 'x')")

	marked := MarkOptional(original, "age")

	optional := func(attr string, op ast.ComparisonOperator, v ast.Value) ast.ComparisonNode {
		return ast.ComparisonNode{Operator: op, Attribute: attr, Value: v, IsOptional: true}
	}

	expected := ast.Or(
		ast.And(optional("age", ast.OperatorGt, ast.NumberValue(18)), ast.Compare("score", ast.OperatorGte, ast.NumberValue(90))),
		ast.And(optional("age", ast.OperatorLt, ast.NumberValue(10)), ast.Compare("dept", ast.OperatorEq, ast.TextValue("x"))),
	)

	if !ast.Equal(marked, expected) {
		t.Fatalf("MarkOptional =\n%s,\nwant %s", ast.String(marked), ast.String(expected))
	}

	if !ast.Equal(original, snapshot) {
		t.Fatalf("MarkOptional modified its input: %s", ast.String(original))
	}

	result, err := Evaluate(marked, map[string]any{"score": 95})
	if err != nil {
		t.Fatalf("Evaluate returned error: %v", err)
	}
	if !result {
		t.Fatalf("Evaluate(%s) with missing optional age = false, want true", ast.String(marked))
	}

	result, err = Evaluate(original, map[string]any{"score": 95})
	if err != nil {
		t.Fatalf("Evaluate returned error: %v", err)
	}
	if result {
		t.Fatalf("Evaluate(%s) with missing strict age = true, want false", ast.String(original))
	}
}

func TestMarkOptionalAll(t *testing.T) {
	tree := MarkOptionalAll(parser.MustParse("a > 1 AND b > 2 AND c > 3"), "a", "c")

	expected := map[string]bool{"a": true, "b": false, "c": true}

	var walk func(ast.Node)
	walk = func(n ast.Node) {
		switch n := n.(type) {
		case ast.OperatorNode:
			walk(n.Left)
			walk(n.Right)
		case ast.ComparisonNode:
			if n.IsOptional != expected[n.Attribute] {
				t.Fatalf("%s optional = %v, want %v", n.Attribute, n.IsOptional, expected[n.Attribute])
			}
		}
	}
	walk(tree)

	if MarkOptional(nil, "a") != nil {
		t.Fatalf("MarkOptional(nil) should return nil")
	}
}

func TestEngine(t *testing.T) {
	e := NewEngine(nil)

	tree, err := e.CreateRule("age > 18")
	if err != nil {
		t.Fatalf("CreateRule returned error: %v", err)
	}

	ok, err := e.EvaluateRule(tree, map[string]any{})
	if err != nil || ok {
		t.Fatalf("EvaluateRule on empty record = %v, %v; want false, nil", ok, err)
	}

	ok, err = e.EvaluateRule(e.MarkAttributeOptional(tree, "age"), map[string]any{})
	if err != nil || !ok {
		t.Fatalf("EvaluateRule on empty record after marking = %v, %v; want true, nil", ok, err)
	}

	combined, err := e.CombineRules([]string{"age > 18", "score >= 90"})
	if err != nil {
		t.Fatalf("CombineRules returned error: %v", err)
	}

	ok, err = e.EvaluateRule(combined, map[string]any{"age": 10, "score": 95})
	if err != nil || !ok {
		t.Fatalf("EvaluateRule on combined rule = %v, %v; want true, nil", ok, err)
	}
}
