package ast

import (
	"slices"
	"testing"
)

func TestEqual(t *testing.T) {
	a := Compare("a", OperatorGt, NumberValue(1))
	b := Compare("b", OperatorEq, TextValue("x"))

	if !Equal(And(a, b), And(a, b)) {
		t.Fatalf("identical trees are not equal")
	}

	notEqual := map[string][2]Node{
		"operator": {And(a, b), Or(a, b)},
		"children": {And(a, b), And(b, a)},
		"kind":     {a, Compare("a", OperatorGt, TextValue("1"))},
		"optional": {a, ComparisonNode{Operator: OperatorGt, Attribute: "a", Value: NumberValue(1), IsOptional: true}},
		"variant":  {a, And(a, a)},
		"nil":      {a, nil},
	}

	for name, pair := range notEqual {
		if Equal(pair[0], pair[1]) {
			t.Fatalf("%s: %s and %s should differ", name, String(pair[0]), String(pair[1]))
		}
	}
}

func TestString(t *testing.T) {
	tests := map[string]Node{
		`age > 18`:                  Compare("age", OperatorGt, NumberValue(18)),
		`(age > 18 AND dept = "x")`: And(Compare("age", OperatorGt, NumberValue(18)), Compare("dept", OperatorEq, TextValue("x"))),
		`((a > 1 OR b < 2.5) OR c != "")`: Or(
			Or(Compare("a", OperatorGt, NumberValue(1)), Compare("b", OperatorLt, NumberValue(2.5))),
			Compare("c", OperatorNe, TextValue("")),
		),
		`age >= 18?`: ComparisonNode{Operator: OperatorGte, Attribute: "age", Value: NumberValue(18), IsOptional: true},
	}

	for expected, n := range tests {
		if actual := String(n); actual != expected {
			t.Fatalf("String() = %q, want %q", actual, expected)
		}
	}
}

func TestAttributes(t *testing.T) {
	tree := Or(
		And(Compare("age", OperatorGt, NumberValue(18)), Compare("dept", OperatorEq, TextValue("Sales"))),
		And(Compare("age", OperatorLt, NumberValue(65)), Compare("salary", OperatorGte, NumberValue(50000))),
	)

	expected := []string{"age", "dept", "salary"}
	if actual := Attributes(tree); !slices.Equal(actual, expected) {
		t.Fatalf("Attributes() = %v, want %v", actual, expected)
	}
}

func TestParseValue(t *testing.T) {
	numbers := map[string]float64{
		"18":    18,
		"-3":    -3,
		"0.5":   0.5,
		"1e3":   1000,
		"00012": 12,
		"+5":    5,
		"5.":    5,
		".25":   0.25,
		"2E-2":  0.02,
	}
	for input, expected := range numbers {
		v := ParseValue(input)
		if !v.IsNumber() || v.Number() != expected {
			t.Fatalf("ParseValue(%q) = %v, want number %v", input, v, expected)
		}
	}

	texts := []string{"", "Sales", "18 years", "NaN", "Inf", "1,000", " ", "0x1p3", "0x10", "1_000", "1e999", ".", "-"}
	for _, input := range texts {
		v := ParseValue(input)
		if v.IsNumber() || v.Text() != input {
			t.Fatalf("ParseValue(%q) = %v, want text", input, v)
		}
	}
}
