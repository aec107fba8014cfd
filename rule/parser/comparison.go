package parser

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/thisisjab/rulezilla/fault"
	"github.com/thisisjab/rulezilla/rule/ast"
)

type occurrence struct {
	op    ast.ComparisonOperator
	index int
	rank  int // position in ast.ComparisonOperators
}

// compareOccurrences orders occurrences by index. At the same index the longer
// symbol wins, so ">=" is chosen over the ">" it contains.
func compareOccurrences(a, b occurrence) int {
	if c := cmp.Compare(a.index, b.index); c != 0 {
		return c
	}
	if c := cmp.Compare(len(b.op), len(a.op)); c != 0 {
		return c
	}
	return cmp.Compare(a.rank, b.rank)
}

// ParseComparison turns a single comparison such as "age > 18" into a node.
//
// The leftmost comparison symbol is the operator; the text before it is the
// attribute and the text after it the value. Quotes around the value are
// stripped and the value becomes numeric when the remaining text is a number.
func ParseComparison(text string) (ast.ComparisonNode, error) {
	var found []occurrence
	for rank, op := range ast.ComparisonOperators {
		symbol := string(op)
		for from := 0; from < len(text); {
			i := strings.Index(text[from:], symbol)
			if i == -1 {
				break
			}
			found = append(found, occurrence{op: op, index: from + i, rank: rank})
			from += i + 1
		}
	}

	if len(found) == 0 {
		return ast.ComparisonNode{}, fault.New(fault.BadInputCode, "invalid rule").
			WithMetadata(map[string]string{"expression": text}).
			WithOriginal(fmt.Errorf("%w in %q", ErrNoOperatorFound, text))
	}

	slices.SortStableFunc(found, compareOccurrences)
	first := found[0]

	attribute := strings.TrimSpace(text[:first.index])
	if attribute == "" {
		return ast.ComparisonNode{}, grammarError(text, "comparison without attribute")
	}
	if strings.ContainsAny(attribute, "()") {
		return ast.ComparisonNode{}, grammarError(text, fmt.Sprintf("unexpected parenthesis in attribute %q", attribute))
	}

	valueText := strings.TrimSpace(text[first.index+len(first.op):])
	valueText = strings.Trim(valueText, `'"`)

	return ast.ComparisonNode{
		Operator:   first.op,
		Attribute:  attribute,
		Value:      ast.ParseValue(valueText),
		IsOptional: false,
	}, nil
}
