package rule

import (
	"fmt"

	"github.com/thisisjab/rulezilla/fault"
	"github.com/thisisjab/rulezilla/rule/ast"
	"github.com/thisisjab/rulezilla/rule/parser"
)

// Combine parses every rule text and folds the trees into one with OR,
// preserving input order: Combine([a, b, c]) is OR(OR(a, b), c).
// A single rule is returned unchanged.
func Combine(texts []string) (ast.Node, error) {
	if len(texts) == 0 {
		return nil, emptyRuleSetError()
	}

	nodes := make([]ast.Node, 0, len(texts))
	for _, text := range texts {
		n, err := parser.Parse(text)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}

	return CombineNodes(nodes...)
}

// CombineNodes folds already parsed trees with OR, left to right.
func CombineNodes(nodes ...ast.Node) (ast.Node, error) {
	if len(nodes) == 0 {
		return nil, emptyRuleSetError()
	}

	for i, n := range nodes {
		if n == nil {
			return nil, fmt.Errorf("%w: rule at index %d is nil", ErrInvalidNode, i)
		}
	}

	combined := nodes[0]
	for _, n := range nodes[1:] {
		combined = ast.Or(combined, n)
	}

	return combined, nil
}

func emptyRuleSetError() error {
	return fault.New(fault.BadInputCode, "no rules provided").WithOriginal(ErrEmptyRuleSet)
}
