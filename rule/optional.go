package rule

import "github.com/thisisjab/rulezilla/rule/ast"

// MarkOptional returns a new tree in which every comparison on attribute is
// optional. The input tree is left untouched.
func MarkOptional(node ast.Node, attribute string) ast.Node {
	switch n := node.(type) {
	case ast.ComparisonNode:
		return ast.ComparisonNode{
			Operator:   n.Operator,
			Attribute:  n.Attribute,
			Value:      n.Value,
			IsOptional: n.IsOptional || n.Attribute == attribute,
		}
	case ast.OperatorNode:
		return ast.OperatorNode{
			Operator: n.Operator,
			Left:     MarkOptional(n.Left, attribute),
			Right:    MarkOptional(n.Right, attribute),
		}
	default:
		return node
	}
}

// MarkOptionalAll applies MarkOptional for each attribute in order.
func MarkOptionalAll(node ast.Node, attributes ...string) ast.Node {
	for _, attr := range attributes {
		node = MarkOptional(node, attr)
	}
	return node
}
