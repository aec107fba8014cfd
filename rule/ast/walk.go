package ast

import (
	"fmt"
	"strings"
)

// Equal reports whether two trees have the same shape, operators, attributes,
// values and optional flags.
func Equal(a, b Node) bool {
	switch a := a.(type) {
	case OperatorNode:
		b, ok := b.(OperatorNode)
		return ok && a.Operator == b.Operator && Equal(a.Left, b.Left) && Equal(a.Right, b.Right)
	case ComparisonNode:
		b, ok := b.(ComparisonNode)
		return ok && a == b
	case nil:
		return b == nil
	default:
		return false
	}
}

// String renders a tree back to rule text. Operator nodes are parenthesized,
// optional comparisons are suffixed with "?".
func String(n Node) string {
	var sb strings.Builder
	writeNode(&sb, n)
	return sb.String()
}

func writeNode(sb *strings.Builder, n Node) {
	switch n := n.(type) {
	case OperatorNode:
		sb.WriteByte('(')
		writeNode(sb, n.Left)
		fmt.Fprintf(sb, " %s ", n.Operator)
		writeNode(sb, n.Right)
		sb.WriteByte(')')
	case ComparisonNode:
		fmt.Fprintf(sb, "%s %s %s", n.Attribute, n.Operator, n.Value)
		if n.IsOptional {
			sb.WriteByte('?')
		}
	default:
		fmt.Fprintf(sb, "<invalid %T>", n)
	}
}

// Attributes returns the distinct attributes referenced by a tree, in the order
// they first appear from left to right.
func Attributes(n Node) []string {
	var attrs []string
	seen := make(map[string]struct{})

	var walk func(Node)
	walk = func(n Node) {
		switch n := n.(type) {
		case OperatorNode:
			walk(n.Left)
			walk(n.Right)
		case ComparisonNode:
			if _, ok := seen[n.Attribute]; !ok {
				seen[n.Attribute] = struct{}{}
				attrs = append(attrs, n.Attribute)
			}
		}
	}
	walk(n)

	return attrs
}
