package ast

// Node is the interface that all nodes in a rule tree must implement.
// It uses a private marker method to ensure only types defined in this
// package can be used as nodes, creating a controlled "sum type" behavior.
//
// Nodes are values. Once built they are never modified, so a single tree can be
// evaluated by any number of goroutines at the same time.
type Node interface {
	ruleNode()
}

// LogicalOperator joins two sub-rules.
type LogicalOperator string

const (
	OperatorAnd LogicalOperator = "AND"
	OperatorOr  LogicalOperator = "OR"
)

// Valid reports whether o is AND or OR.
func (o LogicalOperator) Valid() bool {
	return o == OperatorAnd || o == OperatorOr
}

// ComparisonOperator defines the comparison performed by a ComparisonNode.
type ComparisonOperator string

const (
	// OperatorGte checks if the attribute is greater than or equal to the value.
	OperatorGte ComparisonOperator = ">="
	// OperatorLte checks if the attribute is less than or equal to the value.
	OperatorLte ComparisonOperator = "<="
	// OperatorNe checks if the attribute is not equal to the value.
	OperatorNe ComparisonOperator = "!="
	// OperatorGt checks if the attribute is strictly greater than the value.
	OperatorGt ComparisonOperator = ">"
	// OperatorLt checks if the attribute is strictly less than the value.
	OperatorLt ComparisonOperator = "<"
	// OperatorEq checks if the attribute is equal to the value.
	OperatorEq ComparisonOperator = "="
)

// ComparisonOperators lists every comparison symbol in its fixed enumeration order.
// Two-character symbols come before the single-character symbols they contain.
var ComparisonOperators = []ComparisonOperator{
	OperatorGte,
	OperatorLte,
	OperatorNe,
	OperatorGt,
	OperatorLt,
	OperatorEq,
}

// Valid reports whether o is one of the six supported comparison symbols.
func (o ComparisonOperator) Valid() bool {
	switch o {
	case OperatorGte, OperatorLte, OperatorNe, OperatorGt, OperatorLt, OperatorEq:
		return true
	default:
		return false
	}
}

// OperatorNode combines two sub-rules with AND or OR.
// Both children are always present.
type OperatorNode struct {
	Operator LogicalOperator
	Left     Node
	Right    Node
}

func (n OperatorNode) ruleNode() {}

// ComparisonNode is a leaf node in the rule tree.
// It tests one named attribute of a record against a literal value.
type ComparisonNode struct {
	// Operator defines the relationship between the attribute and the Value.
	Operator ComparisonOperator

	// Attribute is the record key the comparison reads. It is never empty.
	Attribute string

	// Value is the literal from the rule text with surrounding quotes stripped.
	Value Value

	// IsOptional makes the comparison pass when the attribute is absent
	// from the record (or present but nil).
	IsOptional bool
}

func (n ComparisonNode) ruleNode() {}

// And builds an AND node.
func And(left, right Node) OperatorNode {
	return OperatorNode{Operator: OperatorAnd, Left: left, Right: right}
}

// Or builds an OR node.
func Or(left, right Node) OperatorNode {
	return OperatorNode{Operator: OperatorOr, Left: left, Right: right}
}

// Compare builds a non-optional comparison node.
func Compare(attribute string, op ComparisonOperator, value Value) ComparisonNode {
	return ComparisonNode{Operator: op, Attribute: attribute, Value: value}
}
