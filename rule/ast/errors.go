package ast

import "errors"

var (
	// ErrInvalidNode is returned for a node that is neither an operator nor a
	// comparison, or that breaks the shape of its variant.
	ErrInvalidNode = errors.New("invalid node")

	// ErrUnknownOperator is returned for an operator outside the fixed set.
	ErrUnknownOperator = errors.New("unknown operator")
)
