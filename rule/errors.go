package rule

import (
	"errors"

	"github.com/thisisjab/rulezilla/rule/ast"
	"github.com/thisisjab/rulezilla/rule/parser"
)

// ErrEmptyRuleSet is returned when rules are combined from an empty set.
var ErrEmptyRuleSet = errors.New("empty rule set")

// Errors of the other rule packages, so callers only need this one.
var (
	ErrGrammar         = parser.ErrGrammar
	ErrNoOperatorFound = parser.ErrNoOperatorFound
	ErrUnknownOperator = ast.ErrUnknownOperator
	ErrInvalidNode     = ast.ErrInvalidNode
)
