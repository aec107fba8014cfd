// Package rule evaluates, combines and transforms rule trees built by the
// rule/parser package.
//
// All operations are synchronous and never modify the trees they are given,
// so a tree can be shared between any number of goroutines.
package rule

import (
	"log/slog"

	"github.com/thisisjab/rulezilla/rule/ast"
	"github.com/thisisjab/rulezilla/rule/parser"
)

// Engine exposes the four rule operations used by the api and cmd packages.
// It holds no mutable state.
type Engine struct {
	logger *slog.Logger
}

func NewEngine(logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{logger: logger.With("component", "rule.engine")}
}

// CreateRule parses rule text into a tree.
func (e *Engine) CreateRule(text string) (ast.Node, error) {
	e.logger.Debug("parsing rule", "normalized", parser.Normalize(text))

	n, err := parser.Parse(text)
	if err != nil {
		e.logger.Debug("rule rejected", "rule", text, "error", err)
		return nil, err
	}

	return n, nil
}

// CombineRules parses each text and folds the trees with OR.
func (e *Engine) CombineRules(texts []string) (ast.Node, error) {
	return Combine(texts)
}

// EvaluateRule evaluates a tree against a record.
func (e *Engine) EvaluateRule(n ast.Node, record map[string]any) (bool, error) {
	return Evaluate(n, record)
}

// MarkAttributeOptional returns a copy of the tree with the attribute's
// comparisons marked optional.
func (e *Engine) MarkAttributeOptional(n ast.Node, attribute string) ast.Node {
	return MarkOptional(n, attribute)
}
