package parser

import (
	"errors"
	"fmt"
	"strings"

	"github.com/thisisjab/rulezilla/fault"
	"github.com/thisisjab/rulezilla/rule/ast"
)

var (
	// ErrGrammar is returned when no valid structure can be found in a rule.
	ErrGrammar = errors.New("grammar error")

	// ErrNoOperatorFound is returned when a comparison contains none of the
	// six comparison symbols.
	ErrNoOperatorFound = errors.New("no comparison operator found")
)

// Parse normalizes text and turns it into a rule tree.
//
// The expression is split at the leftmost AND/OR found outside parentheses;
// there is no precedence between AND and OR. "a>1 AND b>2 OR c>3" is therefore
// AND(a>1, OR(b>2, c>3)). Use parentheses to group differently.
func Parse(text string) (ast.Node, error) {
	normalized := Normalize(text)

	if err := checkBalance(normalized); err != nil {
		return nil, err
	}

	return parseExpression(normalized)
}

// MustParse is like Parse but panics on error. It is meant for tests and
// static rules known to be valid.
func MustParse(text string) ast.Node {
	n, err := Parse(text)
	if err != nil {
		panic(err)
	}
	return n
}

func parseExpression(expr string) (ast.Node, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil, grammarError(expr, "empty expression")
	}

	// Remove outer parentheses if they wrap the whole expression
	if strings.HasPrefix(expr, "(") && strings.HasSuffix(expr, ")") && isWrapped(expr) {
		return parseExpression(expr[1 : len(expr)-1])
	}

	index, op := findMainOperator(expr)
	if index == -1 {
		// This must be a comparison
		leaf, err := ParseComparison(expr)
		if err != nil {
			return nil, err
		}
		return leaf, nil
	}

	leftExpr := strings.TrimSpace(expr[:index])
	rightExpr := strings.TrimSpace(expr[index+len(op):])

	if leftExpr == "" {
		return nil, grammarError(expr, fmt.Sprintf("missing operand before %s", op))
	}
	if rightExpr == "" {
		return nil, grammarError(expr, fmt.Sprintf("missing operand after %s", op))
	}

	left, err := parseExpression(leftExpr)
	if err != nil {
		return nil, err
	}

	right, err := parseExpression(rightExpr)
	if err != nil {
		return nil, err
	}

	return ast.OperatorNode{Operator: op, Left: left, Right: right}, nil
}

// quotedValues marks the bytes of quoted comparison values, quotes included.
// A quote opens a value only right after a comparison symbol and only when
// the same quote closes it later; a lone apostrophe as in O'Brien is plain text.
func quotedValues(expr string) []bool {
	quoted := make([]bool, len(expr))

	for i := 0; i < len(expr); i++ {
		q := expr[i]
		if q != '\'' && q != '"' {
			continue
		}

		prev := strings.TrimRight(expr[:i], " ")
		if prev == "" || !strings.ContainsRune("=<>", rune(prev[len(prev)-1])) {
			continue
		}

		end := strings.IndexByte(expr[i+1:], q)
		if end == -1 {
			continue
		}
		end += i + 1

		for k := i; k <= end; k++ {
			quoted[k] = true
		}
		i = end
	}

	return quoted
}

// isWrapped reports whether the first "(" is closed by the last character.
func isWrapped(expr string) bool {
	quoted := quotedValues(expr)
	depth := 0
	for i := 0; i < len(expr); i++ {
		if quoted[i] {
			continue
		}
		switch expr[i] {
		case '(':
			depth++
		case ')':
			depth--
		}
		if depth == 0 && i < len(expr)-1 {
			return false
		}
	}
	return depth == 0
}

// findMainOperator returns the index of the first AND/OR at depth zero,
// or -1 if there is none.
func findMainOperator(expr string) (int, ast.LogicalOperator) {
	quoted := quotedValues(expr)
	depth := 0
	for i := 0; i < len(expr); i++ {
		if quoted[i] {
			continue
		}
		switch expr[i] {
		case '(':
			depth++
		case ')':
			depth--
		default:
			if depth != 0 {
				continue
			}
			if strings.HasPrefix(expr[i:], string(ast.OperatorAnd)) {
				return i, ast.OperatorAnd
			}
			if strings.HasPrefix(expr[i:], string(ast.OperatorOr)) {
				return i, ast.OperatorOr
			}
		}
	}
	return -1, ""
}

// checkBalance ignores parentheses inside quoted values.
func checkBalance(expr string) error {
	quoted := quotedValues(expr)
	depth := 0
	for i := 0; i < len(expr); i++ {
		if quoted[i] {
			continue
		}
		switch expr[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth < 0 {
				return grammarError(expr, fmt.Sprintf("unexpected ')' at position %d", i))
			}
		}
	}

	if depth != 0 {
		return grammarError(expr, "unclosed '('")
	}

	return nil
}

func grammarError(expr, reason string) error {
	return fault.New(fault.BadInputCode, "invalid rule").
		WithMetadata(map[string]string{"expression": expr}).
		WithOriginal(fmt.Errorf("%w: %s", ErrGrammar, reason))
}
