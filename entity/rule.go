package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/thisisjab/rulezilla/rule/ast"
)

// Rule is a named, persisted rule tree.
type Rule struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	AST         ast.Tree  `json:"ast"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NewRule returns an active rule with a fresh ID and both timestamps set to now.
func NewRule(name, description string, root ast.Node) Rule {
	now := time.Now().UTC()
	return Rule{
		ID:          uuid.New(),
		Name:        name,
		Description: description,
		AST:         ast.Tree{Root: root},
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// RuleSummary is what rule listings return.
type RuleSummary struct {
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (r Rule) Summary() RuleSummary {
	return RuleSummary{
		Name:        r.Name,
		Description: r.Description,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}
