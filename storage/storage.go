// Package storage persists named rules and evaluation verdicts.
package storage

import (
	"context"
	"fmt"

	"github.com/thisisjab/rulezilla/entity"
	"github.com/thisisjab/rulezilla/fault"
)

// RuleStore persists named rules. Names are unique across active and
// deactivated rules. Only active rules are returned by lookups.
type RuleStore interface {
	// CreateRule stores a new rule. It returns a conflict fault when the name is taken.
	CreateRule(ctx context.Context, rule entity.Rule) error

	// GetRule returns the active rule with the given name.
	GetRule(ctx context.Context, name string) (entity.Rule, error)

	// FindRules returns the active rules with the given names in the requested order.
	// It returns a not found fault listing the missing names if any is unknown or inactive.
	FindRules(ctx context.Context, names []string) ([]entity.Rule, error)

	// ListRules returns active rules.
	ListRules(ctx context.Context, q ListQuery) ([]entity.Rule, error)

	// DeactivateRule soft deletes a rule. Deactivating an inactive rule is not an error.
	DeactivateRule(ctx context.Context, name string) error

	Close() error
}

func ruleNotFound(name string) error {
	return fault.New(fault.NotFoundCode, "Rule not found.").WithMetadata(map[string]string{"name": name})
}

func rulesNotFound(names []string) error {
	return fault.New(fault.NotFoundCode, "One or more rules not found.").WithMetadata(map[string][]string{"missing": names})
}

func ruleExists(name string) error {
	return fault.New(fault.ConflictCode, "Rule with this name already exists.").WithMetadata(map[string]string{"name": name})
}

// orderByNames arranges rules in the order of names and reports missing names.
func orderByNames(rules []entity.Rule, names []string) ([]entity.Rule, error) {
	byName := make(map[string]entity.Rule, len(rules))
	for _, r := range rules {
		byName[r.Name] = r
	}

	ordered := make([]entity.Rule, 0, len(names))
	var missing []string
	for _, name := range names {
		r, ok := byName[name]
		if !ok {
			missing = append(missing, name)
			continue
		}
		ordered = append(ordered, r)
	}

	if len(missing) > 0 {
		return nil, rulesNotFound(missing)
	}

	return ordered, nil
}

func validateRule(rule entity.Rule) error {
	if rule.Name == "" {
		return fault.New(fault.BadInputCode, "").WithMetadata(fault.FieldErrorsMetadata{"name": []string{"Field is required."}})
	}
	if rule.AST.Root == nil {
		return fault.New(fault.BadInputCode, "").WithMetadata(fault.FieldErrorsMetadata{"ast": []string{"Field is required."}})
	}
	return nil
}

func wrapStorageError(backend, op string, err error) error {
	return fmt.Errorf("%s storage: %s: %w", backend, op, err)
}
