package engine

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"

	"github.com/robfig/cron/v3"
	"github.com/thisisjab/rulezilla/entity"
	"github.com/thisisjab/rulezilla/rule/ast"
	"github.com/thisisjab/rulezilla/storage"
)

// RuleProvider is the part of a rule store the engine reads from.
type RuleProvider interface {
	FindRules(ctx context.Context, names []string) ([]entity.Rule, error)
	ListRules(ctx context.Context, q storage.ListQuery) ([]entity.Rule, error)
}

type loadedRule struct {
	name string
	root ast.Node
}

// ruleSet holds the rules workers evaluate. Trees are immutable, so a refresh
// only swaps the slice pointer and in-flight evaluations finish on the old set.
type ruleSet struct {
	provider RuleProvider
	// names selects rules by name. Empty means every active rule.
	names   []string
	logger  *slog.Logger
	current atomic.Pointer[[]loadedRule]
}

func newRuleSet(logger *slog.Logger, provider RuleProvider, names []string) *ruleSet {
	rs := &ruleSet{provider: provider, names: names, logger: logger}
	rs.current.Store(&[]loadedRule{})
	return rs
}

func (rs *ruleSet) load() []loadedRule {
	return *rs.current.Load()
}

func (rs *ruleSet) refresh(ctx context.Context) error {
	var (
		rules []entity.Rule
		err   error
	)

	if len(rs.names) > 0 {
		rules, err = rs.provider.FindRules(ctx, rs.names)
	} else {
		rules, err = rs.provider.ListRules(ctx, storage.ListQuery{Limit: storage.MaxListLimit})
	}
	if err != nil {
		return err
	}

	if len(rules) == 0 {
		return errors.New("no active rules to evaluate")
	}

	loaded := make([]loadedRule, 0, len(rules))
	for _, r := range rules {
		loaded = append(loaded, loadedRule{name: r.Name, root: r.AST.Root})
	}

	rs.current.Store(&loaded)
	rs.logger.Info("loaded rules.", "count", len(loaded))

	return nil
}

// schedule refreshes the set on the cron spec until the returned stop function is called.
// A failed refresh keeps the previous set.
func (rs *ruleSet) schedule(ctx context.Context, spec string) (func(), error) {
	c := cron.New()

	_, err := c.AddFunc(spec, func() {
		if err := rs.refresh(ctx); err != nil {
			rs.logger.Error("failed to refresh rules, keeping previous set.", "error", err)
		}
	})
	if err != nil {
		return nil, err
	}

	c.Start()

	return func() { <-c.Stop().Done() }, nil
}
