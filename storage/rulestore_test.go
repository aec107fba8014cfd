package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thisisjab/rulezilla/entity"
	"github.com/thisisjab/rulezilla/fault"
	"github.com/thisisjab/rulezilla/rule/ast"
	"github.com/thisisjab/rulezilla/rule/parser"
)

func newRule(t *testing.T, name, text string, createdAt time.Time) entity.Rule {
	t.Helper()

	root, err := parser.Parse(text)
	require.NoError(t, err)

	r := entity.NewRule(name, "rule "+name, root)
	r.CreatedAt = createdAt
	r.UpdatedAt = createdAt
	return r
}

// ruleStoreSuite runs the same behaviour checks against every backend.
func ruleStoreSuite(t *testing.T, open func(t *testing.T) RuleStore) {
	ctx := context.Background()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	t.Run("create and get", func(t *testing.T) {
		s := open(t)

		r := newRule(t, "adults", "age > 18 AND dept = 'Sales'", base)
		require.NoError(t, s.CreateRule(ctx, r))

		got, err := s.GetRule(ctx, "adults")
		require.NoError(t, err)

		assert.Equal(t, r.ID, got.ID)
		assert.Equal(t, r.Description, got.Description)
		assert.True(t, got.IsActive)
		assert.True(t, r.CreatedAt.Equal(got.CreatedAt))
		assert.True(t, ast.Equal(r.AST.Root, got.AST.Root), "ast = %s", ast.String(got.AST.Root))
	})

	t.Run("duplicate name", func(t *testing.T) {
		s := open(t)

		require.NoError(t, s.CreateRule(ctx, newRule(t, "dup", "a > 1", base)))

		err := s.CreateRule(ctx, newRule(t, "dup", "b > 2", base))
		assert.True(t, fault.HasCode(err, fault.ConflictCode), "error = %v", err)
	})

	t.Run("unknown rule", func(t *testing.T) {
		s := open(t)

		_, err := s.GetRule(ctx, "missing")
		assert.True(t, fault.HasCode(err, fault.NotFoundCode), "error = %v", err)

		err = s.DeactivateRule(ctx, "missing")
		assert.True(t, fault.HasCode(err, fault.NotFoundCode), "error = %v", err)
	})

	t.Run("deactivate", func(t *testing.T) {
		s := open(t)

		require.NoError(t, s.CreateRule(ctx, newRule(t, "gone", "a > 1", base)))
		require.NoError(t, s.DeactivateRule(ctx, "gone"))
		require.NoError(t, s.DeactivateRule(ctx, "gone"))

		_, err := s.GetRule(ctx, "gone")
		assert.True(t, fault.HasCode(err, fault.NotFoundCode), "error = %v", err)

		// Deactivated names stay reserved.
		err = s.CreateRule(ctx, newRule(t, "gone", "a > 1", base))
		assert.True(t, fault.HasCode(err, fault.ConflictCode), "error = %v", err)
	})

	t.Run("find keeps requested order", func(t *testing.T) {
		s := open(t)

		for i, name := range []string{"a", "b", "c"} {
			require.NoError(t, s.CreateRule(ctx, newRule(t, name, name+" > 1", base.Add(time.Duration(i)*time.Hour))))
		}

		rules, err := s.FindRules(ctx, []string{"c", "a"})
		require.NoError(t, err)
		require.Len(t, rules, 2)
		assert.Equal(t, "c", rules[0].Name)
		assert.Equal(t, "a", rules[1].Name)

		require.NoError(t, s.DeactivateRule(ctx, "b"))

		_, err = s.FindRules(ctx, []string{"a", "b", "x"})
		require.True(t, fault.HasCode(err, fault.NotFoundCode), "error = %v", err)

		var f fault.Fault
		require.ErrorAs(t, err, &f)
		assert.Equal(t, map[string][]string{"missing": {"b", "x"}}, f.Metadata())
	})

	t.Run("list", func(t *testing.T) {
		s := open(t)

		require.NoError(t, s.CreateRule(ctx, newRule(t, "beta", "a > 1", base.Add(2*time.Hour))))
		require.NoError(t, s.CreateRule(ctx, newRule(t, "alpha", "a > 1", base.Add(3*time.Hour))))
		require.NoError(t, s.CreateRule(ctx, newRule(t, "gamma", "a > 1", base.Add(1*time.Hour))))
		require.NoError(t, s.CreateRule(ctx, newRule(t, "delta", "a > 1", base)))
		require.NoError(t, s.DeactivateRule(ctx, "delta"))

		names := func(rules []entity.Rule) []string {
			var out []string
			for _, r := range rules {
				out = append(out, r.Name)
			}
			return out
		}

		rules, err := s.ListRules(ctx, ListQuery{})
		require.NoError(t, err)
		assert.Equal(t, []string{"alpha", "beta", "gamma"}, names(rules))

		rules, err = s.ListRules(ctx, ListQuery{Sort: ParseSort("-created_at"), Limit: 2})
		require.NoError(t, err)
		assert.Equal(t, []string{"alpha", "beta"}, names(rules))

		rules, err = s.ListRules(ctx, ListQuery{Sort: ParseSort("created_at")})
		require.NoError(t, err)
		assert.Equal(t, []string{"gamma", "beta", "alpha"}, names(rules))

		_, err = s.ListRules(ctx, ListQuery{Sort: ParseSort("ast")})
		assert.True(t, fault.HasCode(err, fault.BadInputCode), "error = %v", err)

		_, err = s.ListRules(ctx, ListQuery{Limit: MaxListLimit + 1})
		assert.True(t, fault.HasCode(err, fault.BadInputCode), "error = %v", err)
	})

	t.Run("invalid rule", func(t *testing.T) {
		s := open(t)

		err := s.CreateRule(ctx, entity.Rule{Name: "empty"})
		assert.True(t, fault.HasCode(err, fault.BadInputCode), "error = %v", err)
	})
}

func TestMemoryRuleStore(t *testing.T) {
	ruleStoreSuite(t, func(t *testing.T) RuleStore {
		return NewMemoryRuleStore()
	})
}

func TestSQLiteRuleStore(t *testing.T) {
	ruleStoreSuite(t, func(t *testing.T) RuleStore {
		s, err := NewSQLiteRuleStore(context.Background(), SQLiteRuleStoreConfig{
			Path:   filepath.Join(t.TempDir(), "rules.db"),
			Driver: SQLiteDriverPure,
		})
		require.NoError(t, err)

		t.Cleanup(func() { s.Close() })
		return s
	})
}

func TestSQLiteRuleStoreConfig(t *testing.T) {
	_, err := NewSQLiteRuleStore(context.Background(), SQLiteRuleStoreConfig{})
	assert.Error(t, err)

	_, err = NewSQLiteRuleStore(context.Background(), SQLiteRuleStoreConfig{Path: "x.db", Driver: "bolt"})
	assert.ErrorContains(t, err, "unknown sqlite driver")
}

func TestMemoryVerdictStorage(t *testing.T) {
	s := NewMemoryVerdictStorage()

	require.NoError(t, s.StoreVerdicts(context.Background(), entity.Verdict{RuleName: "a"}, entity.Verdict{RuleName: "b"}))

	verdicts := s.Verdicts()
	require.Len(t, verdicts, 2)
	assert.Equal(t, "b", verdicts[1].RuleName)
}
