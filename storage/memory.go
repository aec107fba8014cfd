package storage

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"

	"github.com/thisisjab/rulezilla/entity"
)

// MemoryRuleStore keeps rules in a map. It is used by tests and by the
// "memory" rule store type.
type MemoryRuleStore struct {
	mu    sync.RWMutex
	rules map[string]entity.Rule
}

func NewMemoryRuleStore() *MemoryRuleStore {
	return &MemoryRuleStore{rules: make(map[string]entity.Rule)}
}

func (s *MemoryRuleStore) CreateRule(ctx context.Context, rule entity.Rule) error {
	if err := validateRule(rule); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.rules[rule.Name]; ok {
		return ruleExists(rule.Name)
	}

	s.rules[rule.Name] = rule
	return nil
}

func (s *MemoryRuleStore) GetRule(ctx context.Context, name string) (entity.Rule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.rules[name]
	if !ok || !r.IsActive {
		return entity.Rule{}, ruleNotFound(name)
	}

	return r, nil
}

func (s *MemoryRuleStore) FindRules(ctx context.Context, names []string) ([]entity.Rule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var found []entity.Rule
	for _, name := range names {
		if r, ok := s.rules[name]; ok && r.IsActive {
			found = append(found, r)
		}
	}

	return orderByNames(found, names)
}

func (s *MemoryRuleStore) ListRules(ctx context.Context, q ListQuery) ([]entity.Rule, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	rules := make([]entity.Rule, 0, len(s.rules))
	for _, r := range s.rules {
		if r.IsActive {
			rules = append(rules, r)
		}
	}
	s.mu.RUnlock()

	sortFields := append(slices.Clone(q.Sort), SortField{Name: "name"})
	slices.SortFunc(rules, func(a, b entity.Rule) int {
		for _, f := range sortFields {
			c := compareRuleField(a, b, f.Name)
			if f.IsDescending {
				c = -c
			}
			if c != 0 {
				return c
			}
		}
		return 0
	})

	if len(rules) > q.limit() {
		rules = rules[:q.limit()]
	}

	return rules, nil
}

func compareRuleField(a, b entity.Rule, field string) int {
	switch field {
	case "created_at":
		return a.CreatedAt.Compare(b.CreatedAt)
	case "updated_at":
		return a.UpdatedAt.Compare(b.UpdatedAt)
	default:
		return cmp.Compare(a.Name, b.Name)
	}
}

func (s *MemoryRuleStore) DeactivateRule(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.rules[name]
	if !ok {
		return ruleNotFound(name)
	}

	if r.IsActive {
		r.IsActive = false
		r.UpdatedAt = time.Now().UTC()
		s.rules[name] = r
	}

	return nil
}

func (s *MemoryRuleStore) Close() error {
	return nil
}

// MemoryVerdictStorage collects verdicts in memory.
type MemoryVerdictStorage struct {
	mu       sync.Mutex
	verdicts []entity.Verdict
}

func NewMemoryVerdictStorage() *MemoryVerdictStorage {
	return &MemoryVerdictStorage{}
}

func (s *MemoryVerdictStorage) StoreVerdicts(ctx context.Context, verdicts ...entity.Verdict) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.verdicts = append(s.verdicts, verdicts...)
	return nil
}

// Verdicts returns a copy of the stored verdicts.
func (s *MemoryVerdictStorage) Verdicts() []entity.Verdict {
	s.mu.Lock()
	defer s.mu.Unlock()

	return slices.Clone(s.verdicts)
}

func (s *MemoryVerdictStorage) Close(ctx context.Context) error {
	return nil
}
