package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/thisisjab/rulezilla/entity"
	"github.com/thisisjab/rulezilla/rule/ast"
)

const rulesTable = "rules"

var ruleColumns = []string{"id", "name", "description", "ast", "is_active", "created_at", "updated_at"}

// sqlRuleStore implements RuleStore over database/sql. Timestamps are stored
// as unix nanoseconds so both dialects sort and scan them the same way.
type sqlRuleStore struct {
	db      *sql.DB
	backend string
	builder *RuleQueryBuilder

	// isUniqueViolation reports whether err was caused by the unique name constraint.
	isUniqueViolation func(err error) bool
}

func newSQLRuleStore(db *sql.DB, backend string, placeholder PlaceholderFormat, isUniqueViolation func(error) bool) *sqlRuleStore {
	return &sqlRuleStore{
		db:      db,
		backend: backend,
		builder: NewRuleQueryBuilder(SQLOptions{
			TableName:     rulesTable,
			SelectColumns: ruleColumns,
			Placeholder:   placeholder,
		}),
		isUniqueViolation: isUniqueViolation,
	}
}

func (s *sqlRuleStore) CreateRule(ctx context.Context, rule entity.Rule) error {
	if err := validateRule(rule); err != nil {
		return err
	}

	encoded, err := json.Marshal(rule.AST)
	if err != nil {
		return wrapStorageError(s.backend, "encode rule", err)
	}

	query := fmt.Sprintf(
		"INSERT INTO %s (id, name, description, ast, is_active, created_at, updated_at) VALUES (%s, %s, %s, %s, %s, %s, %s)",
		rulesTable,
		s.builder.placeholder(1), s.builder.placeholder(2), s.builder.placeholder(3), s.builder.placeholder(4),
		s.builder.placeholder(5), s.builder.placeholder(6), s.builder.placeholder(7),
	)

	_, err = s.db.ExecContext(ctx, query,
		rule.ID.String(),
		rule.Name,
		rule.Description,
		string(encoded),
		rule.IsActive,
		rule.CreatedAt.UnixNano(),
		rule.UpdatedAt.UnixNano(),
	)
	if err != nil {
		if s.isUniqueViolation(err) {
			return ruleExists(rule.Name)
		}
		return wrapStorageError(s.backend, "insert rule", err)
	}

	return nil
}

func (s *sqlRuleStore) GetRule(ctx context.Context, name string) (entity.Rule, error) {
	q := s.builder.BuildGet(name)

	rule, err := scanRule(s.db.QueryRowContext(ctx, q.Query, q.Args...))
	if errors.Is(err, sql.ErrNoRows) {
		return entity.Rule{}, ruleNotFound(name)
	}
	if err != nil {
		return entity.Rule{}, wrapStorageError(s.backend, "get rule", err)
	}

	return rule, nil
}

func (s *sqlRuleStore) FindRules(ctx context.Context, names []string) ([]entity.Rule, error) {
	if len(names) == 0 {
		return nil, nil
	}

	q := s.builder.BuildFind(names)

	rules, err := s.queryRules(ctx, q)
	if err != nil {
		return nil, wrapStorageError(s.backend, "find rules", err)
	}

	return orderByNames(rules, names)
}

func (s *sqlRuleStore) ListRules(ctx context.Context, lq ListQuery) ([]entity.Rule, error) {
	if err := lq.Validate(); err != nil {
		return nil, err
	}

	q, err := s.builder.BuildList(lq)
	if err != nil {
		return nil, err
	}

	rules, err := s.queryRules(ctx, q)
	if err != nil {
		return nil, wrapStorageError(s.backend, "list rules", err)
	}

	return rules, nil
}

func (s *sqlRuleStore) DeactivateRule(ctx context.Context, name string) error {
	query := fmt.Sprintf(
		"UPDATE %s SET is_active = %s, updated_at = %s WHERE name = %s AND is_active = %s",
		rulesTable,
		s.builder.placeholder(1), s.builder.placeholder(2), s.builder.placeholder(3), s.builder.placeholder(4),
	)

	res, err := s.db.ExecContext(ctx, query, false, time.Now().UTC().UnixNano(), name, true)
	if err != nil {
		return wrapStorageError(s.backend, "deactivate rule", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return wrapStorageError(s.backend, "deactivate rule", err)
	}
	if affected > 0 {
		return nil
	}

	// Nothing changed: either unknown or already inactive.
	var exists int
	err = s.db.QueryRowContext(ctx,
		fmt.Sprintf("SELECT 1 FROM %s WHERE name = %s", rulesTable, s.builder.placeholder(1)),
		name,
	).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return ruleNotFound(name)
	}
	if err != nil {
		return wrapStorageError(s.backend, "deactivate rule", err)
	}

	return nil
}

func (s *sqlRuleStore) Close() error {
	return s.db.Close()
}

func (s *sqlRuleStore) queryRules(ctx context.Context, q BuildResult) ([]entity.Rule, error) {
	rows, err := s.db.QueryContext(ctx, q.Query, q.Args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rules []entity.Rule
	for rows.Next() {
		r, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		rules = append(rules, r)
	}

	return rules, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRule(row rowScanner) (entity.Rule, error) {
	var (
		id, name, description, encoded string
		isActive                       bool
		createdAt, updatedAt           int64
	)

	if err := row.Scan(&id, &name, &description, &encoded, &isActive, &createdAt, &updatedAt); err != nil {
		return entity.Rule{}, err
	}

	parsedID, err := uuid.Parse(id)
	if err != nil {
		return entity.Rule{}, fmt.Errorf("invalid id of rule %q: %w", name, err)
	}

	var tree ast.Tree
	if err := json.Unmarshal([]byte(encoded), &tree); err != nil {
		return entity.Rule{}, fmt.Errorf("invalid ast of rule %q: %w", name, err)
	}

	return entity.Rule{
		ID:          parsedID,
		Name:        name,
		Description: description,
		AST:         tree,
		IsActive:    isActive,
		CreatedAt:   time.Unix(0, createdAt).UTC(),
		UpdatedAt:   time.Unix(0, updatedAt).UTC(),
	}, nil
}
