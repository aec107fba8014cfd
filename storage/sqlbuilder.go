package storage

import (
	"fmt"
	"slices"
	"strings"

	"github.com/thisisjab/rulezilla/fault"
)

// ListQuery defines the parameters for listing rules.
type ListQuery struct {
	// Sort defines the order of the results. If multiple fields are provided,
	// they are applied in the order they appear in the slice.
	Sort []SortField `json:"sort_fields"`

	// Limit specifies the maximum number of rules to return.
	// Zero means DefaultListLimit.
	Limit int `json:"limit"`
}

// SortField defines a single sorting criterion.
type SortField struct {
	// Name is the field to sort by (e.g., "name", "created_at").
	Name string `json:"name"`
	// IsDescending specifies if the sort should be in reverse order.
	IsDescending bool `json:"is_descending"`
}

const (
	DefaultListLimit = 100
	MaxListLimit     = 1000
)

var defaultSortFields = []string{"name", "created_at", "updated_at"}

// ParseSort parses a comma separated list of fields. A leading "-" sorts the
// field in descending order: "-created_at,name".
func ParseSort(s string) []SortField {
	var fields []SortField
	for part := range strings.SplitSeq(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		desc := strings.HasPrefix(part, "-")
		fields = append(fields, SortField{Name: strings.TrimPrefix(part, "-"), IsDescending: desc})
	}
	return fields
}

func (q ListQuery) Validate() error {
	if q.Limit > MaxListLimit {
		return fault.New(fault.BadInputCode, "").WithMetadata(fault.FieldErrorsMetadata{"limit": []string{fmt.Sprintf("Values larger than %d are not supported.", MaxListLimit)}})
	}

	if q.Limit < 0 {
		return fault.New(fault.BadInputCode, "").WithMetadata(fault.FieldErrorsMetadata{"limit": []string{"Negative values are not supported."}})
	}

	for _, f := range q.Sort {
		if !slices.Contains(defaultSortFields, f.Name) {
			return fault.New(fault.BadInputCode, "").WithMetadata(fault.FieldErrorsMetadata{"sort": []string{fmt.Sprintf("Field `%s` is not allowed for sorting.", f.Name)}})
		}
	}

	return nil
}

func (q ListQuery) limit() int {
	if q.Limit == 0 {
		return DefaultListLimit
	}
	return q.Limit
}

// PlaceholderFormat selects how query arguments are referenced.
type PlaceholderFormat uint8

const (
	// PlaceholderQuestion uses "?" (sqlite, clickhouse).
	PlaceholderQuestion PlaceholderFormat = iota
	// PlaceholderDollar uses "$1", "$2", ... (postgres).
	PlaceholderDollar
)

// SQLOptions holds configuration for the rule query builder.
type SQLOptions struct {
	// AllowedSortFields is a whitelist of column names permitted in ORDER BY clauses.
	// This prevents SQL injection through malicious sort parameters.
	// If empty, defaults to ["name", "created_at", "updated_at"].
	AllowedSortFields []string

	// TableName is the name of the table to query from.
	TableName string

	// SelectColumns is the list of columns to SELECT.
	// If empty, defaults to SELECT *.
	SelectColumns []string

	Placeholder PlaceholderFormat
}

// RuleQueryBuilder constructs the SELECT queries rule stores run.
type RuleQueryBuilder struct {
	opts SQLOptions
}

// NewRuleQueryBuilder creates a new query builder with the given options.
func NewRuleQueryBuilder(opts SQLOptions) *RuleQueryBuilder {
	return &RuleQueryBuilder{opts: opts}
}

// BuildResult holds the generated SQL query and its arguments.
type BuildResult struct {
	Query string
	Args  []any
}

// BuildList builds a query listing active rules.
func (b *RuleQueryBuilder) BuildList(q ListQuery) (BuildResult, error) {
	orderByClause, err := b.buildOrderByClause(q.Sort)
	if err != nil {
		return BuildResult{}, fmt.Errorf("failed to build order by clause: %w", err)
	}

	args := []any{true}
	sqlQuery := fmt.Sprintf(
		"SELECT %s FROM %s WHERE is_active = %s %s LIMIT %d",
		b.selectColumns(),
		b.opts.TableName,
		b.placeholder(1),
		orderByClause,
		q.limit(),
	)

	return BuildResult{Query: sqlQuery, Args: args}, nil
}

// BuildFind builds a query returning the active rules among names.
func (b *RuleQueryBuilder) BuildFind(names []string) BuildResult {
	args := make([]any, 0, len(names)+1)
	args = append(args, true)

	placeholders := make([]string, len(names))
	for i, name := range names {
		args = append(args, name)
		placeholders[i] = b.placeholder(i + 2)
	}

	sqlQuery := fmt.Sprintf(
		"SELECT %s FROM %s WHERE is_active = %s AND name IN (%s)",
		b.selectColumns(),
		b.opts.TableName,
		b.placeholder(1),
		strings.Join(placeholders, ", "),
	)

	return BuildResult{Query: sqlQuery, Args: args}
}

// BuildGet builds a query returning the active rule with the given name.
func (b *RuleQueryBuilder) BuildGet(name string) BuildResult {
	return BuildResult{
		Query: fmt.Sprintf(
			"SELECT %s FROM %s WHERE name = %s AND is_active = %s",
			b.selectColumns(),
			b.opts.TableName,
			b.placeholder(1),
			b.placeholder(2),
		),
		Args: []any{name, true},
	}
}

func (b *RuleQueryBuilder) selectColumns() string {
	if len(b.opts.SelectColumns) == 0 {
		return "*"
	}
	return strings.Join(b.opts.SelectColumns, ", ")
}

func (b *RuleQueryBuilder) placeholder(n int) string {
	if b.opts.Placeholder == PlaceholderDollar {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

// buildOrderByClause validates sort fields against the whitelist. Rules are
// ordered by name when nothing else is requested, and name is always the
// final tie breaker.
func (b *RuleQueryBuilder) buildOrderByClause(sortFields []SortField) (string, error) {
	allowedFields := b.opts.AllowedSortFields
	if len(allowedFields) == 0 {
		allowedFields = defaultSortFields
	}

	if len(sortFields) == 0 {
		return "ORDER BY name ASC", nil
	}

	var parts []string
	for _, field := range sortFields {
		if !slices.Contains(allowedFields, field.Name) {
			return "", fmt.Errorf("field `%s` is not allowed for sorting", field.Name)
		}

		direction := "ASC"
		if field.IsDescending {
			direction = "DESC"
		}

		parts = append(parts, fmt.Sprintf("%s %s", field.Name, direction))
	}

	hasName := slices.ContainsFunc(sortFields, func(f SortField) bool {
		return f.Name == "name"
	})

	if !hasName {
		parts = append(parts, "name ASC")
	}

	return fmt.Sprintf("ORDER BY %s", strings.Join(parts, ", ")), nil
}
