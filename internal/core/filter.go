package core

import (
	"fmt"
	"strings"

	"github.com/JonMunkholm/tableroute/internal/schema"
)

// Filter is a predicate with ? placeholders and the values bound to them.
type Filter struct {
	Expr string
	Args []any
}

// IsZero reports whether f selects everything.
func (f Filter) IsZero() bool {
	return strings.TrimSpace(f.Expr) == ""
}

// And conjoins filters, keeping each operand parenthesised and its
// arguments in order. Empty operands are dropped.
func And(filters ...Filter) Filter {
	var kept []Filter
	for _, f := range filters {
		if !f.IsZero() {
			kept = append(kept, f)
		}
	}
	switch len(kept) {
	case 0:
		return Filter{}
	case 1:
		return kept[0]
	}

	parts := make([]string, len(kept))
	var args []any
	for i, f := range kept {
		parts[i] = "(" + f.Expr + ")"
		args = append(args, f.Args...)
	}
	return Filter{Expr: strings.Join(parts, " AND "), Args: args}
}

// FilterOperator is a structured comparison accepted from clients.
type FilterOperator string

const (
	OpContains   FilterOperator = "contains"
	OpEquals     FilterOperator = "eq"
	OpStartsWith FilterOperator = "starts"
	OpEndsWith   FilterOperator = "ends"
	OpGreaterEq  FilterOperator = "gte"
	OpLessEq     FilterOperator = "lte"
	OpGreater    FilterOperator = "gt"
	OpLess       FilterOperator = "lt"
	OpIn         FilterOperator = "in"
)

// ParseFilterOperator validates a client-supplied operator name.
func ParseFilterOperator(s string) (FilterOperator, bool) {
	op := FilterOperator(strings.ToLower(strings.TrimSpace(s)))
	switch op {
	case OpContains, OpEquals, OpStartsWith, OpEndsWith,
		OpGreaterEq, OpLessEq, OpGreater, OpLess, OpIn:
		return op, true
	}
	return "", false
}

// ColumnFilter represents a single filter condition on a column.
type ColumnFilter struct {
	Column   string            // Column name
	Operator FilterOperator    // Comparison operator
	Value    string            // Filter value (comma-separated for OpIn)
	Type     schema.ColumnType // Column type, used to convert Value
}

// WhereBuilder accumulates AND-ed conditions with ? placeholders.
type WhereBuilder struct {
	conditions []string
	args       []interface{}
	argIndex   int
	quote      func(string) string
}

// NewWhereBuilder creates a builder that quotes identifiers with double quotes.
func NewWhereBuilder() *WhereBuilder {
	return NewWhereBuilderQuoted(quoteIdentifier)
}

// NewWhereBuilderQuoted creates a builder that quotes identifiers with quote,
// typically a store's QuoteIdentifier.
func NewWhereBuilderQuoted(quote func(string) string) *WhereBuilder {
	return &WhereBuilder{argIndex: 1, quote: quote}
}

// Add adds an equality condition. Empty values are skipped.
func (wb *WhereBuilder) Add(column string, value string) {
	if value == "" {
		return
	}
	wb.conditions = append(wb.conditions, wb.quote(column)+" = ?")
	wb.args = append(wb.args, value)
	wb.argIndex++
}

// AddFilter adds one structured filter. Unknown operators are skipped.
func (wb *WhereBuilder) AddFilter(f ColumnFilter) {
	sql, args := buildSingleFilter(f, wb.quote)
	if sql == "" {
		return
	}
	wb.conditions = append(wb.conditions, sql)
	wb.args = append(wb.args, args...)
	wb.argIndex += len(args)
}

// AddFilters adds every filter in order.
func (wb *WhereBuilder) AddFilters(filters []ColumnFilter) {
	for _, f := range filters {
		wb.AddFilter(f)
	}
}

// NextArgIndex returns the 1-based position the next argument will take.
func (wb *WhereBuilder) NextArgIndex() int {
	return wb.argIndex
}

// Build returns the conjoined predicate and its arguments, or "" and nil
// when no condition was added.
func (wb *WhereBuilder) Build() (string, []interface{}) {
	if len(wb.conditions) == 0 {
		return "", nil
	}
	return strings.Join(wb.conditions, " AND "), wb.args
}

// Filter returns the built predicate as a Filter.
func (wb *WhereBuilder) Filter() Filter {
	expr, args := wb.Build()
	return Filter{Expr: expr, Args: args}
}

// buildSingleFilter generates SQL for a single filter. Text matching is
// case-insensitive through LOWER so it behaves the same on every backend.
func buildSingleFilter(f ColumnFilter, quote func(string) string) (string, []interface{}) {
	col := quote(f.Column)

	switch f.Operator {
	case OpContains:
		return fmt.Sprintf("LOWER(%s) LIKE LOWER(?)", col),
			[]interface{}{"%" + f.Value + "%"}

	case OpStartsWith:
		return fmt.Sprintf("LOWER(%s) LIKE LOWER(?)", col),
			[]interface{}{f.Value + "%"}

	case OpEndsWith:
		return fmt.Sprintf("LOWER(%s) LIKE LOWER(?)", col),
			[]interface{}{"%" + f.Value}

	case OpEquals:
		return col + " = ?", []interface{}{convertValue(f.Type, f.Value)}

	case OpGreaterEq:
		return col + " >= ?", []interface{}{convertValue(f.Type, f.Value)}

	case OpLessEq:
		return col + " <= ?", []interface{}{convertValue(f.Type, f.Value)}

	case OpGreater:
		return col + " > ?", []interface{}{convertValue(f.Type, f.Value)}

	case OpLess:
		return col + " < ?", []interface{}{convertValue(f.Type, f.Value)}

	case OpIn:
		values := strings.Split(f.Value, ",")
		placeholders := make([]string, len(values))
		filterArgs := make([]interface{}, len(values))
		for i, v := range values {
			placeholders[i] = "?"
			filterArgs[i] = convertValue(f.Type, strings.TrimSpace(v))
		}
		return fmt.Sprintf("%s IN (%s)", col, strings.Join(placeholders, ", ")), filterArgs

	default:
		return "", nil
	}
}

// quoteIdentifier quotes a SQL identifier to prevent injection.
func quoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
