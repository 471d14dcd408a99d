package queryengine

import (
	"fmt"
	"strings"
)

// SortOrder is the direction of an ORDER BY clause.
type SortOrder string

const (
	SortOrderAsc  SortOrder = "ASC"
	SortOrderDesc SortOrder = "DESC"
)

// Builder assembles a paginated SELECT against an arbitrary table, rewriting
// '?' placeholders into the positional style a driver's ParamStyle expects.
// Filter implementations fold their predicates into it via ApplyToQuery;
// Paginator renders its own SELECTs and does not use it.
type Builder struct {
	table        string
	quoteIdent   func(string) string
	placeholder  func(n int) string
	whereClauses []string
	args         []interface{}
	argCounter   int
	orderBy      []string
	defaultOrder string
	limit        int
	offset       int
}

// NewBuilder creates a query builder targeting table, quoting identifiers
// and generating placeholders the way dialect does.
func NewBuilder(table string, quoteIdent func(string) string, placeholder func(int) string) *Builder {
	if quoteIdent == nil {
		quoteIdent = func(s string) string { return s }
	}
	if placeholder == nil {
		placeholder = func(n int) string { return fmt.Sprintf("$%d", n) }
	}
	return &Builder{
		table:        table,
		quoteIdent:   quoteIdent,
		placeholder:  placeholder,
		whereClauses: []string{},
		args:         []interface{}{},
	}
}

// SetDefaultOrder sets the ORDER BY used when AddOrderBy is never called.
func (qb *Builder) SetDefaultOrder(column string, order SortOrder) {
	qb.defaultOrder = fmt.Sprintf("%s %s", qb.quoteIdent(column), order)
}

// AddWhere adds a WHERE clause with arguments. '?' placeholders in clause are
// rewritten to the dialect's positional style in left-to-right order.
func (qb *Builder) AddWhere(clause string, args ...interface{}) {
	numArgs := strings.Count(clause, "?")
	for i := 0; i < numArgs; i++ {
		qb.argCounter++
		clause = strings.Replace(clause, "?", qb.placeholder(qb.argCounter), 1)
	}
	qb.whereClauses = append(qb.whereClauses, clause)
	qb.args = append(qb.args, args...)
}

// AddOrderBy adds an ORDER BY term for column, which must be validated by the
// caller against the schema's known columns before being passed here.
func (qb *Builder) AddOrderBy(column string, order SortOrder) {
	qb.orderBy = append(qb.orderBy, fmt.Sprintf("%s %s", qb.quoteIdent(column), order))
}

// SetLimit sets the LIMIT clause. Non-positive values are ignored.
func (qb *Builder) SetLimit(limit int) {
	if limit > 0 {
		qb.limit = limit
	}
}

// SetOffset sets the OFFSET clause. Non-positive values are ignored.
func (qb *Builder) SetOffset(offset int) {
	if offset > 0 {
		qb.offset = offset
	}
}

// Build renders the final SELECT * FROM <table> [WHERE ...] [ORDER BY ...]
// [LIMIT n] [OFFSET n].
func (qb *Builder) Build() (string, []interface{}) {
	var parts []string
	parts = append(parts, fmt.Sprintf("SELECT * FROM %s", qb.quoteIdent(qb.table)))

	if len(qb.whereClauses) > 0 {
		parts = append(parts, "WHERE "+strings.Join(qb.whereClauses, " AND "))
	}

	if len(qb.orderBy) > 0 {
		parts = append(parts, "ORDER BY "+strings.Join(qb.orderBy, ", "))
	} else if qb.defaultOrder != "" {
		parts = append(parts, "ORDER BY "+qb.defaultOrder)
	}

	if qb.limit > 0 {
		qb.argCounter++
		parts = append(parts, fmt.Sprintf("LIMIT %s", qb.placeholder(qb.argCounter)))
		qb.args = append(qb.args, qb.limit)
	}

	if qb.offset > 0 {
		qb.argCounter++
		parts = append(parts, fmt.Sprintf("OFFSET %s", qb.placeholder(qb.argCounter)))
		qb.args = append(qb.args, qb.offset)
	}

	return strings.Join(parts, " "), qb.args
}

// BuildCount renders a SELECT COUNT(*) sharing the same WHERE clause, used to
// compute total row counts for pagination metadata.
func (qb *Builder) BuildCount() (string, []interface{}) {
	var parts []string
	parts = append(parts, fmt.Sprintf("SELECT COUNT(*) FROM %s", qb.quoteIdent(qb.table)))
	if len(qb.whereClauses) > 0 {
		parts = append(parts, "WHERE "+strings.Join(qb.whereClauses, " AND "))
	}
	return strings.Join(parts, " "), qb.args
}
