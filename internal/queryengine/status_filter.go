package queryengine

import (
	"fmt"
	"sort"
	"strings"
)

// StatusFilter restricts a column to a fixed set of values, grounding a
// grid's "filter this column to one of these values" interaction (status
// columns, enum columns, boolean flags).
type StatusFilter struct {
	column string
	values []string
}

// NewStatusFilter creates a filter over params["column"] restricted to
// params["values"] ([]string).
func NewStatusFilter(params map[string]interface{}) (Filter, error) {
	column, _ := params["column"].(string)
	if column == "" {
		return nil, fmt.Errorf("status filter requires a 'column' parameter")
	}
	values, ok := params["values"].([]string)
	if !ok {
		return nil, fmt.Errorf("invalid status filter params: expected []string")
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("status filter requires at least one value")
	}
	return &StatusFilter{column: column, values: values}, nil
}

func (f *StatusFilter) Type() FilterType {
	return FilterTypeStatus
}

func (f *StatusFilter) Validate() error {
	if f.column == "" {
		return fmt.Errorf("status filter requires a column")
	}
	if len(f.values) == 0 {
		return fmt.Errorf("status filter requires at least one value")
	}
	return nil
}

func (f *StatusFilter) ApplyToQuery(qb *Builder) error {
	if len(f.values) == 1 {
		qb.AddWhere(fmt.Sprintf("%s = ?", f.column), f.values[0])
		return nil
	}
	placeholders := make([]string, len(f.values))
	args := make([]interface{}, len(f.values))
	for i, v := range f.values {
		placeholders[i] = "?"
		args[i] = v
	}
	qb.AddWhere(fmt.Sprintf("%s IN (%s)", f.column, strings.Join(placeholders, ",")), args...)
	return nil
}

func (f *StatusFilter) CacheKey() string {
	values := make([]string, len(f.values))
	copy(values, f.values)
	sort.Strings(values)
	return fmt.Sprintf("status:%s:%s", f.column, strings.Join(values, ","))
}
