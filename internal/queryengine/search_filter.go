package queryengine

import (
	"fmt"
	"strings"
)

// SearchFilter rewrites a free-text grid search into a case-insensitive OR
// across the caller-named columns, each cast to text, the mechanism behind a
// result grid's search box.
type SearchFilter struct {
	query   string
	columns []string
}

// NewSearchFilter creates a search filter over params["query"], scoped to
// params["columns"] ([]string or []interface{}), which must name at least
// one column.
func NewSearchFilter(params map[string]interface{}) (Filter, error) {
	queryStr, ok := params["query"].(string)
	if !ok {
		return nil, fmt.Errorf("invalid search filter params: expected string")
	}
	if queryStr == "" {
		return nil, fmt.Errorf("search filter requires non-empty query")
	}
	if len(queryStr) > 500 {
		return nil, fmt.Errorf("search query too long: max 500 characters")
	}

	var columns []string
	switch v := params["columns"].(type) {
	case []string:
		columns = v
	case []interface{}:
		for _, c := range v {
			if s, ok := c.(string); ok {
				columns = append(columns, s)
			}
		}
	}
	if len(columns) == 0 {
		return nil, fmt.Errorf("search filter requires at least one column")
	}

	return &SearchFilter{query: queryStr, columns: columns}, nil
}

func (f *SearchFilter) Type() FilterType {
	return FilterTypeSearch
}

func (f *SearchFilter) Validate() error {
	if f.query == "" {
		return fmt.Errorf("search filter requires non-empty query")
	}
	if len(f.query) > 500 {
		return fmt.Errorf("search query too long: max 500 characters")
	}
	if len(f.columns) == 0 {
		return fmt.Errorf("search filter requires at least one column")
	}
	return nil
}

// ApplyToQuery rewrites the search into "(col1::text ILIKE ? OR col2::text
// ILIKE ? OR ...)" so it matches against every scoped column regardless of
// its underlying type.
func (f *SearchFilter) ApplyToQuery(qb *Builder) error {
	searchPattern := "%" + f.query + "%"
	clauses := make([]string, len(f.columns))
	args := make([]interface{}, len(f.columns))
	for i, col := range f.columns {
		clauses[i] = fmt.Sprintf("%s::text ILIKE ?", col)
		args[i] = searchPattern
	}
	qb.AddWhere("("+strings.Join(clauses, " OR ")+")", args...)
	return nil
}

func (f *SearchFilter) CacheKey() string {
	return fmt.Sprintf("search:%s:%s", strings.Join(f.columns, ","), f.query)
}
