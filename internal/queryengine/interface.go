package queryengine

// Filter defines common operations for all predicate filters that can be
// folded into a Builder's WHERE clause.
type Filter interface {
	// Type returns the filter type.
	Type() FilterType

	// Validate validates the filter parameters.
	Validate() error

	// ApplyToQuery applies the filter to a query builder.
	ApplyToQuery(qb *Builder) error

	// CacheKey returns a cache key representation of the filter, used when
	// generating cache keys for query results.
	CacheKey() string
}

// FilterFactory creates filter instances from parameters.
type FilterFactory func(params map[string]interface{}) (Filter, error)
