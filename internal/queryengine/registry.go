package queryengine

import (
	"fmt"
	"log/slog"
)

// Registry manages the set of filter kinds a result grid can compose into a
// WHERE clause.
type Registry struct {
	factories map[FilterType]FilterFactory
	logger    *slog.Logger
}

// NewRegistry creates a filter registry with every built-in filter kind
// registered.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}

	registry := &Registry{
		factories: make(map[FilterType]FilterFactory),
		logger:    logger,
	}

	registry.Register(FilterTypeStatus, NewStatusFilter)
	registry.Register(FilterTypeTimeRange, NewTimeRangeFilter)
	registry.Register(FilterTypeSearch, NewSearchFilter)
	registry.Register(FilterTypeDuration, NewDurationFilter)

	return registry
}

// Register adds a filter factory to the registry.
func (r *Registry) Register(typ FilterType, factory FilterFactory) {
	if !typ.IsValid() {
		r.logger.Warn("registering unknown filter type", "type", typ)
	}
	r.factories[typ] = factory
}

// Create creates a filter instance from parameters.
func (r *Registry) Create(typ FilterType, params map[string]interface{}) (Filter, error) {
	factory, ok := r.factories[typ]
	if !ok {
		return nil, fmt.Errorf("unknown filter type: %s", typ)
	}

	filter, err := factory(params)
	if err != nil {
		return nil, fmt.Errorf("failed to create filter %s: %w", typ, err)
	}

	return filter, nil
}

// FilterSpec describes one grid-column filter to build, as assembled from a
// result grid's active column-filter state.
type FilterSpec struct {
	Type   FilterType
	Params map[string]interface{}
}

// CreateAll builds and validates a batch of filters from their specs, in
// order, so they can be folded into a single Builder via ApplyToQuery.
func (r *Registry) CreateAll(specs []FilterSpec) ([]Filter, error) {
	filters := make([]Filter, 0, len(specs))
	for _, spec := range specs {
		filter, err := r.Create(spec.Type, spec.Params)
		if err != nil {
			return nil, err
		}
		if err := filter.Validate(); err != nil {
			return nil, fmt.Errorf("invalid %s filter: %w", spec.Type, err)
		}
		filters = append(filters, filter)
	}
	return filters, nil
}
