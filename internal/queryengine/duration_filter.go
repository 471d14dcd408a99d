package queryengine

import (
	"fmt"
	"strings"
	"time"
)

// DurationFilter filters rows by a numeric-seconds column range, grounding a
// result grid's "elapsed between" filter over any timestamp-derived column
// the caller names (e.g. a computed EXTRACT(EPOCH FROM ...) expression).
type DurationFilter struct {
	column string
	min    *time.Duration
	max    *time.Duration
}

// NewDurationFilter creates a duration filter over params["column"],
// accepting Go duration strings ("5m", "1h") for "min" and "max".
func NewDurationFilter(params map[string]interface{}) (Filter, error) {
	column, _ := params["column"].(string)
	if column == "" {
		return nil, fmt.Errorf("duration filter requires a 'column' parameter")
	}
	filter := &DurationFilter{column: column}

	if minStr, ok := params["min"].(string); ok && minStr != "" {
		min, err := time.ParseDuration(minStr)
		if err != nil {
			return nil, fmt.Errorf("invalid 'min' duration format: %w (expected Go duration format like '5m', '1h')", err)
		}
		if min < 0 {
			return nil, fmt.Errorf("min must be non-negative")
		}
		filter.min = &min
	}

	if maxStr, ok := params["max"].(string); ok && maxStr != "" {
		max, err := time.ParseDuration(maxStr)
		if err != nil {
			return nil, fmt.Errorf("invalid 'max' duration format: %w (expected Go duration format like '5m', '1h')", err)
		}
		if max < 0 {
			return nil, fmt.Errorf("max must be non-negative")
		}
		filter.max = &max
	}

	if filter.min != nil && filter.max != nil && *filter.min > *filter.max {
		return nil, fmt.Errorf("invalid duration range: min (%v) must be <= max (%v)", *filter.min, *filter.max)
	}

	if filter.min == nil && filter.max == nil {
		return nil, fmt.Errorf("duration filter requires at least one of 'min' or 'max'")
	}

	return filter, nil
}

func (f *DurationFilter) Type() FilterType {
	return FilterTypeDuration
}

func (f *DurationFilter) Validate() error {
	if f.column == "" {
		return fmt.Errorf("duration filter requires a column")
	}
	if f.min == nil && f.max == nil {
		return fmt.Errorf("duration filter requires at least one of 'min' or 'max'")
	}
	if f.min != nil && *f.min < 0 {
		return fmt.Errorf("min must be non-negative")
	}
	if f.max != nil && *f.max < 0 {
		return fmt.Errorf("max must be non-negative")
	}
	if f.min != nil && f.max != nil && *f.min > *f.max {
		return fmt.Errorf("invalid duration range: min must be <= max")
	}
	return nil
}

func (f *DurationFilter) ApplyToQuery(qb *Builder) error {
	if f.min != nil {
		qb.AddWhere(fmt.Sprintf("%s >= ?", f.column), f.min.Seconds())
	}
	if f.max != nil {
		qb.AddWhere(fmt.Sprintf("%s <= ?", f.column), f.max.Seconds())
	}
	return nil
}

func (f *DurationFilter) CacheKey() string {
	var parts []string
	if f.min != nil {
		parts = append(parts, fmt.Sprintf("min:%v", *f.min))
	}
	if f.max != nil {
		parts = append(parts, fmt.Sprintf("max:%v", *f.max))
	}
	return fmt.Sprintf("duration:%s:%s", f.column, strings.Join(parts, ","))
}
