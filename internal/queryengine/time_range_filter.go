package queryengine

import (
	"fmt"
	"strings"
	"time"
)

// TimeRangeFilter filters rows by a timestamp column bound to [from, to].
type TimeRangeFilter struct {
	column string
	from   *time.Time
	to     *time.Time
}

// NewTimeRangeFilter creates a time range filter over params["column"].
func NewTimeRangeFilter(params map[string]interface{}) (Filter, error) {
	column, _ := params["column"].(string)
	if column == "" {
		return nil, fmt.Errorf("time_range filter requires a 'column' parameter")
	}
	filter := &TimeRangeFilter{column: column}

	if fromStr, ok := params["from"].(string); ok && fromStr != "" {
		from, err := time.Parse(time.RFC3339, fromStr)
		if err != nil {
			return nil, fmt.Errorf("invalid 'from' timestamp format: %w (expected RFC3339)", err)
		}
		filter.from = &from
	}

	if toStr, ok := params["to"].(string); ok && toStr != "" {
		to, err := time.Parse(time.RFC3339, toStr)
		if err != nil {
			return nil, fmt.Errorf("invalid 'to' timestamp format: %w (expected RFC3339)", err)
		}
		filter.to = &to
	}

	if filter.from != nil && filter.to != nil {
		if filter.from.After(*filter.to) {
			return nil, fmt.Errorf("invalid time range: 'from' (%s) must be before 'to' (%s)",
				filter.from.Format(time.RFC3339), filter.to.Format(time.RFC3339))
		}
		duration := filter.to.Sub(*filter.from)
		maxDuration := 90 * 24 * time.Hour
		if duration > maxDuration {
			return nil, fmt.Errorf("time range too large: %v (max 90 days)", duration)
		}
	}

	if filter.from == nil && filter.to == nil {
		return nil, fmt.Errorf("time_range filter requires at least one of 'from' or 'to'")
	}

	return filter, nil
}

func (f *TimeRangeFilter) Type() FilterType {
	return FilterTypeTimeRange
}

func (f *TimeRangeFilter) Validate() error {
	if f.column == "" {
		return fmt.Errorf("time_range filter requires a column")
	}
	if f.from == nil && f.to == nil {
		return fmt.Errorf("time_range filter requires at least one of 'from' or 'to'")
	}
	if f.from != nil && f.to != nil {
		if f.from.After(*f.to) {
			return fmt.Errorf("invalid time range: 'from' must be before 'to'")
		}
		duration := f.to.Sub(*f.from)
		maxDuration := 90 * 24 * time.Hour
		if duration > maxDuration {
			return fmt.Errorf("time range too large: max 90 days")
		}
	}
	return nil
}

func (f *TimeRangeFilter) ApplyToQuery(qb *Builder) error {
	if f.from != nil {
		qb.AddWhere(fmt.Sprintf("%s >= ?", f.column), *f.from)
	}
	if f.to != nil {
		qb.AddWhere(fmt.Sprintf("%s <= ?", f.column), *f.to)
	}
	return nil
}

func (f *TimeRangeFilter) CacheKey() string {
	var parts []string
	if f.from != nil {
		parts = append(parts, fmt.Sprintf("from:%s", f.from.Format(time.RFC3339)))
	}
	if f.to != nil {
		parts = append(parts, fmt.Sprintf("to:%s", f.to.Format(time.RFC3339)))
	}
	return fmt.Sprintf("time_range:%s:%s", f.column, strings.Join(parts, ","))
}
