package queryengine

import "testing"

func BenchmarkStatusFilter_ApplyToQuery(b *testing.B) {
	filter, _ := NewStatusFilter(map[string]interface{}{
		"column": "status",
		"values": []string{"active"},
	})

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = filter.ApplyToQuery(newTestBuilder())
	}
}

func BenchmarkSearchFilter_ApplyToQuery(b *testing.B) {
	filter, _ := NewSearchFilter(map[string]interface{}{
		"query":   "critical",
		"columns": []string{"name", "description"},
	})

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = filter.ApplyToQuery(newTestBuilder())
	}
}

func BenchmarkFilterRegistry_Create(b *testing.B) {
	registry := NewRegistry(nil)
	params := map[string]interface{}{
		"column": "status",
		"values": []string{"active"},
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = registry.Create(FilterTypeStatus, params)
	}
}

func BenchmarkFilterRegistry_CreateAll(b *testing.B) {
	registry := NewRegistry(nil)
	specs := []FilterSpec{
		{Type: FilterTypeStatus, Params: map[string]interface{}{"column": "status", "values": []string{"active"}}},
		{Type: FilterTypeSearch, Params: map[string]interface{}{"query": "foo", "columns": []string{"name"}}},
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = registry.CreateAll(specs)
	}
}
