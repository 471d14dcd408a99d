package queryengine

import (
	"fmt"
	"strings"
	"testing"
)

func newTestBuilder() *Builder {
	return NewBuilder("query_results", func(s string) string { return s },
		func(n int) string { return fmt.Sprintf("$%d", n) })
}

func TestBuilder_Build(t *testing.T) {
	tests := []struct {
		name  string
		setup func(*Builder)
	}{
		{name: "simple query", setup: func(qb *Builder) {}},
		{name: "query with WHERE clause", setup: func(qb *Builder) {
			qb.AddWhere("status = ?", "active")
		}},
		{name: "query with pagination", setup: func(qb *Builder) {
			qb.SetLimit(50)
			qb.SetOffset(50)
		}},
		{name: "query with sorting", setup: func(qb *Builder) {
			qb.AddOrderBy("created_at", SortOrderDesc)
		}},
		{name: "complete query", setup: func(qb *Builder) {
			qb.AddWhere("status = ?", "active")
			qb.SetLimit(50)
			qb.SetOffset(0)
			qb.AddOrderBy("created_at", SortOrderDesc)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			qb := newTestBuilder()
			tt.setup(qb)

			sql, args := qb.Build()
			if sql == "" {
				t.Fatal("Build() returned empty SQL")
			}
			if want := countPlaceholders(sql); len(args) != want {
				t.Errorf("Build() args count = %v, want %v", len(args), want)
			}
		})
	}
}

func countPlaceholders(sql string) int {
	count := 0
	for i := 0; i < len(sql); i++ {
		if sql[i] == '$' && i+1 < len(sql) && sql[i+1] >= '0' && sql[i+1] <= '9' {
			count++
		}
	}
	return count
}

func TestBuilder_AddWhere(t *testing.T) {
	qb := newTestBuilder()
	qb.AddWhere("status = ?", "active")
	qb.AddWhere("severity = ?", "critical")

	sql, args := qb.Build()
	if len(args) != 2 {
		t.Errorf("AddWhere() args count = %v, want 2", len(args))
	}
	if args[0] != "active" || args[1] != "critical" {
		t.Errorf("AddWhere() args = %v, want [active, critical]", args)
	}
	if !strings.Contains(sql, "WHERE") {
		t.Error("AddWhere() did not add WHERE clause")
	}
}

func TestBuilder_Pagination(t *testing.T) {
	qb := newTestBuilder()
	qb.SetLimit(50)
	qb.SetOffset(50)

	sql, args := qb.Build()
	if !strings.Contains(sql, "LIMIT") || !strings.Contains(sql, "OFFSET") {
		t.Error("pagination did not add LIMIT/OFFSET")
	}
	if len(args) != 2 || args[0] != 50 || args[1] != 50 {
		t.Errorf("pagination args = %v, want [50, 50]", args)
	}
}

func TestBuilder_AddOrderBy(t *testing.T) {
	qb := newTestBuilder()
	qb.AddOrderBy("created_at", SortOrderDesc)

	sql, _ := qb.Build()
	if !strings.Contains(sql, "ORDER BY") {
		t.Error("AddOrderBy() did not add ORDER BY clause")
	}
	if !strings.Contains(sql, "created_at") {
		t.Errorf("AddOrderBy() SQL = %v, want contains 'created_at'", sql)
	}
}

func TestBuilder_BuildCount(t *testing.T) {
	qb := newTestBuilder()
	qb.AddWhere("status = ?", "active")
	qb.SetLimit(10)

	sql, args := qb.BuildCount()
	if !strings.HasPrefix(sql, "SELECT COUNT(*)") {
		t.Errorf("BuildCount() sql = %v, want COUNT(*) prefix", sql)
	}
	if len(args) != 1 {
		t.Errorf("BuildCount() args = %v, want 1 (LIMIT excluded)", args)
	}
}
