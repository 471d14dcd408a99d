package queryengine

import (
	"context"
	"fmt"
	"strings"

	"github.com/vitaliisemenov/zqlz/internal/dbval"
)

// Executor runs a paginated query and its accompanying COUNT(*), the same
// shape every dialect driver's Connection exposes.
type Executor interface {
	Query(ctx context.Context, sql string, args ...dbval.Value) (dbval.QueryResult, error)
}

// Page is one fetched slice of a Paginator's result, already reversed back
// into forward row order when it was produced by the tail-reverse path.
type Page struct {
	Result      dbval.QueryResult
	TotalRows   int64
	IsEstimated bool
}

// Paginator drives table-browsing reloads against an arbitrary SELECT,
// preserving filters/sorts/search across page changes and applying the
// tail-reverse optimization when deep-paging with a known primary key.
type Paginator struct {
	exec Executor

	table       string
	quoteIdent  func(string) string
	placeholder func(int) string
	visibleCols []string
	pkColumn    string // empty when no primary key is known

	whereClauses []string
	whereArgs    []dbval.Value
	orderBy      []string

	pageSize      int
	currentOffset int
	totalRows     int64
	isEstimated   bool
	haveTotal     bool
}

// NewPaginator creates a Paginator over table, fetching visibleCols, with
// pkColumn (empty when unknown) enabling the tail-reverse path. It starts
// unsorted; SetSort supplies already-quoted ORDER BY terms (e.g. `"id" ASC`).
func NewPaginator(exec Executor, table string, quoteIdent func(string) string, placeholder func(int) string, visibleCols []string, pkColumn string) *Paginator {
	if quoteIdent == nil {
		quoteIdent = func(s string) string { return s }
	}
	if placeholder == nil {
		placeholder = func(n int) string { return fmt.Sprintf("$%d", n) }
	}
	return &Paginator{
		exec:        exec,
		table:       table,
		quoteIdent:  quoteIdent,
		placeholder: placeholder,
		visibleCols: visibleCols,
		pkColumn:    pkColumn,
		pageSize:    50,
	}
}

// SetPageSize sets the number of rows reload fetches per page.
func (p *Paginator) SetPageSize(n int) {
	if n > 0 {
		p.pageSize = n
	}
}

// SetFilters replaces the WHERE predicate and its bound arguments, resetting
// the cached total row count since it may no longer apply.
func (p *Paginator) SetFilters(clauses []string, args []dbval.Value) {
	p.whereClauses = clauses
	p.whereArgs = args
	p.haveTotal = false
}

// SetSort replaces the ORDER BY terms (already column-validated and
// quoted by the caller), resetting the cached total row count.
func (p *Paginator) SetSort(orderBy []string) {
	p.orderBy = orderBy
	p.haveTotal = false
}

// SetSearch rewrites the WHERE predicate to the search-to-WHERE expression
// over visibleCols, resetting the cached total row count.
func (p *Paginator) SetSearch(text string) {
	if text == "" {
		p.whereClauses = nil
		p.whereArgs = nil
		p.haveTotal = false
		return
	}
	clause, args := p.searchClause(text)
	p.whereClauses = []string{clause}
	p.whereArgs = args
	p.haveTotal = false
}

// searchClause builds the search-to-WHERE rewrite: escape ' -> '', % -> \%,
// _ -> \_ in text, wrap every visible column as
// CAST(col AS TEXT) LIKE '%escaped%' ESCAPE '\', OR-combined.
func (p *Paginator) searchClause(text string) (string, []dbval.Value) {
	escaped := escapeLike(text)
	parts := make([]string, 0, len(p.visibleCols))
	for _, col := range p.visibleCols {
		parts = append(parts, fmt.Sprintf(
			"CAST(%s AS TEXT) LIKE '%%%s%%' ESCAPE '\\'",
			p.quoteIdent(col), escaped,
		))
	}
	return strings.Join(parts, " OR "), nil
}

func escapeLike(text string) string {
	r := strings.NewReplacer(`'`, `''`, `%`, `\%`, `_`, `\_`)
	return r.Replace(text)
}

// Reload fetches one page of rows. When total is unknown it is computed with
// a COUNT(*) sharing the same WHERE. When offset exceeds half of the known
// total and a primary key is known, it instead fetches the tail with
// ORDER BY pk DESC LIMIT L OFFSET (total-offset-L) and reverses client-side,
// avoiding an O(offset) server-side scan.
func (p *Paginator) Reload(ctx context.Context, cachedTotal *int64) (Page, error) {
	if cachedTotal != nil {
		p.totalRows = *cachedTotal
		p.isEstimated = false
		p.haveTotal = true
	}

	if !p.haveTotal {
		total, err := p.countRows(ctx)
		if err != nil {
			return Page{}, err
		}
		p.totalRows = total
		p.isEstimated = false
		p.haveTotal = true
	}

	limit := p.pageSize
	offset := p.currentOffset

	if p.pkColumn != "" && p.totalRows > 0 && int64(offset) > p.totalRows/2 {
		return p.reloadTailReversed(ctx, limit, offset)
	}

	sql, args := p.selectSQL(p.orderBy, limit, offset)
	result, err := p.exec.Query(ctx, sql, args...)
	if err != nil {
		return Page{}, err
	}
	return Page{Result: result, TotalRows: p.totalRows, IsEstimated: p.isEstimated}, nil
}

func (p *Paginator) reloadTailReversed(ctx context.Context, limit, offset int) (Page, error) {
	tailOffset := int(p.totalRows) - offset - limit
	if tailOffset < 0 {
		limit += tailOffset
		tailOffset = 0
	}
	descOrder := []string{fmt.Sprintf("%s DESC", p.quoteIdent(p.pkColumn))}
	sql, args := p.selectSQL(descOrder, limit, tailOffset)
	result, err := p.exec.Query(ctx, sql, args...)
	if err != nil {
		return Page{}, err
	}
	for i, j := 0, len(result.Rows)-1; i < j; i, j = i+1, j-1 {
		result.Rows[i], result.Rows[j] = result.Rows[j], result.Rows[i]
	}
	return Page{Result: result, TotalRows: p.totalRows, IsEstimated: p.isEstimated}, nil
}

func (p *Paginator) selectSQL(orderBy []string, limit, offset int) (string, []dbval.Value) {
	cols := "*"
	if len(p.visibleCols) > 0 {
		quoted := make([]string, len(p.visibleCols))
		for i, c := range p.visibleCols {
			quoted[i] = p.quoteIdent(c)
		}
		cols = strings.Join(quoted, ", ")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "SELECT %s FROM %s", cols, p.quoteIdent(p.table))
	args := append([]dbval.Value{}, p.whereArgs...)
	n := len(args)

	if len(p.whereClauses) > 0 {
		b.WriteString(" WHERE " + strings.Join(p.whereClauses, " AND "))
	}
	if len(orderBy) > 0 {
		b.WriteString(" ORDER BY " + strings.Join(orderBy, ", "))
	}
	n++
	fmt.Fprintf(&b, " LIMIT %s", p.placeholder(n))
	args = append(args, dbval.NewInt64(int64(limit)))
	n++
	fmt.Fprintf(&b, " OFFSET %s", p.placeholder(n))
	args = append(args, dbval.NewInt64(int64(offset)))

	return b.String(), args
}

func (p *Paginator) countRows(ctx context.Context) (int64, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "SELECT COUNT(*) FROM %s", p.quoteIdent(p.table))
	if len(p.whereClauses) > 0 {
		b.WriteString(" WHERE " + strings.Join(p.whereClauses, " AND "))
	}
	result, err := p.exec.Query(ctx, b.String(), p.whereArgs...)
	if err != nil {
		return 0, err
	}
	if len(result.Rows) == 0 || len(result.Rows[0]) == 0 {
		return 0, nil
	}
	count, _ := result.Rows[0][0].Int64()
	return count, nil
}

// SetOffset moves the current page to offset, clamped to non-negative.
func (p *Paginator) SetOffset(offset int) {
	if offset < 0 {
		offset = 0
	}
	p.currentOffset = offset
}

// Offset returns the paginator's current row offset.
func (p *Paginator) Offset() int { return p.currentOffset }

// TotalRows returns the last-known total row count and whether it is an
// estimate rather than an exact COUNT(*).
func (p *Paginator) TotalRows() (int64, bool) { return p.totalRows, p.isEstimated }
