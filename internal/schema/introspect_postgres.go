package schema

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ColumnInfo describes one column of an introspected table.
type ColumnInfo struct {
	Name         string
	DataType     string
	Nullable     bool
	DefaultValue *string
	IsPrimaryKey bool
}

// IndexInfo describes one index on an introspected table.
type IndexInfo struct {
	Name    string
	Columns []string
	Unique  bool
}

// ForeignKeyInfo describes one foreign-key constraint.
type ForeignKeyInfo struct {
	ConstraintName string
	Column         string
	RefTable       string
	RefColumn      string
}

// TableInfo is the full structural description of a table, assembled from
// separate catalog queries and cached by the schema cache.
type TableInfo struct {
	Schema      string
	Name        string
	Columns     []ColumnInfo
	Indexes     []IndexInfo
	ForeignKeys []ForeignKeyInfo
	RowEstimate int64
}

// IntrospectionMetrics holds Prometheus instrumentation for catalog queries.
type IntrospectionMetrics struct {
	QueryDuration *prometheus.HistogramVec
	QueryErrors   *prometheus.CounterVec
}

func newIntrospectionMetrics() *IntrospectionMetrics {
	return &IntrospectionMetrics{
		QueryDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "schema_introspection_query_duration_seconds",
				Help:    "Duration of schema catalog queries",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"operation", "status"},
		),
		QueryErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "schema_introspection_query_errors_total",
				Help: "Total number of schema catalog query errors",
			},
			[]string{"operation", "error_type"},
		),
	}
}

// PostgresIntrospector implements catalog discovery for PostgreSQL via
// information_schema and pg_catalog. It satisfies driverapi.SchemaIntrospection
// (ListSchemas/ListTables) and additionally exposes DescribeTable for the
// schema cache's deeper per-table metadata.
type PostgresIntrospector struct {
	pool    *pgxpool.Pool
	logger  *slog.Logger
	metrics *IntrospectionMetrics
}

// NewPostgresIntrospector creates a catalog introspector over an existing
// connection pool.
func NewPostgresIntrospector(pool *pgxpool.Pool, logger *slog.Logger) *PostgresIntrospector {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresIntrospector{
		pool:    pool,
		logger:  logger,
		metrics: newIntrospectionMetrics(),
	}
}

func (r *PostgresIntrospector) observe(operation string, start time.Time, err error) {
	duration := time.Since(start).Seconds()
	status := "success"
	if err != nil {
		status = "error"
		r.metrics.QueryErrors.WithLabelValues(operation, "database").Inc()
	}
	r.metrics.QueryDuration.WithLabelValues(operation, status).Observe(duration)
}

// ListSchemas returns the user-visible (non-system) schemas in the database.
func (r *PostgresIntrospector) ListSchemas(ctx context.Context) ([]string, error) {
	start := time.Now()
	const query = `
		SELECT schema_name
		FROM information_schema.schemata
		WHERE schema_name NOT IN ('pg_catalog', 'information_schema')
		  AND schema_name NOT LIKE 'pg_toast%'
		  AND schema_name NOT LIKE 'pg_temp%'
		ORDER BY schema_name`

	rows, err := r.pool.Query(ctx, query)
	defer r.observe("list_schemas", start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to list schemas: %w", err)
	}
	defer rows.Close()

	var schemas []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan schema name: %w", err)
		}
		schemas = append(schemas, name)
	}
	return schemas, rows.Err()
}

// ListTables returns the base tables (and views) defined in schema.
func (r *PostgresIntrospector) ListTables(ctx context.Context, schema string) ([]string, error) {
	start := time.Now()
	if schema == "" {
		schema = "public"
	}
	const query = `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = $1
		ORDER BY table_name`

	rows, err := r.pool.Query(ctx, query, schema)
	defer r.observe("list_tables", start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan table name: %w", err)
		}
		tables = append(tables, name)
	}
	return tables, rows.Err()
}

// DescribeTable assembles the full structural description of one table:
// columns, indexes, foreign keys, and a planner row-count estimate.
func (r *PostgresIntrospector) DescribeTable(ctx context.Context, schema, table string) (*TableInfo, error) {
	if schema == "" {
		schema = "public"
	}

	columns, err := r.listColumns(ctx, schema, table)
	if err != nil {
		return nil, err
	}
	indexes, err := r.listIndexes(ctx, schema, table)
	if err != nil {
		return nil, err
	}
	foreignKeys, err := r.listForeignKeys(ctx, schema, table)
	if err != nil {
		return nil, err
	}
	rowEstimate, err := r.estimateRowCount(ctx, schema, table)
	if err != nil {
		r.logger.Warn("failed to estimate row count", "schema", schema, "table", table, "error", err)
		rowEstimate = -1
	}

	return &TableInfo{
		Schema:      schema,
		Name:        table,
		Columns:     columns,
		Indexes:     indexes,
		ForeignKeys: foreignKeys,
		RowEstimate: rowEstimate,
	}, nil
}

func (r *PostgresIntrospector) listColumns(ctx context.Context, schema, table string) ([]ColumnInfo, error) {
	start := time.Now()
	const query = `
		SELECT
			c.column_name,
			c.data_type,
			c.is_nullable = 'YES' AS nullable,
			c.column_default,
			COALESCE(pk.is_primary_key, false) AS is_primary_key
		FROM information_schema.columns c
		LEFT JOIN (
			SELECT kcu.column_name, true AS is_primary_key
			FROM information_schema.table_constraints tc
			JOIN information_schema.key_column_usage kcu
				ON tc.constraint_name = kcu.constraint_name
				AND tc.table_schema = kcu.table_schema
			WHERE tc.constraint_type = 'PRIMARY KEY'
				AND tc.table_schema = $1 AND tc.table_name = $2
		) pk ON pk.column_name = c.column_name
		WHERE c.table_schema = $1 AND c.table_name = $2
		ORDER BY c.ordinal_position`

	rows, err := r.pool.Query(ctx, query, schema, table)
	defer r.observe("list_columns", start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to list columns for %s.%s: %w", schema, table, err)
	}
	defer rows.Close()

	var columns []ColumnInfo
	for rows.Next() {
		var col ColumnInfo
		if err := rows.Scan(&col.Name, &col.DataType, &col.Nullable, &col.DefaultValue, &col.IsPrimaryKey); err != nil {
			return nil, fmt.Errorf("failed to scan column: %w", err)
		}
		columns = append(columns, col)
	}
	return columns, rows.Err()
}

func (r *PostgresIntrospector) listIndexes(ctx context.Context, schema, table string) ([]IndexInfo, error) {
	start := time.Now()
	const query = `
		SELECT
			i.relname AS index_name,
			ix.indisunique AS is_unique,
			array_agg(a.attname ORDER BY array_position(ix.indkey, a.attnum)) AS columns
		FROM pg_class t
		JOIN pg_namespace n ON n.oid = t.relnamespace
		JOIN pg_index ix ON t.oid = ix.indrelid
		JOIN pg_class i ON i.oid = ix.indexrelid
		JOIN pg_attribute a ON a.attrelid = t.oid AND a.attnum = ANY(ix.indkey)
		WHERE n.nspname = $1 AND t.relname = $2
		GROUP BY i.relname, ix.indisunique
		ORDER BY i.relname`

	rows, err := r.pool.Query(ctx, query, schema, table)
	defer r.observe("list_indexes", start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to list indexes for %s.%s: %w", schema, table, err)
	}
	defer rows.Close()

	var indexes []IndexInfo
	for rows.Next() {
		var idx IndexInfo
		if err := rows.Scan(&idx.Name, &idx.Unique, &idx.Columns); err != nil {
			return nil, fmt.Errorf("failed to scan index: %w", err)
		}
		indexes = append(indexes, idx)
	}
	return indexes, rows.Err()
}

func (r *PostgresIntrospector) listForeignKeys(ctx context.Context, schema, table string) ([]ForeignKeyInfo, error) {
	start := time.Now()
	const query = `
		SELECT
			tc.constraint_name,
			kcu.column_name,
			ccu.table_name AS ref_table,
			ccu.column_name AS ref_column
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
			ON tc.constraint_name = kcu.constraint_name AND tc.table_schema = kcu.table_schema
		JOIN information_schema.constraint_column_usage ccu
			ON tc.constraint_name = ccu.constraint_name AND tc.table_schema = ccu.table_schema
		WHERE tc.constraint_type = 'FOREIGN KEY'
			AND tc.table_schema = $1 AND tc.table_name = $2
		ORDER BY tc.constraint_name`

	rows, err := r.pool.Query(ctx, query, schema, table)
	defer r.observe("list_foreign_keys", start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to list foreign keys for %s.%s: %w", schema, table, err)
	}
	defer rows.Close()

	var fks []ForeignKeyInfo
	for rows.Next() {
		var fk ForeignKeyInfo
		if err := rows.Scan(&fk.ConstraintName, &fk.Column, &fk.RefTable, &fk.RefColumn); err != nil {
			return nil, fmt.Errorf("failed to scan foreign key: %w", err)
		}
		fks = append(fks, fk)
	}
	return fks, rows.Err()
}

// estimateRowCount uses the planner's cached statistics rather than
// COUNT(*), which would scan the whole table.
func (r *PostgresIntrospector) estimateRowCount(ctx context.Context, schema, table string) (int64, error) {
	start := time.Now()
	const query = `
		SELECT COALESCE(n_live_tup, 0)
		FROM pg_stat_user_tables
		WHERE schemaname = $1 AND relname = $2`

	var estimate int64
	err := r.pool.QueryRow(ctx, query, schema, table).Scan(&estimate)
	defer r.observe("estimate_row_count", start, err)
	if err != nil {
		return 0, fmt.Errorf("failed to estimate row count for %s.%s: %w", schema, table, err)
	}
	return estimate, nil
}
