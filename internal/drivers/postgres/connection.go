package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/vitaliisemenov/zqlz/internal/dbval"
	"github.com/vitaliisemenov/zqlz/internal/driverapi"
)

// Driver implements driverapi.DatabaseDriver for PostgreSQL, backed by
// pgxpool.
type Driver struct {
	logger *slog.Logger
}

// NewDriver creates a postgres driverapi.DatabaseDriver.
func NewDriver(logger *slog.Logger) *Driver {
	return &Driver{logger: logger}
}

func (d *Driver) Dialect() driverapi.DialectInfo {
	return driverapi.DialectInfo{
		ID:              driverapi.DialectPostgres,
		DisplayName:     "PostgreSQL",
		ParamStyle:      driverapi.ParamStyleDollar,
		IdentifierQuote: `"`,
		SupportsSchemas: true,
		Keywords:        postgresKeywords,
	}
}

func (d *Driver) Connect(ctx context.Context, params driverapi.ConnectParams) (driverapi.Connection, error) {
	cfg := DefaultConfig()
	cfg.Host = params.Host
	if params.Port != 0 {
		cfg.Port = params.Port
	}
	cfg.Database = params.Database
	cfg.User = params.Username
	cfg.Password = params.Password
	if params.SSLMode != "" {
		cfg.SSLMode = params.SSLMode
	}

	pool := NewPostgresPool(cfg, d.logger)
	if err := pool.Connect(ctx); err != nil {
		return nil, err
	}
	return &connAdapter{pool: pool}, nil
}

// connAdapter adapts *PostgresPool to driverapi.Connection, translating
// dbval.Value arguments and pgx.Rows results across the boundary.
type connAdapter struct {
	pool *PostgresPool
	tx   pgx.Tx
}

func toNativeArgs(args []dbval.Value) []interface{} {
	native := make([]interface{}, len(args))
	for i, a := range args {
		native[i] = valueToNative(a)
	}
	return native
}

func valueToNative(v dbval.Value) interface{} {
	if v.IsNull() {
		return nil
	}
	switch v.Kind() {
	case dbval.KindBool:
		b, _ := v.Bool()
		return b
	case dbval.KindInt8, dbval.KindInt16, dbval.KindInt32, dbval.KindInt64:
		i, _ := v.Int64()
		return i
	case dbval.KindFloat32, dbval.KindFloat64:
		f, _ := v.Float64()
		return f
	case dbval.KindString, dbval.KindDecimal, dbval.KindUUID:
		s, _ := v.String()
		return s
	case dbval.KindBytes:
		b, _ := v.Bytes()
		return b
	case dbval.KindDate, dbval.KindTime, dbval.KindDateTime, dbval.KindDateTimeUTC:
		t, _ := v.Time()
		return t
	default:
		return v.Display()
	}
}

func nativeToValue(v interface{}) dbval.Value {
	switch x := v.(type) {
	case nil:
		return dbval.Null()
	case bool:
		return dbval.NewBool(x)
	case int16:
		return dbval.NewInt16(x)
	case int32:
		return dbval.NewInt32(x)
	case int64:
		return dbval.NewInt64(x)
	case int:
		return dbval.NewInt64(int64(x))
	case float32:
		return dbval.NewFloat32(x)
	case float64:
		return dbval.NewFloat64(x)
	case string:
		return dbval.NewString(x)
	case []byte:
		return dbval.NewBytes(x)
	case time.Time:
		return dbval.NewDateTimeUTC(x)
	default:
		return dbval.NewString(fmt.Sprintf("%v", x))
	}
}

func (c *connAdapter) Execute(ctx context.Context, sql string, args ...dbval.Value) (dbval.StatementResult, error) {
	native := toNativeArgs(args)
	if c.tx != nil {
		tag, err := c.tx.Exec(ctx, sql, native...)
		if err != nil {
			return dbval.StatementResult{}, err
		}
		return dbval.StatementResult{RowsAffected: tag.RowsAffected()}, nil
	}
	tag, err := c.pool.Exec(ctx, sql, native...)
	if err != nil {
		return dbval.StatementResult{}, err
	}
	return dbval.StatementResult{RowsAffected: tag.RowsAffected()}, nil
}

func (c *connAdapter) Query(ctx context.Context, sql string, args ...dbval.Value) (dbval.QueryResult, error) {
	native := toNativeArgs(args)
	var rows pgx.Rows
	var err error
	if c.tx != nil {
		rows, err = c.tx.Query(ctx, sql, native...)
	} else {
		rows, err = c.pool.Query(ctx, sql, native...)
	}
	if err != nil {
		return dbval.QueryResult{}, err
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	columns := make(dbval.Columns, len(fields))
	for i, f := range fields {
		columns[i] = dbval.ColumnDescriptor{Name: string(f.Name), Kind: dbval.KindString}
	}

	var result []dbval.Row
	for rows.Next() {
		raw, err := rows.Values()
		if err != nil {
			return dbval.QueryResult{}, err
		}
		row := make(dbval.Row, len(raw))
		for i, v := range raw {
			row[i] = nativeToValue(v)
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return dbval.QueryResult{}, err
	}

	return dbval.QueryResult{Columns: columns, Rows: result}, nil
}

func (c *connAdapter) BeginTransaction(ctx context.Context) (driverapi.Transaction, error) {
	tx, err := c.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return &txAdapter{conn: &connAdapter{pool: c.pool, tx: tx}, tx: tx}, nil
}

func (c *connAdapter) Close(ctx context.Context) error {
	return c.pool.Disconnect(ctx)
}

func (c *connAdapter) IsClosed() bool {
	return !c.pool.IsConnected()
}

func (c *connAdapter) CancelHandle() driverapi.CancelHandle {
	return nil
}

func (c *connAdapter) AsSchemaIntrospection() (driverapi.SchemaIntrospection, bool) {
	return nil, false
}

func (c *connAdapter) DialectID() driverapi.DialectID {
	return driverapi.DialectPostgres
}

// txAdapter adapts a pgx.Tx to driverapi.Transaction.
type txAdapter struct {
	conn *connAdapter
	tx   pgx.Tx
}

func (t *txAdapter) Execute(ctx context.Context, sql string, args ...dbval.Value) (dbval.StatementResult, error) {
	return t.conn.Execute(ctx, sql, args...)
}

func (t *txAdapter) Query(ctx context.Context, sql string, args ...dbval.Value) (dbval.QueryResult, error) {
	return t.conn.Query(ctx, sql, args...)
}

func (t *txAdapter) Commit(ctx context.Context) error {
	return t.tx.Commit(ctx)
}

func (t *txAdapter) Rollback(ctx context.Context) error {
	return t.tx.Rollback(ctx)
}
