// Package sqldb adapts a database/sql driver into a driverapi.Connection,
// shared by the mysql and sqlite dialect packages so neither has to
// reimplement row-scanning and value coercion on its own.
package sqldb

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/vitaliisemenov/zqlz/internal/dbval"
	"github.com/vitaliisemenov/zqlz/internal/driverapi"
)

// Connection adapts a *sql.DB to driverapi.Connection for any dialect whose
// driver is registered with database/sql (mysql, sqlite, ...).
type Connection struct {
	db      *sql.DB
	dialect driverapi.DialectID
	closed  bool
}

// New wraps db as a driverapi.Connection reporting dialect as its DialectID.
func New(db *sql.DB, dialect driverapi.DialectID) *Connection {
	return &Connection{db: db, dialect: dialect}
}

func (c *Connection) Execute(ctx context.Context, query string, args ...dbval.Value) (dbval.StatementResult, error) {
	if c.closed {
		return dbval.StatementResult{}, driverapi.ErrConnectionClosed
	}
	result, err := c.db.ExecContext(ctx, query, toNative(args)...)
	if err != nil {
		return dbval.StatementResult{}, mapError(err)
	}
	rowsAffected, _ := result.RowsAffected()
	lastInsertID, _ := result.LastInsertId()
	return dbval.StatementResult{RowsAffected: rowsAffected, LastInsertID: lastInsertID}, nil
}

func (c *Connection) Query(ctx context.Context, query string, args ...dbval.Value) (dbval.QueryResult, error) {
	if c.closed {
		return dbval.QueryResult{}, driverapi.ErrConnectionClosed
	}
	rows, err := c.db.QueryContext(ctx, query, toNative(args)...)
	if err != nil {
		return dbval.QueryResult{}, mapError(err)
	}
	defer rows.Close()
	return scanRows(rows)
}

func (c *Connection) BeginTransaction(ctx context.Context) (driverapi.Transaction, error) {
	if c.closed {
		return nil, driverapi.ErrConnectionClosed
	}
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, mapError(err)
	}
	return &transaction{tx: tx}, nil
}

func (c *Connection) Close(ctx context.Context) error {
	c.closed = true
	return c.db.Close()
}

func (c *Connection) IsClosed() bool { return c.closed }

func (c *Connection) CancelHandle() driverapi.CancelHandle { return nil }

func (c *Connection) AsSchemaIntrospection() (driverapi.SchemaIntrospection, bool) { return nil, false }

func (c *Connection) DialectID() driverapi.DialectID { return c.dialect }

// DB exposes the underlying pool for callers (schema introspectors, health
// checks) that need to issue catalog queries directly.
func (c *Connection) DB() *sql.DB { return c.db }

type transaction struct {
	tx *sql.Tx
}

func (t *transaction) Execute(ctx context.Context, query string, args ...dbval.Value) (dbval.StatementResult, error) {
	result, err := t.tx.ExecContext(ctx, query, toNative(args)...)
	if err != nil {
		return dbval.StatementResult{}, mapError(err)
	}
	rowsAffected, _ := result.RowsAffected()
	lastInsertID, _ := result.LastInsertId()
	return dbval.StatementResult{RowsAffected: rowsAffected, LastInsertID: lastInsertID}, nil
}

func (t *transaction) Query(ctx context.Context, query string, args ...dbval.Value) (dbval.QueryResult, error) {
	rows, err := t.tx.QueryContext(ctx, query, toNative(args)...)
	if err != nil {
		return dbval.QueryResult{}, mapError(err)
	}
	defer rows.Close()
	return scanRows(rows)
}

func (t *transaction) Commit(ctx context.Context) error {
	if err := t.tx.Commit(); err != nil {
		return mapError(err)
	}
	return nil
}

func (t *transaction) Rollback(ctx context.Context) error {
	if err := t.tx.Rollback(); err != nil {
		return mapError(err)
	}
	return nil
}

// toNative unwraps dbval.Value into the native Go types database/sql's
// driver expects, since dbval.Value itself carries no driver.Valuer.
func toNative(args []dbval.Value) []interface{} {
	native := make([]interface{}, len(args))
	for i, a := range args {
		native[i] = nativeValue(a)
	}
	return native
}

func nativeValue(v dbval.Value) interface{} {
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
	case dbval.KindBytes:
		b, _ := v.Bytes()
		return b
	case dbval.KindDate, dbval.KindTime, dbval.KindDateTime, dbval.KindDateTimeUTC:
		t, _ := v.Time()
		return t
	default:
		s, _ := v.String()
		return s
	}
}

// scanRows reads the full result set into a dbval.QueryResult, inferring
// each column's Kind from database/sql's reported column type.
func scanRows(rows *sql.Rows) (dbval.QueryResult, error) {
	colNames, err := rows.Columns()
	if err != nil {
		return dbval.QueryResult{}, err
	}
	colTypes, err := rows.ColumnTypes()
	if err != nil {
		return dbval.QueryResult{}, err
	}

	columns := make(dbval.Columns, len(colNames))
	for i, name := range colNames {
		columns[i] = dbval.ColumnDescriptor{Name: name, Kind: kindFromSQLType(colTypes[i])}
	}

	var result []dbval.Row
	scanDest := make([]interface{}, len(colNames))
	scanBuf := make([]sql.NullString, len(colNames))
	for i := range scanBuf {
		scanDest[i] = &scanBuf[i]
	}

	for rows.Next() {
		if err := rows.Scan(scanDest...); err != nil {
			return dbval.QueryResult{}, err
		}
		row := make(dbval.Row, len(colNames))
		for i, cell := range scanBuf {
			if !cell.Valid {
				row[i] = dbval.Null()
			} else {
				row[i] = dbval.NewString(cell.String)
			}
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return dbval.QueryResult{}, err
	}

	return dbval.QueryResult{Columns: columns, Rows: result}, nil
}

// kindFromSQLType infers a dbval.Kind from database/sql's reported column
// type name; everything is ultimately scanned and re-rendered as a string
// (see scanRows), so this only drives display/sort hints upstream.
func kindFromSQLType(ct *sql.ColumnType) dbval.Kind {
	switch ct.DatabaseTypeName() {
	case "INT", "INTEGER", "BIGINT", "SMALLINT", "TINYINT", "MEDIUMINT":
		return dbval.KindInt64
	case "FLOAT", "DOUBLE", "DECIMAL", "NUMERIC", "REAL":
		return dbval.KindFloat64
	case "BLOB", "BINARY", "VARBINARY":
		return dbval.KindBytes
	case "DATE":
		return dbval.KindDate
	case "DATETIME", "TIMESTAMP":
		return dbval.KindDateTime
	default:
		return dbval.KindString
	}
}

// mapError maps database/sql's generic errors onto driverapi's sentinel
// taxonomy so the connection manager can classify failures without
// importing a dialect package.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if err == sql.ErrConnDone || err == sql.ErrTxDone {
		return fmt.Errorf("%w: %v", driverapi.ErrConnectionClosed, err)
	}
	if err == context.Canceled {
		return fmt.Errorf("%w: %v", driverapi.ErrQueryCanceled, err)
	}
	if err == context.DeadlineExceeded {
		return fmt.Errorf("%w: %v", driverapi.ErrQueryTimeout, err)
	}
	return err
}
