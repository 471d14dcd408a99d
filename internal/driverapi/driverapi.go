// Package driverapi defines the capability contracts every dialect driver
// (postgres, mysql, sqlite, redis) implements so the connection manager and
// query pipeline can stay dialect-agnostic.
package driverapi

import (
	"context"
	"errors"
	"fmt"

	"github.com/vitaliisemenov/zqlz/internal/dbval"
)

// Sentinel errors every driver maps its dialect-specific failures onto, so
// the connection manager's retry and reconnect logic can classify errors
// without importing dialect packages.
var (
	ErrConnectionClosed    = errors.New("driverapi: connection is closed")
	ErrConnectionRefused   = errors.New("driverapi: connection refused")
	ErrAuthenticationFailed = errors.New("driverapi: authentication failed")
	ErrQueryCanceled       = errors.New("driverapi: query canceled")
	ErrQueryTimeout        = errors.New("driverapi: query timed out")
	ErrUnsupportedDialect  = errors.New("driverapi: unsupported dialect")
	ErrTransactionClosed   = errors.New("driverapi: transaction already committed or rolled back")
	ErrNotATransaction     = errors.New("driverapi: connection has no active transaction")
)

// DialectID names a supported SQL/KV dialect.
type DialectID string

const (
	DialectPostgres DialectID = "postgres"
	DialectMySQL    DialectID = "mysql"
	DialectSQLite   DialectID = "sqlite"
	DialectRedis    DialectID = "redis"
)

// ParamStyle describes how a dialect spells bound-parameter placeholders.
type ParamStyle string

const (
	ParamStyleQuestion ParamStyle = "question" // ?
	ParamStyleDollar   ParamStyle = "dollar"   // $1, $2, ...
	ParamStyleColon    ParamStyle = "colon"    // :name
	ParamStyleAt       ParamStyle = "at"       // @name
)

// DialectInfo carries the static facts a dialect-agnostic consumer needs:
// identifier quoting, placeholder style, and the keywords driving completion
// and syntax highlighting.
type DialectInfo struct {
	ID              DialectID
	DisplayName     string
	ParamStyle      ParamStyle
	IdentifierQuote string // e.g. `"` for postgres, "`" for mysql
	SupportsSchemas bool
	Keywords        []string
}

// QuoteIdentifier quotes ident using the dialect's identifier-quote rune,
// doubling any embedded quote characters.
func (d DialectInfo) QuoteIdentifier(ident string) string {
	q := d.IdentifierQuote
	if q == "" {
		return ident
	}
	escaped := ""
	for _, r := range ident {
		if string(r) == q {
			escaped += q + q
		} else {
			escaped += string(r)
		}
	}
	return q + escaped + q
}

// Placeholder renders the nth (1-based) bound parameter placeholder for the
// dialect's ParamStyle.
func (d DialectInfo) Placeholder(n int) string {
	switch d.ParamStyle {
	case ParamStyleDollar:
		return fmt.Sprintf("$%d", n)
	default:
		return "?"
	}
}

// CancelHandle lets a caller abort an in-flight query from another
// goroutine, independent of the context passed to Execute/Query.
type CancelHandle interface {
	Cancel(ctx context.Context) error
}

// Transaction is a started but not yet finished unit of work.
type Transaction interface {
	Execute(ctx context.Context, sql string, args ...dbval.Value) (dbval.StatementResult, error)
	Query(ctx context.Context, sql string, args ...dbval.Value) (dbval.QueryResult, error)
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// SchemaIntrospection is the subset of schema discovery a driver exposes
// directly; most drivers delegate the heavier introspection queries to the
// schema package, which type-asserts for this interface.
type SchemaIntrospection interface {
	ListSchemas(ctx context.Context) ([]string, error)
	ListTables(ctx context.Context, schema string) ([]string, error)
}

// Connection is the capability surface every live connection exposes,
// regardless of dialect. A Connection is not safe for concurrent use by
// multiple goroutines issuing overlapping statements; the connection
// manager's Pool serializes access by handing out one Connection per
// checkout.
type Connection interface {
	Execute(ctx context.Context, sql string, args ...dbval.Value) (dbval.StatementResult, error)
	Query(ctx context.Context, sql string, args ...dbval.Value) (dbval.QueryResult, error)
	BeginTransaction(ctx context.Context) (Transaction, error)
	Close(ctx context.Context) error
	IsClosed() bool

	// CancelHandle returns a handle usable to cancel the connection's
	// currently running statement, or nil if the dialect has no
	// out-of-band cancellation mechanism.
	CancelHandle() CancelHandle

	// AsSchemaIntrospection returns the connection as a SchemaIntrospection,
	// or (nil, false) if the dialect doesn't implement it directly.
	AsSchemaIntrospection() (SchemaIntrospection, bool)

	DialectID() DialectID
}

// ConnectParams is the dialect-agnostic shape of a connection profile. Each
// driver interprets the fields it needs and ignores the rest.
type ConnectParams struct {
	Host     string
	Port     int
	Database string
	Username string
	Password string
	SSLMode  string
	Options  map[string]string
}

// DatabaseDriver is the factory every dialect package registers with the
// DriverRegistry.
type DatabaseDriver interface {
	Dialect() DialectInfo
	Connect(ctx context.Context, params ConnectParams) (Connection, error)
}

// DriverRegistry is an open registry of DatabaseDriver factories keyed by
// DialectID, generalizing a fixed dialect switch into a pluggable lookup so
// new dialects can register themselves from an init function.
type DriverRegistry struct {
	drivers map[DialectID]DatabaseDriver
}

// NewDriverRegistry creates an empty registry.
func NewDriverRegistry() *DriverRegistry {
	return &DriverRegistry{drivers: make(map[DialectID]DatabaseDriver)}
}

// Register adds driver under its own DialectID, overwriting any existing
// registration for the same ID.
func (r *DriverRegistry) Register(driver DatabaseDriver) {
	r.drivers[driver.Dialect().ID] = driver
}

// Get looks up a registered driver by dialect ID.
func (r *DriverRegistry) Get(id DialectID) (DatabaseDriver, error) {
	driver, ok := r.drivers[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedDialect, id)
	}
	return driver, nil
}

// Dialects lists every registered dialect's static info.
func (r *DriverRegistry) Dialects() []DialectInfo {
	infos := make([]DialectInfo, 0, len(r.drivers))
	for _, d := range r.drivers {
		infos = append(infos, d.Dialect())
	}
	return infos
}

// Connect resolves id to a driver and connects with params.
func (r *DriverRegistry) Connect(ctx context.Context, id DialectID, params ConnectParams) (Connection, error) {
	driver, err := r.Get(id)
	if err != nil {
		return nil, err
	}
	return driver.Connect(ctx, params)
}
