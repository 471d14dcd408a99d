// Package sqlite implements the SQLite dialect driver over database/sql and
// modernc.org/sqlite, a pure-Go driver so the workbench daemon stays
// cgo-free.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite"

	"github.com/vitaliisemenov/zqlz/internal/driverapi"
	"github.com/vitaliisemenov/zqlz/internal/drivers/sqldb"
)

// Driver implements driverapi.DatabaseDriver for SQLite.
type Driver struct {
	logger *slog.Logger
}

// NewDriver creates a SQLite driverapi.DatabaseDriver.
func NewDriver(logger *slog.Logger) *Driver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Driver{logger: logger}
}

func (d *Driver) Dialect() driverapi.DialectInfo {
	return driverapi.DialectInfo{
		ID:              driverapi.DialectSQLite,
		DisplayName:     "SQLite",
		ParamStyle:      driverapi.ParamStyleQuestion,
		IdentifierQuote: `"`,
		SupportsSchemas: false,
		Keywords: []string{
			"SELECT", "INSERT", "UPDATE", "DELETE", "FROM", "WHERE", "JOIN",
			"PRAGMA", "ATTACH", "VACUUM", "WITHOUT ROWID", "AUTOINCREMENT",
		},
	}
}

// Connect opens a SQLite database file. params.Database is the filesystem
// path, or ":memory:" for an ephemeral in-process database; params.Options
// may set "mode" (ro/rw/rwc). Other options, including "cache", are ignored.
func (d *Driver) Connect(ctx context.Context, params driverapi.ConnectParams) (driverapi.Connection, error) {
	path := params.Database
	if path == "" {
		path = ":memory:"
	}

	dsn := path
	if mode, ok := params.Options["mode"]; ok {
		dsn = fmt.Sprintf("%s?mode=%s", path, mode)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", driverapi.ErrConnectionRefused, err)
	}
	// SQLite allows only one writer at a time; serialize access through a
	// single connection rather than letting database/sql hand out a pool
	// that would collide on write locks.
	db.SetMaxOpenConns(1)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %v", driverapi.ErrConnectionRefused, err)
	}

	d.logger.Info("opened sqlite database", "path", path)
	return sqldb.New(db, driverapi.DialectSQLite), nil
}
