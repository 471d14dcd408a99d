// Package mysql implements the MySQL dialect driver over database/sql and
// go-sql-driver/mysql.
package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/go-sql-driver/mysql"

	"github.com/vitaliisemenov/zqlz/internal/driverapi"
	"github.com/vitaliisemenov/zqlz/internal/drivers/sqldb"
)

// Driver implements driverapi.DatabaseDriver for MySQL/MariaDB.
type Driver struct {
	logger *slog.Logger
}

// NewDriver creates a MySQL driverapi.DatabaseDriver.
func NewDriver(logger *slog.Logger) *Driver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Driver{logger: logger}
}

func (d *Driver) Dialect() driverapi.DialectInfo {
	return driverapi.DialectInfo{
		ID:              driverapi.DialectMySQL,
		DisplayName:     "MySQL",
		ParamStyle:      driverapi.ParamStyleQuestion,
		IdentifierQuote: "`",
		SupportsSchemas: true,
		Keywords: []string{
			"SELECT", "INSERT", "UPDATE", "DELETE", "FROM", "WHERE", "JOIN",
			"INNER", "LEFT", "RIGHT", "ON", "GROUP BY", "ORDER BY", "LIMIT",
			"HAVING", "UNION", "DISTINCT", "AUTO_INCREMENT", "ENGINE", "CHARSET",
		},
	}
}

// Connect opens a MySQL connection pool and verifies it with Ping.
func (d *Driver) Connect(ctx context.Context, params driverapi.ConnectParams) (driverapi.Connection, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&multiStatements=true",
		params.Username, params.Password, params.Host, params.Port, params.Database)

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", driverapi.ErrConnectionRefused, err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %v", driverapi.ErrConnectionRefused, err)
	}

	d.logger.Info("connected to mysql", "host", params.Host, "port", params.Port, "database", params.Database)
	return sqldb.New(db, driverapi.DialectMySQL), nil
}
