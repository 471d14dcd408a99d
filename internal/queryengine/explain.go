package queryengine

import (
	"context"
	"errors"

	"github.com/vitaliisemenov/zqlz/internal/dbval"
	"github.com/vitaliisemenov/zqlz/internal/driverapi"
)

// ErrExplainNotSupported is returned by Explain for dialects with no
// execution-plan facility (Redis).
var ErrExplainNotSupported = errors.New("queryengine: EXPLAIN is not supported by this dialect")

// ExplainResult is the raw rows/plan text returned by a dialect's EXPLAIN
// variant, left undecoded since each dialect's plan shape differs (JSON for
// PostgreSQL, tabular text for MySQL/SQLite, XML for MSSQL).
type ExplainResult struct {
	Dialect driverapi.DialectID
	Raw     dbval.QueryResult
}

// Explain runs the dialect-appropriate EXPLAIN statement for sql against
// conn and returns its raw result, undecoded.
func Explain(ctx context.Context, conn driverapi.Connection, dialect driverapi.DialectID, sql string, analyze bool) (ExplainResult, error) {
	stmt, err := explainStatement(dialect, sql, analyze)
	if err != nil {
		return ExplainResult{}, err
	}
	result, err := conn.Query(ctx, stmt)
	if err != nil {
		return ExplainResult{}, err
	}
	return ExplainResult{Dialect: dialect, Raw: result}, nil
}

func explainStatement(dialect driverapi.DialectID, sql string, analyze bool) (string, error) {
	switch dialect {
	case driverapi.DialectPostgres:
		if analyze {
			return "EXPLAIN (ANALYZE, FORMAT JSON) " + sql, nil
		}
		return "EXPLAIN (FORMAT JSON) " + sql, nil
	case driverapi.DialectMySQL:
		if analyze {
			return "EXPLAIN ANALYZE " + sql, nil
		}
		return "EXPLAIN " + sql, nil
	case driverapi.DialectSQLite:
		// ANALYZE has no separate SQLite form; EXPLAIN QUERY PLAN covers both.
		return "EXPLAIN QUERY PLAN " + sql, nil
	case driverapi.DialectRedis:
		return "", ErrExplainNotSupported
	default:
		return "", ErrExplainNotSupported
	}
}
