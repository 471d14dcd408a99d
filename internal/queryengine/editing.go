package queryengine

import (
	"context"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/vitaliisemenov/zqlz/internal/dbval"
	"github.com/vitaliisemenov/zqlz/internal/driverapi"
)

// CellUpdateData describes a single grid-cell edit: the column being
// written, its new value, and enough of the row's own shape to build a
// WHERE clause that identifies it uniquely.
type CellUpdateData struct {
	Column       string
	NewValue     dbval.Value
	AllCols      []string
	AllRowValues []dbval.Value
	AllColTypes  []dbval.Kind
	PKColumn     string // empty when the table has no known primary key
}

// UpdateCell issues a dialect-quoted UPDATE for one cell, identifying the
// row by primary key when known, or by AND-combining every column's current
// value otherwise.
func UpdateCell(ctx context.Context, conn driverapi.Connection, dialect driverapi.DialectInfo, table, schema string, data CellUpdateData) error {
	qualified := dialect.QuoteIdentifier(table)
	if schema != "" {
		qualified = dialect.QuoteIdentifier(schema) + "." + qualified
	}

	var where []string
	var args []dbval.Value
	n := 1
	setPlaceholder := dialect.Placeholder(n)

	if data.PKColumn != "" {
		idx := indexOf(data.AllCols, data.PKColumn)
		if idx < 0 {
			return fmt.Errorf("queryengine: primary key column %q not present in row", data.PKColumn)
		}
		n++
		where = append(where, fmt.Sprintf("%s = %s", dialect.QuoteIdentifier(data.PKColumn), dialect.Placeholder(n)))
		args = append(args, data.AllRowValues[idx])
	} else {
		for i, col := range data.AllCols {
			n++
			where = append(where, fmt.Sprintf("%s = %s", dialect.QuoteIdentifier(col), dialect.Placeholder(n)))
			args = append(args, data.AllRowValues[i])
		}
	}

	sql := fmt.Sprintf("UPDATE %s SET %s = %s WHERE %s",
		qualified, dialect.QuoteIdentifier(data.Column), setPlaceholder, strings.Join(where, " AND "))
	args = append([]dbval.Value{data.NewValue}, args...)

	_, err := conn.Execute(ctx, sql, args...)
	return err
}

func indexOf(cols []string, name string) int {
	for i, c := range cols {
		if c == name {
			return i
		}
	}
	return -1
}

// ParseInlineValue converts a user's raw text into a Value by consulting
// the destination column's Kind.
func ParseInlineValue(text string, kind dbval.Kind) (dbval.Value, error) {
	if text == "" {
		return dbval.Null(), nil
	}
	switch kind {
	case dbval.KindBool:
		b, err := strconv.ParseBool(text)
		if err != nil {
			return dbval.Value{}, fmt.Errorf("queryengine: parsing bool %q: %w", text, err)
		}
		return dbval.NewBool(b), nil
	case dbval.KindInt8, dbval.KindInt16, dbval.KindInt32, dbval.KindInt64:
		i, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			return dbval.Value{}, fmt.Errorf("queryengine: parsing int %q: %w", text, err)
		}
		return dbval.NewInt64(i), nil
	case dbval.KindFloat32, dbval.KindFloat64:
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return dbval.Value{}, fmt.Errorf("queryengine: parsing float %q: %w", text, err)
		}
		return dbval.NewFloat64(f), nil
	case dbval.KindDecimal:
		return dbval.NewDecimal(text), nil
	case dbval.KindBytes:
		decoded, err := hex.DecodeString(strings.TrimPrefix(text, "0x"))
		if err != nil {
			return dbval.Value{}, fmt.Errorf("queryengine: parsing hex bytes %q: %w", text, err)
		}
		return dbval.NewBytes(decoded), nil
	case dbval.KindDate:
		t, err := time.Parse("2006-01-02", text)
		if err != nil {
			return dbval.Value{}, fmt.Errorf("queryengine: parsing date %q: %w", text, err)
		}
		return dbval.NewDate(t), nil
	case dbval.KindDateTime, dbval.KindDateTimeUTC:
		t, err := time.Parse("2006-01-02T15:04:05", text)
		if err != nil {
			return dbval.Value{}, fmt.Errorf("queryengine: parsing datetime %q: %w", text, err)
		}
		return dbval.NewDateTime(t), nil
	default:
		return dbval.NewString(text), nil
	}
}

// GenerateBulkUpdateSQL emits an UPDATE ... SET col = newValue WHERE pkCol
// IN (...) statement with pkValues inlined and formatted per dialect, for
// drivers that cannot bind parameters inside a generated preview/export.
func GenerateBulkUpdateSQL(table, col, pkCol string, pkValues []dbval.Value, newValue dbval.Value, dialect driverapi.DialectInfo) string {
	return fmt.Sprintf("UPDATE %s SET %s = %s WHERE %s IN (%s)",
		dialect.QuoteIdentifier(table),
		dialect.QuoteIdentifier(col),
		formatLiteral(newValue),
		dialect.QuoteIdentifier(pkCol),
		joinLiterals(pkValues),
	)
}

// GenerateBulkDeleteSQL emits a DELETE FROM ... WHERE pkCol IN (...)
// statement with pkValues inlined per-dialect.
func GenerateBulkDeleteSQL(table, pkCol string, pkValues []dbval.Value, dialect driverapi.DialectInfo) string {
	return fmt.Sprintf("DELETE FROM %s WHERE %s IN (%s)",
		dialect.QuoteIdentifier(table),
		dialect.QuoteIdentifier(pkCol),
		joinLiterals(pkValues),
	)
}

func joinLiterals(values []dbval.Value) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = formatLiteral(v)
	}
	return strings.Join(parts, ", ")
}

// formatLiteral renders v as a SQL literal: quoted strings with ' doubled,
// X'hex' for bytes, ARRAY[...] for arrays, bare literals for numerics and
// bools, NULL for null.
func formatLiteral(v dbval.Value) string {
	switch v.Kind() {
	case dbval.KindNull:
		return "NULL"
	case dbval.KindBool:
		b, _ := v.Bool()
		if b {
			return "true"
		}
		return "false"
	case dbval.KindInt8, dbval.KindInt16, dbval.KindInt32, dbval.KindInt64:
		i, _ := v.Int64()
		return strconv.FormatInt(i, 10)
	case dbval.KindFloat32, dbval.KindFloat64:
		f, _ := v.Float64()
		return strconv.FormatFloat(f, 'g', -1, 64)
	case dbval.KindBytes:
		b, _ := v.Bytes()
		return "X'" + hex.EncodeToString(b) + "'"
	case dbval.KindArray:
		arr, _ := v.Array()
		return "ARRAY[" + joinLiterals(arr) + "]"
	default:
		s := v.Display()
		return "'" + strings.ReplaceAll(s, "'", "''") + "'"
	}
}
