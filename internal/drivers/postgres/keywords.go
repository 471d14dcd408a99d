package postgres

// postgresKeywords feeds the LSP completion provider's dialect-specific
// keyword set.
var postgresKeywords = []string{
	"SELECT", "FROM", "WHERE", "GROUP BY", "ORDER BY", "HAVING", "LIMIT",
	"OFFSET", "JOIN", "INNER JOIN", "LEFT JOIN", "RIGHT JOIN", "FULL JOIN",
	"ON", "AS", "DISTINCT", "UNION", "UNION ALL", "INSERT INTO", "VALUES",
	"UPDATE", "SET", "DELETE FROM", "CREATE TABLE", "ALTER TABLE",
	"DROP TABLE", "CREATE INDEX", "CREATE UNIQUE INDEX", "PRIMARY KEY",
	"FOREIGN KEY", "REFERENCES", "NOT NULL", "DEFAULT", "CHECK", "RETURNING",
	"WITH", "RECURSIVE", "CASE", "WHEN", "THEN", "ELSE", "END", "EXISTS",
	"IN", "NOT IN", "BETWEEN", "LIKE", "ILIKE", "IS NULL", "IS NOT NULL",
	"AND", "OR", "NOT", "ARRAY", "JSONB", "JSON", "EXTRACT", "COALESCE",
	"NOW()", "CURRENT_TIMESTAMP", "BEGIN", "COMMIT", "ROLLBACK", "EXPLAIN",
	"ANALYZE", "VACUUM", "CONFLICT", "DO NOTHING", "DO UPDATE",
}
