// Package redis implements the Redis dialect driver: a driverapi.Connection
// backed by go-redis, letting the workbench browse and mutate Redis
// keyspaces the way it browses SQL tables.
package redis

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vitaliisemenov/zqlz/internal/dbval"
	"github.com/vitaliisemenov/zqlz/internal/driverapi"
)

// Driver implements driverapi.DatabaseDriver for Redis.
type Driver struct {
	logger *slog.Logger
}

// NewDriver creates a Redis driverapi.DatabaseDriver.
func NewDriver(logger *slog.Logger) *Driver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Driver{logger: logger}
}

func (d *Driver) Dialect() driverapi.DialectInfo {
	return driverapi.DialectInfo{
		ID:              driverapi.DialectRedis,
		DisplayName:     "Redis",
		ParamStyle:      driverapi.ParamStyleQuestion,
		IdentifierQuote: "",
		SupportsSchemas: false,
		Keywords: []string{
			"GET", "SET", "DEL", "EXISTS", "EXPIRE", "TTL", "KEYS", "SCAN",
			"HGET", "HSET", "HGETALL", "HDEL", "LPUSH", "RPUSH", "LRANGE",
			"SADD", "SMEMBERS", "SREM", "ZADD", "ZRANGE", "TYPE", "INCR",
		},
	}
}

// Connect dials Redis and verifies it with a PING before handing back a
// connection; params.Options["db"] selects the logical database (default 0).
func (d *Driver) Connect(ctx context.Context, params driverapi.ConnectParams) (driverapi.Connection, error) {
	db := 0
	if dbStr, ok := params.Options["db"]; ok {
		if parsed, err := strconv.Atoi(dbStr); err == nil {
			db = parsed
		}
	}

	addr := fmt.Sprintf("%s:%d", params.Host, params.Port)
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     params.Password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		MaxRetries:   3,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", driverapi.ErrConnectionRefused, err)
	}

	d.logger.Info("connected to redis", "addr", addr, "db", db)
	return &Connection{client: client}, nil
}

// Connection adapts a *redis.Client to driverapi.Connection. Statements are
// plain Redis commands ("GET foo", "HSET h f v") rather than SQL; Query
// shapes the reply into a result grid so browsing Redis looks like browsing
// a SQL table.
type Connection struct {
	client *redis.Client
	closed bool
}

// tokenize splits a Redis command line on whitespace, honoring single and
// double quoted arguments so values containing spaces survive.
func tokenize(line string) []string {
	var tokens []string
	var cur strings.Builder
	var quote rune
	inQuote := false

	flush := func() {
		if cur.Len() > 0 {
			tokens = append(tokens, cur.String())
			cur.Reset()
		}
	}

	for _, r := range line {
		switch {
		case inQuote:
			if r == quote {
				inQuote = false
			} else {
				cur.WriteRune(r)
			}
		case r == '\'' || r == '"':
			inQuote = true
			quote = r
		case r == ' ' || r == '\t':
			flush()
		default:
			cur.WriteRune(r)
		}
	}
	flush()
	return tokens
}

func (c *Connection) do(ctx context.Context, command string) (*redis.Cmd, error) {
	tokens := tokenize(command)
	if len(tokens) == 0 {
		return nil, fmt.Errorf("empty redis command")
	}
	args := make([]interface{}, len(tokens))
	for i, t := range tokens {
		args[i] = t
	}
	cmd := c.client.Do(ctx, args...)
	return cmd, cmd.Err()
}

func (c *Connection) Execute(ctx context.Context, sql string, args ...dbval.Value) (dbval.StatementResult, error) {
	if c.closed {
		return dbval.StatementResult{}, driverapi.ErrConnectionClosed
	}
	_, err := c.do(ctx, sql)
	if err != nil && err != redis.Nil {
		return dbval.StatementResult{}, err
	}
	return dbval.StatementResult{RowsAffected: 1}, nil
}

// Query runs a Redis command and shapes the reply into a (key, value) or
// (key, type) grid. KEYS/SCAN list the keyspace; anything else runs as a
// raw command and returns its result alongside the command text.
func (c *Connection) Query(ctx context.Context, sql string, args ...dbval.Value) (dbval.QueryResult, error) {
	if c.closed {
		return dbval.QueryResult{}, driverapi.ErrConnectionClosed
	}

	trimmed := strings.TrimSpace(sql)
	upper := strings.ToUpper(trimmed)

	if strings.HasPrefix(upper, "KEYS") || strings.HasPrefix(upper, "SCAN") {
		pattern := "*"
		if fields := tokenize(trimmed); len(fields) > 1 {
			pattern = fields[len(fields)-1]
		}
		keys, err := c.client.Keys(ctx, pattern).Result()
		if err != nil {
			return dbval.QueryResult{}, err
		}
		rows := make([]dbval.Row, 0, len(keys))
		for _, key := range keys {
			typ, _ := c.client.Type(ctx, key).Result()
			rows = append(rows, dbval.Row{dbval.NewString(key), dbval.NewString(typ)})
		}
		return dbval.QueryResult{Columns: dbval.Columns{
			{Name: "key", Kind: dbval.KindString},
			{Name: "type", Kind: dbval.KindString},
		}, Rows: rows}, nil
	}

	cmd, err := c.do(ctx, sql)
	if err != nil && err != redis.Nil {
		return dbval.QueryResult{}, err
	}

	columns := dbval.Columns{
		{Name: "key", Kind: dbval.KindString},
		{Name: "value", Kind: dbval.KindString},
	}

	result, _ := cmd.Result()
	var rows []dbval.Row
	switch v := result.(type) {
	case []interface{}:
		for _, item := range v {
			rows = append(rows, dbval.Row{dbval.NewString(fmt.Sprintf("%v", item)), dbval.Null()})
		}
	default:
		rows = append(rows, dbval.Row{dbval.NewString(trimmed), dbval.NewString(fmt.Sprintf("%v", result))})
	}

	return dbval.QueryResult{Columns: columns, Rows: rows}, nil
}

// BeginTransaction starts a Redis MULTI/EXEC transaction pipeline.
func (c *Connection) BeginTransaction(ctx context.Context) (driverapi.Transaction, error) {
	return &transaction{pipe: c.client.TxPipeline()}, nil
}

func (c *Connection) Close(ctx context.Context) error {
	c.closed = true
	return c.client.Close()
}

func (c *Connection) IsClosed() bool {
	return c.closed
}

func (c *Connection) CancelHandle() driverapi.CancelHandle {
	return nil
}

func (c *Connection) AsSchemaIntrospection() (driverapi.SchemaIntrospection, bool) {
	return nil, false
}

func (c *Connection) DialectID() driverapi.DialectID {
	return driverapi.DialectRedis
}

// transaction buffers commands in a TxPipeline, executed atomically on
// Commit.
type transaction struct {
	pipe redis.Pipeliner
}

func (t *transaction) Execute(ctx context.Context, sql string, args ...dbval.Value) (dbval.StatementResult, error) {
	tokens := tokenize(sql)
	if len(tokens) == 0 {
		return dbval.StatementResult{}, fmt.Errorf("empty redis command")
	}
	cmdArgs := make([]interface{}, len(tokens))
	for i, tok := range tokens {
		cmdArgs[i] = tok
	}
	t.pipe.Do(ctx, cmdArgs...)
	return dbval.StatementResult{RowsAffected: 1}, nil
}

func (t *transaction) Query(ctx context.Context, sql string, args ...dbval.Value) (dbval.QueryResult, error) {
	return dbval.QueryResult{}, fmt.Errorf("redis transactions do not support reads before commit")
}

func (t *transaction) Commit(ctx context.Context) error {
	_, err := t.pipe.Exec(ctx)
	return err
}

func (t *transaction) Rollback(ctx context.Context) error {
	t.pipe.Discard()
	return nil
}
