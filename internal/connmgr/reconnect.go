package connmgr

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/vitaliisemenov/zqlz/internal/dbval"
	"github.com/vitaliisemenov/zqlz/internal/driverapi"
)

// ErrPermanentlyClosed is returned by every operation on a
// ReconnectingConnection after Close has been called.
var ErrPermanentlyClosed = fmt.Errorf("%w: permanently closed", driverapi.ErrConnectionClosed)

// ConnectionFactory creates a fresh driverapi.Connection, used by
// ReconnectingConnection to replace a dead inner connection.
type ConnectionFactory func(ctx context.Context) (driverapi.Connection, error)

// isRetryable decides whether err should trigger a reconnect-and-retry
// cycle rather than being returned to the caller immediately. Connection,
// I/O, and timeout errors always retry; query errors only retry when the
// wrapper's ReconnectConfig.RetryOnQueryError is set.
func isRetryable(err error, retryOnQueryError bool) bool {
	if err == nil {
		return false
	}
	switch {
	case errors.Is(err, driverapi.ErrConnectionClosed),
		errors.Is(err, driverapi.ErrConnectionRefused),
		errors.Is(err, driverapi.ErrQueryTimeout),
		errors.Is(err, context.DeadlineExceeded):
		return true
	case errors.Is(err, driverapi.ErrAuthenticationFailed),
		errors.Is(err, driverapi.ErrQueryCanceled),
		errors.Is(err, context.Canceled):
		return false
	default:
		return retryOnQueryError
	}
}

// delay computes the backoff wait before reconnect attempt n (1-based),
// per cfg: exponential growth from Initial by Factor, capped at Max, with
// full jitter (a uniform draw in [0, computed)) when Jitter is set.
func (cfg BackoffConfig) delay(attempt int) time.Duration {
	d := float64(cfg.Initial)
	for i := 1; i < attempt; i++ {
		d *= cfg.Factor
	}
	capped := d
	if max := float64(cfg.Max); capped > max {
		capped = max
	}
	if !cfg.Jitter || capped <= 0 {
		return time.Duration(capped)
	}
	return time.Duration(rand.Float64() * capped)
}

// ReconnectingConnection wraps a driverapi.Connection so a dropped network
// connection is transparently replaced rather than surfaced to the caller.
// State machine: Live -> (classified retriable error) -> Reconnecting(n) ->
// {Live|Failed}. The inner connection swap is guarded by mu so concurrent
// callers never observe a half-replaced connection.
type ReconnectingConnection struct {
	mu      sync.Mutex
	inner   driverapi.Connection
	factory ConnectionFactory
	cfg     ReconnectConfig
	logger  *slog.Logger

	permanentlyClosed  bool
	consecutiveFailures int
	dialect            driverapi.DialectID
}

// NewReconnectingConnection wraps an already-live connection, or starts
// with none and lazily creates one via factory on first use.
func NewReconnectingConnection(initial driverapi.Connection, factory ConnectionFactory, cfg ReconnectConfig, dialect driverapi.DialectID, logger *slog.Logger) *ReconnectingConnection {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReconnectingConnection{inner: initial, factory: factory, cfg: cfg, dialect: dialect, logger: logger}
}

// ConsecutiveFailures reports the current streak of reconnect failures,
// reset to 0 on every successful call.
func (r *ReconnectingConnection) ConsecutiveFailures() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.consecutiveFailures
}

// ensureInner returns the current inner connection, creating one via
// factory if absent. Caller must hold mu.
func (r *ReconnectingConnection) ensureInner(ctx context.Context) (driverapi.Connection, error) {
	if r.permanentlyClosed {
		return nil, ErrPermanentlyClosed
	}
	if r.inner != nil {
		return r.inner, nil
	}
	conn, err := r.factory(ctx)
	if err != nil {
		return nil, err
	}
	r.inner = conn
	return conn, nil
}

// withRetry runs op against the current inner connection, transparently
// reconnecting and retrying on classified retriable errors up to
// cfg.MaxAttempts. allowRetry=false lets a caller (e.g. BeginTransaction)
// force no-retry regardless of the wrapper's configured policy.
func (r *ReconnectingConnection) withRetry(ctx context.Context, allowRetry bool, op func(driverapi.Connection) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var lastErr error
	for attempt := 0; ; attempt++ {
		conn, err := r.ensureInner(ctx)
		if err != nil {
			return err
		}

		err = op(conn)
		if err == nil {
			r.consecutiveFailures = 0
			return nil
		}
		lastErr = err

		if !allowRetry || !isRetryable(err, r.cfg.RetryOnQueryError) || attempt >= r.cfg.MaxAttempts {
			r.consecutiveFailures++
			return lastErr
		}

		r.consecutiveFailures++
		wait := r.cfg.Backoff.delay(attempt + 1)
		r.logger.Warn("reconnecting after connection error",
			"dialect", r.dialect, "attempt", attempt+1, "delay", wait, "error", err)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}

		r.inner.Close(ctx)
		r.inner = nil
	}
}

func (r *ReconnectingConnection) Execute(ctx context.Context, sql string, args ...dbval.Value) (dbval.StatementResult, error) {
	var result dbval.StatementResult
	err := r.withRetry(ctx, true, func(c driverapi.Connection) error {
		var execErr error
		result, execErr = c.Execute(ctx, sql, args...)
		return execErr
	})
	return result, err
}

func (r *ReconnectingConnection) Query(ctx context.Context, sql string, args ...dbval.Value) (dbval.QueryResult, error) {
	var result dbval.QueryResult
	err := r.withRetry(ctx, true, func(c driverapi.Connection) error {
		var queryErr error
		result, queryErr = c.Query(ctx, sql, args...)
		return queryErr
	})
	return result, err
}

// BeginTransaction never retries: a mid-transaction reconnect would lose
// the transaction's state on the server, so a dropped connection here
// surfaces directly to the caller.
func (r *ReconnectingConnection) BeginTransaction(ctx context.Context) (driverapi.Transaction, error) {
	var tx driverapi.Transaction
	err := r.withRetry(ctx, false, func(c driverapi.Connection) error {
		var beginErr error
		tx, beginErr = c.BeginTransaction(ctx)
		return beginErr
	})
	return tx, err
}

// Close marks the wrapper permanently closed; every subsequent call fails
// immediately with ErrPermanentlyClosed, matching a plain connection's
// idempotent-close contract.
func (r *ReconnectingConnection) Close(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.permanentlyClosed {
		return nil
	}
	r.permanentlyClosed = true
	if r.inner != nil {
		err := r.inner.Close(ctx)
		r.inner = nil
		return err
	}
	return nil
}

func (r *ReconnectingConnection) IsClosed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.permanentlyClosed
}

func (r *ReconnectingConnection) CancelHandle() driverapi.CancelHandle {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.inner == nil {
		return nil
	}
	return r.inner.CancelHandle()
}

func (r *ReconnectingConnection) AsSchemaIntrospection() (driverapi.SchemaIntrospection, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.inner == nil {
		return nil, false
	}
	return r.inner.AsSchemaIntrospection()
}

func (r *ReconnectingConnection) DialectID() driverapi.DialectID {
	return r.dialect
}
