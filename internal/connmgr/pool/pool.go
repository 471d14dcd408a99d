// Package pool implements a dialect-agnostic connection pool over
// driverapi.Connection, generalizing the teacher's pgxpool-backed
// PostgresPool to any driver registered with the connection manager.
//
// No example repo ships a generic (non-database/sql, non-pgx) connection
// pool library, so this is hand-rolled over sync/channels rather than
// wrapping a third-party pool.
package pool

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/vitaliisemenov/zqlz/internal/driverapi"
)

// Factory creates a fresh connection for the pool to hand out.
type Factory func(ctx context.Context) (driverapi.Connection, error)

// Config bounds the pool's size and lifetime behavior.
type Config struct {
	MinSize        int
	MaxSize        int
	AcquireTimeout time.Duration
	IdleTimeout    time.Duration
	MaxLifetime    time.Duration // 0 = unbounded
}

type pooledConn struct {
	conn      driverapi.Connection
	createdAt time.Time
	idleSince time.Time
}

// Pool hands out at most Config.MaxSize concurrent connections, queuing
// acquirers FIFO once the pool is exhausted, and reaps idle/expired
// connections on a background timer.
type Pool struct {
	cfg     Config
	factory Factory
	logger  *slog.Logger

	mu      sync.Mutex
	idle    []*pooledConn
	active  int
	waiters []chan acquireResult
	closed  bool
	stopCh  chan struct{}
}

type acquireResult struct {
	conn *pooledConn
	err  error
}

// ErrAcquireTimeout is returned when no connection becomes available
// within Config.AcquireTimeout.
var ErrAcquireTimeout = fmt.Errorf("%w: acquire timed out", driverapi.ErrQueryTimeout)

// ErrPoolClosed is returned by Acquire once the pool has been closed.
var ErrPoolClosed = fmt.Errorf("%w: pool closed", driverapi.ErrConnectionClosed)

// New creates a pool and starts its background reaper.
func New(cfg Config, factory Factory, logger *slog.Logger) *Pool {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Pool{cfg: cfg, factory: factory, logger: logger, stopCh: make(chan struct{})}
	go p.reapLoop()
	return p
}

// Acquire returns a live connection, creating one if the pool has spare
// capacity, or blocking FIFO behind other waiters up to cfg.AcquireTimeout.
func (p *Pool) Acquire(ctx context.Context) (driverapi.Connection, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, ErrPoolClosed
	}

	if n := len(p.idle); n > 0 {
		pc := p.idle[n-1]
		p.idle = p.idle[:n-1]
		p.active++
		p.mu.Unlock()
		return pc.conn, nil
	}

	if p.active < p.cfg.MaxSize {
		p.active++
		p.mu.Unlock()
		conn, err := p.factory(ctx)
		if err != nil {
			p.mu.Lock()
			p.active--
			p.mu.Unlock()
			return nil, err
		}
		return conn, nil
	}

	// Pool exhausted: queue FIFO behind any existing waiters.
	ch := make(chan acquireResult, 1)
	p.waiters = append(p.waiters, ch)
	p.mu.Unlock()

	timer := time.NewTimer(p.cfg.AcquireTimeout)
	defer timer.Stop()

	select {
	case result := <-ch:
		if result.err != nil {
			return nil, result.err
		}
		return result.conn.conn, nil
	case <-timer.C:
		p.removeWaiter(ch)
		return nil, ErrAcquireTimeout
	case <-ctx.Done():
		p.removeWaiter(ch)
		return nil, ctx.Err()
	}
}

func (p *Pool) removeWaiter(ch chan acquireResult) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, w := range p.waiters {
		if w == ch {
			p.waiters = append(p.waiters[:i], p.waiters[i+1:]...)
			return
		}
	}
}

// Release returns conn to the idle set, handing it directly to the oldest
// waiting Acquire call if one is queued.
func (p *Pool) Release(conn driverapi.Connection) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.active--
	pc := &pooledConn{conn: conn, createdAt: time.Now(), idleSince: time.Now()}

	if len(p.waiters) > 0 {
		ch := p.waiters[0]
		p.waiters = p.waiters[1:]
		p.active++
		ch <- acquireResult{conn: pc}
		return
	}

	if conn.IsClosed() {
		return
	}
	p.idle = append(p.idle, pc)
}

// Discard drops conn from the pool entirely (used when the caller knows
// the connection is dead and shouldn't be recycled).
func (p *Pool) Discard(ctx context.Context, conn driverapi.Connection) {
	p.mu.Lock()
	p.active--
	p.mu.Unlock()
	conn.Close(ctx)
}

// Stats reports the pool's current occupancy.
func (p *Pool) Stats() (total, idle, active, waiting int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.active + len(p.idle), len(p.idle), p.active, len(p.waiters)
}

// reapLoop periodically closes idle connections past IdleTimeout or
// MaxLifetime, keeping at least MinSize idle when candidates remain.
func (p *Pool) reapLoop() {
	interval := p.cfg.IdleTimeout
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-p.stopCh:
			return
		case <-ticker.C:
			p.reapOnce()
		}
	}
}

func (p *Pool) reapOnce() {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := time.Now()
	kept := p.idle[:0]
	for _, pc := range p.idle {
		expired := now.Sub(pc.idleSince) > p.cfg.IdleTimeout
		aged := p.cfg.MaxLifetime > 0 && now.Sub(pc.createdAt) > p.cfg.MaxLifetime
		if (expired || aged) && len(kept) >= p.cfg.MinSize {
			go pc.conn.Close(context.Background())
			continue
		}
		kept = append(kept, pc)
	}
	p.idle = kept
}

// Close stops the reaper and closes every idle connection; connections
// still checked out are closed as they're Released or Discarded.
func (p *Pool) Close(ctx context.Context) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	idle := p.idle
	p.idle = nil
	close(p.stopCh)
	p.mu.Unlock()

	var firstErr error
	for _, pc := range idle {
		if err := pc.conn.Close(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
