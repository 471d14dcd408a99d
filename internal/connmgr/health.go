package connmgr

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/vitaliisemenov/zqlz/internal/driverapi"
)

// Prober runs one dialect-appropriate liveness probe ("SELECT 1" for SQL
// dialects, "PING" for Redis) against a connection.
type Prober interface {
	Probe(ctx context.Context, conn driverapi.Connection) error
}

// probeFunc adapts a plain function to Prober.
type probeFunc func(ctx context.Context, conn driverapi.Connection) error

func (f probeFunc) Probe(ctx context.Context, conn driverapi.Connection) error { return f(ctx, conn) }

// DefaultProber issues "SELECT 1" via Query, which every SQL/Redis driver
// in this workbench accepts (the redis driver treats it as a raw command
// and simply errors, which is itself a valid unhealthy signal).
var DefaultProber Prober = probeFunc(func(ctx context.Context, conn driverapi.Connection) error {
	_, err := conn.Query(ctx, "SELECT 1")
	return err
})

// HealthChecker runs periodic liveness probes against a connection,
// generalizing the teacher's Postgres-specific DefaultHealthChecker to any
// driverapi.Connection. A rate.Limiter caps probe frequency so a caller
// invoking CheckHealth eagerly (e.g. from a UI refresh) can't flood the
// database with "SELECT 1"s.
type HealthChecker struct {
	conn       driverapi.Connection
	prober     Prober
	thresholds HealthThresholds
	limiter    *rate.Limiter
	failureThreshold int

	mu                  sync.Mutex
	lastResult          HealthCheckResult
	consecutiveFailures int
	running             bool
	stopCh              chan struct{}
	logger              *slog.Logger
}

// NewHealthChecker builds a checker that probes conn no more than once per
// minProbeInterval, classifying latency with thresholds and treating
// failureThreshold consecutive failures as the point downstream observers
// should consider the connection unhealthy.
func NewHealthChecker(conn driverapi.Connection, thresholds HealthThresholds, minProbeInterval time.Duration, failureThreshold int, logger *slog.Logger) *HealthChecker {
	if logger == nil {
		logger = slog.Default()
	}
	return &HealthChecker{
		conn:             conn,
		prober:           DefaultProber,
		thresholds:       thresholds,
		limiter:          rate.NewLimiter(rate.Every(minProbeInterval), 1),
		failureThreshold: failureThreshold,
		lastResult:       HealthCheckResult{Status: HealthUnknown},
		logger:           logger,
	}
}

// CheckHealth runs one probe immediately, blocking on the rate limiter if
// called faster than minProbeInterval allows.
func (h *HealthChecker) CheckHealth(ctx context.Context) HealthCheckResult {
	if err := h.limiter.Wait(ctx); err != nil {
		return HealthCheckResult{Status: HealthUnknown, Err: err, CheckedAt: time.Now()}
	}

	start := time.Now()
	err := h.prober.Probe(ctx, h.conn)
	latency := time.Since(start)

	h.mu.Lock()
	defer h.mu.Unlock()

	var result HealthCheckResult
	if err != nil {
		h.consecutiveFailures++
		result = HealthCheckResult{Status: HealthUnhealthy, Latency: latency, Err: err, ConsecutiveFailures: h.consecutiveFailures, CheckedAt: time.Now()}
	} else {
		h.consecutiveFailures = 0
		result = HealthCheckResult{Status: h.thresholds.Classify(latency), Latency: latency, ConsecutiveFailures: 0, CheckedAt: time.Now()}
	}
	h.lastResult = result
	return result
}

// IsHealthy reports whether the connection has stayed under the failure
// threshold; a connection with fewer than failureThreshold consecutive
// failures is still considered healthy even mid-degradation.
func (h *HealthChecker) IsHealthy() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.consecutiveFailures < h.failureThreshold
}

// LastResult returns the outcome of the most recent probe.
func (h *HealthChecker) LastResult() HealthCheckResult {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.lastResult
}

// ResetFailures clears the consecutive-failure counter and restores
// Healthy, without running a new probe.
func (h *HealthChecker) ResetFailures() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.consecutiveFailures = 0
	h.lastResult = HealthCheckResult{Status: HealthHealthy, CheckedAt: time.Now()}
}

// Start runs CheckHealth every interval until Stop is called or ctx ends.
func (h *HealthChecker) Start(ctx context.Context, interval time.Duration) {
	h.mu.Lock()
	if h.running {
		h.mu.Unlock()
		return
	}
	h.running = true
	h.stopCh = make(chan struct{})
	stopCh := h.stopCh
	h.mu.Unlock()

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				h.mu.Lock()
				h.running = false
				h.mu.Unlock()
				return
			case <-stopCh:
				return
			case <-ticker.C:
				checkCtx, cancel := context.WithTimeout(ctx, interval)
				result := h.CheckHealth(checkCtx)
				cancel()
				if result.Err != nil {
					h.logger.Warn("health check failed", "error", result.Err, "consecutive_failures", result.ConsecutiveFailures)
				}
			}
		}
	}()
}

// Stop ends the periodic probe loop started by Start.
func (h *HealthChecker) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.running {
		return
	}
	h.running = false
	close(h.stopCh)
}
