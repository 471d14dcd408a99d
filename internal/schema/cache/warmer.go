package cache

import (
	"context"
	"log/slog"
	"time"

	"github.com/vitaliisemenov/zqlz/internal/schema"
)

// TableDescriber is the subset of schema.PostgresIntrospector (or an
// equivalent dialect introspector) the warmer needs to refresh cached table
// metadata.
type TableDescriber interface {
	DescribeTable(ctx context.Context, schemaName, table string) (*schema.TableInfo, error)
}

// TableRef names one table to keep warm in the cache.
type TableRef struct {
	Schema string
	Table  string
}

// Warmer periodically re-describes and caches, for a fixed set of tables,
// each one whose metadata is not currently cached, so a workbench session
// opening a frequently-browsed table avoids the catalog-query latency on its
// first request. Entries still cached are left as they are.
type Warmer struct {
	cacheManager *Manager
	describer    TableDescriber
	targets      []TableRef
	logger       *slog.Logger
	stopCh       chan struct{}
}

// NewWarmer creates a new cache warmer over the given tables.
func NewWarmer(
	cacheManager *Manager,
	describer TableDescriber,
	targets []TableRef,
	logger *slog.Logger,
) *Warmer {
	if logger == nil {
		logger = slog.Default()
	}

	return &Warmer{
		cacheManager: cacheManager,
		describer:    describer,
		targets:      targets,
		logger:       logger,
		stopCh:       make(chan struct{}),
	}
}

// Start starts the cache warming background worker.
func (cw *Warmer) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// Warm cache immediately on start
	cw.warmCache(ctx)

	for {
		select {
		case <-ticker.C:
			cw.warmCache(ctx)
		case <-cw.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

// Stop stops the cache warming worker.
func (cw *Warmer) Stop() {
	close(cw.stopCh)
}

type tableRequest struct {
	Schema string `json:"schema"`
	Table  string `json:"table"`
}

// warmCache describes and caches every configured target that is not
// already cached; cached targets are skipped.
func (cw *Warmer) warmCache(ctx context.Context) {
	cw.logger.Info("Starting cache warming", "targets", len(cw.targets))
	start := time.Now()

	warmed := 0
	for _, target := range cw.targets {
		cacheKey := cw.cacheManager.GenerateCacheKey(tableRequest{Schema: target.Schema, Table: target.Table})
		if _, found := cw.cacheManager.Get(ctx, cacheKey); found {
			continue // Already cached
		}

		info, err := cw.describer.DescribeTable(ctx, target.Schema, target.Table)
		if err != nil {
			cw.logger.Warn("Failed to warm cache for table",
				"schema", target.Schema,
				"table", target.Table,
				"error", err)
			continue
		}

		if err := cw.cacheManager.Set(ctx, cacheKey, info); err != nil {
			cw.logger.Warn("Failed to cache warmed table",
				"schema", target.Schema,
				"table", target.Table,
				"error", err)
			continue
		}

		warmed++
	}

	duration := time.Since(start)
	cw.logger.Info("Cache warming complete",
		"warmed_tables", warmed,
		"total_tables", len(cw.targets),
		"duration_ms", duration.Milliseconds())
}
