package cache

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/vitaliisemenov/zqlz/internal/schema"
)

// mockDescriber implements TableDescriber for testing.
type mockDescriber struct {
	mu    sync.Mutex
	info  *schema.TableInfo
	err   error
	calls int
}

func (m *mockDescriber) DescribeTable(ctx context.Context, schemaName, table string) (*schema.TableInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	if m.info != nil {
		return m.info, nil
	}
	return &schema.TableInfo{Schema: schemaName, Name: table}, nil
}

func (m *mockDescriber) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func defaultTargets() []TableRef {
	return []TableRef{
		{Schema: "public", Table: "customers"},
		{Schema: "public", Table: "orders"},
	}
}

// TestWarmer_NewWarmer tests warmer creation
func TestWarmer_NewWarmer(t *testing.T) {
	config := DefaultConfig()
	config.L2Enabled = false
	manager, err := NewManager(config, nil)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	describer := &mockDescriber{}
	warmer := NewWarmer(manager, describer, defaultTargets(), nil)

	if warmer == nil {
		t.Fatal("NewWarmer() returned nil")
	}
}

// TestWarmer_StartStop tests warmer lifecycle
func TestWarmer_StartStop(t *testing.T) {
	config := DefaultConfig()
	config.L2Enabled = false
	manager, err := NewManager(config, nil)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	describer := &mockDescriber{
		info: &schema.TableInfo{Schema: "public", Name: "customers", RowEstimate: 10},
	}

	warmer := NewWarmer(manager, describer, defaultTargets(), nil)

	ctx := context.Background()

	// Start warmer in background
	go warmer.Start(ctx, 100*time.Millisecond)

	// Wait for at least one warm cycle
	time.Sleep(200 * time.Millisecond)

	// Stop warmer
	warmer.Stop()

	// Verify warmer stopped
	time.Sleep(100 * time.Millisecond)
	// If we reach here without hanging, stop worked
}

// TestWarmer_WarmCache tests cache warming logic
func TestWarmer_WarmCache(t *testing.T) {
	config := DefaultConfig()
	config.L2Enabled = false
	manager, err := NewManager(config, nil)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	testCases := []struct {
		name     string
		info     *schema.TableInfo
		err      error
		wantCall bool
	}{
		{
			name:     "successful warm",
			info:     &schema.TableInfo{Schema: "public", Name: "customers", RowEstimate: 1},
			wantCall: true,
		},
		{
			name:     "describer error",
			info:     nil,
			err:      fmt.Errorf("catalog query failed"),
			wantCall: true,
		},
		{
			name:     "empty table",
			info:     &schema.TableInfo{Schema: "public", Name: "empty"},
			wantCall: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			describer := &mockDescriber{info: tc.info, err: tc.err}
			warmer := NewWarmer(manager, describer, defaultTargets(), nil)

			ctx := context.Background()
			// Start in background and test that it doesn't crash
			go warmer.Start(ctx, 100*time.Millisecond)
			time.Sleep(50 * time.Millisecond)
			warmer.Stop()

			if tc.wantCall && describer.callCount() == 0 {
				t.Error("expected DescribeTable to be called at least once")
			}
		})
	}
}

// TestWarmer_SkipsAlreadyCached verifies warmCache does not re-describe a
// table that is already present in the cache.
func TestWarmer_SkipsAlreadyCached(t *testing.T) {
	config := DefaultConfig()
	config.L2Enabled = false
	manager, err := NewManager(config, nil)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	describer := &mockDescriber{info: &schema.TableInfo{Schema: "public", Name: "customers"}}
	targets := []TableRef{{Schema: "public", Table: "customers"}}
	warmer := NewWarmer(manager, describer, targets, nil)

	ctx := context.Background()
	warmer.warmCache(ctx)
	if describer.callCount() != 1 {
		t.Fatalf("expected 1 call after first warm, got %d", describer.callCount())
	}

	warmer.warmCache(ctx)
	if describer.callCount() != 1 {
		t.Errorf("expected DescribeTable not called again for already-cached table, got %d calls", describer.callCount())
	}
}

// TestWarmer_Concurrent tests concurrent access
func TestWarmer_Concurrent(t *testing.T) {
	config := DefaultConfig()
	config.L2Enabled = false
	manager, err := NewManager(config, nil)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	describer := &mockDescriber{info: &schema.TableInfo{Schema: "public", Name: "customers"}}

	ctx := context.Background()

	// Start/stop multiple warmer instances concurrently
	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			// Create new warmer for each goroutine
			warmer := NewWarmer(manager, describer, defaultTargets(), nil)
			go warmer.Start(ctx, 50*time.Millisecond)
			time.Sleep(10 * time.Millisecond)
			warmer.Stop()
		}()
	}

	wg.Wait()
	// If we reach here without race conditions or crashes, test passes
}

// TestWarmer_LongRunning tests long-running warmer
func TestWarmer_LongRunning(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping long-running test in short mode")
	}

	config := DefaultConfig()
	config.L2Enabled = false
	manager, err := NewManager(config, nil)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}

	describer := &mockDescriber{info: &schema.TableInfo{Schema: "public", Name: "customers"}}
	warmer := NewWarmer(manager, describer, defaultTargets(), nil)
	ctx := context.Background()

	go warmer.Start(ctx, 100*time.Millisecond)

	// Run for 500ms (should trigger ~5 warm cycles)
	time.Sleep(500 * time.Millisecond)
	warmer.Stop()

	// Verify warmer stopped gracefully
	time.Sleep(50 * time.Millisecond)
}
