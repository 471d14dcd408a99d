package queryengine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/vitaliisemenov/zqlz/internal/dbval"
	"github.com/vitaliisemenov/zqlz/internal/driverapi"
)

// ErrIsDBTTemplate signals that a statement still contains DBT template
// directives (ref/source/var/config macros). Run does not return it: with a
// renderer configured it renders templates first, and without one it binds
// and runs the statement as written.
var ErrIsDBTTemplate = errors.New("queryengine: statement contains unrendered DBT template directives")

// Renderer expands a DBT-style template (ref/source/var/config macros) into
// plain SQL.
type Renderer interface {
	Render(ctx context.Context, template string) (string, error)
	IsTemplate(sql string) bool
}

// RunResult is QueryService.Run's successful outcome.
type RunResult struct {
	Result     dbval.QueryResult
	DurationMs int64
}

// QueryService runs parameterized (and optionally templated) statements
// against a connection, recording every attempt into a QueryHistory.
type QueryService struct {
	history  *QueryHistory
	renderer Renderer
}

// NewQueryService creates a QueryService recording up to historyCapacity
// past runs. renderer may be nil when templating isn't in use.
func NewQueryService(historyCapacity int, renderer Renderer) *QueryService {
	return &QueryService{history: NewQueryHistory(historyCapacity), renderer: renderer}
}

// History returns the service's QueryHistory.
func (s *QueryService) History() *QueryHistory { return s.history }

// NamedParams and PositionalParams distinguish which binder Run should use;
// exactly one of them (or neither, for a parameterless statement) is set by
// the caller.
type NamedParams map[string]dbval.Value
type PositionalParams []dbval.Value

// Run executes sqlOrTemplate against conn: rendering DBT templates first
// when a renderer is configured, extracting and binding parameters, then
// executing and recording the outcome into History regardless of success.
func (s *QueryService) Run(ctx context.Context, conn driverapi.Connection, sqlOrTemplate string, named NamedParams, positional PositionalParams) (RunResult, error) {
	sql := sqlOrTemplate

	if s.renderer != nil && s.renderer.IsTemplate(sql) {
		rendered, err := s.renderer.Render(ctx, sql)
		if err != nil {
			s.record(sql, 0, false, 0, err)
			return RunResult{}, fmt.Errorf("queryengine: rendering template: %w", err)
		}
		sql = rendered
	}

	kind, err := DetectParameterStyle(sql)
	if err != nil {
		s.record(sql, 0, false, 0, err)
		return RunResult{}, err
	}

	finalSQL := sql
	var values []dbval.Value

	switch kind {
	case ParametersNamed:
		finalSQL, values, err = BindNamed(sql, named)
	case ParametersPositional:
		values, err = BindPositional(sql, positional)
	case ParametersNone:
		values = nil
	}
	if err != nil {
		s.record(sql, 0, false, 0, err)
		return RunResult{}, err
	}

	start := time.Now()
	result, err := conn.Query(ctx, finalSQL, values...)
	duration := time.Since(start).Milliseconds()

	rowCount := int64(len(result.Rows))
	s.record(sql, duration, err == nil, rowCount, err)

	if err != nil {
		return RunResult{}, err
	}
	return RunResult{Result: result, DurationMs: duration}, nil
}

func (s *QueryService) record(sql string, durationMs int64, success bool, rowCount int64, err error) {
	s.history.Record(HistoryEntry{
		SQL:        sql,
		ExecutedAt: time.Now(),
		DurationMs: durationMs,
		Success:    success,
		RowCount:   rowCount,
		Err:        err,
	})
}

// CancelRun best-effort cancels conn's in-flight statement via its
// CancelHandle, a no-op for dialects with no server-side cancellation.
func CancelRun(ctx context.Context, conn driverapi.Connection) error {
	handle := conn.CancelHandle()
	if handle == nil {
		return nil
	}
	return handle.Cancel(ctx)
}
