package actions

import (
	"sync"

	"github.com/relloyd/pgmirror/components"
	c "github.com/relloyd/pgmirror/constants"
	"github.com/relloyd/pgmirror/ignore"
	"github.com/relloyd/pgmirror/logger"
	"github.com/relloyd/pgmirror/stats"
	"github.com/relloyd/pgmirror/syncstate"
	"github.com/rs/xid"
)

// TableResult is the outcome of syncing one table.
type TableResult struct {
	Table     string
	Method    syncstate.SyncMethod
	Rows      int64
	Skipped   bool
	Partial   bool
	Reconcile components.ReconcileResult
	Err       error
}

// Succeeded returns true if the table synced without error.
func (r TableResult) Succeeded() bool {
	return r.Err == nil
}

// RunContext holds the mutable state of one run.
// Results may be read by the status server while the run is in progress so access goes through mu.
type RunContext struct {
	RunId   string
	Log     logger.Logger // tagged with the run id
	Ignore  *ignore.Registry
	Stats   *stats.RunStats
	Results []TableResult
	mu      sync.Mutex
}

// NewRunContext creates a run with a fresh id.
func NewRunContext(log logger.Logger, registry *ignore.Registry, statsDumpFrequencySeconds int) *RunContext {
	id := xid.New().String()
	runLog := logger.WithField(log, c.RunIdLogField, id)
	return &RunContext{
		RunId:  id,
		Log:    runLog,
		Ignore: registry,
		Stats:  stats.NewRunStats(runLog, stats.SetStatsDumpFrequency(statsDumpFrequencySeconds)),
	}
}

// Record saves the result and counts it in the run metrics.
func (r *RunContext) Record(res TableResult) {
	r.mu.Lock()
	r.Results = append(r.Results, res)
	r.mu.Unlock()
	switch {
	case res.Err != nil:
		r.Stats.RecordTable(stats.OutcomeFailed, res.Rows)
	case res.Skipped:
		r.Stats.RecordTable(stats.OutcomeSkipped, res.Rows)
	default:
		r.Stats.RecordTable(stats.OutcomeSucceeded, res.Rows)
	}
}

// FailedTables returns the tables that failed in the order they were processed.
func (r *RunContext) FailedTables() []string {
	retval := make([]string, 0)
	for _, res := range r.TableResults() {
		if res.Err != nil {
			retval = append(retval, res.Table)
		}
	}
	return retval
}

// TableResults returns a copy of the results recorded so far.
func (r *RunContext) TableResults() []TableResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]TableResult(nil), r.Results...)
}
