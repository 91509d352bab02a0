package actions

import (
	"context"

	"github.com/relloyd/pgmirror/components"
	"github.com/relloyd/pgmirror/stats"
	"github.com/relloyd/pgmirror/syncstate"
)

// Destination is the Postgres database including the schema management used at start up.
type Destination interface {
	components.Destination
	EnsureSchema(ctx context.Context, schema string) error
}

// StateStore persists per-table sync progress.
type StateStore interface {
	Migrate(ctx context.Context) error
	Get(ctx context.Context, table string) (*syncstate.SyncState, error)
	Update(ctx context.Context, table string, lastKey *string, method syncstate.SyncMethod, rowCount int64) error
}

// Progress receives user-visible output.
// It is implemented by stats.ProgressReporter.
type Progress interface {
	Update(s stats.Stats)
	Outcome(table string, status string, detail string)
	Printf(format string, args ...interface{})
}
