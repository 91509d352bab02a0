package components

import (
	td "github.com/relloyd/pgmirror/table-definition"
	"github.com/relloyd/pgmirror/syncstate"
)

// SelectStrategy picks the sync method for a table.
// A forced full sync wins, then a table never synced before is copied in full.
// Tables with state are synced by key when they have a primary key, else by the timestamp method.
func SelectStrategy(t *td.TableDescriptor, prior *syncstate.SyncState, forceFull bool) syncstate.SyncMethod {
	switch {
	case forceFull:
		return syncstate.SyncMethodFull
	case prior == nil:
		return syncstate.SyncMethodFull
	case t.HasPrimaryKey():
		return syncstate.SyncMethodKeyBased
	}
	return syncstate.SyncMethodTimestamp
}
