package components

import (
	"github.com/relloyd/pgmirror/syncstate"
)

// TransferResult describes what a transfer did.
type TransferResult struct {
	Method          syncstate.SyncMethod // the method actually used
	RowsTransferred int64
	Batches         int
	LastKeyValue    *string // last primary key value committed, if known
	Skipped         bool    // the destination already matched the source
	Partial         bool    // some batches were committed before an error
	Truncated       bool    // the destination table was emptied before copying
}

// ReconcileResult describes the DDL a reconcile issued.
type ReconcileResult struct {
	Created      bool
	AddedColumns []string
}

// Changed returns true if any DDL was issued.
func (r ReconcileResult) Changed() bool {
	return r.Created || len(r.AddedColumns) > 0
}
