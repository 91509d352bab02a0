package actions

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/relloyd/pgmirror/components"
	c "github.com/relloyd/pgmirror/constants"
	"github.com/relloyd/pgmirror/logger"
	"github.com/relloyd/pgmirror/rdbms"
	"github.com/relloyd/pgmirror/rdbms/shared"
	"github.com/relloyd/pgmirror/syncstate"
	td "github.com/relloyd/pgmirror/table-definition"
	"golang.org/x/time/rate"
)

type OrchestratorConfig struct {
	Cfg         *SyncConfig
	Source      components.Source
	Destination Destination
	State       StateStore
	Progress    Progress
}

// Orchestrator syncs every table in the source schema, one at a time.
type Orchestrator struct {
	cfg      *SyncConfig
	src      components.Source
	dst      Destination
	state    StateStore
	progress Progress
}

func NewOrchestrator(cfg *OrchestratorConfig) *Orchestrator {
	return &Orchestrator{cfg: cfg.Cfg, src: cfg.Source, dst: cfg.Destination, state: cfg.State, progress: cfg.Progress}
}

// Run performs one sync of all candidate tables.
// An error is returned when the run could not start, was cancelled or hit a fatal error such as a lost connection.
// Tables that fail with a recoverable error are recorded in rc and added to the ignore registry.
func (o *Orchestrator) Run(ctx context.Context, rc *RunContext) error {
	log := rc.Log
	log.Info("starting sync run ", rc.RunId)
	rc.Stats.StartDumping()
	defer rc.Stats.StopDumping()
	// Prepare the destination.
	for _, schema := range []string{o.cfg.TargetSchema, o.cfg.StateSchema} {
		if err := o.dst.EnsureSchema(ctx, schema); err != nil {
			return shared.NewSyncError(shared.ErrorKindConnection, "", errors.Wrapf(err, "unable to create schema %v", schema))
		}
	}
	if err := o.state.Migrate(ctx); err != nil {
		return err
	}
	// Apply tables the user asked us to ignore.
	for _, id := range o.cfg.IgnoreIdentifiers() {
		if err := rc.Ignore.Add(id); err != nil {
			return err
		}
	}
	mapper, err := td.NewMapper(log, o.cfg.SchemaPolicy)
	if err != nil {
		return err
	}
	tables, err := o.src.ListTables(ctx, o.cfg.SourceSchema)
	if err != nil {
		return shared.NewSyncError(shared.ErrorKindCatalog, "", err)
	}
	candidates := o.filterTables(log, rc, tables)
	log.Info("found ", len(tables), " tables in schema ", o.cfg.SourceSchema, ", ", len(candidates), " to sync")
	reconciler := components.NewSchemaReconciler(&components.SchemaReconcilerConfig{
		Log:          log,
		Destination:  o.dst,
		TargetSchema: o.cfg.TargetSchema,
	})
	transfer := components.NewBatchTransfer(&components.BatchTransferConfig{
		Log:           log,
		Source:        o.src,
		Destination:   o.dst,
		TargetSchema:  o.cfg.TargetSchema,
		BatchSize:     o.cfg.BatchSize,
		NativeBinds:   o.cfg.NativeBinds(),
		SkipConverged: o.cfg.SkipConverged,
		Limiter:       o.newLimiter(),
		RunStats:      rc.Stats,
		OnProgress:    o.progress.Update,
	})
	for _, st := range candidates { // for each table in catalog order...
		if err = ctx.Err(); err != nil {
			return err
		}
		id := st.Identifier()
		if rc.Ignore.Contains(id) { // if an earlier table added this one...
			log.Info("skipping ignored table ", id)
			continue
		}
		tableLog := logger.WithField(log, c.TableLogField, id)
		res := o.syncTable(ctx, tableLog, mapper, reconciler, transfer, st)
		if res.Err != nil && ctx.Err() != nil { // if we were interrupted...
			return ctx.Err()
		}
		if shared.IsFatal(res.Err) { // if a database went away the remaining tables cannot be synced...
			rc.Record(res)
			tableLog.Error("table ", id, " failed with ", shared.KindOf(res.Err), " error, stopping run: ", res.Err)
			o.progress.Outcome(id, "failed", shared.KindOf(res.Err).String())
			rc.Stats.Finish()
			o.summarise(log, rc)
			return res.Err
		}
		o.recordResult(tableLog, rc, res)
	}
	rc.Stats.Finish()
	o.summarise(log, rc)
	return nil
}

// filterTables drops system tables and ignored tables.
func (o *Orchestrator) filterTables(log logger.Logger, rc *RunContext, tables []rdbms.SchemaTable) []rdbms.SchemaTable {
	retval := make([]rdbms.SchemaTable, 0, len(tables))
	for _, st := range tables {
		switch {
		case strings.HasPrefix(st.Table, c.SystemTablePrefix):
			log.Debug("skipping system table ", st)
		case rc.Ignore.Contains(st.Identifier()):
			log.Debug("skipping ignored table ", st)
		default:
			retval = append(retval, st)
		}
	}
	return retval
}

func (o *Orchestrator) newLimiter() *rate.Limiter {
	if o.cfg.MaxBatchesPerSecond <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Limit(o.cfg.MaxBatchesPerSecond), 1)
}

// syncTable describes, reconciles and transfers one table, then saves its state.
func (o *Orchestrator) syncTable(
	ctx context.Context,
	log logger.Logger,
	mapper td.Mapper,
	reconciler *components.SchemaReconciler,
	transfer *components.BatchTransfer,
	st rdbms.SchemaTable) TableResult {
	id := st.Identifier()
	res := TableResult{Table: id}
	desc, err := td.ReadTable(ctx, log, o.src, mapper, st)
	if err != nil {
		res.Err = err
		return res
	}
	if res.Reconcile, err = reconciler.Reconcile(ctx, desc); err != nil {
		res.Err = err
		return res
	}
	prior, err := o.state.Get(ctx, id)
	if err != nil {
		res.Err = err
		return res
	}
	method := components.SelectStrategy(desc, prior, o.cfg.FullSync)
	log.Info("syncing table ", id, " using method ", method)
	tr, err := transfer.Run(ctx, method, desc, prior)
	res.Method = tr.Method
	res.Rows = tr.RowsTransferred
	res.Skipped = tr.Skipped
	res.Partial = tr.Partial
	if err != nil && !tr.Partial {
		if tr.Truncated && prior != nil { // if the old watermark no longer describes the destination...
			o.resetState(ctx, log, id, tr.Method)
		}
		res.Err = err
		return res
	}
	if stateErr := o.saveState(ctx, log, id, prior, tr); stateErr != nil {
		if err == nil {
			err = stateErr
		} else {
			log.Error("unable to save state after partial transfer: ", stateErr)
		}
	}
	res.Err = err
	return res
}

// saveState records the progress of a transfer.
// Full syncs that copied nothing, and skipped tables, leave the state alone.
func (o *Orchestrator) saveState(ctx context.Context, log logger.Logger, id string, prior *syncstate.SyncState, tr components.TransferResult) error {
	if tr.Skipped {
		return nil
	}
	rowCount := tr.RowsTransferred
	if tr.Method == syncstate.SyncMethodKeyBased {
		if prior != nil {
			rowCount += prior.RowCount
		}
	} else if tr.RowsTransferred == 0 {
		log.Debug("no rows copied for table ", id, ", state unchanged")
		return nil
	}
	return o.state.Update(ctx, id, tr.LastKeyValue, tr.Method, rowCount)
}

// resetState clears the watermark and row count of a table whose destination was emptied,
// so the next run copies it in full.
func (o *Orchestrator) resetState(ctx context.Context, log logger.Logger, id string, method syncstate.SyncMethod) {
	if err := o.state.Update(ctx, id, nil, method, 0); err != nil {
		log.Error("unable to reset state after truncating table ", id, ": ", err)
		return
	}
	log.Warn("table ", id, " was truncated before the transfer failed, its saved key value has been cleared")
}

// recordResult saves the result, reports it and ignores failed tables in future runs.
func (o *Orchestrator) recordResult(log logger.Logger, rc *RunContext, res TableResult) {
	rc.Record(res)
	switch {
	case res.Err != nil:
		log.Error("table ", res.Table, " failed with ", shared.KindOf(res.Err), " error: ", res.Err)
		if err := rc.Ignore.Add(res.Table); err != nil {
			log.Error("unable to add table ", res.Table, " to the ignore list: ", err)
		} else {
			log.Warn("table ", res.Table, " added to ignore list ", rc.Ignore.Path())
		}
		detail := shared.KindOf(res.Err).String()
		if res.Partial {
			detail += fmt.Sprintf(", %v rows committed", res.Rows)
		}
		o.progress.Outcome(res.Table, "failed", detail)
	case res.Skipped:
		o.progress.Outcome(res.Table, "skipped", "destination already converged")
	default:
		o.progress.Outcome(res.Table, "ok", fmt.Sprintf("%v, %v rows", res.Method, res.Rows))
	}
}

func (o *Orchestrator) summarise(log logger.Logger, rc *RunContext) {
	s := rc.Stats.Summary()
	failed := rc.FailedTables()
	log.Info("sync run complete: ", s)
	o.progress.Printf("Tables processed: %v, succeeded: %v, failed: %v, skipped: %v\n",
		s.TablesProcessed, s.TablesSucceeded, s.TablesFailed, s.TablesSkipped)
	o.progress.Printf("Rows synced: %v in %v\n", s.RowsSynced, s.Elapsed.Round(time.Millisecond))
	if len(failed) > 0 {
		o.progress.Printf("Failed tables: %v\n", strings.Join(failed, ", "))
	}
}
