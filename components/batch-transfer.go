package components

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	c "github.com/relloyd/pgmirror/constants"
	"github.com/relloyd/pgmirror/logger"
	"github.com/relloyd/pgmirror/rdbms"
	"github.com/relloyd/pgmirror/rdbms/shared"
	"github.com/relloyd/pgmirror/stats"
	"github.com/relloyd/pgmirror/stream"
	"github.com/relloyd/pgmirror/syncstate"
	td "github.com/relloyd/pgmirror/table-definition"
	"golang.org/x/time/rate"
)

type BatchTransferConfig struct {
	Log           logger.Logger
	Source        Source
	Destination   Destination
	TargetSchema  string
	BatchSize     int
	NativeBinds   bool              // bind temporal and binary values natively instead of as text
	SkipConverged bool              // skip full syncs when the destination row count already matches
	Limiter       *rate.Limiter     // optional throttle applied before each batch
	RunStats      *stats.RunStats   // optional, registers a step watcher per table
	OnProgress    func(stats.Stats) // optional, receives progress after every committed batch
}

// BatchTransfer copies rows from a source table into its destination table in chunks.
// Every chunk is committed in its own transaction.
type BatchTransfer struct {
	log           logger.Logger
	src           Source
	dst           Destination
	targetSchema  string
	batchSize     int
	nativeBinds   bool
	skipConverged bool
	limiter       *rate.Limiter
	runStats      *stats.RunStats
	onProgress    func(stats.Stats)
}

func NewBatchTransfer(cfg *BatchTransferConfig) *BatchTransfer {
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = c.TableSyncBatchSizeDefault
	}
	return &BatchTransfer{
		log:           cfg.Log,
		src:           cfg.Source,
		dst:           cfg.Destination,
		targetSchema:  cfg.TargetSchema,
		batchSize:     batchSize,
		nativeBinds:   cfg.NativeBinds,
		skipConverged: cfg.SkipConverged,
		limiter:       cfg.Limiter,
		runStats:      cfg.RunStats,
		onProgress:    cfg.OnProgress,
	}
}

// chunkWriter writes one normalised batch inside tx.
type chunkWriter func(ctx context.Context, tx rdbms.TableWriter, t *td.TableDescriptor, batch stream.Batch) error

// Run dispatches to the transfer for method.
func (b *BatchTransfer) Run(ctx context.Context, method syncstate.SyncMethod, t *td.TableDescriptor, prior *syncstate.SyncState) (TransferResult, error) {
	switch method {
	case syncstate.SyncMethodFull:
		return b.Full(ctx, t)
	case syncstate.SyncMethodKeyBased:
		return b.KeyBased(ctx, t, prior)
	case syncstate.SyncMethodTimestamp:
		return b.Timestamp(ctx, t)
	}
	return TransferResult{}, shared.NewSyncError(shared.ErrorKindTransfer, t.Identifier(), fmt.Errorf("unsupported sync method %q", method))
}

// Full replaces the destination rows with every row in the source table.
func (b *BatchTransfer) Full(ctx context.Context, t *td.TableDescriptor) (TransferResult, error) {
	res := TransferResult{Method: syncstate.SyncMethodFull}
	id := t.Identifier()
	table := t.TargetTable()
	count, err := b.src.RowCount(ctx, t.SchemaTable, nil)
	if err != nil {
		return res, transferError(id, err)
	}
	if count == 0 {
		b.log.Info("source table ", id, " is empty, nothing to copy")
		return res, nil
	}
	if b.skipConverged {
		dstCount, err := b.dst.RowCount(ctx, b.targetSchema, table)
		if err != nil {
			return res, transferError(id, err)
		}
		if dstCount == count {
			b.log.Info("destination table ", b.targetSchema, ".", table, " already holds ", count, " rows, skipping")
			res.Skipped = true
			return res, nil
		}
	}
	if err = b.dst.Truncate(ctx, b.targetSchema, table); err != nil {
		return res, transferError(id, errors.Wrap(err, "unable to truncate destination table"))
	}
	res.Truncated = true
	cur, err := b.src.OpenCursor(ctx, t.SchemaTable, t.SourceColumnNames(), t.PkColumn, nil)
	if err != nil {
		return res, transferError(id, err)
	}
	defer func() {
		_ = cur.Close()
	}()
	err = b.copyChunks(ctx, t, cur, count, &res, b.insertChunk)
	if err != nil {
		res.Partial = res.Batches > 0
		return res, transferError(id, err)
	}
	return res, nil
}

// KeyBased copies rows whose primary key is greater than the prior watermark.
// Tables without a primary key or a watermark are copied in full.
func (b *BatchTransfer) KeyBased(ctx context.Context, t *td.TableDescriptor, prior *syncstate.SyncState) (TransferResult, error) {
	id := t.Identifier()
	if !t.HasPrimaryKey() {
		b.log.Info("table ", id, " has no single-column primary key, using full sync")
		return b.Full(ctx, t)
	}
	if !prior.HasWatermark() {
		b.log.Info("table ", id, " has no saved key value, using full sync")
		return b.Full(ctx, t)
	}
	res := TransferResult{Method: syncstate.SyncMethodKeyBased, LastKeyValue: syncstate.StringPtr(*prior.LastKeyValue)}
	pred := &rdbms.KeyPredicate{Column: t.PkColumn, After: t.WatermarkArg(*prior.LastKeyValue)}
	count, err := b.src.RowCount(ctx, t.SchemaTable, pred)
	if err != nil {
		return res, transferError(id, err)
	}
	b.log.Info("table ", id, " has ", count, " rows with ", t.PkColumn, " > ", *prior.LastKeyValue)
	if count == 0 {
		return res, nil
	}
	cur, err := b.src.OpenCursor(ctx, t.SchemaTable, t.SourceColumnNames(), t.PkColumn, pred)
	if err != nil {
		return res, transferError(id, err)
	}
	defer func() {
		_ = cur.Close()
	}()
	err = b.copyChunks(ctx, t, cur, count, &res, b.upsertChunk)
	if err != nil {
		res.Partial = res.Batches > 0
		return res, transferError(id, err)
	}
	return res, nil
}

// Timestamp is reserved for change tracking by a modification time column.
// Until that exists it copies the table in full and reports the timestamp method.
func (b *BatchTransfer) Timestamp(ctx context.Context, t *td.TableDescriptor) (TransferResult, error) {
	b.log.Warn("timestamp sync is not implemented, using full sync for table ", t.Identifier())
	res, err := b.Full(ctx, t)
	res.Method = syncstate.SyncMethodTimestamp
	return res, err
}

// copyChunks fetches batches from cur and writes each one in its own transaction.
// res is updated after every commit so a failure leaves it describing the committed work.
func (b *BatchTransfer) copyChunks(ctx context.Context, t *td.TableDescriptor, cur rdbms.Cursor, expected int64, res *TransferResult, write chunkWriter) error {
	watcher := b.newWatcher(t.Identifier())
	watcher.StartWatching(expected)
	defer watcher.StopWatching()
	classes := t.Classes()
	pkIdx := t.PkIndex()
	for {
		if b.limiter != nil {
			if err := b.limiter.Wait(ctx); err != nil {
				return err
			}
		}
		raw, err := cur.Next(ctx, b.batchSize)
		if err != nil {
			return err
		}
		if len(raw) == 0 { // if the cursor is exhausted...
			return nil
		}
		batch, err := stream.NormaliseBatch(raw, classes)
		if err != nil {
			return err
		}
		tx, err := b.dst.Begin(ctx)
		if err != nil {
			return err
		}
		if err = write(ctx, tx, t, batch); err != nil {
			_ = tx.Rollback()
			return err
		}
		if err = tx.Commit(); err != nil {
			return errors.Wrap(err, "unable to commit batch")
		}
		res.Batches++
		res.RowsTransferred += int64(len(batch))
		if pkIdx >= 0 {
			if v, ok := batch.LastNonNull(pkIdx); ok {
				res.LastKeyValue = syncstate.StringPtr(v.String())
			}
		}
		watcher.AddRows(int64(len(batch)))
		b.log.Debug("committed batch ", res.Batches, " of ", len(batch), " rows for table ", t.Identifier())
	}
}

func (b *BatchTransfer) newWatcher(table string) *stats.StepWatcher {
	if b.runStats != nil {
		return b.runStats.AddStepWatcher(table, b.onProgress)
	}
	return stats.NewStepWatcher(b.log, table, b.onProgress)
}

func (b *BatchTransfer) insertChunk(ctx context.Context, tx rdbms.TableWriter, t *td.TableDescriptor, batch stream.Batch) error {
	return tx.Insert(ctx, b.targetSchema, t.TargetTable(), t.ColumnNames(), batch.Args(b.nativeBinds))
}

// upsertChunk merges batch on the primary key.
// If the upsert fails the chunk is rolled back to a savepoint and applied again as delete then insert.
func (b *BatchTransfer) upsertChunk(ctx context.Context, tx rdbms.TableWriter, t *td.TableDescriptor, batch stream.Batch) error {
	table := t.TargetTable()
	cols := t.ColumnNames()
	keyCols := []string{t.PkTargetName()}
	args := batch.Args(b.nativeBinds)
	if err := tx.Savepoint(ctx, c.SavepointUpsert); err != nil {
		return err
	}
	err := tx.Upsert(ctx, b.targetSchema, table, cols, keyCols, args)
	if err == nil {
		return nil
	}
	failure := "other"
	if shared.IsUpsertStructuralFailure(err) {
		failure = "structural"
	}
	b.log.Warn("upsert into ", b.targetSchema, ".", table, " failed (", failure, "), retrying as delete and insert: ", err)
	if err = tx.RollbackToSavepoint(ctx, c.SavepointUpsert); err != nil {
		return errors.Wrap(err, "unable to roll back to savepoint")
	}
	if err = tx.DeleteKeys(ctx, b.targetSchema, table, keyCols, batch.KeyArgs(t.PkIndex(), b.nativeBinds)); err != nil {
		return errors.Wrap(err, "delete before insert failed")
	}
	if err = tx.Insert(ctx, b.targetSchema, table, cols, args); err != nil {
		return errors.Wrap(err, "insert after delete failed")
	}
	return nil
}

func transferError(id string, err error) error {
	return shared.Classify(shared.ErrorKindTransfer, id, err)
}
