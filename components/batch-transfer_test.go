package components

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/relloyd/pgmirror/logger"
	"github.com/relloyd/pgmirror/rdbms"
	"github.com/relloyd/pgmirror/rdbms/shared"
	"github.com/relloyd/pgmirror/stats"
	"github.com/relloyd/pgmirror/syncstate"
	td "github.com/relloyd/pgmirror/table-definition"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

const testTargetSchema = "analytics"

var ordersTable = rdbms.NewSchemaTable("PUB", "Orders")

func newOrdersTable(numRows int) *FakeTable {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rows := make([][]interface{}, numRows)
	for idx := range rows {
		rows[idx] = []interface{}{int64(idx + 1), fmt.Sprintf("%v.50", idx), base.Add(time.Duration(idx) * time.Minute)}
	}
	return &FakeTable{
		Schema: "PUB",
		Name:   "Orders",
		Columns: []rdbms.ColumnInfo{
			{Name: "id", DataType: "integer", Position: 1},
			{Name: "amount", DataType: "decimal", Precision: 10, Scale: 2, Position: 2},
			{Name: "created", DataType: "timestamp", Position: 3},
		},
		PrimaryKey: []string{"id"},
		Rows:       rows,
	}
}

func newNotesTable(numRows int) *FakeTable {
	rows := make([][]interface{}, numRows)
	for idx := range rows {
		rows[idx] = []interface{}{fmt.Sprintf("note %v", idx)}
	}
	return &FakeTable{
		Schema:  "PUB",
		Name:    "notes",
		Columns: []rdbms.ColumnInfo{{Name: "body", DataType: "varchar", Length: 200, Position: 1}},
		Rows:    rows,
	}
}

type transferFixture struct {
	log      logger.Logger
	src      *FakeSource
	dst      *FakeDestination
	progress *stats.MockProgress
}

func newTransferFixture(tables ...*FakeTable) *transferFixture {
	return &transferFixture{
		log:      logger.NewLogger("pgmirror", "error", true),
		src:      NewFakeSource(tables...),
		dst:      NewFakeDestination(),
		progress: stats.NewMockProgress(),
	}
}

func (f *transferFixture) transfer(batchSize int, opts ...func(cfg *BatchTransferConfig)) *BatchTransfer {
	cfg := &BatchTransferConfig{
		Log:          f.log,
		Source:       f.src,
		Destination:  f.dst,
		TargetSchema: testTargetSchema,
		BatchSize:    batchSize,
		OnProgress:   f.progress.Update,
	}
	for _, o := range opts {
		o(cfg)
	}
	return NewBatchTransfer(cfg)
}

// describe reads the table and makes sure its destination exists.
func (f *transferFixture) describe(t *testing.T, st rdbms.SchemaTable) *td.TableDescriptor {
	mapper, err := td.NewMapper(f.log, "typed")
	require.NoError(t, err)
	desc, err := td.ReadTable(context.Background(), f.log, f.src, mapper, st)
	require.NoError(t, err)
	_, err = NewSchemaReconciler(&SchemaReconcilerConfig{Log: f.log, Destination: f.dst, TargetSchema: testTargetSchema}).Reconcile(context.Background(), desc)
	require.NoError(t, err)
	return desc
}

func TestFullSyncCopiesEveryRowInBatches(t *testing.T) {
	f := newTransferFixture(newOrdersTable(2500))
	desc := f.describe(t, ordersTable)
	assert.Equal(t, syncstate.SyncMethodFull, SelectStrategy(desc, nil, false))

	res, err := f.transfer(1000).Full(context.Background(), desc)
	require.NoError(t, err)
	assert.Equal(t, syncstate.SyncMethodFull, res.Method)
	assert.Equal(t, int64(2500), res.RowsTransferred)
	assert.Equal(t, 3, res.Batches)
	require.NotNil(t, res.LastKeyValue)
	assert.Equal(t, "2500", *res.LastKeyValue)
	assert.False(t, res.Partial)
	assert.False(t, res.Skipped)
	assert.True(t, res.Truncated)

	n, err := f.dst.RowCount(context.Background(), testTargetSchema, "orders")
	require.NoError(t, err)
	assert.Equal(t, int64(2500), n)
	assert.Equal(t, []int{1000, 1000, 500}, f.dst.WriteSizes)
	for _, size := range f.src.FetchSizes {
		assert.Equal(t, 1000, size, "every fetch is bounded by the batch size")
	}
	assert.Equal(t, 0, f.src.OpenCursors)
	assert.Equal(t, 1, f.dst.Truncates)
	assert.Equal(t, 3, f.dst.Commits)

	updates := f.progress.Updates()
	require.NotEmpty(t, updates)
	last := updates[len(updates)-1]
	assert.Equal(t, int64(2500), last.TotalRowsProcessed)
	assert.Equal(t, 100, last.PercentComplete)
	assert.False(t, last.Running)
}

func TestFullSyncIsIdempotent(t *testing.T) {
	f := newTransferFixture(newOrdersTable(30))
	desc := f.describe(t, ordersTable)
	bt := f.transfer(7)

	_, err := bt.Full(context.Background(), desc)
	require.NoError(t, err)
	first := f.dst.Table(testTargetSchema, "orders").copyRows()

	res, err := bt.Full(context.Background(), desc)
	require.NoError(t, err)
	assert.Equal(t, int64(30), res.RowsTransferred)
	assert.Equal(t, 5, res.Batches)
	assert.Equal(t, first, f.dst.Table(testTargetSchema, "orders").Rows)
}

func TestFullSyncEmptySource(t *testing.T) {
	f := newTransferFixture(newOrdersTable(0))
	desc := f.describe(t, ordersTable)

	res, err := f.transfer(10).Full(context.Background(), desc)
	require.NoError(t, err)
	assert.Equal(t, int64(0), res.RowsTransferred)
	assert.Nil(t, res.LastKeyValue)
	assert.Equal(t, 0, f.dst.Truncates, "an empty source must not truncate the destination")
	assert.Empty(t, f.src.FetchSizes)
}

func TestFullSyncSkipsConvergedTable(t *testing.T) {
	f := newTransferFixture(newOrdersTable(12))
	desc := f.describe(t, ordersTable)
	bt := f.transfer(5, func(cfg *BatchTransferConfig) {
		cfg.SkipConverged = true
	})

	res, err := bt.Full(context.Background(), desc)
	require.NoError(t, err)
	assert.False(t, res.Skipped)
	assert.Equal(t, int64(12), res.RowsTransferred)

	res, err = bt.Full(context.Background(), desc)
	require.NoError(t, err)
	assert.True(t, res.Skipped)
	assert.Equal(t, int64(0), res.RowsTransferred)
	assert.Equal(t, 1, f.dst.Truncates)
}

func TestKeyBasedWithNoNewRowsKeepsWatermark(t *testing.T) {
	f := newTransferFixture(newOrdersTable(2500))
	desc := f.describe(t, ordersTable)
	bt := f.transfer(1000)
	_, err := bt.Full(context.Background(), desc)
	require.NoError(t, err)
	fetches := len(f.src.FetchSizes)

	prior := &syncstate.SyncState{TableName: desc.Identifier(), LastKeyValue: syncstate.StringPtr("2500"), SyncMethod: syncstate.SyncMethodFull, RowCount: 2500}
	method := SelectStrategy(desc, prior, false)
	require.Equal(t, syncstate.SyncMethodKeyBased, method)

	res, err := bt.Run(context.Background(), method, desc, prior)
	require.NoError(t, err)
	assert.Equal(t, syncstate.SyncMethodKeyBased, res.Method)
	assert.Equal(t, int64(0), res.RowsTransferred)
	require.NotNil(t, res.LastKeyValue)
	assert.Equal(t, "2500", *res.LastKeyValue)
	assert.Equal(t, fetches, len(f.src.FetchSizes), "no cursor is opened when nothing is new")
}

func TestKeyBasedOnlyTouchesRowsAfterWatermark(t *testing.T) {
	f := newTransferFixture(newOrdersTable(20))
	desc := f.describe(t, ordersTable)
	f.dst.Table(testTargetSchema, "orders").KeyColumn = "id"
	bt := f.transfer(4)
	_, err := bt.Full(context.Background(), desc)
	require.NoError(t, err)

	// Change a row below the watermark and append new ones.
	f.src.Tables[0].Rows[0][1] = "999.99"
	f.src.AddRows(ordersTable,
		[]interface{}{int64(21), "21.00", time.Now()},
		[]interface{}{int64(22), "22.00", time.Now()},
		[]interface{}{int64(23), "23.00", time.Now()},
	)
	prior := &syncstate.SyncState{LastKeyValue: syncstate.StringPtr("20"), SyncMethod: syncstate.SyncMethodFull, RowCount: 20}

	res, err := bt.KeyBased(context.Background(), desc, prior)
	require.NoError(t, err)
	assert.Equal(t, int64(3), res.RowsTransferred)
	assert.Equal(t, 1, res.Batches)
	require.NotNil(t, res.LastKeyValue)
	assert.Equal(t, "23", *res.LastKeyValue)

	amounts := f.dst.ColumnValues(testTargetSchema, "orders", "amount")
	assert.Len(t, amounts, 23)
	assert.Equal(t, "0.50", amounts[0], "rows at or below the watermark are untouched")
	assert.Equal(t, 0, f.dst.Rollbacks)
}

func TestKeyBasedFallsBackToDeleteInsert(t *testing.T) {
	f := newTransferFixture(newOrdersTable(20))
	desc := f.describe(t, ordersTable)
	bt := f.transfer(100)
	_, err := bt.Full(context.Background(), desc)
	require.NoError(t, err)

	// The created table has no unique constraint so ON CONFLICT cannot be used.
	for _, row := range f.src.Tables[0].Rows[10:] {
		row[1] = "1.00"
	}
	prior := &syncstate.SyncState{LastKeyValue: syncstate.StringPtr("10"), SyncMethod: syncstate.SyncMethodFull, RowCount: 20}

	res, err := bt.KeyBased(context.Background(), desc, prior)
	require.NoError(t, err)
	assert.Equal(t, int64(10), res.RowsTransferred)
	assert.Equal(t, "20", *res.LastKeyValue)

	ids := f.dst.ColumnValues(testTargetSchema, "orders", "id")
	assert.Len(t, ids, 20, "no duplicate keys after delete and insert")
	seen := make(map[interface{}]int)
	for _, id := range ids {
		seen[id]++
	}
	for id, n := range seen {
		assert.Equal(t, 1, n, "key %v", id)
	}
	amounts := f.dst.ColumnValues(testTargetSchema, "orders", "amount")
	changed := 0
	for _, a := range amounts {
		if a == "1.00" {
			changed++
		}
	}
	assert.Equal(t, 10, changed)
}

func TestKeyBasedSecondFailureIsPartial(t *testing.T) {
	f := newTransferFixture(newOrdersTable(25))
	desc := f.describe(t, ordersTable)
	f.dst.InsertHook = func(call int) error {
		if call == 2 {
			return errors.New("disk full")
		}
		return nil
	}
	prior := &syncstate.SyncState{LastKeyValue: syncstate.StringPtr("0"), SyncMethod: syncstate.SyncMethodFull}

	res, err := f.transfer(10).KeyBased(context.Background(), desc, prior)
	require.Error(t, err)
	assert.Equal(t, shared.ErrorKindTransfer, shared.KindOf(err))
	assert.True(t, res.Partial)
	assert.Equal(t, 1, res.Batches)
	assert.Equal(t, int64(10), res.RowsTransferred)
	assert.Equal(t, "10", *res.LastKeyValue)
	assert.Equal(t, 1, f.dst.Rollbacks)
	n, err := f.dst.RowCount(context.Background(), testTargetSchema, "orders")
	require.NoError(t, err)
	assert.Equal(t, int64(10), n)
	assert.Equal(t, 0, f.src.OpenCursors)
}

func TestKeyBasedWithoutKeyOrWatermarkRunsFull(t *testing.T) {
	f := newTransferFixture(newOrdersTable(5), newNotesTable(3))
	orders := f.describe(t, ordersTable)
	notes := f.describe(t, rdbms.NewSchemaTable("PUB", "notes"))
	bt := f.transfer(10)

	res, err := bt.KeyBased(context.Background(), orders, &syncstate.SyncState{SyncMethod: syncstate.SyncMethodFull})
	require.NoError(t, err)
	assert.Equal(t, syncstate.SyncMethodFull, res.Method)
	assert.Equal(t, int64(5), res.RowsTransferred)

	res, err = bt.KeyBased(context.Background(), notes, &syncstate.SyncState{LastKeyValue: syncstate.StringPtr("x")})
	require.NoError(t, err)
	assert.Equal(t, syncstate.SyncMethodFull, res.Method)
	assert.Nil(t, res.LastKeyValue)
}

func TestTimestampRunsFullAndKeepsMethod(t *testing.T) {
	f := newTransferFixture(newNotesTable(8))
	notes := f.describe(t, rdbms.NewSchemaTable("PUB", "notes"))
	prior := &syncstate.SyncState{SyncMethod: syncstate.SyncMethodFull, RowCount: 8}
	method := SelectStrategy(notes, prior, false)
	require.Equal(t, syncstate.SyncMethodTimestamp, method)

	res, err := f.transfer(3).Run(context.Background(), method, notes, prior)
	require.NoError(t, err)
	assert.Equal(t, syncstate.SyncMethodTimestamp, res.Method)
	assert.Equal(t, int64(8), res.RowsTransferred)
	assert.Equal(t, 3, res.Batches)
}

func TestTransferHonoursCancellation(t *testing.T) {
	f := newTransferFixture(newOrdersTable(5))
	desc := f.describe(t, ordersTable)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := f.transfer(2, func(cfg *BatchTransferConfig) {
		cfg.Limiter = rate.NewLimiter(rate.Limit(1), 1)
	}).Full(ctx, desc)
	require.Error(t, err)
	assert.Equal(t, shared.ErrorKindTransfer, shared.KindOf(err))
	assert.False(t, res.Partial)
	assert.Equal(t, 0, res.Batches)
}

func TestRunRejectsUnknownMethod(t *testing.T) {
	f := newTransferFixture(newOrdersTable(1))
	desc := f.describe(t, ordersTable)
	_, err := f.transfer(1).Run(context.Background(), syncstate.SyncMethod("cdc"), desc, nil)
	require.Error(t, err)
}
