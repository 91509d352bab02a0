package tabledefinition

import (
	"context"
	"database/sql/driver"
	"errors"
	"testing"
	"time"

	"github.com/relloyd/pgmirror/constants"
	"github.com/relloyd/pgmirror/rdbms"
	"github.com/relloyd/pgmirror/rdbms/shared"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCatalog struct {
	cols   []rdbms.ColumnInfo
	pk     []string
	colErr error
	pkErr  error
}

func (f *fakeCatalog) GetColumns(ctx context.Context, st rdbms.SchemaTable) ([]rdbms.ColumnInfo, error) {
	return f.cols, f.colErr
}

func (f *fakeCatalog) GetPrimaryKey(ctx context.Context, st rdbms.SchemaTable) ([]string, error) {
	return f.pk, f.pkErr
}

var orderColumns = []rdbms.ColumnInfo{
	{Name: "Order-Date", DataType: "date", Nullable: true, Position: 2},
	{Name: "Order-Num", DataType: "integer", Position: 1},
	{Name: "Comments", DataType: "varchar", Length: 80, Nullable: true, Position: 3},
}

func newTestMapper(t *testing.T, policy string) Mapper {
	m, err := NewMapper(logrus.New(), policy)
	require.NoError(t, err)
	return m
}

func TestReadTable(t *testing.T) {
	cat := &fakeCatalog{cols: orderColumns, pk: []string{"Order-Num"}}
	td, err := ReadTable(context.Background(), logrus.New(), cat, newTestMapper(t, constants.SchemaPolicyTyped), rdbms.NewSchemaTable("PUB", "Order"))
	require.NoError(t, err)
	assert.Equal(t, []string{"Order-Num", "Order-Date", "Comments"}, td.SourceColumnNames())
	assert.Equal(t, []string{"order-num", "order-date", "comments"}, td.ColumnNames())
	assert.Equal(t, []string{"INTEGER", "DATE", "VARCHAR(80)"}, td.ColumnTypes())
	assert.True(t, td.HasPrimaryKey())
	assert.Equal(t, 0, td.PkIndex())
	assert.Equal(t, "order-num", td.PkTargetName())
	assert.Equal(t, "order", td.TargetTable())
	assert.Equal(t, "pub.order", td.Identifier())
}

func TestReadTableTextPolicy(t *testing.T) {
	cat := &fakeCatalog{cols: orderColumns}
	td, err := ReadTable(context.Background(), logrus.New(), cat, newTestMapper(t, constants.SchemaPolicyText), rdbms.NewSchemaTable("PUB", "Order"))
	require.NoError(t, err)
	assert.Equal(t, []string{"TEXT", "TEXT", "TEXT"}, td.ColumnTypes())
	assert.False(t, td.HasPrimaryKey())
	assert.Equal(t, -1, td.PkIndex())
}

func TestReadTableCompositeKey(t *testing.T) {
	cat := &fakeCatalog{cols: orderColumns, pk: []string{"Order-Num", "Order-Date"}}
	td, err := ReadTable(context.Background(), logrus.New(), cat, newTestMapper(t, constants.SchemaPolicyText), rdbms.NewSchemaTable("PUB", "Order"))
	require.NoError(t, err)
	assert.False(t, td.HasPrimaryKey())
}

func TestReadTableErrors(t *testing.T) {
	ctx := context.Background()
	m := newTestMapper(t, constants.SchemaPolicyText)
	st := rdbms.NewSchemaTable("PUB", "Secret")

	_, err := ReadTable(ctx, logrus.New(), &fakeCatalog{}, m, st)
	require.Error(t, err)
	assert.Equal(t, shared.ErrorKindSchema, shared.KindOf(err))

	_, err = ReadTable(ctx, logrus.New(), &fakeCatalog{colErr: errors.New("[ODBC] Access denied for user")}, m, st)
	assert.Equal(t, shared.ErrorKindPermission, shared.KindOf(err))

	_, err = ReadTable(ctx, logrus.New(), &fakeCatalog{cols: orderColumns, pkErr: errors.New("broken pipe")}, m, st)
	assert.Equal(t, shared.ErrorKindSchema, shared.KindOf(err))
	assert.False(t, shared.IsFatal(err))

	_, err = ReadTable(ctx, logrus.New(), &fakeCatalog{colErr: driver.ErrBadConn}, m, st)
	assert.Equal(t, shared.ErrorKindConnection, shared.KindOf(err))
	assert.True(t, shared.IsFatal(err))
}

func TestWatermarkArg(t *testing.T) {
	cat := &fakeCatalog{cols: orderColumns, pk: []string{"Order-Num"}}
	td, err := ReadTable(context.Background(), logrus.New(), cat, newTestMapper(t, constants.SchemaPolicyText), rdbms.NewSchemaTable("PUB", "Order"))
	require.NoError(t, err)
	assert.Equal(t, int64(42), td.WatermarkArg("42"))
	assert.Equal(t, 4.5, td.WatermarkArg("4.5"))
	assert.Equal(t, "92233720368547758081", td.WatermarkArg("92233720368547758081"), "wider than int64 stays exact")
	assert.Equal(t, "9007199254740993.5", td.WatermarkArg("9007199254740993.5"), "rounding would move the watermark")
	assert.Equal(t, "abc", td.WatermarkArg("abc"))

	td.PkColumn = "Order-Date"
	assert.Equal(t, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), td.WatermarkArg("2024-01-02"))

	td.PkColumn = "Comments"
	assert.Equal(t, "10", td.WatermarkArg("10"))
}
