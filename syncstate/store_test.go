package syncstate

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/relloyd/pgmirror/constants"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	s, err := NewStore(logrus.New(), db, constants.ConnectionTypeSqlite, "main")
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func TestMigrateIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Migrate(context.Background()))
	require.NoError(t, s.Migrate(context.Background()))
}

func TestGetMissing(t *testing.T) {
	s := newTestStore(t)
	st, err := s.Get(context.Background(), "pub.customer")
	require.NoError(t, err)
	assert.Nil(t, st)
}

func TestUpdateAndGet(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.Update(ctx, "pub.customer", StringPtr("100"), SyncMethodFull, 100))
	st, err := s.Get(ctx, "pub.customer")
	require.NoError(t, err)
	require.NotNil(t, st)
	assert.Equal(t, "pub.customer", st.TableName)
	assert.Equal(t, SyncMethodFull, st.SyncMethod)
	assert.Equal(t, int64(100), st.RowCount)
	require.True(t, st.HasWatermark())
	assert.Equal(t, "100", *st.LastKeyValue)
	assert.False(t, st.LastSyncTime.IsZero())

	require.NoError(t, s.Update(ctx, "pub.customer", StringPtr("150"), SyncMethodKeyBased, 150))
	st, err = s.Get(ctx, "pub.customer")
	require.NoError(t, err)
	assert.Equal(t, SyncMethodKeyBased, st.SyncMethod)
	assert.Equal(t, "150", *st.LastKeyValue)
	assert.Equal(t, int64(150), st.RowCount)
}

func TestUpdateWithoutKey(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	require.NoError(t, s.Update(ctx, "pub.notes", nil, SyncMethodTimestamp, 3))
	st, err := s.Get(ctx, "pub.notes")
	require.NoError(t, err)
	assert.Nil(t, st.LastKeyValue)
	assert.False(t, st.HasWatermark())
}

func TestList(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	require.NoError(t, s.Update(ctx, "pub.b", nil, SyncMethodFull, 1))
	require.NoError(t, s.Update(ctx, "pub.a", StringPtr("9"), SyncMethodKeyBased, 2))
	l, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, l, 2)
	assert.Equal(t, "pub.a", l[0].TableName)
	assert.Equal(t, "pub.b", l[1].TableName)
}

func TestParseSyncMethod(t *testing.T) {
	m, err := ParseSyncMethod("key_based")
	require.NoError(t, err)
	assert.Equal(t, SyncMethodKeyBased, m)
	_, err = ParseSyncMethod("cdc")
	assert.Error(t, err)
}

func TestNewStoreRejectsOtherDatabases(t *testing.T) {
	_, err := NewStore(logrus.New(), &sql.DB{}, constants.ConnectionTypeMySql, "x")
	assert.Error(t, err)
}
