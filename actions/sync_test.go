package actions

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/relloyd/pgmirror/config"
	"github.com/relloyd/pgmirror/syncstate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validSyncConfig() *SyncConfig {
	cfg := NewSyncConfig()
	cfg.SourceDsn = "DSN=openedge"
	cfg.TargetDsn = "postgres://localhost/warehouse"
	return cfg
}

func TestSyncConfigValidate(t *testing.T) {
	cases := []struct {
		name    string
		modify  func(cfg *SyncConfig)
		wantErr string
	}{
		{name: "defaults", modify: func(cfg *SyncConfig) {}},
		{name: "missing source", modify: func(cfg *SyncConfig) { cfg.SourceDsn = "" }, wantErr: "source DSN"},
		{name: "zero batch size", modify: func(cfg *SyncConfig) { cfg.BatchSize = 0 }, wantErr: "batch size"},
		{name: "negative batch size", modify: func(cfg *SyncConfig) { cfg.BatchSize = -5 }, wantErr: "batch size must be greater than 0"},
		{name: "negative cursors", modify: func(cfg *SyncConfig) { cfg.MaxCursors = -1 }, wantErr: "max cursors"},
		{name: "negative rate", modify: func(cfg *SyncConfig) { cfg.MaxBatchesPerSecond = -1 }, wantErr: "max batches per second"},
		{name: "typed policy", modify: func(cfg *SyncConfig) { cfg.SchemaPolicy = "TYPED" }},
		{name: "bad policy", modify: func(cfg *SyncConfig) { cfg.SchemaPolicy = "loose" }, wantErr: "schema policy"},
		{name: "schedule", modify: func(cfg *SyncConfig) { cfg.Schedule = "*/15 * * * *" }},
		{name: "bad schedule", modify: func(cfg *SyncConfig) { cfg.Schedule = "every tuesday" }, wantErr: "invalid cron schedule"},
		{name: "schedule and repeat", modify: func(cfg *SyncConfig) {
			cfg.Schedule = "@hourly"
			cfg.RepeatInterval = 60
		}, wantErr: "not both"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validSyncConfig()
			tc.modify(cfg)
			err := cfg.Validate()
			if tc.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.wantErr)
			}
		})
	}
}

func TestSyncConfigIgnoreIdentifiers(t *testing.T) {
	cfg := validSyncConfig()
	cfg.IgnoreTables = []string{"Customer, PUB.Invoice", " ", "other.Stock"}
	assert.Equal(t, []string{"pub.customer", "pub.invoice", "other.stock"}, cfg.IgnoreIdentifiers())
	assert.False(t, cfg.NativeBinds())
	cfg.SchemaPolicy = "typed"
	assert.True(t, cfg.NativeBinds())
}

func TestRunIgnoreAddAndList(t *testing.T) {
	cfg := &IgnoreConfig{IgnoreFile: filepath.Join(t.TempDir(), "ignored.txt"), SourceSchema: "PUB"}
	assert.Error(t, RunIgnoreAdd(cfg, &strings.Builder{}), "no tables supplied")

	cfg.Tables = []string{"Customer", "pub.invoice"}
	out := &strings.Builder{}
	require.NoError(t, RunIgnoreAdd(cfg, out))
	assert.Contains(t, out.String(), `Table "pub.customer" added`)

	cfg.Tables = []string{"CUSTOMER"}
	out.Reset()
	require.NoError(t, RunIgnoreAdd(cfg, out))
	assert.Contains(t, out.String(), `Table "pub.customer" is already ignored`)

	out.Reset()
	require.NoError(t, RunIgnoreList(cfg, out))
	assert.Equal(t, "pub.customer\npub.invoice\n", out.String())
}

type fakeLister struct {
	states []*syncstate.SyncState
	err    error
}

func (f *fakeLister) List(ctx context.Context) ([]*syncstate.SyncState, error) {
	return f.states, f.err
}

func TestPrintStates(t *testing.T) {
	key := "1042"
	synced := time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)
	lister := &fakeLister{states: []*syncstate.SyncState{
		{TableName: "pub.customer", SyncMethod: syncstate.SyncMethodKeyBased, LastKeyValue: &key, RowCount: 1042, LastSyncTime: synced},
		{TableName: "pub.notes", SyncMethod: syncstate.SyncMethodTimestamp, RowCount: 7, LastSyncTime: synced},
	}}
	out := &strings.Builder{}
	require.NoError(t, PrintStates(context.Background(), lister, out))
	lines := strings.Split(strings.TrimRight(out.String(), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, []string{"TABLE", "METHOD", "LAST", "KEY", "ROWS", "LAST", "SYNC"}, strings.Fields(lines[0]))
	assert.Equal(t, []string{"pub.customer", "key_based", "1042", "1042", "20240501T093000"}, strings.Fields(lines[1]))
	assert.Equal(t, []string{"pub.notes", "timestamp", "-", "7", "20240501T093000"}, strings.Fields(lines[2]))

	lister.err = errors.New("relation does not exist")
	assert.Error(t, PrintStates(context.Background(), lister, out))
}

func TestRunDefaultAddAndRemove(t *testing.T) {
	file := config.NewConfigFileWithDir(t.TempDir(), "config.yaml")
	err := RunDefaultAdd(&DefaultAddConfig{ConfigFile: file, Key: "no-such-flag", Value: "1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown key")

	require.NoError(t, RunDefaultAdd(&DefaultAddConfig{ConfigFile: file, Key: "batch-size", Value: "2000"}))
	err = RunDefaultAdd(&DefaultAddConfig{ConfigFile: file, Key: "batch-size", Value: "3000"})
	require.Error(t, err, "existing keys need force")
	require.NoError(t, RunDefaultAdd(&DefaultAddConfig{ConfigFile: file, Key: "batch-size", Value: "3000", Force: true}))

	var n int
	require.NoError(t, file.Get("batch-size", &n))
	assert.Equal(t, 3000, n)

	require.NoError(t, RunDefaultRemove(&DefaultRemoveConfig{ConfigFile: file, Key: "batch-size"}))
	assert.Error(t, RunDefaultRemove(&DefaultRemoveConfig{ConfigFile: file, Key: "batch-size"}))
}
