package components

import (
	"testing"

	"github.com/relloyd/pgmirror/rdbms"
	"github.com/relloyd/pgmirror/syncstate"
	td "github.com/relloyd/pgmirror/table-definition"
)

func TestSelectStrategy(t *testing.T) {
	withKey := &td.TableDescriptor{SchemaTable: rdbms.NewSchemaTable("PUB", "orders"), PkColumn: "id",
		Columns: []td.TableColumn{{ColumnInfo: rdbms.ColumnInfo{Name: "id"}}}}
	withoutKey := &td.TableDescriptor{SchemaTable: rdbms.NewSchemaTable("PUB", "notes"),
		Columns: []td.TableColumn{{ColumnInfo: rdbms.ColumnInfo{Name: "body"}}}}
	prior := &syncstate.SyncState{SyncMethod: syncstate.SyncMethodFull}

	cases := []struct {
		name      string
		table     *td.TableDescriptor
		prior     *syncstate.SyncState
		forceFull bool
		expected  syncstate.SyncMethod
	}{
		{"forced", withKey, prior, true, syncstate.SyncMethodFull},
		{"first run", withKey, nil, false, syncstate.SyncMethodFull},
		{"keyed", withKey, prior, false, syncstate.SyncMethodKeyBased},
		{"no key", withoutKey, prior, false, syncstate.SyncMethodTimestamp},
		{"no key first run", withoutKey, nil, false, syncstate.SyncMethodFull},
	}
	for _, tc := range cases {
		if got := SelectStrategy(tc.table, tc.prior, tc.forceFull); got != tc.expected {
			t.Fatalf("%v: expected %v; got %v", tc.name, tc.expected, got)
		}
	}
}
