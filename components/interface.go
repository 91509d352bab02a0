package components

import (
	"context"

	"github.com/relloyd/pgmirror/rdbms"
)

// Source is the database tables are copied from.
// It is implemented by rdbms.SourceConnection.
type Source interface {
	ListTables(ctx context.Context, schema string) ([]rdbms.SchemaTable, error)
	GetColumns(ctx context.Context, st rdbms.SchemaTable) ([]rdbms.ColumnInfo, error)
	GetPrimaryKey(ctx context.Context, st rdbms.SchemaTable) ([]string, error)
	RowCount(ctx context.Context, st rdbms.SchemaTable, pred *rdbms.KeyPredicate) (int64, error)
	OpenCursor(ctx context.Context, st rdbms.SchemaTable, cols []string, orderBy string, pred *rdbms.KeyPredicate) (rdbms.Cursor, error)
}

// Destination is the Postgres database tables are copied to.
// It is implemented by rdbms.PostgresTarget.
type Destination interface {
	TableExists(ctx context.Context, schema string, table string) (bool, error)
	GetColumns(ctx context.Context, schema string, table string) ([]string, error)
	CreateTable(ctx context.Context, schema string, table string, cols []string, colTypes []string) error
	AddColumn(ctx context.Context, schema string, table string, col string, colType string) error
	RowCount(ctx context.Context, schema string, table string) (int64, error)
	Truncate(ctx context.Context, schema string, table string) error
	Begin(ctx context.Context) (rdbms.TableWriter, error)
}
