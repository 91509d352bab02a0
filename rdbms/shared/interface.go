package shared

import (
	"context"
	"database/sql"
)

// Connector abstracts all access to Go SQL functionality.
type Connector interface {
	// Go SQL entry points:
	BeginTx(ctx context.Context) (Transacter, error)
	ExecContext(ctx context.Context, query string, args ...interface{}) (Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (Rows, error)
	Close()
	// pgmirror functionality:
	GetType() string
	GetDmlGenerator() DmlGenerator
	GetDb() *sql.DB // nil when there is no database behind the Connector
}

type Transacter interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (Rows, error)
	Commit() error
	Rollback() error
}

// Interfaces to abstract Go SQL library return values so mocks can stand in for a database.

type Result interface {
	RowsAffected() (int64, error)
}

// Rows is satisfied by *sql.Rows.
type Rows interface {
	Next() bool
	Scan(dest ...interface{}) error
	Columns() ([]string, error)
	Err() error
	Close() error
}

// DmlGenerator builds batch DML for the destination database.
type DmlGenerator interface {
	NewInsertGenerator(cfg *SqlStatementGeneratorConfig) SqlStmtTxtBatcher
	NewUpsertGenerator(cfg *SqlStatementGeneratorConfig) SqlStmtTxtBatcher
	NewDeleteGenerator(cfg *SqlStatementGeneratorConfig) SqlStmtTxtBatcher
}

type SqlStmtGenerator interface {
	GetStatement() string
}

// SqlStmtTxtBatcher is used to combine DML statements that affect individual records into one statement, aiming
// to improve performance and reduce network round trips.
type SqlStmtTxtBatcher interface {
	SqlStmtGenerator
	InitBatch(batchSize int)                             // reset variables and preallocate slices for the given batch size.
	AddValuesToBatch(values []interface{}) (bool, error) // add values to SQL statement.
	GetValues() []interface{}                            // get all values added to the batch so they can be supplied as args to exec the SQL returned by GetStatement().
	GetRowCount() int                                    // number of rows currently held in the batch.
}
