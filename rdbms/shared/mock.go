package shared

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"reflect"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/relloyd/pgmirror/logger"
)

// MockConnection implements Connector without a database.
// Every statement is recorded in order, including transaction boundaries as "begin", "commit" and "rollback".
// ExecHook and QueryHook let tests fail statements or return canned rows.
type MockConnection struct {
	log        logger.Logger
	dbType     string
	mu         sync.Mutex
	statements []string
	ExecHook   func(query string, args []interface{}) error
	QueryHook  func(query string, args []interface{}) (Rows, error)
}

// NewMockConnectionWithMockTx returns a mock Connector using the Postgres DML generator.
func NewMockConnectionWithMockTx(log logger.Logger, dbType string) *MockConnection {
	return &MockConnection{log: log, dbType: dbType}
}

// Statements returns a copy of all recorded SQL.
func (c *MockConnection) Statements() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.statements...)
}

func (c *MockConnection) record(s string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.statements = append(c.statements, s)
}

func (c *MockConnection) BeginTx(ctx context.Context) (Transacter, error) {
	c.record("begin")
	return &MockTx{c: c}, nil
}

func (c *MockConnection) ExecContext(ctx context.Context, query string, args ...interface{}) (Result, error) {
	c.record(query)
	if c.ExecHook != nil {
		if err := c.ExecHook(query, args); err != nil {
			return nil, err
		}
	}
	return mockResult{}, nil
}

func (c *MockConnection) QueryContext(ctx context.Context, query string, args ...interface{}) (Rows, error) {
	c.record(query)
	if c.QueryHook != nil {
		return c.QueryHook(query, args)
	}
	return NewMockRows(nil, nil), nil
}

func (c *MockConnection) Close() {}

func (c *MockConnection) GetType() string {
	return c.dbType
}

func (c *MockConnection) GetDb() *sql.DB {
	return nil
}

func (c *MockConnection) GetDmlGenerator() DmlGenerator {
	return &DmlGeneratorPostgres{}
}

// MockTx records statements on the parent connection.
type MockTx struct {
	c *MockConnection
}

func (t *MockTx) ExecContext(ctx context.Context, query string, args ...interface{}) (Result, error) {
	return t.c.ExecContext(ctx, query, args...)
}

func (t *MockTx) QueryContext(ctx context.Context, query string, args ...interface{}) (Rows, error) {
	return t.c.QueryContext(ctx, query, args...)
}

func (t *MockTx) Commit() error {
	t.c.record("commit")
	return nil
}

func (t *MockTx) Rollback() error {
	t.c.record("rollback")
	return nil
}

type mockResult struct{}

func (mockResult) RowsAffected() (int64, error) {
	return 0, nil
}

// MockRows implements Rows over canned data.
type MockRows struct {
	cols []string
	data [][]interface{}
	idx  int
}

func NewMockRows(cols []string, data [][]interface{}) *MockRows {
	return &MockRows{cols: cols, data: data, idx: -1}
}

func (r *MockRows) Next() bool {
	r.idx++
	return r.idx < len(r.data)
}

func (r *MockRows) Columns() ([]string, error) {
	return r.cols, nil
}

func (r *MockRows) Err() error {
	return nil
}

func (r *MockRows) Close() error {
	return nil
}

// Scan copies the current row into dest.
// It supports the destination types used by this module's queries.
func (r *MockRows) Scan(dest ...interface{}) error {
	if r.idx < 0 || r.idx >= len(r.data) {
		return io.EOF
	}
	row := r.data[r.idx]
	if len(dest) != len(row) {
		return fmt.Errorf("expected %v destination arguments in Scan, not %v", len(row), len(dest))
	}
	for i, v := range row {
		if err := assignMockValue(dest[i], v); err != nil {
			return errors.Wrapf(err, "column %v", i)
		}
	}
	return nil
}

func assignMockValue(dest interface{}, v interface{}) error {
	switch d := dest.(type) {
	case *interface{}:
		*d = v
		return nil
	case *sql.NullString:
		if v == nil {
			*d = sql.NullString{}
			return nil
		}
		*d = sql.NullString{String: fmt.Sprint(v), Valid: true}
		return nil
	case *string:
		if v == nil {
			return errors.New("cannot scan NULL into *string")
		}
		*d = fmt.Sprint(v)
		return nil
	case *time.Time:
		t, ok := v.(time.Time)
		if !ok {
			return fmt.Errorf("cannot scan %T into *time.Time", v)
		}
		*d = t
		return nil
	}
	// Numbers and booleans.
	dv := reflect.ValueOf(dest)
	if dv.Kind() != reflect.Ptr || v == nil {
		return fmt.Errorf("unsupported Scan of %T into %T", v, dest)
	}
	sv := reflect.ValueOf(v)
	if !sv.Type().ConvertibleTo(dv.Elem().Type()) {
		return fmt.Errorf("unsupported Scan of %T into %T", v, dest)
	}
	dv.Elem().Set(sv.Convert(dv.Elem().Type()))
	return nil
}
