package rdbms

import (
	"context"
	"database/sql"
	"strings"

	"github.com/pkg/errors"
	"github.com/relloyd/pgmirror/logger"
	"github.com/relloyd/pgmirror/rdbms/shared"
)

// ColumnInfo is one row of source catalog output describing a column.
type ColumnInfo struct {
	Name      string
	DataType  string
	Length    int
	Precision int
	Scale     int
	Nullable  bool
	Position  int
}

// KeyPredicate restricts a source query to rows whose Column is greater than After.
type KeyPredicate struct {
	Column string
	After  interface{}
}

// Cursor fetches rows of an open source query in chunks.
type Cursor interface {
	Next(ctx context.Context, n int) ([][]interface{}, error)
	Close() error
}

// SourceConnection reads catalog metadata and rows from a source database.
// Every statement runs while holding a slot from the CursorGuard.
type SourceConnection struct {
	log     logger.Logger
	db      shared.Connector
	dialect *Dialect
	guard   *CursorGuard
}

// NewSourceConnection wraps db using the dialect that matches its connection type.
func NewSourceConnection(log logger.Logger, db shared.Connector, guard *CursorGuard) (*SourceConnection, error) {
	d, err := GetDialect(db.GetType())
	if err != nil {
		return nil, err
	}
	return &SourceConnection{log: log, db: db, dialect: d, guard: guard}, nil
}

// Close closes the underlying connection.
func (s *SourceConnection) Close() {
	s.db.Close()
}

// queryAll runs a guarded catalog query and passes each row to fn.
func (s *SourceConnection) queryAll(ctx context.Context, query string, args []interface{}, fn func(rows shared.Rows) error) error {
	if err := s.guard.Acquire(ctx); err != nil {
		return err
	}
	defer s.guard.Release()
	s.log.Trace("source query: ", query, "; args: ", args)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return err
	}
	defer func() {
		_ = rows.Close()
	}()
	for rows.Next() {
		if err = fn(rows); err != nil {
			return err
		}
	}
	return rows.Err()
}

// ListTables returns the tables in schema in catalog order.
func (s *SourceConnection) ListTables(ctx context.Context, schema string) ([]SchemaTable, error) {
	retval := make([]SchemaTable, 0)
	q := s.dialect.tables
	err := s.queryAll(ctx, q.sql, q.args(schema, ""), func(rows shared.Rows) error {
		var sch, tab sql.NullString
		if err := rows.Scan(&sch, &tab); err != nil {
			return err
		}
		retval = append(retval, NewSchemaTable(strings.TrimSpace(sch.String), strings.TrimSpace(tab.String)))
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "unable to list tables in schema %v", schema)
	}
	return retval, nil
}

// GetColumns returns the columns of st in ordinal position order.
func (s *SourceConnection) GetColumns(ctx context.Context, st SchemaTable) ([]ColumnInfo, error) {
	retval := make([]ColumnInfo, 0)
	q := s.dialect.columns
	err := s.queryAll(ctx, q.sql, q.args(st.Schema, st.Table), func(rows shared.Rows) error {
		var name, dataType, nullable sql.NullString
		var length, precision, scale, position sql.NullInt64
		if err := rows.Scan(&name, &dataType, &length, &precision, &scale, &nullable, &position); err != nil {
			return err
		}
		retval = append(retval, ColumnInfo{
			Name:      strings.TrimSpace(name.String),
			DataType:  strings.TrimSpace(dataType.String),
			Length:    int(length.Int64),
			Precision: int(precision.Int64),
			Scale:     int(scale.Int64),
			Nullable:  isNullableFlag(nullable.String),
			Position:  int(position.Int64),
		})
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "unable to fetch columns for %v", st)
	}
	return retval, nil
}

func isNullableFlag(s string) bool {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "Y", "YES", "1", "TRUE", "T":
		return true
	}
	return false
}

// GetPrimaryKey returns the primary key columns of st in key order.
// The slice is empty when there is no key or the source cannot describe keys.
func (s *SourceConnection) GetPrimaryKey(ctx context.Context, st SchemaTable) ([]string, error) {
	retval := make([]string, 0)
	if !s.dialect.SupportsPrimaryKeys() {
		return retval, nil
	}
	q := s.dialect.primaryKey
	err := s.queryAll(ctx, q.sql, q.args(st.Schema, st.Table), func(rows shared.Rows) error {
		var col sql.NullString
		if err := rows.Scan(&col); err != nil {
			return err
		}
		retval = append(retval, strings.TrimSpace(col.String))
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "unable to fetch primary key for %v", st)
	}
	return retval, nil
}

// RowCount counts rows in st, optionally restricted by pred.
func (s *SourceConnection) RowCount(ctx context.Context, st SchemaTable, pred *KeyPredicate) (int64, error) {
	var count int64
	var args []interface{}
	keyCol := ""
	if pred != nil {
		keyCol = pred.Column
		args = []interface{}{pred.After}
	}
	err := s.queryAll(ctx, s.dialect.CountSql(st, keyCol), args, func(rows shared.Rows) error {
		return rows.Scan(&count)
	})
	if err != nil {
		return 0, errors.Wrapf(err, "unable to count rows in %v", st)
	}
	return count, nil
}

// OpenCursor starts a forward-only query over cols of st.
// With orderBy set, rows are ordered by that column; pred additionally filters on it.
// The cursor holds a guard slot until Close is called.
func (s *SourceConnection) OpenCursor(ctx context.Context, st SchemaTable, cols []string, orderBy string, pred *KeyPredicate) (Cursor, error) {
	var args []interface{}
	if pred != nil {
		orderBy = pred.Column
		args = []interface{}{pred.After}
	}
	query := s.dialect.SelectSql(st, cols, orderBy, pred != nil)
	if err := s.guard.Acquire(ctx); err != nil {
		return nil, err
	}
	s.log.Debug("source query: ", query)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		s.guard.Release()
		return nil, errors.Wrapf(err, "unable to query %v", st)
	}
	return &SourceCursor{rows: rows, numCols: len(cols), release: s.guard.Release}, nil
}

// SourceCursor implements Cursor over a guarded query.
type SourceCursor struct {
	rows    shared.Rows
	numCols int
	release func()
	closed  bool
}

// Next returns up to n rows.
// An empty result means the cursor is exhausted.
func (c *SourceCursor) Next(ctx context.Context, n int) ([][]interface{}, error) {
	retval := make([][]interface{}, 0, n)
	if c.closed {
		return retval, nil
	}
	scanVals := make([]interface{}, c.numCols)
	scanPtrs := make([]interface{}, c.numCols)
	for idx := range scanVals {
		scanPtrs[idx] = &scanVals[idx]
	}
	for len(retval) < n {
		select { // quit if asked to, else continue...
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		if !c.rows.Next() {
			if err := c.rows.Err(); err != nil {
				return nil, errors.Wrap(err, "error fetching rows")
			}
			break
		}
		if err := c.rows.Scan(scanPtrs...); err != nil {
			return nil, errors.Wrap(err, "error scanning row")
		}
		row := make([]interface{}, c.numCols)
		copy(row, scanVals)
		retval = append(retval, row)
	}
	return retval, nil
}

// Close releases the rows and the guard slot.
// It is safe to call more than once.
func (c *SourceCursor) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	defer c.release()
	return c.rows.Close()
}
