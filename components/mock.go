package components

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pkg/errors"
	c "github.com/relloyd/pgmirror/constants"
	"github.com/relloyd/pgmirror/rdbms"
)

// FakeTable is a table held by FakeSource.
type FakeTable struct {
	Schema     string
	Name       string
	Columns    []rdbms.ColumnInfo
	PrimaryKey []string
	Rows       [][]interface{} // values in Columns order
}

// FakeSource is an in-memory Source for tests.
type FakeSource struct {
	mu          sync.Mutex
	Tables      []*FakeTable     // catalog order
	ListErr     error            // returned by ListTables
	ColumnsErr  map[string]error // returned by GetColumns, keyed by lowercase schema.table
	FetchSizes  []int            // n passed to every Cursor.Next call
	OpenCursors int              // cursors not yet closed
}

func NewFakeSource(tables ...*FakeTable) *FakeSource {
	return &FakeSource{Tables: tables, ColumnsErr: make(map[string]error)}
}

func (s *FakeSource) find(st rdbms.SchemaTable) (*FakeTable, error) {
	for _, t := range s.Tables {
		if strings.EqualFold(t.Schema, st.Schema) && strings.EqualFold(t.Name, st.Table) {
			return t, nil
		}
	}
	return nil, fmt.Errorf("table %v not found", st)
}

func (s *FakeSource) ListTables(ctx context.Context, schema string) ([]rdbms.SchemaTable, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ListErr != nil {
		return nil, s.ListErr
	}
	retval := make([]rdbms.SchemaTable, 0)
	for _, t := range s.Tables {
		if strings.EqualFold(t.Schema, schema) {
			retval = append(retval, rdbms.NewSchemaTable(t.Schema, t.Name))
		}
	}
	return retval, nil
}

func (s *FakeSource) GetColumns(ctx context.Context, st rdbms.SchemaTable) ([]rdbms.ColumnInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.ColumnsErr[st.Identifier()]; err != nil {
		return nil, err
	}
	t, err := s.find(st)
	if err != nil {
		return nil, err
	}
	retval := make([]rdbms.ColumnInfo, len(t.Columns))
	copy(retval, t.Columns)
	return retval, nil
}

func (s *FakeSource) GetPrimaryKey(ctx context.Context, st rdbms.SchemaTable) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, err := s.find(st)
	if err != nil {
		return nil, err
	}
	return append([]string{}, t.PrimaryKey...), nil
}

// AddRows appends rows to a table, as if the source had new inserts.
func (s *FakeSource) AddRows(st rdbms.SchemaTable, rows ...[]interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, err := s.find(st); err == nil {
		t.Rows = append(t.Rows, rows...)
	}
}

func columnIndex(cols []rdbms.ColumnInfo, name string) int {
	for idx, col := range cols {
		if strings.EqualFold(col.Name, name) {
			return idx
		}
	}
	return -1
}

// selectRows returns copies of the rows matching pred, ordered by orderBy if set.
func (s *FakeSource) selectRows(t *FakeTable, orderBy string, pred *rdbms.KeyPredicate) ([][]interface{}, error) {
	retval := make([][]interface{}, 0, len(t.Rows))
	keyIdx := -1
	if pred != nil {
		orderBy = pred.Column
	}
	if orderBy != "" {
		if keyIdx = columnIndex(t.Columns, orderBy); keyIdx < 0 {
			return nil, fmt.Errorf("column %v not found", orderBy)
		}
	}
	for _, row := range t.Rows {
		if pred != nil && (row[keyIdx] == nil || compareValues(row[keyIdx], pred.After) <= 0) {
			continue
		}
		retval = append(retval, append([]interface{}{}, row...))
	}
	if keyIdx >= 0 {
		sort.SliceStable(retval, func(i, j int) bool {
			return compareValues(retval[i][keyIdx], retval[j][keyIdx]) < 0
		})
	}
	return retval, nil
}

func (s *FakeSource) RowCount(ctx context.Context, st rdbms.SchemaTable, pred *rdbms.KeyPredicate) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, err := s.find(st)
	if err != nil {
		return 0, err
	}
	rows, err := s.selectRows(t, "", pred)
	if err != nil {
		return 0, err
	}
	return int64(len(rows)), nil
}

func (s *FakeSource) OpenCursor(ctx context.Context, st rdbms.SchemaTable, cols []string, orderBy string, pred *rdbms.KeyPredicate) (rdbms.Cursor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, err := s.find(st)
	if err != nil {
		return nil, err
	}
	rows, err := s.selectRows(t, orderBy, pred)
	if err != nil {
		return nil, err
	}
	idx := make([]int, len(cols))
	for i, col := range cols {
		if idx[i] = columnIndex(t.Columns, col); idx[i] < 0 {
			return nil, fmt.Errorf("column %v not found", col)
		}
	}
	projected := make([][]interface{}, len(rows))
	for i, row := range rows {
		projected[i] = make([]interface{}, len(cols))
		for j, k := range idx {
			projected[i][j] = row[k]
		}
	}
	s.OpenCursors++
	return &fakeCursor{src: s, rows: projected}, nil
}

type fakeCursor struct {
	src    *FakeSource
	rows   [][]interface{}
	pos    int
	closed bool
}

func (f *fakeCursor) Next(ctx context.Context, n int) ([][]interface{}, error) {
	f.src.mu.Lock()
	f.src.FetchSizes = append(f.src.FetchSizes, n)
	f.src.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	end := f.pos + n
	if end > len(f.rows) {
		end = len(f.rows)
	}
	retval := f.rows[f.pos:end]
	f.pos = end
	return retval, nil
}

func (f *fakeCursor) Close() error {
	if f.closed {
		return nil
	}
	f.closed = true
	f.src.mu.Lock()
	f.src.OpenCursors--
	f.src.mu.Unlock()
	return nil
}

// compareValues orders the key types used in tests: integers, floats, strings and times.
func compareValues(a interface{}, b interface{}) int {
	switch av := a.(type) {
	case int:
		return compareValues(int64(av), b)
	case int64:
		switch bv := b.(type) {
		case int:
			return compareInt64(av, int64(bv))
		case int64:
			return compareInt64(av, bv)
		case float64:
			return compareFloat64(float64(av), bv)
		}
	case float64:
		switch bv := b.(type) {
		case int:
			return compareFloat64(av, float64(bv))
		case int64:
			return compareFloat64(av, float64(bv))
		case float64:
			return compareFloat64(av, bv)
		}
	case time.Time:
		if bv, ok := b.(time.Time); ok {
			return av.Compare(bv)
		}
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

func compareInt64(a int64, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func compareFloat64(a float64, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// FakeDestTable is a table held by FakeDestination.
type FakeDestTable struct {
	Columns   []string
	Types     []string
	KeyColumn string          // unique column used by ON CONFLICT; empty means upserts fail
	Rows      [][]interface{} // values in Columns order
}

func (t *FakeDestTable) copyRows() [][]interface{} {
	retval := make([][]interface{}, len(t.Rows))
	for idx, row := range t.Rows {
		retval[idx] = append([]interface{}{}, row...)
	}
	return retval
}

// FakeDestination is an in-memory Destination for tests.
// Transactions work on a copy of the table rows which is published on commit.
type FakeDestination struct {
	mu         sync.Mutex
	Tables     map[string]*FakeDestTable // keyed by schema.table
	Schemas    []string                  // schemas passed to EnsureSchema
	DDL        []string                  // one entry per create or add column
	Truncates  int
	Commits    int
	Rollbacks  int
	WriteSizes []int // rows passed to every Insert and Upsert
	inserts    int
	InsertHook func(call int) error // optional, may fail the n'th Insert call
	exists     int
	ExistsHook func(call int) error // optional, may fail the n'th TableExists call
	DDLErr     error                // returned by CreateTable and AddColumn
}

func NewFakeDestination() *FakeDestination {
	return &FakeDestination{Tables: make(map[string]*FakeDestTable)}
}

func destKey(schema string, table string) string {
	return strings.ToLower(schema + "." + table)
}

// Table returns the named table or nil.
func (d *FakeDestination) Table(schema string, table string) *FakeDestTable {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.Tables[destKey(schema, table)]
}

// ColumnValues returns the values of col for every row in the table.
func (d *FakeDestination) ColumnValues(schema string, table string, col string) []interface{} {
	d.mu.Lock()
	defer d.mu.Unlock()
	t := d.Tables[destKey(schema, table)]
	if t == nil {
		return nil
	}
	idx := indexOf(t.Columns, col)
	retval := make([]interface{}, 0, len(t.Rows))
	for _, row := range t.Rows {
		retval = append(retval, row[idx])
	}
	return retval
}

func indexOf(cols []string, name string) int {
	for idx, col := range cols {
		if strings.EqualFold(col, name) {
			return idx
		}
	}
	return -1
}

func (d *FakeDestination) EnsureSchema(ctx context.Context, schema string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Schemas = append(d.Schemas, schema)
	return nil
}

func (d *FakeDestination) TableExists(ctx context.Context, schema string, table string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.exists++
	if d.ExistsHook != nil {
		if err := d.ExistsHook(d.exists); err != nil {
			return false, err
		}
	}
	_, ok := d.Tables[destKey(schema, table)]
	return ok, nil
}

func (d *FakeDestination) GetColumns(ctx context.Context, schema string, table string) ([]string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	t, ok := d.Tables[destKey(schema, table)]
	if !ok {
		return []string{}, nil
	}
	return append([]string{}, t.Columns...), nil
}

func (d *FakeDestination) CreateTable(ctx context.Context, schema string, table string, cols []string, colTypes []string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.DDLErr != nil {
		return d.DDLErr
	}
	key := destKey(schema, table)
	if _, ok := d.Tables[key]; ok {
		return &pgconn.PgError{Code: "42P07", Message: fmt.Sprintf("relation %q already exists", table)}
	}
	d.Tables[key] = &FakeDestTable{Columns: append([]string{}, cols...), Types: append([]string{}, colTypes...)}
	d.DDL = append(d.DDL, "create "+key)
	return nil
}

func (d *FakeDestination) AddColumn(ctx context.Context, schema string, table string, col string, colType string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.DDLErr != nil {
		return d.DDLErr
	}
	key := destKey(schema, table)
	t, ok := d.Tables[key]
	if !ok {
		return &pgconn.PgError{Code: "42P01", Message: fmt.Sprintf("relation %q does not exist", table)}
	}
	if indexOf(t.Columns, col) >= 0 {
		return &pgconn.PgError{Code: "42701", Message: fmt.Sprintf("column %q already exists", col)}
	}
	t.Columns = append(t.Columns, col)
	t.Types = append(t.Types, colType)
	for idx := range t.Rows {
		t.Rows[idx] = append(t.Rows[idx], nil)
	}
	d.DDL = append(d.DDL, "add "+key+"."+col)
	return nil
}

func (d *FakeDestination) RowCount(ctx context.Context, schema string, table string) (int64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	t, ok := d.Tables[destKey(schema, table)]
	if !ok {
		return 0, &pgconn.PgError{Code: "42P01", Message: fmt.Sprintf("relation %q does not exist", table)}
	}
	return int64(len(t.Rows)), nil
}

func (d *FakeDestination) Truncate(ctx context.Context, schema string, table string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	t, ok := d.Tables[destKey(schema, table)]
	if !ok {
		return &pgconn.PgError{Code: "42P01", Message: fmt.Sprintf("relation %q does not exist", table)}
	}
	t.Rows = nil
	d.Truncates++
	return nil
}

func (d *FakeDestination) Begin(ctx context.Context) (rdbms.TableWriter, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return &fakeTx{dst: d, work: d.snapshot(), savepoints: make(map[string]map[string][][]interface{})}, nil
}

// snapshot copies the rows of every table. The caller holds the lock.
func (d *FakeDestination) snapshot() map[string][][]interface{} {
	retval := make(map[string][][]interface{}, len(d.Tables))
	for k, t := range d.Tables {
		retval[k] = t.copyRows()
	}
	return retval
}

type fakeTx struct {
	dst        *FakeDestination
	work       map[string][][]interface{}
	savepoints map[string]map[string][][]interface{}
	done       bool
}

func copyState(state map[string][][]interface{}) map[string][][]interface{} {
	retval := make(map[string][][]interface{}, len(state))
	for k, rows := range state {
		cp := make([][]interface{}, len(rows))
		for idx, row := range rows {
			cp[idx] = append([]interface{}{}, row...)
		}
		retval[k] = cp
	}
	return retval
}

// table returns the table definition for key or a Postgres undefined table error.
func (x *fakeTx) table(schema string, table string) (string, *FakeDestTable, error) {
	key := destKey(schema, table)
	t, ok := x.dst.Tables[key]
	if !ok {
		return key, nil, &pgconn.PgError{Code: "42P01", Message: fmt.Sprintf("relation %q does not exist", table)}
	}
	return key, t, nil
}

// widen maps rows in cols order onto the full width of t.
func widen(t *FakeDestTable, cols []string, rows [][]interface{}) ([][]interface{}, error) {
	idx := make([]int, len(cols))
	for i, col := range cols {
		if idx[i] = indexOf(t.Columns, col); idx[i] < 0 {
			return nil, &pgconn.PgError{Code: "42703", Message: fmt.Sprintf("column %q does not exist", col)}
		}
	}
	retval := make([][]interface{}, len(rows))
	for i, row := range rows {
		retval[i] = make([]interface{}, len(t.Columns))
		for j, k := range idx {
			retval[i][k] = row[j]
		}
	}
	return retval, nil
}

func (x *fakeTx) Insert(ctx context.Context, schema string, table string, cols []string, rows [][]interface{}) error {
	x.dst.mu.Lock()
	defer x.dst.mu.Unlock()
	x.dst.inserts++
	if x.dst.InsertHook != nil {
		if err := x.dst.InsertHook(x.dst.inserts); err != nil {
			return err
		}
	}
	key, t, err := x.table(schema, table)
	if err != nil {
		return err
	}
	wide, err := widen(t, cols, rows)
	if err != nil {
		return err
	}
	x.dst.WriteSizes = append(x.dst.WriteSizes, len(rows))
	x.work[key] = append(x.work[key], wide...)
	return nil
}

func (x *fakeTx) Upsert(ctx context.Context, schema string, table string, cols []string, keyCols []string, rows [][]interface{}) error {
	x.dst.mu.Lock()
	defer x.dst.mu.Unlock()
	key, t, err := x.table(schema, table)
	if err != nil {
		return err
	}
	if len(keyCols) != 1 || t.KeyColumn == "" || !strings.EqualFold(t.KeyColumn, keyCols[0]) {
		return &pgconn.PgError{Code: c.PostgresErrCodeInvalidColumnRef, Message: "there is no unique or exclusion constraint matching the ON CONFLICT specification"}
	}
	wide, err := widen(t, cols, rows)
	if err != nil {
		return err
	}
	x.dst.WriteSizes = append(x.dst.WriteSizes, len(rows))
	k := indexOf(t.Columns, t.KeyColumn)
	for _, row := range wide {
		replaced := false
		for idx, existing := range x.work[key] {
			if fmt.Sprint(existing[k]) == fmt.Sprint(row[k]) {
				x.work[key][idx] = row
				replaced = true
				break
			}
		}
		if !replaced {
			x.work[key] = append(x.work[key], row)
		}
	}
	return nil
}

func (x *fakeTx) DeleteKeys(ctx context.Context, schema string, table string, keyCols []string, keys [][]interface{}) error {
	x.dst.mu.Lock()
	defer x.dst.mu.Unlock()
	key, t, err := x.table(schema, table)
	if err != nil {
		return err
	}
	if len(keyCols) != 1 {
		return errors.New("fake destination supports single column keys only")
	}
	k := indexOf(t.Columns, keyCols[0])
	if k < 0 {
		return &pgconn.PgError{Code: "42703", Message: fmt.Sprintf("column %q does not exist", keyCols[0])}
	}
	doomed := make(map[string]struct{}, len(keys))
	for _, tuple := range keys {
		doomed[fmt.Sprint(tuple[0])] = struct{}{}
	}
	kept := make([][]interface{}, 0, len(x.work[key]))
	for _, row := range x.work[key] {
		if _, ok := doomed[fmt.Sprint(row[k])]; !ok {
			kept = append(kept, row)
		}
	}
	x.work[key] = kept
	return nil
}

func (x *fakeTx) Savepoint(ctx context.Context, name string) error {
	x.dst.mu.Lock()
	defer x.dst.mu.Unlock()
	x.savepoints[name] = copyState(x.work)
	return nil
}

func (x *fakeTx) RollbackToSavepoint(ctx context.Context, name string) error {
	x.dst.mu.Lock()
	defer x.dst.mu.Unlock()
	state, ok := x.savepoints[name]
	if !ok {
		return fmt.Errorf("savepoint %q does not exist", name)
	}
	x.work = copyState(state)
	return nil
}

func (x *fakeTx) Commit() error {
	x.dst.mu.Lock()
	defer x.dst.mu.Unlock()
	if x.done {
		return errors.New("transaction already finished")
	}
	x.done = true
	for k, rows := range x.work {
		if t, ok := x.dst.Tables[k]; ok {
			t.Rows = rows
		}
	}
	x.dst.Commits++
	return nil
}

func (x *fakeTx) Rollback() error {
	x.dst.mu.Lock()
	defer x.dst.mu.Unlock()
	if x.done {
		return nil
	}
	x.done = true
	x.dst.Rollbacks++
	return nil
}
