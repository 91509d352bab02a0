package syncstate

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pkg/errors"
	"github.com/pressly/goose/v3"
	"github.com/pressly/goose/v3/database"
	"github.com/relloyd/pgmirror/constants"
	"github.com/relloyd/pgmirror/logger"
	"github.com/relloyd/pgmirror/rdbms/shared"
)

// versionTableName is the goose bookkeeping table kept alongside the state table.
const versionTableName = "pgmirror_schema_version"

// Store reads and writes SyncState rows in <schema>.sync_state.
type Store struct {
	log     logger.Logger
	db      *sql.DB
	dialect database.Dialect
	schema  string
	table   string // quoted <schema>.sync_state
}

// NewStore returns a Store for db, where dbType is a Postgres or SQLite connection type.
func NewStore(log logger.Logger, db *sql.DB, dbType string, schema string) (*Store, error) {
	if db == nil {
		return nil, errors.New("state store requires a database connection")
	}
	var d database.Dialect
	switch dbType {
	case constants.ConnectionTypePostgres:
		d = database.DialectPostgres
	case constants.ConnectionTypeSqlite:
		d = database.DialectSQLite3
	default:
		return nil, fmt.Errorf("unsupported state store database type %q", dbType)
	}
	return &Store{
		log:     log,
		db:      db,
		dialect: d,
		schema:  schema,
		table:   shared.QuoteIdentifier(schema, constants.StateTableName),
	}, nil
}

// Migrate creates the state table if it is missing.
// It is safe to call on every run.
func (s *Store) Migrate(ctx context.Context) error {
	versionTable := s.schema + "." + versionTableName
	if s.dialect == database.DialectSQLite3 { // SQLite keeps one schema per file
		versionTable = versionTableName
	}
	store, err := database.NewStore(s.dialect, versionTable)
	if err != nil {
		return shared.Classify(shared.ErrorKindState, "", errors.Wrap(err, "unable to set up migration store"))
	}
	createSyncState := goose.NewGoMigration(constants.StateMigrationVersionSyncState,
		&goose.GoFunc{RunTx: func(ctx context.Context, tx *sql.Tx) error {
			_, err := tx.ExecContext(ctx, fmt.Sprintf(`create table if not exists %v (
  table_name text primary key,
  last_sync_time timestamp,
  last_key_value text,
  sync_method text,
  row_count bigint
)`, s.table))
			return err
		}},
		nil,
	)
	p, err := goose.NewProvider("", s.db, nil,
		goose.WithStore(store),
		goose.WithDisableGlobalRegistry(true),
		goose.WithGoMigrations(createSyncState),
	)
	if err != nil {
		return shared.Classify(shared.ErrorKindState, "", errors.Wrap(err, "unable to set up state migrations"))
	}
	results, err := p.Up(ctx)
	if err != nil {
		return shared.Classify(shared.ErrorKindState, "", errors.Wrapf(err, "unable to migrate %v", s.table))
	}
	for _, r := range results {
		s.log.Info("applied state migration ", r.Source.Version, " in ", r.Duration)
	}
	return nil
}

const selectColumns = `table_name, last_sync_time, last_key_value, sync_method, row_count`

func scanState(rows *sql.Rows) (*SyncState, error) {
	var (
		name     string
		lastTime sql.NullTime
		lastKey  sql.NullString
		method   sql.NullString
		rowCount sql.NullInt64
	)
	if err := rows.Scan(&name, &lastTime, &lastKey, &method, &rowCount); err != nil {
		return nil, err
	}
	st := &SyncState{
		TableName:    name,
		LastSyncTime: lastTime.Time,
		SyncMethod:   SyncMethod(method.String),
		RowCount:     rowCount.Int64,
	}
	if lastKey.Valid {
		st.LastKeyValue = StringPtr(lastKey.String)
	}
	return st, nil
}

// Get returns the state of table or nil if there is none.
func (s *Store) Get(ctx context.Context, table string) (*SyncState, error) {
	rows, err := s.db.QueryContext(ctx,
		fmt.Sprintf("select %v from %v where table_name = $1", selectColumns, s.table), table)
	if err != nil {
		return nil, shared.Classify(shared.ErrorKindState, table, errors.Wrap(err, "unable to read sync state"))
	}
	defer func() {
		_ = rows.Close()
	}()
	if !rows.Next() {
		if err = rows.Err(); err != nil {
			return nil, shared.Classify(shared.ErrorKindState, table, err)
		}
		return nil, nil
	}
	st, err := scanState(rows)
	if err != nil {
		return nil, shared.Classify(shared.ErrorKindState, table, errors.Wrap(err, "unable to scan sync state"))
	}
	return st, nil
}

// Update inserts or replaces the state of table and stamps it with the current time.
func (s *Store) Update(ctx context.Context, table string, lastKey *string, method SyncMethod, rowCount int64) error {
	var key interface{}
	if lastKey != nil {
		key = *lastKey
	}
	q := fmt.Sprintf(`insert into %v (table_name, last_sync_time, last_key_value, sync_method, row_count)
values ($1, CURRENT_TIMESTAMP, $2, $3, $4)
on conflict (table_name) do update set
  last_sync_time = excluded.last_sync_time,
  last_key_value = excluded.last_key_value,
  sync_method = excluded.sync_method,
  row_count = excluded.row_count`, s.table)
	if _, err := s.db.ExecContext(ctx, q, table, key, string(method), rowCount); err != nil {
		return shared.Classify(shared.ErrorKindState, table, errors.Wrap(err, "unable to save sync state"))
	}
	s.log.Debug("saved sync state for ", table, ": method = ", method, "; rows = ", rowCount)
	return nil
}

// List returns the state of every table ordered by name.
func (s *Store) List(ctx context.Context) ([]*SyncState, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf("select %v from %v order by table_name", selectColumns, s.table))
	if err != nil {
		return nil, shared.Classify(shared.ErrorKindState, "", errors.Wrap(err, "unable to list sync state"))
	}
	defer func() {
		_ = rows.Close()
	}()
	retval := make([]*SyncState, 0)
	for rows.Next() {
		st, err := scanState(rows)
		if err != nil {
			return nil, shared.Classify(shared.ErrorKindState, "", err)
		}
		retval = append(retval, st)
	}
	return retval, rows.Err()
}
