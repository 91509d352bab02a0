package rdbms

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/relloyd/pgmirror/constants"
	"github.com/relloyd/pgmirror/helper"
	"github.com/relloyd/pgmirror/logger"
	"github.com/relloyd/pgmirror/rdbms/shared"
)

// TableWriter is a destination transaction able to write batches of rows.
type TableWriter interface {
	Insert(ctx context.Context, schema string, table string, cols []string, rows [][]interface{}) error
	Upsert(ctx context.Context, schema string, table string, cols []string, keyCols []string, rows [][]interface{}) error
	DeleteKeys(ctx context.Context, schema string, table string, keyCols []string, keys [][]interface{}) error
	Savepoint(ctx context.Context, name string) error
	RollbackToSavepoint(ctx context.Context, name string) error
	Commit() error
	Rollback() error
}

// PostgresTarget is the destination database.
type PostgresTarget struct {
	log logger.Logger
	db  shared.Connector
}

func NewPostgresTarget(log logger.Logger, db shared.Connector) *PostgresTarget {
	return &PostgresTarget{log: log, db: db}
}

// Close closes the underlying connection.
func (p *PostgresTarget) Close() {
	p.db.Close()
}

// EnsureSchema creates schema if it does not exist.
func (p *PostgresTarget) EnsureSchema(ctx context.Context, schema string) error {
	return p.ExecDDL(ctx, fmt.Sprintf("create schema if not exists %v", shared.QuoteIdentifier("", schema)))
}

// TableExists checks the catalog for schema.table.
func (p *PostgresTarget) TableExists(ctx context.Context, schema string, table string) (bool, error) {
	var count int64
	err := p.queryRow(ctx, `select count(*) from information_schema.tables where table_schema = $1 and table_name = $2`,
		[]interface{}{schema, table}, &count)
	if err != nil {
		return false, errors.Wrapf(err, "unable to check if table %v.%v exists", schema, table)
	}
	return count > 0, nil
}

// GetColumns returns the column names of schema.table in ordinal order.
func (p *PostgresTarget) GetColumns(ctx context.Context, schema string, table string) ([]string, error) {
	rows, err := p.db.QueryContext(ctx,
		`select column_name from information_schema.columns where table_schema = $1 and table_name = $2 order by ordinal_position`,
		schema, table)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to fetch columns for %v.%v", schema, table)
	}
	defer func() {
		_ = rows.Close()
	}()
	retval := make([]string, 0)
	for rows.Next() {
		var c string
		if err = rows.Scan(&c); err != nil {
			return nil, err
		}
		retval = append(retval, c)
	}
	return retval, rows.Err()
}

// RowCount counts the rows in schema.table.
func (p *PostgresTarget) RowCount(ctx context.Context, schema string, table string) (int64, error) {
	var count int64
	if err := p.queryRow(ctx, fmt.Sprintf("select count(*) from %v", shared.QuoteIdentifier(schema, table)), nil, &count); err != nil {
		return 0, errors.Wrapf(err, "unable to count rows in %v.%v", schema, table)
	}
	return count, nil
}

func (p *PostgresTarget) queryRow(ctx context.Context, query string, args []interface{}, dest ...interface{}) error {
	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return err
	}
	defer func() {
		_ = rows.Close()
	}()
	if !rows.Next() {
		if err = rows.Err(); err != nil {
			return err
		}
		return errors.New("no rows returned")
	}
	return rows.Scan(dest...)
}

// ExecDDL runs a single statement in its own transaction.
func (p *PostgresTarget) ExecDDL(ctx context.Context, ddl string) error {
	p.log.Debug("executing DDL: ", ddl)
	tx, err := p.db.BeginTx(ctx)
	if err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx, ddl); err != nil {
		_ = tx.Rollback()
		return errors.Wrapf(err, "DDL failed: %v", ddl)
	}
	return tx.Commit()
}

// Truncate empties schema.table in its own transaction.
func (p *PostgresTarget) Truncate(ctx context.Context, schema string, table string) error {
	return p.ExecDDL(ctx, fmt.Sprintf("truncate table %v", shared.QuoteIdentifier(schema, table)))
}

// CreateTable creates schema.table with the given column types, where colTypes[i] is the type of cols[i].
func (p *PostgresTarget) CreateTable(ctx context.Context, schema string, table string, cols []string, colTypes []string) error {
	return p.ExecDDL(ctx, CreateTableSql(schema, table, cols, colTypes))
}

// AddColumn adds a single column to schema.table.
func (p *PostgresTarget) AddColumn(ctx context.Context, schema string, table string, col string, colType string) error {
	return p.ExecDDL(ctx, AddColumnSql(schema, table, col, colType))
}

// CreateTableSql returns CREATE TABLE for the columns, where colTypes[i] is the type of cols[i].
func CreateTableSql(schema string, table string, cols []string, colTypes []string) string {
	defs := make([]string, len(cols))
	for i, c := range cols {
		defs[i] = fmt.Sprintf("%v %v", shared.QuoteIdentifier("", c), colTypes[i])
	}
	return fmt.Sprintf("create table %v (%v)", shared.QuoteIdentifier(schema, table), strings.Join(defs, ", "))
}

// AddColumnSql returns ALTER TABLE .. ADD COLUMN for a single column.
func AddColumnSql(schema string, table string, col string, colType string) string {
	return fmt.Sprintf("alter table %v add column %v %v", shared.QuoteIdentifier(schema, table), shared.QuoteIdentifier("", col), colType)
}

// Begin starts a transaction for writing rows.
func (p *PostgresTarget) Begin(ctx context.Context) (TableWriter, error) {
	tx, err := p.db.BeginTx(ctx)
	if err != nil {
		return nil, err
	}
	return &PostgresTx{log: p.log, tx: tx, dml: p.db.GetDmlGenerator()}, nil
}

// PostgresTx implements TableWriter.
type PostgresTx struct {
	log logger.Logger
	tx  shared.Transacter
	dml shared.DmlGenerator
}

// rowsPerStatement returns how many rows fit in one statement without exceeding the bind limit.
func rowsPerStatement(numCols int) int {
	if numCols <= 0 {
		return 1
	}
	n := constants.PostgresMaxBindParams / numCols
	if n < 1 {
		n = 1
	}
	return n
}

// execBatches adds rows to the generator and executes a statement whenever the batch fills.
func (t *PostgresTx) execBatches(ctx context.Context, gen shared.SqlStmtTxtBatcher, numCols int, rows [][]interface{}) error {
	size := rowsPerStatement(numCols)
	if size > len(rows) {
		size = len(rows)
	}
	gen.InitBatch(size)
	for idx, row := range rows {
		batchIsFull, err := gen.AddValuesToBatch(row)
		if err != nil {
			return err
		}
		if batchIsFull || idx == len(rows)-1 {
			if _, err = t.tx.ExecContext(ctx, gen.GetStatement(), gen.GetValues()...); err != nil {
				return err
			}
			gen.InitBatch(size)
		}
	}
	return nil
}

func (t *PostgresTx) generatorConfig(schema string, table string, cols []string, keyCols []string) *shared.SqlStatementGeneratorConfig {
	return &shared.SqlStatementGeneratorConfig{
		Log:           t.log,
		OutputSchema:  schema,
		OutputTable:   table,
		TargetCols:    helper.StringSliceToOrderedMap(cols),
		TargetKeyCols: helper.StringSliceToOrderedMap(keyCols),
	}
}

// Insert writes rows using multi-row INSERT statements.
func (t *PostgresTx) Insert(ctx context.Context, schema string, table string, cols []string, rows [][]interface{}) error {
	if len(rows) == 0 {
		return nil
	}
	gen := t.dml.NewInsertGenerator(t.generatorConfig(schema, table, cols, nil))
	return t.execBatches(ctx, gen, len(cols), rows)
}

// Upsert writes rows using INSERT .. ON CONFLICT (keyCols) DO UPDATE.
func (t *PostgresTx) Upsert(ctx context.Context, schema string, table string, cols []string, keyCols []string, rows [][]interface{}) error {
	if len(rows) == 0 {
		return nil
	}
	gen := t.dml.NewUpsertGenerator(t.generatorConfig(schema, table, cols, keyCols))
	return t.execBatches(ctx, gen, len(cols), rows)
}

// DeleteKeys deletes rows matching any of the supplied key tuples.
func (t *PostgresTx) DeleteKeys(ctx context.Context, schema string, table string, keyCols []string, keys [][]interface{}) error {
	if len(keys) == 0 {
		return nil
	}
	gen := t.dml.NewDeleteGenerator(t.generatorConfig(schema, table, nil, keyCols))
	return t.execBatches(ctx, gen, len(keyCols), keys)
}

func (t *PostgresTx) Savepoint(ctx context.Context, name string) error {
	_, err := t.tx.ExecContext(ctx, "savepoint "+shared.QuoteIdentifier("", name))
	return err
}

func (t *PostgresTx) RollbackToSavepoint(ctx context.Context, name string) error {
	_, err := t.tx.ExecContext(ctx, "rollback to savepoint "+shared.QuoteIdentifier("", name))
	return err
}

func (t *PostgresTx) Commit() error {
	return t.tx.Commit()
}

func (t *PostgresTx) Rollback() error {
	return t.tx.Rollback()
}
