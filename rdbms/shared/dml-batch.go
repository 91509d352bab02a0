package shared

import (
	"fmt"
	"strings"

	om "github.com/cevaris/ordered_map"
	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"
	"github.com/relloyd/pgmirror/logger"
)

// DmlGeneratorPostgres produces multi-row DML using numbered bind variables ($1, $2, ...).
type DmlGeneratorPostgres struct{}

type SqlStatementGeneratorConfig struct {
	Log           logger.Logger
	OutputSchema  string
	OutputTable   string
	TargetKeyCols *om.OrderedMap // ordered map of: key = source column name; value = target table column name
	TargetCols    *om.OrderedMap // ordered map of all columns in row order, including the keys
}

type sqlCoreCfg struct {
	sqlStmt          string
	sqlStmtTemplate  string
	sqlValues        []interface{} // slice to hold data values for all rows in batch
	batchSize        int
	rowsInBatch      int
	numValuesPerRow  int
	stmtRowsInBatch  int // number of rows the cached sqlStmt was built for
	batchDescription string
}

func (c *sqlCoreCfg) initCore(batchSize int, numValuesPerRow int) {
	c.batchSize = batchSize
	c.numValuesPerRow = numValuesPerRow
	c.rowsInBatch = 0
	c.sqlValues = make([]interface{}, 0, batchSize*numValuesPerRow) // many values per row in a batch.
}

func (c *sqlCoreCfg) addValues(values []interface{}) (batchIsFull bool, err error) {
	if c.rowsInBatch >= c.batchSize {
		return true, fmt.Errorf("no more rows allowed in %v batch", c.batchDescription)
	}
	if len(values) != c.numValuesPerRow {
		return false, errors.New("the number of values supplied does not match the number of table columns")
	}
	c.sqlValues = append(c.sqlValues, values...)
	c.rowsInBatch++ // keep track of how close we are to the batch limit.
	return c.rowsInBatch >= c.batchSize, nil
}

func (c *sqlCoreCfg) GetValues() []interface{} {
	return c.sqlValues
}

func (c *sqlCoreCfg) GetRowCount() int {
	return c.rowsInBatch
}

// QuoteIdentifier returns a quoted Postgres identifier, optionally schema-qualified.
func QuoteIdentifier(schema string, name string) string {
	if schema == "" {
		return pgx.Identifier{name}.Sanitize()
	}
	return pgx.Identifier{schema, name}.Sanitize()
}

// quoteColumns returns the quoted values of m in order.
func quoteColumns(m *om.OrderedMap) []string {
	retval := make([]string, 0, m.Len())
	iter := m.IterFunc()
	for kv, ok := iter(); ok; kv, ok = iter() {
		retval = append(retval, QuoteIdentifier("", kv.Value.(string)))
	}
	return retval
}

// getBindRows returns "($1,$2),($3,$4)" style text for numRows rows of numCols values.
func getBindRows(numRows int, numCols int) string {
	allRows := strings.Builder{}
	valIdx := 1
	for rowIdx := 0; rowIdx < numRows; rowIdx++ {
		if rowIdx > 0 {
			allRows.WriteString(",")
		}
		allRows.WriteString("(")
		for idy := 0; idy < numCols; idy++ {
			if idy > 0 {
				allRows.WriteString(",")
			}
			allRows.WriteString(fmt.Sprintf("$%v", valIdx))
			valIdx++
		}
		allRows.WriteString(")")
	}
	return allRows.String()
}

func checkSqlStatementGeneratorConfig(cfg *SqlStatementGeneratorConfig) {
	if cfg.OutputTable == "" {
		cfg.Log.Panic("Error, missing output table name.")
	}
	if cfg.TargetCols == nil {
		cfg.TargetCols = om.NewOrderedMap()
	}
	if cfg.TargetKeyCols == nil {
		cfg.TargetKeyCols = om.NewOrderedMap()
	}
}
