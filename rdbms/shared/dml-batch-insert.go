package shared

import (
	"strings"
)

// SqlInsertTxtBatch implements SqlStmtTxtBatcher.
// It generates multi-row INSERT statements for a batch of rows.
type SqlInsertTxtBatch struct {
	SqlStatementGeneratorConfig // mandatory to be populated.
	sqlCoreCfg
	ColList []string // quoted columns extracted from TargetCols.
}

// NewInsertGenerator creates a new generator that implements interface SqlStmtTxtBatcher.
func (*DmlGeneratorPostgres) NewInsertGenerator(cfg *SqlStatementGeneratorConfig) SqlStmtTxtBatcher {
	checkSqlStatementGeneratorConfig(cfg)
	o := &SqlInsertTxtBatch{SqlStatementGeneratorConfig: *cfg}
	o.batchDescription = "INSERT"
	o.ColList = quoteColumns(o.TargetCols)
	o.sqlStmtTemplate = `insert into <TABLE> (<TGT-COLS>) values <VALUES>`
	o.sqlStmtTemplate = strings.Replace(o.sqlStmtTemplate, "<TABLE>", QuoteIdentifier(o.OutputSchema, o.OutputTable), 1)
	o.sqlStmtTemplate = strings.Replace(o.sqlStmtTemplate, "<TGT-COLS>", strings.Join(o.ColList, ","), 1)
	o.Log.Debug("setup INSERT generator with SQL (VALUES pending): ", o.sqlStmtTemplate)
	return o
}

func (o *SqlInsertTxtBatch) InitBatch(batchSize int) {
	o.initCore(batchSize, len(o.ColList))
}

func (o *SqlInsertTxtBatch) AddValuesToBatch(values []interface{}) (batchIsFull bool, err error) {
	return o.addValues(values)
}

func (o *SqlInsertTxtBatch) GetStatement() string {
	if o.sqlStmt == "" || o.stmtRowsInBatch != o.rowsInBatch { // if we need to generate SQL for a new number of rows...
		o.sqlStmt = strings.Replace(o.sqlStmtTemplate, "<VALUES>", getBindRows(o.rowsInBatch, len(o.ColList)), 1)
		o.stmtRowsInBatch = o.rowsInBatch
	} // else the cached SQL has the right number of binds.
	o.Log.Trace("SQL batch INSERT generated statement: ", o.sqlStmt)
	return o.sqlStmt
}
