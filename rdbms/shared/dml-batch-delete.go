package shared

import (
	"fmt"
	"strings"
)

// SqlDeleteTxtBatch implements SqlStmtTxtBatcher.
// It generates DELETE statements that remove every row matching the key values in the batch.
// Values added to the batch are the key values only, in TargetKeyCols order.
type SqlDeleteTxtBatch struct {
	SqlStatementGeneratorConfig // mandatory to be populated.
	sqlCoreCfg
	KeyList []string
}

// NewDeleteGenerator creates a new generator that implements interface SqlStmtTxtBatcher.
func (*DmlGeneratorPostgres) NewDeleteGenerator(cfg *SqlStatementGeneratorConfig) SqlStmtTxtBatcher {
	checkSqlStatementGeneratorConfig(cfg)
	o := &SqlDeleteTxtBatch{SqlStatementGeneratorConfig: *cfg}
	o.batchDescription = "DELETE"
	o.KeyList = quoteColumns(o.TargetKeyCols)
	keyTxt := strings.Join(o.KeyList, ",")
	if len(o.KeyList) > 1 {
		keyTxt = fmt.Sprintf("(%v)", keyTxt)
	}
	o.sqlStmtTemplate = `delete from <TABLE> where <KEY-TXT> in (<VALUES>)`
	o.sqlStmtTemplate = strings.Replace(o.sqlStmtTemplate, "<TABLE>", QuoteIdentifier(o.OutputSchema, o.OutputTable), 1)
	o.sqlStmtTemplate = strings.Replace(o.sqlStmtTemplate, "<KEY-TXT>", keyTxt, 1)
	o.Log.Debug("setup DELETE generator with SQL (VALUES pending): ", o.sqlStmtTemplate)
	return o
}

func (o *SqlDeleteTxtBatch) InitBatch(batchSize int) {
	o.initCore(batchSize, len(o.KeyList))
}

func (o *SqlDeleteTxtBatch) AddValuesToBatch(values []interface{}) (batchIsFull bool, err error) {
	return o.addValues(values)
}

func (o *SqlDeleteTxtBatch) GetStatement() string {
	if o.sqlStmt == "" || o.stmtRowsInBatch != o.rowsInBatch {
		var values string
		if len(o.KeyList) == 1 { // if the key is a single column we can use a plain IN list...
			values = strings.Trim(strings.ReplaceAll(getBindRows(o.rowsInBatch, 1), "),(", ","), "()")
		} else {
			values = getBindRows(o.rowsInBatch, len(o.KeyList))
		}
		o.sqlStmt = strings.Replace(o.sqlStmtTemplate, "<VALUES>", values, 1)
		o.stmtRowsInBatch = o.rowsInBatch
	}
	o.Log.Trace("SQL batch DELETE generated statement: ", o.sqlStmt)
	return o.sqlStmt
}
