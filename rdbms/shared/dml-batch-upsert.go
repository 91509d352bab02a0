package shared

import (
	"fmt"
	"strings"
)

// SqlUpsertTxtBatch implements SqlStmtTxtBatcher.
// It generates INSERT .. ON CONFLICT (keys) DO UPDATE statements for a batch of rows,
// where every non-key column is set from the proposed row.
type SqlUpsertTxtBatch struct {
	SqlStatementGeneratorConfig // mandatory to be populated.
	sqlCoreCfg
	ColList []string
	KeyList []string
}

// NewUpsertGenerator creates a new generator that implements interface SqlStmtTxtBatcher.
func (*DmlGeneratorPostgres) NewUpsertGenerator(cfg *SqlStatementGeneratorConfig) SqlStmtTxtBatcher {
	checkSqlStatementGeneratorConfig(cfg)
	o := &SqlUpsertTxtBatch{SqlStatementGeneratorConfig: *cfg}
	o.batchDescription = "UPSERT"
	o.ColList = quoteColumns(o.TargetCols)
	o.KeyList = quoteColumns(o.TargetKeyCols)
	isKey := make(map[string]bool, len(o.KeyList))
	for _, k := range o.KeyList {
		isKey[k] = true
	}
	set := make([]string, 0, len(o.ColList))
	for _, c := range o.ColList {
		if !isKey[c] {
			set = append(set, fmt.Sprintf("%v = excluded.%v", c, c))
		}
	}
	action := "do nothing"
	if len(set) > 0 {
		action = "do update set " + strings.Join(set, ", ")
	}
	o.sqlStmtTemplate = `insert into <TABLE> (<TGT-COLS>) values <VALUES> on conflict (<KEY-COLS>) <ACTION>`
	o.sqlStmtTemplate = strings.Replace(o.sqlStmtTemplate, "<TABLE>", QuoteIdentifier(o.OutputSchema, o.OutputTable), 1)
	o.sqlStmtTemplate = strings.Replace(o.sqlStmtTemplate, "<TGT-COLS>", strings.Join(o.ColList, ","), 1)
	o.sqlStmtTemplate = strings.Replace(o.sqlStmtTemplate, "<KEY-COLS>", strings.Join(o.KeyList, ","), 1)
	o.sqlStmtTemplate = strings.Replace(o.sqlStmtTemplate, "<ACTION>", action, 1)
	o.Log.Debug("setup UPSERT generator with SQL (VALUES pending): ", o.sqlStmtTemplate)
	return o
}

func (o *SqlUpsertTxtBatch) InitBatch(batchSize int) {
	o.initCore(batchSize, len(o.ColList))
}

func (o *SqlUpsertTxtBatch) AddValuesToBatch(values []interface{}) (batchIsFull bool, err error) {
	return o.addValues(values)
}

func (o *SqlUpsertTxtBatch) GetStatement() string {
	if o.sqlStmt == "" || o.stmtRowsInBatch != o.rowsInBatch {
		o.sqlStmt = strings.Replace(o.sqlStmtTemplate, "<VALUES>", getBindRows(o.rowsInBatch, len(o.ColList)), 1)
		o.stmtRowsInBatch = o.rowsInBatch
	}
	o.Log.Trace("SQL batch UPSERT generated statement: ", o.sqlStmt)
	return o.sqlStmt
}
