package rdbms

import (
	"fmt"
	"strings"

	"github.com/relloyd/pgmirror/constants"
)

// catalogQuery is a SQL statement plus a function that builds its bind values.
// Catalog SQL must return:
//   tables:  schema, table
//   columns: name, type, length, precision, scale, nullable (Y/N/YES/NO/1/0), ordinal position
//   keys:    column name, in key order
type catalogQuery struct {
	sql  string
	args func(schema string, table string) []interface{}
}

func argsNone(string, string) []interface{} {
	return nil
}

func argsSchema(schema string, _ string) []interface{} {
	return []interface{}{schema}
}

func argsTable(_ string, table string) []interface{} {
	return []interface{}{table}
}

func argsSchemaTable(schema string, table string) []interface{} {
	return []interface{}{schema, table}
}

// Dialect holds the SQL differences between source database types.
type Dialect struct {
	Name        string
	quoteOpen   string
	quoteClose  string
	placeholder func(n int) string // n starts at 1
	tables      catalogQuery
	columns     catalogQuery
	primaryKey  catalogQuery // empty sql means the source cannot report keys
}

func placeholderQuestion(int) string {
	return "?"
}

func placeholderDollar(n int) string {
	return fmt.Sprintf("$%v", n)
}

func placeholderAtP(n int) string {
	return fmt.Sprintf("@p%v", n)
}

var informationSchemaColumnsSql = `select column_name, data_type, coalesce(character_maximum_length, 0),
coalesce(numeric_precision, 0), coalesce(numeric_scale, 0), is_nullable, ordinal_position
from information_schema.columns
where table_schema = <1> and table_name = <2>
order by ordinal_position`

var informationSchemaPrimaryKeySql = `select k.column_name
from information_schema.table_constraints c
join information_schema.key_column_usage k
  on k.constraint_name = c.constraint_name and k.table_schema = c.table_schema and k.table_name = c.table_name
where c.constraint_type = 'PRIMARY KEY' and c.table_schema = <1> and c.table_name = <2>
order by k.ordinal_position`

var informationSchemaTablesSql = `select table_schema, table_name
from information_schema.tables
where table_schema = <1> and table_type = 'BASE TABLE'
order by table_name`

// withPlaceholders replaces <n> markers with the dialect's bind syntax.
func withPlaceholders(sql string, placeholder func(int) string) string {
	for n := 1; n <= 2; n++ {
		sql = strings.ReplaceAll(sql, fmt.Sprintf("<%v>", n), placeholder(n))
	}
	return sql
}

var dialects = map[string]*Dialect{
	// Progress OpenEdge SQL exposes its catalog in the SYSPROGRESS schema.
	constants.ConnectionTypeOdbc: {
		Name:        constants.ConnectionTypeOdbc,
		quoteOpen:   `"`,
		quoteClose:  `"`,
		placeholder: placeholderQuestion,
		tables: catalogQuery{
			sql: `select "OWNER", "TBL" from SYSPROGRESS.SYSTABLES
where "OWNER" = ? and "TBLTYPE" = 'T'
order by "TBL"`,
			args: argsSchema,
		},
		columns: catalogQuery{
			sql: `select "COL", "COLTYPE", "WIDTH", "WIDTH", "SCALE", "NULLFLAG", "ID"
from SYSPROGRESS.SYSCOLUMNS
where "OWNER" = ? and "TBL" = ?
order by "ID"`,
			args: argsSchemaTable,
		},
		primaryKey: catalogQuery{
			sql: `select k."COLNAME"
from SYSPROGRESS.SYS_KEYCOL_USAGE k
join SYSPROGRESS.SYS_TBL_CONSTRS c
  on c."OWNER" = k."OWNER" and c."TBLNAME" = k."TBLNAME" and c."CNSTRNAME" = k."CNSTRNAME"
where c."CNSTRTYPE" = 'P' and c."OWNER" = ? and c."TBLNAME" = ?
order by k."COLPOSITION"`,
			args: argsSchemaTable,
		},
	},
	constants.ConnectionTypeSqlServer: {
		Name:        constants.ConnectionTypeSqlServer,
		quoteOpen:   `[`,
		quoteClose:  `]`,
		placeholder: placeholderAtP,
		tables:      catalogQuery{sql: withPlaceholders(informationSchemaTablesSql, placeholderAtP), args: argsSchema},
		columns:     catalogQuery{sql: withPlaceholders(informationSchemaColumnsSql, placeholderAtP), args: argsSchemaTable},
		primaryKey:  catalogQuery{sql: withPlaceholders(informationSchemaPrimaryKeySql, placeholderAtP), args: argsSchemaTable},
	},
	constants.ConnectionTypeMySql: {
		Name:        constants.ConnectionTypeMySql,
		quoteOpen:   "`",
		quoteClose:  "`",
		placeholder: placeholderQuestion,
		tables:      catalogQuery{sql: withPlaceholders(informationSchemaTablesSql, placeholderQuestion), args: argsSchema},
		columns:     catalogQuery{sql: withPlaceholders(informationSchemaColumnsSql, placeholderQuestion), args: argsSchemaTable},
		primaryKey:  catalogQuery{sql: withPlaceholders(informationSchemaPrimaryKeySql, placeholderQuestion), args: argsSchemaTable},
	},
	// Snowflake does not enforce or expose key usage through information_schema so tables sync in full.
	constants.ConnectionTypeSnowflake: {
		Name:        constants.ConnectionTypeSnowflake,
		quoteOpen:   `"`,
		quoteClose:  `"`,
		placeholder: placeholderQuestion,
		tables:      catalogQuery{sql: withPlaceholders(informationSchemaTablesSql, placeholderQuestion), args: argsSchema},
		columns:     catalogQuery{sql: withPlaceholders(informationSchemaColumnsSql, placeholderQuestion), args: argsSchemaTable},
	},
	constants.ConnectionTypeNetezza: {
		Name:        constants.ConnectionTypeNetezza,
		quoteOpen:   `"`,
		quoteClose:  `"`,
		placeholder: placeholderDollar,
		tables: catalogQuery{
			sql:  `select schema, tablename from _v_table where schema = $1 order by tablename`,
			args: argsSchema,
		},
		columns: catalogQuery{
			sql: `select attname, format_type, attlen, 0, 0, case when attnotnull then 'N' else 'Y' end, attnum
from _v_relation_column
where schema = $1 and name = $2
order by attnum`,
			args: argsSchemaTable,
		},
		primaryKey: catalogQuery{
			sql: `select attname from _v_relation_keydata
where schema = $1 and relation = $2 and contype = 'p'
order by conseq`,
			args: argsSchemaTable,
		},
	},
	constants.ConnectionTypeSqlite: {
		Name:        constants.ConnectionTypeSqlite,
		quoteOpen:   `"`,
		quoteClose:  `"`,
		placeholder: placeholderQuestion,
		tables: catalogQuery{
			sql: `select 'main', name from sqlite_master
where type = 'table' and name not like 'sqlite\_%' escape '\'
order by name`,
			args: argsNone,
		},
		columns: catalogQuery{
			sql: `select name, type, 0, 0, 0, case when "notnull" = 1 then 'N' else 'Y' end, cid + 1
from pragma_table_info(?)
order by cid`,
			args: argsTable,
		},
		primaryKey: catalogQuery{
			sql:  `select name from pragma_table_info(?) where pk > 0 order by pk`,
			args: argsTable,
		},
	},
}

func init() {
	dialects[constants.ConnectionTypeOdbcOpenEdge] = dialects[constants.ConnectionTypeOdbc]
}

// GetDialect returns the SQL dialect for a source connection type.
func GetDialect(connectionType string) (*Dialect, error) {
	d, ok := dialects[connectionType]
	if !ok {
		return nil, fmt.Errorf("unsupported source database type %q", connectionType)
	}
	return d, nil
}

// QuoteIdentifier quotes a single identifier, escaping any embedded closing quote.
func (d *Dialect) QuoteIdentifier(name string) string {
	return d.quoteOpen + strings.ReplaceAll(name, d.quoteClose, d.quoteClose+d.quoteClose) + d.quoteClose
}

// QualifiedName returns the quoted schema.table.
func (d *Dialect) QualifiedName(st SchemaTable) string {
	if st.Schema == "" {
		return d.QuoteIdentifier(st.Table)
	}
	return d.QuoteIdentifier(st.Schema) + "." + d.QuoteIdentifier(st.Table)
}

// Placeholder returns the n'th bind variable, counting from 1.
func (d *Dialect) Placeholder(n int) string {
	return d.placeholder(n)
}

// SupportsPrimaryKeys reports whether the catalog can describe primary keys.
func (d *Dialect) SupportsPrimaryKeys() bool {
	return d.primaryKey.sql != ""
}

// SelectSql returns the query used to read rows from st.
// With keyCol set, rows are filtered to keyCol > first bind variable (if filterByKey) and ordered by keyCol.
func (d *Dialect) SelectSql(st SchemaTable, cols []string, keyCol string, filterByKey bool) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = d.QuoteIdentifier(c)
	}
	b := strings.Builder{}
	b.WriteString(fmt.Sprintf("select %v from %v", strings.Join(quoted, ", "), d.QualifiedName(st)))
	if keyCol != "" {
		if filterByKey {
			b.WriteString(fmt.Sprintf(" where %v > %v", d.QuoteIdentifier(keyCol), d.Placeholder(1)))
		}
		b.WriteString(fmt.Sprintf(" order by %v", d.QuoteIdentifier(keyCol)))
	}
	return b.String()
}

// CountSql returns the query used to count rows in st, optionally filtered by keyCol > first bind variable.
func (d *Dialect) CountSql(st SchemaTable, keyCol string) string {
	sql := fmt.Sprintf("select count(*) from %v", d.QualifiedName(st))
	if keyCol != "" {
		sql = fmt.Sprintf("%v where %v > %v", sql, d.QuoteIdentifier(keyCol), d.Placeholder(1))
	}
	return sql
}
