package rdbms

import (
	"strings"
)

// SchemaTable identifies a table in the source catalog using the spelling the catalog returned.
type SchemaTable struct {
	Schema string
	Table  string `errorTxt:"table name" mandatory:"yes"`
}

func NewSchemaTable(schema string, table string) SchemaTable {
	return SchemaTable{Schema: schema, Table: table}
}

// ParseSchemaTable splits "schema.table" into its parts.
// A name without a schema is given defaultSchema.
func ParseSchemaTable(s string, defaultSchema string) SchemaTable {
	s = strings.TrimSpace(s)
	i := strings.Index(s, ".")
	if i < 0 {
		return SchemaTable{Schema: defaultSchema, Table: s}
	}
	return SchemaTable{Schema: s[:i], Table: s[i+1:]}
}

// GetTable returns the table name.
func (st SchemaTable) GetTable() string {
	return st.Table
}

// GetSchema returns the schema name.
func (st SchemaTable) GetSchema() string {
	return st.Schema
}

// Identifier returns the lowercase schema-qualified name used to key ignore lists and logs.
func (st SchemaTable) Identifier() string {
	return strings.ToLower(st.String())
}

func (st SchemaTable) String() string {
	if st.Schema == "" {
		return st.Table
	}
	return st.Schema + "." + st.Table
}
