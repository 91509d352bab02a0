package tabledefinition

import (
	"math"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/relloyd/pgmirror/rdbms"
	"github.com/relloyd/pgmirror/stream"
)

// TableColumn defines a single table column and how it lands in the destination.
type TableColumn struct {
	rdbms.ColumnInfo
	TargetName string       // lowercase destination column name
	TargetType string       // Postgres type used when the column is created
	Class      stream.Class // value class used to normalise fetched values
}

// TableDescriptor describes a source table for the duration of a run.
type TableDescriptor struct {
	SchemaTable rdbms.SchemaTable
	Columns     []TableColumn
	PkColumn    string // source spelling of the single primary key column, or empty
}

// HasPrimaryKey returns true if the table has a single-column primary key.
func (td *TableDescriptor) HasPrimaryKey() bool {
	return td.PkColumn != ""
}

// Identifier returns the lowercase schema-qualified source name.
func (td *TableDescriptor) Identifier() string {
	return td.SchemaTable.Identifier()
}

// TargetTable returns the destination table name.
func (td *TableDescriptor) TargetTable() string {
	return strings.ToLower(td.SchemaTable.Table)
}

// SourceColumnNames returns the column names as spelled in the source catalog.
func (td *TableDescriptor) SourceColumnNames() []string {
	retval := make([]string, len(td.Columns))
	for idx, c := range td.Columns {
		retval[idx] = c.Name
	}
	return retval
}

// ColumnNames returns the destination column names.
func (td *TableDescriptor) ColumnNames() []string {
	retval := make([]string, len(td.Columns))
	for idx, c := range td.Columns {
		retval[idx] = c.TargetName
	}
	return retval
}

// ColumnTypes returns the destination column types.
func (td *TableDescriptor) ColumnTypes() []string {
	retval := make([]string, len(td.Columns))
	for idx, c := range td.Columns {
		retval[idx] = c.TargetType
	}
	return retval
}

// Classes returns the value class of each column.
func (td *TableDescriptor) Classes() []stream.Class {
	retval := make([]stream.Class, len(td.Columns))
	for idx, c := range td.Columns {
		retval[idx] = c.Class
	}
	return retval
}

// PkIndex returns the position of the primary key column or -1.
func (td *TableDescriptor) PkIndex() int {
	if td.PkColumn == "" {
		return -1
	}
	for idx, c := range td.Columns {
		if strings.EqualFold(c.Name, td.PkColumn) {
			return idx
		}
	}
	return -1
}

// PkTargetName returns the destination name of the primary key column.
func (td *TableDescriptor) PkTargetName() string {
	if idx := td.PkIndex(); idx >= 0 {
		return td.Columns[idx].TargetName
	}
	return ""
}

// WatermarkArg converts a stored watermark into a value the source can compare with the key column.
// Numeric keys are bound as numbers and temporal keys as times so the comparison is not textual.
// Numbers that a float64 cannot hold exactly, and values that do not parse, are bound as text.
func (td *TableDescriptor) WatermarkArg(v string) interface{} {
	idx := td.PkIndex()
	if idx < 0 {
		return v
	}
	c := td.Columns[idx].Class
	switch {
	case c == stream.ClassNumeric:
		if i, err := strconv.ParseInt(v, 10, 64); err == nil {
			return i
		}
		if f, err := strconv.ParseFloat(v, 64); err == nil && isExactFloat(v, f) {
			return f
		}
	case c.IsTemporal() && c != stream.ClassTime:
		if t, err := time.Parse(c.Layout(), v); err == nil {
			return t
		}
	}
	return v
}

// isExactFloat returns true if f has exactly the decimal value written in v.
func isExactFloat(v string, f float64) bool {
	r, ok := new(big.Rat).SetString(v)
	if !ok || math.IsInf(f, 0) || math.IsNaN(f) {
		return false
	}
	return r.Cmp(new(big.Rat).SetFloat64(f)) == 0
}
