package tabledefinition

import (
	"testing"

	"github.com/relloyd/pgmirror/constants"
	"github.com/relloyd/pgmirror/rdbms"
	"github.com/relloyd/pgmirror/stream"
	"github.com/sirupsen/logrus"
)

func TestTypedMapper(t *testing.T) {
	log := logrus.New()
	mapper, err := NewMapper(log, constants.SchemaPolicyTyped)
	if err != nil {
		t.Fatal(err)
	}
	cases := []struct {
		col      rdbms.ColumnInfo
		expected string
	}{
		{rdbms.ColumnInfo{DataType: "integer"}, "INTEGER"},
		{rdbms.ColumnInfo{DataType: "INT64"}, "BIGINT"},
		{rdbms.ColumnInfo{DataType: "tinyint"}, "SMALLINT"},
		{rdbms.ColumnInfo{DataType: "decimal", Precision: 10, Scale: 2}, "NUMERIC(10,2)"},
		{rdbms.ColumnInfo{DataType: "numeric"}, "NUMERIC"},
		{rdbms.ColumnInfo{DataType: "numeric(12,4)"}, "NUMERIC(12,4)"},
		{rdbms.ColumnInfo{DataType: "decimal", Precision: 5000, Scale: 2}, "NUMERIC"},
		{rdbms.ColumnInfo{DataType: "float"}, "DOUBLE PRECISION"},
		{rdbms.ColumnInfo{DataType: "date"}, "DATE"},
		{rdbms.ColumnInfo{DataType: "datetime"}, "TIMESTAMP"},
		{rdbms.ColumnInfo{DataType: "datetime-tz"}, "TIMESTAMPTZ"},
		{rdbms.ColumnInfo{DataType: "time"}, "TIME"},
		{rdbms.ColumnInfo{DataType: "char", Length: 3}, "CHAR(3)"},
		{rdbms.ColumnInfo{DataType: "varchar", Length: 30}, "VARCHAR(30)"},
		{rdbms.ColumnInfo{DataType: "varchar", Length: 0}, "VARCHAR"},
		{rdbms.ColumnInfo{DataType: "varchar", Length: -1}, "VARCHAR"},
		{rdbms.ColumnInfo{DataType: "varchar", Length: constants.PostgresMaxVarcharLen + 1}, "TEXT"},
		{rdbms.ColumnInfo{DataType: "character varying(40)"}, "VARCHAR(40)"},
		{rdbms.ColumnInfo{DataType: "clob"}, "TEXT"},
		{rdbms.ColumnInfo{DataType: "blob"}, "BYTEA"},
		{rdbms.ColumnInfo{DataType: "logical"}, "BOOLEAN"},
		{rdbms.ColumnInfo{DataType: "recid"}, "TEXT"},
	}
	for _, c := range cases {
		if got := mapper.Map(c.col); got != c.expected {
			t.Fatalf("unexpected mapping for %+v: expected %q; got %q", c.col, c.expected, got)
		}
	}
}

func TestTextMapper(t *testing.T) {
	mapper, err := NewMapper(logrus.New(), "TEXT")
	if err != nil {
		t.Fatal(err)
	}
	for _, dt := range []string{"integer", "date", "blob", "unknown"} {
		if got := mapper.Map(rdbms.ColumnInfo{DataType: dt}); got != "TEXT" {
			t.Fatalf("expected TEXT for %v; got %v", dt, got)
		}
	}
	if _, err = NewMapper(logrus.New(), "other"); err == nil {
		t.Fatal("expected error for unsupported policy")
	}
}

func TestClassOf(t *testing.T) {
	cases := map[string]stream.Class{
		"integer":       stream.ClassNumeric,
		"Decimal(10,2)": stream.ClassNumeric,
		"date":          stream.ClassDate,
		"datetime":      stream.ClassTimestamp,
		"datetime-tz":   stream.ClassTimestampTZ,
		"time":          stream.ClassTime,
		"blob":          stream.ClassBinary,
		"logical":       stream.ClassBoolean,
		"varchar":       stream.ClassText,
		"mystery":       stream.ClassText,
	}
	for dt, expected := range cases {
		if got := ClassOf(rdbms.ColumnInfo{DataType: dt}); got != expected {
			t.Fatalf("unexpected class for %v: expected %v; got %v", dt, expected, got)
		}
	}
}

func TestMappingTableHasUniqueSourceTypes(t *testing.T) {
	seen := make(map[string]bool)
	for i, v := range PostgresDataTypeMapping {
		if seen[v.SourceDataType] {
			t.Fatalf("duplicate source data type %q in PostgresDataTypeMapping entry %v", v.SourceDataType, i)
		}
		seen[v.SourceDataType] = true
	}
}
