package tabledefinition

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/relloyd/pgmirror/constants"
	"github.com/relloyd/pgmirror/logger"
	"github.com/relloyd/pgmirror/rdbms"
	"github.com/relloyd/pgmirror/stream"
)

// Mapper converts a source column definition into a Postgres column type.
type Mapper interface {
	Map(col rdbms.ColumnInfo) (output string)
}

// NewMapper returns the Mapper for the schema policy.
func NewMapper(log logger.Logger, policy string) (Mapper, error) {
	switch strings.ToLower(policy) {
	case constants.SchemaPolicyText:
		return textMapper{}, nil
	case constants.SchemaPolicyTyped:
		return newDataTypeMapper(log, PostgresDataTypeMapping), nil
	}
	return nil, fmt.Errorf("unsupported schema policy %q, expected %q or %q", policy, constants.SchemaPolicyText, constants.SchemaPolicyTyped)
}

// textMapper maps every column to TEXT.
type textMapper struct{}

func (textMapper) Map(rdbms.ColumnInfo) string {
	return "TEXT"
}

// sanitiserFuncT combines the target type with data length, precision and scale into a type ready for CREATE TABLE DDL.
type sanitiserFuncT func(targetType string, dataLen, dataPrecision, dataScale int) string

type dataTypeLink struct {
	SourceDataType string
	TargetDataType string
	SanitiserFunc  sanitiserFuncT
	Class          stream.Class
}

// dataTypeMap implements Mapper.
type dataTypeMap struct {
	log      logger.Logger
	mapLinks map[string]dataTypeLink
}

func newDataTypeMapper(log logger.Logger, types []dataTypeLink) dataTypeMap {
	dtm := dataTypeMap{log: log, mapLinks: make(map[string]dataTypeLink, len(types))}
	for _, row := range types { // for each data type link...
		dtm.mapLinks[row.SourceDataType] = row
	}
	return dtm
}

// Map returns the Postgres type for col.
// Unknown source types become TEXT and a notice is logged.
func (o dataTypeMap) Map(col rdbms.ColumnInfo) string {
	name, dataLen, precision, scale := parseDataType(col)
	link, ok := o.mapLinks[name]
	if !ok {
		o.log.Info("unmapped source type ", col.DataType, " for column ", col.Name, ", using TEXT")
		return "TEXT"
	}
	if link.SanitiserFunc == nil {
		return link.TargetDataType
	}
	return link.SanitiserFunc(link.TargetDataType, dataLen, precision, scale)
}

// PostgresDataTypeMapping lists the source types understood by the typed schema policy.
var PostgresDataTypeMapping = []dataTypeLink{
	{SourceDataType: "integer", TargetDataType: "INTEGER", Class: stream.ClassNumeric},
	{SourceDataType: "int", TargetDataType: "INTEGER", Class: stream.ClassNumeric},
	{SourceDataType: "smallint", TargetDataType: "SMALLINT", Class: stream.ClassNumeric},
	{SourceDataType: "tinyint", TargetDataType: "SMALLINT", Class: stream.ClassNumeric},
	{SourceDataType: "bigint", TargetDataType: "BIGINT", Class: stream.ClassNumeric},
	{SourceDataType: "int64", TargetDataType: "BIGINT", Class: stream.ClassNumeric}, // OpenEdge
	{SourceDataType: "decimal", TargetDataType: "NUMERIC", SanitiserFunc: sanitisePrecisionScale, Class: stream.ClassNumeric},
	{SourceDataType: "numeric", TargetDataType: "NUMERIC", SanitiserFunc: sanitisePrecisionScale, Class: stream.ClassNumeric},
	{SourceDataType: "double precision", TargetDataType: "DOUBLE PRECISION", Class: stream.ClassNumeric},
	{SourceDataType: "double", TargetDataType: "DOUBLE PRECISION", Class: stream.ClassNumeric},
	{SourceDataType: "float", TargetDataType: "DOUBLE PRECISION", Class: stream.ClassNumeric},
	{SourceDataType: "real", TargetDataType: "DOUBLE PRECISION", Class: stream.ClassNumeric},
	{SourceDataType: "date", TargetDataType: "DATE", Class: stream.ClassDate},
	{SourceDataType: "datetime", TargetDataType: "TIMESTAMP", Class: stream.ClassTimestamp},
	{SourceDataType: "datetime2", TargetDataType: "TIMESTAMP", Class: stream.ClassTimestamp},
	{SourceDataType: "timestamp", TargetDataType: "TIMESTAMP", Class: stream.ClassTimestamp},
	{SourceDataType: "datetime-tz", TargetDataType: "TIMESTAMPTZ", Class: stream.ClassTimestampTZ}, // OpenEdge
	{SourceDataType: "datetimeoffset", TargetDataType: "TIMESTAMPTZ", Class: stream.ClassTimestampTZ},
	{SourceDataType: "timestamp with time zone", TargetDataType: "TIMESTAMPTZ", Class: stream.ClassTimestampTZ},
	{SourceDataType: "time", TargetDataType: "TIME", Class: stream.ClassTime},
	{SourceDataType: "char", TargetDataType: "CHAR", SanitiserFunc: sanitiseDataLen, Class: stream.ClassText},
	{SourceDataType: "character", TargetDataType: "CHAR", SanitiserFunc: sanitiseDataLen, Class: stream.ClassText},
	{SourceDataType: "varchar", TargetDataType: "VARCHAR", SanitiserFunc: sanitiseDataLen, Class: stream.ClassText},
	{SourceDataType: "character varying", TargetDataType: "VARCHAR", SanitiserFunc: sanitiseDataLen, Class: stream.ClassText},
	{SourceDataType: "long varchar", TargetDataType: "TEXT", Class: stream.ClassText},
	{SourceDataType: "clob", TargetDataType: "TEXT", Class: stream.ClassText},
	{SourceDataType: "text", TargetDataType: "TEXT", Class: stream.ClassText},
	{SourceDataType: "blob", TargetDataType: "BYTEA", Class: stream.ClassBinary},
	{SourceDataType: "binary", TargetDataType: "BYTEA", Class: stream.ClassBinary},
	{SourceDataType: "varbinary", TargetDataType: "BYTEA", Class: stream.ClassBinary},
	{SourceDataType: "long varbinary", TargetDataType: "BYTEA", Class: stream.ClassBinary},
	{SourceDataType: "raw", TargetDataType: "BYTEA", Class: stream.ClassBinary},
	{SourceDataType: "logical", TargetDataType: "BOOLEAN", Class: stream.ClassBoolean}, // OpenEdge
	{SourceDataType: "bit", TargetDataType: "BOOLEAN", Class: stream.ClassBoolean},
	{SourceDataType: "boolean", TargetDataType: "BOOLEAN", Class: stream.ClassBoolean},
}

var classByType = func() map[string]stream.Class {
	m := make(map[string]stream.Class, len(PostgresDataTypeMapping))
	for _, row := range PostgresDataTypeMapping {
		m[row.SourceDataType] = row.Class
	}
	return m
}()

// ClassOf returns the value class of a source column.
// It does not depend on the schema policy and unknown types are text.
func ClassOf(col rdbms.ColumnInfo) stream.Class {
	name, _, _, _ := parseDataType(col)
	if c, ok := classByType[name]; ok {
		return c
	}
	return stream.ClassText
}

var reTypeSuffix = regexp.MustCompile(`^\s*([^(]+?)\s*(?:\(\s*(\d+)\s*(?:,\s*(\d+)\s*)?\))?\s*$`)

// parseDataType lowercases the type name and strips any "(n[,m])" suffix.
// Sizes found in the suffix are used when the catalog reported none.
func parseDataType(col rdbms.ColumnInfo) (name string, dataLen, precision, scale int) {
	dataLen, precision, scale = col.Length, col.Precision, col.Scale
	name = strings.ToLower(strings.TrimSpace(col.DataType))
	m := reTypeSuffix.FindStringSubmatch(name)
	if m == nil {
		return
	}
	name = m[1]
	if m[2] != "" {
		n, _ := strconv.Atoi(m[2])
		if dataLen <= 0 {
			dataLen = n
		}
		if precision <= 0 {
			precision = n
			if m[3] != "" {
				scale, _ = strconv.Atoi(m[3])
			}
		}
	}
	return
}

// SANITISER FUNCTIONS.

// sanitiseDataLen adds "(n)" for a positive length.
// Lengths above the Postgres character limit become TEXT.
func sanitiseDataLen(targetType string, dataLen, dataPrecision, dataScale int) string {
	if dataLen > constants.PostgresMaxVarcharLen {
		return "TEXT"
	}
	if dataLen > 0 {
		return targetType + "(" + strconv.Itoa(dataLen) + ")"
	}
	return targetType
}

// sanitisePrecisionScale adds "(p,s)" when Postgres can declare it, else leaves NUMERIC unconstrained.
func sanitisePrecisionScale(targetType string, dataLen, dataPrecision, dataScale int) string {
	if dataPrecision > constants.PostgresMaxNumericPrecision || dataScale > dataPrecision {
		return targetType
	}
	return targetType + getDataPrecisionStr(dataPrecision) + getDataScaleStr(dataPrecision, dataScale)
}

// HELPER FUNCTIONS.

// getDataPrecisionStr returns "(<N>" if precision N exists or "" if it doesn't.
func getDataPrecisionStr(dataPrecision int) string {
	if dataPrecision > 0 {
		return "(" + strconv.Itoa(dataPrecision)
	}
	return ""
}

// getDataScaleStr returns ",<N>)" for scale N when there is a precision, or "" if there isn't.
func getDataScaleStr(dataPrecision int, dataScale int) string {
	if dataPrecision > 0 {
		if dataScale < 0 {
			dataScale = 0
		}
		return "," + strconv.Itoa(dataScale) + ")"
	}
	return ""
}
