package tabledefinition

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"github.com/relloyd/pgmirror/logger"
	"github.com/relloyd/pgmirror/rdbms"
	"github.com/relloyd/pgmirror/rdbms/shared"
)

// Catalog is the part of the source that can describe a table.
type Catalog interface {
	GetColumns(ctx context.Context, st rdbms.SchemaTable) ([]rdbms.ColumnInfo, error)
	GetPrimaryKey(ctx context.Context, st rdbms.SchemaTable) ([]string, error)
}

// ReadTable fetches the columns and primary key of st and maps them for the destination using mapper.
// Errors are returned as a shared.SyncError of kind Connection when a connection was lost,
// Permission when access was refused, else Schema.
func ReadTable(ctx context.Context, log logger.Logger, catalog Catalog, mapper Mapper, st rdbms.SchemaTable) (*TableDescriptor, error) {
	id := st.Identifier()
	cols, err := catalog.GetColumns(ctx, st)
	if err != nil {
		return nil, describeError(id, err)
	}
	if len(cols) == 0 {
		return nil, shared.NewSyncError(shared.ErrorKindSchema, id, fmt.Errorf("no column metadata found for table %v", st))
	}
	cols = append([]rdbms.ColumnInfo(nil), cols...)
	sort.SliceStable(cols, func(i, j int) bool {
		return cols[i].Position < cols[j].Position
	})
	pk, err := catalog.GetPrimaryKey(ctx, st)
	if err != nil {
		return nil, describeError(id, err)
	}
	td := &TableDescriptor{SchemaTable: st, Columns: make([]TableColumn, 0, len(cols))}
	switch len(pk) {
	case 0:
		log.Debug("table ", st, " has no primary key")
	case 1:
		td.PkColumn = pk[0]
	default:
		log.Info("table ", st, " has a composite primary key (", strings.Join(pk, ", "), "), treating it as having no key")
	}
	for _, c := range cols { // for each source column...
		tc := TableColumn{
			ColumnInfo: c,
			TargetName: strings.ToLower(c.Name),
			TargetType: mapper.Map(c),
			Class:      ClassOf(c),
		}
		log.Debug("column = ", c.Name,
			"; type = ", c.DataType,
			"; len = ", c.Length,
			"; precision = ", c.Precision,
			"; scale = ", c.Scale,
			"; target type = ", tc.TargetType,
			"; class = ", tc.Class)
		td.Columns = append(td.Columns, tc)
	}
	if td.PkColumn != "" && td.PkIndex() < 0 {
		log.Info("primary key column ", td.PkColumn, " of table ", st, " is not among its columns, treating it as having no key")
		td.PkColumn = ""
	}
	return td, nil
}

func describeError(id string, err error) error {
	return shared.Classify(shared.ErrorKindSchema, id, errors.Wrap(err, "unable to describe table"))
}
