package components

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"github.com/relloyd/pgmirror/logger"
	"github.com/relloyd/pgmirror/rdbms/shared"
	td "github.com/relloyd/pgmirror/table-definition"
)

type SchemaReconcilerConfig struct {
	Log          logger.Logger
	Destination  Destination
	TargetSchema string
}

// SchemaReconciler makes the destination table able to hold every source column.
// It only ever creates tables and adds columns.
type SchemaReconciler struct {
	log          logger.Logger
	dst          Destination
	targetSchema string
}

func NewSchemaReconciler(cfg *SchemaReconcilerConfig) *SchemaReconciler {
	return &SchemaReconciler{log: cfg.Log, dst: cfg.Destination, targetSchema: cfg.TargetSchema}
}

// Reconcile creates the destination table if it is missing, else adds the columns it lacks.
// Column names are compared case-insensitively. Each DDL statement commits on its own.
func (r *SchemaReconciler) Reconcile(ctx context.Context, t *td.TableDescriptor) (ReconcileResult, error) {
	res := ReconcileResult{}
	id := t.Identifier()
	table := t.TargetTable()
	exists, err := r.dst.TableExists(ctx, r.targetSchema, table)
	if err != nil {
		return res, ddlError(id, err)
	}
	if !exists {
		if err = r.dst.CreateTable(ctx, r.targetSchema, table, t.ColumnNames(), t.ColumnTypes()); err != nil {
			return res, ddlError(id, errors.Wrap(err, "unable to create table"))
		}
		r.log.Info("created table ", r.targetSchema, ".", table)
		res.Created = true
		return res, nil
	}
	existing, err := r.dst.GetColumns(ctx, r.targetSchema, table)
	if err != nil {
		return res, ddlError(id, err)
	}
	have := make(map[string]struct{}, len(existing))
	for _, c := range existing {
		have[strings.ToLower(c)] = struct{}{}
	}
	for _, c := range t.Columns { // for each source column...
		if _, ok := have[strings.ToLower(c.TargetName)]; ok {
			continue
		}
		if err = r.dst.AddColumn(ctx, r.targetSchema, table, c.TargetName, c.TargetType); err != nil {
			return res, ddlError(id, errors.Wrapf(err, "unable to add column %v", c.TargetName))
		}
		r.log.Info("added column ", c.TargetName, " ", c.TargetType, " to ", r.targetSchema, ".", table)
		have[strings.ToLower(c.TargetName)] = struct{}{}
		res.AddedColumns = append(res.AddedColumns, c.TargetName)
	}
	return res, nil
}

func ddlError(id string, err error) error {
	return shared.Classify(shared.ErrorKindDDL, id, err)
}
