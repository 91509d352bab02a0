package actions

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/relloyd/pgmirror/constants"
	"github.com/relloyd/pgmirror/helper"
	"github.com/relloyd/pgmirror/logger"
	"github.com/relloyd/pgmirror/rdbms"
	"github.com/relloyd/pgmirror/rdbms/shared"
	"github.com/relloyd/pgmirror/syncstate"
)

type StateListConfig struct {
	TargetDsn             string `errorTxt:"target DSN" mandatory:"yes"`
	StateSchema           string `errorTxt:"state schema" mandatory:"yes"`
	ConnectTimeoutSeconds int
}

// StateLister is the part of syncstate.Store used to list state.
type StateLister interface {
	List(ctx context.Context) ([]*syncstate.SyncState, error)
}

// RunStateList connects to the target and prints the saved state of every table.
func RunStateList(ctx context.Context, log logger.Logger, cfg *StateListConfig, out io.Writer) error {
	if err := helper.ValidateStructIsPopulated(cfg); err != nil {
		return err
	}
	conn, err := rdbms.OpenDbConnection(ctx, log,
		shared.NewDsnConnectionDetails(constants.ConnectionTypePostgres, "target", cfg.TargetDsn),
		time.Duration(cfg.ConnectTimeoutSeconds)*time.Second)
	if err != nil {
		return err
	}
	defer conn.Close()
	store, err := syncstate.NewStore(log, conn.GetDb(), constants.ConnectionTypePostgres, cfg.StateSchema)
	if err != nil {
		return err
	}
	return PrintStates(ctx, store, out)
}

// PrintStates writes one aligned line per table.
func PrintStates(ctx context.Context, lister StateLister, out io.Writer) error {
	states, err := lister.List(ctx)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "TABLE\tMETHOD\tLAST KEY\tROWS\tLAST SYNC")
	for _, s := range states {
		lastKey := "-"
		if s.LastKeyValue != nil {
			lastKey = *s.LastKeyValue
		}
		_, _ = fmt.Fprintf(w, "%v\t%v\t%v\t%v\t%v\n", s.TableName, s.SyncMethod, lastKey, s.RowCount, s.LastSyncTime.Format(constants.TimeFormatYearSeconds))
	}
	return w.Flush()
}
