package cmd

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/relloyd/pgmirror/actions"
	"github.com/relloyd/pgmirror/constants"
	"github.com/relloyd/pgmirror/stats"
	"github.com/spf13/cobra"
)

var syncCfg = actions.NewSyncConfig()
var syncLogFile string

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Sync all tables in the source schema to Postgres",
	Long: `Sync all tables in the source schema to the target Postgres schema, where:

- Missing target tables are created and new source columns are added
- The first sync of a table copies it in full
- Later syncs of tables with a single column primary key copy only rows with a greater key
- Tables without a usable key are copied in full every time
- Tables whose names start with "_" and tables in the ignore file are skipped
- A table that fails is added to the ignore file and the run moves on to the next table
- Optionally repeat on an interval (--repeat) or a cron schedule (--schedule)
`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSync()
	},
}

func runSync() error {
	syncCfg.StackDumpOnPanic = stackDumpOnPanic
	log, closeLog, err := newLogger(syncCfg.LogLevel, syncLogFile)
	if err != nil {
		return err
	}
	defer closeLog()
	// Stop cleanly on interrupt; the table in progress keeps its committed batches.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return actions.RunSync(ctx, log, syncCfg, stats.NewProgressReporter(os.Stdout))
}

func init() {
	rootCmd.AddCommand(syncCmd)
	syncCmd.Flags().SortFlags = false
	// Connections.
	switches.addFlag(syncCmd, &syncCfg.SourceType, "source-type", constants.ConnectionTypeOdbc, false, "")
	switches.addFlag(syncCmd, &syncCfg.SourceDsn, "source-dsn", "", true, "")
	switches.addFlag(syncCmd, &syncCfg.SourceSchema, "source-schema", constants.SourceSchemaDefault, false, "")
	switches.addFlag(syncCmd, &syncCfg.TargetDsn, "target-dsn", "", true, "")
	switches.addFlag(syncCmd, &syncCfg.TargetSchema, "target-schema", constants.TargetSchemaDefault, false, "")
	switches.addFlag(syncCmd, &syncCfg.StateSchema, "state-schema", constants.StateSchemaDefault, false, "")
	// Sync specific.
	switches.addFlag(syncCmd, &syncCfg.BatchSize, "batch-size", strconv.Itoa(constants.TableSyncBatchSizeDefault), false, "")
	switches.addFlag(syncCmd, &syncCfg.MaxCursors, "max-cursors", strconv.Itoa(constants.MaxCursorsDefault), false, "")
	switches.addFlag(syncCmd, &syncCfg.SchemaPolicy, "schema-policy", constants.SchemaPolicyText, false, "")
	switches.addFlag(syncCmd, &syncCfg.SkipConverged, "skip-converged", "", false, "")
	switches.addFlag(syncCmd, &syncCfg.FullSync, "full-sync", "", false, "")
	switches.addFlag(syncCmd, &syncCfg.IgnoreTables, "ignore-table", "", false, "")
	switches.addFlag(syncCmd, &syncCfg.IgnoreFile, "ignore-file", constants.IgnoreFileDefault, false, "")
	switches.addFlag(syncCmd, &syncCfg.MaxBatchesPerSecond, "max-batches-per-second", "0", false, "")
	// Generic.
	switches.addFlag(syncCmd, &syncCfg.RepeatInterval, "repeat", "0", false, "")
	switches.addFlag(syncCmd, &syncCfg.Schedule, "schedule", "", false, "")
	switches.addFlag(syncCmd, &syncCfg.ConnectTimeoutSeconds, "connect-timeout", strconv.Itoa(constants.ConnectTimeoutSecondsDefault), false, "")
	switches.addFlag(syncCmd, &syncCfg.StatsDumpFrequencySeconds, "stats", strconv.Itoa(constants.StatsCaptureFrequencySeconds), false, "")
	switches.addFlag(syncCmd, &syncCfg.StatusPort, "status-port", "0", false, "")
	switches.addFlag(syncCmd, &syncLogFile, "log-file", constants.LogFileDefault, false, "")
	switches.addFlag(syncCmd, &syncCfg.LogLevel, "log-level", constants.LogLevelDefault, false, "")
	syncCmd.SilenceUsage = true
}
