package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	// Default values may be set at compile time.
	version          = "0.1.0"
	buildDate        = "2024-01-02T03:04+0000"
	osArch           = "linux"
	stackDumpOnPanic bool
)

var rootCmd = &cobra.Command{
	Use:   "pgmirror",
	Short: "pgmirror keeps a Postgres schema in step with a legacy source database",
	Long: `pgmirror copies every table in a source schema (Progress OpenEdge via ODBC, SQL Server,
Netezza, MySQL, Snowflake or SQLite) into a PostgreSQL schema.

- Destination tables are created, and new source columns added, automatically
- Tables with a single column primary key are synced incrementally after the first full copy
- Progress is saved per table so an interrupted run resumes where it left off
- Tables that fail are added to an ignore file and skipped by later runs
- Optionally repeat on an interval or a cron schedule to keep the target up-to-date`,
}

func init() {
	// General setup.
	cobra.EnableCommandSorting = false
	// Global flags.
	rootCmd.PersistentFlags().BoolVar(&stackDumpOnPanic, "print-stack", false, "Print a stack dump if there is a panic")
	_ = rootCmd.PersistentFlags().MarkHidden("print-stack")
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if twelveFactorMode { // if we are running based on environment variables...
		if err := execute12FactorMode(twelveFactorActions); err != nil {
			// execute12FactorMode logs the error.
			os.Exit(1)
		}
	} else { // else we're using CLI args and flags via Cobra...
		if err := rootCmd.Execute(); err != nil {
			// Execute() prints the error.
			os.Exit(1)
		}
	}
}
