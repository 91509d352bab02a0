package cmd

import (
	"context"
	"os"
	"strconv"

	"github.com/relloyd/pgmirror/actions"
	"github.com/relloyd/pgmirror/constants"
	"github.com/spf13/cobra"
)

var stateListCfg = actions.StateListConfig{}
var stateLogLevel string

var stateCmd = &cobra.Command{
	Use:   "state",
	Short: "Inspect the saved sync state",
}

var stateListCmd = &cobra.Command{
	Use:   "list",
	Short: "Print the saved sync state of every table",
	Long: `Print the saved sync state of every table, where:

- METHOD is the strategy used by the last sync
- LAST KEY is the greatest primary key value copied so far
- ROWS is the number of rows the target is expected to hold`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStateList()
	},
}

func runStateList() error {
	log, closeLog, err := newLogger(stateLogLevel, "")
	if err != nil {
		return err
	}
	defer closeLog()
	return actions.RunStateList(context.Background(), log, &stateListCfg, os.Stdout)
}

func init() {
	rootCmd.AddCommand(stateCmd)
	stateCmd.AddCommand(stateListCmd)
	stateListCmd.Flags().SortFlags = false
	switches.addFlag(stateListCmd, &stateListCfg.TargetDsn, "target-dsn", "", true, "")
	switches.addFlag(stateListCmd, &stateListCfg.StateSchema, "state-schema", constants.StateSchemaDefault, false, "")
	switches.addFlag(stateListCmd, &stateListCfg.ConnectTimeoutSeconds, "connect-timeout", strconv.Itoa(constants.ConnectTimeoutSecondsDefault), false, "")
	switches.addFlag(stateListCmd, &stateLogLevel, "log-level", "warn", false, "")
	stateListCmd.SilenceUsage = true
}
