package cmd

import (
	"fmt"
	"os"

	"github.com/relloyd/pgmirror/actions"
	"github.com/relloyd/pgmirror/constants"
	"github.com/spf13/cobra"
)

var ignoreCfg = actions.IgnoreConfig{}

var ignoreCmd = &cobra.Command{
	Use:   "ignore",
	Short: "List or add tables that sync should skip",
	Long: `List or add tables that sync should skip, where:

- Tables are stored one per line as lowercase <schema>.<table>
- Lines starting with "#" are comments
- sync appends tables that fail so they are skipped by later runs
- Remove a line from the file to have sync retry the table`,
}

var ignoreListCmd = &cobra.Command{
	Use:   "list",
	Short: "Print all ignored tables",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runIgnoreList()
	},
}

var ignoreAddCmd = &cobra.Command{
	Use:   "add [<schema>.]<table>...",
	Short: "Add tables to the ignore file",
	Long: fmt.Sprintf(`Add tables to the ignore file.
Table names without a schema are qualified with the source schema (default %q).`, constants.SourceSchemaDefault),
	Args: getTableNamesArgsFunc(&ignoreCfg.Tables),
	RunE: func(cmd *cobra.Command, args []string) error {
		return actions.RunIgnoreAdd(&ignoreCfg, os.Stdout)
	},
}

func runIgnoreList() error {
	return actions.RunIgnoreList(&ignoreCfg, os.Stdout)
}

func init() {
	rootCmd.AddCommand(ignoreCmd)
	ignoreCmd.AddCommand(ignoreListCmd)
	ignoreCmd.AddCommand(ignoreAddCmd)
	for _, c := range []*cobra.Command{ignoreListCmd, ignoreAddCmd} {
		c.Flags().SortFlags = false
		c.SilenceUsage = true
	}
	switches.addFlag(ignoreListCmd, &ignoreCfg.IgnoreFile, "ignore-file", constants.IgnoreFileDefault, false, "")
	switches.addFlag(ignoreListCmd, &ignoreCfg.SourceSchema, "source-schema", constants.SourceSchemaDefault, false, "")
	switches.addFlag(ignoreAddCmd, &ignoreCfg.IgnoreFile, "ignore-file", constants.IgnoreFileDefault, false, "")
	switches.addFlag(ignoreAddCmd, &ignoreCfg.SourceSchema, "source-schema", constants.SourceSchemaDefault, false, "")
}
