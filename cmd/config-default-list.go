package cmd

import (
	"fmt"

	"github.com/relloyd/pgmirror/config"
	"github.com/spf13/cobra"
)

var configDefaultListCmd = &cobra.Command{
	Use:   "list",
	Short: "Print all default flag values",
	Long: fmt.Sprintf(`List default flag values stored in config file %q
by printing them all to STDOUT`,
		config.Main.FullPath),
	RunE: func(cmd *cobra.Command, args []string) error {
		keys, err := config.Main.GetAllKeys()
		if err != nil {
			return err
		}
		for _, k := range keys { // for each key...
			var val string
			if err = config.Main.Get(k, &val); err != nil {
				return err
			}
			fmt.Printf("%v=%v\n", k, val)
		}
		return nil
	},
}

func init() {
	defaultCmd.AddCommand(configDefaultListCmd)
}
