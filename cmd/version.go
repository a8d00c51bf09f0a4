package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of PRDWing",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if isJSON() {
			return printJSON(cmd.OutOrStdout(), map[string]string{"version": GetVersion()})
		}
		fmt.Fprintf(cmd.OutOrStdout(), "prdwing version %s\n", GetVersion())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
