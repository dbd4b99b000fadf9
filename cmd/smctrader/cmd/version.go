package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

const version = "0.3.0"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Long:  `Display the current version of the smctrader CLI.`,
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "smctrader version %s\n", version)
		fmt.Fprintln(out, "Smart Money Concepts signal engine for OANDA forex streams")
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
