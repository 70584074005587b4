package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// newVersionCmd prints the CLI's own build-time version. Unlike the
// aggregator this is forked from, there is no separate long-lived server
// process to query: serve and the CLI share one binary.
func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the brokerd version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "brokerd version %s\n", rootCmd.Version)
		},
	}
}
