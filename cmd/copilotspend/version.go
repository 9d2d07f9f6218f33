package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/janekbaraniewski/copilotspend/internal/version"
)

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "copilotspend %s\n", version.String())
		},
	}
}
