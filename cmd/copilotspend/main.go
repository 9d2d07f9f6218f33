package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/janekbaraniewski/copilotspend/internal/config"
	"github.com/janekbaraniewski/copilotspend/internal/logger"
	"github.com/janekbaraniewski/copilotspend/internal/providers/copilot"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		fmt.Fprintf(os.Stderr, "Config path: %s\n", config.ConfigPath())
		os.Exit(1)
	}
	logger.Setup(os.Stderr, cfg.Verbose)

	if err := newRootCommand(cfg).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand(cfg config.Config) *cobra.Command {
	root := &cobra.Command{
		Use:          "copilotspend",
		Short:        "Attribute GitHub Copilot premium request spend to the users of an organization.",
		SilenceUsage: true,
	}

	root.AddCommand(newReportCommand(cfg))
	root.AddCommand(newSynthCommand(cfg))
	root.AddCommand(newServeCommand(cfg))
	root.AddCommand(newAuthCommand(cfg))
	root.AddCommand(newVersionCommand())
	return root
}

func newClient(cfg config.Config) (*copilot.Client, error) {
	return copilot.NewClient(
		copilot.WithBinary(cfg.GHBinary),
		copilot.WithReportTTL(cfg.ReportCacheTTL()),
		copilot.WithConcurrency(cfg.GHConcurrency),
	)
}
