package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/janekbaraniewski/copilotspend/internal/config"
	"github.com/janekbaraniewski/copilotspend/internal/logger"
	"github.com/janekbaraniewski/copilotspend/internal/server"
)

func newServeCommand(cfg config.Config) *cobra.Command {
	listen := cfg.Listen

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve billing and attribution over a local JSON API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			client, err := newClient(cfg)
			if err != nil {
				return err
			}
			defer client.Close()

			srv := server.New(client, serverConfig(cfg, listen))
			go watchConfig(ctx, srv, listen)
			return srv.Run(ctx)
		},
	}

	cmd.Flags().StringVar(&listen, "listen", listen, "listen address")
	return cmd
}

func serverConfig(cfg config.Config, listen string) server.Config {
	return server.Config{
		Org:    cfg.Org,
		Seed:   cfg.Seed,
		Listen: listen,
		Range:  cfg.RangePreset(),
		Mode:   cfg.ViewMode(),
	}
}

// watchConfig pushes settings file edits into the running server. The
// listen address is fixed for the life of the process.
func watchConfig(ctx context.Context, srv *server.Server, listen string) {
	err := config.Watch(ctx, config.ConfigPath(), func(cfg config.Config) {
		cfg = config.ApplyEnv(cfg, config.LookupEnv(config.EnvPaths()))
		srv.UpdateConfig(serverConfig(cfg, listen))
		logger.Event("config_reloaded", "org", cfg.Org, "range", cfg.Range, "mode", cfg.Mode)
	})
	if err != nil {
		logger.Warn("config watch disabled", "error", err)
	}
}
