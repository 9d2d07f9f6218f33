package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/janekbaraniewski/copilotspend/internal/config"
)

func newAuthCommand(cfg config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "auth",
		Short: "Show gh authentication status and API rate limit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := newClient(cfg)
			if err != nil {
				return err
			}
			defer client.Close()

			status := client.AuthStatus(cmd.Context())
			w := cmd.OutOrStdout()
			if !status.OK {
				fmt.Fprintf(w, "not authenticated: %s\n", status.Error)
				return fmt.Errorf("run `gh auth login` first")
			}
			fmt.Fprintf(w, "user:   %s\n", status.User)
			if len(status.Scopes) > 0 {
				fmt.Fprintf(w, "scopes: %v\n", status.Scopes)
			}
			fmt.Fprintf(w, "hint:   %s\n", status.Hint)
			if rl := status.RateLimit; rl != nil {
				fmt.Fprintf(w, "rate:   %d/%d remaining, resets %s\n",
					rl.Remaining, rl.Limit, rl.Reset.Local().Format(time.Kitchen))
			}
			return nil
		},
	}
}
