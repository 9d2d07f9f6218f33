package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/janekbaraniewski/copilotspend/internal/config"
	"github.com/janekbaraniewski/copilotspend/internal/core"
	"github.com/janekbaraniewski/copilotspend/internal/providers/copilot"
	"github.com/janekbaraniewski/copilotspend/internal/synth"
)

type synthOptions struct {
	org        string
	since      string
	until      string
	rangeName  string
	users      []string
	totalsPath string
	seed       string
}

func newSynthCommand(cfg config.Config) *cobra.Command {
	opts := synthOptions{rangeName: cfg.Range, seed: cfg.Seed}

	cmd := &cobra.Command{
		Use:   "synth",
		Short: "Print deterministic synthetic daily usage as JSON",
		Long: "Fabricate per-day, per-user, per-model usage from category totals. Totals come\n" +
			"from --totals (a JSON array of {category, net_amount, net_unit_count}) or, with\n" +
			"--org, from the org's current premium request billing.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var f copilot.Fetcher
			if opts.totalsPath == "" || len(opts.users) == 0 {
				if strings.TrimSpace(opts.org) == "" {
					return fmt.Errorf("pass --totals and --users, or --org to load them from GitHub")
				}
				client, err := newClient(cfg)
				if err != nil {
					return err
				}
				defer client.Close()
				f = client
			}
			return runSynth(cmd.Context(), cmd.OutOrStdout(), f, opts, time.Now())
		},
	}

	fl := cmd.Flags()
	fl.StringVar(&opts.org, "org", "", "load missing totals and users from this organization")
	fl.StringVar(&opts.since, "since", "", "first day (YYYY-MM-DD)")
	fl.StringVar(&opts.until, "until", "", "last day (YYYY-MM-DD)")
	fl.StringVar(&opts.rangeName, "range", opts.rangeName, "range preset when --since/--until are not set")
	fl.StringSliceVar(&opts.users, "users", nil, "comma-separated user logins")
	fl.StringVar(&opts.totalsPath, "totals", "", "path to a JSON file of category totals")
	fl.StringVar(&opts.seed, "seed", opts.seed, "generator seed")
	return cmd
}

// runSynth fills totals and users from f when they were not given locally.
func runSynth(ctx context.Context, w io.Writer, f copilot.Fetcher, opts synthOptions, now time.Time) error {
	span, err := resolveSpan(opts.since, opts.until, opts.rangeName, now)
	if err != nil {
		return err
	}

	var totals []core.CategoryTotal
	if opts.totalsPath != "" {
		if totals, err = readTotals(opts.totalsPath); err != nil {
			return err
		}
	} else {
		year, month, _ := core.MonthOf(span.Until)
		usage, err := f.PremiumUsage(ctx, opts.org, year, month)
		if err != nil {
			return fmt.Errorf("premium request usage: %w", err)
		}
		totals = copilot.CategoryTotals(copilot.GroupPremiumItems(usage.UsageItems))
	}

	users := core.NormalizeUsers(opts.users)
	if len(users) == 0 {
		seats, err := f.Seats(ctx, opts.org)
		if err != nil {
			return fmt.Errorf("seats: %w", err)
		}
		users = copilot.SeatLogins(seats)
	}

	rows := synth.DailyUsage(synth.Request{
		Start:  span.Since,
		End:    span.Until,
		Users:  users,
		Totals: totals,
		Seed:   opts.seed,
	})
	if rows == nil {
		rows = []core.SyntheticRow{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(rows)
}

func readTotals(path string) ([]core.CategoryTotal, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read totals: %w", err)
	}
	var totals []core.CategoryTotal
	if err := json.Unmarshal(data, &totals); err != nil {
		return nil, fmt.Errorf("parse totals %s: %w", path, err)
	}
	return totals, nil
}
