package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os/signal"
	"slices"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/janekbaraniewski/copilotspend/internal/attribution"
	"github.com/janekbaraniewski/copilotspend/internal/config"
	"github.com/janekbaraniewski/copilotspend/internal/core"
	"github.com/janekbaraniewski/copilotspend/internal/logger"
	"github.com/janekbaraniewski/copilotspend/internal/providers/copilot"
	"github.com/janekbaraniewski/copilotspend/internal/render"
	"github.com/janekbaraniewski/copilotspend/internal/tui"
)

type reportOptions struct {
	org         string
	since       string
	until       string
	rangeName   string
	mode        string
	seed        string
	synthetic   bool
	asJSON      bool
	interactive bool
	saveOrg     bool
	width       int
	chartHeight int
}

func newReportCommand(cfg config.Config) *cobra.Command {
	opts := reportOptions{
		org:         cfg.Org,
		rangeName:   cfg.Range,
		mode:        cfg.Mode,
		seed:        cfg.Seed,
		width:       100,
		chartHeight: 8,
	}

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Estimate per-user Copilot spend for an organization",
		Long: "Fetch premium request billing, seats and daily activity through the gh CLI and\n" +
			"attribute the org's spend to individual users. When daily activity is not\n" +
			"available the report falls back to deterministic synthetic usage.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			client, err := newClient(cfg)
			if err != nil {
				return err
			}
			defer client.Close()

			return runReport(ctx, cmd.OutOrStdout(), client, opts, time.Now())
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.org, "org", opts.org, "GitHub organization")
	f.StringVar(&opts.since, "since", "", "first day (YYYY-MM-DD)")
	f.StringVar(&opts.until, "until", "", "last day (YYYY-MM-DD)")
	f.StringVar(&opts.rangeName, "range", opts.rangeName, "range preset when --since/--until are not set: 14d, 28d, month, ytd")
	f.StringVar(&opts.mode, "mode", opts.mode, "view mode: cost or requests")
	f.StringVar(&opts.seed, "seed", opts.seed, "seed for synthetic usage")
	f.BoolVar(&opts.synthetic, "synthetic", false, "ignore daily activity and synthesize usage from billing totals")
	f.BoolVar(&opts.asJSON, "json", false, "print the report as JSON")
	f.BoolVarP(&opts.interactive, "interactive", "i", false, "browse users in an interactive carousel")
	f.BoolVar(&opts.saveOrg, "save-org", false, "remember --org in the settings file")
	f.IntVar(&opts.width, "width", opts.width, "table width in cells")
	f.IntVar(&opts.chartHeight, "chart-height", opts.chartHeight, "org chart height in rows, 0 hides the chart")
	return cmd
}

func runReport(ctx context.Context, w io.Writer, f copilot.Fetcher, opts reportOptions, now time.Time) error {
	org := strings.TrimSpace(opts.org)
	if org == "" {
		return fmt.Errorf("no organization: pass --org or set %s", config.EnvOrg)
	}
	mode, err := parseMode(opts.mode)
	if err != nil {
		return err
	}
	span, err := resolveSpan(opts.since, opts.until, opts.rangeName, now)
	if err != nil {
		return err
	}
	if opts.saveOrg {
		if err := config.SaveOrg(org); err != nil {
			logger.Warn("could not save org", "error", err)
		}
	}

	report, snap, err := buildReport(ctx, f, org, span, opts.seed, opts.synthetic)
	if err != nil {
		return err
	}

	switch {
	case opts.asJSON:
		out := struct {
			attribution.Report
			Org     string                 `json:"org"`
			Mode    core.ViewMode          `json:"mode"`
			Summary copilot.PremiumSummary `json:"summary"`
		}{Report: report, Org: org, Mode: mode, Summary: snap.Summary}
		out.Users = report.InMode(mode)
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	case opts.interactive:
		return tui.Run(report, mode)
	default:
		fmt.Fprintf(w, "%s  %s..%s  net %s over %d models\n\n",
			render.HeaderStyle.Render(org), span.Since, span.Until,
			render.FormatValue(snap.Summary.Net, core.ModeCost), snap.Summary.ModelCount)
		fmt.Fprintln(w, render.Table(report, mode, opts.width))
		if opts.chartHeight > 0 {
			fmt.Fprintln(w)
			fmt.Fprintln(w, render.OrgChart(report, mode, opts.width-12, opts.chartHeight))
		}
		return nil
	}
}

// buildReport fetches a snapshot and runs attribution over it. forceSynthetic
// discards any fetched activity.
func buildReport(ctx context.Context, f copilot.Fetcher, org string, span core.DateRange, seed string, forceSynthetic bool) (attribution.Report, copilot.Snapshot, error) {
	snap, err := copilot.FetchSnapshot(ctx, f, org, span)
	if err != nil {
		return attribution.Report{}, copilot.Snapshot{}, err
	}

	in := snap.AttributionInput(seed)
	if forceSynthetic {
		in.RowsAvailable = false
	}
	report := attribution.Compute(in)
	report.Warnings = slices.Concat(snap.Warnings, report.Warnings)

	logger.Debug("report computed",
		"org", org,
		"source", report.Source,
		"users", len(report.Users),
		"total_cost", report.TotalCost,
	)
	return report, snap, nil
}
