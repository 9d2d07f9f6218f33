package copilot

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/janekbaraniewski/copilotspend/internal/attribution"
	"github.com/janekbaraniewski/copilotspend/internal/core"
)

// Fetcher is the subset of Client that snapshot assembly needs.
type Fetcher interface {
	PremiumUsage(ctx context.Context, org string, year, month int) (PremiumUsage, error)
	Seats(ctx context.Context, org string) ([]Seat, error)
	UserMetrics(ctx context.Context, org string, span core.DateRange) (MetricsReport, error)
}

var _ Fetcher = (*Client)(nil)

// Snapshot is everything known about an org's Copilot spend for one span.
type Snapshot struct {
	Org           string               `json:"org"`
	Span          core.DateRange       `json:"span"`
	Year          int                  `json:"year"`
	Month         int                  `json:"month"`
	Items         []PremiumRow         `json:"items"`
	Summary       PremiumSummary       `json:"summary"`
	Totals        []core.CategoryTotal `json:"totals"`
	Seats         []string             `json:"seats"`
	Rows          []core.ActivityRow   `json:"-"`
	RowsAvailable bool                 `json:"rows_available"`
	Warnings      []string             `json:"warnings,omitempty"`
}

// FetchSnapshot loads billing, seats and activity concurrently. The billing
// period is the month of span's last day. Only a billing failure is fatal;
// seat and activity failures degrade the snapshot and are recorded as
// warnings.
func FetchSnapshot(ctx context.Context, f Fetcher, org string, span core.DateRange) (Snapshot, error) {
	span = span.Clamp()
	snap := Snapshot{Org: org, Span: span}
	snap.Year, snap.Month, _ = core.MonthOf(span.Until)

	var (
		usage      PremiumUsage
		seats      []Seat
		report     MetricsReport
		seatsErr   error
		metricsErr error
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		usage, err = f.PremiumUsage(gctx, org, snap.Year, snap.Month)
		if err != nil {
			return fmt.Errorf("premium request usage: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		seats, seatsErr = f.Seats(gctx, org)
		return nil
	})
	g.Go(func() error {
		report, metricsErr = f.UserMetrics(gctx, org, span)
		return nil
	})
	if err := g.Wait(); err != nil {
		return Snapshot{}, err
	}

	snap.Items = GroupPremiumItems(usage.UsageItems)
	snap.Summary = Summarize(snap.Items)
	snap.Totals = CategoryTotals(snap.Items)

	if seatsErr != nil {
		snap.Warnings = append(snap.Warnings, fmt.Sprintf("seats unavailable: %v", seatsErr))
	}
	snap.Seats = SeatLogins(seats)

	if metricsErr != nil {
		snap.Warnings = append(snap.Warnings, fmt.Sprintf("activity metrics unavailable: %v", metricsErr))
	} else {
		snap.Rows = ActivityRowsFromMetrics(report.Rows)
		if report.SkippedLines > 0 {
			snap.Warnings = append(snap.Warnings, fmt.Sprintf("skipped %d malformed metrics lines", report.SkippedLines))
		}
	}
	snap.RowsAvailable = metricsErr == nil && len(snap.Rows) > 0
	return snap, nil
}

// AttributionInput maps the snapshot onto an attribution run.
func (s Snapshot) AttributionInput(seed string) attribution.Input {
	return attribution.Input{
		Totals:        s.Totals,
		Rows:          s.Rows,
		RowsAvailable: s.RowsAvailable,
		Seats:         s.Seats,
		Span:          s.Span,
		Seed:          seed,
	}
}
