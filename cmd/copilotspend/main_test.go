package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/x/ansi"

	"github.com/janekbaraniewski/copilotspend/internal/config"
	"github.com/janekbaraniewski/copilotspend/internal/core"
	"github.com/janekbaraniewski/copilotspend/internal/providers/copilot"
)

var testNow = time.Date(2025, 3, 15, 9, 0, 0, 0, time.UTC)

type fakeFetcher struct {
	usage      copilot.PremiumUsage
	seats      []copilot.Seat
	report     copilot.MetricsReport
	metricsErr error
}

func (f *fakeFetcher) PremiumUsage(context.Context, string, int, int) (copilot.PremiumUsage, error) {
	return f.usage, nil
}

func (f *fakeFetcher) Seats(context.Context, string) ([]copilot.Seat, error) {
	return f.seats, nil
}

func (f *fakeFetcher) UserMetrics(context.Context, string, core.DateRange) (copilot.MetricsReport, error) {
	return f.report, f.metricsErr
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		usage: copilot.PremiumUsage{UsageItems: []copilot.PremiumUsageItem{
			{Model: "o3", NetAmount: 4, NetQuantity: 100},
		}},
		seats: []copilot.Seat{
			{Assignee: &copilot.SeatAssignee{Login: "alice"}},
			{Assignee: &copilot.SeatAssignee{Login: "bob"}},
		},
		report: copilot.MetricsReport{Rows: []copilot.MetricsRow{{
			Day: "2025-03-10", UserLogin: "bob",
			TotalsByLanguageModel: []copilot.LanguageModelTotal{{Language: "go", Model: "o3", CodeGenerationActivityCount: 8}},
		}}},
	}
}

func TestResolveSpan(t *testing.T) {
	tests := []struct {
		name         string
		since, until string
		preset       string
		want         core.DateRange
		wantErr      bool
	}{
		{name: "explicit", since: "2025-03-01", until: "2025-03-05", want: core.DateRange{Since: "2025-03-01", Until: "2025-03-05"}},
		{name: "inverted", since: "2025-03-05", until: "2025-03-01", want: core.DateRange{Since: "2025-03-01", Until: "2025-03-05"}},
		{name: "preset", preset: "month", want: core.DateRange{Since: "2025-03-01", Until: "2025-03-15"}},
		{name: "unknown preset falls back", preset: "3y", want: core.DateRange{Since: "2025-03-02", Until: "2025-03-15"}},
		{name: "half", since: "2025-03-01", wantErr: true},
		{name: "bad day", since: "03/01/2025", until: "2025-03-05", wantErr: true},
		{name: "too long", since: "2023-01-01", until: "2025-03-05", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := resolveSpan(tt.since, tt.until, tt.preset, testNow)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %+v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("resolveSpan: %v", err)
			}
			if got != tt.want {
				t.Fatalf("span = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestParseMode(t *testing.T) {
	if m, err := parseMode("Requests"); err != nil || m != core.ModeRequests {
		t.Fatalf("mode = %q err = %v", m, err)
	}
	if _, err := parseMode("tokens"); err == nil {
		t.Fatal("expected error for unknown mode")
	}
}

func TestRunSynth_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "totals.json")
	if err := os.WriteFile(path, []byte(`[{"category":"o3","net_amount":12,"net_unit_count":300}]`), 0o644); err != nil {
		t.Fatalf("write totals: %v", err)
	}
	opts := synthOptions{since: "2025-03-01", until: "2025-03-03", users: []string{"bob", "alice"}, totalsPath: path, seed: "s"}

	var first, second bytes.Buffer
	if err := runSynth(context.Background(), &first, nil, opts, testNow); err != nil {
		t.Fatalf("runSynth: %v", err)
	}
	if err := runSynth(context.Background(), &second, nil, opts, testNow); err != nil {
		t.Fatalf("runSynth: %v", err)
	}
	if first.String() != second.String() {
		t.Fatal("output is not deterministic")
	}

	var rows []core.SyntheticRow
	if err := json.Unmarshal(first.Bytes(), &rows); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(rows) == 0 {
		t.Fatal("expected synthetic rows")
	}
	for _, r := range rows {
		if r.Category != "o3" || r.Requests < 1 || r.Date < "2025-03-01" || r.Date > "2025-03-03" {
			t.Fatalf("bad row %+v", r)
		}
	}
}

func TestRunSynth_FromFetcher(t *testing.T) {
	var out bytes.Buffer
	opts := synthOptions{org: "acme", rangeName: "14d", seed: "s"}
	if err := runSynth(context.Background(), &out, newFakeFetcher(), opts, testNow); err != nil {
		t.Fatalf("runSynth: %v", err)
	}
	var rows []core.SyntheticRow
	if err := json.Unmarshal(out.Bytes(), &rows); err != nil {
		t.Fatalf("decode: %v", err)
	}
	users := map[string]bool{}
	for _, r := range rows {
		users[r.User] = true
	}
	for u := range users {
		if u != "alice" && u != "bob" {
			t.Fatalf("unexpected user %q", u)
		}
	}
}

func TestReadTotals_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "totals.json")
	if err := os.WriteFile(path, []byte(`{`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := readTotals(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestRunReport_JSON(t *testing.T) {
	var out bytes.Buffer
	opts := reportOptions{org: "acme", since: "2025-03-09", until: "2025-03-11", mode: "cost", seed: "s", asJSON: true}
	if err := runReport(context.Background(), &out, newFakeFetcher(), opts, testNow); err != nil {
		t.Fatalf("runReport: %v", err)
	}

	var got struct {
		Org       string            `json:"org"`
		Source    string            `json:"source"`
		Users     []core.UserSeries `json:"users"`
		TotalCost float64           `json:"total_cost"`
	}
	if err := json.Unmarshal(out.Bytes(), &got); err != nil {
		t.Fatalf("decode %s: %v", out.String(), err)
	}
	if got.Org != "acme" || got.Source != "metrics" {
		t.Fatalf("report = %+v", got)
	}
	if len(got.Users) != 2 || got.Users[0].User != "bob" {
		t.Fatalf("users = %+v", got.Users)
	}
	if got.TotalCost < 3.999 || got.TotalCost > 4.001 {
		t.Fatalf("total cost = %v", got.TotalCost)
	}
	if v := got.Users[0].Points[1].Values["o3"]; v < 3.999 || v > 4.001 {
		t.Fatalf("bob cost on 2025-03-10 = %v, want 4", v)
	}
}

func TestRunReport_ForcedSynthetic(t *testing.T) {
	var out bytes.Buffer
	opts := reportOptions{org: "acme", rangeName: "14d", mode: "requests", seed: "s", asJSON: true, synthetic: true}
	if err := runReport(context.Background(), &out, newFakeFetcher(), opts, testNow); err != nil {
		t.Fatalf("runReport: %v", err)
	}
	if !strings.Contains(out.String(), `"source": "synthetic"`) {
		t.Fatalf("expected synthetic source:\n%s", out.String())
	}
}

func TestRunReport_Text(t *testing.T) {
	f := newFakeFetcher()
	f.metricsErr = errors.New("metrics off")

	var out bytes.Buffer
	opts := reportOptions{org: "acme", rangeName: "14d", mode: "cost", seed: "s", width: 100, chartHeight: 4}
	if err := runReport(context.Background(), &out, f, opts, testNow); err != nil {
		t.Fatalf("runReport: %v", err)
	}
	text := ansi.Strip(out.String())
	for _, want := range []string{"acme", "2025-03-02..2025-03-15", "alice", "bob", "metrics off"} {
		if !strings.Contains(text, want) {
			t.Fatalf("output missing %q:\n%s", want, text)
		}
	}
}

func TestRunReport_Errors(t *testing.T) {
	f := newFakeFetcher()
	if err := runReport(context.Background(), &bytes.Buffer{}, f, reportOptions{mode: "cost"}, testNow); err == nil ||
		!strings.Contains(err.Error(), config.EnvOrg) {
		t.Fatalf("missing org err = %v", err)
	}
	if err := runReport(context.Background(), &bytes.Buffer{}, f, reportOptions{org: "acme", mode: "tokens"}, testNow); err == nil {
		t.Fatal("expected mode error")
	}
}

func TestVersionCommand(t *testing.T) {
	root := newRootCommand(config.DefaultConfig())
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"version"})
	if err := root.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !strings.HasPrefix(out.String(), "copilotspend dev") {
		t.Fatalf("output = %q", out.String())
	}
}
