package copilot

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/janekbaraniewski/copilotspend/internal/core"
)

func TestClampPeriod(t *testing.T) {
	tests := []struct {
		year, month int
		ok          bool
	}{
		{2025, 1, true},
		{2008, 12, true},
		{2100, 6, true},
		{2007, 6, false},
		{2101, 6, false},
		{2025, 0, false},
		{2025, 13, false},
	}
	for _, tt := range tests {
		y, m, ok := ClampPeriod(tt.year, tt.month)
		if ok != tt.ok {
			t.Errorf("ClampPeriod(%d, %d) ok = %v, want %v", tt.year, tt.month, ok, tt.ok)
		}
		if ok && (y != tt.year || m != tt.month) {
			t.Errorf("ClampPeriod(%d, %d) = %d, %d", tt.year, tt.month, y, m)
		}
	}
}

func TestGroupPremiumItemsAndSummary(t *testing.T) {
	items := []PremiumUsageItem{
		{Product: "copilot", SKU: "premium", Model: "o3", GrossAmount: 10, DiscountAmount: 2, NetAmount: 8, NetQuantity: 200, PricePerUnit: 0.04},
		{Product: "copilot", SKU: "premium", Model: "gpt-4o", GrossAmount: 30, DiscountAmount: 0, NetAmount: 30, NetQuantity: 750},
		{Product: "copilot", SKU: "premium", Model: "o3", GrossAmount: 5, DiscountAmount: 1, NetAmount: 4, NetQuantity: 100},
		{Product: "copilot", SKU: "premium", GrossAmount: 1, NetAmount: 1, NetQuantity: 25},
		{Product: "copilot", SKU: "premium", Model: "claude", GrossAmount: 2, NetAmount: 2, NetQuantity: math.NaN()},
	}

	rows := GroupPremiumItems(items)
	if len(rows) != 4 {
		t.Fatalf("rows = %d, want 4", len(rows))
	}
	if rows[0].Model != "gpt-4o" || rows[1].Model != "o3" {
		t.Fatalf("order = %s, %s", rows[0].Model, rows[1].Model)
	}
	if rows[1].NetAmount != 12 || rows[1].NetQuantity != 300 || rows[1].PricePerUnit != 0.04 {
		t.Errorf("o3 row = %+v", rows[1])
	}
	if rows[3].Model != unknownModel || rows[3].UnitType != unknownField {
		t.Errorf("unknown row = %+v", rows[3])
	}

	s := Summarize(rows)
	if s.Gross != 48 || s.Discount != 3 || s.Net != 45 || s.Quantity != 1075 || s.ModelCount != 4 {
		t.Fatalf("summary = %+v", s)
	}
	if want := 3.0 / 48.0; s.DiscountRate != want {
		t.Errorf("discount rate = %v, want %v", s.DiscountRate, want)
	}
	if want := 44.0 / 45.0; math.Abs(s.Concentration-want) > 1e-12 {
		t.Errorf("concentration = %v, want %v", s.Concentration, want)
	}
	if want := 45.0 / 1075.0; math.Abs(s.NetPerRequest-want) > 1e-12 {
		t.Errorf("net per request = %v, want %v", s.NetPerRequest, want)
	}

	empty := Summarize(nil)
	if empty.DiscountRate != 0 || empty.Concentration != 0 || empty.NetPerRequest != 0 {
		t.Errorf("empty summary = %+v", empty)
	}
}

func TestCategoryTotals(t *testing.T) {
	rows := []PremiumRow{
		{Product: "a", Model: "o3", NetAmount: 1, NetQuantity: 10},
		{Product: "b", Model: "gpt-4o", NetAmount: 5, NetQuantity: 100},
		{Product: "c", Model: "o3", NetAmount: 6, NetQuantity: 20},
	}
	totals := CategoryTotals(rows)
	if len(totals) != 2 {
		t.Fatalf("totals = %+v", totals)
	}
	if totals[0] != (core.CategoryTotal{Category: "o3", NetAmount: 7, NetUnitCount: 30}) {
		t.Errorf("totals[0] = %+v", totals[0])
	}
}

func TestActivityRowsFromMetrics(t *testing.T) {
	rows := []MetricsRow{
		{
			Day:                           "2025-01-01",
			UserLogin:                     "alice",
			UserInitiatedInteractionCount: 7,
			TotalsByLanguageModel: []LanguageModelTotal{
				{Language: "go", Model: "gpt-4o", CodeGenerationActivityCount: 3, CodeAcceptanceActivityCount: 1},
				{Language: "python", Model: "o3", CodeGenerationActivityCount: 2},
				{Language: "python", Model: "gpt-4o", CodeGenerationActivityCount: 4, CodeAcceptanceActivityCount: 2},
			},
			TotalsByModelFeature: []ModelFeatureTotal{
				{Model: "gpt-4o", Feature: "code_completion", CodeGenerationActivityCount: 6},
				{Model: "o3", Feature: "agent", CodeGenerationActivityCount: 9},
			},
		},
		{Day: "2025-01-01", UserLogin: "bob", CodeGenerationActivityCount: 50},
	}

	got := ActivityRowsFromMetrics(rows)
	if len(got) != 2 {
		t.Fatalf("rows = %+v", got)
	}
	gpt := got[0]
	if gpt.Category != "gpt-4o" || gpt.GenerationCount != 7 || gpt.AcceptanceCount != 3 {
		t.Errorf("gpt-4o row = %+v", gpt)
	}
	if gpt.TopLanguage != "python" || gpt.TopFeature != "agent" || gpt.InteractionCount != 7 {
		t.Errorf("gpt-4o enrichments = %+v", gpt)
	}
	if got[1].Category != "o3" || got[1].TopLanguage != "python" {
		t.Errorf("o3 row = %+v", got[1])
	}
}

type fakeFetcher struct {
	usage      PremiumUsage
	seats      []Seat
	report     MetricsReport
	usageErr   error
	seatsErr   error
	metricsErr error
	gotYear    int
	gotMonth   int
}

func (f *fakeFetcher) PremiumUsage(_ context.Context, _ string, year, month int) (PremiumUsage, error) {
	f.gotYear, f.gotMonth = year, month
	return f.usage, f.usageErr
}

func (f *fakeFetcher) Seats(context.Context, string) ([]Seat, error) {
	return f.seats, f.seatsErr
}

func (f *fakeFetcher) UserMetrics(context.Context, string, core.DateRange) (MetricsReport, error) {
	return f.report, f.metricsErr
}

func seat(login string) Seat {
	return Seat{Assignee: &SeatAssignee{Login: login}}
}

func TestFetchSnapshot(t *testing.T) {
	f := &fakeFetcher{
		usage: PremiumUsage{UsageItems: []PremiumUsageItem{{Model: "o3", NetAmount: 9, NetQuantity: 225}}},
		seats: []Seat{seat("bob"), seat("alice")},
		report: MetricsReport{Rows: []MetricsRow{{
			Day: "2025-03-02", UserLogin: "alice",
			TotalsByLanguageModel: []LanguageModelTotal{{Language: "go", Model: "o3", CodeGenerationActivityCount: 3}},
		}}},
	}

	snap, err := FetchSnapshot(context.Background(), f, "acme", core.DateRange{Since: "2025-03-10", Until: "2025-03-01"})
	if err != nil {
		t.Fatalf("FetchSnapshot: %v", err)
	}
	if f.gotYear != 2025 || f.gotMonth != 3 {
		t.Errorf("period = %d-%d", f.gotYear, f.gotMonth)
	}
	if snap.Span.Since != "2025-03-01" {
		t.Errorf("span not clamped: %+v", snap.Span)
	}
	if !snap.RowsAvailable || len(snap.Rows) != 1 || len(snap.Warnings) != 0 {
		t.Fatalf("snapshot = %+v", snap)
	}
	if len(snap.Seats) != 2 || snap.Seats[0] != "alice" {
		t.Errorf("seats = %v", snap.Seats)
	}
	if len(snap.Totals) != 1 || snap.Totals[0].NetUnitCount != 225 {
		t.Errorf("totals = %+v", snap.Totals)
	}

	in := snap.AttributionInput("seed")
	if !in.RowsAvailable || in.Seed != "seed" || len(in.Seats) != 2 {
		t.Errorf("input = %+v", in)
	}
}

func TestFetchSnapshot_Degrades(t *testing.T) {
	f := &fakeFetcher{
		usage:      PremiumUsage{UsageItems: []PremiumUsageItem{{Model: "o3", NetAmount: 9}}},
		seatsErr:   errors.New("403"),
		metricsErr: errors.New("metrics disabled"),
	}
	snap, err := FetchSnapshot(context.Background(), f, "acme", core.DateRange{Since: "2025-03-01", Until: "2025-03-10"})
	if err != nil {
		t.Fatalf("FetchSnapshot: %v", err)
	}
	if snap.RowsAvailable || len(snap.Warnings) != 2 {
		t.Fatalf("snapshot = %+v", snap)
	}
	if !strings.Contains(strings.Join(snap.Warnings, ";"), "metrics disabled") {
		t.Errorf("warnings = %v", snap.Warnings)
	}
}

func TestFetchSnapshot_EmptyMetricsIsUnavailable(t *testing.T) {
	f := &fakeFetcher{report: MetricsReport{Rows: []MetricsRow{{Day: "2025-03-02", UserLogin: "alice"}}}}
	snap, err := FetchSnapshot(context.Background(), f, "acme", core.DateRange{Since: "2025-03-01", Until: "2025-03-10"})
	if err != nil {
		t.Fatalf("FetchSnapshot: %v", err)
	}
	if snap.RowsAvailable {
		t.Fatal("rows without model detail should not count as available")
	}
}

func TestFetchSnapshot_BillingFailureIsFatal(t *testing.T) {
	f := &fakeFetcher{usageErr: errors.New("401")}
	if _, err := FetchSnapshot(context.Background(), f, "acme", core.DateRange{}); err == nil {
		t.Fatal("expected error")
	}
}
