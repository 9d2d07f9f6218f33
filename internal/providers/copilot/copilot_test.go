package copilot

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/janekbaraniewski/copilotspend/internal/core"
)

// fakeGH answers gh invocations from a table keyed by the API path (without
// query) or by the first argument for non-api commands.
type fakeGH struct {
	mu        sync.Mutex
	responses map[string]string
	failures  map[string]error
	calls     []string
}

func (f *fakeGH) run(_ context.Context, _ string, args ...string) (string, error) {
	key := args[0]
	if key == "api" {
		key = args[len(args)-1]
	}
	f.mu.Lock()
	f.calls = append(f.calls, key)
	f.mu.Unlock()

	path, _, _ := strings.Cut(key, "?")
	if err, ok := f.failures[path]; ok {
		return "boom", err
	}
	if out, ok := f.responses[path]; ok {
		return out, nil
	}
	return "not found", fmt.Errorf("exit status 1")
}

func newTestClient(t *testing.T, gh *fakeGH, opts ...Option) *Client {
	t.Helper()
	c, err := NewClient(append([]Option{withRunner(gh.run)}, opts...)...)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	t.Cleanup(c.Close)
	return c
}

func TestPremiumUsage_PassesPeriod(t *testing.T) {
	gh := &fakeGH{responses: map[string]string{
		"/organizations/acme/settings/billing/premium_request/usage": `{"timePeriod":{"year":2025,"month":3},"organization":"acme","usageItems":[{"model":"gpt-4o","netAmount":1.5,"netQuantity":37.5}]}`,
	}}
	c := newTestClient(t, gh)

	usage, err := c.PremiumUsage(context.Background(), "acme", 2025, 3)
	if err != nil {
		t.Fatalf("PremiumUsage: %v", err)
	}
	if usage.Organization != "acme" || len(usage.UsageItems) != 1 || usage.UsageItems[0].NetQuantity != 37.5 {
		t.Fatalf("usage = %+v", usage)
	}
	if got := gh.calls[0]; !strings.Contains(got, "month=3") || !strings.Contains(got, "year=2025") {
		t.Errorf("call = %q, want period query", got)
	}

	if _, err := c.PremiumUsage(context.Background(), "acme", 1999, 13); err != nil {
		t.Fatalf("PremiumUsage: %v", err)
	}
	if got := gh.calls[1]; strings.Contains(got, "?") {
		t.Errorf("invalid period should be dropped, call = %q", got)
	}
}

func TestPremiumUsage_ErrorIncludesOutput(t *testing.T) {
	gh := &fakeGH{failures: map[string]error{
		"/organizations/acme/settings/billing/premium_request/usage": errors.New("exit status 1"),
	}}
	c := newTestClient(t, gh)

	_, err := c.PremiumUsage(context.Background(), "acme", 0, 0)
	if err == nil || !strings.Contains(err.Error(), "boom") {
		t.Fatalf("err = %v, want wrapped gh output", err)
	}
}

func TestClient_GHNotFound(t *testing.T) {
	c, err := NewClient(WithBinary("definitely-not-a-real-gh-binary"))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	defer c.Close()

	_, err = c.Seats(context.Background(), "acme")
	if !errors.Is(err, ErrGHNotFound) {
		t.Fatalf("err = %v, want ErrGHNotFound", err)
	}
}

func TestSeats_Paginates(t *testing.T) {
	var page1 strings.Builder
	page1.WriteString(`{"total_seats":101,"seats":[`)
	for i := range seatsPageSize {
		if i > 0 {
			page1.WriteString(",")
		}
		fmt.Fprintf(&page1, `{"assignee":{"login":"user%03d"}}`, i)
	}
	page1.WriteString("]}")

	calls := 0
	c := newTestClient(t, &fakeGH{}, withRunner(func(_ context.Context, _ string, args ...string) (string, error) {
		calls++
		if strings.Contains(args[len(args)-1], "page=2") {
			return `{"total_seats":101,"seats":[{"assignee":{"login":"last"}},{"plan_type":"business"}]}`, nil
		}
		return page1.String(), nil
	}))

	seats, err := c.Seats(context.Background(), "acme")
	if err != nil {
		t.Fatalf("Seats: %v", err)
	}
	if calls != 2 {
		t.Fatalf("calls = %d, want 2", calls)
	}
	if len(seats) != 102 {
		t.Fatalf("seats = %d, want 102", len(seats))
	}
	logins := SeatLogins(seats)
	if len(logins) != 101 || logins[0] != "last" {
		t.Fatalf("logins = %d first = %q", len(logins), logins[0])
	}
}

func TestAuthStatus(t *testing.T) {
	gh := &fakeGH{responses: map[string]string{
		"auth":        "github.com\n  ✓ Logged in to github.com account octocat (keyring)\n  - Token: gho_abcDEF123_xyz\n  - Token scopes: 'gist', 'read:org', 'repo'\n",
		"/rate_limit": `{"resources":{"core":{"limit":5000,"remaining":4990,"used":10,"reset":1735689600}}}`,
	}}
	c := newTestClient(t, gh)

	status := c.AuthStatus(context.Background())
	if !status.OK || status.User != "octocat" {
		t.Fatalf("status = %+v", status)
	}
	if strings.Contains(status.Raw, "abcDEF") || !strings.Contains(status.Raw, "gho_***") {
		t.Errorf("token not redacted: %q", status.Raw)
	}
	want := []string{"gist", "read:org", "repo"}
	if len(status.Scopes) != len(want) {
		t.Fatalf("scopes = %v, want %v", status.Scopes, want)
	}
	for i := range want {
		if status.Scopes[i] != want[i] {
			t.Errorf("scopes[%d] = %q, want %q", i, status.Scopes[i], want[i])
		}
	}
	if status.Hint != "Auth OK" {
		t.Errorf("hint = %q", status.Hint)
	}
	if status.RateLimit == nil || status.RateLimit.Remaining != 4990 {
		t.Fatalf("rate limit = %+v", status.RateLimit)
	}
	if !status.RateLimit.Reset.Equal(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("reset = %v", status.RateLimit.Reset)
	}
}

func TestAuthStatus_NotLoggedIn(t *testing.T) {
	gh := &fakeGH{failures: map[string]error{"auth": errors.New("exit status 1")}}
	status := newTestClient(t, gh).AuthStatus(context.Background())
	if status.OK || status.Error != "boom" {
		t.Fatalf("status = %+v", status)
	}
	if status.Scopes == nil {
		t.Error("scopes should be an empty list, not null")
	}
	if status.Hint != "GitHub auth not available" {
		t.Errorf("hint = %q", status.Hint)
	}
}

func TestScopeHint(t *testing.T) {
	tests := []struct {
		name        string
		status      AuthStatus
		includeUser bool
		want        string
	}{
		{"not logged in", AuthStatus{}, false, "GitHub auth not available"},
		{"missing read:org", AuthStatus{OK: true, Scopes: []string{"repo"}}, false, "Token missing read:org"},
		{"org only", AuthStatus{OK: true, Scopes: []string{"read:org"}}, false, "Auth OK"},
		{"user endpoints without user scope", AuthStatus{OK: true, Scopes: []string{"read:org"}}, true, "User endpoints need scope: user"},
		{"user endpoints", AuthStatus{OK: true, Scopes: []string{"read:org", "user"}}, true, "Auth OK"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.status.ScopeHint(tt.includeUser); got != tt.want {
				t.Fatalf("ScopeHint = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestUserPremiumUsage(t *testing.T) {
	gh := &fakeGH{responses: map[string]string{
		"/users/octocat/settings/billing/premium_request/usage": `{"timePeriod":{"year":2025,"month":2},"user":"octocat","usageItems":[{"model":"o3","netAmount":2,"netQuantity":50}]}`,
	}}
	usage, err := newTestClient(t, gh).UserPremiumUsage(context.Background(), "octocat", 2025, 2)
	if err != nil {
		t.Fatalf("UserPremiumUsage: %v", err)
	}
	if usage.User != "octocat" || len(usage.UsageItems) != 1 {
		t.Fatalf("usage = %+v", usage)
	}
	if len(gh.calls) != 1 || !strings.Contains(gh.calls[0], "year=2025") || !strings.Contains(gh.calls[0], "month=2") {
		t.Fatalf("calls = %v", gh.calls)
	}
}

func TestUsageSummary(t *testing.T) {
	gh := &fakeGH{responses: map[string]string{
		"/organizations/acme/settings/billing/usage/summary": `{"timePeriod":{"year":2025},"organization":"acme","usageItems":[{"product":"actions","sku":"linux","unitType":"minutes","netAmount":12,"netQuantity":1500},{"product":"copilot","sku":"premium","netAmount":30,"netQuantity":750}]}`,
	}}
	summary, err := newTestClient(t, gh).UsageSummary(context.Background(), "acme", 1999, 13)
	if err != nil {
		t.Fatalf("UsageSummary: %v", err)
	}
	if summary.Organization != "acme" || len(summary.UsageItems) != 2 {
		t.Fatalf("summary = %+v", summary)
	}
	if strings.Contains(gh.calls[0], "year=") {
		t.Fatalf("out-of-range period should be omitted: %v", gh.calls)
	}
	top := TopUsageItems(summary.UsageItems, 1)
	if len(top) != 1 || top[0].Product != "copilot" {
		t.Fatalf("top = %+v", top)
	}
}

func TestOrg(t *testing.T) {
	gh := &fakeGH{
		responses: map[string]string{
			"/orgs/acme": `{"login":"acme","id":42,"name":"Acme Inc","plan":{"name":"enterprise","seats":100,"filled_seats":37}}`,
		},
		failures: map[string]error{"/orgs/ghost": errors.New("exit status 1")},
	}
	c := newTestClient(t, gh)

	org, err := c.Org(context.Background(), "acme")
	if err != nil {
		t.Fatalf("Org: %v", err)
	}
	if org.Login != "acme" || org.ID != 42 || org.Plan == nil || org.Plan.FilledSeats != 37 {
		t.Fatalf("org = %+v", org)
	}
	if _, err := c.Org(context.Background(), "ghost"); err == nil || !strings.Contains(err.Error(), "boom") {
		t.Fatalf("err = %v, want wrapped gh output", err)
	}
}

const sampleReport = `{"day":"2025-01-01","user_login":"alice","user_initiated_interaction_count":4,"totals_by_language_model":[{"language":"go","model":"gpt-4o","code_generation_activity_count":5,"code_acceptance_activity_count":2}]}
not json at all

{"day":"2025-01-02","user_login":"bob","totals_by_language_model":[{"language":"python","model":"o3","code_generation_activity_count":3}]}
{"day":"2025-02-01","user_login":"carol","totals_by_language_model":[{"language":"go","model":"o3","code_generation_activity_count":9}]}
`

func TestUserMetrics_DownloadFilterAndCache(t *testing.T) {
	var downloads atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		downloads.Add(1)
		_, _ = w.Write([]byte(sampleReport))
	}))
	defer srv.Close()

	gh := &fakeGH{responses: map[string]string{
		"/orgs/acme/copilot/metrics/reports/users-28-day/latest": fmt.Sprintf(`{"download_links":["%s/report.ndjson"],"report_start_day":"2025-01-01","report_end_day":"2025-01-28"}`, srv.URL),
	}}
	c := newTestClient(t, gh, WithHTTPClient(srv.Client()), WithReportTTL(time.Minute))

	span := core.DateRange{Since: "2025-01-01", Until: "2025-01-31"}
	report, err := c.UserMetrics(context.Background(), "acme", span)
	if err != nil {
		t.Fatalf("UserMetrics: %v", err)
	}
	if len(report.Rows) != 2 || report.SkippedLines != 1 || report.Cached {
		t.Fatalf("report = %+v", report)
	}
	if report.ReportStartDay != "2025-01-01" || report.ReportEndDay != "2025-01-28" {
		t.Errorf("report days = %s..%s", report.ReportStartDay, report.ReportEndDay)
	}

	again, err := c.UserMetrics(context.Background(), "acme", core.DateRange{Since: "2025-01-02", Until: "bogus"})
	if err != nil {
		t.Fatalf("UserMetrics (cached): %v", err)
	}
	if !again.Cached || downloads.Load() != 1 {
		t.Fatalf("expected cached report, downloads = %d", downloads.Load())
	}
	if len(again.Rows) != 2 || again.Rows[0].UserLogin != "bob" {
		t.Fatalf("rows after since filter = %+v", again.Rows)
	}
}

func TestUserMetrics_NoDownloadLink(t *testing.T) {
	gh := &fakeGH{responses: map[string]string{
		"/orgs/acme/copilot/metrics/reports/users-28-day/latest": `{"download_links":[]}`,
	}}
	_, err := newTestClient(t, gh).UserMetrics(context.Background(), "acme", core.DateRange{})
	if !errors.Is(err, ErrNoDownloadLink) {
		t.Fatalf("err = %v, want ErrNoDownloadLink", err)
	}
}

func TestUserMetrics_DownloadFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusGone)
	}))
	defer srv.Close()

	gh := &fakeGH{responses: map[string]string{
		"/orgs/acme/copilot/metrics/reports/users-28-day/latest": fmt.Sprintf(`{"download_links":["%s"]}`, srv.URL),
	}}
	_, err := newTestClient(t, gh, WithHTTPClient(srv.Client())).UserMetrics(context.Background(), "acme", core.DateRange{})
	if err == nil || !strings.Contains(err.Error(), "410") {
		t.Fatalf("err = %v, want download status", err)
	}
}
