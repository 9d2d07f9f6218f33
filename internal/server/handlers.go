package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/janekbaraniewski/copilotspend/internal/attribution"
	"github.com/janekbaraniewski/copilotspend/internal/core"
	"github.com/janekbaraniewski/copilotspend/internal/logger"
	"github.com/janekbaraniewski/copilotspend/internal/providers/copilot"
	"github.com/janekbaraniewski/copilotspend/internal/synth"
	"github.com/janekbaraniewski/copilotspend/internal/version"
)

// errBadRequest marks query validation failures.
var errBadRequest = errors.New("bad request")

func badRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errBadRequest, fmt.Sprintf(format, args...))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":      true,
		"version": version.Short(),
	})
}

func (s *Server) handleAuthStatus(w http.ResponseWriter, r *http.Request) {
	status := s.svc.AuthStatus(r.Context())
	if withUser, _ := strconv.ParseBool(r.URL.Query().Get("user")); withUser {
		status.Hint = status.ScopeHint(true)
	}
	writeJSON(w, http.StatusOK, status)
}

func (s *Server) handleOrg(w http.ResponseWriter, r *http.Request) {
	org, err := s.svc.Org(r.Context(), chi.URLParam(r, "org"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, org)
}

const topUsageLimit = 3

type usageSummaryResponse struct {
	copilot.UsageSummary
	Top []copilot.PremiumUsageItem `json:"top"`
}

func (s *Server) handleUsageSummary(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	year, month, err := periodParams(q.Get("year"), q.Get("month"))
	if err != nil {
		writeError(w, err)
		return
	}
	summary, err := s.svc.UsageSummary(r.Context(), chi.URLParam(r, "org"), year, month)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, usageSummaryResponse{
		UsageSummary: summary,
		Top:          copilot.TopUsageItems(summary.UsageItems, topUsageLimit),
	})
}

func (s *Server) handleUserPremium(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	year, month, err := periodParams(q.Get("year"), q.Get("month"))
	if err != nil {
		writeError(w, err)
		return
	}
	usage, err := s.svc.UserPremiumUsage(r.Context(), chi.URLParam(r, "user"), year, month)
	if err != nil {
		writeJSON(w, http.StatusBadGateway, map[string]string{
			"error": err.Error(),
			"hint":  copilot.UserScopeHint,
		})
		return
	}
	items := copilot.GroupPremiumItems(usage.UsageItems)
	writeJSON(w, http.StatusOK, userPremiumResponse{
		User:    usage.User,
		Year:    usage.TimePeriod.Year,
		Month:   usage.TimePeriod.Month,
		Items:   items,
		Summary: copilot.Summarize(items),
	})
}

type userPremiumResponse struct {
	User    string                 `json:"user"`
	Year    int                    `json:"year,omitempty"`
	Month   int                    `json:"month,omitempty"`
	Items   []copilot.PremiumRow   `json:"items"`
	Summary copilot.PremiumSummary `json:"summary"`
}

type premiumResponse struct {
	Org     string                 `json:"org"`
	Year    int                    `json:"year,omitempty"`
	Month   int                    `json:"month,omitempty"`
	Items   []copilot.PremiumRow   `json:"items"`
	Summary copilot.PremiumSummary `json:"summary"`
	Totals  []core.CategoryTotal   `json:"totals"`
}

func (s *Server) handlePremium(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	org, err := s.orgParam(q.Get("org"))
	if err != nil {
		writeError(w, err)
		return
	}
	year, month, err := periodParams(q.Get("year"), q.Get("month"))
	if err != nil {
		writeError(w, err)
		return
	}

	usage, err := s.svc.PremiumUsage(r.Context(), org, year, month)
	if err != nil {
		writeError(w, err)
		return
	}
	items := copilot.GroupPremiumItems(usage.UsageItems)
	writeJSON(w, http.StatusOK, premiumResponse{
		Org:     org,
		Year:    usage.TimePeriod.Year,
		Month:   usage.TimePeriod.Month,
		Items:   items,
		Summary: copilot.Summarize(items),
		Totals:  copilot.CategoryTotals(items),
	})
}

type attributionResponse struct {
	attribution.Report
	Org     string                 `json:"org"`
	Mode    core.ViewMode          `json:"mode"`
	Summary copilot.PremiumSummary `json:"summary"`
}

func (s *Server) handleAttribution(w http.ResponseWriter, r *http.Request) {
	cfg := s.config()
	q := r.URL.Query()

	org, err := s.orgParam(q.Get("org"))
	if err != nil {
		writeError(w, err)
		return
	}
	span, err := s.spanParams(q)
	if err != nil {
		writeError(w, err)
		return
	}
	mode := cfg.Mode
	if raw := q.Get("mode"); raw != "" {
		parsed, ok := core.ParseViewMode(raw)
		if !ok {
			writeError(w, badRequest("mode must be cost or requests"))
			return
		}
		mode = parsed
	}
	seed := strings.TrimSpace(q.Get("seed"))
	if seed == "" {
		seed = cfg.Seed
	}

	snap, err := copilot.FetchSnapshot(r.Context(), s.svc, org, span)
	if err != nil {
		writeError(w, err)
		return
	}

	report := attribution.Compute(snap.AttributionInput(seed))
	report.Warnings = slices.Concat(snap.Warnings, report.Warnings)
	s.metrics.attributionRuns.WithLabelValues(string(report.Source), strconv.FormatBool(report.Rates.UsedBlendedRate)).Inc()
	logger.Event("attribution_computed",
		"org", org,
		"since", span.Since,
		"until", span.Until,
		"source", report.Source,
		"users", len(report.Users),
		"blended", report.Rates.UsedBlendedRate,
		"request_id", logger.RequestID(r.Context()),
	)

	report.Users = report.InMode(mode)
	writeJSON(w, http.StatusOK, attributionResponse{
		Report:  report,
		Org:     org,
		Mode:    mode,
		Summary: snap.Summary,
	})
}

type syntheticResponse struct {
	Org      string               `json:"org"`
	Span     core.DateRange       `json:"span"`
	Seed     string               `json:"seed"`
	Rows     []core.SyntheticRow  `json:"rows"`
	Totals   []core.CategoryTotal `json:"totals"`
	Users    []string             `json:"users"`
	Warnings []string             `json:"warnings,omitempty"`
}

func (s *Server) handleSynthetic(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	org, err := s.orgParam(q.Get("org"))
	if err != nil {
		writeError(w, err)
		return
	}
	span, err := s.spanParams(q)
	if err != nil {
		writeError(w, err)
		return
	}
	seed := strings.TrimSpace(q.Get("seed"))
	if seed == "" {
		seed = s.config().Seed
	}

	year, month, _ := core.MonthOf(span.Until)
	usage, err := s.svc.PremiumUsage(r.Context(), org, year, month)
	if err != nil {
		writeError(w, err)
		return
	}
	resp := syntheticResponse{Org: org, Span: span, Seed: seed}
	seats, err := s.svc.Seats(r.Context(), org)
	if err != nil {
		resp.Warnings = append(resp.Warnings, fmt.Sprintf("seats unavailable: %v", err))
	}

	resp.Totals = copilot.CategoryTotals(copilot.GroupPremiumItems(usage.UsageItems))
	resp.Users = copilot.SeatLogins(seats)
	resp.Rows = synth.DailyUsage(synth.Request{
		Start:  span.Since,
		End:    span.Until,
		Users:  resp.Users,
		Totals: resp.Totals,
		Seed:   seed,
	})
	if resp.Rows == nil {
		resp.Rows = []core.SyntheticRow{}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) orgParam(raw string) (string, error) {
	if org := strings.TrimSpace(raw); org != "" {
		return org, nil
	}
	if org := s.config().Org; org != "" {
		return org, nil
	}
	return "", badRequest("org is required")
}

// spanParams resolves the requested span from since/until, a year/month
// pair, a range preset, or the configured default, in that order.
func (s *Server) spanParams(q url.Values) (core.DateRange, error) {
	cfg := s.config()
	now := s.now()

	since, until := strings.TrimSpace(q.Get("since")), strings.TrimSpace(q.Get("until"))
	var span core.DateRange
	switch {
	case since != "" || until != "":
		if since == "" || until == "" {
			return core.DateRange{}, badRequest("since and until must be given together")
		}
		if !core.ValidDay(since) || !core.ValidDay(until) {
			return core.DateRange{}, badRequest("since and until must be YYYY-MM-DD")
		}
		span = core.DateRange{Since: since, Until: until}.Clamp()
	case q.Get("year") != "" || q.Get("month") != "":
		year, month, err := periodParams(q.Get("year"), q.Get("month"))
		if err != nil {
			return core.DateRange{}, err
		}
		if year == 0 {
			return core.DateRange{}, badRequest("year and month must be a valid billing period")
		}
		span = monthSpan(year, month, now)
	case q.Get("range") != "":
		span = core.ParseRangePreset(q.Get("range")).Range(now)
	default:
		span = cfg.Range.Range(now)
	}

	if days := span.Len(); days == 0 || days > cfg.MaxSpanDays {
		return core.DateRange{}, badRequest("span must cover 1 to %d days", cfg.MaxSpanDays)
	}
	return span, nil
}

// periodParams parses year and month. Both empty yields (0, 0); values
// outside the billing range are dropped the same way.
func periodParams(rawYear, rawMonth string) (int, int, error) {
	if rawYear == "" && rawMonth == "" {
		return 0, 0, nil
	}
	year, errY := strconv.Atoi(strings.TrimSpace(rawYear))
	month, errM := strconv.Atoi(strings.TrimSpace(rawMonth))
	if errY != nil || errM != nil {
		return 0, 0, badRequest("year and month must be integers")
	}
	y, m, ok := copilot.ClampPeriod(year, month)
	if !ok {
		return 0, 0, nil
	}
	return y, m, nil
}

// monthSpan covers a calendar month, ending today when it is the current
// month.
func monthSpan(year, month int, now time.Time) core.DateRange {
	first := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1)
	if today := now.UTC(); today.Before(last) && !today.Before(first) {
		last = today
	}
	return core.DateRange{Since: core.FormatDay(first), Until: core.FormatDay(last)}
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusBadGateway
	if errors.Is(err, errBadRequest) {
		status = http.StatusBadRequest
	}
	writeJSONError(w, status, err.Error())
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
