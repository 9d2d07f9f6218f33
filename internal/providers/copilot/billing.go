package copilot

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/samber/lo"
)

// PremiumUsage fetches the org's premium request usage. An out-of-range
// period is dropped and GitHub's default (the current month) applies.
func (c *Client) PremiumUsage(ctx context.Context, org string, year, month int) (PremiumUsage, error) {
	var usage PremiumUsage
	path := fmt.Sprintf("/organizations/%s/settings/billing/premium_request/usage", url.PathEscape(org))
	if err := c.api(ctx, path, periodQuery(year, month), &usage); err != nil {
		return PremiumUsage{}, err
	}
	return usage, nil
}

// UserPremiumUsage fetches a single user's premium request usage. It needs
// the gh token to carry the user scope.
func (c *Client) UserPremiumUsage(ctx context.Context, user string, year, month int) (PremiumUsage, error) {
	var usage PremiumUsage
	path := fmt.Sprintf("/users/%s/settings/billing/premium_request/usage", url.PathEscape(user))
	if err := c.api(ctx, path, periodQuery(year, month), &usage); err != nil {
		return PremiumUsage{}, err
	}
	return usage, nil
}

// UsageSummary fetches the org's billing usage summary across products.
func (c *Client) UsageSummary(ctx context.Context, org string, year, month int) (UsageSummary, error) {
	var summary UsageSummary
	path := fmt.Sprintf("/organizations/%s/settings/billing/usage/summary", url.PathEscape(org))
	if err := c.api(ctx, path, periodQuery(year, month), &summary); err != nil {
		return UsageSummary{}, err
	}
	return summary, nil
}

func (c *Client) Org(ctx context.Context, org string) (Org, error) {
	var out Org
	if err := c.api(ctx, "/orgs/"+url.PathEscape(org), nil, &out); err != nil {
		return Org{}, err
	}
	return out, nil
}

func periodQuery(year, month int) url.Values {
	query := url.Values{}
	if y, m, ok := ClampPeriod(year, month); ok {
		query.Set("year", strconv.Itoa(y))
		query.Set("month", strconv.Itoa(m))
	}
	return query
}

// Seats lists every Copilot seat of the org, following pagination.
func (c *Client) Seats(ctx context.Context, org string) ([]Seat, error) {
	path := fmt.Sprintf("/orgs/%s/copilot/billing/seats", url.PathEscape(org))

	var seats []Seat
	for page := 1; page <= maxSeatPages; page++ {
		query := url.Values{}
		query.Set("per_page", strconv.Itoa(seatsPageSize))
		query.Set("page", strconv.Itoa(page))

		var resp seatsPage
		if err := c.api(ctx, path, query, &resp); err != nil {
			return nil, err
		}
		seats = append(seats, resp.Seats...)
		if len(resp.Seats) < seatsPageSize || (resp.TotalSeats > 0 && len(seats) >= resp.TotalSeats) {
			break
		}
	}
	return seats, nil
}

var (
	tokenPattern  = regexp.MustCompile(`\b(gh[opsur]_)[A-Za-z0-9_]+`)
	scopesPattern = regexp.MustCompile(`Token scopes: ([^\n\r]+)`)
	loginPattern  = regexp.MustCompile(`Logged in to github\.com account ([^\s]+)`)
)

// AuthStatus reports whether gh is authenticated. It never fails; problems
// are reported on the returned status.
func (c *Client) AuthStatus(ctx context.Context) AuthStatus {
	var out string
	err := c.pool.Run(ctx, func() error {
		var runErr error
		out, runErr = c.run(ctx, c.binary, "auth", "status")
		return runErr
	})
	if err != nil {
		msg := strings.TrimSpace(redactTokens(out))
		if msg == "" {
			msg = err.Error()
		}
		status := AuthStatus{OK: false, Scopes: []string{}, Error: msg}
		status.Hint = status.ScopeHint(false)
		return status
	}

	status := parseAuthStatus(out)
	status.Hint = status.ScopeHint(false)
	if rl, err := c.RateLimit(ctx); err == nil {
		status.RateLimit = &rl
	}
	return status
}

// RateLimit returns the core REST API budget of the authenticated user.
func (c *Client) RateLimit(ctx context.Context) (RateLimit, error) {
	var rl ghRateLimit
	if err := c.api(ctx, "/rate_limit", nil, &rl); err != nil {
		return RateLimit{}, err
	}
	out := RateLimit{
		Limit:     rl.Resources.Core.Limit,
		Remaining: rl.Resources.Core.Remaining,
		Used:      rl.Resources.Core.Used,
	}
	if rl.Resources.Core.Reset > 0 {
		out.Reset = time.Unix(rl.Resources.Core.Reset, 0).UTC()
	}
	return out, nil
}

// UserScopeHint explains the usual cause of user endpoint failures.
const UserScopeHint = "This endpoint usually requires gh auth scope: user (gh auth refresh -h github.com -s user)"

// ScopeHint summarizes whether the token's scopes cover the org endpoints
// and, when includeUserEndpoints is set, the per-user billing endpoints.
func (s AuthStatus) ScopeHint(includeUserEndpoints bool) string {
	switch {
	case !s.OK:
		return "GitHub auth not available"
	case !lo.Contains(s.Scopes, "read:org"):
		return "Token missing read:org"
	case includeUserEndpoints && !lo.Contains(s.Scopes, "user"):
		return "User endpoints need scope: user"
	default:
		return "Auth OK"
	}
}

func parseAuthStatus(out string) AuthStatus {
	redacted := redactTokens(out)
	status := AuthStatus{OK: true, Scopes: []string{}, Raw: redacted}
	if m := loginPattern.FindStringSubmatch(redacted); m != nil {
		status.User = m[1]
	}
	if m := scopesPattern.FindStringSubmatch(redacted); m != nil {
		status.Scopes = lo.Compact(lo.Map(strings.Split(m[1], ","), func(s string, _ int) string {
			return strings.Trim(strings.TrimSpace(s), "'")
		}))
	}
	return status
}

func redactTokens(s string) string {
	return tokenPattern.ReplaceAllString(s, "${1}***")
}
