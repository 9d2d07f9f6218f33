// Package copilot reads GitHub Copilot billing and activity data for an
// organization through the gh CLI.
//
// Every GitHub call shells out to `gh api`, so authentication, enterprise
// hosts and proxies are whatever the user's gh is configured for:
//
//   - `gh auth status` confirms authentication and token scopes
//   - `gh api /rate_limit` reports the remaining core API budget
//   - `/organizations/{org}/settings/billing/premium_request/usage` gives
//     monthly premium request totals per model
//   - `/orgs/{org}/copilot/billing/seats` lists seat holders
//   - `/orgs/{org}/copilot/metrics/reports/users-28-day/latest` links to an
//     NDJSON report of per-user daily activity
package copilot

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os/exec"
	"strings"
	"time"

	"github.com/dgraph-io/ristretto/v2"
)

const (
	defaultBinary    = "gh"
	defaultReportTTL = 5 * time.Minute
	defaultGHLimit   = 4
	seatsPageSize    = 100
	maxSeatPages     = 50
)

var (
	ErrGHNotFound     = errors.New("gh binary not found in PATH")
	ErrNoDownloadLink = errors.New("no download_links returned from metrics report")
)

type runFunc func(ctx context.Context, binary string, args ...string) (string, error)

// Client talks to GitHub through the gh CLI. It is safe for concurrent use.
type Client struct {
	binary    string
	run       runFunc
	http      *http.Client
	pool      *ghPool
	reports   *ristretto.Cache[string, *reportPayload]
	reportTTL time.Duration
}

type Option func(*Client)

func WithBinary(binary string) Option {
	return func(c *Client) {
		if b := strings.TrimSpace(binary); b != "" {
			c.binary = b
		}
	}
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithReportTTL sets how long a downloaded metrics report is reused.
func WithReportTTL(ttl time.Duration) Option {
	return func(c *Client) {
		if ttl > 0 {
			c.reportTTL = ttl
		}
	}
}

// WithConcurrency caps the number of gh processes running at once.
func WithConcurrency(limit int) Option {
	return func(c *Client) {
		c.pool = newGHPool(limit)
	}
}

func withRunner(run runFunc) Option {
	return func(c *Client) { c.run = run }
}

func NewClient(opts ...Option) (*Client, error) {
	reports, err := ristretto.NewCache(&ristretto.Config[string, *reportPayload]{
		NumCounters: 1000,
		MaxCost:     256 << 20,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("creating report cache: %w", err)
	}

	c := &Client{
		binary:    defaultBinary,
		run:       runGH,
		http:      &http.Client{Timeout: 60 * time.Second},
		pool:      newGHPool(defaultGHLimit),
		reports:   reports,
		reportTTL: defaultReportTTL,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Close releases the report cache.
func (c *Client) Close() {
	c.reports.Close()
}

// api runs `gh api` against path and decodes the JSON response into out.
func (c *Client) api(ctx context.Context, path string, query url.Values, out any) error {
	full := path
	if qs := query.Encode(); qs != "" {
		full += "?" + qs
	}

	var stdout string
	err := c.pool.Run(ctx, func() error {
		var runErr error
		stdout, runErr = c.run(ctx, c.binary, "api",
			"-H", "Accept: application/vnd.github+json",
			"-H", "X-GitHub-Api-Version: 2022-11-28",
			full)
		return runErr
	})
	if err != nil {
		if errors.Is(err, ErrGHNotFound) {
			return err
		}
		return fmt.Errorf("gh api %s: %w: %s", path, err, strings.TrimSpace(stdout))
	}

	if err := json.Unmarshal([]byte(stdout), out); err != nil {
		return fmt.Errorf("decoding gh api %s: %w", path, err)
	}
	return nil
}

// runGH executes a gh command and returns stdout. Stderr is appended to stdout on error.
func runGH(ctx context.Context, binary string, args ...string) (string, error) {
	if _, err := exec.LookPath(binary); err != nil {
		return "", fmt.Errorf("%w: %s", ErrGHNotFound, binary)
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, binary, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return stdout.String() + stderr.String(), err
	}
	return stdout.String(), nil
}
