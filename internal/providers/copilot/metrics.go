package copilot

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/janekbaraniewski/copilotspend/internal/core"
)

const maxReportLine = 8 << 20

// UserMetrics returns the org's users-28-day activity report, filtered to
// span. Open ends of span are not filtered. The downloaded report is reused
// for the configured TTL.
func (c *Client) UserMetrics(ctx context.Context, org string, span core.DateRange) (MetricsReport, error) {
	key := "users28:" + org

	payload, cached := c.reports.Get(key)
	if !cached || payload == nil {
		var err error
		payload, err = c.downloadReport(ctx, org)
		if err != nil {
			return MetricsReport{}, err
		}
		c.reports.SetWithTTL(key, payload, int64(len(payload.raw)), c.reportTTL)
		c.reports.Wait()
	}

	rows, skipped := parseReport(payload.raw, sanitizeSpan(span))
	return MetricsReport{
		Org:            org,
		ReportStartDay: payload.meta.ReportStartDay,
		ReportEndDay:   payload.meta.ReportEndDay,
		Rows:           rows,
		SkippedLines:   skipped,
		Cached:         cached,
	}, nil
}

func (c *Client) downloadReport(ctx context.Context, org string) (*reportPayload, error) {
	var meta reportMeta
	path := fmt.Sprintf("/orgs/%s/copilot/metrics/reports/users-28-day/latest", url.PathEscape(org))
	if err := c.api(ctx, path, nil, &meta); err != nil {
		return nil, err
	}
	if len(meta.DownloadLinks) == 0 || strings.TrimSpace(meta.DownloadLinks[0]) == "" {
		return nil, ErrNoDownloadLink
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, meta.DownloadLinks[0], nil)
	if err != nil {
		return nil, fmt.Errorf("building report request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("downloading metrics report: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download failed (%d)", resp.StatusCode)
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading metrics report: %w", err)
	}
	return &reportPayload{meta: meta, raw: raw}, nil
}

// sanitizeSpan drops bounds that are not strict YYYY-MM-DD days.
func sanitizeSpan(span core.DateRange) core.DateRange {
	if !core.ValidDay(span.Since) {
		span.Since = ""
	}
	if !core.ValidDay(span.Until) {
		span.Until = ""
	}
	return span
}

// parseReport decodes NDJSON, skipping blank and malformed lines. Rows whose
// day falls outside span are dropped; rows without a day are kept.
func parseReport(raw []byte, span core.DateRange) (rows []MetricsRow, skipped int) {
	sc := bufio.NewScanner(bytes.NewReader(raw))
	sc.Buffer(make([]byte, 0, 64*1024), maxReportLine)
	for sc.Scan() {
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		var row MetricsRow
		if err := json.Unmarshal(line, &row); err != nil {
			skipped++
			continue
		}
		if row.Day != "" && !span.Contains(row.Day) {
			continue
		}
		rows = append(rows, row)
	}
	return rows, skipped
}
