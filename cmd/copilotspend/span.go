package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/janekbaraniewski/copilotspend/internal/core"
)

const maxSpanDays = 366

// resolveSpan picks since/until when both are given and otherwise resolves
// the range preset against now.
func resolveSpan(since, until, preset string, now time.Time) (core.DateRange, error) {
	since, until = strings.TrimSpace(since), strings.TrimSpace(until)
	var span core.DateRange
	switch {
	case since != "" || until != "":
		if since == "" || until == "" {
			return core.DateRange{}, fmt.Errorf("--since and --until must be given together")
		}
		if !core.ValidDay(since) || !core.ValidDay(until) {
			return core.DateRange{}, fmt.Errorf("dates must be YYYY-MM-DD, got %q..%q", since, until)
		}
		span = core.DateRange{Since: since, Until: until}.Clamp()
	default:
		span = core.ParseRangePreset(strings.TrimSpace(preset)).Range(now)
	}

	if n := span.Len(); n > maxSpanDays {
		return core.DateRange{}, fmt.Errorf("span covers %d days, at most %d allowed", n, maxSpanDays)
	}
	return span, nil
}

func parseMode(raw string) (core.ViewMode, error) {
	mode, ok := core.ParseViewMode(raw)
	if !ok {
		return "", fmt.Errorf("unknown mode %q (want cost or requests)", raw)
	}
	return mode, nil
}
