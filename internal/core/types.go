package core

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"
)

// CategoryTotal aggregates all billing activity for one category (model)
// over one billing period.
type CategoryTotal struct {
	Category     string  `json:"category"`
	NetAmount    float64 `json:"net_amount"`
	NetUnitCount float64 `json:"net_unit_count"`
}

// ActivityRow is one user's activity in one category on one day.
type ActivityRow struct {
	Day              string  `json:"day"` // "2025-01-15"
	User             string  `json:"user"`
	Category         string  `json:"category"`
	GenerationCount  float64 `json:"generation_count"`
	AcceptanceCount  float64 `json:"acceptance_count"`
	InteractionCount float64 `json:"interaction_count"`
	TopLanguage      string  `json:"top_language,omitempty"`
	TopFeature       string  `json:"top_feature,omitempty"`
}

// SyntheticRow is a fabricated usage cell. It mirrors the billing shape
// (requests and net amount) rather than the activity shape.
type SyntheticRow struct {
	Date      string  `json:"date"`
	User      string  `json:"user"`
	Category  string  `json:"category"`
	Requests  float64 `json:"requests"`
	NetAmount float64 `json:"net_amount"`
}

// RateTable maps a category to its estimated cost per unit.
type RateTable map[string]float64

// Rate returns the rate for category, or 0 when it is unknown or unusable.
func (t RateTable) Rate(category string) float64 {
	if t == nil {
		return 0
	}
	return ClampAmount(t[category])
}

type RateInfo struct {
	Rates           RateTable `json:"rates"`
	UsedBlendedRate bool      `json:"used_blended_rate"`
	BlendedRate     float64   `json:"blended_rate"`
	CostIsEstimated bool      `json:"cost_is_estimated"`
}

// DayPoint holds one value per category for a single day. The values are
// either unit counts or projected cost, never a mix of both.
type DayPoint struct {
	Day    string
	Values map[string]float64
}

// Categories returns the point's category keys in sorted order.
func (p DayPoint) Categories() []string {
	keys := make([]string, 0, len(p.Values))
	for k := range p.Values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Total sums every category value of the point.
func (p DayPoint) Total() float64 {
	total := 0.0
	for _, k := range p.Categories() {
		total += ClampAmount(p.Values[k])
	}
	return total
}

const (
	dayPointKey        = "day"
	renamedDayCategory = "day (category)"
)

// MarshalJSON flattens the point into {"day": ..., "<category>": value}.
// "day" is reserved; normalization renames a category of that name.
func (p DayPoint) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(p.Values)+1)
	for k, v := range p.Values {
		out[k] = ClampAmount(v)
	}
	out[dayPointKey] = p.Day
	return json.Marshal(out)
}

func (p *DayPoint) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decoding day point: %w", err)
	}
	p.Day = ""
	p.Values = make(map[string]float64, len(raw))
	for k, v := range raw {
		if k == dayPointKey {
			if err := json.Unmarshal(v, &p.Day); err != nil {
				return fmt.Errorf("decoding day point day: %w", err)
			}
			continue
		}
		var n float64
		if err := json.Unmarshal(v, &n); err != nil {
			continue
		}
		p.Values[k] = ClampAmount(n)
	}
	return nil
}

type UserSeries struct {
	User              string     `json:"user"`
	Points            []DayPoint `json:"points"`
	TotalGenerated    float64    `json:"total_generated"`
	TotalAccepted     float64    `json:"total_accepted"`
	TotalInteractions float64    `json:"total_interactions"`
	AcceptRate        float64    `json:"accept_rate"` // 0..1
	TopCategory       string     `json:"top_category,omitempty"`
	TopLanguage       string     `json:"top_language,omitempty"`
	TopFeature        string     `json:"top_feature,omitempty"`
}

// ViewMode selects which representation consumers render.
type ViewMode string

const (
	ModeCost     ViewMode = "cost"
	ModeRequests ViewMode = "requests"
)

func ParseViewMode(s string) (ViewMode, bool) {
	switch ViewMode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeCost:
		return ModeCost, true
	case ModeRequests:
		return ModeRequests, true
	default:
		return ModeCost, false
	}
}

// ClampAmount maps negative and non-finite values to 0.
func ClampAmount(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}

// SafeRatio returns num/den, or 0 when den is not positive.
func SafeRatio(num, den float64) float64 {
	num = ClampAmount(num)
	den = ClampAmount(den)
	if den <= 0 {
		return 0
	}
	return ClampAmount(num / den)
}
