package copilot

import "time"

// PremiumUsage is the premium request usage report for one billing period.
type PremiumUsage struct {
	TimePeriod struct {
		Year  int `json:"year"`
		Month int `json:"month,omitempty"`
	} `json:"timePeriod"`
	Organization string             `json:"organization,omitempty"`
	User         string             `json:"user,omitempty"`
	UsageItems   []PremiumUsageItem `json:"usageItems"`
}

// UsageSummary is the org's billing usage across all products for one
// period. Items carry no model.
type UsageSummary struct {
	TimePeriod struct {
		Year  int `json:"year"`
		Month int `json:"month,omitempty"`
	} `json:"timePeriod"`
	Organization string             `json:"organization"`
	UsageItems   []PremiumUsageItem `json:"usageItems"`
}

// Org is the subset of GET /orgs/{org} the dashboard shows.
type Org struct {
	Login       string `json:"login"`
	ID          int64  `json:"id"`
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
	HTMLURL     string `json:"html_url,omitempty"`
	AvatarURL   string `json:"avatar_url,omitempty"`
	Plan        *struct {
		Name        string `json:"name"`
		Seats       int    `json:"seats"`
		FilledSeats int    `json:"filled_seats"`
	} `json:"plan,omitempty"`
}

type PremiumUsageItem struct {
	Product          string  `json:"product"`
	SKU              string  `json:"sku"`
	Model            string  `json:"model"`
	UnitType         string  `json:"unitType"`
	PricePerUnit     float64 `json:"pricePerUnit"`
	GrossQuantity    float64 `json:"grossQuantity"`
	GrossAmount      float64 `json:"grossAmount"`
	DiscountQuantity float64 `json:"discountQuantity"`
	DiscountAmount   float64 `json:"discountAmount"`
	NetQuantity      float64 `json:"netQuantity"`
	NetAmount        float64 `json:"netAmount"`
}

// PremiumRow aggregates usage items sharing a product, SKU and model.
type PremiumRow struct {
	Product          string  `json:"product"`
	SKU              string  `json:"sku"`
	Model            string  `json:"model"`
	UnitType         string  `json:"unit_type"`
	PricePerUnit     float64 `json:"price_per_unit"`
	GrossQuantity    float64 `json:"gross_quantity"`
	GrossAmount      float64 `json:"gross_amount"`
	DiscountQuantity float64 `json:"discount_quantity"`
	DiscountAmount   float64 `json:"discount_amount"`
	NetQuantity      float64 `json:"net_quantity"`
	NetAmount        float64 `json:"net_amount"`
}

type PremiumSummary struct {
	Gross         float64 `json:"gross"`
	Discount      float64 `json:"discount"`
	Net           float64 `json:"net"`
	Quantity      float64 `json:"quantity"`
	DiscountRate  float64 `json:"discount_rate"`
	Concentration float64 `json:"concentration"` // share of net spent on the top 3 rows
	NetPerRequest float64 `json:"net_per_request"`
	ModelCount    int     `json:"model_count"`
}

type seatsPage struct {
	TotalSeats int    `json:"total_seats"`
	Seats      []Seat `json:"seats"`
}

type SeatAssignee struct {
	Login     string `json:"login"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

type Seat struct {
	Assignee           *SeatAssignee `json:"assignee,omitempty"`
	PlanType           string        `json:"plan_type,omitempty"`
	LastActivityAt     string        `json:"last_activity_at,omitempty"`
	LastActivityEditor string        `json:"last_activity_editor,omitempty"`
}

// Login returns the seat holder's login, or "" for unassigned seats.
func (s Seat) Login() string {
	if s.Assignee == nil {
		return ""
	}
	return s.Assignee.Login
}

type reportMeta struct {
	DownloadLinks  []string `json:"download_links"`
	ReportStartDay string   `json:"report_start_day"`
	ReportEndDay   string   `json:"report_end_day"`
}

type reportPayload struct {
	meta reportMeta
	raw  []byte
}

// MetricsRow is one line of the users-28-day NDJSON report.
type MetricsRow struct {
	Day                           string               `json:"day"`
	UserLogin                     string               `json:"user_login"`
	UserInitiatedInteractionCount float64              `json:"user_initiated_interaction_count"`
	CodeGenerationActivityCount   float64              `json:"code_generation_activity_count"`
	CodeAcceptanceActivityCount   float64              `json:"code_acceptance_activity_count"`
	TotalsByLanguageModel         []LanguageModelTotal `json:"totals_by_language_model,omitempty"`
	TotalsByModelFeature          []ModelFeatureTotal  `json:"totals_by_model_feature,omitempty"`
}

type LanguageModelTotal struct {
	Language                    string  `json:"language"`
	Model                       string  `json:"model"`
	CodeGenerationActivityCount float64 `json:"code_generation_activity_count"`
	CodeAcceptanceActivityCount float64 `json:"code_acceptance_activity_count"`
}

type ModelFeatureTotal struct {
	Model                         string  `json:"model"`
	Feature                       string  `json:"feature"`
	UserInitiatedInteractionCount float64 `json:"user_initiated_interaction_count"`
	CodeGenerationActivityCount   float64 `json:"code_generation_activity_count"`
	CodeAcceptanceActivityCount   float64 `json:"code_acceptance_activity_count"`
}

type MetricsReport struct {
	Org            string       `json:"org"`
	ReportStartDay string       `json:"report_start_day"`
	ReportEndDay   string       `json:"report_end_day"`
	Rows           []MetricsRow `json:"rows"`
	SkippedLines   int          `json:"skipped_lines,omitempty"`
	Cached         bool         `json:"cached"`
}

type RateLimit struct {
	Limit     int       `json:"limit"`
	Remaining int       `json:"remaining"`
	Used      int       `json:"used"`
	Reset     time.Time `json:"reset,omitempty"`
}

// ghRateLimit is the response from /rate_limit.
type ghRateLimit struct {
	Resources struct {
		Core struct {
			Limit     int   `json:"limit"`
			Remaining int   `json:"remaining"`
			Reset     int64 `json:"reset"`
			Used      int   `json:"used"`
		} `json:"core"`
	} `json:"resources"`
}

type AuthStatus struct {
	OK        bool       `json:"ok"`
	User      string     `json:"user,omitempty"`
	Scopes    []string   `json:"scopes"`
	Raw       string     `json:"raw,omitempty"`
	Error     string     `json:"error,omitempty"`
	Hint      string     `json:"hint"`
	RateLimit *RateLimit `json:"rate_limit,omitempty"`
}
