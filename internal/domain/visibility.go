package domain

import (
	"time"

	"github.com/google/uuid"
)

// PeriodType is the granularity of a visibility metric
type PeriodType string

const (
	PeriodDaily   PeriodType = "daily"
	PeriodWeekly  PeriodType = "weekly"
	PeriodMonthly PeriodType = "monthly"
)

// IsValid returns true if p is a known period type
func (p PeriodType) IsValid() bool {
	switch p {
	case PeriodDaily, PeriodWeekly, PeriodMonthly:
		return true
	}
	return false
}

// OrganicPresence counts keywords per rank band. Bands overlap.
type OrganicPresence struct {
	Top3Count  int `json:"top3_count"`
	Top10Count int `json:"top10_count"`
	Top20Count int `json:"top20_count"`
}

// MapPackVisibility is the share of tracked keywords that show the business in the map pack
type MapPackVisibility struct {
	MapPackAppearances   int     `json:"map_pack_appearances"`
	TotalTrackedKeywords int     `json:"total_tracked_keywords"`
	MapPackVisibility    float64 `json:"map_pack_visibility"`
}

// ShareOfVoiceEntry is one keyword's contribution to share of voice
type ShareOfVoiceEntry struct {
	KeywordID    uuid.UUID `json:"keyword_id"`
	Keyword      string    `json:"keyword"`
	SearchVolume int       `json:"search_volume"`
	Position     *int      `json:"position,omitempty"`
	CTR          float64   `json:"ctr"`
	WeightedCTR  float64   `json:"weighted_ctr"`
}

// ShareOfVoice is the CTR-weighted visibility score of a business
type ShareOfVoice struct {
	ShareOfVoice float64             `json:"share_of_voice"`
	Breakdown    []ShareOfVoiceEntry `json:"breakdown"`
}

// SerpFeatures counts SERP feature trigger events
type SerpFeatures = SerpFeatureStats

// MetricKey identifies one stored visibility metric
type MetricKey struct {
	BusinessID  uuid.UUID
	LocationID  *uuid.UUID
	PeriodType  PeriodType
	PeriodStart time.Time
	PeriodEnd   time.Time
}

// VisibilityMetric is the consolidated visibility record per business, location and period
type VisibilityMetric struct {
	ID                   int64      `json:"id"`
	BusinessID           uuid.UUID  `json:"business_id"`
	LocationID           *uuid.UUID `json:"location_id,omitempty"`
	PeriodType           PeriodType `json:"period_type"`
	PeriodStart          time.Time  `json:"period_start"`
	PeriodEnd            time.Time  `json:"period_end"`
	MapPackAppearances   int        `json:"map_pack_appearances"`
	TotalTrackedKeywords int        `json:"total_tracked_keywords"`
	MapPackVisibility    float64    `json:"map_pack_visibility"`
	Top3Count            int        `json:"top3_count"`
	Top10Count           int        `json:"top10_count"`
	Top20Count           int        `json:"top20_count"`
	ShareOfVoice         float64    `json:"share_of_voice"`
	FeaturedSnippetCount int        `json:"featured_snippet_count"`
	LocalPackCount       int        `json:"local_pack_count"`
	ComputedAt           time.Time  `json:"computed_at"`
}

// Key returns the upsert key of the metric
func (m *VisibilityMetric) Key() MetricKey {
	return MetricKey{
		BusinessID:  m.BusinessID,
		LocationID:  m.LocationID,
		PeriodType:  m.PeriodType,
		PeriodStart: m.PeriodStart,
		PeriodEnd:   m.PeriodEnd,
	}
}

// MetricListParams are parameters for listing stored metrics
type MetricListParams struct {
	BusinessID uuid.UUID
	LocationID *uuid.UUID
	PeriodType *PeriodType
	Limit      int
}

// BusinessOutcome is the result of one business in a batch run
type BusinessOutcome struct {
	BusinessID uuid.UUID     `json:"business_id"`
	LocationID *uuid.UUID    `json:"location_id,omitempty"`
	Error      string        `json:"error,omitempty"`
	Duration   time.Duration `json:"duration_ns"`
}

// Succeeded returns true if the computation finished without error
func (o BusinessOutcome) Succeeded() bool {
	return o.Error == ""
}

// BatchReport summarizes a batch computation across businesses
type BatchReport struct {
	PeriodType  PeriodType        `json:"period_type"`
	PeriodStart time.Time         `json:"period_start"`
	PeriodEnd   time.Time         `json:"period_end"`
	Total       int               `json:"total"`
	Succeeded   int               `json:"succeeded"`
	Failed      int               `json:"failed"`
	Outcomes    []BusinessOutcome `json:"outcomes"`
	StartedAt   time.Time         `json:"started_at"`
	FinishedAt  time.Time         `json:"finished_at"`
}
