package domain

import (
	"time"

	"github.com/google/uuid"
)

// KeywordStatus represents whether a keyword is being tracked
type KeywordStatus string

const (
	KeywordStatusActive   KeywordStatus = "active"
	KeywordStatusInactive KeywordStatus = "inactive"
)

// Keyword is a search term tracked for a business
type Keyword struct {
	ID           uuid.UUID     `json:"id"`
	BusinessID   uuid.UUID     `json:"business_id"`
	LocationID   *uuid.UUID    `json:"location_id,omitempty"`
	Text         string        `json:"text"`
	SearchVolume int           `json:"search_volume"`
	Status       KeywordStatus `json:"status"`
	CreatedAt    time.Time     `json:"created_at"`
}

// KeywordRank is a single SERP capture for a keyword
type KeywordRank struct {
	ID                 int64     `json:"id"`
	KeywordID          uuid.UUID `json:"keyword_id"`
	RankPosition       *int      `json:"rank_position,omitempty"` // nil = not ranking
	InMapPack          bool      `json:"in_map_pack"`
	HasFeaturedSnippet bool      `json:"has_featured_snippet"`
	HasLocalPack       bool      `json:"has_local_pack"`
	CapturedAt         time.Time `json:"captured_at"`
}

// KeywordFilter contains filter parameters for keyword queries
type KeywordFilter struct {
	BusinessID      uuid.UUID
	LocationID      *uuid.UUID
	Status          *KeywordStatus
	MinSearchVolume int // keywords with search_volume >= MinSearchVolume
}

// SerpFeatureStats aggregates SERP feature flags over a window
type SerpFeatureStats struct {
	FeaturedSnippetCount int `json:"featured_snippet_count"`
	LocalPackCount       int `json:"local_pack_count"`
}

// BusinessRef identifies a tenant business and its active locations
type BusinessRef struct {
	ID          uuid.UUID   `json:"id"`
	Name        string      `json:"name"`
	LocationIDs []uuid.UUID `json:"location_ids"`
}

// KeywordIDs returns the ids of the given keywords
func KeywordIDs(keywords []Keyword) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(keywords))
	for _, k := range keywords {
		ids = append(ids, k.ID)
	}
	return ids
}
