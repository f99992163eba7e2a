package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// KeywordRepository defines read access to tracked keywords
type KeywordRepository interface {
	// ListActive retrieves active keywords for a business, optionally limited to one location
	ListActive(ctx context.Context, businessID uuid.UUID, locationID *uuid.UUID) ([]Keyword, error)

	// Find retrieves keywords matching the filter, including search volume
	Find(ctx context.Context, filter KeywordFilter) ([]Keyword, error)
}

// KeywordRankRepository defines read access to SERP captures.
// Windows are half-open: start <= captured_at < end.
type KeywordRankRepository interface {
	// CountMapPackPresence counts keywords that appeared in the map pack within the window
	CountMapPackPresence(ctx context.Context, keywordIDs []uuid.UUID, start, end time.Time) (int, error)

	// CountByPositionRange counts keywords ranked within [minPos, maxPos] within the window
	CountByPositionRange(ctx context.Context, keywordIDs []uuid.UUID, minPos, maxPos int, start, end time.Time) (int, error)

	// SerpFeatureStats counts captures flagged with a featured snippet or local pack within the window
	SerpFeatureStats(ctx context.Context, keywordIDs []uuid.UUID, start, end time.Time) (*SerpFeatureStats, error)

	// LatestRanks returns the most recent capture per keyword taken before asOf.
	// Keywords without a capture are absent from the map.
	LatestRanks(ctx context.Context, keywordIDs []uuid.UUID, asOf time.Time) (map[uuid.UUID]KeywordRank, error)
}

// VisibilityMetricRepository defines persistence for computed visibility metrics
type VisibilityMetricRepository interface {
	// Upsert creates or updates the metric for (business, location, period)
	Upsert(ctx context.Context, metric *VisibilityMetric) error

	// Get retrieves a metric by key, nil if absent
	Get(ctx context.Context, key MetricKey) (*VisibilityMetric, error)

	// ListByBusiness retrieves stored metrics for a business, newest period first
	ListByBusiness(ctx context.Context, params MetricListParams) ([]*VisibilityMetric, error)
}

// BusinessRepository defines access to the tenant population
type BusinessRepository interface {
	// ListActive retrieves every active business with its active locations
	ListActive(ctx context.Context) ([]BusinessRef, error)
}
