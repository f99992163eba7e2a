package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/sadewadee/marketing-engine/internal/domain"
)

// VisibilityMetricRepository implements domain.VisibilityMetricRepository for PostgreSQL
type VisibilityMetricRepository struct {
	db *sql.DB
}

// NewVisibilityMetricRepository creates a new VisibilityMetricRepository
func NewVisibilityMetricRepository(db *sql.DB) *VisibilityMetricRepository {
	return &VisibilityMetricRepository{db: db}
}

const metricColumns = `
	id, business_id, location_id, period_type, period_start, period_end,
	map_pack_appearances, total_tracked_keywords, map_pack_visibility,
	top3_count, top10_count, top20_count, share_of_voice,
	featured_snippet_count, local_pack_count, computed_at`

// locationKey maps a nil location to the zero UUID used by the unique index
func locationKey(id *uuid.UUID) uuid.UUID {
	if id == nil {
		return uuid.Nil
	}
	return *id
}

// Upsert creates or updates the metric for (business, location, period)
func (r *VisibilityMetricRepository) Upsert(ctx context.Context, m *domain.VisibilityMetric) error {
	query := `
		INSERT INTO visibility_metrics (
			business_id, location_id, location_key, period_type, period_start, period_end,
			map_pack_appearances, total_tracked_keywords, map_pack_visibility,
			top3_count, top10_count, top20_count, share_of_voice,
			featured_snippet_count, local_pack_count, computed_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		ON CONFLICT (business_id, location_key, period_type, period_start, period_end) DO UPDATE SET
			map_pack_appearances = EXCLUDED.map_pack_appearances,
			total_tracked_keywords = EXCLUDED.total_tracked_keywords,
			map_pack_visibility = EXCLUDED.map_pack_visibility,
			top3_count = EXCLUDED.top3_count,
			top10_count = EXCLUDED.top10_count,
			top20_count = EXCLUDED.top20_count,
			share_of_voice = EXCLUDED.share_of_voice,
			featured_snippet_count = EXCLUDED.featured_snippet_count,
			local_pack_count = EXCLUDED.local_pack_count,
			computed_at = EXCLUDED.computed_at
		RETURNING id
	`

	err := r.db.QueryRowContext(ctx, query,
		m.BusinessID, m.LocationID, locationKey(m.LocationID), string(m.PeriodType), m.PeriodStart, m.PeriodEnd,
		m.MapPackAppearances, m.TotalTrackedKeywords, m.MapPackVisibility,
		m.Top3Count, m.Top10Count, m.Top20Count, m.ShareOfVoice,
		m.FeaturedSnippetCount, m.LocalPackCount, m.ComputedAt,
	).Scan(&m.ID)
	if err != nil {
		return fmt.Errorf("upsert visibility metric: %w", err)
	}
	return nil
}

// Get retrieves a metric by key
func (r *VisibilityMetricRepository) Get(ctx context.Context, key domain.MetricKey) (*domain.VisibilityMetric, error) {
	query := `SELECT ` + metricColumns + `
		FROM visibility_metrics
		WHERE business_id = $1 AND location_key = $2 AND period_type = $3
		  AND period_start = $4 AND period_end = $5
	`

	row := r.db.QueryRowContext(ctx, query,
		key.BusinessID, locationKey(key.LocationID), string(key.PeriodType), key.PeriodStart, key.PeriodEnd)

	m, err := scanMetric(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get visibility metric: %w", err)
	}
	return m, nil
}

// ListByBusiness retrieves metrics for a business, newest period first
func (r *VisibilityMetricRepository) ListByBusiness(ctx context.Context, params domain.MetricListParams) ([]*domain.VisibilityMetric, error) {
	query := `SELECT ` + metricColumns + `
		FROM visibility_metrics
		WHERE business_id = $1
		  AND ($2::uuid IS NULL OR location_key = $2::uuid)
		  AND ($3::text IS NULL OR period_type = $3::text)
		ORDER BY period_start DESC, id DESC
		LIMIT $4
	`

	var period *string
	if params.PeriodType != nil {
		p := string(*params.PeriodType)
		period = &p
	}

	rows, err := r.db.QueryContext(ctx, query, params.BusinessID, params.LocationID, period, params.Limit)
	if err != nil {
		return nil, fmt.Errorf("list visibility metrics: %w", err)
	}
	defer rows.Close()

	var out []*domain.VisibilityMetric
	for rows.Next() {
		m, err := scanMetric(rows)
		if err != nil {
			return nil, fmt.Errorf("scan visibility metric: %w", err)
		}
		out = append(out, m)
	}

	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanMetric(row rowScanner) (*domain.VisibilityMetric, error) {
	m := &domain.VisibilityMetric{}
	var period string

	err := row.Scan(
		&m.ID, &m.BusinessID, &m.LocationID, &period, &m.PeriodStart, &m.PeriodEnd,
		&m.MapPackAppearances, &m.TotalTrackedKeywords, &m.MapPackVisibility,
		&m.Top3Count, &m.Top10Count, &m.Top20Count, &m.ShareOfVoice,
		&m.FeaturedSnippetCount, &m.LocalPackCount, &m.ComputedAt,
	)
	if err != nil {
		return nil, err
	}

	m.PeriodType = domain.PeriodType(period)
	return m, nil
}
