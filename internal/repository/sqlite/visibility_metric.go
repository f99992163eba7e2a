package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/sadewadee/marketing-engine/internal/domain"
)

// VisibilityMetricRepository implements domain.VisibilityMetricRepository for SQLite
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

func locationKey(id *uuid.UUID) string {
	if id == nil {
		return uuid.Nil.String()
	}
	return id.String()
}

func nullableUUID(id *uuid.UUID) interface{} {
	if id == nil {
		return nil
	}
	return id.String()
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
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (business_id, location_key, period_type, period_start, period_end) DO UPDATE SET
			map_pack_appearances = excluded.map_pack_appearances,
			total_tracked_keywords = excluded.total_tracked_keywords,
			map_pack_visibility = excluded.map_pack_visibility,
			top3_count = excluded.top3_count,
			top10_count = excluded.top10_count,
			top20_count = excluded.top20_count,
			share_of_voice = excluded.share_of_voice,
			featured_snippet_count = excluded.featured_snippet_count,
			local_pack_count = excluded.local_pack_count,
			computed_at = excluded.computed_at
		RETURNING id
	`

	err := r.db.QueryRowContext(ctx, query,
		m.BusinessID.String(), nullableUUID(m.LocationID), locationKey(m.LocationID), string(m.PeriodType),
		formatTime(m.PeriodStart), formatTime(m.PeriodEnd),
		m.MapPackAppearances, m.TotalTrackedKeywords, m.MapPackVisibility,
		m.Top3Count, m.Top10Count, m.Top20Count, m.ShareOfVoice,
		m.FeaturedSnippetCount, m.LocalPackCount, formatTime(m.ComputedAt),
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
		WHERE business_id = ? AND location_key = ? AND period_type = ?
		  AND period_start = ? AND period_end = ?
	`

	row := r.db.QueryRowContext(ctx, query,
		key.BusinessID.String(), locationKey(key.LocationID), string(key.PeriodType),
		formatTime(key.PeriodStart), formatTime(key.PeriodEnd))

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
	conds := []string{"business_id = ?"}
	args := []interface{}{params.BusinessID.String()}

	if params.LocationID != nil {
		conds = append(conds, "location_key = ?")
		args = append(args, params.LocationID.String())
	}
	if params.PeriodType != nil {
		conds = append(conds, "period_type = ?")
		args = append(args, string(*params.PeriodType))
	}

	query := `SELECT ` + metricColumns + ` FROM visibility_metrics WHERE ` +
		strings.Join(conds, " AND ") + ` ORDER BY period_start DESC, id DESC`
	if params.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, params.Limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
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
	var (
		m                              domain.VisibilityMetric
		period, start, end, computedAt string
	)

	err := row.Scan(
		&m.ID, &m.BusinessID, &m.LocationID, &period, &start, &end,
		&m.MapPackAppearances, &m.TotalTrackedKeywords, &m.MapPackVisibility,
		&m.Top3Count, &m.Top10Count, &m.Top20Count, &m.ShareOfVoice,
		&m.FeaturedSnippetCount, &m.LocalPackCount, &computedAt,
	)
	if err != nil {
		return nil, err
	}

	m.PeriodType = domain.PeriodType(period)
	if m.PeriodStart, err = parseTime(start); err != nil {
		return nil, err
	}
	if m.PeriodEnd, err = parseTime(end); err != nil {
		return nil, err
	}
	if m.ComputedAt, err = parseTime(computedAt); err != nil {
		return nil, err
	}
	return &m, nil
}
