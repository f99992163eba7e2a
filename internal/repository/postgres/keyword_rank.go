package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/sadewadee/marketing-engine/internal/domain"
)

// KeywordRankRepository implements domain.KeywordRankRepository for PostgreSQL
type KeywordRankRepository struct {
	db *sql.DB
}

// NewKeywordRankRepository creates a new KeywordRankRepository
func NewKeywordRankRepository(db *sql.DB) *KeywordRankRepository {
	return &KeywordRankRepository{db: db}
}

// CountMapPackPresence counts distinct keywords seen in the map pack within the window
func (r *KeywordRankRepository) CountMapPackPresence(ctx context.Context, keywordIDs []uuid.UUID, start, end time.Time) (int, error) {
	if len(keywordIDs) == 0 {
		return 0, nil
	}

	query := `
		SELECT COUNT(DISTINCT keyword_id)
		FROM keyword_ranks
		WHERE keyword_id = ANY($1::uuid[])
		  AND in_map_pack
		  AND captured_at >= $2 AND captured_at < $3
	`

	var n int
	if err := r.db.QueryRowContext(ctx, query, uuidArray(keywordIDs), start, end).Scan(&n); err != nil {
		return 0, fmt.Errorf("count map pack presence: %w", err)
	}
	return n, nil
}

// CountByPositionRange counts distinct keywords ranked within [minPos, maxPos] in the window
func (r *KeywordRankRepository) CountByPositionRange(ctx context.Context, keywordIDs []uuid.UUID, minPos, maxPos int, start, end time.Time) (int, error) {
	if len(keywordIDs) == 0 {
		return 0, nil
	}

	query := `
		SELECT COUNT(DISTINCT keyword_id)
		FROM keyword_ranks
		WHERE keyword_id = ANY($1::uuid[])
		  AND rank_position BETWEEN $2 AND $3
		  AND captured_at >= $4 AND captured_at < $5
	`

	var n int
	if err := r.db.QueryRowContext(ctx, query, uuidArray(keywordIDs), minPos, maxPos, start, end).Scan(&n); err != nil {
		return 0, fmt.Errorf("count by position range: %w", err)
	}
	return n, nil
}

// SerpFeatureStats counts flagged captures within the window
func (r *KeywordRankRepository) SerpFeatureStats(ctx context.Context, keywordIDs []uuid.UUID, start, end time.Time) (*domain.SerpFeatureStats, error) {
	stats := &domain.SerpFeatureStats{}
	if len(keywordIDs) == 0 {
		return stats, nil
	}

	query := `
		SELECT
			COUNT(*) FILTER (WHERE has_featured_snippet),
			COUNT(*) FILTER (WHERE has_local_pack)
		FROM keyword_ranks
		WHERE keyword_id = ANY($1::uuid[])
		  AND captured_at >= $2 AND captured_at < $3
	`

	err := r.db.QueryRowContext(ctx, query, uuidArray(keywordIDs), start, end).
		Scan(&stats.FeaturedSnippetCount, &stats.LocalPackCount)
	if err != nil {
		return nil, fmt.Errorf("serp feature stats: %w", err)
	}
	return stats, nil
}

// LatestRanks returns the most recent capture per keyword before asOf
func (r *KeywordRankRepository) LatestRanks(ctx context.Context, keywordIDs []uuid.UUID, asOf time.Time) (map[uuid.UUID]domain.KeywordRank, error) {
	out := make(map[uuid.UUID]domain.KeywordRank, len(keywordIDs))
	if len(keywordIDs) == 0 {
		return out, nil
	}

	query := `
		SELECT DISTINCT ON (keyword_id)
			id, keyword_id, rank_position, in_map_pack, has_featured_snippet, has_local_pack, captured_at
		FROM keyword_ranks
		WHERE keyword_id = ANY($1::uuid[])
		  AND captured_at < $2
		ORDER BY keyword_id, captured_at DESC, id DESC
	`

	rows, err := r.db.QueryContext(ctx, query, uuidArray(keywordIDs), asOf)
	if err != nil {
		return nil, fmt.Errorf("query latest ranks: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var rank domain.KeywordRank
		var position sql.NullInt64
		if err := rows.Scan(&rank.ID, &rank.KeywordID, &position, &rank.InMapPack,
			&rank.HasFeaturedSnippet, &rank.HasLocalPack, &rank.CapturedAt); err != nil {
			return nil, fmt.Errorf("scan latest rank: %w", err)
		}
		if position.Valid {
			p := int(position.Int64)
			rank.RankPosition = &p
		}
		out[rank.KeywordID] = rank
	}

	return out, rows.Err()
}
