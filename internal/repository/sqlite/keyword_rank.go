package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/sadewadee/marketing-engine/internal/domain"
)

// KeywordRankRepository implements domain.KeywordRankRepository for SQLite
type KeywordRankRepository struct {
	db *sql.DB
}

// NewKeywordRankRepository creates a new KeywordRankRepository
func NewKeywordRankRepository(db *sql.DB) *KeywordRankRepository {
	return &KeywordRankRepository{db: db}
}

func (r *KeywordRankRepository) count(ctx context.Context, query string, args ...interface{}) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// CountMapPackPresence counts distinct keywords seen in the map pack within the window
func (r *KeywordRankRepository) CountMapPackPresence(ctx context.Context, keywordIDs []uuid.UUID, start, end time.Time) (int, error) {
	if len(keywordIDs) == 0 {
		return 0, nil
	}

	in, args := inClause(keywordIDs)
	query := `
		SELECT COUNT(DISTINCT keyword_id)
		FROM keyword_ranks
		WHERE keyword_id IN (` + in + `)
		  AND in_map_pack = 1
		  AND captured_at >= ? AND captured_at < ?
	`

	n, err := r.count(ctx, query, append(args, formatTime(start), formatTime(end))...)
	if err != nil {
		return 0, fmt.Errorf("count map pack presence: %w", err)
	}
	return n, nil
}

// CountByPositionRange counts distinct keywords ranked within [minPos, maxPos] in the window
func (r *KeywordRankRepository) CountByPositionRange(ctx context.Context, keywordIDs []uuid.UUID, minPos, maxPos int, start, end time.Time) (int, error) {
	if len(keywordIDs) == 0 {
		return 0, nil
	}

	in, args := inClause(keywordIDs)
	query := `
		SELECT COUNT(DISTINCT keyword_id)
		FROM keyword_ranks
		WHERE keyword_id IN (` + in + `)
		  AND rank_position BETWEEN ? AND ?
		  AND captured_at >= ? AND captured_at < ?
	`

	n, err := r.count(ctx, query, append(args, minPos, maxPos, formatTime(start), formatTime(end))...)
	if err != nil {
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

	in, args := inClause(keywordIDs)
	query := `
		SELECT
			COALESCE(SUM(has_featured_snippet), 0),
			COALESCE(SUM(has_local_pack), 0)
		FROM keyword_ranks
		WHERE keyword_id IN (` + in + `)
		  AND captured_at >= ? AND captured_at < ?
	`

	err := r.db.QueryRowContext(ctx, query, append(args, formatTime(start), formatTime(end))...).
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

	in, args := inClause(keywordIDs)
	query := `
		SELECT id, keyword_id, rank_position, in_map_pack, has_featured_snippet, has_local_pack, captured_at
		FROM (
			SELECT kr.*, ROW_NUMBER() OVER (
				PARTITION BY keyword_id ORDER BY captured_at DESC, id DESC
			) AS rn
			FROM keyword_ranks kr
			WHERE keyword_id IN (` + in + `)
			  AND captured_at < ?
		)
		WHERE rn = 1
	`

	rows, err := r.db.QueryContext(ctx, query, append(args, formatTime(asOf))...)
	if err != nil {
		return nil, fmt.Errorf("query latest ranks: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			rank       domain.KeywordRank
			position   sql.NullInt64
			capturedAt string
		)
		if err := rows.Scan(&rank.ID, &rank.KeywordID, &position, &rank.InMapPack,
			&rank.HasFeaturedSnippet, &rank.HasLocalPack, &capturedAt); err != nil {
			return nil, fmt.Errorf("scan latest rank: %w", err)
		}
		if position.Valid {
			p := int(position.Int64)
			rank.RankPosition = &p
		}
		if rank.CapturedAt, err = parseTime(capturedAt); err != nil {
			return nil, err
		}
		out[rank.KeywordID] = rank
	}

	return out, rows.Err()
}
