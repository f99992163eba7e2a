package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/sadewadee/marketing-engine/internal/domain"
)

// KeywordRepository implements domain.KeywordRepository for PostgreSQL
type KeywordRepository struct {
	db *sql.DB
}

// NewKeywordRepository creates a new KeywordRepository
func NewKeywordRepository(db *sql.DB) *KeywordRepository {
	return &KeywordRepository{db: db}
}

const keywordColumns = `id, business_id, location_id, text, search_volume, status, created_at`

// ListActive retrieves active keywords for a business, optionally for one location
func (r *KeywordRepository) ListActive(ctx context.Context, businessID uuid.UUID, locationID *uuid.UUID) ([]domain.Keyword, error) {
	active := domain.KeywordStatusActive
	return r.Find(ctx, domain.KeywordFilter{BusinessID: businessID, LocationID: locationID, Status: &active})
}

// Find retrieves keywords matching the filter
func (r *KeywordRepository) Find(ctx context.Context, filter domain.KeywordFilter) ([]domain.Keyword, error) {
	conds := []string{"business_id = $1"}
	args := []interface{}{filter.BusinessID}

	if filter.LocationID != nil {
		args = append(args, *filter.LocationID)
		conds = append(conds, fmt.Sprintf("location_id = $%d", len(args)))
	}
	if filter.Status != nil {
		args = append(args, string(*filter.Status))
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.MinSearchVolume > 0 {
		args = append(args, filter.MinSearchVolume)
		conds = append(conds, fmt.Sprintf("search_volume >= $%d", len(args)))
	}

	query := `SELECT ` + keywordColumns + ` FROM keywords WHERE ` +
		strings.Join(conds, " AND ") + ` ORDER BY text, id`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query keywords: %w", err)
	}
	defer rows.Close()

	var out []domain.Keyword
	for rows.Next() {
		var k domain.Keyword
		var status string
		if err := rows.Scan(&k.ID, &k.BusinessID, &k.LocationID, &k.Text, &k.SearchVolume, &status, &k.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan keyword: %w", err)
		}
		k.Status = domain.KeywordStatus(status)
		out = append(out, k)
	}

	return out, rows.Err()
}
