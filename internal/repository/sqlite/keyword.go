package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/sadewadee/marketing-engine/internal/domain"
)

// KeywordRepository implements domain.KeywordRepository for SQLite
type KeywordRepository struct {
	db *sql.DB
}

// NewKeywordRepository creates a new KeywordRepository
func NewKeywordRepository(db *sql.DB) *KeywordRepository {
	return &KeywordRepository{db: db}
}

// ListActive retrieves active keywords for a business, optionally for one location
func (r *KeywordRepository) ListActive(ctx context.Context, businessID uuid.UUID, locationID *uuid.UUID) ([]domain.Keyword, error) {
	active := domain.KeywordStatusActive
	return r.Find(ctx, domain.KeywordFilter{BusinessID: businessID, LocationID: locationID, Status: &active})
}

// Find retrieves keywords matching the filter
func (r *KeywordRepository) Find(ctx context.Context, filter domain.KeywordFilter) ([]domain.Keyword, error) {
	conds := []string{"business_id = ?"}
	args := []interface{}{filter.BusinessID.String()}

	if filter.LocationID != nil {
		conds = append(conds, "location_id = ?")
		args = append(args, filter.LocationID.String())
	}
	if filter.Status != nil {
		conds = append(conds, "status = ?")
		args = append(args, string(*filter.Status))
	}
	if filter.MinSearchVolume > 0 {
		conds = append(conds, "search_volume >= ?")
		args = append(args, filter.MinSearchVolume)
	}

	query := `SELECT id, business_id, location_id, text, search_volume, status, created_at
		FROM keywords WHERE ` + strings.Join(conds, " AND ") + ` ORDER BY text, id`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query keywords: %w", err)
	}
	defer rows.Close()

	var out []domain.Keyword
	for rows.Next() {
		var (
			k         domain.Keyword
			status    string
			createdAt string
		)
		if err := rows.Scan(&k.ID, &k.BusinessID, &k.LocationID, &k.Text, &k.SearchVolume, &status, &createdAt); err != nil {
			return nil, fmt.Errorf("scan keyword: %w", err)
		}
		k.Status = domain.KeywordStatus(status)
		if k.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		out = append(out, k)
	}

	return out, rows.Err()
}
