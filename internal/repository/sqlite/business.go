package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/sadewadee/marketing-engine/internal/domain"
)

// BusinessRepository implements domain.BusinessRepository for SQLite
type BusinessRepository struct {
	db *sql.DB
}

// NewBusinessRepository creates a new BusinessRepository
func NewBusinessRepository(db *sql.DB) *BusinessRepository {
	return &BusinessRepository{db: db}
}

// ListActive retrieves active businesses with their active locations
func (r *BusinessRepository) ListActive(ctx context.Context) ([]domain.BusinessRef, error) {
	query := `
		SELECT b.id, b.name, l.id
		FROM businesses b
		LEFT JOIN locations l ON l.business_id = b.id AND l.status = 'active'
		WHERE b.status = 'active'
		ORDER BY b.created_at, b.id, l.created_at, l.id
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query businesses: %w", err)
	}
	defer rows.Close()

	var out []domain.BusinessRef
	index := map[uuid.UUID]int{}

	for rows.Next() {
		var (
			id         uuid.UUID
			name       string
			locationID *uuid.UUID
		)
		if err := rows.Scan(&id, &name, &locationID); err != nil {
			return nil, fmt.Errorf("scan business: %w", err)
		}

		i, ok := index[id]
		if !ok {
			i = len(out)
			index[id] = i
			out = append(out, domain.BusinessRef{ID: id, Name: name})
		}
		if locationID != nil {
			out[i].LocationIDs = append(out[i].LocationIDs, *locationID)
		}
	}

	return out, rows.Err()
}
