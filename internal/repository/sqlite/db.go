package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/sadewadee/marketing-engine/internal/migration"
)

// timeLayout is fixed-width so stored timestamps compare lexically
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// OpenConnection opens a SQLite connection and applies pending migrations
func OpenConnection(ctx context.Context, dsn string, logger *zap.Logger) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Connection-scoped pragmas only hold with a single connection.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", p, err)
		}
	}

	if err := migration.AutoMigrate(ctx, db, migration.DialectSQLite, logger); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse time %q: %w", s, err)
	}
	return t.UTC(), nil
}

// inClause expands ids into "?,?,?" with matching args
func inClause(ids []uuid.UUID) (string, []interface{}) {
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id.String()
	}
	return strings.TrimSuffix(strings.Repeat("?,", len(ids)), ","), args
}

// Repositories holds all repository instances
type Repositories struct {
	Businesses *BusinessRepository
	Keywords   *KeywordRepository
	Ranks      *KeywordRankRepository
	Metrics    *VisibilityMetricRepository
}

// NewRepositories creates all repositories
func NewRepositories(db *sql.DB) *Repositories {
	return &Repositories{
		Businesses: NewBusinessRepository(db),
		Keywords:   NewKeywordRepository(db),
		Ranks:      NewKeywordRankRepository(db),
		Metrics:    NewVisibilityMetricRepository(db),
	}
}
