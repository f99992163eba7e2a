// Package migration applies the embedded schema with goose.
package migration

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"

	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
)

//go:embed sql/postgres/*.sql sql/sqlite/*.sql
var migrationsFS embed.FS

// Dialect names a supported database
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

func (d Dialect) gooseDialect() (goose.Dialect, string, error) {
	switch d {
	case DialectPostgres:
		return goose.DialectPostgres, "sql/postgres", nil
	case DialectSQLite:
		return goose.DialectSQLite3, "sql/sqlite", nil
	}
	return "", "", fmt.Errorf("unsupported dialect %q", d)
}

// State describes how far the schema has been migrated
type State int

const (
	StateFreshInstall State = iota // no migrations applied
	StatePending                   // some migrations applied, more available
	StateUpToDate                  // every embedded migration applied
)

func (s State) String() string {
	switch s {
	case StateFreshInstall:
		return "FreshInstall"
	case StatePending:
		return "Pending"
	case StateUpToDate:
		return "UpToDate"
	default:
		return "Unknown"
	}
}

func newProvider(db *sql.DB, dialect Dialect) (*goose.Provider, error) {
	gd, dir, err := dialect.gooseDialect()
	if err != nil {
		return nil, err
	}

	sub, err := fs.Sub(migrationsFS, dir)
	if err != nil {
		return nil, fmt.Errorf("open embedded migrations: %w", err)
	}

	provider, err := goose.NewProvider(gd, db, sub)
	if err != nil {
		return nil, fmt.Errorf("create migration provider: %w", err)
	}

	return provider, nil
}

// DetectState reports how far db is behind the embedded migrations
func DetectState(ctx context.Context, db *sql.DB, dialect Dialect) (State, error) {
	provider, err := newProvider(db, dialect)
	if err != nil {
		return 0, err
	}

	statuses, err := provider.Status(ctx)
	if err != nil {
		return 0, fmt.Errorf("migration status: %w", err)
	}

	var applied int
	for _, st := range statuses {
		if st.State == goose.StateApplied {
			applied++
		}
	}

	switch {
	case applied == 0:
		return StateFreshInstall, nil
	case applied < len(statuses):
		return StatePending, nil
	default:
		return StateUpToDate, nil
	}
}

// AutoMigrate applies every pending migration
func AutoMigrate(ctx context.Context, db *sql.DB, dialect Dialect, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}

	state, err := DetectState(ctx, db, dialect)
	if err != nil {
		return fmt.Errorf("detect migration state: %w", err)
	}

	logger.Info("detected schema state", zap.Stringer("state", state), zap.String("dialect", string(dialect)))

	if state == StateUpToDate {
		return nil
	}

	provider, err := newProvider(db, dialect)
	if err != nil {
		return err
	}

	results, err := provider.Up(ctx)
	for _, r := range results {
		logger.Info("applied migration",
			zap.Int64("version", r.Source.Version),
			zap.Duration("took", r.Duration),
		)
	}
	if err != nil {
		var partial *goose.PartialError
		if errors.As(err, &partial) && partial.Failed != nil {
			return fmt.Errorf("migration %d failed: %w", partial.Failed.Source.Version, partial.Err)
		}
		return fmt.Errorf("apply migrations: %w", err)
	}

	return nil
}

// Version returns the highest applied migration version
func Version(ctx context.Context, db *sql.DB, dialect Dialect) (int64, error) {
	provider, err := newProvider(db, dialect)
	if err != nil {
		return 0, err
	}
	return provider.GetDBVersion(ctx)
}
