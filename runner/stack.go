package runner

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/sadewadee/marketing-engine/internal/cache"
	"github.com/sadewadee/marketing-engine/internal/domain"
	"github.com/sadewadee/marketing-engine/internal/metrics"
	"github.com/sadewadee/marketing-engine/internal/migration"
	"github.com/sadewadee/marketing-engine/internal/repository/postgres"
	"github.com/sadewadee/marketing-engine/internal/repository/sqlite"
	"github.com/sadewadee/marketing-engine/internal/service"
)

const memoryCacheSweep = time.Minute

// Repositories is the storage backend the services run against
type Repositories struct {
	Businesses domain.BusinessRepository
	Keywords   domain.KeywordRepository
	Ranks      domain.KeywordRankRepository
	Metrics    domain.VisibilityMetricRepository
}

// OpenDatabase connects to PostgreSQL or SQLite depending on the DSN
func OpenDatabase(ctx context.Context, cfg *Config, logger *zap.Logger) (*sql.DB, migration.Dialect, error) {
	if cfg.IsPostgres() {
		db, err := postgres.OpenConnection(ctx, cfg.DatabaseURL, postgres.DefaultPoolConfig())
		if err != nil {
			return nil, "", fmt.Errorf("failed to connect to database: %w", err)
		}
		return db, migration.DialectPostgres, nil
	}

	db, err := sqlite.OpenConnection(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		return nil, "", fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, migration.DialectSQLite, nil
}

// NewRepositories builds the repositories for the dialect
func NewRepositories(db *sql.DB, dialect migration.Dialect) *Repositories {
	if dialect == migration.DialectPostgres {
		repos := postgres.NewRepositories(db)
		return &Repositories{
			Businesses: repos.Businesses,
			Keywords:   repos.Keywords,
			Ranks:      repos.Ranks,
			Metrics:    repos.Metrics,
		}
	}

	repos := sqlite.NewRepositories(db)
	return &Repositories{
		Businesses: repos.Businesses,
		Keywords:   repos.Keywords,
		Ranks:      repos.Ranks,
		Metrics:    repos.Metrics,
	}
}

// Stack holds the database, cache and services shared by the long-running
// commands
type Stack struct {
	DB         *sql.DB
	Dialect    migration.Dialect
	Repos      *Repositories
	Cache      cache.Cache
	Redis      *cache.RedisCache
	Stats      *metrics.Metrics
	Visibility *service.VisibilityService
	Batch      *service.BatchRunner
	Logger     *zap.Logger
}

// NewStack opens the database, applies pending migrations and builds the
// visibility services. A Redis cache is used when Redis is configured,
// otherwise an in-process cache.
func NewStack(ctx context.Context, cfg *Config, logger *zap.Logger) (*Stack, error) {
	db, dialect, err := OpenDatabase(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	// sqlite.OpenConnection has already migrated
	if dialect == migration.DialectPostgres {
		if err := migration.AutoMigrate(ctx, db, dialect, logger); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	st := &Stack{
		DB:      db,
		Dialect: dialect,
		Repos:   NewRepositories(db, dialect),
		Stats:   metrics.New(),
		Logger:  logger,
	}

	if cfg.HasRedis() {
		rc, err := cache.NewRedisCache(ctx, cache.Config{
			URL:      cfg.RedisURL,
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPass,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		st.Redis = rc
		st.Cache = rc
		logger.Info("using redis cache")
	} else {
		st.Cache = cache.NewMemoryCache(memoryCacheSweep)
		logger.Info("using in-memory cache")
	}

	st.Visibility = service.NewVisibilityService(
		st.Repos.Keywords,
		st.Repos.Ranks,
		st.Repos.Metrics,
		st.Cache,
		logger,
		st.Stats,
	)

	st.Batch = service.NewBatchRunner(
		st.Repos.Businesses,
		st.Visibility,
		service.BatchConfig{
			Concurrency:     cfg.BatchConcurrency,
			BusinessTimeout: cfg.BusinessTimeout,
		},
		logger,
		st.Stats,
	)

	return st, nil
}

// Close releases the cache and the database
func (s *Stack) Close() error {
	var errs []error

	if s.Cache != nil {
		errs = append(errs, s.Cache.Close())
	}

	if s.DB != nil {
		errs = append(errs, s.DB.Close())
	}

	return errors.Join(errs...)
}
