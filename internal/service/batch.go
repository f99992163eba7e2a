package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sadewadee/marketing-engine/internal/domain"
	"github.com/sadewadee/marketing-engine/internal/metrics"
)

// Batch defaults
const (
	DefaultBatchConcurrency = 4
	DefaultBusinessTimeout  = 30 * time.Second
)

// MetricsComputer computes and stores the metrics of one business and location
type MetricsComputer interface {
	ComputeAllMetrics(ctx context.Context, businessID uuid.UUID, locationID *uuid.UUID,
		periodType domain.PeriodType, start, end time.Time) (*domain.VisibilityMetric, error)
}

// BatchConfig bounds a batch run
type BatchConfig struct {
	// Concurrency is the number of businesses computed at once
	Concurrency int
	// BusinessTimeout caps a single business and location computation
	BusinessTimeout time.Duration
}

// BatchRunner computes visibility metrics across every active business
type BatchRunner struct {
	businesses domain.BusinessRepository
	computer   MetricsComputer
	cfg        BatchConfig
	logger     *zap.Logger
	stats      *metrics.Metrics
}

// NewBatchRunner creates a new BatchRunner, filling zero config values with defaults
func NewBatchRunner(
	businesses domain.BusinessRepository,
	computer MetricsComputer,
	cfg BatchConfig,
	logger *zap.Logger,
	stats *metrics.Metrics,
) *BatchRunner {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultBatchConcurrency
	}
	if cfg.BusinessTimeout <= 0 {
		cfg.BusinessTimeout = DefaultBusinessTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &BatchRunner{
		businesses: businesses,
		computer:   computer,
		cfg:        cfg,
		logger:     logger.Named("batch"),
		stats:      stats,
	}
}

// Target is one business and location pair of a batch run. A nil
// LocationID means the business as a whole.
type Target struct {
	BusinessID uuid.UUID
	LocationID *uuid.UUID
}

// Targets expands businesses into one business-wide target plus one per location
func Targets(businesses []domain.BusinessRef) []Target {
	var out []Target
	for _, b := range businesses {
		out = append(out, Target{BusinessID: b.ID})
		for _, loc := range b.LocationIDs {
			out = append(out, Target{BusinessID: b.ID, LocationID: &loc})
		}
	}
	return out
}

// ComputeForAllBusinesses runs ComputeAllMetrics for every active business
// and location. Failures are isolated per target: they are logged, counted
// and reported, and never cancel sibling computations. The returned error is
// non-nil only when the business list cannot be loaded.
func (r *BatchRunner) ComputeForAllBusinesses(
	ctx context.Context,
	periodType domain.PeriodType,
	start, end time.Time,
) (*domain.BatchReport, error) {
	report := &domain.BatchReport{
		PeriodType:  periodType,
		PeriodStart: start,
		PeriodEnd:   end,
		StartedAt:   time.Now().UTC(),
	}

	businesses, err := r.businesses.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list active businesses: %w", err)
	}

	targets := Targets(businesses)
	report.Outcomes = make([]domain.BusinessOutcome, len(targets))

	r.logger.Info("batch visibility run started",
		zap.String("period_type", string(periodType)),
		zap.Time("period_start", start),
		zap.Time("period_end", end),
		zap.Int("businesses", len(businesses)),
		zap.Int("targets", len(targets)),
		zap.Int("concurrency", r.cfg.Concurrency),
	)

	var g errgroup.Group
	g.SetLimit(r.cfg.Concurrency)

	for i, t := range targets {
		g.Go(func() error {
			report.Outcomes[i] = r.computeOne(ctx, t, periodType, start, end)
			return nil
		})
	}
	_ = g.Wait()

	for _, o := range report.Outcomes {
		if o.Succeeded() {
			report.Succeeded++
		} else {
			report.Failed++
		}
	}
	report.Total = len(targets)
	report.FinishedAt = time.Now().UTC()

	r.logger.Info("batch visibility run finished",
		zap.Int("total", report.Total),
		zap.Int("succeeded", report.Succeeded),
		zap.Int("failed", report.Failed),
		zap.Duration("took", report.FinishedAt.Sub(report.StartedAt)),
	)

	return report, nil
}

func (r *BatchRunner) computeOne(
	ctx context.Context,
	t Target,
	periodType domain.PeriodType,
	start, end time.Time,
) (out domain.BusinessOutcome) {
	out = domain.BusinessOutcome{BusinessID: t.BusinessID, LocationID: t.LocationID}
	began := time.Now()

	defer func() {
		if p := recover(); p != nil {
			out.Error = fmt.Sprintf("panic: %v", p)
		}
		out.Duration = time.Since(began)

		if !out.Succeeded() {
			r.stats.BatchBusinessFailed()
			r.logger.Error("business visibility computation failed",
				zap.Stringer("business_id", t.BusinessID),
				zap.String("location_id", locationString(t.LocationID)),
				zap.String("err", out.Error),
			)
		}
	}()

	tctx, cancel := context.WithTimeout(ctx, r.cfg.BusinessTimeout)
	defer cancel()

	if _, err := r.computer.ComputeAllMetrics(tctx, t.BusinessID, t.LocationID, periodType, start, end); err != nil {
		out.Error = err.Error()
	}

	return out
}

// PeriodWindow returns the most recent complete period before now as a
// half-open UTC window. Weeks start on Monday.
func PeriodWindow(periodType domain.PeriodType, now time.Time) (start, end time.Time, err error) {
	now = now.UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	switch periodType {
	case domain.PeriodDaily:
		return today.AddDate(0, 0, -1), today, nil
	case domain.PeriodWeekly:
		sinceMonday := (int(today.Weekday()) + 6) % 7
		end = today.AddDate(0, 0, -sinceMonday)
		return end.AddDate(0, 0, -7), end, nil
	case domain.PeriodMonthly:
		end = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
		return end.AddDate(0, -1, 0), end, nil
	}

	return time.Time{}, time.Time{}, fmt.Errorf("%w: unknown period type %q", ErrInvalidPeriod, periodType)
}
