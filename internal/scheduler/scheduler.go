// Package scheduler periodically triggers visibility metric computation
package scheduler

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/sadewadee/marketing-engine/internal/domain"
	"github.com/sadewadee/marketing-engine/internal/service"
)

// Enqueuer hands a metrics job to a queue or message broker
type Enqueuer interface {
	Enqueue(ctx context.Context, job *domain.MetricsJob) error
}

// Claimer deduplicates jobs across schedulers
type Claimer interface {
	Claim(ctx context.Context, job *domain.MetricsJob) (bool, error)
	Release(ctx context.Context, job *domain.MetricsJob) error
}

// BatchComputer runs a full batch in-process
type BatchComputer interface {
	ComputeForAllBusinesses(ctx context.Context, periodType domain.PeriodType, start, end time.Time) (*domain.BatchReport, error)
}

// Config configures a Scheduler
type Config struct {
	Interval   time.Duration
	PeriodType domain.PeriodType
	// RunOnStart triggers one run before the first tick
	RunOnStart bool
}

// Scheduler triggers a metrics run for the previous complete period on
// every tick. With an Enqueuer it fans out one job per business and
// location; otherwise it runs the batch in-process.
type Scheduler struct {
	cfg        Config
	businesses domain.BusinessRepository
	batch      BatchComputer
	enqueuer   Enqueuer
	claimer    Claimer
	logger     *zap.Logger
	now        func() time.Time
}

// New creates a new Scheduler. enqueuer and claimer may be nil.
func New(
	cfg Config,
	businesses domain.BusinessRepository,
	batch BatchComputer,
	enqueuer Enqueuer,
	claimer Claimer,
	logger *zap.Logger,
) *Scheduler {
	if cfg.Interval <= 0 {
		cfg.Interval = 24 * time.Hour
	}
	if cfg.PeriodType == "" {
		cfg.PeriodType = domain.PeriodDaily
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Scheduler{
		cfg:        cfg,
		businesses: businesses,
		batch:      batch,
		enqueuer:   enqueuer,
		claimer:    claimer,
		logger:     logger.Named("scheduler"),
		now:        time.Now,
	}
}

// Run starts the scheduler and blocks until ctx is done
func (s *Scheduler) Run(ctx context.Context) error {
	if !s.cfg.PeriodType.IsValid() {
		return fmt.Errorf("%w: %q", service.ErrInvalidPeriod, s.cfg.PeriodType)
	}

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	s.logger.Info("scheduler started",
		zap.Duration("interval", s.cfg.Interval),
		zap.String("period_type", string(s.cfg.PeriodType)),
		zap.Bool("queued", s.enqueuer != nil),
	)

	if s.cfg.RunOnStart {
		s.tickAndLog(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return nil
		case <-ticker.C:
			s.tickAndLog(ctx)
		}
	}
}

func (s *Scheduler) tickAndLog(ctx context.Context) {
	if _, err := s.Tick(ctx); err != nil {
		s.logger.Error("scheduled run failed", zap.Error(err))
	}
}

// Tick runs once for the most recent complete period. It returns the
// number of jobs enqueued, or of targets computed when running in-process.
func (s *Scheduler) Tick(ctx context.Context) (int, error) {
	start, end, err := service.PeriodWindow(s.cfg.PeriodType, s.now())
	if err != nil {
		return 0, err
	}

	if s.enqueuer == nil {
		report, err := s.batch.ComputeForAllBusinesses(ctx, s.cfg.PeriodType, start, end)
		if err != nil {
			return 0, err
		}
		return report.Total, nil
	}

	return s.enqueueAll(ctx, start, end)
}

func (s *Scheduler) enqueueAll(ctx context.Context, start, end time.Time) (int, error) {
	jobs, err := service.PlanJobs(ctx, s.businesses, s.cfg.PeriodType, start, end, domain.JobPriorityLow)
	if err != nil {
		return 0, err
	}

	var enqueued, skipped, failed int
	for i := range jobs {
		job := &jobs[i]

		if s.claimer != nil {
			ok, err := s.claimer.Claim(ctx, job)
			if err != nil {
				s.logger.Warn("dedupe check failed, enqueueing anyway",
					zap.Stringer("business_id", job.BusinessID), zap.Error(err))
			} else if !ok {
				skipped++
				continue
			}
		}

		if err := s.enqueuer.Enqueue(ctx, job); err != nil {
			failed++
			s.logger.Error("failed to enqueue metrics job",
				zap.Stringer("business_id", job.BusinessID),
				zap.Error(err),
			)
			if s.claimer != nil {
				_ = s.claimer.Release(ctx, job)
			}
			continue
		}
		enqueued++
	}

	s.logger.Info("scheduled metrics jobs",
		zap.String("period_type", string(s.cfg.PeriodType)),
		zap.Time("period_start", start),
		zap.Int("enqueued", enqueued),
		zap.Int("skipped", skipped),
		zap.Int("failed", failed),
	)

	if failed > 0 && enqueued == 0 {
		return 0, fmt.Errorf("all %d metrics jobs failed to enqueue", failed)
	}
	return enqueued, nil
}
