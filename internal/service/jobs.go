package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/sadewadee/marketing-engine/internal/domain"
)

// JobRunner executes metrics jobs delivered by a queue or message broker
type JobRunner struct {
	computer MetricsComputer
	timeout  time.Duration
	logger   *zap.Logger
}

// NewJobRunner creates a new JobRunner. A zero timeout uses DefaultBusinessTimeout.
func NewJobRunner(computer MetricsComputer, timeout time.Duration, logger *zap.Logger) *JobRunner {
	if timeout <= 0 {
		timeout = DefaultBusinessTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &JobRunner{
		computer: computer,
		timeout:  timeout,
		logger:   logger.Named("jobs"),
	}
}

// Handle computes the metrics described by job. Invalid jobs wrap
// domain.ErrInvalidJob so transports can drop them instead of retrying.
func (r *JobRunner) Handle(ctx context.Context, job *domain.MetricsJob) error {
	if err := job.Validate(); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	began := time.Now()
	m, err := r.computer.ComputeAllMetrics(ctx, job.BusinessID, job.LocationID, job.PeriodType, job.PeriodStart, job.PeriodEnd)
	if err != nil {
		return fmt.Errorf("compute metrics for business %s: %w", job.BusinessID, err)
	}

	r.logger.Debug("metrics job completed",
		zap.Stringer("business_id", job.BusinessID),
		zap.String("location_id", locationString(job.LocationID)),
		zap.String("period_type", string(job.PeriodType)),
		zap.Float64("share_of_voice", m.ShareOfVoice),
		zap.Duration("took", time.Since(began)),
	)

	return nil
}

// PlanJobs returns one job per active business and location for the window
func PlanJobs(
	ctx context.Context,
	businesses domain.BusinessRepository,
	periodType domain.PeriodType,
	start, end time.Time,
	priority int,
) ([]domain.MetricsJob, error) {
	refs, err := businesses.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list active businesses: %w", err)
	}

	now := time.Now().UTC()
	targets := Targets(refs)
	jobs := make([]domain.MetricsJob, 0, len(targets))

	for _, t := range targets {
		jobs = append(jobs, domain.MetricsJob{
			BusinessID:  t.BusinessID,
			LocationID:  t.LocationID,
			PeriodType:  periodType,
			PeriodStart: start,
			PeriodEnd:   end,
			Priority:    priority,
			CreatedAt:   now,
		})
	}

	return jobs, nil
}
