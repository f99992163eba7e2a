package computerunner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/sadewadee/marketing-engine/internal/domain"
	"github.com/sadewadee/marketing-engine/internal/service"
	"github.com/sadewadee/marketing-engine/runner"
)

// ErrTargetsFailed is returned when at least one business or location failed
var ErrTargetsFailed = errors.New("some targets failed")

// BatchComputer runs a visibility batch
type BatchComputer interface {
	ComputeForAllBusinesses(ctx context.Context, periodType domain.PeriodType, start, end time.Time) (*domain.BatchReport, error)
}

// Config holds configuration for the compute runner
type Config struct {
	PeriodType domain.PeriodType
	// Start and End override the previous complete period when both are set
	Start time.Time
	End   time.Time

	Output io.Writer
}

// ComputeRunner runs one batch across every active business and prints the report
type ComputeRunner struct {
	cfg    *Config
	batch  BatchComputer
	stack  *runner.Stack
	logger *zap.Logger
	now    func() time.Time
}

// New opens the database from rcfg and creates a new ComputeRunner
func New(ctx context.Context, rcfg *runner.Config, cfg *Config, logger *zap.Logger) (runner.Runner, error) {
	stack, err := runner.NewStack(ctx, rcfg, logger)
	if err != nil {
		return nil, err
	}

	r := newRunner(cfg, stack.Batch, logger)
	r.stack = stack

	return r, nil
}

func newRunner(cfg *Config, batch BatchComputer, logger *zap.Logger) *ComputeRunner {
	if cfg.Output == nil {
		cfg.Output = os.Stdout
	}
	if cfg.PeriodType == "" {
		cfg.PeriodType = domain.PeriodDaily
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &ComputeRunner{
		cfg:    cfg,
		batch:  batch,
		logger: logger.Named("compute"),
		now:    time.Now,
	}
}

// Run computes the batch and writes the report as JSON
func (c *ComputeRunner) Run(ctx context.Context) error {
	start, end := c.cfg.Start, c.cfg.End
	if start.IsZero() || end.IsZero() {
		var err error

		start, end, err = service.PeriodWindow(c.cfg.PeriodType, c.now())
		if err != nil {
			return err
		}
	}

	report, err := c.batch.ComputeForAllBusinesses(ctx, c.cfg.PeriodType, start, end)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(c.cfg.Output)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return fmt.Errorf("write report: %w", err)
	}

	c.logger.Info("batch finished",
		zap.Int("total", report.Total),
		zap.Int("succeeded", report.Succeeded),
		zap.Int("failed", report.Failed),
		zap.Duration("took", report.FinishedAt.Sub(report.StartedAt)),
	)

	if report.Failed > 0 {
		return fmt.Errorf("%w: %d of %d", ErrTargetsFailed, report.Failed, report.Total)
	}

	return nil
}

// Close releases the database
func (c *ComputeRunner) Close(context.Context) error {
	if c.stack != nil {
		return c.stack.Close()
	}
	return nil
}
