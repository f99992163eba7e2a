package managerrunner

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sadewadee/marketing-engine/internal/api"
	"github.com/sadewadee/marketing-engine/internal/api/handlers"
	"github.com/sadewadee/marketing-engine/internal/contentadapt"
	"github.com/sadewadee/marketing-engine/internal/domain"
	"github.com/sadewadee/marketing-engine/internal/mq"
	"github.com/sadewadee/marketing-engine/internal/queue"
	"github.com/sadewadee/marketing-engine/internal/scheduler"
	"github.com/sadewadee/marketing-engine/internal/service"
	"github.com/sadewadee/marketing-engine/runner"
)

const shutdownTimeout = 10 * time.Second

// enqueuer is a job transport owned by the manager
type enqueuer interface {
	Enqueue(ctx context.Context, job *domain.MetricsJob) error
	Close() error
}

// ManagerRunner serves the HTTP API and schedules metric runs
type ManagerRunner struct {
	cfg       *runner.Config
	logger    *zap.Logger
	stack     *runner.Stack
	srv       *http.Server
	scheduler *scheduler.Scheduler
	enqueuer  enqueuer
}

// New creates a new ManagerRunner
func New(ctx context.Context, cfg *runner.Config, logger *zap.Logger) (runner.Runner, error) {
	stack, err := runner.NewStack(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	enq, claimer, err := newEnqueuer(cfg, stack, logger)
	if err != nil {
		_ = stack.Close()
		return nil, err
	}

	var adapter contentadapt.Adapter
	if cfg.GeminiAPIKey != "" {
		genai, err := contentadapt.NewGenAIAdapter(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			logger.Warn("content adaptation disabled", zap.Error(err))
		} else {
			adapter = genai
		}
	}

	planner := service.NewCampaignPlanService(adapter, runner.Telemetry(), stack.Stats, logger)

	// a nil *Deduper must not become a non-nil Claimer
	var claims scheduler.Claimer
	if claimer != nil {
		claims = claimer
	}

	router := api.NewRouter(
		handlers.NewCampaignHandler(planner, logger),
		handlers.NewVisibilityHandler(stack.Visibility, logger),
		handlers.NewBatchHandler(stack.Batch, stack.Repos.Businesses, enq, logger),
		handlers.Health(stack.DB),
		stack.Stats.Handler(),
		logger,
	)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router.Setup(cfg.APIToken),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	sched := scheduler.New(scheduler.Config{
		Interval:   cfg.ScheduleInterval,
		PeriodType: cfg.PeriodType,
	}, stack.Repos.Businesses, stack.Batch, enq, claims, logger)

	return &ManagerRunner{
		cfg:       cfg,
		logger:    logger.Named("manager"),
		stack:     stack,
		srv:       srv,
		scheduler: sched,
		enqueuer:  enq,
	}, nil
}

// newEnqueuer picks RabbitMQ when configured, then asynq on Redis. With
// neither it returns nil and batches run in-process.
func newEnqueuer(cfg *runner.Config, stack *runner.Stack, logger *zap.Logger) (enqueuer, *queue.Deduper, error) {
	var claimer *queue.Deduper
	if stack.Redis != nil {
		claimer = queue.NewDeduperWithClient(stack.Redis.Client(), "dedup", cfg.DedupeTTL)
	}

	switch {
	case cfg.RabbitMQURL != "":
		pub, err := mq.NewPublisher(mq.Config{URL: cfg.RabbitMQURL}, logger, stack.Stats)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create rabbitmq publisher: %w", err)
		}
		logger.Info("enqueueing metric jobs on rabbitmq")
		return pub, claimer, nil
	case cfg.HasRedis():
		q, err := queue.New(&queue.Config{
			RedisURL:  cfg.RedisURL,
			RedisAddr: cfg.RedisAddr,
			Password:  cfg.RedisPass,
			DB:        cfg.RedisDB,
		}, logger, stack.Stats)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create job queue: %w", err)
		}
		logger.Info("enqueueing metric jobs on redis")
		return q, claimer, nil
	default:
		logger.Info("no job transport configured, batches run in-process")
		return nil, nil, nil
	}
}

// Run starts the scheduler and the HTTP server
func (m *ManagerRunner) Run(ctx context.Context) error {
	egroup, ctx := errgroup.WithContext(ctx)

	if m.cfg.ScheduleInterval > 0 {
		egroup.Go(func() error {
			return m.scheduler.Run(ctx)
		})
	} else {
		m.logger.Info("scheduler disabled")
	}

	egroup.Go(func() error {
		return m.startServer(ctx)
	})

	return egroup.Wait()
}

// Close cleans up resources
func (m *ManagerRunner) Close(_ context.Context) error {
	var errs []error

	if m.enqueuer != nil {
		errs = append(errs, m.enqueuer.Close())
	}

	errs = append(errs, m.stack.Close())

	return errors.Join(errs...)
}

func (m *ManagerRunner) startServer(ctx context.Context) error {
	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := m.srv.Shutdown(shutdownCtx); err != nil {
			m.logger.Error("error shutting down server", zap.Error(err))
		}
	}()

	m.logger.Info("API server starting",
		zap.String("addr", m.cfg.Addr),
		zap.String("database", string(m.stack.Dialect)),
	)

	err := m.srv.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}
