package queue

import (
	"context"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/sadewadee/marketing-engine/internal/domain"
)

// JobHandler processes one metrics job
type JobHandler func(ctx context.Context, job *domain.MetricsJob) error

// Worker processes metrics jobs from the Redis queue
type Worker struct {
	server  *asynq.Server
	mux     *asynq.ServeMux
	handler JobHandler
	logger  *zap.Logger
}

// WorkerConfig holds worker configuration
type WorkerConfig struct {
	Config
	Concurrency int
	Queues      map[string]int // queue name -> priority
}

// NewWorker creates a new queue worker
func NewWorker(cfg *WorkerConfig, handler JobHandler, logger *zap.Logger) (*Worker, error) {
	redisOpt, err := cfg.redisOpt()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("queue-worker")

	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}

	queues := cfg.Queues
	if queues == nil {
		queues = map[string]int{
			QueueHigh:    6,
			QueueDefault: 3,
			QueueLow:     1,
		}
	}

	server := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: concurrency,
			Queues:      queues,
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				logger.Warn("task failed", zap.String("task", task.Type()), zap.Error(err))
			}),
			Logger: &asynqLogger{s: logger.Sugar()},
		},
	)

	w := &Worker{
		server:  server,
		mux:     asynq.NewServeMux(),
		handler: handler,
		logger:  logger,
	}

	w.mux.HandleFunc(TypeComputeMetrics, w.HandleTask)

	return w, nil
}

// HandleTask processes a metrics task. Malformed or invalid jobs are not retried.
func (w *Worker) HandleTask(ctx context.Context, task *asynq.Task) error {
	job, err := ParsePayload(task.Payload())
	if err != nil {
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}

	if err := w.handler(ctx, job); err != nil {
		if errors.Is(err, domain.ErrInvalidJob) {
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		}
		w.logger.Error("metrics job failed",
			zap.Stringer("business_id", job.BusinessID),
			zap.String("period_type", string(job.PeriodType)),
			zap.Error(err),
		)
		return err
	}

	return nil
}

// Run starts the worker and blocks until ctx is done
func (w *Worker) Run(ctx context.Context) error {
	errChan := make(chan error, 1)
	go func() {
		errChan <- w.server.Run(w.mux)
	}()

	select {
	case <-ctx.Done():
		w.server.Shutdown()
		return nil
	case err := <-errChan:
		return err
	}
}

// Shutdown gracefully shuts down the worker
func (w *Worker) Shutdown() {
	if w.server != nil {
		w.server.Shutdown()
	}
}

// asynqLogger adapts asynq logging to zap
type asynqLogger struct {
	s *zap.SugaredLogger
}

func (l *asynqLogger) Debug(args ...interface{}) {
	l.s.Debug(args...)
}

func (l *asynqLogger) Info(args ...interface{}) {
	l.s.Info(args...)
}

func (l *asynqLogger) Warn(args ...interface{}) {
	l.s.Warn(args...)
}

func (l *asynqLogger) Error(args ...interface{}) {
	l.s.Error(args...)
}

func (l *asynqLogger) Fatal(args ...interface{}) {
	l.s.Fatal(args...)
}
