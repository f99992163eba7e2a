package workerrunner

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sadewadee/marketing-engine/internal/mq"
	"github.com/sadewadee/marketing-engine/internal/queue"
	"github.com/sadewadee/marketing-engine/internal/service"
	"github.com/sadewadee/marketing-engine/runner"
)

// ErrNoTransport is returned when neither RabbitMQ nor Redis is configured
var ErrNoTransport = errors.New("worker requires a RabbitMQ URL or a Redis address")

// WorkerRunner consumes metrics jobs and computes them against the database
type WorkerRunner struct {
	cfg      *runner.Config
	logger   *zap.Logger
	stack    *runner.Stack
	jobs     *service.JobRunner
	consumer *mq.RabbitMQConsumer
	worker   *queue.Worker
	queue    *queue.Queue
}

// New creates a new WorkerRunner
func New(ctx context.Context, cfg *runner.Config, logger *zap.Logger) (runner.Runner, error) {
	if cfg.RabbitMQURL == "" && !cfg.HasRedis() {
		return nil, ErrNoTransport
	}

	stack, err := runner.NewStack(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	w := &WorkerRunner{
		cfg:    cfg,
		logger: logger.Named("worker"),
		stack:  stack,
		jobs:   service.NewJobRunner(stack.Visibility, cfg.BusinessTimeout, logger),
	}

	if cfg.RabbitMQURL != "" {
		hostname, _ := os.Hostname()

		w.consumer, err = mq.NewConsumer(mq.ConsumerConfig{
			URL:        cfg.RabbitMQURL,
			Prefetch:   cfg.WorkerConcurrency,
			ConsumerID: fmt.Sprintf("%s-%s", hostname, uuid.New().String()[:8]),
		}, logger)
		if err != nil {
			_ = stack.Close()
			return nil, err
		}

		return w, nil
	}

	qcfg := queue.Config{
		RedisURL:  cfg.RedisURL,
		RedisAddr: cfg.RedisAddr,
		Password:  cfg.RedisPass,
		DB:        cfg.RedisDB,
	}

	w.worker, err = queue.NewWorker(&queue.WorkerConfig{
		Config:      qcfg,
		Concurrency: cfg.WorkerConcurrency,
	}, w.jobs.Handle, logger)
	if err != nil {
		_ = stack.Close()
		return nil, err
	}

	// used only to report the backlog
	w.queue, err = queue.New(&qcfg, logger, stack.Stats)
	if err != nil {
		_ = stack.Close()
		return nil, err
	}

	return w, nil
}

// Run consumes jobs until ctx is done
func (w *WorkerRunner) Run(ctx context.Context) error {
	if w.consumer != nil {
		w.logger.Info("consuming metric jobs from rabbitmq")
		return w.consumer.Consume(ctx, w.jobs.Handle)
	}

	w.logBacklog(ctx)

	w.logger.Info("consuming metric jobs from redis", zap.Int("concurrency", w.cfg.WorkerConcurrency))
	return w.worker.Run(ctx)
}

func (w *WorkerRunner) logBacklog(ctx context.Context) {
	stats, err := w.queue.GetQueueStats(ctx)
	if err != nil {
		w.logger.Warn("failed to read queue stats", zap.Error(err))
		return
	}

	for name, info := range stats {
		w.logger.Info("queue backlog",
			zap.String("queue", name),
			zap.Int("pending", info.Pending),
			zap.Int("retry", info.Retry),
		)
	}
}

// Close cleans up resources
func (w *WorkerRunner) Close(_ context.Context) error {
	var errs []error

	if w.consumer != nil {
		errs = append(errs, w.consumer.Close())
	}

	if w.queue != nil {
		errs = append(errs, w.queue.Close())
	}

	errs = append(errs, w.stack.Close())

	return errors.Join(errs...)
}
