// Package queue provides a Redis-based metrics job queue using Asynq
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/sadewadee/marketing-engine/internal/domain"
	"github.com/sadewadee/marketing-engine/internal/metrics"
)

const (
	// Task types
	TypeComputeMetrics = "visibility:compute"

	// Queue names
	QueueDefault = "default"
	QueueHigh    = "high"
	QueueLow     = "low"
)

// Config holds Redis queue configuration
type Config struct {
	RedisURL  string
	RedisAddr string
	Password  string
	DB        int
}

// redisOpt resolves the asynq connection options from the config
func (c *Config) redisOpt() (asynq.RedisConnOpt, error) {
	switch {
	case c.RedisURL != "":
		opt, err := asynq.ParseRedisURI(c.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse redis URL: %w", err)
		}
		return opt, nil
	case c.RedisAddr != "":
		return asynq.RedisClientOpt{
			Addr:         c.RedisAddr,
			Password:     c.Password,
			DB:           c.DB,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
			PoolSize:     10,
		}, nil
	default:
		return nil, fmt.Errorf("redis URL or address is required")
	}
}

// Queue is a Redis-based metrics job queue
type Queue struct {
	client    *asynq.Client
	inspector *asynq.Inspector
	logger    *zap.Logger
	stats     *metrics.Metrics
}

// New creates a new Queue
func New(cfg *Config, logger *zap.Logger, stats *metrics.Metrics) (*Queue, error) {
	redisOpt, err := cfg.redisOpt()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Queue{
		client:    asynq.NewClient(redisOpt),
		inspector: asynq.NewInspector(redisOpt),
		logger:    logger.Named("queue"),
		stats:     stats,
	}, nil
}

// QueueFor maps a job priority to a queue name
func QueueFor(priority int) string {
	switch {
	case priority >= domain.JobPriorityHigh:
		return QueueHigh
	case priority < 0:
		return QueueLow
	default:
		return QueueDefault
	}
}

// NewTask builds the asynq task for a metrics job
func NewTask(job *domain.MetricsJob) (*asynq.Task, error) {
	data, err := json.Marshal(job)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}
	return asynq.NewTask(TypeComputeMetrics, data), nil
}

// Enqueue adds a metrics job to the queue
func (q *Queue) Enqueue(ctx context.Context, job *domain.MetricsJob) error {
	if err := job.Validate(); err != nil {
		return err
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now().UTC()
	}

	task, err := NewTask(job)
	if err != nil {
		return err
	}

	queueName := QueueFor(job.Priority)
	opts := []asynq.Option{
		asynq.Queue(queueName),
		asynq.MaxRetry(3),
		asynq.Timeout(5 * time.Minute),
		asynq.Retention(24 * time.Hour),
	}

	info, err := q.client.EnqueueContext(ctx, task, opts...)
	if err != nil {
		return fmt.Errorf("failed to enqueue task: %w", err)
	}

	q.stats.JobEnqueued("asynq")
	q.logger.Debug("enqueued metrics job",
		zap.Stringer("business_id", job.BusinessID),
		zap.String("period_type", string(job.PeriodType)),
		zap.String("queue", queueName),
		zap.String("task_id", info.ID),
	)
	return nil
}

// GetQueueStats returns queue statistics
func (q *Queue) GetQueueStats(ctx context.Context) (map[string]*asynq.QueueInfo, error) {
	queues := []string{QueueHigh, QueueDefault, QueueLow}
	stats := make(map[string]*asynq.QueueInfo)

	for _, name := range queues {
		info, err := q.inspector.GetQueueInfo(name)
		if err != nil {
			// Queue might not exist yet
			continue
		}
		stats[name] = info
	}

	return stats, nil
}

// Close closes the queue client
func (q *Queue) Close() error {
	if q.inspector != nil {
		_ = q.inspector.Close()
	}
	if q.client != nil {
		return q.client.Close()
	}
	return nil
}

// ParsePayload parses a metrics job from task data
func ParsePayload(data []byte) (*domain.MetricsJob, error) {
	var job domain.MetricsJob
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("failed to unmarshal payload: %w", err)
	}
	return &job, nil
}
