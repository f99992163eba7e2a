package mq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/sadewadee/marketing-engine/internal/domain"
)

// Retry backoff configuration
const (
	DefaultInitialBackoff = 1 * time.Second
	DefaultMaxBackoff     = 30 * time.Second
	DefaultMaxRetries     = 5

	retryHeader = "x-retry-count"
)

// RabbitMQConsumer implements Consumer
type RabbitMQConsumer struct {
	conn       *amqp.Connection
	channel    *amqp.Channel
	queues     []string
	consumerID string
	logger     *zap.Logger

	initialBackoff time.Duration
	maxBackoff     time.Duration
	maxRetries     int
	republish      func(ctx context.Context, routingKey string, msg amqp.Publishing) error
}

// ConsumerConfig holds consumer configuration
type ConsumerConfig struct {
	URL        string
	Prefetch   int      // Number of messages to prefetch (default: 10)
	ConsumerID string   // Unique consumer identifier
	Queues     []string // Queues to consume from (default: all priority queues)
	MaxRetries int
}

// NewConsumer creates a new RabbitMQ consumer
func NewConsumer(cfg ConsumerConfig, logger *zap.Logger) (*RabbitMQConsumer, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq dial failed: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("rabbitmq channel failed: %w", err)
	}

	prefetch := cfg.Prefetch
	if prefetch <= 0 {
		prefetch = 10
	}
	if err := ch.Qos(prefetch, 0, false); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("set qos failed: %w", err)
	}

	if err := declareTopology(ch); err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}

	c := newConsumer(cfg, logger)
	c.conn = conn
	c.channel = ch
	c.republish = func(ctx context.Context, routingKey string, msg amqp.Publishing) error {
		// Default exchange: routing key is the queue name.
		return ch.PublishWithContext(ctx, "", routingKey, false, false, msg)
	}
	return c, nil
}

func newConsumer(cfg ConsumerConfig, logger *zap.Logger) *RabbitMQConsumer {
	if logger == nil {
		logger = zap.NewNop()
	}

	queues := cfg.Queues
	if len(queues) == 0 {
		queues = []string{QueueHigh, QueueDefault, QueueLow}
	}

	consumerID := cfg.ConsumerID
	if consumerID == "" {
		consumerID = fmt.Sprintf("worker-%d", time.Now().UnixNano())
	}

	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}

	return &RabbitMQConsumer{
		queues:         queues,
		consumerID:     consumerID,
		logger:         logger.Named("mq-consumer"),
		initialBackoff: DefaultInitialBackoff,
		maxBackoff:     DefaultMaxBackoff,
		maxRetries:     maxRetries,
	}
}

// Consume starts consuming messages from all configured queues and blocks
// until ctx is done or the broker closes the deliveries
func (c *RabbitMQConsumer) Consume(ctx context.Context, handler func(context.Context, *domain.MetricsJob) error) error {
	var deliveryChannels []<-chan amqp.Delivery

	for _, qName := range c.queues {
		deliveries, err := c.channel.Consume(
			qName,
			fmt.Sprintf("%s-%s", c.consumerID, qName),
			false, // auto-ack (we manually ack)
			false, // exclusive
			false, // no-local
			false, // no-wait
			nil,   // args
		)
		if err != nil {
			return fmt.Errorf("consume from %s failed: %w", qName, err)
		}
		deliveryChannels = append(deliveryChannels, deliveries)
	}

	merged := mergeChannelsWithContext(ctx, deliveryChannels...)

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-merged:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("delivery channel closed")
			}
			if err := c.handleDelivery(ctx, d, handler); err != nil {
				return err
			}
		}
	}
}

// handleDelivery runs the handler for one delivery and settles it. Failed
// jobs are republished with an incremented retry header after a backoff.
func (c *RabbitMQConsumer) handleDelivery(ctx context.Context, d amqp.Delivery, handler func(context.Context, *domain.MetricsJob) error) error {
	var msg MetricsJobMessage
	if err := json.Unmarshal(d.Body, &msg); err != nil || msg.Type != MessageTypeComputeMetrics {
		c.logger.Warn("dropping malformed message", zap.String("routing_key", d.RoutingKey), zap.Error(err))
		_ = d.Reject(false)
		return nil
	}

	job := &msg.Job
	retryCount := retryCountOf(d.Headers)

	err := handler(ctx, job)
	if err == nil {
		if err := d.Ack(false); err != nil {
			c.logger.Warn("ack failed", zap.Stringer("business_id", job.BusinessID), zap.Error(err))
		}
		return nil
	}

	log := c.logger.With(
		zap.Stringer("business_id", job.BusinessID),
		zap.String("period_type", string(job.PeriodType)),
		zap.Int("retry", retryCount),
	)

	if errors.Is(err, domain.ErrInvalidJob) || retryCount >= c.maxRetries {
		log.Error("metrics job rejected", zap.Error(err))
		_ = d.Reject(false)
		return nil
	}

	backoff := c.backoff(retryCount)
	log.Warn("metrics job failed, retrying", zap.Duration("backoff", backoff), zap.Error(err))

	select {
	case <-ctx.Done():
		_ = d.Reject(true)
		return nil
	case <-time.After(backoff):
	}

	// Native requeue doesn't preserve headers, so republish manually.
	retry := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Headers:      amqp.Table{retryHeader: int64(retryCount + 1)},
		Body:         d.Body,
	}
	if err := c.republish(ctx, d.RoutingKey, retry); err != nil {
		log.Error("republish failed, rejecting", zap.Error(err))
		_ = d.Reject(false)
		return nil
	}

	_ = d.Ack(false)
	return nil
}

func (c *RabbitMQConsumer) backoff(retryCount int) time.Duration {
	backoff := c.initialBackoff * time.Duration(1<<uint(retryCount))
	if backoff > c.maxBackoff {
		backoff = c.maxBackoff
	}
	return backoff
}

func retryCountOf(headers amqp.Table) int {
	switch v := headers[retryHeader].(type) {
	case int64:
		return int(v)
	case int32:
		return int(v)
	default:
		return 0
	}
}

// Close closes the consumer connection
func (c *RabbitMQConsumer) Close() error {
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// mergeChannelsWithContext merges multiple channels into one with proper cleanup
func mergeChannelsWithContext(ctx context.Context, channels ...<-chan amqp.Delivery) <-chan amqp.Delivery {
	merged := make(chan amqp.Delivery)
	var wg sync.WaitGroup

	for _, ch := range channels {
		wg.Add(1)
		go func(c <-chan amqp.Delivery) {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case d, ok := <-c:
					if !ok {
						return
					}
					select {
					case merged <- d:
					case <-ctx.Done():
						return
					}
				}
			}
		}(ch)
	}

	go func() {
		wg.Wait()
		close(merged)
	}()

	return merged
}
