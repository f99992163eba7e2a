package mq

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/sadewadee/marketing-engine/internal/domain"
)

type fakeAck struct {
	mu       sync.Mutex
	acked    int
	rejected int
	requeued bool
}

func (f *fakeAck) Ack(uint64, bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.acked++
	return nil
}

func (f *fakeAck) Nack(uint64, bool, bool) error { return nil }

func (f *fakeAck) Reject(_ uint64, requeue bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rejected++
	f.requeued = requeue
	return nil
}

type republished struct {
	routingKey string
	msg        amqp.Publishing
}

func testConsumer(t *testing.T, republishErr error) (*RabbitMQConsumer, *[]republished) {
	t.Helper()

	var out []republished
	c := newConsumer(ConsumerConfig{MaxRetries: 2}, nil)
	c.initialBackoff = time.Millisecond
	c.maxBackoff = 4 * time.Millisecond
	c.republish = func(_ context.Context, key string, msg amqp.Publishing) error {
		out = append(out, republished{routingKey: key, msg: msg})
		return republishErr
	}
	return c, &out
}

func testJob() *domain.MetricsJob {
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	return &domain.MetricsJob{
		BusinessID:  uuid.New(),
		PeriodType:  domain.PeriodDaily,
		PeriodStart: start,
		PeriodEnd:   start.AddDate(0, 0, 1),
	}
}

func delivery(t *testing.T, ack *fakeAck, job *domain.MetricsJob, retries int64) amqp.Delivery {
	t.Helper()

	msg, err := EncodeJob(job)
	require.NoError(t, err)

	d := amqp.Delivery{Acknowledger: ack, Body: msg.Body, RoutingKey: QueueDefault}
	if retries > 0 {
		d.Headers = amqp.Table{retryHeader: retries}
	}
	return d
}

func TestPriorityToRoutingKey(t *testing.T) {
	assert.Equal(t, RoutingKeyLow, PriorityToRoutingKey(domain.JobPriorityLow))
	assert.Equal(t, RoutingKeyDefault, PriorityToRoutingKey(domain.JobPriorityDefault))
	assert.Equal(t, RoutingKeyHigh, PriorityToRoutingKey(domain.JobPriorityHigh))
}

func TestEncodeJob(t *testing.T) {
	job := testJob()

	msg, err := EncodeJob(job)
	require.NoError(t, err)
	assert.Equal(t, amqp.Persistent, msg.DeliveryMode)

	var decoded MetricsJobMessage
	require.NoError(t, json.Unmarshal(msg.Body, &decoded))
	assert.Equal(t, MessageTypeComputeMetrics, decoded.Type)
	assert.Equal(t, job.BusinessID, decoded.Job.BusinessID)
}

func TestHandleDeliveryAcksSuccess(t *testing.T) {
	c, out := testConsumer(t, nil)
	ack := &fakeAck{}
	job := testJob()

	var got *domain.MetricsJob
	err := c.handleDelivery(context.Background(), delivery(t, ack, job, 0), func(_ context.Context, j *domain.MetricsJob) error {
		got = j
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, job.BusinessID, got.BusinessID)
	assert.Equal(t, 1, ack.acked)
	assert.Empty(t, *out)
}

func TestHandleDeliveryRejectsMalformed(t *testing.T) {
	c, _ := testConsumer(t, nil)

	tests := []struct {
		name string
		body []byte
	}{
		{"not json", []byte("{")},
		{"wrong type", []byte(`{"type":"other","job":{}}`)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ack := &fakeAck{}
			called := false
			err := c.handleDelivery(context.Background(), amqp.Delivery{Acknowledger: ack, Body: tt.body},
				func(context.Context, *domain.MetricsJob) error { called = true; return nil })
			require.NoError(t, err)

			assert.False(t, called)
			assert.Equal(t, 1, ack.rejected)
			assert.False(t, ack.requeued)
		})
	}
}

func TestHandleDeliveryRepublishesWithRetryHeader(t *testing.T) {
	c, out := testConsumer(t, nil)
	ack := &fakeAck{}

	err := c.handleDelivery(context.Background(), delivery(t, ack, testJob(), 1),
		func(context.Context, *domain.MetricsJob) error { return errors.New("db down") })
	require.NoError(t, err)

	require.Len(t, *out, 1)
	assert.Equal(t, QueueDefault, (*out)[0].routingKey)
	assert.Equal(t, int64(2), (*out)[0].msg.Headers[retryHeader])
	assert.Equal(t, 1, ack.acked)
}

func TestHandleDeliveryGivesUpAfterMaxRetries(t *testing.T) {
	c, out := testConsumer(t, nil)
	ack := &fakeAck{}

	err := c.handleDelivery(context.Background(), delivery(t, ack, testJob(), 2),
		func(context.Context, *domain.MetricsJob) error { return errors.New("db down") })
	require.NoError(t, err)

	assert.Empty(t, *out)
	assert.Equal(t, 1, ack.rejected)
}

func TestHandleDeliveryDropsInvalidJobs(t *testing.T) {
	c, out := testConsumer(t, nil)
	ack := &fakeAck{}

	err := c.handleDelivery(context.Background(), delivery(t, ack, testJob(), 0),
		func(context.Context, *domain.MetricsJob) error { return domain.ErrInvalidJob })
	require.NoError(t, err)

	assert.Empty(t, *out)
	assert.Equal(t, 1, ack.rejected)
}

func TestHandleDeliveryRejectsWhenRepublishFails(t *testing.T) {
	c, _ := testConsumer(t, errors.New("channel closed"))
	ack := &fakeAck{}

	err := c.handleDelivery(context.Background(), delivery(t, ack, testJob(), 0),
		func(context.Context, *domain.MetricsJob) error { return errors.New("db down") })
	require.NoError(t, err)

	assert.Equal(t, 0, ack.acked)
	assert.Equal(t, 1, ack.rejected)
}

func TestBackoff(t *testing.T) {
	c := newConsumer(ConsumerConfig{}, nil)

	assert.Equal(t, DefaultInitialBackoff, c.backoff(0))
	assert.Equal(t, 4*DefaultInitialBackoff, c.backoff(2))
	assert.Equal(t, DefaultMaxBackoff, c.backoff(10))
	assert.Equal(t, DefaultMaxRetries, c.maxRetries)
}

func TestMergeChannelsStopsOnCancel(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx, cancel := context.WithCancel(context.Background())
	a, b := make(chan amqp.Delivery), make(chan amqp.Delivery)
	merged := mergeChannelsWithContext(ctx, a, b)

	go func() { a <- amqp.Delivery{RoutingKey: "a"} }()
	d := <-merged
	assert.Equal(t, "a", d.RoutingKey)

	cancel()
	_, ok := <-merged
	assert.False(t, ok)
}
