package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sadewadee/marketing-engine/internal/domain"
)

// Deduper prevents the same metrics job from being enqueued twice within a TTL
type Deduper struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewDeduperWithClient creates a deduper on a shared client
func NewDeduperWithClient(client *redis.Client, prefix string, ttl time.Duration) *Deduper {
	if prefix == "" {
		prefix = "dedup"
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}

	return &Deduper{client: client, prefix: prefix, ttl: ttl}
}

// Key returns the Redis key guarding a job
func (d *Deduper) Key(job *domain.MetricsJob) string {
	return fmt.Sprintf("%s:metrics:%s", d.prefix, job.DedupeKey())
}

// Claim marks the job as enqueued. It returns false when the same
// (business, location, period) was already claimed within the TTL.
func (d *Deduper) Claim(ctx context.Context, job *domain.MetricsJob) (bool, error) {
	wasSet, err := d.client.SetNX(ctx, d.Key(job), 1, d.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to claim job: %w", err)
	}
	return wasSet, nil
}

// Release drops a claim, e.g. after the enqueue itself failed
func (d *Deduper) Release(ctx context.Context, job *domain.MetricsJob) error {
	return d.client.Del(ctx, d.Key(job)).Err()
}

// Clear removes all dedup keys
func (d *Deduper) Clear(ctx context.Context) error {
	pattern := fmt.Sprintf("%s:*", d.prefix)

	iter := d.client.Scan(ctx, 0, pattern, 1000).Iterator()
	for iter.Next(ctx) {
		if err := d.client.Del(ctx, iter.Val()).Err(); err != nil {
			return fmt.Errorf("failed to delete key %s: %w", iter.Val(), err)
		}
	}

	return iter.Err()
}
