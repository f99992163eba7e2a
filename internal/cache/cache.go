package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrCacheMiss is returned when a key is not found in cache
var ErrCacheMiss = errors.New("cache miss")

// Cache interface for caching operations
type Cache interface {
	// Get retrieves a value from cache
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value in cache with TTL
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a value from cache
	Delete(ctx context.Context, key string) error

	// DeleteByPattern removes all values matching a glob pattern (e.g., "cache:visibility:<id>:*")
	DeleteByPattern(ctx context.Context, pattern string) error

	// Close closes the cache connection
	Close() error
}

// Key prefixes
const (
	// KeyPrefixVisibility is the prefix for on-demand visibility reads
	KeyPrefixVisibility = "cache:visibility"

	// KeyPrefixMetrics is the prefix for stored metric listings
	KeyPrefixMetrics = "cache:metrics"
)

// TTL configurations for different cache types
const (
	// TTLVisibility is the TTL for on-demand visibility reads (5 minutes)
	TTLVisibility = 5 * time.Minute

	// TTLMetricsList is the TTL for stored metric listings (60 seconds)
	TTLMetricsList = 60 * time.Second
)

// VisibilityKey builds the cache key for one visibility read
func VisibilityKey(kind string, businessID uuid.UUID, locationID *uuid.UUID, start, end time.Time) string {
	loc := "all"
	if locationID != nil {
		loc = locationID.String()
	}
	return fmt.Sprintf("%s:%s:%s:%s:%s:%s",
		KeyPrefixVisibility, businessID, loc, kind, start.UTC().Format(time.RFC3339Nano), end.UTC().Format(time.RFC3339Nano))
}

// BusinessPattern matches every visibility and metric key of a business
func BusinessPattern(prefix string, businessID uuid.UUID) string {
	return fmt.Sprintf("%s:%s:*", prefix, businessID)
}

// GetJSON reads and decodes a cached JSON value into dst
func GetJSON(ctx context.Context, c Cache, key string, dst any) error {
	raw, err := c.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("failed to decode cached %s: %w", key, err)
	}
	return nil
}

// SetJSON encodes and stores a value as JSON
func SetJSON(ctx context.Context, c Cache, key string, v any, ttl time.Duration) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	return c.Set(ctx, key, raw, ttl)
}
