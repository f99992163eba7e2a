package cache

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCacheGetSet(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(0)
	defer c.Close()

	_, err := c.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrCacheMiss)

	require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Minute))
	got, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)
}

func TestMemoryCacheExpiry(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(0)
	defer c.Close()

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Second))
	now = now.Add(2 * time.Second)

	_, err := c.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestMemoryCacheDeleteByPattern(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(0)
	defer c.Close()

	biz := uuid.New()
	other := uuid.New()
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 1)

	keys := []string{
		VisibilityKey("organic", biz, nil, start, end),
		VisibilityKey("share-of-voice", biz, nil, start, end),
		VisibilityKey("organic", other, nil, start, end),
	}
	for _, k := range keys {
		require.NoError(t, c.Set(ctx, k, []byte("{}"), time.Minute))
	}

	require.NoError(t, c.DeleteByPattern(ctx, BusinessPattern(KeyPrefixVisibility, biz)))
	assert.Equal(t, 1, c.Len())

	_, err := c.Get(ctx, keys[2])
	assert.NoError(t, err)
}

func TestJSONHelpers(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(0)
	defer c.Close()

	type payload struct {
		Score float64 `json:"score"`
	}

	require.NoError(t, SetJSON(ctx, c, "p", payload{Score: 31.4}, time.Minute))

	var got payload
	require.NoError(t, GetJSON(ctx, c, "p", &got))
	assert.Equal(t, 31.4, got.Score)

	assert.ErrorIs(t, GetJSON(ctx, NewNoOpCache(), "p", &got), ErrCacheMiss)
}
