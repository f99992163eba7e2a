package cache

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestVisibilityKeyDistinguishesIntraDayWindows(t *testing.T) {
	businessID := uuid.New()
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	morning := VisibilityKey("sov", businessID, nil, day, day.Add(12*time.Hour))
	fullDay := VisibilityKey("sov", businessID, nil, day, day.Add(24*time.Hour))
	offset := VisibilityKey("sov", businessID, nil, day.Add(6*time.Hour), day.Add(24*time.Hour))

	assert.NotEqual(t, morning, fullDay)
	assert.NotEqual(t, offset, fullDay)
}

func TestVisibilityKeyNormalizesToUTC(t *testing.T) {
	businessID := uuid.New()
	locationID := uuid.New()
	start := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 7)
	jakarta := time.FixedZone("WIB", 7*3600)

	assert.Equal(t,
		VisibilityKey("organic", businessID, &locationID, start, end),
		VisibilityKey("organic", businessID, &locationID, start.In(jakarta), end.In(jakarta)),
	)
}

func TestVisibilityKeyMatchesBusinessPattern(t *testing.T) {
	businessID := uuid.New()
	start := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	key := VisibilityKey("map_pack", businessID, nil, start, start.AddDate(0, 0, 1))
	prefix := strings.TrimSuffix(BusinessPattern(KeyPrefixVisibility, businessID), "*")

	assert.True(t, strings.HasPrefix(key, prefix))
	assert.Contains(t, key, ":all:map_pack:")
}
