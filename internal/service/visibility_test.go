package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sadewadee/marketing-engine/internal/cache"
	"github.com/sadewadee/marketing-engine/internal/domain"
	"github.com/sadewadee/marketing-engine/internal/metrics"
)

var (
	windowStart = time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	windowEnd   = time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	inWindow    = windowStart.Add(6 * time.Hour)
)

type visibilityFixture struct {
	business uuid.UUID
	keywords *fakeKeywords
	ranks    *fakeRanks
	store    *fakeMetrics
	cache    *cache.MemoryCache
	svc      *VisibilityService
}

func newVisibilityFixture(t *testing.T) *visibilityFixture {
	t.Helper()

	f := &visibilityFixture{
		business: uuid.New(),
		keywords: &fakeKeywords{},
		ranks:    &fakeRanks{},
		store:    newFakeMetrics(),
		cache:    cache.NewMemoryCache(0),
	}
	t.Cleanup(func() { _ = f.cache.Close() })

	f.svc = NewVisibilityService(f.keywords, f.ranks, f.store, f.cache, nil, metrics.New())
	return f
}

func (f *visibilityFixture) addKeyword(text string, volume int, location *uuid.UUID) uuid.UUID {
	id := uuid.New()
	f.keywords.keywords = append(f.keywords.keywords, domain.Keyword{
		ID:           id,
		BusinessID:   f.business,
		LocationID:   location,
		Text:         text,
		SearchVolume: volume,
		Status:       domain.KeywordStatusActive,
	})
	return id
}

func (f *visibilityFixture) addRank(r domain.KeywordRank) {
	if r.CapturedAt.IsZero() {
		r.CapturedAt = inWindow
	}
	f.ranks.ranks = append(f.ranks.ranks, r)
}

func (f *visibilityFixture) query() VisibilityQuery {
	return VisibilityQuery{BusinessID: f.business, Start: windowStart, End: windowEnd}
}

func TestComputeShareOfVoiceNoKeywords(t *testing.T) {
	f := newVisibilityFixture(t)
	f.addKeyword("zero volume", 0, nil)

	got, err := f.svc.ComputeShareOfVoice(context.Background(), f.query())
	require.NoError(t, err)
	assert.Equal(t, 0.0, got.ShareOfVoice)
	assert.NotNil(t, got.Breakdown)
	assert.Empty(t, got.Breakdown)
}

func TestComputeShareOfVoiceSingleKeyword(t *testing.T) {
	f := newVisibilityFixture(t)
	id := f.addKeyword("emergency plumber", 1000, nil)
	f.addRank(domain.KeywordRank{KeywordID: id, RankPosition: intPtr(1)})

	got, err := f.svc.ComputeShareOfVoice(context.Background(), f.query())
	require.NoError(t, err)
	assert.Equal(t, 31.4, got.ShareOfVoice)
	require.Len(t, got.Breakdown, 1)
	assert.InDelta(t, 314.0, got.Breakdown[0].WeightedCTR, 1e-9)
}

func TestComputeShareOfVoiceUsesLatestRankAndSorts(t *testing.T) {
	f := newVisibilityFixture(t)

	a := f.addKeyword("alpha", 1000, nil)
	b := f.addKeyword("bravo", 500, nil)
	c := f.addKeyword("charlie", 200, nil)
	d := f.addKeyword("delta", 200, nil)
	f.addKeyword("unranked", 300, nil)

	// An older capture at position 1 is superseded by the latest at 3.
	f.addRank(domain.KeywordRank{KeywordID: a, RankPosition: intPtr(1), CapturedAt: windowStart.Add(-48 * time.Hour)})
	f.addRank(domain.KeywordRank{KeywordID: a, RankPosition: intPtr(3), CapturedAt: windowStart.Add(time.Hour)})
	// Captures after the window are ignored.
	f.addRank(domain.KeywordRank{KeywordID: a, RankPosition: intPtr(1), CapturedAt: windowEnd.Add(time.Hour)})
	f.addRank(domain.KeywordRank{KeywordID: b, RankPosition: intPtr(1)})
	f.addRank(domain.KeywordRank{KeywordID: c, RankPosition: intPtr(2)})
	f.addRank(domain.KeywordRank{KeywordID: d, RankPosition: intPtr(2)})

	got, err := f.svc.ComputeShareOfVoice(context.Background(), f.query())
	require.NoError(t, err)

	// (1000*0.185 + 500*0.314 + 200*0.245*2) / 2200 * 100
	assert.Equal(t, 20.0, got.ShareOfVoice)

	order := make([]string, 0, len(got.Breakdown))
	for _, e := range got.Breakdown {
		order = append(order, e.Keyword)
	}
	assert.Equal(t, []string{"alpha", "bravo", "charlie", "delta", "unranked"}, order)
	assert.Nil(t, got.Breakdown[4].Position)
	assert.Equal(t, 0.0, got.Breakdown[4].CTR)
}

func TestComputeMapPackVisibility(t *testing.T) {
	t.Run("no keywords returns zeros", func(t *testing.T) {
		f := newVisibilityFixture(t)

		got, err := f.svc.ComputeMapPackVisibility(context.Background(), f.query())
		require.NoError(t, err)
		assert.Equal(t, domain.MapPackVisibility{}, got)
	})

	t.Run("percentage of tracked keywords", func(t *testing.T) {
		f := newVisibilityFixture(t)
		ids := []uuid.UUID{
			f.addKeyword("a", 10, nil),
			f.addKeyword("b", 10, nil),
			f.addKeyword("c", 10, nil),
		}
		f.addRank(domain.KeywordRank{KeywordID: ids[0], InMapPack: true})
		f.addRank(domain.KeywordRank{KeywordID: ids[0], InMapPack: true, CapturedAt: inWindow.Add(time.Hour)})
		f.addRank(domain.KeywordRank{KeywordID: ids[1], InMapPack: false})

		got, err := f.svc.ComputeMapPackVisibility(context.Background(), f.query())
		require.NoError(t, err)
		assert.Equal(t, 1, got.MapPackAppearances)
		assert.Equal(t, 3, got.TotalTrackedKeywords)
		assert.Equal(t, 33.33, got.MapPackVisibility)
	})
}

func TestComputeOrganicPresenceBandsOverlap(t *testing.T) {
	f := newVisibilityFixture(t)
	loc := uuid.New()

	positions := []int{2, 7, 15, 40}
	for _, p := range positions {
		id := f.addKeyword("kw", 10, &loc)
		f.addRank(domain.KeywordRank{KeywordID: id, RankPosition: intPtr(p)})
	}
	other := f.addKeyword("elsewhere", 10, nil)
	f.addRank(domain.KeywordRank{KeywordID: other, RankPosition: intPtr(1)})

	q := f.query()
	q.LocationID = &loc

	got, err := f.svc.ComputeOrganicPresence(context.Background(), q)
	require.NoError(t, err)
	assert.Equal(t, domain.OrganicPresence{Top3Count: 1, Top10Count: 2, Top20Count: 3}, got)

	all, err := f.svc.ComputeOrganicPresence(context.Background(), f.query())
	require.NoError(t, err)
	assert.Equal(t, domain.OrganicPresence{Top3Count: 2, Top10Count: 3, Top20Count: 4}, all)
}

func TestTrackSerpFeaturesCountsCaptures(t *testing.T) {
	f := newVisibilityFixture(t)
	id := f.addKeyword("kw", 10, nil)

	f.addRank(domain.KeywordRank{KeywordID: id, HasFeaturedSnippet: true, HasLocalPack: true})
	f.addRank(domain.KeywordRank{KeywordID: id, HasFeaturedSnippet: true, CapturedAt: inWindow.Add(time.Hour)})
	f.addRank(domain.KeywordRank{KeywordID: id, HasLocalPack: true, CapturedAt: windowStart.Add(-time.Hour)})

	got, err := f.svc.TrackSerpFeatures(context.Background(), f.query())
	require.NoError(t, err)
	assert.Equal(t, domain.SerpFeatures{FeaturedSnippetCount: 2, LocalPackCount: 1}, got)
}

func TestComputeAllMetricsIsIdempotent(t *testing.T) {
	f := newVisibilityFixture(t)
	id := f.addKeyword("emergency plumber", 1000, nil)
	f.addRank(domain.KeywordRank{KeywordID: id, RankPosition: intPtr(1), InMapPack: true, HasLocalPack: true})

	ctx := context.Background()
	first, err := f.svc.ComputeAllMetrics(ctx, f.business, nil, domain.PeriodDaily, windowStart, windowEnd)
	require.NoError(t, err)

	assert.Equal(t, 31.4, first.ShareOfVoice)
	assert.Equal(t, 100.0, first.MapPackVisibility)
	assert.Equal(t, 1, first.Top3Count)
	assert.Equal(t, 1, first.LocalPackCount)

	second, err := f.svc.ComputeAllMetrics(ctx, f.business, nil, domain.PeriodDaily, windowStart, windowEnd)
	require.NoError(t, err)

	assert.Equal(t, 1, f.store.len())
	assert.Equal(t, 2, f.store.upserts)
	assert.Equal(t, first.ID, second.ID)

	stored, err := f.svc.GetMetric(ctx, second.Key())
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, 31.4, stored.ShareOfVoice)
}

func TestComputeAllMetricsAbortsOnFailure(t *testing.T) {
	f := newVisibilityFixture(t)
	f.addKeyword("kw", 10, nil)
	f.ranks.err = errBoom

	_, err := f.svc.ComputeAllMetrics(context.Background(), f.business, nil, domain.PeriodDaily, windowStart, windowEnd)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errBoom))
	assert.Equal(t, 0, f.store.upserts)
}

func TestComputeAllMetricsRejectsBadPeriod(t *testing.T) {
	f := newVisibilityFixture(t)
	ctx := context.Background()

	_, err := f.svc.ComputeAllMetrics(ctx, f.business, nil, "hourly", windowStart, windowEnd)
	assert.ErrorIs(t, err, ErrInvalidPeriod)

	_, err = f.svc.ComputeAllMetrics(ctx, f.business, nil, domain.PeriodDaily, windowEnd, windowStart)
	assert.ErrorIs(t, err, ErrInvalidPeriod)
}

func TestCachedReadsAreInvalidatedByCompute(t *testing.T) {
	f := newVisibilityFixture(t)
	id := f.addKeyword("kw", 100, nil)
	f.addRank(domain.KeywordRank{KeywordID: id, RankPosition: intPtr(1)})
	ctx := context.Background()

	first, err := f.svc.ShareOfVoice(ctx, f.query())
	require.NoError(t, err)
	calls := f.keywords.calls

	again, err := f.svc.ShareOfVoice(ctx, f.query())
	require.NoError(t, err)
	assert.Equal(t, first.ShareOfVoice, again.ShareOfVoice)
	assert.Equal(t, calls, f.keywords.calls, "second read should be served from cache")

	_, err = f.svc.ComputeAllMetrics(ctx, f.business, nil, domain.PeriodDaily, windowStart, windowEnd)
	require.NoError(t, err)
	assert.Equal(t, 0, f.cache.Len())
}

func TestListMetrics(t *testing.T) {
	f := newVisibilityFixture(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		start := windowStart.AddDate(0, 0, i)
		_, err := f.svc.ComputeAllMetrics(ctx, f.business, nil, domain.PeriodDaily, start, start.AddDate(0, 0, 1))
		require.NoError(t, err)
	}

	got, err := f.svc.ListMetrics(ctx, domain.MetricListParams{BusinessID: f.business, Limit: 2})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.True(t, got[0].PeriodStart.After(got[1].PeriodStart))
}

func TestPercentage(t *testing.T) {
	assert.Equal(t, 0.0, percentage(5, 0))
	assert.Equal(t, 50.0, percentage(1, 2))
	assert.Equal(t, 66.67, percentage(2, 3))
}
