package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sadewadee/marketing-engine/internal/domain"
)

var errBoom = errors.New("boom")

type fakeKeywords struct {
	mu       sync.Mutex
	keywords []domain.Keyword
	err      error
	calls    int
}

func (f *fakeKeywords) match(k domain.Keyword, businessID uuid.UUID, locationID *uuid.UUID) bool {
	if k.BusinessID != businessID {
		return false
	}
	if locationID != nil && (k.LocationID == nil || *k.LocationID != *locationID) {
		return false
	}
	return true
}

func (f *fakeKeywords) ListActive(_ context.Context, businessID uuid.UUID, locationID *uuid.UUID) ([]domain.Keyword, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++

	if f.err != nil {
		return nil, f.err
	}

	var out []domain.Keyword
	for _, k := range f.keywords {
		if f.match(k, businessID, locationID) && k.Status == domain.KeywordStatusActive {
			out = append(out, k)
		}
	}
	return out, nil
}

func (f *fakeKeywords) Find(_ context.Context, filter domain.KeywordFilter) ([]domain.Keyword, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++

	if f.err != nil {
		return nil, f.err
	}

	var out []domain.Keyword
	for _, k := range f.keywords {
		if !f.match(k, filter.BusinessID, filter.LocationID) {
			continue
		}
		if filter.Status != nil && k.Status != *filter.Status {
			continue
		}
		if k.SearchVolume < filter.MinSearchVolume {
			continue
		}
		out = append(out, k)
	}
	return out, nil
}

type fakeRanks struct {
	mu    sync.Mutex
	ranks []domain.KeywordRank
	err   error
}

func (f *fakeRanks) inWindow(r domain.KeywordRank, ids []uuid.UUID, start, end time.Time) bool {
	if r.CapturedAt.Before(start) || !r.CapturedAt.Before(end) {
		return false
	}
	for _, id := range ids {
		if id == r.KeywordID {
			return true
		}
	}
	return false
}

func (f *fakeRanks) CountMapPackPresence(_ context.Context, ids []uuid.UUID, start, end time.Time) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return 0, f.err
	}

	seen := map[uuid.UUID]bool{}
	for _, r := range f.ranks {
		if r.InMapPack && f.inWindow(r, ids, start, end) {
			seen[r.KeywordID] = true
		}
	}
	return len(seen), nil
}

func (f *fakeRanks) CountByPositionRange(_ context.Context, ids []uuid.UUID, minPos, maxPos int, start, end time.Time) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return 0, f.err
	}

	seen := map[uuid.UUID]bool{}
	for _, r := range f.ranks {
		if r.RankPosition == nil || !f.inWindow(r, ids, start, end) {
			continue
		}
		if *r.RankPosition >= minPos && *r.RankPosition <= maxPos {
			seen[r.KeywordID] = true
		}
	}
	return len(seen), nil
}

func (f *fakeRanks) SerpFeatureStats(_ context.Context, ids []uuid.UUID, start, end time.Time) (*domain.SerpFeatureStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}

	var out domain.SerpFeatureStats
	for _, r := range f.ranks {
		if !f.inWindow(r, ids, start, end) {
			continue
		}
		if r.HasFeaturedSnippet {
			out.FeaturedSnippetCount++
		}
		if r.HasLocalPack {
			out.LocalPackCount++
		}
	}
	return &out, nil
}

func (f *fakeRanks) LatestRanks(_ context.Context, ids []uuid.UUID, asOf time.Time) (map[uuid.UUID]domain.KeywordRank, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}

	want := map[uuid.UUID]bool{}
	for _, id := range ids {
		want[id] = true
	}

	out := map[uuid.UUID]domain.KeywordRank{}
	for _, r := range f.ranks {
		if !want[r.KeywordID] || !r.CapturedAt.Before(asOf) {
			continue
		}
		if cur, ok := out[r.KeywordID]; !ok || r.CapturedAt.After(cur.CapturedAt) {
			out[r.KeywordID] = r
		}
	}
	return out, nil
}

type metricKey struct {
	business uuid.UUID
	location uuid.UUID
	period   domain.PeriodType
	start    int64
	end      int64
}

func toMetricKey(k domain.MetricKey) metricKey {
	mk := metricKey{business: k.BusinessID, period: k.PeriodType, start: k.PeriodStart.Unix(), end: k.PeriodEnd.Unix()}
	if k.LocationID != nil {
		mk.location = *k.LocationID
	}
	return mk
}

type fakeMetrics struct {
	mu      sync.Mutex
	items   map[metricKey]*domain.VisibilityMetric
	nextID  int64
	upserts int
	err     error
}

func newFakeMetrics() *fakeMetrics {
	return &fakeMetrics{items: map[metricKey]*domain.VisibilityMetric{}}
}

func (f *fakeMetrics) Upsert(_ context.Context, m *domain.VisibilityMetric) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.upserts++

	k := toMetricKey(m.Key())
	if cur, ok := f.items[k]; ok {
		m.ID = cur.ID
	} else {
		f.nextID++
		m.ID = f.nextID
	}
	cp := *m
	f.items[k] = &cp
	return nil
}

func (f *fakeMetrics) Get(_ context.Context, key domain.MetricKey) (*domain.VisibilityMetric, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	m, ok := f.items[toMetricKey(key)]
	if !ok {
		return nil, nil
	}
	cp := *m
	return &cp, nil
}

func (f *fakeMetrics) ListByBusiness(_ context.Context, params domain.MetricListParams) ([]*domain.VisibilityMetric, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []*domain.VisibilityMetric
	for _, m := range f.items {
		if m.BusinessID != params.BusinessID {
			continue
		}
		if params.PeriodType != nil && m.PeriodType != *params.PeriodType {
			continue
		}
		cp := *m
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PeriodStart.After(out[j].PeriodStart) })
	if params.Limit > 0 && len(out) > params.Limit {
		out = out[:params.Limit]
	}
	return out, nil
}

func (f *fakeMetrics) len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.items)
}

type fakeBusinesses struct {
	refs []domain.BusinessRef
	err  error
}

func (f *fakeBusinesses) ListActive(context.Context) ([]domain.BusinessRef, error) {
	return f.refs, f.err
}

func intPtr(v int) *int { return &v }
