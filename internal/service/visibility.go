package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sadewadee/marketing-engine/internal/cache"
	"github.com/sadewadee/marketing-engine/internal/domain"
	"github.com/sadewadee/marketing-engine/internal/metrics"
	"github.com/sadewadee/marketing-engine/internal/serp"
)

// Visibility errors
var (
	ErrInvalidPeriod = errors.New("invalid period")
)

// Rank bands counted by organic presence
const (
	bandTop3  = 3
	bandTop10 = 10
	bandTop20 = 20
)

// Cache kinds for on-demand reads
const (
	KindOrganic      = "organic"
	KindMapPack      = "map-pack"
	KindShareOfVoice = "share-of-voice"
	KindSerpFeatures = "serp-features"
)

// VisibilityQuery selects the keywords and window of an on-demand read
type VisibilityQuery struct {
	BusinessID uuid.UUID
	LocationID *uuid.UUID
	Start      time.Time
	End        time.Time
}

func (q VisibilityQuery) validate() error {
	if !q.End.After(q.Start) {
		return fmt.Errorf("%w: end %s must be after start %s", ErrInvalidPeriod,
			q.End.Format(time.RFC3339), q.Start.Format(time.RFC3339))
	}
	return nil
}

// VisibilityService computes search visibility metrics for a business
type VisibilityService struct {
	keywords domain.KeywordRepository
	ranks    domain.KeywordRankRepository
	store    domain.VisibilityMetricRepository
	cache    cache.Cache
	logger   *zap.Logger
	stats    *metrics.Metrics
	now      func() time.Time
}

// NewVisibilityService creates a new VisibilityService. A nil cache disables
// caching of on-demand reads; a nil logger discards logs.
func NewVisibilityService(
	keywords domain.KeywordRepository,
	ranks domain.KeywordRankRepository,
	store domain.VisibilityMetricRepository,
	c cache.Cache,
	logger *zap.Logger,
	stats *metrics.Metrics,
) *VisibilityService {
	if c == nil {
		c = cache.NewNoOpCache()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &VisibilityService{
		keywords: keywords,
		ranks:    ranks,
		store:    store,
		cache:    c,
		logger:   logger.Named("visibility"),
		stats:    stats,
		now:      time.Now,
	}
}

func (s *VisibilityService) activeKeywordIDs(ctx context.Context, businessID uuid.UUID, locationID *uuid.UUID) ([]uuid.UUID, error) {
	keywords, err := s.keywords.ListActive(ctx, businessID, locationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list active keywords: %w", err)
	}
	return domain.KeywordIDs(keywords), nil
}

// ComputeOrganicPresence counts active keywords ranked in the top 3, 10 and 20
// within the window. A keyword at position 2 counts toward all three bands.
func (s *VisibilityService) ComputeOrganicPresence(ctx context.Context, q VisibilityQuery) (domain.OrganicPresence, error) {
	ids, err := s.activeKeywordIDs(ctx, q.BusinessID, q.LocationID)
	if err != nil || len(ids) == 0 {
		return domain.OrganicPresence{}, err
	}

	var out domain.OrganicPresence
	bands := []struct {
		max int
		dst *int
	}{
		{bandTop3, &out.Top3Count},
		{bandTop10, &out.Top10Count},
		{bandTop20, &out.Top20Count},
	}

	for _, b := range bands {
		n, err := s.ranks.CountByPositionRange(ctx, ids, 1, b.max, q.Start, q.End)
		if err != nil {
			return domain.OrganicPresence{}, fmt.Errorf("failed to count top %d keywords: %w", b.max, err)
		}
		*b.dst = n
	}

	return out, nil
}

// ComputeMapPackVisibility returns the percentage of active keywords that
// showed the business in the map pack within the window
func (s *VisibilityService) ComputeMapPackVisibility(ctx context.Context, q VisibilityQuery) (domain.MapPackVisibility, error) {
	ids, err := s.activeKeywordIDs(ctx, q.BusinessID, q.LocationID)
	if err != nil || len(ids) == 0 {
		return domain.MapPackVisibility{}, err
	}

	appearances, err := s.ranks.CountMapPackPresence(ctx, ids, q.Start, q.End)
	if err != nil {
		return domain.MapPackVisibility{}, fmt.Errorf("failed to count map pack presence: %w", err)
	}

	return domain.MapPackVisibility{
		MapPackAppearances:   appearances,
		TotalTrackedKeywords: len(ids),
		MapPackVisibility:    percentage(float64(appearances), float64(len(ids))),
	}, nil
}

// ComputeShareOfVoice returns the CTR-weighted visibility of the business
// over keywords with search volume, using each keyword's latest rank before
// the end of the window
func (s *VisibilityService) ComputeShareOfVoice(ctx context.Context, q VisibilityQuery) (domain.ShareOfVoice, error) {
	active := domain.KeywordStatusActive
	keywords, err := s.keywords.Find(ctx, domain.KeywordFilter{
		BusinessID:      q.BusinessID,
		LocationID:      q.LocationID,
		Status:          &active,
		MinSearchVolume: 1,
	})
	if err != nil {
		return domain.ShareOfVoice{}, fmt.Errorf("failed to find keywords: %w", err)
	}

	qualifying := keywords[:0:0]
	for _, k := range keywords {
		if k.SearchVolume > 0 {
			qualifying = append(qualifying, k)
		}
	}

	if len(qualifying) == 0 {
		return domain.ShareOfVoice{Breakdown: []domain.ShareOfVoiceEntry{}}, nil
	}

	latest, err := s.ranks.LatestRanks(ctx, domain.KeywordIDs(qualifying), q.End)
	if err != nil {
		return domain.ShareOfVoice{}, fmt.Errorf("failed to get latest ranks: %w", err)
	}

	var weighted, volume float64
	breakdown := make([]domain.ShareOfVoiceEntry, 0, len(qualifying))
	for _, k := range qualifying {
		var position *int
		if r, ok := latest[k.ID]; ok {
			position = r.RankPosition
		}

		ctr := serp.CTRForRank(position)
		entry := domain.ShareOfVoiceEntry{
			KeywordID:    k.ID,
			Keyword:      k.Text,
			SearchVolume: k.SearchVolume,
			Position:     position,
			CTR:          ctr,
			WeightedCTR:  float64(k.SearchVolume) * ctr,
		}

		weighted += entry.WeightedCTR
		volume += float64(k.SearchVolume)
		breakdown = append(breakdown, entry)
	}

	sort.SliceStable(breakdown, func(i, j int) bool {
		a, b := breakdown[i], breakdown[j]
		if a.WeightedCTR != b.WeightedCTR {
			return a.WeightedCTR > b.WeightedCTR
		}
		if a.Keyword != b.Keyword {
			return a.Keyword < b.Keyword
		}
		return a.KeywordID.String() < b.KeywordID.String()
	})

	return domain.ShareOfVoice{
		ShareOfVoice: percentage(weighted, volume),
		Breakdown:    breakdown,
	}, nil
}

// TrackSerpFeatures counts captures of active keywords flagged with a
// featured snippet or local pack within the window
func (s *VisibilityService) TrackSerpFeatures(ctx context.Context, q VisibilityQuery) (domain.SerpFeatures, error) {
	ids, err := s.activeKeywordIDs(ctx, q.BusinessID, q.LocationID)
	if err != nil || len(ids) == 0 {
		return domain.SerpFeatures{}, err
	}

	stats, err := s.ranks.SerpFeatureStats(ctx, ids, q.Start, q.End)
	if err != nil {
		return domain.SerpFeatures{}, fmt.Errorf("failed to get serp feature stats: %w", err)
	}
	if stats == nil {
		return domain.SerpFeatures{}, nil
	}

	return *stats, nil
}

// ComputeAllMetrics runs the four computations concurrently and upserts one
// consolidated metric keyed by business, location and period. Any failure
// aborts the upsert and is returned.
func (s *VisibilityService) ComputeAllMetrics(
	ctx context.Context,
	businessID uuid.UUID,
	locationID *uuid.UUID,
	periodType domain.PeriodType,
	start, end time.Time,
) (metric *domain.VisibilityMetric, err error) {
	began := s.now()
	defer func() {
		s.stats.VisibilityComputed(s.now().Sub(began).Seconds(), err)
	}()

	logger := s.logger.With(
		zap.Stringer("business_id", businessID),
		zap.String("location_id", locationString(locationID)),
		zap.String("period_type", string(periodType)),
	)

	if !periodType.IsValid() {
		return nil, fmt.Errorf("%w: unknown period type %q", ErrInvalidPeriod, periodType)
	}

	q := VisibilityQuery{BusinessID: businessID, LocationID: locationID, Start: start, End: end}
	if err := q.validate(); err != nil {
		return nil, err
	}

	var (
		organic  domain.OrganicPresence
		mapPack  domain.MapPackVisibility
		sov      domain.ShareOfVoice
		features domain.SerpFeatures
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		organic, err = s.ComputeOrganicPresence(gctx, q)
		return err
	})
	g.Go(func() (err error) {
		mapPack, err = s.ComputeMapPackVisibility(gctx, q)
		return err
	})
	g.Go(func() (err error) {
		sov, err = s.ComputeShareOfVoice(gctx, q)
		return err
	})
	g.Go(func() (err error) {
		features, err = s.TrackSerpFeatures(gctx, q)
		return err
	})

	if err := g.Wait(); err != nil {
		logger.Error("visibility computation failed", zap.Error(err))
		return nil, fmt.Errorf("failed to compute visibility metrics: %w", err)
	}

	metric = &domain.VisibilityMetric{
		BusinessID:           businessID,
		LocationID:           locationID,
		PeriodType:           periodType,
		PeriodStart:          start.UTC(),
		PeriodEnd:            end.UTC(),
		MapPackAppearances:   mapPack.MapPackAppearances,
		TotalTrackedKeywords: mapPack.TotalTrackedKeywords,
		MapPackVisibility:    mapPack.MapPackVisibility,
		Top3Count:            organic.Top3Count,
		Top10Count:           organic.Top10Count,
		Top20Count:           organic.Top20Count,
		ShareOfVoice:         sov.ShareOfVoice,
		FeaturedSnippetCount: features.FeaturedSnippetCount,
		LocalPackCount:       features.LocalPackCount,
		ComputedAt:           s.now().UTC(),
	}

	if err := s.store.Upsert(ctx, metric); err != nil {
		logger.Error("failed to upsert visibility metric", zap.Error(err))
		return nil, fmt.Errorf("failed to upsert visibility metric: %w", err)
	}

	s.invalidate(ctx, businessID)

	logger.Debug("visibility metrics computed",
		zap.Float64("share_of_voice", metric.ShareOfVoice),
		zap.Int("tracked_keywords", metric.TotalTrackedKeywords),
		zap.Duration("took", s.now().Sub(began)),
	)

	return metric, nil
}

// GetMetric returns a stored metric, nil when none exists for the key
func (s *VisibilityService) GetMetric(ctx context.Context, key domain.MetricKey) (*domain.VisibilityMetric, error) {
	m, err := s.store.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to get visibility metric: %w", err)
	}
	return m, nil
}

// ListMetrics returns stored metrics for a business, newest period first
func (s *VisibilityService) ListMetrics(ctx context.Context, params domain.MetricListParams) ([]*domain.VisibilityMetric, error) {
	if params.Limit <= 0 || params.Limit > 366 {
		params.Limit = 30
	}

	period := "all"
	if params.PeriodType != nil {
		period = string(*params.PeriodType)
	}
	key := fmt.Sprintf("%s:%s:%s:%s:%d", cache.KeyPrefixMetrics, params.BusinessID,
		locationString(params.LocationID), period, params.Limit)

	return cached(ctx, s, key, cache.TTLMetricsList, func() ([]*domain.VisibilityMetric, error) {
		out, err := s.store.ListByBusiness(ctx, params)
		if err != nil {
			return nil, fmt.Errorf("failed to list visibility metrics: %w", err)
		}
		return out, nil
	})
}

// OrganicPresence is the cached form of ComputeOrganicPresence
func (s *VisibilityService) OrganicPresence(ctx context.Context, q VisibilityQuery) (domain.OrganicPresence, error) {
	if err := q.validate(); err != nil {
		return domain.OrganicPresence{}, err
	}
	return cached(ctx, s, s.readKey(KindOrganic, q), cache.TTLVisibility, func() (domain.OrganicPresence, error) {
		return s.ComputeOrganicPresence(ctx, q)
	})
}

// MapPackVisibility is the cached form of ComputeMapPackVisibility
func (s *VisibilityService) MapPackVisibility(ctx context.Context, q VisibilityQuery) (domain.MapPackVisibility, error) {
	if err := q.validate(); err != nil {
		return domain.MapPackVisibility{}, err
	}
	return cached(ctx, s, s.readKey(KindMapPack, q), cache.TTLVisibility, func() (domain.MapPackVisibility, error) {
		return s.ComputeMapPackVisibility(ctx, q)
	})
}

// ShareOfVoice is the cached form of ComputeShareOfVoice
func (s *VisibilityService) ShareOfVoice(ctx context.Context, q VisibilityQuery) (domain.ShareOfVoice, error) {
	if err := q.validate(); err != nil {
		return domain.ShareOfVoice{}, err
	}
	return cached(ctx, s, s.readKey(KindShareOfVoice, q), cache.TTLVisibility, func() (domain.ShareOfVoice, error) {
		return s.ComputeShareOfVoice(ctx, q)
	})
}

// SerpFeatures is the cached form of TrackSerpFeatures
func (s *VisibilityService) SerpFeatures(ctx context.Context, q VisibilityQuery) (domain.SerpFeatures, error) {
	if err := q.validate(); err != nil {
		return domain.SerpFeatures{}, err
	}
	return cached(ctx, s, s.readKey(KindSerpFeatures, q), cache.TTLVisibility, func() (domain.SerpFeatures, error) {
		return s.TrackSerpFeatures(ctx, q)
	})
}

func (s *VisibilityService) readKey(kind string, q VisibilityQuery) string {
	return cache.VisibilityKey(kind, q.BusinessID, q.LocationID, q.Start, q.End)
}

// cached serves key from cache or computes and stores it. Cache failures
// are logged and never fail the read.
func cached[T any](ctx context.Context, s *VisibilityService, key string, ttl time.Duration, compute func() (T, error)) (T, error) {
	var hit T
	err := cache.GetJSON(ctx, s.cache, key, &hit)
	if err == nil {
		return hit, nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		s.logger.Warn("cache read failed", zap.String("key", key), zap.Error(err))
	}

	val, err := compute()
	if err != nil {
		return val, err
	}

	if err := cache.SetJSON(ctx, s.cache, key, val, ttl); err != nil {
		s.logger.Warn("cache write failed", zap.String("key", key), zap.Error(err))
	}

	return val, nil
}

func (s *VisibilityService) invalidate(ctx context.Context, businessID uuid.UUID) {
	for _, prefix := range []string{cache.KeyPrefixVisibility, cache.KeyPrefixMetrics} {
		if err := s.cache.DeleteByPattern(ctx, cache.BusinessPattern(prefix, businessID)); err != nil {
			s.logger.Warn("cache invalidation failed",
				zap.Stringer("business_id", businessID), zap.Error(err))
		}
	}
}

// percentage returns part/whole*100 rounded to two decimals, 0 when whole is 0
func percentage(part, whole float64) float64 {
	if whole == 0 {
		return 0
	}
	return math.Round(part/whole*100*100) / 100
}

func locationString(id *uuid.UUID) string {
	if id == nil {
		return "all"
	}
	return id.String()
}
