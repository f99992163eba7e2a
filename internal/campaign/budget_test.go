package campaign

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sadewadee/marketing-engine/internal/domain"
)

func TestGetBudgetTier(t *testing.T) {
	tests := []struct {
		name      string
		budget    float64
		wantTier  domain.BudgetTierName
		wantLimit int
	}{
		{name: "tiny budget", budget: 1, wantTier: domain.TierSmall, wantLimit: 2},
		{name: "just below medium", budget: 999, wantTier: domain.TierSmall, wantLimit: 2},
		{name: "fractional below medium", budget: 999.99, wantTier: domain.TierSmall, wantLimit: 2},
		{name: "medium floor", budget: 1000, wantTier: domain.TierMedium, wantLimit: 5},
		{name: "just below large", budget: 4999, wantTier: domain.TierMedium, wantLimit: 5},
		{name: "large floor", budget: 5000, wantTier: domain.TierLarge, wantLimit: 15},
		{name: "very large", budget: 1_000_000, wantTier: domain.TierLarge, wantLimit: 15},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := GetBudgetTier(tt.budget)
			assert.Equal(t, tt.wantTier, got.Tier)
			assert.Equal(t, tt.wantLimit, got.CampaignLimit)
			assert.NotEmpty(t, got.Recommendation)
		})
	}
}

func TestFloorUnits(t *testing.T) {
	assert.Equal(t, int64(560), floorUnits(800*0.7))
	assert.Equal(t, int64(240), floorUnits(800*0.3))
	assert.Equal(t, int64(99), floorUnits(99.99))
	assert.Equal(t, int64(0), floorUnits(0.4))
}

func TestProfileFor(t *testing.T) {
	for _, v := range domain.Verticals {
		t.Run(string(v), func(t *testing.T) {
			p, ok := ProfileFor(v)
			assert.True(t, ok)
			assert.Equal(t, v, p.Vertical)
			assert.NotEmpty(t, p.ConversionType)
			assert.Len(t, p.TypicalKPIs, 3)

			s := p.RecommendedFunnelSplit
			assert.InDelta(t, 1.0, s.Awareness+s.Consideration+s.Conversion, 1e-9)
		})
	}

	_, ok := ProfileFor("Automotive")
	assert.False(t, ok)
}

func TestProfileForReturnsCopy(t *testing.T) {
	p, _ := ProfileFor(domain.VerticalSaaS)
	p.TypicalKPIs[0] = "mutated"

	again, _ := ProfileFor(domain.VerticalSaaS)
	assert.Equal(t, "Cost per Demo", again.TypicalKPIs[0])
}

func TestProfilesOrder(t *testing.T) {
	got := Profiles()
	assert.Len(t, got, len(domain.Verticals))
	for i, v := range domain.Verticals {
		assert.Equal(t, v, got[i].Vertical)
	}
}
