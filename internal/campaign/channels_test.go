package campaign

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sadewadee/marketing-engine/internal/domain"
)

func TestCalculateChannelAllocations(t *testing.T) {
	type alloc struct {
		channel domain.Channel
		pct     float64
		budget  int64
	}

	tests := []struct {
		name  string
		input domain.CampaignInput
		want  []alloc
	}{
		{
			name:  "leads",
			input: domain.CampaignInput{Vertical: domain.VerticalLocalService, Objective: domain.ObjectiveLeads, Budget: 800},
			want: []alloc{
				{domain.ChannelGoogleSearch, 0.7, 560},
				{domain.ChannelMeta, 0.3, 240},
			},
		},
		{
			name:  "awareness",
			input: domain.CampaignInput{Vertical: domain.VerticalEcommerce, Objective: domain.ObjectiveAwareness, Budget: 1000},
			want: []alloc{
				{domain.ChannelMeta, 0.6, 600},
				{domain.ChannelTikTok, 0.2, 200},
				{domain.ChannelGoogleSearch, 0.2, 200},
			},
		},
		{
			name:  "sales floors fractional budgets",
			input: domain.CampaignInput{Vertical: domain.VerticalEcommerce, Objective: domain.ObjectiveSales, Budget: 1001},
			want: []alloc{
				{domain.ChannelMeta, 0.5, 500},
				{domain.ChannelGoogleSearch, 0.3, 300},
				{domain.ChannelTikTok, 0.2, 200},
			},
		},
		{
			name:  "local visits",
			input: domain.CampaignInput{Vertical: domain.VerticalHealthcare, Objective: domain.ObjectiveLocalVisits, Budget: 2000},
			want: []alloc{
				{domain.ChannelGoogleSearch, 0.5, 1000},
				{domain.ChannelMeta, 0.5, 1000},
			},
		},
		{
			name:  "saas leads override",
			input: domain.CampaignInput{Vertical: domain.VerticalSaaS, Objective: domain.ObjectiveLeads, Budget: 6000},
			want: []alloc{
				{domain.ChannelGoogleSearch, 0.6, 3600},
				{domain.ChannelLinkedIn, 0.4, 2400},
			},
		},
		{
			name:  "saas without leads uses the objective table",
			input: domain.CampaignInput{Vertical: domain.VerticalSaaS, Objective: domain.ObjectiveLocalVisits, Budget: 100},
			want: []alloc{
				{domain.ChannelGoogleSearch, 0.5, 50},
				{domain.ChannelMeta, 0.5, 50},
			},
		},
		{
			name:  "unknown objective falls back to search",
			input: domain.CampaignInput{Vertical: domain.VerticalSaaS, Objective: "Retention", Budget: 500},
			want: []alloc{
				{domain.ChannelGoogleSearch, 1.0, 500},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CalculateChannelAllocations(tt.input)
			if !assert.Len(t, got, len(tt.want)) {
				return
			}

			for i, w := range tt.want {
				assert.Equal(t, w.channel, got[i].Channel)
				assert.InDelta(t, w.pct, got[i].AllocationPercentage, 1e-9)
				assert.Equal(t, w.budget, got[i].Budget)
				assert.NotEmpty(t, got[i].Rationale)
			}
		})
	}
}

func TestSaaSLeadsRationaleMentionsB2B(t *testing.T) {
	got := CalculateChannelAllocations(domain.CampaignInput{
		Vertical:  domain.VerticalSaaS,
		Objective: domain.ObjectiveLeads,
		Budget:    1,
	})

	for _, c := range got {
		assert.Contains(t, c.Rationale, "B2B")
	}
}
