package campaign

import "github.com/sadewadee/marketing-engine/internal/domain"

type channelWeight struct {
	channel   domain.Channel
	weight    float64
	rationale string
}

var objectiveChannels = map[domain.Objective][]channelWeight{
	domain.ObjectiveLeads: {
		{domain.ChannelGoogleSearch, 0.7, "High-intent search captures people actively looking for the service."},
		{domain.ChannelMeta, 0.3, "Retargeting and lookalike audiences add lead volume at a lower cost per lead."},
	},
	domain.ObjectiveAwareness: {
		{domain.ChannelMeta, 0.6, "Broad, low-CPM reach with rich creative formats builds recognition fastest."},
		{domain.ChannelTikTok, 0.2, "Short-form video reaches younger audiences cheaply."},
		{domain.ChannelGoogleSearch, 0.2, "Branded and category search catches people the campaign made curious."},
	},
	domain.ObjectiveSales: {
		{domain.ChannelMeta, 0.5, "Catalog and dynamic ads drive purchases from engaged shoppers."},
		{domain.ChannelGoogleSearch, 0.3, "Shopping and high-intent queries close buyers ready to purchase."},
		{domain.ChannelTikTok, 0.2, "Product discovery through creator-style video."},
	},
	domain.ObjectiveLocalVisits: {
		{domain.ChannelGoogleSearch, 0.5, "Local search and map results reach people nearby who intend to visit."},
		{domain.ChannelMeta, 0.5, "Radius-targeted ads keep the business top of mind in the neighbourhood."},
	},
}

var saasLeadChannels = []channelWeight{
	{domain.ChannelGoogleSearch, 0.6, "B2B buyers research solutions on search; capture demo and trial intent."},
	{domain.ChannelLinkedIn, 0.4, "B2B targeting by job title, company size and industry reaches decision makers."},
}

var fallbackChannels = []channelWeight{
	{domain.ChannelGoogleSearch, 1.0, "Default allocation: search captures existing demand."},
}

func channelWeightsFor(input domain.CampaignInput) []channelWeight {
	if input.Vertical == domain.VerticalSaaS && input.Objective == domain.ObjectiveLeads {
		return saasLeadChannels
	}

	weights, ok := objectiveChannels[input.Objective]
	if !ok {
		return fallbackChannels
	}

	return weights
}

// CalculateChannelAllocations splits the input budget across channels.
// Budgets are floored to whole currency units and weights are used as
// listed without renormalisation. Channels with zero weight are omitted.
func CalculateChannelAllocations(input domain.CampaignInput) []domain.ChannelDistribution {
	weights := channelWeightsFor(input)

	out := make([]domain.ChannelDistribution, 0, len(weights))
	for _, w := range weights {
		if w.weight <= 0 {
			continue
		}

		out = append(out, domain.ChannelDistribution{
			Channel:              w.channel,
			AllocationPercentage: w.weight,
			Budget:               floorUnits(input.Budget * w.weight),
			Rationale:            w.rationale,
		})
	}

	return out
}
