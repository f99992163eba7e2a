package campaign

import (
	"fmt"
	"strings"

	"github.com/sadewadee/marketing-engine/internal/domain"
)

const smallTierWarning = "Budget is in the Small tier: strict consolidation, one campaign per channel max. " +
	"Only Conversion-stage campaigns were generated."

var channelSetupSteps = []struct {
	channel domain.Channel
	steps   []string
}{
	{domain.ChannelGoogleSearch, []string{
		"Connect the Google Ads account and confirm billing",
		"Install the Google Tag and configure conversion actions",
		"Build the campaign and ad-group structure with keyword themes",
	}},
	{domain.ChannelMeta, []string{
		"Set up Meta Business Manager and the ad account",
		"Install the Meta Pixel and Conversions API",
		"Create the campaign structure with audience and placement settings",
	}},
	{domain.ChannelLinkedIn, []string{
		"Set up LinkedIn Campaign Manager and the ad account",
		"Install the LinkedIn Insight Tag",
		"Build matched audiences by job title, company size and industry",
	}},
	{domain.ChannelTikTok, []string{
		"Set up TikTok Ads Manager and the ad account",
		"Install the TikTok Pixel and configure events",
		"Produce vertical video creatives for the campaign structure",
	}},
}

var optimizationSchedule = []string{
	"Day 3: verify conversion tracking fires and pause disapproved ads",
	"Day 7: review search terms, add negatives and shift budget to top performers",
	"Day 14: refresh underperforming creatives and tighten audiences",
	"Day 30: full performance review against KPIs and reallocate budget across channels",
}

var keywordThemes = map[domain.FunnelStage][]string{
	domain.StageAwareness:     {"problem-aware questions", "how-to and educational queries"},
	domain.StageConsideration: {"best and top-rated comparisons", "reviews and alternatives"},
	domain.StageConversion:    {"high-intent service queries", "near me and location modifiers", "pricing and quote queries"},
}

var localVerticals = map[domain.Vertical]bool{
	domain.VerticalLocalService: true,
	domain.VerticalHealthcare:   true,
	domain.VerticalRealEstate:   true,
}

// GenerateCampaignPlan builds a campaign plan for the input.
//
// The input is validated first and a *ValidationError is returned on
// failure. The assembled plan is validated before it is returned; a failure
// there is reported as an *InvariantError carrying the plan.
func GenerateCampaignPlan(input domain.CampaignInput) (*domain.CampaignPlan, error) {
	input = normalizeInput(input)

	if err := ValidateInput(input); err != nil {
		return nil, err
	}

	profile, ok := ProfileFor(input.Vertical)
	if !ok {
		return nil, &ValidationError{Fields: []FieldError{{
			Field:      "vertical",
			Constraint: "vertical",
			Message:    "must be one of: " + joinValues(domain.Verticals),
		}}}
	}

	channels := CalculateChannelAllocations(input)
	tier := GetBudgetTier(input.Budget)

	stages := domain.FunnelStages
	var warnings []string
	if tier.Tier == domain.TierSmall {
		stages = []domain.FunnelStage{domain.StageConversion}
		warnings = append(warnings, smallTierWarning)
	}

	campaigns := make([]domain.CampaignNode, 0, len(channels)*len(stages))
	for _, ch := range channels {
		for _, stage := range stages {
			ratio := profile.RecommendedFunnelSplit.Ratio(stage)
			if tier.Tier == domain.TierSmall {
				ratio = 1
			}

			budget := floorUnits(float64(ch.Budget) * ratio)
			if budget < domain.MinCampaignBudget {
				warnings = append(warnings, fmt.Sprintf(
					"Skipped %s %s campaign: budget %d is below the %d minimum",
					ch.Channel, stage, budget, domain.MinCampaignBudget))
				continue
			}

			campaigns = append(campaigns, buildNode(input.Vertical, ch.Channel, stage, budget))
		}
	}

	if len(campaigns) > tier.CampaignLimit {
		warnings = append(warnings, fmt.Sprintf(
			"Plan has %d campaigns, above the %s tier limit of %d; consider consolidating",
			len(campaigns), tier.Tier, tier.CampaignLimit))
	}

	if warnings == nil {
		warnings = []string{}
	}

	plan := &domain.CampaignPlan{
		Summary: domain.PlanSummary{
			Goal:        input.Objective,
			TotalBudget: input.Budget,
			Currency:    input.Currency,
			Vertical:    input.Vertical,
			FunnelSplit: profile.RecommendedFunnelSplit,
			BudgetTier:  tier.Tier,
			BrandName:   input.BrandName,
		},
		Channels:             channels,
		Campaigns:            campaigns,
		ExecutionSteps:       executionSteps(channels),
		OptimizationSchedule: append([]string(nil), optimizationSchedule...),
		Warnings:             warnings,
	}

	if err := ValidatePlan(plan); err != nil {
		return nil, err
	}

	return plan, nil
}

func normalizeInput(input domain.CampaignInput) domain.CampaignInput {
	input.Currency = strings.ToUpper(strings.TrimSpace(input.Currency))
	if input.Currency == "" {
		input.Currency = domain.DefaultCurrency
	}
	input.BrandName = strings.TrimSpace(input.BrandName)
	return input
}

func buildNode(v domain.Vertical, ch domain.Channel, stage domain.FunnelStage, budget int64) domain.CampaignNode {
	layer := GenerateLayer(stage, v)

	return domain.CampaignNode{
		Name:        fmt.Sprintf("%s - %s - %s", ch, v, stage),
		Objective:   string(stage),
		Budget:      budget,
		Description: layer.MessageAngle + " | " + layer.AudienceIntent,
		Targeting:   targetingFor(v, ch, layer),
		Stage:       stage,
		Channel:     ch,
		CTA:         layer.CTA,
		LandingPage: layer.LandingPageFocus,
	}
}

func targetingFor(v domain.Vertical, ch domain.Channel, layer domain.FunnelStageConfig) domain.Targeting {
	geo := []string{"National"}
	if localVerticals[v] {
		geo = []string{"Local radius around business"}
	}

	keywords := []string{}
	if ch == domain.ChannelGoogleSearch {
		keywords = append(keywords, keywordThemes[layer.Stage]...)
	}

	return domain.Targeting{
		Geo:       geo,
		Audiences: []string{layer.AudienceIntent},
		Keywords:  keywords,
	}
}

// executionSteps appends each present channel's onboarding checklist.
// Order follows the fixed channel checks, not allocation weight.
func executionSteps(channels []domain.ChannelDistribution) []string {
	present := make(map[domain.Channel]bool, len(channels))
	for _, c := range channels {
		present[c.Channel] = true
	}

	var steps []string
	for _, s := range channelSetupSteps {
		if present[s.channel] {
			steps = append(steps, s.steps...)
		}
	}

	return steps
}
