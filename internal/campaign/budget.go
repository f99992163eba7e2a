package campaign

import (
	"math"

	"github.com/sadewadee/marketing-engine/internal/domain"
)

const (
	mediumTierFloor = 1000
	largeTierFloor  = 5000
)

var (
	tierSmall = domain.BudgetTier{
		Tier:           domain.TierSmall,
		CampaignLimit:  2,
		Recommendation: "strict consolidation, one campaign per channel max.",
	}
	tierMedium = domain.BudgetTier{
		Tier:           domain.TierMedium,
		CampaignLimit:  5,
		Recommendation: "segment by service category or simple funnel.",
	}
	tierLarge = domain.BudgetTier{
		Tier:           domain.TierLarge,
		CampaignLimit:  15,
		Recommendation: "full segmentation: geo, match type, funnel layers.",
	}
)

// GetBudgetTier classifies a budget into Small (<1000), Medium (<5000) or Large.
func GetBudgetTier(budget float64) domain.BudgetTier {
	switch {
	case budget < mediumTierFloor:
		return tierSmall
	case budget < largeTierFloor:
		return tierMedium
	default:
		return tierLarge
	}
}

// floorUnits floors a currency amount to whole units. The epsilon absorbs
// binary artefacts such as 800*0.7 landing a hair under 560.
func floorUnits(x float64) int64 {
	return int64(math.Floor(x + 1e-9))
}
