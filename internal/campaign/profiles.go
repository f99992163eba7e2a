// Package campaign builds deterministic paid-media campaign plans from a
// business vertical, an objective and a budget.
package campaign

import "github.com/sadewadee/marketing-engine/internal/domain"

var profiles = map[domain.Vertical]domain.VerticalProfile{
	domain.VerticalLocalService: {
		Vertical:               domain.VerticalLocalService,
		RecommendedFunnelSplit: domain.FunnelSplit{Awareness: 0.2, Consideration: 0.3, Conversion: 0.5},
		ConversionType:         "Phone Call / Form Lead",
		TypicalKPIs:            []string{"Cost per Lead", "Call Volume", "Booking Rate"},
	},
	domain.VerticalEcommerce: {
		Vertical:               domain.VerticalEcommerce,
		RecommendedFunnelSplit: domain.FunnelSplit{Awareness: 0.3, Consideration: 0.3, Conversion: 0.4},
		ConversionType:         "Purchase",
		TypicalKPIs:            []string{"ROAS", "Cost per Acquisition", "Average Order Value"},
	},
	domain.VerticalSaaS: {
		Vertical:               domain.VerticalSaaS,
		RecommendedFunnelSplit: domain.FunnelSplit{Awareness: 0.3, Consideration: 0.4, Conversion: 0.3},
		ConversionType:         "Free Trial / Demo Request",
		TypicalKPIs:            []string{"Cost per Demo", "Trial-to-Paid Rate", "Customer Acquisition Cost"},
	},
	domain.VerticalHealthcare: {
		Vertical:               domain.VerticalHealthcare,
		RecommendedFunnelSplit: domain.FunnelSplit{Awareness: 0.2, Consideration: 0.3, Conversion: 0.5},
		ConversionType:         "Appointment Booking",
		TypicalKPIs:            []string{"Cost per Appointment", "Booking Rate", "Patient Acquisition Cost"},
	},
	domain.VerticalRealEstate: {
		Vertical:               domain.VerticalRealEstate,
		RecommendedFunnelSplit: domain.FunnelSplit{Awareness: 0.3, Consideration: 0.3, Conversion: 0.4},
		ConversionType:         "Property Inquiry",
		TypicalKPIs:            []string{"Cost per Inquiry", "Showing Requests", "Lead-to-Showing Rate"},
	},
}

// ProfileFor returns the planning profile of a vertical.
// The returned value is a copy and may be modified by the caller.
func ProfileFor(v domain.Vertical) (domain.VerticalProfile, bool) {
	p, ok := profiles[v]
	if !ok {
		return domain.VerticalProfile{}, false
	}

	p.TypicalKPIs = append([]string(nil), p.TypicalKPIs...)

	return p, true
}

// Profiles returns every vertical profile in display order
func Profiles() []domain.VerticalProfile {
	out := make([]domain.VerticalProfile, 0, len(domain.Verticals))
	for _, v := range domain.Verticals {
		if p, ok := ProfileFor(v); ok {
			out = append(out, p)
		}
	}
	return out
}
