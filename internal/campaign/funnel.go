package campaign

import "github.com/sadewadee/marketing-engine/internal/domain"

var defaultLayers = map[domain.FunnelStage]domain.FunnelStageConfig{
	domain.StageAwareness: {
		Stage:            domain.StageAwareness,
		MessageAngle:     "Introduce the brand and the problem it solves",
		CTA:              "Learn More",
		AudienceIntent:   "Cold audiences unfamiliar with the brand",
		LandingPageFocus: "Brand story / educational content",
	},
	domain.StageConsideration: {
		Stage:            domain.StageConsideration,
		MessageAngle:     "Differentiate with proof: reviews, case studies, comparisons",
		CTA:              "See How It Works",
		AudienceIntent:   "Warm audiences who engaged or visited",
		LandingPageFocus: "Service/product detail pages with social proof",
	},
	domain.StageConversion: {
		Stage:            domain.StageConversion,
		MessageAngle:     "Remove friction and prompt immediate action",
		CTA:              "Get a Quote",
		AudienceIntent:   "High-intent audiences and recent site visitors",
		LandingPageFocus: "Dedicated conversion landing page with a single form",
	},
}

// layerOverride replaces the non-empty fields of a default layer
type layerOverride struct {
	messageAngle     string
	cta              string
	audienceIntent   string
	landingPageFocus string
}

var verticalOverrides = map[domain.Vertical]map[domain.FunnelStage]layerOverride{
	domain.VerticalEcommerce: {
		domain.StageAwareness: {
			messageAngle: "Showcase bestsellers and lifestyle imagery",
			cta:          "Shop Now",
		},
		domain.StageConsideration: {
			messageAngle: "Highlight reviews, bundles and free shipping",
			cta:          "View Collection",
		},
		domain.StageConversion: {
			messageAngle:     "Limited-time offer and cart recovery",
			cta:              "Buy Now",
			audienceIntent:   "Cart abandoners and product viewers",
			landingPageFocus: "Product page with checkout shortcut",
		},
	},
	domain.VerticalSaaS: {
		domain.StageAwareness: {
			messageAngle: "Name the workflow pain and the cost of inaction",
			cta:          "Read the Guide",
		},
		domain.StageConsideration: {
			messageAngle: "Feature comparisons, ROI calculators, case studies",
			cta:          "Watch Demo",
		},
		domain.StageConversion: {
			messageAngle:     "Start a free trial or book a demo",
			cta:              "Start Free Trial",
			audienceIntent:   "Trial-ready evaluators and pricing page visitors",
			landingPageFocus: "Pricing / demo booking page",
		},
	},
	domain.VerticalHealthcare: {
		domain.StageConversion: {
			messageAngle:     "Reassure with credentials and easy booking",
			cta:              "Book Appointment",
			audienceIntent:   "Patients actively searching for care nearby",
			landingPageFocus: "Appointment booking page with insurance info",
		},
	},
}

// GenerateLayer returns the creative direction for a stage, applying any
// vertical override on top of the stage defaults.
func GenerateLayer(stage domain.FunnelStage, v domain.Vertical) domain.FunnelStageConfig {
	cfg := defaultLayers[stage]

	o, ok := verticalOverrides[v][stage]
	if !ok {
		return cfg
	}

	if o.messageAngle != "" {
		cfg.MessageAngle = o.messageAngle
	}
	if o.cta != "" {
		cfg.CTA = o.cta
	}
	if o.audienceIntent != "" {
		cfg.AudienceIntent = o.audienceIntent
	}
	if o.landingPageFocus != "" {
		cfg.LandingPageFocus = o.landingPageFocus
	}

	return cfg
}

func GenerateAwarenessLayer(v domain.Vertical) domain.FunnelStageConfig {
	return GenerateLayer(domain.StageAwareness, v)
}

func GenerateConsiderationLayer(v domain.Vertical) domain.FunnelStageConfig {
	return GenerateLayer(domain.StageConsideration, v)
}

func GenerateConversionLayer(v domain.Vertical) domain.FunnelStageConfig {
	return GenerateLayer(domain.StageConversion, v)
}
