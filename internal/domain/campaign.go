package domain

// Vertical is the business vertical a campaign plan is built for
type Vertical string

const (
	VerticalLocalService Vertical = "Local Service"
	VerticalEcommerce    Vertical = "E-commerce"
	VerticalSaaS         Vertical = "SaaS"
	VerticalHealthcare   Vertical = "Healthcare"
	VerticalRealEstate   Vertical = "Real Estate"
)

// Verticals lists every supported vertical in display order
var Verticals = []Vertical{
	VerticalLocalService,
	VerticalEcommerce,
	VerticalSaaS,
	VerticalHealthcare,
	VerticalRealEstate,
}

// IsValid returns true if v is a supported vertical
func (v Vertical) IsValid() bool {
	for _, known := range Verticals {
		if v == known {
			return true
		}
	}
	return false
}

// Objective is the primary business goal of a campaign plan
type Objective string

const (
	ObjectiveLeads       Objective = "Leads"
	ObjectiveAwareness   Objective = "Awareness"
	ObjectiveSales       Objective = "Sales"
	ObjectiveLocalVisits Objective = "Local Visits"
)

// Objectives lists every supported objective
var Objectives = []Objective{
	ObjectiveLeads,
	ObjectiveAwareness,
	ObjectiveSales,
	ObjectiveLocalVisits,
}

// IsValid returns true if o is a supported objective
func (o Objective) IsValid() bool {
	for _, known := range Objectives {
		if o == known {
			return true
		}
	}
	return false
}

// Channel is a paid marketing channel
type Channel string

const (
	ChannelGoogleSearch Channel = "Google Search"
	ChannelMeta         Channel = "Meta"
	ChannelTikTok       Channel = "TikTok"
	ChannelLinkedIn     Channel = "LinkedIn"
)

// IsValid returns true if c is a known channel
func (c Channel) IsValid() bool {
	switch c {
	case ChannelGoogleSearch, ChannelMeta, ChannelTikTok, ChannelLinkedIn:
		return true
	}
	return false
}

// FunnelStage is one layer of the marketing funnel
type FunnelStage string

const (
	StageAwareness     FunnelStage = "Awareness"
	StageConsideration FunnelStage = "Consideration"
	StageConversion    FunnelStage = "Conversion"
)

// FunnelStages lists the stages top to bottom
var FunnelStages = []FunnelStage{StageAwareness, StageConsideration, StageConversion}

// IsValid returns true if s is a known funnel stage
func (s FunnelStage) IsValid() bool {
	switch s {
	case StageAwareness, StageConsideration, StageConversion:
		return true
	}
	return false
}

// DefaultCurrency is applied when the input leaves currency empty
const DefaultCurrency = "USD"

// MinCampaignBudget is the smallest spend a campaign node may carry.
// Nodes below it are dropped rather than created.
const MinCampaignBudget = 50

// FunnelSplit holds the share of a channel budget given to each stage
type FunnelSplit struct {
	Awareness     float64 `json:"awareness" yaml:"awareness"`
	Consideration float64 `json:"consideration" yaml:"consideration"`
	Conversion    float64 `json:"conversion" yaml:"conversion"`
}

// Ratio returns the split fraction for a stage
func (f FunnelSplit) Ratio(stage FunnelStage) float64 {
	switch stage {
	case StageAwareness:
		return f.Awareness
	case StageConsideration:
		return f.Consideration
	case StageConversion:
		return f.Conversion
	}
	return 0
}

// VerticalProfile is the static planning profile of a vertical
type VerticalProfile struct {
	Vertical               Vertical    `json:"vertical"`
	RecommendedFunnelSplit FunnelSplit `json:"recommended_funnel_split"`
	ConversionType         string      `json:"conversion_type"`
	TypicalKPIs            []string    `json:"typical_kpis"`
}

// CampaignInput is the request for a campaign plan
type CampaignInput struct {
	Vertical  Vertical  `json:"vertical" validate:"required,vertical"`
	Objective Objective `json:"objective" validate:"required,objective"`
	Budget    float64   `json:"budget" validate:"gt=0,finite,lte=1000000000000"`
	Currency  string    `json:"currency" validate:"required,len=3,alpha"`
	BrandName string    `json:"brand_name,omitempty" validate:"omitempty,max=120"`
}

// BudgetTierName names a budget tier
type BudgetTierName string

const (
	TierSmall  BudgetTierName = "Small"
	TierMedium BudgetTierName = "Medium"
	TierLarge  BudgetTierName = "Large"
)

// BudgetTier classifies a raw budget
type BudgetTier struct {
	Tier           BudgetTierName `json:"tier"`
	CampaignLimit  int            `json:"campaign_limit"`
	Recommendation string         `json:"recommendation"`
}

// ChannelDistribution is the share of the total budget given to one channel
type ChannelDistribution struct {
	Channel              Channel `json:"channel" validate:"channel"`
	AllocationPercentage float64 `json:"allocation_percentage" validate:"gte=0,lte=1"`
	Budget               int64   `json:"budget" validate:"gte=0"`
	Rationale            string  `json:"rationale" validate:"required"`
}

// FunnelStageConfig is the creative direction for one funnel stage
type FunnelStageConfig struct {
	Stage            FunnelStage `json:"stage"`
	MessageAngle     string      `json:"message_angle"`
	CTA              string      `json:"cta"`
	AudienceIntent   string      `json:"audience_intent"`
	LandingPageFocus string      `json:"landing_page_focus"`
}

// Targeting describes who a campaign node reaches
type Targeting struct {
	Geo       []string `json:"geo" validate:"required,min=1"`
	Audiences []string `json:"audiences"`
	Keywords  []string `json:"keywords"`
}

// CampaignNode is one executable campaign (channel x stage)
type CampaignNode struct {
	Name        string      `json:"name" validate:"required"`
	Objective   string      `json:"objective" validate:"required"`
	Budget      int64       `json:"budget" validate:"gte=50"`
	Description string      `json:"description" validate:"required,max=1000"`
	Targeting   Targeting   `json:"targeting"`
	Stage       FunnelStage `json:"stage" validate:"stage"`
	Channel     Channel     `json:"channel" validate:"channel"`
	CTA         string      `json:"cta"`
	LandingPage string      `json:"landing_page"`
}

// PlanSummary is the header of a campaign plan
type PlanSummary struct {
	Goal        Objective      `json:"goal" validate:"objective"`
	TotalBudget float64        `json:"total_budget" validate:"gt=0"`
	Currency    string         `json:"currency" validate:"len=3"`
	Vertical    Vertical       `json:"vertical" validate:"vertical"`
	FunnelSplit FunnelSplit    `json:"funnel_split"`
	BudgetTier  BudgetTierName `json:"budget_tier" validate:"required"`
	BrandName   string         `json:"brand_name,omitempty"`
}

// CampaignPlan is the root aggregate returned by the campaign engine
type CampaignPlan struct {
	Summary              PlanSummary           `json:"summary"`
	Channels             []ChannelDistribution `json:"channels" validate:"required,min=1,dive"`
	Campaigns            []CampaignNode        `json:"campaigns" validate:"dive"`
	ExecutionSteps       []string              `json:"execution_steps" validate:"required,min=1,dive,required"`
	OptimizationSchedule []string              `json:"optimization_schedule" validate:"len=4,dive,required"`
	Warnings             []string              `json:"warnings"`
}

// TotalCampaignBudget sums the budget of every campaign node
func (p *CampaignPlan) TotalCampaignBudget() int64 {
	var total int64
	for _, c := range p.Campaigns {
		total += c.Budget
	}
	return total
}
