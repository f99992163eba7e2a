package service

import (
	"context"
	"encoding/json"
	"errors"

	"go.uber.org/zap"

	"github.com/sadewadee/marketing-engine/internal/campaign"
	"github.com/sadewadee/marketing-engine/internal/contentadapt"
	"github.com/sadewadee/marketing-engine/internal/domain"
	"github.com/sadewadee/marketing-engine/internal/metrics"
	"github.com/sadewadee/marketing-engine/tlmt"
	"github.com/sadewadee/marketing-engine/tlmt/gonoop"
)

// CampaignPlanService generates campaign plans and records their outcome
type CampaignPlanService struct {
	adapter   contentadapt.Adapter
	telemetry tlmt.Telemetry
	stats     *metrics.Metrics
	logger    *zap.Logger
}

// NewCampaignPlanService creates a new CampaignPlanService. A nil adapter
// leaves campaign copy untouched.
func NewCampaignPlanService(
	adapter contentadapt.Adapter,
	telemetry tlmt.Telemetry,
	stats *metrics.Metrics,
	logger *zap.Logger,
) *CampaignPlanService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if telemetry == nil {
		telemetry = gonoop.New()
	}
	if adapter != nil {
		adapter = contentadapt.WithFallback(adapter, logger)
	}

	return &CampaignPlanService{
		adapter:   adapter,
		telemetry: telemetry,
		stats:     stats,
		logger:    logger.Named("campaign"),
	}
}

// Generate builds a plan for the input. Input errors wrap
// campaign.ErrInvalidInput; internal plan failures wrap
// campaign.ErrPlanInvariant and are logged with the full plan.
func (s *CampaignPlanService) Generate(ctx context.Context, input domain.CampaignInput) (*domain.CampaignPlan, error) {
	plan, err := campaign.GenerateCampaignPlan(input)
	if err != nil {
		s.recordFailure(err)
		return nil, err
	}

	if s.adapter != nil && plan.Summary.BrandName != "" {
		s.adaptDescriptions(ctx, plan)
	}

	s.stats.PlanGenerated(string(plan.Summary.BudgetTier))

	_ = s.telemetry.Send(ctx, tlmt.NewEvent("campaign_plan.generated", map[string]any{
		"vertical":  string(plan.Summary.Vertical),
		"objective": string(plan.Summary.Goal),
		"tier":      string(plan.Summary.BudgetTier),
		"campaigns": len(plan.Campaigns),
	}))

	s.logger.Info("campaign plan generated",
		zap.String("vertical", string(plan.Summary.Vertical)),
		zap.String("objective", string(plan.Summary.Goal)),
		zap.String("tier", string(plan.Summary.BudgetTier)),
		zap.Int("campaigns", len(plan.Campaigns)),
		zap.Int("warnings", len(plan.Warnings)),
	)

	return plan, nil
}

// Verticals returns the planning profile of every supported vertical
func (s *CampaignPlanService) Verticals() []domain.VerticalProfile {
	return campaign.Profiles()
}

func (s *CampaignPlanService) recordFailure(err error) {
	var ierr *campaign.InvariantError
	switch {
	case errors.As(err, &ierr):
		s.stats.PlanFailed(metrics.ClassInvariant)

		raw, _ := json.Marshal(ierr.Plan)
		s.logger.Error("campaign plan failed its invariants",
			zap.Error(err),
			zap.ByteString("plan", raw),
		)
	case errors.Is(err, campaign.ErrInvalidInput):
		s.stats.PlanFailed(metrics.ClassInvalidInput)
		s.logger.Debug("campaign input rejected", zap.Error(err))
	default:
		s.logger.Error("campaign plan generation failed", zap.Error(err))
	}
}

// adaptDescriptions rewrites campaign copy for the brand. The adapted plan
// is validated again and the original copy is restored when it fails.
func (s *CampaignPlanService) adaptDescriptions(ctx context.Context, plan *domain.CampaignPlan) {
	original := make([]string, len(plan.Campaigns))

	for i := range plan.Campaigns {
		c := &plan.Campaigns[i]
		original[i] = c.Description

		out, _ := s.adapter.Adapt(ctx, c.Description, map[string]string{
			"brand_name": plan.Summary.BrandName,
			"vertical":   string(plan.Summary.Vertical),
			"channel":    string(c.Channel),
			"stage":      string(c.Stage),
		})
		c.Description = out
	}

	if err := campaign.ValidatePlan(plan); err != nil {
		s.logger.Warn("adapted campaign copy rejected, keeping templates", zap.Error(err))

		for i := range plan.Campaigns {
			plan.Campaigns[i].Description = original[i]
		}
	}
}
