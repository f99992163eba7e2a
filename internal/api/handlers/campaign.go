package handlers

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/sadewadee/marketing-engine/internal/campaign"
	"github.com/sadewadee/marketing-engine/internal/domain"
)

// CampaignPlanner generates campaign plans
type CampaignPlanner interface {
	Generate(ctx context.Context, input domain.CampaignInput) (*domain.CampaignPlan, error)
	Verticals() []domain.VerticalProfile
}

// CampaignHandler handles campaign plan endpoints
type CampaignHandler struct {
	planner CampaignPlanner
	logger  *zap.Logger
}

// NewCampaignHandler creates a new CampaignHandler
func NewCampaignHandler(planner CampaignPlanner, logger *zap.Logger) *CampaignHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CampaignHandler{planner: planner, logger: logger}
}

// Create handles POST /api/v2/campaign-plans
func (h *CampaignHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input domain.CampaignInput
	if err := decodeJSON(r, &input); err != nil {
		RenderError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	plan, err := h.planner.Generate(r.Context(), input)
	if err != nil {
		h.renderPlanError(w, err)
		return
	}

	RenderJSON(w, http.StatusOK, plan)
}

func (h *CampaignHandler) renderPlanError(w http.ResponseWriter, err error) {
	var verr *campaign.ValidationError
	switch {
	case errors.As(err, &verr):
		RenderJSON(w, http.StatusBadRequest, APIError{
			Code:    http.StatusBadRequest,
			Message: "Invalid campaign input",
			Fields:  verr.Fields,
		})
	case errors.Is(err, campaign.ErrInvalidInput):
		RenderError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, campaign.ErrPlanInvariant):
		RenderError(w, http.StatusInternalServerError, "Failed to generate a consistent plan")
	default:
		h.logger.Error("campaign plan failed", zap.Error(err))
		RenderError(w, http.StatusInternalServerError, "Failed to generate plan")
	}
}

// Verticals handles GET /api/v2/verticals
func (h *CampaignHandler) Verticals(w http.ResponseWriter, r *http.Request) {
	RenderJSON(w, http.StatusOK, h.planner.Verticals())
}
