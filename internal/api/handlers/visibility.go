package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sadewadee/marketing-engine/internal/domain"
	"github.com/sadewadee/marketing-engine/internal/service"
)

const dateLayout = "2006-01-02"

// VisibilityReader serves visibility metrics
type VisibilityReader interface {
	OrganicPresence(ctx context.Context, q service.VisibilityQuery) (domain.OrganicPresence, error)
	MapPackVisibility(ctx context.Context, q service.VisibilityQuery) (domain.MapPackVisibility, error)
	ShareOfVoice(ctx context.Context, q service.VisibilityQuery) (domain.ShareOfVoice, error)
	SerpFeatures(ctx context.Context, q service.VisibilityQuery) (domain.SerpFeatures, error)
	ComputeAllMetrics(ctx context.Context, businessID uuid.UUID, locationID *uuid.UUID,
		periodType domain.PeriodType, start, end time.Time) (*domain.VisibilityMetric, error)
	ListMetrics(ctx context.Context, params domain.MetricListParams) ([]*domain.VisibilityMetric, error)
}

// VisibilityHandler handles visibility endpoints
type VisibilityHandler struct {
	svc    VisibilityReader
	logger *zap.Logger
	now    func() time.Time
}

// NewVisibilityHandler creates a new VisibilityHandler
func NewVisibilityHandler(svc VisibilityReader, logger *zap.Logger) *VisibilityHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &VisibilityHandler{svc: svc, logger: logger, now: time.Now}
}

// Organic handles GET .../visibility/organic
func (h *VisibilityHandler) Organic(w http.ResponseWriter, r *http.Request) {
	serveQuery(h, w, r, h.svc.OrganicPresence)
}

// MapPack handles GET .../visibility/map-pack
func (h *VisibilityHandler) MapPack(w http.ResponseWriter, r *http.Request) {
	serveQuery(h, w, r, h.svc.MapPackVisibility)
}

// ShareOfVoice handles GET .../visibility/share-of-voice
func (h *VisibilityHandler) ShareOfVoice(w http.ResponseWriter, r *http.Request) {
	serveQuery(h, w, r, h.svc.ShareOfVoice)
}

// SerpFeatures handles GET .../visibility/serp-features
func (h *VisibilityHandler) SerpFeatures(w http.ResponseWriter, r *http.Request) {
	serveQuery(h, w, r, h.svc.SerpFeatures)
}

func serveQuery[T any](h *VisibilityHandler, w http.ResponseWriter, r *http.Request,
	read func(context.Context, service.VisibilityQuery) (T, error)) {
	q, err := h.parseQuery(r)
	if err != nil {
		RenderError(w, http.StatusBadRequest, err.Error())
		return
	}

	out, err := read(r.Context(), q)
	if err != nil {
		h.renderServiceError(w, err)
		return
	}

	RenderJSON(w, http.StatusOK, out)
}

// parseQuery reads business, location and an inclusive date range. The
// range defaults to the last 30 days ending today.
func (h *VisibilityHandler) parseQuery(r *http.Request) (service.VisibilityQuery, error) {
	businessID, err := uuid.Parse(chi.URLParam(r, "businessID"))
	if err != nil {
		return service.VisibilityQuery{}, fmt.Errorf("invalid business ID")
	}

	locationID, err := optionalUUID(r.URL.Query().Get("location_id"))
	if err != nil {
		return service.VisibilityQuery{}, fmt.Errorf("invalid location_id")
	}

	now := h.now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	end := today
	if s := r.URL.Query().Get("end"); s != "" {
		if end, err = time.Parse(dateLayout, s); err != nil {
			return service.VisibilityQuery{}, fmt.Errorf("invalid end date, expected YYYY-MM-DD")
		}
	}

	start := end.AddDate(0, 0, -29)
	if s := r.URL.Query().Get("start"); s != "" {
		if start, err = time.Parse(dateLayout, s); err != nil {
			return service.VisibilityQuery{}, fmt.Errorf("invalid start date, expected YYYY-MM-DD")
		}
	}

	return service.VisibilityQuery{
		BusinessID: businessID,
		LocationID: locationID,
		Start:      start,
		// The end date is inclusive; the window is half-open.
		End: end.AddDate(0, 0, 1),
	}, nil
}

// ComputeRequest is the body of a compute request
type ComputeRequest struct {
	LocationID  *uuid.UUID        `json:"location_id,omitempty"`
	PeriodType  domain.PeriodType `json:"period_type"`
	PeriodStart string            `json:"period_start"`
	PeriodEnd   string            `json:"period_end"`
}

// Compute handles POST .../visibility/compute
func (h *VisibilityHandler) Compute(w http.ResponseWriter, r *http.Request) {
	businessID, err := uuid.Parse(chi.URLParam(r, "businessID"))
	if err != nil {
		RenderError(w, http.StatusBadRequest, "Invalid business ID")
		return
	}

	var req ComputeRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
		RenderError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	if req.PeriodType == "" {
		req.PeriodType = domain.PeriodDaily
	}
	if !req.PeriodType.IsValid() {
		RenderError(w, http.StatusBadRequest, "period_type must be daily, weekly or monthly")
		return
	}

	start, end, err := h.window(req)
	if err != nil {
		RenderError(w, http.StatusBadRequest, err.Error())
		return
	}

	m, err := h.svc.ComputeAllMetrics(r.Context(), businessID, req.LocationID, req.PeriodType, start, end)
	if err != nil {
		h.renderServiceError(w, err)
		return
	}

	RenderJSON(w, http.StatusOK, m)
}

// window resolves the request's period. Without explicit dates it is the
// most recent complete period.
func (h *VisibilityHandler) window(req ComputeRequest) (time.Time, time.Time, error) {
	if req.PeriodStart == "" && req.PeriodEnd == "" {
		return service.PeriodWindow(req.PeriodType, h.now())
	}

	start, err := time.Parse(dateLayout, req.PeriodStart)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid period_start, expected YYYY-MM-DD")
	}
	end, err := time.Parse(dateLayout, req.PeriodEnd)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid period_end, expected YYYY-MM-DD")
	}

	return start, end.AddDate(0, 0, 1), nil
}

// Metrics handles GET .../visibility/metrics
func (h *VisibilityHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	businessID, err := uuid.Parse(chi.URLParam(r, "businessID"))
	if err != nil {
		RenderError(w, http.StatusBadRequest, "Invalid business ID")
		return
	}

	params := domain.MetricListParams{BusinessID: businessID}

	if params.LocationID, err = optionalUUID(r.URL.Query().Get("location_id")); err != nil {
		RenderError(w, http.StatusBadRequest, "Invalid location_id")
		return
	}

	if s := r.URL.Query().Get("period_type"); s != "" {
		p := domain.PeriodType(s)
		if !p.IsValid() {
			RenderError(w, http.StatusBadRequest, "period_type must be daily, weekly or monthly")
			return
		}
		params.PeriodType = &p
	}

	if s := r.URL.Query().Get("limit"); s != "" {
		if params.Limit, err = strconv.Atoi(s); err != nil || params.Limit < 1 {
			RenderError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
	}

	format := r.URL.Query().Get("format")
	switch format {
	case "", FormatJSON, FormatCSV, FormatXLSX:
	default:
		RenderError(w, http.StatusBadRequest, "format must be json, csv or xlsx")
		return
	}

	out, err := h.svc.ListMetrics(r.Context(), params)
	if err != nil {
		h.renderServiceError(w, err)
		return
	}
	if out == nil {
		out = []*domain.VisibilityMetric{}
	}

	switch format {
	case FormatCSV:
		if err := writeMetricsCSV(w, businessID.String(), out); err != nil {
			h.logger.Error("error writing CSV to response", zap.Error(err))
		}
	case FormatXLSX:
		writeMetricsXLSX(w, businessID.String(), out, h.logger)
	default:
		RenderJSON(w, http.StatusOK, out)
	}
}

func (h *VisibilityHandler) renderServiceError(w http.ResponseWriter, err error) {
	if errors.Is(err, service.ErrInvalidPeriod) {
		RenderError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.logger.Error("visibility request failed", zap.Error(err))
	RenderError(w, http.StatusInternalServerError, "Failed to compute visibility")
}

func optionalUUID(s string) (*uuid.UUID, error) {
	if s == "" {
		return nil, nil
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return nil, err
	}
	return &id, nil
}
