package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/sadewadee/marketing-engine/internal/domain"
	"github.com/sadewadee/marketing-engine/internal/service"
)

// BatchComputer runs a visibility batch in-process
type BatchComputer interface {
	ComputeForAllBusinesses(ctx context.Context, periodType domain.PeriodType, start, end time.Time) (*domain.BatchReport, error)
}

// JobEnqueuer hands metrics jobs to a queue
type JobEnqueuer interface {
	Enqueue(ctx context.Context, job *domain.MetricsJob) error
}

// BatchHandler triggers visibility computation for every active business
type BatchHandler struct {
	batch      BatchComputer
	businesses domain.BusinessRepository
	enqueuer   JobEnqueuer
	logger     *zap.Logger
	now        func() time.Time
}

// NewBatchHandler creates a new BatchHandler. With a non-nil enqueuer the
// batch is fanned out as jobs instead of running in the request.
func NewBatchHandler(batch BatchComputer, businesses domain.BusinessRepository, enqueuer JobEnqueuer, logger *zap.Logger) *BatchHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BatchHandler{batch: batch, businesses: businesses, enqueuer: enqueuer, logger: logger, now: time.Now}
}

// BatchRequest is the body of a batch request
type BatchRequest struct {
	PeriodType domain.PeriodType `json:"period_type"`
}

// EnqueueResponse reports queued jobs
type EnqueueResponse struct {
	PeriodType  domain.PeriodType `json:"period_type"`
	PeriodStart time.Time         `json:"period_start"`
	PeriodEnd   time.Time         `json:"period_end"`
	Enqueued    int               `json:"enqueued"`
	Failed      int               `json:"failed"`
}

// Run handles POST /api/v2/visibility/batch
func (h *BatchHandler) Run(w http.ResponseWriter, r *http.Request) {
	var req BatchRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
		RenderError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.PeriodType == "" {
		req.PeriodType = domain.PeriodDaily
	}

	start, end, err := service.PeriodWindow(req.PeriodType, h.now())
	if err != nil {
		RenderError(w, http.StatusBadRequest, "period_type must be daily, weekly or monthly")
		return
	}

	if h.enqueuer != nil {
		h.enqueue(w, r, req.PeriodType, start, end)
		return
	}

	report, err := h.batch.ComputeForAllBusinesses(r.Context(), req.PeriodType, start, end)
	if err != nil {
		h.logger.Error("batch run failed", zap.Error(err))
		RenderError(w, http.StatusInternalServerError, "Failed to run batch")
		return
	}

	RenderJSON(w, http.StatusOK, report)
}

func (h *BatchHandler) enqueue(w http.ResponseWriter, r *http.Request, periodType domain.PeriodType, start, end time.Time) {
	jobs, err := service.PlanJobs(r.Context(), h.businesses, periodType, start, end, domain.JobPriorityHigh)
	if err != nil {
		h.logger.Error("failed to plan metrics jobs", zap.Error(err))
		RenderError(w, http.StatusInternalServerError, "Failed to list businesses")
		return
	}

	resp := EnqueueResponse{PeriodType: periodType, PeriodStart: start, PeriodEnd: end}
	for i := range jobs {
		if err := h.enqueuer.Enqueue(r.Context(), &jobs[i]); err != nil {
			resp.Failed++
			h.logger.Error("failed to enqueue metrics job",
				zap.Stringer("business_id", jobs[i].BusinessID), zap.Error(err))
			continue
		}
		resp.Enqueued++
	}

	RenderJSON(w, http.StatusAccepted, resp)
}
