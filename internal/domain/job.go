package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Job priorities
const (
	JobPriorityLow     = -1
	JobPriorityDefault = 0
	JobPriorityHigh    = 5
)

// ErrInvalidJob is returned for a metrics job that cannot be executed
var ErrInvalidJob = errors.New("invalid metrics job")

// MetricsJob asks a worker to compute the visibility metrics of one
// business and location over one period window
type MetricsJob struct {
	BusinessID  uuid.UUID  `json:"business_id"`
	LocationID  *uuid.UUID `json:"location_id,omitempty"`
	PeriodType  PeriodType `json:"period_type"`
	PeriodStart time.Time  `json:"period_start"`
	PeriodEnd   time.Time  `json:"period_end"`
	Priority    int        `json:"priority"`
	CreatedAt   time.Time  `json:"created_at"`
}

// Validate checks the job can be computed
func (j *MetricsJob) Validate() error {
	if j.BusinessID == uuid.Nil {
		return fmt.Errorf("%w: business_id is required", ErrInvalidJob)
	}
	if !j.PeriodType.IsValid() {
		return fmt.Errorf("%w: unknown period type %q", ErrInvalidJob, j.PeriodType)
	}
	if !j.PeriodEnd.After(j.PeriodStart) {
		return fmt.Errorf("%w: period end must be after start", ErrInvalidJob)
	}
	return nil
}

// DedupeKey identifies the job's (business, location, period) for deduplication
func (j *MetricsJob) DedupeKey() string {
	loc := "all"
	if j.LocationID != nil {
		loc = j.LocationID.String()
	}
	return fmt.Sprintf("%s:%s:%s:%d:%d", j.BusinessID, loc, j.PeriodType,
		j.PeriodStart.UTC().Unix(), j.PeriodEnd.UTC().Unix())
}
