package campaign

import (
	"errors"
	"fmt"
	"strings"

	"github.com/sadewadee/marketing-engine/internal/domain"
)

var (
	// ErrInvalidInput is returned when a campaign input fails validation
	ErrInvalidInput = errors.New("invalid campaign input")
	// ErrPlanInvariant is returned when an assembled plan fails its own schema
	ErrPlanInvariant = errors.New("campaign plan invariant violated")
)

// FieldError describes one failed constraint
type FieldError struct {
	Field      string `json:"field"`
	Constraint string `json:"constraint"`
	Message    string `json:"message"`
}

func (f FieldError) String() string {
	return fmt.Sprintf("%s %s", f.Field, f.Message)
}

func joinFields(fields []FieldError) string {
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, f.String())
	}
	return strings.Join(parts, "; ")
}

// ValidationError reports a rejected campaign input
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", ErrInvalidInput, joinFields(e.Fields))
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}

// InvariantError reports a generated plan that failed validation.
// Plan holds the offending plan for diagnosis.
type InvariantError struct {
	Plan   *domain.CampaignPlan
	Fields []FieldError
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("%s: %s", ErrPlanInvariant, joinFields(e.Fields))
}

func (e *InvariantError) Unwrap() error {
	return ErrPlanInvariant
}
