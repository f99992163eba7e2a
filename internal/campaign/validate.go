package campaign

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/sadewadee/marketing-engine/internal/domain"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func schema() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())

		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})

		mustRegister(v, "vertical", func(fl validator.FieldLevel) bool {
			return domain.Vertical(fl.Field().String()).IsValid()
		})
		mustRegister(v, "objective", func(fl validator.FieldLevel) bool {
			return domain.Objective(fl.Field().String()).IsValid()
		})
		mustRegister(v, "channel", func(fl validator.FieldLevel) bool {
			return domain.Channel(fl.Field().String()).IsValid()
		})
		mustRegister(v, "stage", func(fl validator.FieldLevel) bool {
			return domain.FunnelStage(fl.Field().String()).IsValid()
		})
		mustRegister(v, "finite", func(fl validator.FieldLevel) bool {
			f := fl.Field().Float()
			return !math.IsInf(f, 0) && !math.IsNaN(f)
		})

		v.RegisterStructValidation(planBudgetRules, domain.CampaignPlan{})

		validate = v
	})

	return validate
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("campaign: register %q validation: %v", tag, err))
	}
}

// planBudgetRules checks that neither campaigns nor channels spend more
// than the plan's total budget.
func planBudgetRules(sl validator.StructLevel) {
	plan := sl.Current().Interface().(domain.CampaignPlan)

	if float64(plan.TotalCampaignBudget()) > plan.Summary.TotalBudget {
		sl.ReportError(plan.Campaigns, "campaigns", "Campaigns", "budget_total", "")
	}

	var channelTotal int64
	for _, c := range plan.Channels {
		channelTotal += c.Budget
	}
	if float64(channelTotal) > plan.Summary.TotalBudget {
		sl.ReportError(plan.Channels, "channels", "Channels", "budget_total", "")
	}
}

// ValidateInput checks a campaign input against its schema
func ValidateInput(input domain.CampaignInput) error {
	if err := schema().Struct(input); err != nil {
		return &ValidationError{Fields: fieldErrors(err)}
	}
	return nil
}

// ValidatePlan checks an assembled plan against its schema
func ValidatePlan(plan *domain.CampaignPlan) error {
	if plan == nil {
		return &InvariantError{Fields: []FieldError{{Field: "plan", Constraint: "required", Message: "is required"}}}
	}
	if err := schema().Struct(plan); err != nil {
		return &InvariantError{Plan: plan, Fields: fieldErrors(err)}
	}
	return nil
}

func fieldErrors(err error) []FieldError {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []FieldError{{Field: "", Constraint: "schema", Message: err.Error()}}
	}

	out := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, FieldError{
			Field:      fieldPath(fe.Namespace()),
			Constraint: fe.Tag(),
			Message:    constraintMessage(fe),
		})
	}

	return out
}

// fieldPath drops the root struct name from a validator namespace
func fieldPath(ns string) string {
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return ns
}

func constraintMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "gt":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	case "gte":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "lte":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "len":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("must have exactly %s entries", fe.Param())
		}
		return fmt.Sprintf("must be exactly %s characters", fe.Param())
	case "min":
		return fmt.Sprintf("must have at least %s entries", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "alpha":
		return "must contain letters only"
	case "finite":
		return "must be a finite number"
	case "vertical":
		return "must be one of: " + joinValues(domain.Verticals)
	case "objective":
		return "must be one of: " + joinValues(domain.Objectives)
	case "channel":
		return "must be a known channel"
	case "stage":
		return "must be one of: " + joinValues(domain.FunnelStages)
	case "budget_total":
		return "exceed the plan's total budget"
	}

	return fmt.Sprintf("failed the %q constraint", fe.Tag())
}

func joinValues[T ~string](values []T) string {
	parts := make([]string, 0, len(values))
	for _, v := range values {
		parts = append(parts, string(v))
	}
	return strings.Join(parts, ", ")
}
