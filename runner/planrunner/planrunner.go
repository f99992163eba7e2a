package planrunner

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/sadewadee/marketing-engine/internal/contentadapt"
	"github.com/sadewadee/marketing-engine/internal/domain"
	"github.com/sadewadee/marketing-engine/internal/service"
	"github.com/sadewadee/marketing-engine/runner"
)

// Config holds configuration for the plan runner
type Config struct {
	// InputFile is a JSON campaign input. "-" reads stdin; empty uses Input as is.
	InputFile string

	// Input is the campaign input, or the overrides applied over InputFile
	Input domain.CampaignInput

	// Output receives the plan as indented JSON (default: stdout)
	Output io.Writer
	Stdin  io.Reader

	GeminiAPIKey string
	GeminiModel  string
}

// PlanRunner generates one campaign plan and prints it
type PlanRunner struct {
	cfg     *Config
	planner *service.CampaignPlanService
	logger  *zap.Logger
}

// New creates a new PlanRunner
func New(ctx context.Context, cfg *Config, logger *zap.Logger) (runner.Runner, error) {
	if cfg.Output == nil {
		cfg.Output = os.Stdout
	}
	if cfg.Stdin == nil {
		cfg.Stdin = os.Stdin
	}

	var adapter contentadapt.Adapter
	if cfg.GeminiAPIKey != "" {
		genai, err := contentadapt.NewGenAIAdapter(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			return nil, err
		}
		adapter = genai
	}

	return &PlanRunner{
		cfg:     cfg,
		planner: service.NewCampaignPlanService(adapter, runner.Telemetry(), nil, logger),
		logger:  logger,
	}, nil
}

// Run reads the input, generates the plan and writes it to Output
func (p *PlanRunner) Run(ctx context.Context) error {
	input, err := p.readInput()
	if err != nil {
		return err
	}

	plan, err := p.planner.Generate(ctx, input)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(p.cfg.Output)
	enc.SetIndent("", "  ")

	return enc.Encode(plan)
}

// Close is a no-op
func (p *PlanRunner) Close(context.Context) error {
	return nil
}

func (p *PlanRunner) readInput() (domain.CampaignInput, error) {
	var (
		input domain.CampaignInput
		r     io.Reader
	)

	switch p.cfg.InputFile {
	case "":
		return p.cfg.Input, nil
	case "-":
		r = p.cfg.Stdin
	default:
		f, err := os.Open(p.cfg.InputFile)
		if err != nil {
			return input, fmt.Errorf("open input: %w", err)
		}
		defer f.Close()
		r = f
	}

	if err := json.NewDecoder(r).Decode(&input); err != nil {
		return input, fmt.Errorf("decode input: %w", err)
	}

	return merge(input, p.cfg.Input), nil
}

// merge applies the non-zero fields of overrides over base
func merge(base, overrides domain.CampaignInput) domain.CampaignInput {
	if overrides.Vertical != "" {
		base.Vertical = overrides.Vertical
	}
	if overrides.Objective != "" {
		base.Objective = overrides.Objective
	}
	if overrides.Budget != 0 {
		base.Budget = overrides.Budget
	}
	if overrides.Currency != "" {
		base.Currency = overrides.Currency
	}
	if overrides.BrandName != "" {
		base.BrandName = overrides.BrandName
	}
	return base
}
