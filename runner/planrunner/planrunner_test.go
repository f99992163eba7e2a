package planrunner

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sadewadee/marketing-engine/internal/campaign"
	"github.com/sadewadee/marketing-engine/internal/domain"
)

func run(t *testing.T, cfg *Config) (*domain.CampaignPlan, error) {
	t.Helper()

	var out bytes.Buffer
	cfg.Output = &out

	r, err := New(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	defer r.Close(context.Background())

	if err := r.Run(context.Background()); err != nil {
		return nil, err
	}

	var plan domain.CampaignPlan
	require.NoError(t, json.Unmarshal(out.Bytes(), &plan))
	return &plan, nil
}

func TestRunFromFlags(t *testing.T) {
	plan, err := run(t, &Config{Input: domain.CampaignInput{
		Vertical:  domain.VerticalSaaS,
		Objective: domain.ObjectiveLeads,
		Budget:    6000,
		Currency:  "USD",
	}})
	require.NoError(t, err)

	assert.Equal(t, domain.VerticalSaaS, plan.Summary.Vertical)
	assert.NotEmpty(t, plan.Campaigns)
}

func TestRunFromStdinWithOverrides(t *testing.T) {
	plan, err := run(t, &Config{
		InputFile: "-",
		Stdin:     strings.NewReader(`{"vertical":"E-commerce","objective":"Sales","budget":3000,"currency":"USD"}`),
		Input:     domain.CampaignInput{Budget: 800},
	})
	require.NoError(t, err)

	assert.Equal(t, domain.VerticalEcommerce, plan.Summary.Vertical)
	assert.Equal(t, domain.TierSmall, plan.Summary.BudgetTier)
}

func TestRunFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "input.json")
	require.NoError(t, os.WriteFile(path,
		[]byte(`{"vertical":"Local Service","objective":"Leads","budget":1500,"currency":"USD"}`), 0o600))

	plan, err := run(t, &Config{InputFile: path})
	require.NoError(t, err)
	assert.Equal(t, domain.VerticalLocalService, plan.Summary.Vertical)
}

func TestRunErrors(t *testing.T) {
	tests := []struct {
		name string
		cfg  *Config
	}{
		{"missing file", &Config{InputFile: filepath.Join(t.TempDir(), "nope.json")}},
		{"malformed json", &Config{InputFile: "-", Stdin: strings.NewReader("{")}},
		{"invalid input", &Config{Input: domain.CampaignInput{Vertical: "Bakery", Objective: domain.ObjectiveLeads, Budget: 100}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, tt.cfg)
			assert.Error(t, err)
		})
	}

	_, err := run(t, &Config{Input: domain.CampaignInput{Vertical: "Bakery", Objective: domain.ObjectiveLeads, Budget: 100}})
	assert.ErrorIs(t, err, campaign.ErrInvalidInput)
}

func TestMerge(t *testing.T) {
	base := domain.CampaignInput{Vertical: domain.VerticalSaaS, Objective: domain.ObjectiveLeads, Budget: 100, Currency: "USD"}

	got := merge(base, domain.CampaignInput{Currency: "EUR", BrandName: "Acme"})

	assert.Equal(t, domain.VerticalSaaS, got.Vertical)
	assert.Equal(t, 100.0, got.Budget)
	assert.Equal(t, "EUR", got.Currency)
	assert.Equal(t, "Acme", got.BrandName)
}
