package campaign

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sadewadee/marketing-engine/internal/domain"
)

func TestGenerateLayerDefaults(t *testing.T) {
	for _, v := range []domain.Vertical{domain.VerticalLocalService, domain.VerticalRealEstate} {
		assert.Equal(t, defaultLayers[domain.StageAwareness], GenerateAwarenessLayer(v))
		assert.Equal(t, defaultLayers[domain.StageConsideration], GenerateConsiderationLayer(v))
		assert.Equal(t, defaultLayers[domain.StageConversion], GenerateConversionLayer(v))
	}
}

func TestGenerateLayerOverrides(t *testing.T) {
	tests := []struct {
		name     string
		vertical domain.Vertical
		stage    domain.FunnelStage
		wantCTA  string
		intent   string
	}{
		{"ecommerce awareness", domain.VerticalEcommerce, domain.StageAwareness, "Shop Now", defaultLayers[domain.StageAwareness].AudienceIntent},
		{"ecommerce consideration", domain.VerticalEcommerce, domain.StageConsideration, "View Collection", defaultLayers[domain.StageConsideration].AudienceIntent},
		{"ecommerce conversion", domain.VerticalEcommerce, domain.StageConversion, "Buy Now", "Cart abandoners and product viewers"},
		{"saas awareness", domain.VerticalSaaS, domain.StageAwareness, "Read the Guide", defaultLayers[domain.StageAwareness].AudienceIntent},
		{"saas consideration", domain.VerticalSaaS, domain.StageConsideration, "Watch Demo", defaultLayers[domain.StageConsideration].AudienceIntent},
		{"saas conversion", domain.VerticalSaaS, domain.StageConversion, "Start Free Trial", "Trial-ready evaluators and pricing page visitors"},
		{"healthcare awareness keeps default", domain.VerticalHealthcare, domain.StageAwareness, "Learn More", defaultLayers[domain.StageAwareness].AudienceIntent},
		{"healthcare conversion", domain.VerticalHealthcare, domain.StageConversion, "Book Appointment", "Patients actively searching for care nearby"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := GenerateLayer(tt.stage, tt.vertical)
			assert.Equal(t, tt.stage, got.Stage)
			assert.Equal(t, tt.wantCTA, got.CTA)
			assert.Equal(t, tt.intent, got.AudienceIntent)
			assert.NotEmpty(t, got.MessageAngle)
			assert.NotEmpty(t, got.LandingPageFocus)
		})
	}
}

func TestGenerateLayerDoesNotMutateDefaults(t *testing.T) {
	before := defaultLayers[domain.StageConversion]
	_ = GenerateConversionLayer(domain.VerticalEcommerce)
	assert.Equal(t, before, defaultLayers[domain.StageConversion])
}
