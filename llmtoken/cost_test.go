package llmtoken

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/AzielCF/chatbot-platform/domain"
	"github.com/AzielCF/chatbot-platform/llmprovider"
)

func TestComputeCost_SplitsCachedFromUncached(t *testing.T) {
	rate := domain.TokenMenuTier{InputRate: 2.0, CachedRate: 0.5, OutputRate: 8.0}
	usage := llmprovider.Usage{InputTokens: 1_000_000, CachedInputTokens: 400_000, OutputTokens: 100_000}

	// 600k uncached * $2/M + 400k cached * $0.5/M + 100k out * $8/M
	assert.InDelta(t, 1.2+0.2+0.8, ComputeCost(rate, usage), 1e-9)
}

func TestComputeCost_CachedExceedingInputClampsToZero(t *testing.T) {
	rate := domain.TokenMenuTier{InputRate: 2.0, CachedRate: 0.5, OutputRate: 8.0}
	usage := llmprovider.Usage{InputTokens: 100, CachedInputTokens: 200}

	assert.InDelta(t, float64(200)*0.5/1e6, ComputeCost(rate, usage), 1e-12)
}

func TestRateForTier(t *testing.T) {
	menu := domain.TokenMenu{
		High: domain.TokenMenuTier{InputRate: 10},
		Low:  domain.TokenMenuTier{InputRate: 1},
	}
	assert.Equal(t, 10.0, RateForTier(menu, domain.TierHigh).InputRate)
	assert.Equal(t, 1.0, RateForTier(menu, domain.TierLow).InputRate)
}
