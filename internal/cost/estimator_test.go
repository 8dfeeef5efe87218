package cost

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokensForChars(t *testing.T) {
	assert.Equal(t, 0, TokensForChars(0))
	assert.Equal(t, 1, TokensForChars(1))
	assert.Equal(t, 1, TokensForChars(4))
	assert.Equal(t, 2, TokensForChars(5))
	assert.Equal(t, 250, TokensForChars(1000))
}

func TestEstimate_ZeroCostModel(t *testing.T) {
	e := NewEstimator(nil)

	costUSD, err := e.Estimate("extractor-local", 100_000, "extract_entities")
	require.NoError(t, err)
	assert.Equal(t, 0.0, costUSD)
}

func TestEstimate_PaidModel(t *testing.T) {
	e := NewEstimator(Catalog{
		"test-model": {InputUSDPerMTok: 10, OutputUSDPerMTok: 20},
	})

	// 4000 chars -> 1000 input tokens; summarize ratio 0.25 -> 250 output tokens.
	costUSD, err := e.Estimate("test-model", 4000, "summarize_document")
	require.NoError(t, err)

	expected := 1000*10.0/1_000_000 + 250*20.0/1_000_000
	assert.InDelta(t, expected, costUSD, 1e-9)
}

func TestEstimate_UnknownModel(t *testing.T) {
	e := NewEstimator(nil)
	_, err := e.Estimate("no-such-model", 100, "classify_document")
	assert.Error(t, err)
}

func TestEstimate_Deterministic(t *testing.T) {
	e := NewEstimator(nil)

	a, err := e.Estimate("analyst-deep", 12345, "analyze_significance")
	require.NoError(t, err)
	b, err := e.Estimate("analyst-deep", 12345, "analyze_significance")
	require.NoError(t, err)

	assert.Equal(t, a, b)
}

func TestCost_UsesReportedUsage(t *testing.T) {
	e := NewEstimator(Catalog{
		"test-model": {InputUSDPerMTok: 1, OutputUSDPerMTok: 2},
	})

	costUSD, err := e.Cost("test-model", 1_000_000, 500_000)
	require.NoError(t, err)
	assert.InDelta(t, 1.0+1.0, costUSD, 1e-9)
}

func TestEstimateDocument_Phase3Toggle(t *testing.T) {
	e := NewEstimator(nil)

	with, err := e.EstimateDocument(20_000, true)
	require.NoError(t, err)
	without, err := e.EstimateDocument(20_000, false)
	require.NoError(t, err)

	assert.Len(t, with.Phases, 5)
	assert.Len(t, without.Phases, 4)
	assert.Greater(t, with.TotalUSD, without.TotalUSD)

	for _, p := range without.Phases {
		assert.NotEqual(t, 3, p.Phase, "phase 3 must be absent when disabled")
	}
}

func TestEstimateDocument_Phase1IsFree(t *testing.T) {
	e := NewEstimator(nil)

	b, err := e.EstimateDocument(50_000, true)
	require.NoError(t, err)

	for _, p := range b.Phases {
		if p.Phase == 1 {
			assert.Equal(t, 0.0, p.CostUSD, "phase 1 runs on the zero-cost model class")
		} else {
			assert.Greater(t, p.CostUSD, 0.0)
		}
	}
}
