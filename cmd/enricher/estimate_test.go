package main

import (
	"encoding/json"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/archive-enricher/internal/cost"
)

func TestEstimateCommand_MissingCharsFlag(t *testing.T) {
	binaryPath := getBinaryPath(t)

	cmd := exec.Command(binaryPath, "estimate")
	output, err := cmd.CombinedOutput()

	assert.Error(t, err)
	assert.Contains(t, string(output), "required")
}

func TestEstimateCommand_PrintsBreakdown(t *testing.T) {
	binaryPath := getBinaryPath(t)

	cmd := exec.Command(binaryPath, "estimate", "--chars", "8000")
	output, err := cmd.CombinedOutput()
	require.NoError(t, err, string(output))

	var breakdown cost.Breakdown
	require.NoError(t, json.Unmarshal(output, &breakdown))
	assert.Len(t, breakdown.Phases, 5)
	assert.Greater(t, breakdown.TotalUSD, 0.0)
}

func TestEstimateCommand_Phase3Disabled(t *testing.T) {
	binaryPath := getBinaryPath(t)

	cmd := exec.Command(binaryPath, "estimate", "--chars", "8000", "--phase3=false")
	output, err := cmd.CombinedOutput()
	require.NoError(t, err, string(output))

	var breakdown cost.Breakdown
	require.NoError(t, json.Unmarshal(output, &breakdown))
	assert.Len(t, breakdown.Phases, 4)
	for _, p := range breakdown.Phases {
		assert.NotEqual(t, 3, p.Phase)
	}
}

func TestEstimateCommand_ZeroChars(t *testing.T) {
	binaryPath := getBinaryPath(t)

	cmd := exec.Command(binaryPath, "estimate", "--chars", "0")
	output, err := cmd.CombinedOutput()

	assert.Error(t, err)
	assert.Contains(t, string(output), "positive")
}
