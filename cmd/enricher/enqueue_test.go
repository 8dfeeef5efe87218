package main

import (
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEnqueueCommand_MissingFileFlag(t *testing.T) {
	binaryPath := getBinaryPath(t)

	cmd := exec.Command(binaryPath, "enqueue")
	output, err := cmd.CombinedOutput()

	assert.Error(t, err)
	assert.Contains(t, string(output), "required")
}

func TestEnqueueCommand_BatchFileNotFound(t *testing.T) {
	binaryPath := getBinaryPath(t)

	cmd := exec.Command(binaryPath, "enqueue", "--file", "does-not-exist.json")
	output, err := cmd.CombinedOutput()

	assert.Error(t, err)
	assert.Contains(t, string(output), "failed to read batch file")
}
