package main

import (
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInspectCommand_MissingJobFlag(t *testing.T) {
	binaryPath := getBinaryPath(t)

	cmd := exec.Command(binaryPath, "inspect")
	output, err := cmd.CombinedOutput()

	assert.Error(t, err)
	assert.Contains(t, string(output), "required")
}

func TestInspectCommand_InvalidJobID(t *testing.T) {
	binaryPath := getBinaryPath(t)

	cmd := exec.Command(binaryPath, "inspect", "--job", "not-a-uuid")
	output, err := cmd.CombinedOutput()

	assert.Error(t, err)
	assert.Contains(t, string(output), "invalid job id")
}
