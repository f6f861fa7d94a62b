package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusAfterRun(t *testing.T) {
	cfgPath := newWorkspace(t)
	_, _, err := execute(newRunCommand(newTestRun("text", "run-status")), "--config", cfgPath)
	require.NoError(t, err)

	stdout, _, err := execute(NewStatusCommand(&RootOptions{Format: "json"}), "--config", cfgPath)
	require.NoError(t, err)

	var resp struct {
		Status string       `json:"status"`
		RunID  string       `json:"run_id"`
		Data   StatusResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, "run-status", resp.RunID)
	assert.True(t, resp.Data.Run.Complete)
	assert.Equal(t, 3, resp.Data.Run.Rows)
	require.NotNil(t, resp.Data.Manifest)
	assert.Equal(t, "run-status", resp.Data.Manifest.RunID)
}

func TestStatusText(t *testing.T) {
	cfgPath := newWorkspace(t)
	_, _, err := execute(newRunCommand(newTestRun("text", "run-text")), "--config", cfgPath)
	require.NoError(t, err)

	stdout, _, err := execute(NewStatusCommand(&RootOptions{Format: "text"}), "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, stdout, "Dataset test-ds: run run-text (complete)")
}

func TestStatusNoRun(t *testing.T) {
	cfgPath := newWorkspace(t)

	stdout, _, err := execute(NewStatusCommand(&RootOptions{Format: "json"}), "--config", cfgPath)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, ErrCodeNotFound, resp.Error.Code)
}
