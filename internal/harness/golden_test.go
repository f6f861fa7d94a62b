package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunWithGolden(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/single_product_split.yaml")
	require.NoError(t, err)

	result, err := RunWithGolden(t, s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestSnapshotJSON_Stable(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/over_allocation.yaml")
	require.NoError(t, err)

	result, err := Run(s)
	require.NoError(t, err)

	a, err := SnapshotJSON(s.Name, result)
	require.NoError(t, err)
	b, err := SnapshotJSON(s.Name, result)
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Contains(t, string(a), `"kind":"over_allocation"`)
	assert.Contains(t, string(a), `"scenario_name":"over_allocation"`)
}
