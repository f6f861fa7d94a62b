package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/salesmix/internal/model"
)

// SnapshotJSON renders a result as canonical JSON for golden comparison:
// the scenario name, the rows digest, every row and every diagnostic.
func SnapshotJSON(scenarioName string, result *Result) ([]byte, error) {
	rows := make([]any, len(result.Rows))
	for i, r := range result.Rows {
		rows[i] = model.CanonicalRow(r)
	}
	diags := make([]any, len(result.Diagnostics))
	for i, d := range result.Diagnostics {
		diags[i] = map[string]any{
			"kind":    string(d.Kind),
			"stage":   d.Stage,
			"key":     d.Key,
			"message": d.Message,
		}
	}
	return model.MarshalCanonical(map[string]any{
		"scenario_name": scenarioName,
		"digest":        result.Digest,
		"rows":          rows,
		"diagnostics":   diags,
	})
}

// RunWithGolden executes a scenario and compares its snapshot against a
// golden file stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result against its golden file.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	data, err := SnapshotJSON(scenarioName, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)

	return nil
}
