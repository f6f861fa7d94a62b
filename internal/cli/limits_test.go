package cli

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/salesmix/internal/ingest"
	"github.com/roach88/salesmix/internal/model"
	"github.com/roach88/salesmix/internal/sink"
	"github.com/roach88/salesmix/internal/tabular"
	"github.com/roach88/salesmix/internal/testutil"
)

func newTestLimits(format string, ids ...string) *cobra.Command {
	return newLimitsCommand(&LimitsOptions{
		RootOptions: &RootOptions{Format: format},
		RunIDs:      testutil.NewFixedRunIDs(ids...),
	})
}

func TestLimitsWritesCSV(t *testing.T) {
	cfgPath := newWorkspace(t)
	out := filepath.Join(t.TempDir(), "limits.csv")

	stdout, _, err := execute(newTestLimits("text"), "--config", cfgPath, "--start", "2019-01", "--end", "2019-04", "-o", out)
	require.NoError(t, err)
	assert.Contains(t, stdout, "Generated 6 limit(s) for 2 product(s) over 3 month(s)")

	tbl, err := tabular.ReadCSV(out, "limits")
	require.NoError(t, err)
	res, err := ingest.LiquidationLimits(tbl)
	require.NoError(t, err)
	require.Len(t, res.Value, 6)
	assert.Empty(t, res.Diagnostics)

	first := res.Value[0]
	assert.Equal(t, time.January, first.Month)
	assert.Equal(t, "0.2", first.Fraction.String())
	assert.Equal(t, "29.97", first.StandardPrice.String())
}

func TestLimitsFlagOverrides(t *testing.T) {
	cfgPath := newWorkspace(t)
	out := filepath.Join(t.TempDir(), "limits.xlsx")

	_, _, err := execute(newTestLimits("text"), "--config", cfgPath,
		"--start", "2019-12", "--end", "2020-01", "--fraction", "0.25", "--price", "40", "-o", out)
	require.NoError(t, err)

	tbl, err := tabular.ReadXLSX(out, "Input-Liquidation-Limits")
	require.NoError(t, err)
	res, err := ingest.LiquidationLimits(tbl)
	require.NoError(t, err)
	require.Len(t, res.Value, 2)
	for _, l := range res.Value {
		assert.Equal(t, model.LimitKey{Product: l.Product, Year: 2019, Month: time.December}, l.Key())
		assert.Equal(t, "30", l.Ceiling().String())
	}
}

func TestLimitsPublishesToSink(t *testing.T) {
	cfgPath := newWorkspace(t)

	stdout, _, err := execute(newTestLimits("json", "limits-run"), "--config", cfgPath, "--start", "2019-01", "--end", "2019-02")
	require.NoError(t, err)

	var resp struct {
		Status string       `json:"status"`
		RunID  string       `json:"run_id"`
		Data   LimitsResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, "limits-run", resp.RunID)
	assert.Equal(t, 2, resp.Data.Rows)
	assert.Equal(t, "sqlite:test-ds-limits", resp.Data.Destination)

	st, err := sink.OpenSQLite(filepath.Join(filepath.Dir(cfgPath), "out.db"), nil)
	require.NoError(t, err)
	defer st.Close()

	tbl, err := st.ReadTable(context.Background(), "test-ds"+LimitsDatasetSuffix, "Input-Liquidation-Limits")
	require.NoError(t, err)
	assert.Equal(t, 2, tbl.Len())

	_, err = st.LastRun(context.Background(), "test-ds")
	assert.ErrorIs(t, err, sink.ErrNoRun, "limits never touch the output dataset")
}

func TestLimitsRejectsBadFlags(t *testing.T) {
	cfgPath := newWorkspace(t)

	tests := []struct {
		name string
		args []string
	}{
		{"bad start", []string{"--start", "January", "--end", "2019-02"}},
		{"end before start", []string{"--start", "2019-05", "--end", "2019-02"}},
		{"bad fraction", []string{"--start", "2019-01", "--end", "2019-02", "--fraction", "1.5"}},
		{"bad price", []string{"--start", "2019-01", "--end", "2019-02", "--price", "cheap"}},
		{"bad extension", []string{"--start", "2019-01", "--end", "2019-02", "-o", filepath.Join(t.TempDir(), "l.txt")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := execute(newTestLimits("text"), append([]string{"--config", cfgPath}, tt.args...)...)
			require.Error(t, err)
		})
	}
}

func TestLimitsRequiresStartAndEnd(t *testing.T) {
	_, _, err := execute(newTestLimits("text"), "--start", "2019-01")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required flag")
}

func TestLimitsXLSXSinkNeedsOutput(t *testing.T) {
	cfgPath := newWorkspace(t)
	data, err := os.ReadFile(cfgPath)
	require.NoError(t, err)
	cfg := string(data)
	cfg = replaceOnce(t, cfg, "driver: sqlite", "driver: xlsx")
	cfg = replaceOnce(t, cfg, "path: out.db", "path: out.xlsx")
	writeTestFile(t, cfgPath, cfg)

	_, _, err = execute(newTestLimits("text"), "--config", cfgPath, "--start", "2019-01", "--end", "2019-02")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
