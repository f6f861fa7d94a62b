package sink

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/salesmix/internal/tabular"
)

func TestXLSXPublish(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.xlsx")
	x := NewXLSX(path, quiet)
	ctx := context.Background()

	require.NoError(t, x.Publish(ctx, testPublication("run-1",
		testTable("Output File", []string{"P1", "10"}),
		testTable("Calc-Liquidation", []string{"P1", "3"}),
	)))

	out, err := tabular.ReadXLSX(path, "Output File")
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"P1", "10"}}, out.Rows)

	st, err := x.LastRun(ctx, "ds-1")
	require.NoError(t, err)
	assert.Equal(t, "run-1", st.RunID)
	assert.Equal(t, 2, st.Tables)
	assert.True(t, st.Complete)

	// No temporary file is left behind.
	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestXLSXPublish_Replaces(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.xlsx")
	x := NewXLSX(path, quiet)
	ctx := context.Background()

	require.NoError(t, x.Publish(ctx, testPublication("run-1", testTable("Output File", []string{"P1", "10"}))))
	require.NoError(t, x.Publish(ctx, testPublication("run-2", testTable("Output File", []string{"P2", "1"}))))

	out, err := tabular.ReadXLSX(path, "Output File")
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"P2", "1"}}, out.Rows)

	st, err := x.LastRun(ctx, "ds-1")
	require.NoError(t, err)
	assert.Equal(t, "run-2", st.RunID)
}

func TestXLSXLastRun(t *testing.T) {
	ctx := context.Background()

	t.Run("no workbook", func(t *testing.T) {
		x := NewXLSX(filepath.Join(t.TempDir(), "none.xlsx"), quiet)
		_, err := x.LastRun(ctx, "ds-1")
		assert.True(t, errors.Is(err, ErrNoRun))
	})

	t.Run("workbook without marker is incomplete", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "plain.xlsx")
		require.NoError(t, tabular.WriteXLSX(path, testTable("Output File", []string{"P1", "1"})))

		st, err := NewXLSX(path, quiet).LastRun(ctx, "ds-1")
		require.NoError(t, err)
		assert.False(t, st.Complete)
	})

	t.Run("other dataset", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "out.xlsx")
		x := NewXLSX(path, quiet)
		require.NoError(t, x.Publish(ctx, testPublication("run-1", testTable("Output File"))))

		_, err := x.LastRun(ctx, "ds-2")
		assert.True(t, errors.Is(err, ErrNoRun))
	})
}

func TestXLSXPublish_ReservedName(t *testing.T) {
	x := NewXLSX(filepath.Join(t.TempDir(), "out.xlsx"), quiet)
	err := x.Publish(context.Background(), testPublication("run-1", testTable(RunSheet)))
	assert.Error(t, err)
}
