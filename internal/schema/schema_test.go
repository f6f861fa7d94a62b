package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequiredColumns(t *testing.T) {
	s, err := Default()
	require.NoError(t, err)

	tests := []struct {
		table string
		want  string
	}{
		{TableOrders, "Customer Pays"},
		{TableInventory, "Out of stock days"},
		{TablePPC, "PPC Orders"},
		{TableIDMap, "Amazon-ASIN"},
		{TableProductMap, "Product Group"},
		{TableLiquidationLimits, "Liquidation Limit"},
		{TableHistorical, "Price/Qty"},
	}
	for _, tt := range tests {
		t.Run(tt.table, func(t *testing.T) {
			cols, err := s.RequiredColumns(tt.table)
			require.NoError(t, err)
			assert.Contains(t, cols, tt.want)
		})
	}
}

func TestRequiredColumnsUnknownTable(t *testing.T) {
	s, err := Default()
	require.NoError(t, err)

	_, err = s.RequiredColumns("returns")
	assert.Error(t, err)
}

func TestCompileRejectsInvalidCUE(t *testing.T) {
	_, err := Compile(`tables: {`)
	assert.Error(t, err)
}

func TestDefaultIsShared(t *testing.T) {
	a, err := Default()
	require.NoError(t, err)
	b, err := Default()
	require.NoError(t, err)
	assert.Same(t, a, b)
}
