package sink

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalCells(t *testing.T) {
	tests := []struct {
		name  string
		cells []string
		want  string
	}{
		{"empty", []string{}, `[]`},
		{"plain", []string{"P1", "10"}, `["P1","10"]`},
		{"no html escaping", []string{"A&B <x>"}, `["A&B <x>"]`},
		{"empty cell", []string{"", "x"}, `["","x"]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := marshalCells(tt.cells)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)

			back, err := unmarshalCells(got)
			require.NoError(t, err)
			assert.Equal(t, len(tt.cells), len(back))
		})
	}
}

func TestUnmarshalCells_Invalid(t *testing.T) {
	_, err := unmarshalCells(`{"a":1}`)
	assert.Error(t, err)
}
