package sink

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/salesmix/internal/model"
)

// marshalCells encodes a row as canonical JSON so that identical rows are
// stored as identical text.
func marshalCells(cells []string) (string, error) {
	list := make([]any, len(cells))
	for i, c := range cells {
		list[i] = c
	}
	data, err := model.MarshalCanonical(list)
	if err != nil {
		return "", fmt.Errorf("marshal cells: %w", err)
	}
	return string(data), nil
}

func unmarshalCells(s string) ([]string, error) {
	var cells []string
	if err := json.Unmarshal([]byte(s), &cells); err != nil {
		return nil, fmt.Errorf("unmarshal cells: %w", err)
	}
	return cells, nil
}
