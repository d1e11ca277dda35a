package embedding

import (
	"encoding/json"
	"fmt"
)

// parseVector accepts a flat numeric array or an array of arrays, which is
// flattened one level.
func parseVector(raw json.RawMessage) ([]float32, error) {
	var flat []float32
	if err := json.Unmarshal(raw, &flat); err == nil {
		if len(flat) == 0 {
			return nil, fmt.Errorf("empty embedding")
		}
		return flat, nil
	}

	var nested [][]float32
	if err := json.Unmarshal(raw, &nested); err != nil {
		return nil, fmt.Errorf("embedding is not a numeric array: %w", err)
	}

	out := make([]float32, 0, len(nested)*len(firstOrNil(nested)))
	for _, row := range nested {
		out = append(out, row...)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("empty embedding")
	}
	return out, nil
}

func firstOrNil(rows [][]float32) []float32 {
	if len(rows) == 0 {
		return nil
	}
	return rows[0]
}
