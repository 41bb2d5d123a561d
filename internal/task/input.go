package task

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// MergeInput overlays overrides on the top-level fields of a JSON input
// document. Numbers in the document keep their exact decimal text.
func MergeInput(raw []byte, overrides map[string]any) ([]byte, error) {
	if len(overrides) == 0 {
		return raw, nil
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var doc map[string]any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("input is not a JSON object: %w", err)
	}
	if doc == nil {
		doc = make(map[string]any, len(overrides))
	}
	for k, v := range overrides {
		doc[k] = v
	}

	merged, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to encode merged input: %w", err)
	}
	return merged, nil
}
