package sections

import (
	"encoding/json"
	"fmt"
)

// MergeMetadata shallow-merges patch into existing: keys in patch replace
// the same top-level keys, every other existing key is kept. Nested
// objects and arrays are replaced whole. It mirrors the store's
// `metadata || patch` update so both paths agree.
func MergeMetadata(existing json.RawMessage, patch map[string]any) (json.RawMessage, error) {
	merged := map[string]json.RawMessage{}
	if len(existing) > 0 && string(existing) != "null" {
		if err := json.Unmarshal(existing, &merged); err != nil {
			return nil, fmt.Errorf("merge metadata: existing is not an object: %w", err)
		}
	}
	for k, v := range patch {
		b, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("merge metadata key %q: %w", k, err)
		}
		merged[k] = b
	}
	out, err := json.Marshal(merged)
	if err != nil {
		return nil, fmt.Errorf("merge metadata: %w", err)
	}
	return out, nil
}
