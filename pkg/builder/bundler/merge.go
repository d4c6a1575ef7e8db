package bundler

import (
	"encoding/json"
	"fmt"
)

// ToMap converts a typed config into its generic map form so user supplied
// fragments can be merged over it.
func ToMap(cfg any) (map[string]any, error) {
	data, err := json.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to encode config: %w", err)
	}

	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	return out, nil
}

// Merge deep merges src over dst. Nested maps merge recursively, every other
// value in src replaces the dst value. dst is modified and returned.
func Merge(dst, src map[string]any) map[string]any {
	if dst == nil {
		dst = make(map[string]any, len(src))
	}

	for key, value := range src {
		srcMap, srcOk := value.(map[string]any)
		dstMap, dstOk := dst[key].(map[string]any)

		if srcOk && dstOk {
			dst[key] = Merge(dstMap, srcMap)
			continue
		}

		dst[key] = value
	}

	return dst
}
