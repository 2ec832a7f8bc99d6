package config

import "strings"

// Merge returns a new mapping with override applied over base. Nested
// mappings are merged recursively; on conflicting leaf keys the override
// value wins. Neither input is mutated, and merging a mapping over itself
// yields an equal mapping.
//
// Keys are folded to lower case on the way in. The viper-backed store already
// reports keys in lower case, so folding here keeps programmatic overrides
// ("requestTimeout") and store-sourced trees ("requesttimeout") on the same
// key.
func Merge(base, override map[string]any) map[string]any {
	merged := make(map[string]any, len(base)+len(override))
	for key, value := range base {
		merged[foldKey(key)] = cloneValue(value)
	}
	for key, value := range override {
		key = foldKey(key)
		if existing, ok := merged[key].(map[string]any); ok {
			if nested, ok := value.(map[string]any); ok {
				merged[key] = Merge(existing, nested)
				continue
			}
		}
		merged[key] = cloneValue(value)
	}
	return merged
}

func foldKey(key string) string {
	return strings.ToLower(key)
}

func cloneValue(value any) any {
	if nested, ok := value.(map[string]any); ok {
		return cloneMap(nested)
	}
	return value
}

func cloneMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for key, value := range m {
		out[foldKey(key)] = cloneValue(value)
	}
	return out
}
