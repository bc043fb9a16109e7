package properties

// DeepCopy copies nested map[string]any and []any values. Other values are
// returned as is.
func DeepCopy(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = DeepCopy(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = DeepCopy(val)
		}
		return out
	default:
		return v
	}
}

// MergeDeep merges source into a copy of target. Maps are merged key by key;
// any other source value, lists included, replaces the target value.
// Neither argument is modified.
func MergeDeep(target, source any) any {
	tm, tok := target.(map[string]any)
	sm, sok := source.(map[string]any)
	if !tok || !sok {
		return DeepCopy(source)
	}
	out := make(map[string]any, len(tm)+len(sm))
	for k, v := range tm {
		out[k] = DeepCopy(v)
	}
	for k, v := range sm {
		if existing, ok := out[k]; ok {
			out[k] = MergeDeep(existing, v)
			continue
		}
		out[k] = DeepCopy(v)
	}
	return out
}
