package delegate

// MergeInto merges a later-arriving object into the accumulated target.
// Keys missing from target are added. Keys present in both keep the target
// value unless override reports the key, in which case the source wins.
// Objects present on both sides merge recursively, lists element-wise when
// their lengths agree.
func MergeInto(target, source map[string]any, override func(key string) bool) {
	for key, v := range source {
		existing, ok := target[key]
		if !ok {
			target[key] = v
			continue
		}
		canonical := override != nil && override(key)
		target[key] = mergeValue(existing, v, canonical)
	}
}

func mergeValue(existing, incoming any, override bool) any {
	switch e := existing.(type) {
	case map[string]any:
		if in, ok := incoming.(map[string]any); ok {
			if override {
				MergeInto(e, in, func(string) bool { return true })
			} else {
				MergeInto(e, in, nil)
			}
			return e
		}
	case []any:
		if in, ok := incoming.([]any); ok && len(in) == len(e) {
			for i := range e {
				e[i] = mergeValue(e[i], in[i], override)
			}
			return e
		}
	case nil:
		return incoming
	}
	if override {
		return incoming
	}
	return existing
}
