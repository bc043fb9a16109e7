// Package properties reads and writes values inside nested map/list data
// addressed by paths of field names and list indices.
package properties

import "strconv"

// Path addresses a location inside nested data. Segments are either string
// (map key) or int (list index).
type Path []any

// PropertyTree describes the subset of a value to copy. A nil child is a leaf
// and selects the whole value under that key.
type PropertyTree map[string]PropertyTree

// AddProperty writes value at path inside root, creating intermediate
// containers as needed. The container created for a missing segment is a list
// when the following segment is an int and a map otherwise. Intermediate values
// that are not containers of the right shape are replaced.
func AddProperty(root map[string]any, path Path, value any) {
	if root == nil || len(path) == 0 {
		return
	}
	set(root, path, value)
}

func set(container any, path Path, value any) any {
	switch seg := path[0].(type) {
	case string:
		m, ok := container.(map[string]any)
		if !ok {
			m = make(map[string]any)
		}
		if len(path) == 1 {
			m[seg] = value
		} else {
			m[seg] = set(m[seg], path[1:], value)
		}
		return m
	case int:
		if seg < 0 {
			return container
		}
		s, _ := container.([]any)
		for len(s) <= seg {
			s = append(s, nil)
		}
		if len(path) == 1 {
			s[seg] = value
		} else {
			s[seg] = set(s[seg], path[1:], value)
		}
		return s
	default:
		return container
	}
}

// GetProperty reads the value at path. It returns nil when any segment is
// missing or addresses the wrong kind of container.
func GetProperty(root any, path Path) any {
	cur := root
	for _, seg := range path {
		switch s := seg.(type) {
		case string:
			m, ok := cur.(map[string]any)
			if !ok {
				return nil
			}
			if cur, ok = m[s]; !ok {
				return nil
			}
		case int:
			l, ok := cur.([]any)
			if !ok || s < 0 || s >= len(l) {
				return nil
			}
			cur = l[s]
		default:
			return nil
		}
	}
	return cur
}

// GetProperties copies the parts of root described by tree. Lists met along
// the way are preserved and the subtree is applied to every element. Keys
// absent from root are absent from the result.
func GetProperties(root any, tree PropertyTree) any {
	if tree == nil {
		return DeepCopy(root)
	}
	m, ok := root.(map[string]any)
	if !ok {
		return nil
	}
	out := make(map[string]any, len(tree))
	for key, sub := range tree {
		v, ok := m[key]
		if !ok {
			continue
		}
		if sub == nil {
			out[key] = DeepCopy(v)
			continue
		}
		out[key] = deepMap(v, func(item any) any { return GetProperties(item, sub) })
	}
	return out
}

func deepMap(v any, fn func(any) any) any {
	if l, ok := v.([]any); ok {
		out := make([]any, len(l))
		for i, item := range l {
			out[i] = deepMap(item, fn)
		}
		return out
	}
	if v == nil {
		return nil
	}
	return fn(v)
}

// PropertyTreeFromPaths folds paths into one tree. When one path ends where
// another continues, the subtree is kept whatever the order. An empty path
// selects the whole value and yields a nil tree.
func PropertyTreeFromPaths(paths []Path) PropertyTree {
	tree := PropertyTree{}
	for _, p := range paths {
		if len(p) == 0 {
			return nil
		}
		node := tree
		for i, seg := range p {
			key := segmentKey(seg)
			last := i == len(p)-1
			child, exists := node[key]
			switch {
			case last:
				if !exists {
					node[key] = nil
				}
			case child == nil:
				child = PropertyTree{}
				node[key] = child
				node = child
			default:
				node = child
			}
		}
	}
	return tree
}

// Paths lists the leaf paths of a tree in no particular order.
func (t PropertyTree) Paths() []Path {
	var out []Path
	for key, sub := range t {
		if sub == nil {
			out = append(out, Path{key})
			continue
		}
		for _, p := range sub.Paths() {
			out = append(out, append(Path{key}, p...))
		}
	}
	return out
}

func segmentKey(seg any) string {
	switch s := seg.(type) {
	case string:
		return s
	case int:
		return strconv.Itoa(s)
	default:
		return ""
	}
}

// HasListIndex reports whether any segment of p is an int.
func HasListIndex(p Path) bool {
	for _, seg := range p {
		if _, ok := seg.(int); ok {
			return true
		}
	}
	return false
}
