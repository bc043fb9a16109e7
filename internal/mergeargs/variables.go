package mergeargs

import (
	"github.com/hanpama/graphstitch/internal/language"
	"github.com/hanpama/graphstitch/internal/properties"
)

// VariablePath is one occurrence of a variable inside a literal value.
type VariablePath struct {
	Name string
	Path properties.Path
}

// ExtractVariables returns a copy of value with every variable replaced by
// null, together with the variables in document order. Object fields add
// string segments to the path and list items add int segments.
func ExtractVariables(value *language.Value) (*language.Value, []VariablePath) {
	var vars []VariablePath
	out := extract(value, nil, &vars)
	return out, vars
}

func extract(value *language.Value, path properties.Path, vars *[]VariablePath) *language.Value {
	if value == nil {
		return nil
	}
	switch value.Kind {
	case language.Variable:
		*vars = append(*vars, VariablePath{Name: value.Raw, Path: append(properties.Path{}, path...)})
		return &language.Value{Kind: language.NullValue, Raw: "null", Position: value.Position}
	case language.ObjectValue, language.ListValue:
		c := *value
		c.Children = make(language.ChildValueList, len(value.Children))
		for i, child := range value.Children {
			var seg any = child.Name
			if value.Kind == language.ListValue {
				seg = i
			}
			c.Children[i] = &language.ChildValue{
				Name:     child.Name,
				Value:    extract(child.Value, append(path, seg), vars),
				Position: child.Position,
			}
		}
		return &c
	default:
		return value
	}
}
