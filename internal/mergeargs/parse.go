package mergeargs

import (
	"fmt"
	"strings"

	"github.com/hanpama/graphstitch/internal/language"
	"github.com/hanpama/graphstitch/internal/properties"
)

// MappingInstruction copies the key value at SourcePath to DestinationPath
// inside the argument object.
type MappingInstruction struct {
	SourcePath      properties.Path
	DestinationPath properties.Path
}

// Expansion is one "[[ ... ]]" block. At request time Value is instantiated
// once per key and the resulting list is written at ValuePath.
type Expansion struct {
	ValuePath           properties.Path
	Value               any
	MappingInstructions []MappingInstruction
}

// ParsedExpr is a compiled merge argument expression. Exactly one of
// MappingInstructions and Expansions is set.
type ParsedExpr struct {
	Args                map[string]any
	UsedProperties      properties.PropertyTree
	MappingInstructions []MappingInstruction
	Expansions          []Expansion
}

// IsExpansion reports whether the expression builds list arguments from a
// batch of keys.
func (p *ParsedExpr) IsExpansion() bool { return len(p.Expansions) > 0 }

// Parse compiles expr. The selection set is the key selection of the target
// type; a bare "$key" expands to every path it selects plus __typename. A nil
// selection set makes a bare "$key" select the whole key object.
func Parse(expr string, selectionSet language.SelectionSet) (*ParsedExpr, error) {
	pre, err := preparse(expr)
	if err != nil {
		return nil, err
	}

	value, err := language.ParseValue("{ " + pre.expr + " }")
	if err != nil {
		return nil, fmt.Errorf("merge arguments %q: %s", expr, language.ErrorMessage(err))
	}
	value, vars := ExtractVariables(value)
	args, _ := language.ValueToGo(value, nil).(map[string]any)

	if len(pre.expansions) == 0 {
		if len(vars) == 0 {
			return nil, ErrMissingKey
		}
		instructions, err := mappingInstructions(vars)
		if err != nil {
			return nil, err
		}
		return &ParsedExpr{
			Args:                args,
			UsedProperties:      properties.PropertyTreeFromPaths(SourcePaths(instructions, selectionSet)),
			MappingInstructions: instructions,
		}, nil
	}

	valuePaths := make(map[string]properties.Path, len(vars))
	for _, v := range vars {
		if !isExpansionName(v.Name) {
			return nil, ErrMixedExpansion
		}
		valuePaths[v.Name] = v.Path
	}

	parsed := &ParsedExpr{Args: args}
	var sourcePaths []properties.Path
	for _, block := range pre.expansions {
		valuePath, ok := valuePaths[block.name]
		if !ok {
			return nil, fmt.Errorf("merge arguments %q: expansion %d is not used as a value", expr, len(parsed.Expansions)+1)
		}
		if properties.HasListIndex(valuePath) {
			return nil, ErrListInsertion
		}

		blockValue, err := language.ParseValue(block.text)
		if err != nil {
			return nil, fmt.Errorf("merge arguments %q: %s", expr, language.ErrorMessage(err))
		}
		blockValue, blockVars := ExtractVariables(blockValue)
		if len(blockVars) == 0 {
			return nil, ErrMissingKey
		}
		instructions, err := mappingInstructions(blockVars)
		if err != nil {
			return nil, err
		}
		sourcePaths = append(sourcePaths, SourcePaths(instructions, selectionSet)...)
		parsed.Expansions = append(parsed.Expansions, Expansion{
			ValuePath:           valuePath,
			Value:               language.ValueToGo(blockValue, nil),
			MappingInstructions: instructions,
		})
	}
	parsed.UsedProperties = properties.PropertyTreeFromPaths(sourcePaths)
	return parsed, nil
}

func mappingInstructions(vars []VariablePath) ([]MappingInstruction, error) {
	out := make([]MappingInstruction, 0, len(vars))
	for _, v := range vars {
		if properties.HasListIndex(v.Path) {
			return nil, ErrListInsertion
		}
		segments := strings.Split(v.Name, KeyDelimiter)[1:]
		source := make(properties.Path, len(segments))
		for i, s := range segments {
			source[i] = s
		}
		out = append(out, MappingInstruction{SourcePath: source, DestinationPath: v.Path})
	}
	return out, nil
}

// SourcePaths lists the key paths the instructions read. An instruction that
// reads the whole key contributes every path of selectionSet and __typename,
// or the empty path when no selection set is given.
func SourcePaths(instructions []MappingInstruction, selectionSet language.SelectionSet) []properties.Path {
	var out []properties.Path
	for _, in := range instructions {
		if len(in.SourcePath) > 0 {
			out = append(out, in.SourcePath)
			continue
		}
		if selectionSet == nil {
			out = append(out, properties.Path{})
			continue
		}
		out = append(out, PathsFromSelectionSet(selectionSet, nil)...)
		out = append(out, properties.Path{"__typename"})
	}
	return out
}

// PathsFromSelectionSet lists the leaf response paths of a selection set.
// Inline fragments contribute their fields at the current depth.
func PathsFromSelectionSet(ss language.SelectionSet, prefix properties.Path) []properties.Path {
	var out []properties.Path
	for _, sel := range ss {
		switch s := sel.(type) {
		case *language.Field:
			key := s.Alias
			if key == "" {
				key = s.Name
			}
			p := append(append(properties.Path{}, prefix...), key)
			if len(s.SelectionSet) > 0 {
				out = append(out, PathsFromSelectionSet(s.SelectionSet, p)...)
			} else {
				out = append(out, p)
			}
		case *language.InlineFragment:
			out = append(out, PathsFromSelectionSet(s.SelectionSet, prefix)...)
		}
	}
	return out
}
