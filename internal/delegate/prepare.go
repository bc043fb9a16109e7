package delegate

import (
	"sort"

	"github.com/hanpama/graphstitch/internal/executor"
	"github.com/hanpama/graphstitch/internal/language"
	"github.com/hanpama/graphstitch/internal/schema"
)

// Preparer rewrites a caller's selection set for a target subschema.
//
// Fragment spreads are inlined, @skip and @include are applied with
// Variables, and fields or fragments the target does not define are
// dropped. Every composite selection gains __typename and the selections
// Required reports for its type.
type Preparer struct {
	Target    *schema.Schema
	Fragments language.FragmentDefinitionList
	Variables map[string]any
	// Required returns the selections objects of typeName must carry so
	// they can be merged later. May be nil.
	Required func(typeName string) language.SelectionSet
	// Skip drops caller fields another subschema must answer. Required
	// selections are never skipped. May be nil.
	Skip func(typeName, fieldName string) bool
}

func (p *Preparer) SelectionSet(typeName string, ss language.SelectionSet) language.SelectionSet {
	return p.prepare(typeName, ss, map[string]bool{}, true)
}

func (p *Preparer) prepare(typeName string, ss language.SelectionSet, visiting map[string]bool, withRequired bool) language.SelectionSet {
	t := p.Target.Types[typeName]
	if t == nil {
		return nil
	}

	var out language.SelectionSet
	for _, sel := range ss {
		switch s := sel.(type) {
		case *language.Field:
			if !p.included(s.Directives) {
				continue
			}
			if s.Name == "__typename" {
				out = append(out, &language.Field{Alias: s.Alias, Name: s.Name})
				continue
			}
			def := t.Field(s.Name)
			if def == nil || (p.Skip != nil && p.Skip(typeName, s.Name)) {
				continue
			}
			f := &language.Field{Alias: s.Alias, Name: s.Name, Arguments: s.Arguments}
			if len(s.SelectionSet) > 0 {
				f.SelectionSet = p.prepare(def.Type.GetNamedType(), s.SelectionSet, visiting, true)
			}
			out = append(out, f)

		case *language.InlineFragment:
			if !p.included(s.Directives) {
				continue
			}
			inner := typeName
			if s.TypeCondition != "" {
				if p.Target.Types[s.TypeCondition] == nil {
					continue
				}
				inner = s.TypeCondition
			}
			out = append(out, &language.InlineFragment{
				TypeCondition: s.TypeCondition,
				SelectionSet:  p.prepare(inner, s.SelectionSet, visiting, false),
			})

		case *language.FragmentSpread:
			if !p.included(s.Directives) || visiting[s.Name] {
				continue
			}
			def := p.Fragments.ForName(s.Name)
			if def == nil || p.Target.Types[def.TypeCondition] == nil {
				continue
			}
			visiting[s.Name] = true
			out = append(out, &language.InlineFragment{
				TypeCondition: def.TypeCondition,
				SelectionSet:  p.prepare(def.TypeCondition, def.SelectionSet, visiting, false),
			})
			delete(visiting, s.Name)
		}
	}

	if !t.IsComposite() || !withRequired {
		return out
	}
	out = append(out, &language.Field{Alias: "__typename", Name: "__typename"})
	if p.Required != nil {
		plain := *p
		plain.Skip = nil
		if t.IsAbstract() {
			for _, possible := range p.Target.PossibleTypes(typeName) {
				req := p.Required(possible)
				if len(req) == 0 {
					continue
				}
				out = append(out, &language.InlineFragment{
					TypeCondition: possible,
					SelectionSet:  plain.prepare(possible, req, visiting, false),
				})
			}
		} else {
			out = append(out, plain.prepare(typeName, p.Required(typeName), visiting, false)...)
		}
	}
	return language.MergeSelectionSets(out)
}

func (p *Preparer) included(directives language.DirectiveList) bool {
	return executor.ShouldInclude(directives, p.Variables)
}

// VariablesIn lists, sorted, the variables referenced by arguments inside ss.
func VariablesIn(ss language.SelectionSet) []string {
	seen := map[string]bool{}
	var walkValue func(v *language.Value)
	walkValue = func(v *language.Value) {
		if v == nil {
			return
		}
		if v.Kind == language.Variable {
			seen[v.Raw] = true
			return
		}
		for _, c := range v.Children {
			walkValue(c.Value)
		}
	}
	var walk func(ss language.SelectionSet)
	walk = func(ss language.SelectionSet) {
		for _, sel := range ss {
			switch s := sel.(type) {
			case *language.Field:
				for _, a := range s.Arguments {
					walkValue(a.Value)
				}
				walk(s.SelectionSet)
			case *language.InlineFragment:
				walk(s.SelectionSet)
			}
		}
	}
	walk(ss)

	out := make([]string, 0, len(seen))
	for name := range seen {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
