package executor

import (
	"github.com/hanpama/graphstitch/internal/language"
	"github.com/hanpama/graphstitch/internal/schema"
)

// FieldGroup is the set of fields sharing one response key, in query order.
type FieldGroup struct {
	ResponseName string
	Fields       []*language.Field
}

// fieldCollector preserves field order from the original query
type fieldCollector struct {
	schema    *schema.Schema
	fragments language.FragmentDefinitionList
	variables map[string]any

	groups  []FieldGroup
	index   map[string]int
	visited map[string]bool
}

func (c *fieldCollector) add(responseName string, field *language.Field) {
	if idx, exists := c.index[responseName]; exists {
		c.groups[idx].Fields = append(c.groups[idx].Fields, field)
		return
	}
	c.index[responseName] = len(c.groups)
	c.groups = append(c.groups, FieldGroup{
		ResponseName: responseName,
		Fields:       []*language.Field{field},
	})
}

// CollectFields groups the fields of selectionSet that apply to objectType
// by response key. Fragments are inlined and @skip/@include evaluated
// against variables.
func CollectFields(s *schema.Schema, objectType *schema.Type, selectionSet language.SelectionSet, fragments language.FragmentDefinitionList, variables map[string]any) []FieldGroup {
	c := &fieldCollector{
		schema:    s,
		fragments: fragments,
		variables: variables,
		index:     make(map[string]int),
		visited:   make(map[string]bool),
	}
	c.collect(objectType, selectionSet)
	return c.groups
}

func (c *fieldCollector) collect(objectType *schema.Type, selectionSet language.SelectionSet) {
	for _, selection := range selectionSet {
		switch sel := selection.(type) {
		case *language.Field:
			if !c.shouldInclude(sel.Directives) {
				continue
			}
			responseName := sel.Alias
			if responseName == "" {
				responseName = sel.Name
			}
			c.add(responseName, sel)

		case *language.InlineFragment:
			if !c.shouldInclude(sel.Directives) {
				continue
			}
			if !c.fragmentApplies(objectType, sel.TypeCondition) {
				continue
			}
			c.collect(objectType, sel.SelectionSet)

		case *language.FragmentSpread:
			if !c.shouldInclude(sel.Directives) {
				continue
			}
			if c.visited[sel.Name] {
				continue
			}
			c.visited[sel.Name] = true

			fragmentDef := c.fragments.ForName(sel.Name)
			if fragmentDef == nil {
				continue
			}
			if !c.fragmentApplies(objectType, fragmentDef.TypeCondition) {
				continue
			}
			if !c.shouldInclude(fragmentDef.Directives) {
				continue
			}
			c.collect(objectType, fragmentDef.SelectionSet)
		}
	}
}

// fragmentApplies reports whether a fragment with the given type condition
// applies to objectType. Interface and union conditions apply to their
// possible types.
func (c *fieldCollector) fragmentApplies(objectType *schema.Type, typeCondition string) bool {
	if typeCondition == "" || typeCondition == objectType.Name {
		return true
	}
	return c.schema.IsPossibleType(typeCondition, objectType.Name)
}

func (c *fieldCollector) shouldInclude(directives language.DirectiveList) bool {
	return ShouldInclude(directives, c.variables)
}

// ShouldInclude evaluates @skip and @include against variables.
func ShouldInclude(directives language.DirectiveList, variables map[string]any) bool {
	if skip := directives.ForName("skip"); skip != nil {
		if arg := skip.Arguments.ForName("if"); arg != nil {
			if v, ok := language.ValueToGo(arg.Value, variables).(bool); ok && v {
				return false
			}
		}
	}
	if include := directives.ForName("include"); include != nil {
		if arg := include.Arguments.ForName("if"); arg != nil {
			if v, ok := language.ValueToGo(arg.Value, variables).(bool); ok && !v {
				return false
			}
		}
	}
	return true
}
