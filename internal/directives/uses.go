package directives

import (
	"github.com/hanpama/graphstitch/internal/properties"
	"github.com/hanpama/graphstitch/internal/schema"
)

type directiveUse struct {
	args map[string]any
	pos  *schema.Position
}

// firstUse returns the first use of the named directive on an element, read
// from extensions when configured and present, otherwise from SDL.
func (o Options) firstUse(name string, uses []*schema.AppliedDirective, extensions map[string]any, pos *schema.Position) *directiveUse {
	all := o.usesOf(name, uses, extensions, pos)
	if len(all) == 0 {
		return nil
	}
	return &all[0]
}

func (o Options) usesOf(name string, uses []*schema.AppliedDirective, extensions map[string]any, pos *schema.Position) []directiveUse {
	if len(o.PathToDirectivesInExtensions) > 0 {
		path := make(properties.Path, len(o.PathToDirectivesInExtensions))
		for i, seg := range o.PathToDirectivesInExtensions {
			path[i] = seg
		}
		if found, ok := properties.GetProperty(extensions, path).(map[string]any); ok {
			return extensionUses(found[name], pos)
		}
	}
	var out []directiveUse
	for _, d := range schema.DirectiveUses(uses, name) {
		p := d.Position
		if p == nil {
			p = pos
		}
		out = append(out, directiveUse{args: d.Arguments, pos: p})
	}
	return out
}

func extensionUses(raw any, pos *schema.Position) []directiveUse {
	switch v := raw.(type) {
	case map[string]any:
		return []directiveUse{{args: v, pos: pos}}
	case []any:
		var out []directiveUse
		for _, item := range v {
			if m, ok := item.(map[string]any); ok {
				out = append(out, directiveUse{args: m, pos: pos})
			}
		}
		return out
	case bool:
		if v {
			return []directiveUse{{args: map[string]any{}, pos: pos}}
		}
	}
	return nil
}

// stringArg returns a string argument. present is false when the argument
// is absent or null; ok is false when it has another type.
func (u *directiveUse) stringArg(name string) (value string, present, ok bool) {
	raw, exists := u.args[name]
	if !exists || raw == nil {
		return "", false, true
	}
	s, ok := raw.(string)
	return s, true, ok
}

func (u *directiveUse) stringListArg(name string) (value []string, present, ok bool) {
	raw, exists := u.args[name]
	if !exists || raw == nil {
		return nil, false, true
	}
	switch v := raw.(type) {
	case string:
		return []string{v}, true, true
	case []string:
		return v, true, true
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, isString := item.(string)
			if !isString {
				return nil, true, false
			}
			out = append(out, s)
		}
		return out, true, true
	default:
		return nil, true, false
	}
}
