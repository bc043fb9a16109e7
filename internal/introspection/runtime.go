// Package introspection answers __schema and __type queries from the
// gateway schema and delegates every other field to the wrapped runtime.
package introspection

import (
	"context"
	"sort"
	"strings"

	"github.com/hanpama/graphstitch/internal/executor"
	"github.com/hanpama/graphstitch/internal/schema"
)

// Wrapper pairs the wrapping runtime with the schema it must execute
// against.
type Wrapper struct {
	Runtime executor.Runtime
	Schema  *schema.Schema
}

// Wrap extends a copy of sch with the introspection types and returns a
// runtime resolving them ahead of base.
func Wrap(base executor.Runtime, sch *schema.Schema) *Wrapper {
	extended := extend(sch)
	return &Wrapper{
		Runtime: &runtime{base: base, schema: extended},
		Schema:  extended,
	}
}

type runtime struct {
	base   executor.Runtime
	schema *schema.Schema
}

// wrapped is a list or non-null type reference seen as a __Type.
type wrapped struct{ ref *schema.TypeRef }

type resolvers[T any] map[string]func(r *runtime, v T, args map[string]any) any

func lookup[T any](table resolvers[T], r *runtime, v T, field string, args map[string]any) (any, bool) {
	fn, ok := table[field]
	if !ok {
		return nil, false
	}
	return fn(r, v, args), true
}

func (r *runtime) ResolveSync(ctx context.Context, info *executor.ResolveInfo, source any, args map[string]any) (any, error) {
	var (
		value any
		ok    bool
	)
	switch src := source.(type) {
	case *schema.Schema:
		value, ok = lookup(schemaFields, r, src, info.FieldName, args)
	case *schema.Type:
		value, ok = lookup(typeFields, r, src, info.FieldName, args)
	case wrapped:
		// members of named types are null on wrappers
		value, _ = lookup(wrappedFields, r, src, info.FieldName, args)
		ok = true
	case *schema.Field:
		value, ok = lookup(fieldFields, r, src, info.FieldName, args)
	case *schema.InputValue:
		value, ok = lookup(inputValueFields, r, src, info.FieldName, args)
	case *schema.EnumValue:
		value, ok = lookup(enumValueFields, r, src, info.FieldName, args)
	case *schema.Directive:
		value, ok = lookup(directiveFields, r, src, info.FieldName, args)
	}
	if ok {
		return value, nil
	}
	if info.ObjectType == r.schema.QueryType {
		switch info.FieldName {
		case "__schema":
			return r.schema, nil
		case "__type":
			name, _ := args["name"].(string)
			if t := r.schema.Types[name]; t != nil {
				return t, nil
			}
			return nil, nil
		}
	}
	return r.base.ResolveSync(ctx, info, source, args)
}

func (r *runtime) BatchResolveAsync(ctx context.Context, tasks []executor.AsyncResolveTask) []executor.AsyncResolveResult {
	return r.base.BatchResolveAsync(ctx, tasks)
}

func (r *runtime) ResolveType(ctx context.Context, abstractType string, value any) (string, error) {
	return r.base.ResolveType(ctx, abstractType, value)
}

func (r *runtime) SerializeLeafValue(ctx context.Context, typ string, value any) (any, error) {
	switch typ {
	case "__TypeKind", "__DirectiveLocation":
		return value, nil
	}
	return r.base.SerializeLeafValue(ctx, typ, value)
}

// typeOf returns the __Type value of ref: the named definition itself, or
// a wrapper for list and non-null references.
func (r *runtime) typeOf(ref *schema.TypeRef) any {
	if ref == nil {
		return nil
	}
	if ref.Kind == schema.TypeRefKindNamed {
		if t := r.schema.Types[ref.Named]; t != nil {
			return t
		}
		return nil
	}
	return wrapped{ref: ref}
}

func (r *runtime) named(names []string) []*schema.Type {
	out := make([]*schema.Type, 0, len(names))
	for _, name := range names {
		if t := r.schema.Types[name]; t != nil {
			out = append(out, t)
		}
	}
	return out
}

var schemaFields = resolvers[*schema.Schema]{
	"description": func(_ *runtime, s *schema.Schema, _ map[string]any) any { return optional(s.Description) },
	"types": func(_ *runtime, s *schema.Schema, _ map[string]any) any {
		out := make([]*schema.Type, 0, len(s.Types))
		for _, t := range s.Types {
			out = append(out, t)
		}
		sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
		return out
	},
	"queryType":        func(_ *runtime, s *schema.Schema, _ map[string]any) any { return s.GetQueryType() },
	"mutationType":     func(_ *runtime, s *schema.Schema, _ map[string]any) any { return s.GetMutationType() },
	"subscriptionType": func(_ *runtime, s *schema.Schema, _ map[string]any) any { return s.GetSubscriptionType() },
	"directives": func(_ *runtime, s *schema.Schema, _ map[string]any) any {
		out := make([]*schema.Directive, 0, len(s.Directives))
		for _, d := range s.Directives {
			out = append(out, d)
		}
		sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
		return out
	},
}

var typeFields = resolvers[*schema.Type]{
	"kind":        func(_ *runtime, t *schema.Type, _ map[string]any) any { return string(t.Kind) },
	"name":        func(_ *runtime, t *schema.Type, _ map[string]any) any { return t.Name },
	"description": func(_ *runtime, t *schema.Type, _ map[string]any) any { return optional(t.Description) },
	"specifiedByURL": func(_ *runtime, t *schema.Type, _ map[string]any) any {
		if t.SpecifiedByURL == nil {
			return nil
		}
		return *t.SpecifiedByURL
	},
	"fields": func(_ *runtime, t *schema.Type, args map[string]any) any {
		if t.Kind != schema.TypeKindObject && t.Kind != schema.TypeKindInterface {
			return nil
		}
		all := includeDeprecated(args)
		out := []*schema.Field{}
		for _, f := range t.Fields {
			if strings.HasPrefix(f.Name, "__") || (f.IsDeprecated && !all) {
				continue
			}
			out = append(out, f)
		}
		return out
	},
	"interfaces": func(r *runtime, t *schema.Type, _ map[string]any) any {
		if t.Kind != schema.TypeKindObject && t.Kind != schema.TypeKindInterface {
			return nil
		}
		return r.named(t.Interfaces)
	},
	"possibleTypes": func(r *runtime, t *schema.Type, _ map[string]any) any {
		if !t.IsAbstract() {
			return nil
		}
		return r.named(r.schema.PossibleTypes(t.Name))
	},
	"enumValues": func(_ *runtime, t *schema.Type, args map[string]any) any {
		if t.Kind != schema.TypeKindEnum {
			return nil
		}
		all := includeDeprecated(args)
		out := []*schema.EnumValue{}
		for _, v := range t.EnumValues {
			if !v.IsDeprecated || all {
				out = append(out, v)
			}
		}
		return out
	},
	"inputFields": func(_ *runtime, t *schema.Type, args map[string]any) any {
		if t.Kind != schema.TypeKindInputObject {
			return nil
		}
		return inputValues(t.InputFields, args)
	},
	"ofType":  func(_ *runtime, _ *schema.Type, _ map[string]any) any { return nil },
	"isOneOf": func(_ *runtime, t *schema.Type, _ map[string]any) any { return t.OneOf },
}

var wrappedFields = resolvers[wrapped]{
	"kind":   func(_ *runtime, w wrapped, _ map[string]any) any { return string(w.ref.Kind) },
	"ofType": func(r *runtime, w wrapped, _ map[string]any) any { return r.typeOf(w.ref.OfType) },
}

var fieldFields = resolvers[*schema.Field]{
	"name":              func(_ *runtime, f *schema.Field, _ map[string]any) any { return f.Name },
	"description":       func(_ *runtime, f *schema.Field, _ map[string]any) any { return optional(f.Description) },
	"args":              func(_ *runtime, f *schema.Field, args map[string]any) any { return inputValues(f.Arguments, args) },
	"type":              func(r *runtime, f *schema.Field, _ map[string]any) any { return r.typeOf(f.Type) },
	"isDeprecated":      func(_ *runtime, f *schema.Field, _ map[string]any) any { return f.IsDeprecated },
	"deprecationReason": func(_ *runtime, f *schema.Field, _ map[string]any) any { return reason(f.IsDeprecated, f.DeprecationReason) },
}

var inputValueFields = resolvers[*schema.InputValue]{
	"name":        func(_ *runtime, v *schema.InputValue, _ map[string]any) any { return v.Name },
	"description": func(_ *runtime, v *schema.InputValue, _ map[string]any) any { return optional(v.Description) },
	"type":        func(r *runtime, v *schema.InputValue, _ map[string]any) any { return r.typeOf(v.Type) },
	"defaultValue": func(_ *runtime, v *schema.InputValue, _ map[string]any) any {
		if v.DefaultValue == nil {
			return nil
		}
		return schema.RenderValue(v.DefaultValue)
	},
	"isDeprecated":      func(_ *runtime, v *schema.InputValue, _ map[string]any) any { return v.IsDeprecated },
	"deprecationReason": func(_ *runtime, v *schema.InputValue, _ map[string]any) any { return reason(v.IsDeprecated, v.DeprecationReason) },
}

var enumValueFields = resolvers[*schema.EnumValue]{
	"name":              func(_ *runtime, v *schema.EnumValue, _ map[string]any) any { return v.Name },
	"description":       func(_ *runtime, v *schema.EnumValue, _ map[string]any) any { return optional(v.Description) },
	"isDeprecated":      func(_ *runtime, v *schema.EnumValue, _ map[string]any) any { return v.IsDeprecated },
	"deprecationReason": func(_ *runtime, v *schema.EnumValue, _ map[string]any) any { return reason(v.IsDeprecated, v.DeprecationReason) },
}

var directiveFields = resolvers[*schema.Directive]{
	"name":         func(_ *runtime, d *schema.Directive, _ map[string]any) any { return d.Name },
	"description":  func(_ *runtime, d *schema.Directive, _ map[string]any) any { return optional(d.Description) },
	"isRepeatable": func(_ *runtime, d *schema.Directive, _ map[string]any) any { return d.IsRepeatable },
	"locations": func(_ *runtime, d *schema.Directive, _ map[string]any) any {
		locs := append([]string(nil), d.Locations...)
		sort.Strings(locs)
		return locs
	},
	"args": func(_ *runtime, d *schema.Directive, args map[string]any) any { return inputValues(d.Arguments, args) },
}

func inputValues(values []*schema.InputValue, args map[string]any) []*schema.InputValue {
	all := includeDeprecated(args)
	out := []*schema.InputValue{}
	for _, v := range values {
		if !v.IsDeprecated || all {
			out = append(out, v)
		}
	}
	return out
}

func includeDeprecated(args map[string]any) bool {
	v, _ := args["includeDeprecated"].(bool)
	return v
}

func optional(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func reason(deprecated bool, why string) any {
	if !deprecated {
		return nil
	}
	return why
}
