package schema

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Render prints s as SDL. Builtin types and directives are left out;
// the rest are ordered by name.
func Render(s *Schema) string {
	if s == nil {
		return ""
	}
	p := &printer{}
	p.schemaBlock(s)
	for _, name := range sortedNames(s.Types, func(t *Type) bool { return !t.BuiltIn }) {
		p.typeDef(s.Types[name])
	}
	for _, name := range sortedNames(s.Directives, func(d *Directive) bool { return !d.BuiltIn }) {
		p.directiveDef(s.Directives[name])
	}
	return strings.TrimRight(p.String(), "\n") + "\n"
}

func sortedNames[T any](m map[string]T, keep func(T) bool) []string {
	names := make([]string, 0, len(m))
	for name, v := range m {
		if keep(v) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

type printer struct {
	strings.Builder
}

func (p *printer) put(parts ...string) {
	for _, s := range parts {
		p.WriteString(s)
	}
}

// schemaBlock is printed only when a root type has a non-default name.
func (p *printer) schemaBlock(s *Schema) {
	roots := []struct{ op, name, def string }{
		{"query", s.QueryType, "Query"},
		{"mutation", s.MutationType, "Mutation"},
		{"subscription", s.SubscriptionType, "Subscription"},
	}
	custom := false
	for _, r := range roots {
		if r.name != "" && r.name != r.def {
			custom = true
		}
	}
	if !custom {
		return
	}
	p.put("schema {\n")
	for _, r := range roots {
		if r.name != "" {
			p.put("  ", r.op, ": ", r.name, "\n")
		}
	}
	p.put("}\n\n")
}

func (p *printer) description(desc string) {
	if desc != "" {
		p.put(`"""`, "\n", strings.ReplaceAll(desc, `"`, `\"`), "\n", `"""`, "\n")
	}
}

func (p *printer) typeDef(t *Type) {
	p.description(t.Description)
	switch t.Kind {
	case TypeKindScalar:
		p.put("scalar ", t.Name)
		if t.SpecifiedByURL != nil {
			p.put(` @specifiedBy(url: `, strconv.Quote(*t.SpecifiedByURL), ")")
		}
		p.uses(t.Directives)
		p.put("\n\n")

	case TypeKindObject, TypeKindInterface:
		keyword := "type "
		if t.Kind == TypeKindInterface {
			keyword = "interface "
		}
		p.put(keyword, t.Name)
		if len(t.Interfaces) > 0 {
			p.put(" implements ", strings.Join(t.Interfaces, " & "))
		}
		p.uses(t.Directives)
		p.put(" {\n")
		for _, f := range t.Fields {
			p.field(f)
		}
		p.put("}\n\n")

	case TypeKindUnion:
		p.put("union ", t.Name)
		p.uses(t.Directives)
		p.put(" = ", strings.Join(t.PossibleTypes, " | "), "\n\n")

	case TypeKindEnum:
		p.put("enum ", t.Name)
		p.uses(t.Directives)
		p.put(" {\n")
		for _, v := range t.EnumValues {
			p.description(v.Description)
			p.put("  ", v.Name)
			p.deprecation(v.IsDeprecated, v.DeprecationReason)
			p.put("\n")
		}
		p.put("}\n\n")

	case TypeKindInputObject:
		p.put("input ", t.Name)
		if t.OneOf {
			p.put(" @oneOf")
		}
		p.uses(t.Directives)
		p.put(" {\n")
		for _, f := range t.InputFields {
			p.description(f.Description)
			p.put("  ")
			p.inputValue(f)
			p.deprecation(f.IsDeprecated, f.DeprecationReason)
			p.put("\n")
		}
		p.put("}\n\n")
	}
}

func (p *printer) field(f *Field) {
	p.description(f.Description)
	p.put("  ", f.Name)
	p.arguments(f.Arguments)
	p.put(": ", renderTypeRef(f.Type))
	p.deprecation(f.IsDeprecated, f.DeprecationReason)
	p.uses(f.Directives)
	p.put("\n")
}

func (p *printer) directiveDef(d *Directive) {
	p.description(d.Description)
	p.put("directive @", d.Name)
	p.arguments(d.Arguments)
	if d.IsRepeatable {
		p.put(" repeatable")
	}
	p.put(" on ", strings.Join(d.Locations, " | "), "\n\n")
}

func (p *printer) arguments(args []*InputValue) {
	if len(args) == 0 {
		return
	}
	p.put("(")
	for i, arg := range args {
		if i > 0 {
			p.put(", ")
		}
		p.inputValue(arg)
	}
	p.put(")")
}

func (p *printer) inputValue(v *InputValue) {
	p.put(v.Name, ": ", renderTypeRef(v.Type))
	if v.DefaultValue != nil {
		p.put(" = ", renderValue(v.DefaultValue))
	}
}

func (p *printer) deprecation(deprecated bool, reason string) {
	if !deprecated {
		return
	}
	p.put(" @deprecated")
	if reason != "" {
		p.put("(reason: ", strconv.Quote(reason), ")")
	}
}

// uses prints applied directives. deprecated, specifiedBy and oneOf are
// kept as flags on the model and printed separately.
func (p *printer) uses(directives []*AppliedDirective) {
	for _, d := range directives {
		switch d.Name {
		case "deprecated", "specifiedBy", "oneOf":
			continue
		}
		p.put(" @", d.Name)
		if len(d.Arguments) == 0 {
			continue
		}
		names := sortedNames(d.Arguments, func(any) bool { return true })
		p.put("(")
		for i, name := range names {
			if i > 0 {
				p.put(", ")
			}
			p.put(name, ": ", renderValue(d.Arguments[name]))
		}
		p.put(")")
	}
}

func renderTypeRef(ref *TypeRef) string {
	if ref == nil {
		return ""
	}
	switch ref.Kind {
	case TypeRefKindList:
		return "[" + renderTypeRef(ref.OfType) + "]"
	case TypeRefKindNonNull:
		return renderTypeRef(ref.OfType) + "!"
	}
	return ref.Named
}

// RenderValue prints value as a GraphQL literal.
func RenderValue(value any) string { return renderValue(value) }

func renderValue(value any) string {
	switch v := value.(type) {
	case nil:
		return "null"
	case string:
		return strconv.Quote(v)
	case bool:
		return strconv.FormatBool(v)
	case int:
		return strconv.Itoa(v)
	case int32:
		return strconv.FormatInt(int64(v), 10)
	case int64:
		return strconv.FormatInt(v, 10)
	case float32:
		return strconv.FormatFloat(float64(v), 'g', -1, 32)
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	case []any:
		items := make([]string, len(v))
		for i, item := range v {
			items[i] = renderValue(item)
		}
		return "[" + strings.Join(items, ", ") + "]"
	case map[string]any:
		keys := sortedNames(v, func(any) bool { return true })
		fields := make([]string, len(keys))
		for i, k := range keys {
			fields[i] = k + ": " + renderValue(v[k])
		}
		return "{" + strings.Join(fields, ", ") + "}"
	}
	return fmt.Sprint(value)
}
