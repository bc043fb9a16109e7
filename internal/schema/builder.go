package schema

import (
	"errors"
	"fmt"
	"sort"

	"github.com/hanpama/graphstitch/internal/language"
)

// BuildFromSDL parses an SDL document and returns the corresponding Schema.
func BuildFromSDL(sdl string) (*Schema, error) {
	return BuildFromSource("schema.graphql", sdl)
}

// BuildFromSource parses SDL named after the file it came from; the name shows
// up in positions.
func BuildFromSource(name, sdl string) (*Schema, error) {
	doc, err := language.ParseSchema(name, sdl)
	if err != nil {
		return nil, err
	}
	return BuildFromDocument(doc)
}

// BuildFromDocument builds a schema from a parsed SDL document. Type
// extensions are merged into their base definitions. Root operation types come
// from the schema definition, or default to Query, Mutation and Subscription.
func BuildFromDocument(doc *language.SchemaDocument) (*Schema, error) {
	s := NewSchema("")
	s.AddBuiltins()

	var errs []error
	defs := make(map[string]*language.Definition, len(doc.Definitions))
	var order []string
	for _, def := range doc.Definitions {
		if _, dup := defs[def.Name]; dup {
			errs = append(errs, located(def.Position, "type %q is defined more than once", def.Name))
			continue
		}
		c := *def
		defs[def.Name] = &c
		order = append(order, def.Name)
	}
	for _, ext := range doc.Extensions {
		base, ok := defs[ext.Name]
		if !ok {
			errs = append(errs, located(ext.Position, "cannot extend unknown type %q", ext.Name))
			continue
		}
		if base.Kind != ext.Kind {
			errs = append(errs, located(ext.Position, "cannot extend %s %q as %s", base.Kind, ext.Name, ext.Kind))
			continue
		}
		base.Directives = append(append(language.DirectiveList{}, base.Directives...), ext.Directives...)
		base.Interfaces = append(append([]string{}, base.Interfaces...), ext.Interfaces...)
		base.Fields = append(append(language.FieldList{}, base.Fields...), ext.Fields...)
		base.Types = append(append([]string{}, base.Types...), ext.Types...)
		base.EnumValues = append(append(language.EnumValueList{}, base.EnumValues...), ext.EnumValues...)
	}

	for _, name := range order {
		def := defs[name]
		if IsBuiltinScalar(name) {
			continue
		}
		s.AddType(buildType(def))
	}
	for _, dir := range doc.Directives {
		s.AddDirective(buildDirective(dir))
	}

	for _, sd := range append(append([]*language.SchemaDefinition{}, doc.Schema...), doc.SchemaExtension...) {
		for _, op := range sd.OperationTypes {
			switch op.Operation {
			case language.Query:
				s.SetQueryType(op.Type)
			case language.Mutation:
				s.SetMutationType(op.Type)
			case language.Subscription:
				s.SetSubscriptionType(op.Type)
			}
		}
	}
	if s.QueryType == "" && s.Types["Query"] != nil {
		s.SetQueryType("Query")
	}
	if s.MutationType == "" && s.Types["Mutation"] != nil {
		s.SetMutationType("Mutation")
	}
	if s.SubscriptionType == "" && s.Types["Subscription"] != nil {
		s.SetSubscriptionType("Subscription")
	}
	for _, root := range []string{s.QueryType, s.MutationType, s.SubscriptionType} {
		if root == "" {
			continue
		}
		t := s.Types[root]
		if t == nil || t.Kind != TypeKindObject {
			errs = append(errs, fmt.Errorf("root type %q must be a defined object type", root))
			continue
		}
		for _, f := range t.Fields {
			f.SetAsync(true)
		}
	}

	linkImplementations(s)
	errs = append(errs, checkReferences(s)...)
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return s, nil
}

func buildType(def *language.Definition) *Type {
	t := NewType(def.Name, TypeKind(def.Kind), def.Description)
	t.Directives = buildDirectiveUses(def.Directives)
	t.Position = positionOf(def.Position)
	switch t.Kind {
	case TypeKindObject, TypeKindInterface:
		for _, name := range def.Interfaces {
			t.AddInterface(name)
		}
		for _, fd := range def.Fields {
			t.AddField(buildField(fd))
		}
	case TypeKindUnion:
		for _, name := range def.Types {
			t.AddPossibleType(name)
		}
	case TypeKindEnum:
		for _, ev := range def.EnumValues {
			v := NewEnumValue(ev.Name, ev.Description)
			v.Directives = buildDirectiveUses(ev.Directives)
			v.Position = positionOf(ev.Position)
			if reason, ok := deprecation(ev.Directives); ok {
				v.Deprecate(reason)
			}
			t.AddEnumValue(v)
		}
	case TypeKindInputObject:
		for _, fd := range def.Fields {
			in := NewInputValue(fd.Name, fd.Description, buildTypeRef(fd.Type))
			if fd.DefaultValue != nil {
				in.SetDefault(language.ValueToGo(fd.DefaultValue, nil))
			}
			in.Directives = buildDirectiveUses(fd.Directives)
			in.Position = positionOf(fd.Position)
			if reason, ok := deprecation(fd.Directives); ok {
				in.Deprecate(reason)
			}
			t.AddInputField(in)
		}
		t.SetOneOf(def.Directives.ForName("oneOf") != nil)
	case TypeKindScalar:
		if sb := def.Directives.ForName("specifiedBy"); sb != nil {
			if arg := sb.Arguments.ForName("url"); arg != nil && arg.Value != nil {
				url := arg.Value.Raw
				t.SpecifiedByURL = &url
			}
		}
	}
	return t
}

func buildField(fd *language.FieldDefinition) *Field {
	f := NewField(fd.Name, fd.Description, buildTypeRef(fd.Type))
	f.Directives = buildDirectiveUses(fd.Directives)
	f.Position = positionOf(fd.Position)
	if reason, ok := deprecation(fd.Directives); ok {
		f.Deprecate(reason)
	}
	for _, ad := range fd.Arguments {
		f.AddArgument(buildArgument(ad))
	}
	return f
}

func buildArgument(ad *language.ArgumentDefinition) *InputValue {
	in := NewInputValue(ad.Name, ad.Description, buildTypeRef(ad.Type))
	if ad.DefaultValue != nil {
		in.SetDefault(language.ValueToGo(ad.DefaultValue, nil))
	}
	in.Directives = buildDirectiveUses(ad.Directives)
	in.Position = positionOf(ad.Position)
	if reason, ok := deprecation(ad.Directives); ok {
		in.Deprecate(reason)
	}
	return in
}

func buildDirective(dir *language.DirectiveDefinition) *Directive {
	d := NewDirective(dir.Name, dir.Description).SetRepeatable(dir.IsRepeatable)
	for _, loc := range dir.Locations {
		d.Locations = append(d.Locations, string(loc))
	}
	for _, arg := range dir.Arguments {
		d.AddArgument(buildArgument(arg))
	}
	return d
}

func buildDirectiveUses(list language.DirectiveList) []*AppliedDirective {
	if len(list) == 0 {
		return nil
	}
	out := make([]*AppliedDirective, 0, len(list))
	for _, d := range list {
		args := make(map[string]any, len(d.Arguments))
		for _, a := range d.Arguments {
			args[a.Name] = language.ValueToGo(a.Value, nil)
		}
		out = append(out, &AppliedDirective{Name: d.Name, Arguments: args, Position: positionOf(d.Position)})
	}
	return out
}

func buildTypeRef(t *language.Type) *TypeRef {
	if t == nil {
		return nil
	}
	var ref *TypeRef
	if t.Elem != nil {
		ref = ListType(buildTypeRef(t.Elem))
	} else {
		ref = NamedType(t.NamedType)
	}
	if t.NonNull {
		return NonNullType(ref)
	}
	return ref
}

func deprecation(list language.DirectiveList) (string, bool) {
	d := list.ForName("deprecated")
	if d == nil {
		return "", false
	}
	if arg := d.Arguments.ForName("reason"); arg != nil && arg.Value != nil {
		return arg.Value.Raw, true
	}
	return "", true
}

// linkImplementations fills PossibleTypes of interfaces from the objects that
// implement them, sorted by name.
func linkImplementations(s *Schema) {
	names := make([]string, 0, len(s.Types))
	for name := range s.Types {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		t := s.Types[name]
		if t.Kind != TypeKindObject {
			continue
		}
		for _, iface := range t.Interfaces {
			if it := s.Types[iface]; it != nil && it.Kind == TypeKindInterface {
				it.AddPossibleType(t.Name)
			}
		}
	}
}

func checkReferences(s *Schema) []error {
	var errs []error
	known := func(ref *TypeRef, pos *Position, owner string) {
		if ref == nil {
			return
		}
		if name := ref.GetNamedType(); s.Types[name] == nil {
			errs = append(errs, positioned(pos, "%s refers to unknown type %q", owner, name))
		}
	}
	names := make([]string, 0, len(s.Types))
	for name := range s.Types {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		t := s.Types[name]
		for _, f := range t.Fields {
			known(f.Type, f.Position, t.Name+"."+f.Name)
			for _, a := range f.Arguments {
				known(a.Type, a.Position, t.Name+"."+f.Name+"("+a.Name+":)")
			}
		}
		for _, f := range t.InputFields {
			known(f.Type, f.Position, t.Name+"."+f.Name)
		}
		for _, iface := range t.Interfaces {
			if it := s.Types[iface]; it == nil || it.Kind != TypeKindInterface {
				errs = append(errs, positioned(t.Position, "%s implements unknown interface %q", t.Name, iface))
			}
		}
		if t.Kind == TypeKindUnion {
			for _, member := range t.PossibleTypes {
				if mt := s.Types[member]; mt == nil || mt.Kind != TypeKindObject {
					errs = append(errs, positioned(t.Position, "union %s member %q is not an object type", t.Name, member))
				}
			}
		}
	}
	return errs
}

func positionOf(p *language.Position) *Position {
	if p == nil {
		return nil
	}
	out := &Position{Line: p.Line, Column: p.Column}
	if p.Src != nil {
		out.File = p.Src.Name
	}
	return out
}

func located(p *language.Position, format string, args ...any) error {
	return positioned(positionOf(p), format, args...)
}

func positioned(p *Position, format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	if p == nil {
		return errors.New(msg)
	}
	return fmt.Errorf("%s:%d:%d: %s", p.File, p.Line, p.Column, msg)
}
