package schema

// NewSchema creates an empty schema.
func NewSchema(description string) *Schema {
	return &Schema{
		Description: description,
		Types:       make(map[string]*Type),
		Directives:  make(map[string]*Directive),
	}
}

func (s *Schema) SetQueryType(name string) *Schema        { s.QueryType = name; return s }
func (s *Schema) SetMutationType(name string) *Schema     { s.MutationType = name; return s }
func (s *Schema) SetSubscriptionType(name string) *Schema { s.SubscriptionType = name; return s }

func (s *Schema) AddType(t *Type) *Schema {
	s.Types[t.Name] = t
	return s
}

func (s *Schema) AddDirective(d *Directive) *Schema {
	s.Directives[d.Name] = d
	return s
}

// AddBuiltins registers the specified scalars and the @skip/@include directives.
func (s *Schema) AddBuiltins() *Schema {
	for _, t := range builtinScalars() {
		if _, ok := s.Types[t.Name]; !ok {
			s.AddType(t)
		}
	}
	for _, d := range builtinDirectives() {
		if _, ok := s.Directives[d.Name]; !ok {
			s.AddDirective(d)
		}
	}
	return s
}

func NewType(name string, kind TypeKind, description string) *Type {
	return &Type{Name: name, Kind: kind, Description: description}
}

func (t *Type) AddField(f *Field) *Type {
	t.Fields = append(t.Fields, f)
	return t
}

func (t *Type) AddInterface(name string) *Type {
	for _, existing := range t.Interfaces {
		if existing == name {
			return t
		}
	}
	t.Interfaces = append(t.Interfaces, name)
	return t
}

func (t *Type) AddPossibleType(name string) *Type {
	for _, existing := range t.PossibleTypes {
		if existing == name {
			return t
		}
	}
	t.PossibleTypes = append(t.PossibleTypes, name)
	return t
}

func (t *Type) AddEnumValue(v *EnumValue) *Type {
	t.EnumValues = append(t.EnumValues, v)
	return t
}

func (t *Type) AddInputField(v *InputValue) *Type {
	t.InputFields = append(t.InputFields, v)
	return t
}

func (t *Type) SetOneOf(oneOf bool) *Type {
	t.OneOf = oneOf
	return t
}

// Clone copies the type and its member slices; fields, values and directive
// uses are shared.
func (t *Type) Clone() *Type {
	c := *t
	c.Fields = append([]*Field(nil), t.Fields...)
	c.Interfaces = append([]string(nil), t.Interfaces...)
	c.PossibleTypes = append([]string(nil), t.PossibleTypes...)
	c.EnumValues = append([]*EnumValue(nil), t.EnumValues...)
	c.InputFields = append([]*InputValue(nil), t.InputFields...)
	c.Directives = append([]*AppliedDirective(nil), t.Directives...)
	return &c
}

func NewField(name, description string, typ *TypeRef) *Field {
	return &Field{Name: name, Description: description, Type: typ}
}

func (f *Field) SetAsync(async bool) *Field {
	f.Async = async
	return f
}

func (f *Field) Deprecate(reason string) *Field {
	f.IsDeprecated = true
	f.DeprecationReason = reason
	return f
}

func (f *Field) AddArgument(arg *InputValue) *Field {
	f.Arguments = append(f.Arguments, arg)
	return f
}

func NewEnumValue(name, description string) *EnumValue {
	return &EnumValue{Name: name, Description: description}
}

func (v *EnumValue) Deprecate(reason string) *EnumValue {
	v.IsDeprecated = true
	v.DeprecationReason = reason
	return v
}

func NewInputValue(name, description string, typ *TypeRef) *InputValue {
	return &InputValue{Name: name, Description: description, Type: typ}
}

func (v *InputValue) SetDefault(value any) *InputValue {
	v.DefaultValue = value
	return v
}

func (v *InputValue) Deprecate(reason string) *InputValue {
	v.IsDeprecated = true
	v.DeprecationReason = reason
	return v
}

func NewDirective(name, description string) *Directive {
	return &Directive{Name: name, Description: description}
}

func (d *Directive) SetRepeatable(repeatable bool) *Directive {
	d.IsRepeatable = repeatable
	return d
}

func (d *Directive) AddArgument(arg *InputValue) *Directive {
	d.Arguments = append(d.Arguments, arg)
	return d
}

// DirectiveUses returns the uses of the named directive, in declaration order.
func DirectiveUses(uses []*AppliedDirective, name string) []*AppliedDirective {
	var out []*AppliedDirective
	for _, d := range uses {
		if d.Name == name {
			out = append(out, d)
		}
	}
	return out
}
