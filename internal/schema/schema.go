package schema

import "slices"

// Schema is a built GraphQL schema. Root operation types are referenced by
// name and looked up in Types.
type Schema struct {
	Description      string
	QueryType        string
	MutationType     string
	SubscriptionType string

	Types      map[string]*Type
	Directives map[string]*Directive
	Extensions map[string]any
}

func (s *Schema) GetQueryType() *Type        { return s.Types[s.QueryType] }
func (s *Schema) GetMutationType() *Type     { return s.Types[s.MutationType] }
func (s *Schema) GetSubscriptionType() *Type { return s.Types[s.SubscriptionType] }

// IsRootType reports whether name is one of the operation root types.
func (s *Schema) IsRootType(name string) bool {
	if name == "" {
		return false
	}
	return name == s.QueryType || name == s.MutationType || name == s.SubscriptionType
}

// PossibleTypes returns the object types a value of the named type may have
// at runtime. For an object type that is the type itself.
func (s *Schema) PossibleTypes(name string) []string {
	t, ok := s.Types[name]
	if !ok {
		return nil
	}
	if t.Kind == TypeKindObject {
		return []string{t.Name}
	}
	if t.IsAbstract() {
		return slices.Clone(t.PossibleTypes)
	}
	return nil
}

func (s *Schema) IsPossibleType(abstractType, objectType string) bool {
	return slices.Contains(s.PossibleTypes(abstractType), objectType)
}

type TypeKind string

const (
	TypeKindScalar      TypeKind = "SCALAR"
	TypeKindObject      TypeKind = "OBJECT"
	TypeKindInterface   TypeKind = "INTERFACE"
	TypeKindUnion       TypeKind = "UNION"
	TypeKindEnum        TypeKind = "ENUM"
	TypeKindInputObject TypeKind = "INPUT_OBJECT"
)

// Type is a named type definition. Which of the member slices is set
// depends on Kind.
type Type struct {
	Kind        TypeKind
	Name        string
	Description string
	BuiltIn     bool

	// object and interface
	Fields     []*Field
	Interfaces []string
	// interface and union, in declaration order of the members
	PossibleTypes []string
	EnumValues    []*EnumValue
	InputFields   []*InputValue
	OneOf         bool

	SpecifiedByURL *string
	Directives     []*AppliedDirective
	Extensions     map[string]any
	Position       *Position
}

func (t *Type) Field(name string) *Field {
	return find(t.Fields, func(f *Field) string { return f.Name }, name)
}

func (t *Type) InputField(name string) *InputValue {
	return find(t.InputFields, func(v *InputValue) string { return v.Name }, name)
}

func (t *Type) IsAbstract() bool {
	return t.Kind == TypeKindInterface || t.Kind == TypeKindUnion
}

// IsComposite reports whether values of the type carry a selection set.
func (t *Type) IsComposite() bool {
	return t.Kind == TypeKindObject || t.IsAbstract()
}

// Field is an output field. Async fields are resolved in batches by the
// executor; the builder marks root fields that way.
type Field struct {
	Name        string
	Description string
	Arguments   []*InputValue
	Type        *TypeRef
	Async       bool

	IsDeprecated      bool
	DeprecationReason string

	Directives []*AppliedDirective
	Extensions map[string]any
	Position   *Position
}

func (f *Field) Argument(name string) *InputValue {
	return find(f.Arguments, func(v *InputValue) string { return v.Name }, name)
}

// InputValue is an argument or an input field. DefaultValue is plain Go
// data, nil when there is none.
type InputValue struct {
	Name         string
	Description  string
	Type         *TypeRef
	DefaultValue any

	IsDeprecated      bool
	DeprecationReason string

	Directives []*AppliedDirective
	Extensions map[string]any
	Position   *Position
}

type EnumValue struct {
	Name        string
	Description string

	IsDeprecated      bool
	DeprecationReason string

	Directives []*AppliedDirective
	Extensions map[string]any
	Position   *Position
}

// Directive is a directive definition.
type Directive struct {
	Name         string
	Description  string
	Arguments    []*InputValue
	IsRepeatable bool
	Locations    []string
	BuiltIn      bool
}

// AppliedDirective is a directive use on a type system element. Argument
// values are plain Go data.
type AppliedDirective struct {
	Name      string
	Arguments map[string]any
	Position  *Position
}

// Position locates a definition in its source document.
type Position struct {
	File   string
	Line   int
	Column int
}

func find[T any](items []T, name func(T) string, want string) T {
	for _, item := range items {
		if name(item) == want {
			return item
		}
	}
	var zero T
	return zero
}
