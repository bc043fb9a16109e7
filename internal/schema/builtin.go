package schema

func builtinScalars() []*Type {
	return []*Type{
		{
			Name:        "String",
			Kind:        TypeKindScalar,
			Description: "The `String` scalar type represents textual data, represented as UTF-8 character sequences.",
			BuiltIn:     true,
		},
		{
			Name:        "Int",
			Kind:        TypeKindScalar,
			Description: "The `Int` scalar type represents non-fractional signed whole numeric values.",
			BuiltIn:     true,
		},
		{
			Name:        "Float",
			Kind:        TypeKindScalar,
			Description: "The `Float` scalar type represents signed double-precision fractional values.",
			BuiltIn:     true,
		},
		{
			Name:        "Boolean",
			Kind:        TypeKindScalar,
			Description: "The `Boolean` scalar type represents `true` or `false`.",
			BuiltIn:     true,
		},
		{
			Name:        "ID",
			Kind:        TypeKindScalar,
			Description: "The `ID` scalar type represents a unique identifier, often used to refetch an object or as a key for caching.",
			BuiltIn:     true,
		},
	}
}

func builtinDirectives() []*Directive {
	ifArg := func(description string) *InputValue {
		return &InputValue{Name: "if", Description: description, Type: NonNullType(NamedType("Boolean"))}
	}
	return []*Directive{
		{
			Name:        "include",
			Description: "Directs the executor to include this field or fragment only when the `if` argument is true.",
			Arguments:   []*InputValue{ifArg("Included when true.")},
			Locations:   []string{"FIELD", "FRAGMENT_SPREAD", "INLINE_FRAGMENT"},
			BuiltIn:     true,
		},
		{
			Name:        "skip",
			Description: "Directs the executor to skip this field or fragment when the `if` argument is true.",
			Arguments:   []*InputValue{ifArg("Skipped when true.")},
			Locations:   []string{"FIELD", "FRAGMENT_SPREAD", "INLINE_FRAGMENT"},
			BuiltIn:     true,
		},
		{
			Name:        "deprecated",
			Description: "Marks an element of a GraphQL schema as no longer supported.",
			Arguments: []*InputValue{{
				Name:         "reason",
				Type:         NamedType("String"),
				DefaultValue: "No longer supported",
			}},
			Locations: []string{"FIELD_DEFINITION", "ARGUMENT_DEFINITION", "INPUT_FIELD_DEFINITION", "ENUM_VALUE"},
			BuiltIn:   true,
		},
	}
}

// IsBuiltinScalar reports whether name is one of the specified scalars.
func IsBuiltinScalar(name string) bool {
	switch name {
	case "String", "Int", "Float", "Boolean", "ID":
		return true
	}
	return false
}
