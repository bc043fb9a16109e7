package schema

// TypeRefKind tells a named reference from a List or Non-Null wrapper.
type TypeRefKind string

const (
	TypeRefKindNamed   TypeRefKind = "NAMED"
	TypeRefKindList    TypeRefKind = "LIST"
	TypeRefKindNonNull TypeRefKind = "NON_NULL"
)

// TypeRef is the type of a field, argument or input field. Wrappers hold
// the wrapped reference in OfType; only NAMED references carry Named.
type TypeRef struct {
	Kind   TypeRefKind
	OfType *TypeRef
	Named  string
}

func NamedType(name string) *TypeRef   { return &TypeRef{Kind: TypeRefKindNamed, Named: name} }
func ListType(of *TypeRef) *TypeRef    { return &TypeRef{Kind: TypeRefKindList, OfType: of} }
func NonNullType(of *TypeRef) *TypeRef { return &TypeRef{Kind: TypeRefKindNonNull, OfType: of} }

func (t *TypeRef) IsNonNull() bool { return t != nil && t.Kind == TypeRefKindNonNull }

// IsList reports a list at the outermost position, under an optional
// Non-Null.
func (t *TypeRef) IsList() bool {
	if t.IsNonNull() {
		t = t.OfType
	}
	return t != nil && t.Kind == TypeRefKindList
}

// Unwrap strips one wrapper. A named reference is returned as is.
func (t *TypeRef) Unwrap() *TypeRef {
	if t.Kind == TypeRefKindNamed {
		return t
	}
	return t.OfType
}

func (t *TypeRef) GetNamedType() string {
	for t != nil && t.Kind != TypeRefKindNamed {
		t = t.OfType
	}
	if t == nil {
		return ""
	}
	return t.Named
}

// String renders the reference in SDL notation, e.g. "[ID!]!".
func (t *TypeRef) String() string { return renderTypeRef(t) }

// ReturnsList reports whether a list appears anywhere in the wrapping.
func ReturnsList(t *TypeRef) bool {
	for ; t != nil; t = t.OfType {
		if t.Kind == TypeRefKindList {
			return true
		}
	}
	return false
}
