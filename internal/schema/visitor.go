package schema

import (
	"fmt"
	"sort"
)

// Node is one element of the type system visited by Walk.
type Node interface{ node() }

type (
	ObjectNode      struct{ Type *Type }
	InterfaceNode   struct{ Type *Type }
	UnionNode       struct{ Type *Type }
	EnumNode        struct{ Type *Type }
	ScalarNode      struct{ Type *Type }
	InputObjectNode struct{ Type *Type }

	// FieldNode is a field of an object or interface type.
	FieldNode struct {
		Parent *Type
		Field  *Field
	}
	EnumValueNode struct {
		Parent *Type
		Value  *EnumValue
	}
	InputFieldNode struct {
		Parent *Type
		Field  *InputValue
	}
)

func (ObjectNode) node()      {}
func (InterfaceNode) node()   {}
func (UnionNode) node()       {}
func (EnumNode) node()        {}
func (ScalarNode) node()      {}
func (InputObjectNode) node() {}
func (FieldNode) node()       {}
func (EnumValueNode) node()   {}
func (InputFieldNode) node()  {}

// Visitor receives one call per node. Embed BaseVisitor to implement only the
// kinds you care about.
type Visitor interface {
	VisitObject(t *Type) error
	VisitInterface(t *Type) error
	VisitUnion(t *Type) error
	VisitEnum(t *Type) error
	VisitScalar(t *Type) error
	VisitInputObject(t *Type) error
	VisitField(parent *Type, f *Field) error
	VisitEnumValue(parent *Type, v *EnumValue) error
	VisitInputField(parent *Type, f *InputValue) error
}

// BaseVisitor implements every Visitor method as a no-op.
type BaseVisitor struct{}

func (BaseVisitor) VisitObject(*Type) error                  { return nil }
func (BaseVisitor) VisitInterface(*Type) error               { return nil }
func (BaseVisitor) VisitUnion(*Type) error                   { return nil }
func (BaseVisitor) VisitEnum(*Type) error                    { return nil }
func (BaseVisitor) VisitScalar(*Type) error                  { return nil }
func (BaseVisitor) VisitInputObject(*Type) error             { return nil }
func (BaseVisitor) VisitField(*Type, *Field) error           { return nil }
func (BaseVisitor) VisitEnumValue(*Type, *EnumValue) error   { return nil }
func (BaseVisitor) VisitInputField(*Type, *InputValue) error { return nil }

// Nodes lists the non-builtin type system nodes of s: types sorted by name,
// each followed by its members in declaration order.
func Nodes(s *Schema) []Node {
	names := make([]string, 0, len(s.Types))
	for name, t := range s.Types {
		if !t.BuiltIn {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	var out []Node
	for _, name := range names {
		t := s.Types[name]
		switch t.Kind {
		case TypeKindObject:
			out = append(out, ObjectNode{t})
		case TypeKindInterface:
			out = append(out, InterfaceNode{t})
		case TypeKindUnion:
			out = append(out, UnionNode{t})
		case TypeKindEnum:
			out = append(out, EnumNode{t})
		case TypeKindScalar:
			out = append(out, ScalarNode{t})
		case TypeKindInputObject:
			out = append(out, InputObjectNode{t})
		}
		for _, f := range t.Fields {
			out = append(out, FieldNode{Parent: t, Field: f})
		}
		for _, v := range t.EnumValues {
			out = append(out, EnumValueNode{Parent: t, Value: v})
		}
		for _, f := range t.InputFields {
			out = append(out, InputFieldNode{Parent: t, Field: f})
		}
	}
	return out
}

// Visit dispatches n to the matching Visitor method.
func Visit(v Visitor, n Node) error {
	switch n := n.(type) {
	case ObjectNode:
		return v.VisitObject(n.Type)
	case InterfaceNode:
		return v.VisitInterface(n.Type)
	case UnionNode:
		return v.VisitUnion(n.Type)
	case EnumNode:
		return v.VisitEnum(n.Type)
	case ScalarNode:
		return v.VisitScalar(n.Type)
	case InputObjectNode:
		return v.VisitInputObject(n.Type)
	case FieldNode:
		return v.VisitField(n.Parent, n.Field)
	case EnumValueNode:
		return v.VisitEnumValue(n.Parent, n.Value)
	case InputFieldNode:
		return v.VisitInputField(n.Parent, n.Field)
	default:
		return fmt.Errorf("unknown schema node %T", n)
	}
}

// Walk visits every node of s and stops at the first error.
func Walk(s *Schema, v Visitor) error {
	for _, n := range Nodes(s) {
		if err := Visit(v, n); err != nil {
			return err
		}
	}
	return nil
}
