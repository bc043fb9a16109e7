package schema

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

const testSDL = `
"An account holder"
type User implements Node @key(selectionSet: "{ id }") {
  id: ID!
  name: String @deprecated(reason: "use displayName")
  posts(first: Int = 10): [Post!]!
}

interface Node {
  id: ID!
}

type Post implements Node {
  id: ID!
  title: String
}

union SearchResult = User | Post

enum Role {
  ADMIN
  MEMBER
}

input UserFilter {
  role: Role = MEMBER
  ids: [ID!]
}

scalar DateTime @specifiedBy(url: "https://example.com/dt")

type Query {
  user(id: ID!): User @merge(keyField: "id")
  search(filter: UserFilter): [SearchResult]
}

extend type User {
  role: Role
}
`

func TestBuildFromSDL(t *testing.T) {
	s, err := BuildFromSDL(testSDL)
	require.NoError(t, err)

	require.Equal(t, "Query", s.QueryType)
	require.Empty(t, s.MutationType)

	user := s.Types["User"]
	require.NotNil(t, user)
	require.Equal(t, TypeKindObject, user.Kind)
	require.Equal(t, "An account holder", user.Description)

	var names []string
	for _, f := range user.Fields {
		names = append(names, f.Name)
	}
	require.Equal(t, []string{"id", "name", "posts", "role"}, names)
	require.True(t, user.Field("name").IsDeprecated)
	require.Equal(t, "use displayName", user.Field("name").DeprecationReason)
	require.Equal(t, 10, user.Field("posts").Argument("first").DefaultValue)
	require.Equal(t, "[Post!]!", user.Field("posts").Type.String())
	require.False(t, user.Field("id").Async)

	require.Len(t, user.Directives, 1)
	require.Equal(t, "key", user.Directives[0].Name)
	require.Equal(t, map[string]any{"selectionSet": "{ id }"}, user.Directives[0].Arguments)
	require.NotNil(t, user.Directives[0].Position)
	require.Equal(t, "schema.graphql", user.Directives[0].Position.File)

	userField := s.GetQueryType().Field("user")
	require.True(t, userField.Async)
	require.Equal(t, "merge", userField.Directives[0].Name)

	require.Equal(t, []string{"Post", "User"}, s.PossibleTypes("Node"))
	require.Equal(t, []string{"User", "Post"}, s.PossibleTypes("SearchResult"))
	require.Equal(t, []string{"User"}, s.PossibleTypes("User"))
	require.True(t, s.IsPossibleType("Node", "User"))
	require.False(t, s.IsPossibleType("Role", "User"))

	require.Equal(t, "MEMBER", s.Types["UserFilter"].InputField("role").DefaultValue)
	require.Equal(t, "https://example.com/dt", *s.Types["DateTime"].SpecifiedByURL)
	require.True(t, s.Types["String"].BuiltIn)
}

func TestBuildFromSDLErrors(t *testing.T) {
	type testCase struct {
		name string
		sdl  string
	}
	for _, tc := range []testCase{
		{name: "unknown field type", sdl: `type Query { a: Missing }`},
		{name: "unknown extension", sdl: `type Query { a: Int } extend type Missing { b: Int }`},
		{name: "union member not object", sdl: `type Query { a: U } union U = Int`},
		{name: "duplicate type", sdl: `type Query { a: Int } type Query { b: Int }`},
		{name: "syntax", sdl: `type Query {`},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := BuildFromSDL(tc.sdl)
			require.Error(t, err)
		})
	}
}

func TestCustomRootTypes(t *testing.T) {
	s, err := BuildFromSDL(`schema { query: Root } type Root { ping: Boolean }`)
	require.NoError(t, err)
	require.Equal(t, "Root", s.QueryType)
	require.True(t, s.GetQueryType().Field("ping").Async)
	require.Contains(t, Render(s), "schema {\n  query: Root\n}")
}

func TestRender(t *testing.T) {
	s, err := BuildFromSDL(`
type Query {
  users(role: Role = MEMBER): [User] @merge(key: ["id"])
}
enum Role { ADMIN MEMBER }
type User @key(selectionSet: "{ id }") {
  id: ID!
}
`)
	require.NoError(t, err)

	got := Render(s)
	require.Contains(t, got, "enum Role {\n  ADMIN\n  MEMBER\n}")
	require.Contains(t, got, `type User @key(selectionSet: "{ id }") {`)
	require.Contains(t, got, `@merge(key: ["id"])`)
	require.Less(t, strings.Index(got, "type Query"), strings.Index(got, "enum Role"))
	require.Less(t, strings.Index(got, "enum Role"), strings.Index(got, "type User"))
}

type countingVisitor struct {
	BaseVisitor
	visited []string
}

func (v *countingVisitor) VisitObject(t *Type) error {
	v.visited = append(v.visited, "object:"+t.Name)
	return nil
}

func (v *countingVisitor) VisitField(parent *Type, f *Field) error {
	v.visited = append(v.visited, "field:"+parent.Name+"."+f.Name)
	return nil
}

func (v *countingVisitor) VisitEnumValue(parent *Type, ev *EnumValue) error {
	v.visited = append(v.visited, "enum:"+parent.Name+"."+ev.Name)
	return nil
}

func TestWalk(t *testing.T) {
	s, err := BuildFromSDL(`
type Query { a: A }
type A { x: Int y: Int }
enum E { ONE }
interface I { x: Int }
`)
	require.NoError(t, err)

	v := &countingVisitor{}
	require.NoError(t, Walk(s, v))
	want := []string{
		"object:A", "field:A.x", "field:A.y",
		"enum:E.ONE",
		"field:I.x",
		"object:Query", "field:Query.a",
	}
	if diff := cmp.Diff(want, v.visited); diff != "" {
		t.Errorf("visit order mismatch (-want +got):\n%s", diff)
	}
}
