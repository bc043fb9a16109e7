package directives

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/hanpama/graphstitch/internal/language"
	"github.com/hanpama/graphstitch/internal/mergeargs"
	"github.com/hanpama/graphstitch/internal/schema"
	"github.com/hanpama/graphstitch/internal/subschema"
)

func mustSchema(t *testing.T, sdl string) *schema.Schema {
	t.Helper()
	s, err := schema.BuildFromSDL(DefaultOptions().TypeDefs() + "\n" + sdl)
	require.NoError(t, err)
	return s
}

func printed(t *testing.T, src string) string {
	t.Helper()
	ss, err := language.ParseSelectionSet(src)
	require.NoError(t, err)
	return language.PrintSelectionSet(ss)
}

func TestTypeDefs(t *testing.T) {
	want := []string{
		"directive @key(selectionSet: String!) on OBJECT",
		"directive @computed(selectionSet: String!) on FIELD_DEFINITION",
		"directive @merge(argsExpr: String, keyArg: String, keyField: String, key: [String!], additionalArgs: String) on FIELD_DEFINITION",
		"directive @canonical on OBJECT | INTERFACE | INPUT_OBJECT | UNION | ENUM | SCALAR | FIELD_DEFINITION | INPUT_FIELD_DEFINITION",
	}
	if diff := cmp.Diff(want, DefaultOptions().TypeDefsList()); diff != "" {
		t.Errorf("type defs mismatch (-want +got):\n%s", diff)
	}

	custom := Options{KeyDirectiveName: "pk", MergeDirectiveName: "fetch"}.TypeDefsList()
	require.Equal(t, "directive @pk(selectionSet: String!) on OBJECT", custom[0])
	require.Equal(t, "directive @computed(selectionSet: String!) on FIELD_DEFINITION", custom[1])
	require.Contains(t, custom[2], "directive @fetch(")
}

func TestValidate(t *testing.T) {
	type testCase struct {
		name string
		sdl  string
		want []string
	}
	for _, tc := range []testCase{
		{
			name: "valid",
			sdl: `
				type User @key(selectionSet: "{ id }") { id: ID! name: String @computed(selectionSet: "{ id }") }
				type Query { user(id: ID!): User @merge(keyField: "id") users(ids: [ID!]!): [User] @merge }
			`,
		},
		{
			name: "merge outside query",
			sdl: `
				type User { id: ID! friend(id: ID!): User @merge }
				type Query { user(id: ID!): User }
			`,
			want: []string{"@merge directive may be used only for root fields of the root Query type."},
		},
		{
			name: "merge on scalar",
			sdl:  `type Query { name(id: ID!): String @merge }`,
			want: []string{"@merge directive may be used only with resolver that return an object, interface, or union."},
		},
		{
			name: "nested lists",
			sdl: `
				type User { id: ID! }
				type Query { users(ids: [ID!]!): [[User]] @merge }
			`,
			want: []string{"@merge directive must be used on a field that returns an object or a list of objects."},
		},
		{
			name: "bad args expr",
			sdl: `
				type User { id: ID! }
				type Query { user(id: ID!): User @merge(argsExpr: "id: \"literal\"") }
			`,
			want: []string{mergeargs.ErrMissingKey.Error()},
		},
		{
			name: "missing key arg",
			sdl: `
				type User { id: ID! }
				type Query { user(id: ID, name: String): User @merge }
			`,
			want: []string{"Cannot use @merge directive without `keyArg` argument if resolver takes more than one argument."},
		},
		{
			name: "invalid key arg and key field",
			sdl: `
				type User { id: ID! }
				type Query { user(id: ID): User @merge(keyArg: "in-put", keyField: "1d") }
			`,
			want: []string{
				"`keyArg` argument for @merge directive must be a set of valid GraphQL SDL names separated by periods.",
				"`keyField` argument for @merge directive must be a set of valid GraphQL SDL names separated by periods.",
			},
		},
		{
			name: "key field with key",
			sdl: `
				type User { id: ID! }
				type Query { user(id: ID): User @merge(keyField: "id", key: ["id"]) }
			`,
			want: []string{"Cannot use @merge directive with both `keyField` and `key` arguments."},
		},
		{
			name: "bad key entries",
			sdl: `
				type User { id: ID! }
				type Query { user(input: ID): User @merge(key: ["a-b:id", "x:"]) }
			`,
			want: []string{
				"Each alias within the `key` argument for @merge directive must be a set of valid GraphQL SDL names separated by periods.",
				"Each partial key within the `key` argument for @merge directive must be a set of valid GraphQL SDL names separated by periods.",
			},
		},
		{
			name: "args expr with others",
			sdl: `
				type User { id: ID! }
				type Query { user(id: ID): User @merge(argsExpr: "id: $key.id", keyArg: "id") }
			`,
			want: []string{"Cannot use @merge directive with both `argsExpr` argument and any additional argument."},
		},
		{
			name: "types on concrete return",
			sdl: `
				type User { id: ID! }
				type Query { user(id: ID): User @merge(types: ["User"]) }
			`,
			want: []string{"Types argument can only be used with a field that returns an abstract type."},
		},
		{
			name: "types not implementing",
			sdl: `
				interface Node { id: ID! }
				type User implements Node { id: ID! }
				type Post { id: ID! }
				type Query { node(id: ID): Node @merge(types: ["User", "Post"]) }
			`,
			want: []string{"Types argument can only include only type names that implement the field return type's abstract type."},
		},
		{
			name: "bad selection sets",
			sdl: `
				type User @key(selectionSet: "id") { id: ID! name: String @computed(selectionSet: "{ id") }
				type Query { user: User }
			`,
			want: []string{
				"Invalid selectionSet for @key directive on type User",
				"Invalid selectionSet for @computed directive on field User.name",
			},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			err := Validate(mustSchema(t, tc.sdl), DefaultOptions())
			if len(tc.want) == 0 {
				require.NoError(t, err)
				return
			}
			var verr ValidationError
			require.True(t, errors.As(err, &verr), "expected ValidationError, got %v", err)
			got := verr.Messages()
			require.Len(t, got, len(tc.want), "violations: %v", got)
			for i := range tc.want {
				require.Contains(t, got[i], tc.want[i])
			}
		})
	}
}

func TestValidateReportsPositions(t *testing.T) {
	s, err := schema.BuildFromSource("users.graphql", DefaultOptions().TypeDefs()+`
type User { id: ID! }
type Query { user(a: ID, b: ID): User @merge }
`)
	require.NoError(t, err)
	err = Validate(s, DefaultOptions())
	var verr ValidationError
	require.True(t, errors.As(err, &verr))
	require.Len(t, verr, 1)
	require.Equal(t, "users.graphql", verr[0].File)
	require.Equal(t, 6, verr[0].Line)
}

func TestValidateReadsExtensions(t *testing.T) {
	s := mustSchema(t, `
		type User { id: ID! }
		type Query { user(a: ID, b: ID): User }
	`)
	s.GetQueryType().Field("user").Extensions = map[string]any{
		"directives": map[string]any{"merge": map[string]any{"keyField": "1d"}},
	}
	err := Validate(s, Options{PathToDirectivesInExtensions: []string{"directives"}})
	var verr ValidationError
	require.True(t, errors.As(err, &verr))
	require.Equal(t, []string{
		"Cannot use @merge directive without `keyArg` argument if resolver takes more than one argument.",
		"`keyField` argument for @merge directive must be a set of valid GraphQL SDL names separated by periods.",
	}, verr.Messages())

	// Without the extensions path the field carries no directive.
	require.NoError(t, Validate(s, DefaultOptions()))
}

func TestTransformKeyFieldSingular(t *testing.T) {
	cfg := &subschema.Config{Name: "users", Schema: mustSchema(t, `
		type User { id: ID! email: String }
		type Query { userById(id: ID!): User @merge(keyField: "id") }
	`)}
	out, err := Transform(cfg, DefaultOptions())
	require.NoError(t, err)
	require.Nil(t, cfg.Merge, "input config must not be modified")

	mt := out.MergedType("User")
	require.NotNil(t, mt)
	require.Equal(t, "userById", mt.FieldName)
	require.Equal(t, printed(t, "{ id }"), mt.SelectionSet)
	require.False(t, mt.Batched())
	require.True(t, mt.Resolvable())

	got := mt.Args(map[string]any{"__typename": "User", "id": "5", "email": nil})
	if diff := cmp.Diff(map[string]any{"id": "5"}, got); diff != "" {
		t.Errorf("args mismatch (-want +got):\n%s", diff)
	}
}

func TestTransformListMerge(t *testing.T) {
	cfg := &subschema.Config{Name: "users", Schema: mustSchema(t, `
		type User @key(selectionSet: "{ id }") { id: ID! name: String }
		type Query { users(ids: [ID!]!): [User]! @merge(keyField: "id") }
	`)}
	out, err := Transform(cfg, DefaultOptions())
	require.NoError(t, err)

	mt := out.MergedType("User")
	require.True(t, mt.Batched())
	require.Equal(t, "users", mt.FieldName)
	require.Equal(t, printed(t, "{ id }"), mt.SelectionSet)

	keys := []any{
		mt.Key(map[string]any{"id": "a", "name": "x"}),
		mt.Key(map[string]any{"id": "b"}),
	}
	if diff := cmp.Diff(map[string]any{"ids": []any{"a", "b"}}, mt.ArgsFromKeys(keys)); diff != "" {
		t.Errorf("args mismatch (-want +got):\n%s", diff)
	}
}

func TestTransformCompositeKey(t *testing.T) {
	cfg := &subschema.Config{Name: "inventory", Schema: mustSchema(t, `
		type Product @key(selectionSet: "{ upc region { code } }") { upc: ID! region: Region }
		type Region { code: String }
		input ProductKey { upc: ID! region: String }
		type Query {
			products(keys: [ProductKey!]!): [Product] @merge(key: ["upc", "region:region.code"])
		}
	`)}
	require.Equal(t, "{upc:$key.upc,region:$key.region.code}", buildKeyExpr([]string{"upc", "region:region.code"}))

	out, err := Transform(cfg, DefaultOptions())
	require.NoError(t, err)
	mt := out.MergedType("Product")
	key := mt.Key(map[string]any{"upc": "1", "region": map[string]any{"code": "eu"}, "extra": true})
	got := mt.ArgsFromKeys([]any{key})
	want := map[string]any{"keys": []any{map[string]any{"upc": "1", "region": "eu"}}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("args mismatch (-want +got):\n%s", diff)
	}
}

func TestTransformComputedAndAdditionalArgs(t *testing.T) {
	cfg := &subschema.Config{Name: "reviews", Schema: mustSchema(t, `
		type User @key(selectionSet: "{ id }") {
			id: ID!
			rating: Float @computed(selectionSet: "{ name }")
		}
		type Query {
			user(scope: String, id: ID!): User @merge(keyArg: "id", additionalArgs: "scope: \"all\"")
		}
	`)}
	out, err := Transform(cfg, DefaultOptions())
	require.NoError(t, err)

	mt := out.MergedType("User")
	require.Equal(t, printed(t, "{ id }"), mt.SelectionSet)
	require.Equal(t, &subschema.MergedFieldConfig{SelectionSet: printed(t, "{ name }"), Computed: true}, mt.Fields["rating"])

	// The whole key is passed, so both key and computed selections are read.
	got := mt.Args(map[string]any{"__typename": "User", "id": "1", "name": "ann", "other": 1})
	want := map[string]any{
		"id":    map[string]any{"__typename": "User", "id": "1", "name": "ann"},
		"scope": "all",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("args mismatch (-want +got):\n%s", diff)
	}
}

func TestTransformRejectsAdditionalArgsWithExpansion(t *testing.T) {
	cfg := &subschema.Config{Schema: mustSchema(t, `
		type User { id: ID! }
		type Query { users(ids: [ID!]!, scope: String): [User] @merge(keyArg: "ids", keyField: "id", additionalArgs: "scope: \"x\"") }
	`)}
	_, err := Transform(cfg, DefaultOptions())
	var verr ValidationError
	require.True(t, errors.As(err, &verr))
	require.Equal(t, []string{"Cannot use `additionalArgs` with an expansion-based merge expression."}, verr.Messages())
}

func TestTransformRejectsListMergeWithoutExpansion(t *testing.T) {
	cfg := &subschema.Config{Schema: mustSchema(t, `
		type User { id: ID! }
		type Query { users(ids: [ID!]!): [User] @merge(argsExpr: "ids: $key.id") }
	`)}
	_, err := Transform(cfg, DefaultOptions())
	var verr ValidationError
	require.True(t, errors.As(err, &verr))
	require.Len(t, verr.Messages(), 1)
	require.Contains(t, verr.Messages()[0], "must expand its keys")
}

func TestTransformAbstractTypes(t *testing.T) {
	cfg := &subschema.Config{Schema: mustSchema(t, `
		interface Node { id: ID! }
		type User implements Node @key(selectionSet: "{ id }") { id: ID! }
		type Post implements Node { id: ID! title: String }
		type Query { node(id: ID!): Node @merge(keyField: "id", types: ["Post"]) }
	`)}
	out, err := Transform(cfg, DefaultOptions())
	require.NoError(t, err)
	require.Equal(t, "node", out.MergedType("Post").FieldName)
	require.Equal(t, printed(t, "{ id }"), out.MergedType("Post").SelectionSet)
	require.Empty(t, out.MergedType("User").FieldName)
}

func TestTransformCanonical(t *testing.T) {
	cfg := &subschema.Config{Schema: mustSchema(t, `
		type User @canonical { id: ID! name: String @canonical }
		enum Role @canonical { ADMIN }
		input Filter { q: String @canonical }
		interface Named { name: String @canonical }
		type Post { id: ID! title: String @canonical }
		type Query { user: User post: Post }
	`)}
	out, err := Transform(cfg, DefaultOptions())
	require.NoError(t, err)

	require.True(t, out.MergedType("User").Canonical)
	require.True(t, out.IsCanonicalField("User", "name"))
	require.True(t, out.IsCanonicalField("User", "id"))
	require.False(t, out.IsCanonicalField("User", "email"))
	require.False(t, out.MergedType("Post").Canonical)
	require.True(t, out.IsCanonicalField("Post", "title"))
	require.False(t, out.IsCanonicalField("Post", "id"))
	require.True(t, out.MergedType("Role").Canonical)
	require.True(t, out.IsCanonicalField("Filter", "q"))
	require.True(t, out.IsCanonicalField("Named", "name"))
	require.Nil(t, out.MergedType("Query"))
}

func TestTransformDeclarativeConfig(t *testing.T) {
	cfg := &subschema.Config{
		Schema: mustSchema(t, `
			type User { id: ID! login: String }
			type Query { usersByLogin(logins: [String!]!): [User] }
		`),
		Merge: map[string]*subschema.MergedTypeConfig{
			"User": {SelectionSet: "{ login }", FieldName: "usersByLogin", KeyField: "login"},
		},
	}
	out, err := Transform(cfg, DefaultOptions())
	require.NoError(t, err)
	require.Nil(t, cfg.Merge["User"].ArgsFromKeys)

	mt := out.MergedType("User")
	require.True(t, mt.Batched())
	key := mt.Key(map[string]any{"login": "ann", "id": "1"})
	require.Equal(t, map[string]any{"logins": []any{"ann"}}, mt.ArgsFromKeys([]any{key}))
}

func TestTransformDeclarativeUnknownField(t *testing.T) {
	cfg := &subschema.Config{
		Schema: mustSchema(t, `
			type User { id: ID! }
			type Query { user(id: ID!): User }
		`),
		Merge: map[string]*subschema.MergedTypeConfig{"User": {FieldName: "missing"}},
	}
	_, err := Transform(cfg, DefaultOptions())
	require.EqualError(t, err, "violations found:\n- Merge config for type \"User\" names unknown query field \"missing\"\n")
}

func TestNewTransformerUsesOptions(t *testing.T) {
	s, err := schema.BuildFromSDL(`
		type User @pk(selectionSet: "{ id }") { id: ID! }
		type Query { user(id: ID!): User @fetch }
	`)
	require.NoError(t, err)
	transform := NewTransformer(Options{KeyDirectiveName: "pk", MergeDirectiveName: "fetch"})
	out, err := transform(&subschema.Config{Schema: s})
	require.NoError(t, err)
	mt := out.MergedType("User")
	require.Equal(t, "user", mt.FieldName)
	require.Equal(t, map[string]any{"id": map[string]any{"__typename": "User", "id": "7"}}, mt.Args(map[string]any{"id": "7", "__typename": "User"}))
}
