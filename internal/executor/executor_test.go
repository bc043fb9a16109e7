package executor

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/hanpama/graphstitch/internal/language"
	"github.com/hanpama/graphstitch/internal/schema"
)

func mustSchema(t *testing.T, sdl string) *schema.Schema {
	t.Helper()
	s, err := schema.BuildFromSDL(sdl)
	require.NoError(t, err)
	return s
}

func mustParseQuery(t *testing.T, q string) *language.QueryDocument {
	t.Helper()
	d, err := language.ParseQuery(q)
	require.NoError(t, err)
	return d
}

func run(t *testing.T, rt Runtime, sdl, query string, vars map[string]any) *ExecutionResult {
	t.Helper()
	return NewExecutor(rt, mustSchema(t, sdl)).ExecuteRequest(context.Background(), mustParseQuery(t, query), "", vars, nil)
}

func TestExecuteRootFieldsBatchOncePerDepth(t *testing.T) {
	rt := NewResolverRuntime(map[string]Resolver{
		"Query.a": ValueResolver("A"),
		"Query.b": ValueResolver(map[string]any{"c": "C"}),
	})
	got := run(t, rt, `
		type Query { a: String b: Obj }
		type Obj { c: String }
	`, `{ a b { c } }`, nil)

	want := &ExecutionResult{
		Data:   map[string]any{"a": "A", "b": map[string]any{"c": "C"}},
		Errors: []GraphQLError{},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("ExecutionResult mismatch (-want +got):\n%s", diff)
	}

	wantCalls := []Call{
		{Kind: CallKindAsync, ObjectType: "Query", Field: "a", Args: map[string]any{}, BatchID: 1},
		{Kind: CallKindAsync, ObjectType: "Query", Field: "b", Args: map[string]any{}, BatchID: 1},
		{Kind: CallKindSync, ObjectType: "Obj", Field: "c", Source: map[string]any{"c": "C"}, Args: map[string]any{}},
	}
	if diff := cmp.Diff(wantCalls, rt.Calls()); diff != "" {
		t.Fatalf("Runtime calls mismatch (-want +got):\n%s", diff)
	}
}

func TestExecuteErrorPaths(t *testing.T) {
	sdl := `
		type Query { a: String obj: Obj objs: [Obj] }
		type Obj { idx: Int a: String }
	`
	type testCase struct {
		name      string
		resolvers map[string]Resolver
		query     string
		want      *ExecutionResult
	}
	for _, tc := range []testCase{
		{
			name:      "root",
			resolvers: map[string]Resolver{"Query.a": ErrorResolver(fmt.Errorf("boom"))},
			query:     `{ a }`,
			want: &ExecutionResult{
				Data:   map[string]any{"a": nil},
				Errors: []GraphQLError{{Message: "boom", Path: Path{"a"}}},
			},
		},
		{
			name: "nested",
			resolvers: map[string]Resolver{
				"Query.obj": ValueResolver(map[string]any{}),
				"Obj.a":     ErrorResolver(fmt.Errorf("boom")),
			},
			query: `{ obj { a } }`,
			want: &ExecutionResult{
				Data:   map[string]any{"obj": map[string]any{"a": nil}},
				Errors: []GraphQLError{{Message: "boom", Path: Path{"obj", "a"}}},
			},
		},
		{
			name: "list index",
			resolvers: map[string]Resolver{
				"Query.objs": ValueResolver([]any{map[string]any{"idx": 0}, map[string]any{"idx": 1}}),
				"Obj.a": func(ctx context.Context, src any, args map[string]any) (any, error) {
					if src.(map[string]any)["idx"].(int) == 1 {
						return nil, fmt.Errorf("boom")
					}
					return "A", nil
				},
			},
			query: `{ objs { a } }`,
			want: &ExecutionResult{
				Data:   map[string]any{"objs": []any{map[string]any{"a": "A"}, map[string]any{"a": nil}}},
				Errors: []GraphQLError{{Message: "boom", Path: Path{"objs", 1, "a"}}},
			},
		},
		{
			name: "extensions kept",
			resolvers: map[string]Resolver{
				"Query.a": ErrorResolver(fmt.Errorf("wrapped: %w", GraphQLError{Message: "down", Extensions: map[string]any{"code": "UNAVAILABLE"}})),
			},
			query: `{ a }`,
			want: &ExecutionResult{
				Data:   map[string]any{"a": nil},
				Errors: []GraphQLError{{Message: "down", Path: Path{"a"}, Extensions: map[string]any{"code": "UNAVAILABLE"}}},
			},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			got := run(t, NewResolverRuntime(tc.resolvers), sdl, tc.query, nil)
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Fatalf("ExecutionResult mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestExecuteNonNullPropagation(t *testing.T) {
	rt := NewResolverRuntime(map[string]Resolver{
		"Query.obj":   ValueResolver(map[string]any{}),
		"Query.other": ValueResolver("kept"),
	})
	got := run(t, rt, `
		type Query { obj: Obj other: String }
		type Obj { a: String! }
	`, `{ obj { a } other }`, nil)

	want := &ExecutionResult{
		Data:   map[string]any{"obj": nil, "other": "kept"},
		Errors: []GraphQLError{{Message: "Cannot return null for non-nullable field obj.a", Path: Path{"obj", "a"}}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("ExecutionResult mismatch (-want +got):\n%s", diff)
	}
}

func TestExecuteNonNullRootNullsData(t *testing.T) {
	sdl := `
		type Query { me: User! other: String }
		type User { id: ID! }
	`
	type testCase struct {
		name      string
		resolvers map[string]Resolver
		want      *ExecutionResult
	}
	for _, tc := range []testCase{
		{
			name: "error",
			resolvers: map[string]Resolver{
				"Query.me":    ErrorResolver(fmt.Errorf("boom")),
				"Query.other": ValueResolver("x"),
			},
			want: &ExecutionResult{
				Errors: []GraphQLError{{Message: "boom", Path: Path{"me"}}},
			},
		},
		{
			name: "null",
			resolvers: map[string]Resolver{
				"Query.me":    ValueResolver(nil),
				"Query.other": ValueResolver("x"),
			},
			want: &ExecutionResult{
				Errors: []GraphQLError{{Message: "Cannot return null for non-nullable field me", Path: Path{"me"}}},
			},
		},
		{
			name: "nested violation",
			resolvers: map[string]Resolver{
				"Query.me":    ValueResolver(map[string]any{"id": nil}),
				"Query.other": ValueResolver("x"),
			},
			want: &ExecutionResult{
				Errors: []GraphQLError{{Message: "Cannot return null for non-nullable field me.id", Path: Path{"me", "id"}}},
			},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			got := run(t, NewResolverRuntime(tc.resolvers), sdl, `{ me { id } other }`, nil)
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Fatalf("ExecutionResult mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

// relocatingRuntime reports a nested error for every async field.
type relocatingRuntime struct {
	*ResolverRuntime
	infos []*ResolveInfo
}

func (r *relocatingRuntime) BatchResolveAsync(ctx context.Context, tasks []AsyncResolveTask) []AsyncResolveResult {
	results := r.ResolverRuntime.BatchResolveAsync(ctx, tasks)
	for i, task := range tasks {
		r.infos = append(r.infos, task.Info)
		results[i].Errors = []GraphQLError{{Message: "partial", Path: Path{"name"}, Extensions: map[string]any{"subschema": "users"}}}
	}
	return results
}

func TestExecuteRelocatesNestedAsyncErrors(t *testing.T) {
	rt := &relocatingRuntime{ResolverRuntime: NewResolverRuntime(map[string]Resolver{
		"Query.user": ValueResolver(map[string]any{"name": nil}),
	})}
	got := run(t, rt, `
		type Query { user(id: ID!): User }
		type User { name: String! }
	`, `{ me: user(id: 1) { name } }`, nil)

	want := &ExecutionResult{
		Data:   map[string]any{"me": nil},
		Errors: []GraphQLError{{Message: "partial", Path: Path{"me", "name"}, Extensions: map[string]any{"subschema": "users"}}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("ExecutionResult mismatch (-want +got):\n%s", diff)
	}

	require.Len(t, rt.infos, 1)
	info := rt.infos[0]
	require.Equal(t, "me", info.ResponseKey)
	require.Equal(t, "user", info.FieldName)
	require.Equal(t, Path{"me"}, info.Path)
	require.Equal(t, "User", info.ReturnType.GetNamedType())
	require.Equal(t, language.Query, info.Operation.Operation)
	require.Len(t, info.Fields, 1)
}

func TestExecuteAbstractFragments(t *testing.T) {
	rt := NewResolverRuntime(map[string]Resolver{
		"Query.node": ValueResolver(map[string]any{"__typename": "User", "id": "1", "name": "ann"}),
	})
	got := run(t, rt, `
		interface Node { id: ID! }
		type User implements Node { id: ID! name: String }
		type Post implements Node { id: ID! title: String }
		type Query { node: Node }
	`, `
		{ node { __typename ...N ... on User { name } ... on Post { title } } }
		fragment N on Node { id }
	`, nil)

	want := &ExecutionResult{
		Data:   map[string]any{"node": map[string]any{"__typename": "User", "id": "1", "name": "ann"}},
		Errors: []GraphQLError{},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("ExecutionResult mismatch (-want +got):\n%s", diff)
	}
}

func TestExecuteVariables(t *testing.T) {
	sdl := `type Query { user(id: ID!): String a: String b: String }`
	echo := func(ctx context.Context, src any, args map[string]any) (any, error) {
		return fmt.Sprint(args["id"]), nil
	}

	rt := NewResolverRuntime(map[string]Resolver{"Query.user": echo})
	got := run(t, rt, sdl, `query Q($id: ID!) { user(id: $id) }`, nil)
	require.Equal(t, []GraphQLError{{Message: "variable $id of required type ID! was not provided"}}, got.Errors)

	doc := mustParseQuery(t, `query Q($id: ID!, $yes: Boolean = false) { user(id: $id) a @skip(if: true) b @include(if: $yes) }`)
	res := NewExecutor(rt, mustSchema(t, sdl)).ExecuteRequest(context.Background(), doc, "Q", map[string]any{"id": 5}, nil)
	want := &ExecutionResult{Data: map[string]any{"user": "5"}, Errors: []GraphQLError{}}
	if diff := cmp.Diff(want, res); diff != "" {
		t.Fatalf("ExecutionResult mismatch (-want +got):\n%s", diff)
	}
}

func TestExecuteMutation(t *testing.T) {
	rt := NewResolverRuntime(map[string]Resolver{
		"Mutation.set": func(ctx context.Context, src any, args map[string]any) (any, error) {
			return args["v"], nil
		},
	})
	s := mustSchema(t, `
		type Query { noop: String }
		type Mutation { set(v: Int): Int }
	`)
	res := NewExecutor(rt, s).ExecuteRequest(context.Background(), mustParseQuery(t, `mutation { set(v: 3) }`), "", nil, nil)
	require.Equal(t, map[string]any{"set": 3}, res.Data)
	require.Empty(t, res.Errors)

	res = NewExecutor(rt, mustSchema(t, `type Query { noop: String }`)).ExecuteRequest(context.Background(), mustParseQuery(t, `mutation { set(v: 3) }`), "", nil, nil)
	require.Equal(t, []GraphQLError{{Message: "root type not found for mutation operation"}}, res.Errors)
}
