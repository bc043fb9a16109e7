package remote

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/hanpama/graphstitch/internal/executor"
	"github.com/hanpama/graphstitch/internal/language"
	"github.com/hanpama/graphstitch/internal/reqid"
	"github.com/hanpama/graphstitch/internal/subschema"
)

func TestExecute(t *testing.T) {
	var gotBody requestBody
	var gotHeader http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeader = r.Header.Clone()
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"data": {"_0": [{"id": "1", "name": null}]},
			"errors": [{"message": "no name", "path": ["_0", 0, "name"], "extensions": {"code": "HIDDEN"}}]
		}`))
	}))
	defer srv.Close()

	doc, err := language.ParseQuery(`query ($id: ID!) { _0: users(id: $id) { id name } }`)
	require.NoError(t, err)

	ctx, id := reqid.NewContext(context.Background())
	ctx = WithForwardedHeaders(ctx, http.Header{"Authorization": {"Bearer t"}})
	e := New(srv.URL, WithHeader("X-Token", "abc"))
	resp, err := e.Execute(ctx, &subschema.Request{Document: doc, Variables: map[string]any{"id": "1"}})
	require.NoError(t, err)

	want := &subschema.Response{
		Data: map[string]any{"_0": []any{map[string]any{"id": "1", "name": nil}}},
		Errors: []executor.GraphQLError{{
			Message:    "no name",
			Path:       executor.Path{"_0", 0, "name"},
			Extensions: map[string]any{"code": "HIDDEN"},
		}},
	}
	if diff := cmp.Diff(want, resp); diff != "" {
		t.Fatalf("response mismatch (-want +got):\n%s", diff)
	}

	require.Equal(t, language.PrintQuery(doc), gotBody.Query)
	require.Equal(t, map[string]any{"id": "1"}, gotBody.Variables)
	require.Equal(t, "abc", gotHeader.Get("X-Token"))
	require.Equal(t, "Bearer t", gotHeader.Get("Authorization"))
	require.Equal(t, id, gotHeader.Get(reqid.Header))
	require.Equal(t, "application/json", gotHeader.Get("Content-Type"))
}

func TestExecuteFailures(t *testing.T) {
	type testCase struct {
		name    string
		status  int
		body    string
		wantErr string
		want    *subschema.Response
	}
	for _, tc := range []testCase{
		{
			name:    "non graphql error page",
			status:  http.StatusBadGateway,
			body:    `<html>bad gateway</html>`,
			wantErr: "unexpected status code 502",
		},
		{
			name:    "malformed body",
			status:  http.StatusOK,
			body:    `{"data": [`,
			wantErr: "decode response",
		},
		{
			name:   "graphql errors with a client error status",
			status: http.StatusBadRequest,
			body:   `{"errors": [{"message": "syntax error"}]}`,
			want:   &subschema.Response{Errors: []executor.GraphQLError{{Message: "syntax error"}}},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			doc, err := language.ParseQuery(`{ a }`)
			require.NoError(t, err)
			resp, err := New(srv.URL).Execute(context.Background(), &subschema.Request{Document: doc})
			if tc.wantErr != "" {
				require.ErrorContains(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			if diff := cmp.Diff(tc.want, resp); diff != "" {
				t.Fatalf("response mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestFetchSDL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body requestBody
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, "{ _service { sdl } }", body.Query)
		_, _ = w.Write([]byte(`{"data": {"_service": {"sdl": "type Query { a: String }"}}}`))
	}))
	defer srv.Close()

	sdl, err := New(srv.URL).FetchSDL(context.Background())
	require.NoError(t, err)
	require.Equal(t, "type Query { a: String }", sdl)
}

func TestNormalizePath(t *testing.T) {
	require.Equal(t, executor.Path{"a", 2, "b"}, normalizePath([]any{"a", float64(2), "b"}))
	require.Nil(t, normalizePath(nil))
}
