package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hanpama/graphstitch/internal/executor"
	"github.com/hanpama/graphstitch/internal/language"
	"github.com/hanpama/graphstitch/internal/remote"
	"github.com/hanpama/graphstitch/internal/reqid"
	"github.com/hanpama/graphstitch/internal/schema"
	"github.com/hanpama/graphstitch/internal/stitch"
	"github.com/hanpama/graphstitch/internal/subschema"
)

// upstream serves { hello } and records the headers of the last request.
func upstream(t *testing.T) (*httptest.Server, *http.Header) {
	t.Helper()
	var captured http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = r.Header.Clone()
		_, _ = w.Write([]byte(`{"data":{"hello":"world"}}`))
	}))
	t.Cleanup(srv.Close)
	return srv, &captured
}

func newTestHandler(t *testing.T, url string, opts ...Option) *Handler {
	t.Helper()
	sch, err := schema.BuildFromSDL(`type Query { hello: String }`)
	require.NoError(t, err)
	g, err := stitch.New([]*subschema.Config{{Name: "hello", Schema: sch, Executor: remote.New(url)}})
	require.NoError(t, err)
	return New(g, opts...)
}

func post(h http.Handler, body string, header ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("POST", "/", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestForwardedHeaders(t *testing.T) {
	srv, captured := upstream(t)
	h := newTestHandler(t, srv.URL, WithForwardHeaders("x-test"))

	w := post(h, `{"query":"{ hello }"}`, "X-Test", "abc", "X-Other", "nope")
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"data":{"hello":"world"}}`, w.Body.String())
	require.Equal(t, "abc", captured.Get("X-Test"))
	require.Empty(t, captured.Get("X-Other"))
}

func TestForwardedHeadersDefaultEmpty(t *testing.T) {
	srv, captured := upstream(t)
	h := newTestHandler(t, srv.URL)

	w := post(h, `{"query":"{ hello }"}`, "X-Test", "abc")
	require.Equal(t, http.StatusOK, w.Code)
	require.Empty(t, captured.Get("X-Test"))
}

func TestRequestID(t *testing.T) {
	srv, captured := upstream(t)
	h := newTestHandler(t, srv.URL)

	w := post(h, `{"query":"{ hello }"}`)
	id := w.Header().Get(reqid.Header)
	require.NotEmpty(t, id)
	require.Equal(t, id, captured.Get(reqid.Header))

	w = post(h, `{"query":"{ hello }"}`, reqid.Header, "from-caller")
	require.Equal(t, "from-caller", w.Header().Get(reqid.Header))
	require.Equal(t, "from-caller", captured.Get(reqid.Header))
}

type executorFunc func(ctx context.Context, doc *language.QueryDocument, operationName string, variables map[string]any) *executor.ExecutionResult

func (f executorFunc) Execute(ctx context.Context, doc *language.QueryDocument, operationName string, variables map[string]any) *executor.ExecutionResult {
	return f(ctx, doc, operationName, variables)
}

func TestRequests(t *testing.T) {
	var gotOp string
	var gotVars map[string]any
	h := New(executorFunc(func(ctx context.Context, doc *language.QueryDocument, op string, vars map[string]any) *executor.ExecutionResult {
		gotOp, gotVars = op, vars
		if op == "Fail" {
			return &executor.ExecutionResult{
				Data:   map[string]any{"hello": nil},
				Errors: []executor.GraphQLError{{Message: "boom", Path: executor.Path{"hello"}, Extensions: map[string]any{"subschema": "hello"}}},
			}
		}
		return &executor.ExecutionResult{Data: map[string]any{"hello": "world"}}
	}))

	type testCase struct {
		name     string
		method   string
		target   string
		body     string
		status   int
		wantBody string
		contains string
		wantOp   string
		wantVars map[string]any
	}
	for _, tc := range []testCase{
		{
			name:     "post",
			method:   "POST",
			body:     `{"query":"query Q($a: Int) { hello }","operationName":"Q","variables":{"a":1}}`,
			status:   http.StatusOK,
			wantBody: `{"data":{"hello":"world"}}`,
			wantOp:   "Q",
			wantVars: map[string]any{"a": float64(1)},
		},
		{
			name:     "get",
			method:   "GET",
			target:   `/?query=%7Bhello%7D&variables=%7B%22a%22%3A%22b%22%7D`,
			status:   http.StatusOK,
			wantBody: `{"data":{"hello":"world"}}`,
			wantVars: map[string]any{"a": "b"},
		},
		{
			name:     "batch",
			method:   "POST",
			body:     `[{"query":"{ hello }"},{"query":"query Fail { hello }","operationName":"Fail"}]`,
			status:   http.StatusOK,
			wantBody: `[{"data":{"hello":"world"}},{"data":{"hello":null},"errors":[{"message":"boom","path":["hello"],"extensions":{"subschema":"hello"}}]}]`,
			wantOp:   "Fail",
		},
		{
			name:     "syntax error",
			method:   "POST",
			body:     `{"query":"{ hello "}`,
			status:   http.StatusOK,
			contains: `"locations":[{"line":1,`,
		},
		{
			name:     "missing query",
			method:   "POST",
			body:     `{}`,
			status:   http.StatusBadRequest,
			wantBody: `{"data":null,"errors":[{"message":"missing 'query'"}]}`,
		},
		{
			name:     "method not allowed",
			method:   "PUT",
			status:   http.StatusMethodNotAllowed,
			wantBody: `{"data":null,"errors":[{"message":"method not allowed"}]}`,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			gotOp, gotVars = "", nil
			target := tc.target
			if target == "" {
				target = "/"
			}
			req := httptest.NewRequest(tc.method, target, bytes.NewBufferString(tc.body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)

			require.Equal(t, tc.status, w.Code)
			if tc.wantBody != "" {
				require.JSONEq(t, tc.wantBody, w.Body.String())
			} else {
				require.Contains(t, w.Body.String(), tc.contains)
			}
			require.Equal(t, tc.wantOp, gotOp)
			if tc.wantVars != nil {
				require.Equal(t, tc.wantVars, gotVars)
			}
		})
	}
}

func TestCORSAndPreflight(t *testing.T) {
	srv, _ := upstream(t)
	h := newTestHandler(t, srv.URL, WithCORS("*"))

	w := post(h, `{"query":"{ hello }"}`, "Origin", "http://example.com")
	require.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))

	pre := httptest.NewRequest("OPTIONS", "/", nil)
	pre.Header.Set("Origin", "http://example.com")
	pre.Header.Set("Access-Control-Request-Headers", "X-Test")
	pw := httptest.NewRecorder()
	h.ServeHTTP(pw, pre)
	require.Equal(t, http.StatusNoContent, pw.Code)
	require.Equal(t, "*", pw.Header().Get("Access-Control-Allow-Origin"))
	require.Equal(t, "X-Test", pw.Header().Get("Access-Control-Allow-Headers"))
}

func TestMaxBodyBytes(t *testing.T) {
	srv, _ := upstream(t)
	h := newTestHandler(t, srv.URL, WithMaxBodyBytes(10))

	w := post(h, `{"query":"1234567890"}`)
	require.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestGraphiQL(t *testing.T) {
	srv, _ := upstream(t)
	for _, enabled := range []bool{true, false} {
		h := newTestHandler(t, srv.URL, WithGraphiQL(enabled))
		req := httptest.NewRequest("GET", "/", nil)
		req.Header.Set("Accept", "text/html")
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		if enabled {
			require.Contains(t, w.Body.String(), "graphiql")
			continue
		}
		var res response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
		require.Equal(t, http.StatusBadRequest, w.Code)
	}
}
