// Package remote executes subschema requests over GraphQL-over-HTTP.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/hanpama/graphstitch/internal/executor"
	"github.com/hanpama/graphstitch/internal/language"
	"github.com/hanpama/graphstitch/internal/reqid"
	"github.com/hanpama/graphstitch/internal/subschema"
)

// Executor posts operations to one GraphQL endpoint.
type Executor struct {
	url     string
	client  *http.Client
	headers http.Header
}

var _ subschema.Executor = (*Executor)(nil)

type Option func(*Executor)

// WithHTTPClient replaces the default client.
func WithHTTPClient(c *http.Client) Option {
	return func(e *Executor) { e.client = c }
}

// WithTimeout bounds each request.
func WithTimeout(d time.Duration) Option {
	return func(e *Executor) {
		c := *e.client
		c.Timeout = d
		e.client = &c
	}
}

// WithHeader adds a static header to every request.
func WithHeader(key, value string) Option {
	return func(e *Executor) { e.headers.Add(key, value) }
}

// WithTracing wraps the client transport with OpenTelemetry instrumentation.
func WithTracing() Option {
	return func(e *Executor) {
		c := *e.client
		base := c.Transport
		if base == nil {
			base = http.DefaultTransport
		}
		c.Transport = otelhttp.NewTransport(base)
		e.client = &c
	}
}

func New(url string, opts ...Option) *Executor {
	e := &Executor{url: url, client: &http.Client{}, headers: http.Header{}}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

type requestBody struct {
	Query         string         `json:"query"`
	OperationName string         `json:"operationName,omitempty"`
	Variables     map[string]any `json:"variables,omitempty"`
}

type responseBody struct {
	Data   map[string]any `json:"data"`
	Errors []struct {
		Message    string         `json:"message"`
		Path       []any          `json:"path"`
		Extensions map[string]any `json:"extensions"`
	} `json:"errors"`
}

func (e *Executor) Execute(ctx context.Context, req *subschema.Request) (*subschema.Response, error) {
	body, err := json.Marshal(requestBody{
		Query:         language.PrintQuery(req.Document),
		OperationName: req.OperationName,
		Variables:     req.Variables,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	var raw responseBody
	status, err := e.post(ctx, body, &raw)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK && raw.Data == nil && len(raw.Errors) == 0 {
		return nil, fmt.Errorf("unexpected status code %d from %s", status, e.url)
	}

	resp := &subschema.Response{Data: raw.Data}
	for _, re := range raw.Errors {
		resp.Errors = append(resp.Errors, executor.GraphQLError{
			Message:    re.Message,
			Path:       normalizePath(re.Path),
			Extensions: re.Extensions,
		})
	}
	return resp, nil
}

func (e *Executor) post(ctx context.Context, body []byte, out any) (int, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, e.url, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}
	for k, vs := range e.headers {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	for k, vs := range ForwardedHeaders(ctx) {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/graphql-response+json, application/json")
	if id, ok := reqid.FromContext(ctx); ok {
		httpReq.Header.Set(reqid.Header, id)
	}

	resp, err := e.client.Do(httpReq)
	if err != nil {
		return 0, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, fmt.Errorf("read response: %w", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		if resp.StatusCode != http.StatusOK {
			return resp.StatusCode, fmt.Errorf("unexpected status code %d from %s", resp.StatusCode, e.url)
		}
		return resp.StatusCode, fmt.Errorf("decode response: %w", err)
	}
	return resp.StatusCode, nil
}

// normalizePath turns JSON numbers in an error path back into list indices.
func normalizePath(p []any) executor.Path {
	if p == nil {
		return nil
	}
	out := make(executor.Path, len(p))
	for i, seg := range p {
		if f, ok := seg.(float64); ok && f == float64(int(f)) {
			out[i] = int(f)
			continue
		}
		out[i] = seg
	}
	return out
}

type forwardKey struct{}

// WithForwardedHeaders returns a copy of ctx whose outgoing subschema
// requests carry h.
func WithForwardedHeaders(ctx context.Context, h http.Header) context.Context {
	if len(h) == 0 {
		return ctx
	}
	return context.WithValue(ctx, forwardKey{}, h.Clone())
}

// ForwardedHeaders returns the headers set by WithForwardedHeaders.
func ForwardedHeaders(ctx context.Context) http.Header {
	h, _ := ctx.Value(forwardKey{}).(http.Header)
	return h
}

type serviceResponse struct {
	Data struct {
		Service struct {
			SDL string `json:"sdl"`
		} `json:"_service"`
	} `json:"data"`
}

// FetchSDL asks the endpoint for its SDL through the { _service { sdl } }
// convention.
func (e *Executor) FetchSDL(ctx context.Context) (string, error) {
	var out serviceResponse
	status, err := e.post(ctx, []byte(`{"query":"{ _service { sdl } }"}`), &out)
	if err != nil {
		return "", fmt.Errorf("fetch sdl from %s: %w", e.url, err)
	}
	if status != http.StatusOK {
		return "", fmt.Errorf("fetch sdl: unexpected status code %d from %s", status, e.url)
	}
	if out.Data.Service.SDL == "" {
		return "", fmt.Errorf("fetch sdl: empty SDL returned from %s", e.url)
	}
	return out.Data.Service.SDL, nil
}
