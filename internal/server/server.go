// Package server serves a stitched gateway over GraphQL-over-HTTP.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/hanpama/graphstitch/internal/eventbus"
	"github.com/hanpama/graphstitch/internal/events"
	"github.com/hanpama/graphstitch/internal/executor"
	"github.com/hanpama/graphstitch/internal/language"
	"github.com/hanpama/graphstitch/internal/remote"
	"github.com/hanpama/graphstitch/internal/reqid"
)

// Executor runs a parsed operation. *stitch.Gateway implements it.
type Executor interface {
	Execute(ctx context.Context, doc *language.QueryDocument, operationName string, variables map[string]any) *executor.ExecutionResult
}

// Handler serves GET, POST and batched POST requests against an Executor.
type Handler struct {
	exec Executor
	cfg  config
}

type config struct {
	timeout        time.Duration
	pretty         bool
	maxBodyBytes   int64
	corsOrigins    []string
	forwardHeaders []string
	graphiql       bool
}

type Option func(*config)

// WithTimeout bounds requests whose context has no deadline. Zero disables
// the default of ten seconds.
func WithTimeout(d time.Duration) Option { return func(c *config) { c.timeout = d } }

// WithPretty indents JSON responses.
func WithPretty() Option { return func(c *config) { c.pretty = true } }

// WithMaxBodyBytes caps request bodies; larger ones get 413.
func WithMaxBodyBytes(n int64) Option { return func(c *config) { c.maxBodyBytes = n } }

// WithCORS allows cross-origin requests from origins. "*" allows any.
func WithCORS(origins ...string) Option { return func(c *config) { c.corsOrigins = origins } }

// WithForwardHeaders names incoming headers copied onto every subschema
// request.
func WithForwardHeaders(headers ...string) Option {
	return func(c *config) { c.forwardHeaders = headers }
}

// WithGraphiQL toggles the in-browser IDE served to HTML GET requests.
func WithGraphiQL(enable bool) Option { return func(c *config) { c.graphiql = enable } }

func New(exec Executor, opts ...Option) *Handler {
	cfg := config{timeout: 10 * time.Second, graphiql: true}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Handler{exec: exec, cfg: cfg}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, ok := ctx.Deadline(); !ok && h.cfg.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.cfg.timeout)
		defer cancel()
	}
	ctx, rid := reqid.WithID(ctx, r.Header.Get(reqid.Header))
	w.Header().Set(reqid.Header, rid)

	rec := &recorder{ResponseWriter: w, status: http.StatusOK}
	start := time.Now()
	eventbus.Publish(ctx, events.HTTPStart{Request: r})
	defer func() {
		eventbus.Publish(ctx, events.HTTPFinish{
			Request:    r,
			Status:     rec.status,
			Operations: rec.operations,
			Duration:   time.Since(start),
		})
	}()

	h.cors(rec, r)
	switch {
	case r.Method == http.MethodOptions:
		rec.WriteHeader(http.StatusNoContent)
		return
	case r.Method != http.MethodGet && r.Method != http.MethodPost:
		h.fail(rec, http.StatusMethodNotAllowed, "method not allowed")
		return
	case r.Method == http.MethodGet && h.cfg.graphiql && wantsHTML(r) && r.URL.Query().Get("query") == "":
		rec.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = rec.Write(graphiqlPage)
		return
	}

	reqs, batch, err := readRequests(r, h.cfg.maxBodyBytes)
	if err != nil {
		h.fail(rec, err.status, err.message)
		return
	}
	rec.operations = len(reqs)
	ctx = remote.WithForwardedHeaders(ctx, forwarded(r.Header, h.cfg.forwardHeaders))

	results := make([]response, len(reqs))
	for i, req := range reqs {
		results[i] = h.execute(ctx, req)
	}
	if batch {
		h.write(rec, http.StatusOK, results)
		return
	}
	h.write(rec, http.StatusOK, results[0])
}

// execute parses and runs one request, publishing its GraphQL events.
func (h *Handler) execute(ctx context.Context, req request) response {
	doc, err := language.ParseQuery(req.Query)
	if err != nil {
		return parseFailure(err)
	}
	opType := ""
	if op := doc.Operations.ForName(req.OperationName); op != nil {
		opType = string(op.Operation)
	} else if len(doc.Operations) == 1 {
		opType = string(doc.Operations[0].Operation)
	}

	start := time.Now()
	eventbus.Publish(ctx, events.GraphQLStart{Query: req.Query, OperationName: req.OperationName, OperationType: opType})
	res := h.exec.Execute(ctx, doc, req.OperationName, req.Variables)
	errs := make([]error, len(res.Errors))
	for i, e := range res.Errors {
		errs[i] = e
	}
	eventbus.Publish(ctx, events.GraphQLFinish{
		Query:         req.Query,
		OperationName: req.OperationName,
		OperationType: opType,
		Errors:        errs,
		Duration:      time.Since(start),
	})
	return fromResult(res)
}

// forwarded picks the allowed headers out of in.
func forwarded(in http.Header, allowed []string) http.Header {
	if len(allowed) == 0 {
		return nil
	}
	out := http.Header{}
	for _, name := range allowed {
		if vs := in.Values(name); len(vs) > 0 {
			out[http.CanonicalHeaderKey(name)] = append([]string(nil), vs...)
		}
	}
	return out
}

// recorder remembers the status and operation count for HTTPFinish.
type recorder struct {
	http.ResponseWriter
	status     int
	operations int
}

func (r *recorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
