package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/hanpama/graphstitch/internal/executor"
	"github.com/hanpama/graphstitch/internal/language"
)

type location struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

type responseError struct {
	Message    string         `json:"message"`
	Locations  []location     `json:"locations,omitempty"`
	Path       []any          `json:"path,omitempty"`
	Extensions map[string]any `json:"extensions,omitempty"`
}

type response struct {
	Data   any             `json:"data"`
	Errors []responseError `json:"errors,omitempty"`
}

func fromResult(res *executor.ExecutionResult) response {
	out := response{Data: res.Data}
	for _, e := range res.Errors {
		re := responseError{Message: e.Message, Extensions: e.Extensions}
		for _, el := range e.Path {
			re.Path = append(re.Path, el)
		}
		out.Errors = append(out.Errors, re)
	}
	return out
}

// parseFailure reports a syntax error with its source locations.
func parseFailure(err error) response {
	var gqlErr *language.Error
	if !errors.As(err, &gqlErr) {
		return response{Errors: []responseError{{Message: err.Error()}}}
	}
	re := responseError{Message: gqlErr.Message, Extensions: gqlErr.Extensions}
	for _, l := range gqlErr.Locations {
		re.Locations = append(re.Locations, location{Line: l.Line, Column: l.Column})
	}
	return response{Errors: []responseError{re}}
}

func (h *Handler) fail(w http.ResponseWriter, status int, message string) {
	h.write(w, status, response{Errors: []responseError{{Message: message}}})
}

func (h *Handler) write(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	if h.cfg.pretty {
		enc.SetIndent("", "  ")
	}
	_ = enc.Encode(v)
}

// cors sets the CORS headers when the request origin is allowed.
func (h *Handler) cors(w http.ResponseWriter, r *http.Request) {
	origin := r.Header.Get("Origin")
	if origin == "" || len(h.cfg.corsOrigins) == 0 {
		return
	}
	allowed := ""
	for _, o := range h.cfg.corsOrigins {
		if o == "*" {
			allowed = "*"
			break
		}
		if o == origin {
			allowed = origin
		}
	}
	if allowed == "" {
		return
	}
	w.Header().Set("Access-Control-Allow-Origin", allowed)
	if allowed != "*" {
		w.Header().Add("Vary", "Origin")
	}
	if r.Method == http.MethodOptions {
		if hdr := r.Header.Get("Access-Control-Request-Headers"); hdr != "" {
			w.Header().Set("Access-Control-Allow-Headers", hdr)
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
	}
}

func wantsHTML(r *http.Request) bool {
	for _, part := range strings.Split(r.Header.Get("Accept"), ",") {
		part = strings.TrimSpace(part)
		if strings.HasPrefix(part, "text/html") || part == "*/*" {
			return true
		}
	}
	return false
}
