package server

import (
	"encoding/json"
	"io"
	"mime"
	"net/http"
)

type request struct {
	Query         string         `json:"query"`
	OperationName string         `json:"operationName,omitempty"`
	Variables     map[string]any `json:"variables,omitempty"`
	Extensions    map[string]any `json:"extensions,omitempty"`
}

type requestError struct {
	status  int
	message string
}

func badRequest(message string) *requestError {
	return &requestError{status: http.StatusBadRequest, message: message}
}

// readRequests decodes the operations of r. batch is set when the body is a
// JSON array.
func readRequests(r *http.Request, maxBody int64) (reqs []request, batch bool, err *requestError) {
	if r.Method == http.MethodGet {
		req, err := queryRequest(r)
		if err != nil {
			return nil, false, err
		}
		return []request{req}, false, nil
	}

	body, err := readBody(r, maxBody)
	if err != nil {
		return nil, false, err
	}
	mediaType := "application/json"
	if ct := r.Header.Get("Content-Type"); ct != "" {
		mt, _, perr := mime.ParseMediaType(ct)
		if perr != nil {
			return nil, false, &requestError{status: http.StatusUnsupportedMediaType, message: "unsupported Content-Type"}
		}
		mediaType = mt
	}
	switch mediaType {
	case "application/graphql":
		if len(body) == 0 {
			return nil, false, badRequest("missing 'query'")
		}
		return []request{{Query: string(body)}}, false, nil
	case "application/json":
	default:
		return nil, false, &requestError{status: http.StatusUnsupportedMediaType, message: "unsupported Content-Type"}
	}

	if len(body) > 0 && body[0] == '[' {
		if jerr := json.Unmarshal(body, &reqs); jerr != nil {
			return nil, false, badRequest("invalid JSON")
		}
		if len(reqs) == 0 {
			return nil, false, badRequest("empty batch")
		}
		return reqs, true, nil
	}
	var req request
	if jerr := json.Unmarshal(body, &req); jerr != nil {
		return nil, false, badRequest("invalid JSON")
	}
	if req.Query == "" {
		return nil, false, badRequest("missing 'query'")
	}
	return []request{req}, false, nil
}

func queryRequest(r *http.Request) (request, *requestError) {
	params := r.URL.Query()
	req := request{Query: params.Get("query"), OperationName: params.Get("operationName")}
	if req.Query == "" {
		return request{}, badRequest("missing 'query'")
	}
	if v := params.Get("variables"); v != "" {
		if err := json.Unmarshal([]byte(v), &req.Variables); err != nil {
			return request{}, badRequest("invalid 'variables' JSON")
		}
	}
	return req, nil
}

func readBody(r *http.Request, maxBody int64) ([]byte, *requestError) {
	defer r.Body.Close()
	var src io.Reader = r.Body
	if maxBody > 0 {
		src = io.LimitReader(r.Body, maxBody+1)
	}
	body, err := io.ReadAll(src)
	if err != nil {
		return nil, badRequest("failed to read body")
	}
	if maxBody > 0 && int64(len(body)) > maxBody {
		return nil, &requestError{status: http.StatusRequestEntityTooLarge, message: "body too large"}
	}
	return body, nil
}
