package server

import (
	"encoding/json"
	"io"
	"mime"
	"net/http"

	engine "github.com/hanpama/matchbox/internal/engine"
	language "github.com/hanpama/matchbox/internal/language"
)

// badRequest is a transport level failure reported before any operation is
// prepared.
type badRequest struct {
	status int
	msg    string
}

func (e *badRequest) Error() string { return e.msg }

func rejected(msg string) *badRequest {
	return &badRequest{status: http.StatusBadRequest, msg: msg}
}

// readRequests extracts the operations carried by r. GET requests may only
// carry queries. A JSON array body is a batch and yields one request per
// element.
func readRequests(r *http.Request, maxBody int64) ([]engine.Request, bool, *badRequest) {
	if r.Method == http.MethodGet {
		req, err := queryRequest(r)
		if err != nil {
			return nil, false, err
		}
		return []engine.Request{req}, false, nil
	}

	if ct := r.Header.Get("Content-Type"); ct != "" {
		if mt, _, err := mime.ParseMediaType(ct); err != nil || mt != "application/json" {
			return nil, false, rejected("unsupported Content-Type")
		}
	}

	body, err := readBody(r, maxBody)
	if err != nil {
		return nil, false, err
	}

	if len(body) > 0 && body[0] == '[' {
		var reqs []engine.Request
		if err := json.Unmarshal(body, &reqs); err != nil {
			return nil, false, rejected("invalid JSON")
		}
		if len(reqs) == 0 {
			return nil, false, rejected("empty batch")
		}
		return reqs, true, nil
	}

	var req engine.Request
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, false, rejected("invalid JSON")
	}
	if req.Query == "" {
		return nil, false, rejected("missing 'query'")
	}
	return []engine.Request{req}, false, nil
}

func queryRequest(r *http.Request) (engine.Request, *badRequest) {
	params := r.URL.Query()
	q := params.Get("query")
	if q == "" {
		return engine.Request{}, rejected("missing 'query'")
	}
	vars, err := engine.DecodeVariables([]byte(params.Get("variables")))
	if err != nil {
		return engine.Request{}, rejected("invalid 'variables' JSON")
	}
	req := engine.Request{Query: q, OperationName: params.Get("operationName"), Variables: vars}
	if operationType(req) == string(language.Mutation) {
		return engine.Request{}, &badRequest{status: http.StatusMethodNotAllowed, msg: "mutations must be sent with POST"}
	}
	return req, nil
}

func readBody(r *http.Request, maxBody int64) ([]byte, *badRequest) {
	defer r.Body.Close()
	var src io.Reader = r.Body
	if maxBody > 0 {
		src = io.LimitReader(r.Body, maxBody+1)
	}
	body, err := io.ReadAll(src)
	if err != nil {
		return nil, rejected("failed to read body")
	}
	if maxBody > 0 && int64(len(body)) > maxBody {
		return nil, &badRequest{status: http.StatusRequestEntityTooLarge, msg: "body too large"}
	}
	return body, nil
}
