package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-logr/logr"
	"google.golang.org/grpc/metadata"

	coercion "github.com/hanpama/matchbox/internal/coercion"
	engine "github.com/hanpama/matchbox/internal/engine"
	eventbus "github.com/hanpama/matchbox/internal/eventbus"
	events "github.com/hanpama/matchbox/internal/events"
	language "github.com/hanpama/matchbox/internal/language"
	reqid "github.com/hanpama/matchbox/internal/reqid"
	response "github.com/hanpama/matchbox/internal/response"
	validation "github.com/hanpama/matchbox/internal/validation"
)

// Error codes reported in extensions.code. Validation failures use the
// validation.ErrorKind name.
const (
	CodeParseFailed    = "GRAPHQL_PARSE_FAILED"
	CodeBadRequest     = "BAD_REQUEST"
	CodeInternal       = "INTERNAL_SERVER_ERROR"
	CodeResolverFailed = "RESOLVER_ERROR"
)

// Handler serves a GraphQL endpoint over HTTP. Each operation is prepared
// and executed by the engine with the handler's resolver; the response body
// follows the GraphQL over HTTP conventions.
type Handler struct {
	engine   *engine.Engine
	resolver engine.Resolver
	opt      Options
}

type Options struct {
	// Timeout bounds requests whose context has no deadline. 0 disables it.
	Timeout time.Duration

	// Pretty indents JSON responses.
	Pretty bool

	// MaxBodyBytes limits the request body. 0 means unlimited.
	MaxBodyBytes int64

	CORS CORSOptions

	// MetadataHeaders lists HTTP headers forwarded to resolvers as outgoing
	// gRPC metadata, matched case-insensitively.
	MetadataHeaders []string

	// GraphiQL serves the in-browser IDE to HTML clients.
	GraphiQL bool

	Logger logr.Logger
}

type Option func(*Options)

func WithTimeout(d time.Duration) Option        { return func(o *Options) { o.Timeout = d } }
func WithPretty() Option                        { return func(o *Options) { o.Pretty = true } }
func WithMaxBodyBytes(n int64) Option           { return func(o *Options) { o.MaxBodyBytes = n } }
func WithCORS(origins ...string) Option         { return func(o *Options) { o.CORS.AllowedOrigins = origins } }
func WithMetadataHeaders(hdrs ...string) Option { return func(o *Options) { o.MetadataHeaders = hdrs } }
func WithGraphiQL(enable bool) Option           { return func(o *Options) { o.GraphiQL = enable } }
func WithLogger(l logr.Logger) Option           { return func(o *Options) { o.Logger = l } }

func New(eng *engine.Engine, resolver engine.Resolver, opts ...Option) *Handler {
	o := Options{Timeout: 10 * time.Second, Logger: logr.Discard()}
	for _, apply := range opts {
		apply(&o)
	}
	return &Handler{engine: eng, resolver: resolver, opt: o}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, ok := ctx.Deadline(); !ok && h.opt.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.opt.Timeout)
		defer cancel()
	}

	ctx, rid := reqid.NewContext(ctx)
	status := http.StatusOK
	start := time.Now()
	eventbus.Publish(ctx, events.HTTPStart{Request: r})
	defer func() {
		d := time.Since(start)
		h.opt.Logger.V(2).Info("request served", "method", r.Method, "status", status, "duration", d, "requestID", rid)
		eventbus.Publish(ctx, events.HTTPFinish{Request: r, Status: status, Duration: d})
	}()

	h.opt.CORS.apply(w, r)
	switch r.Method {
	case http.MethodOptions:
		status = http.StatusNoContent
		w.WriteHeader(status)
		return
	case http.MethodGet:
		if h.opt.GraphiQL && r.URL.Query().Get("query") == "" && acceptsHTML(r.Header.Get("Accept")) {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			_, _ = w.Write(graphiqlPage)
			return
		}
	case http.MethodPost:
	default:
		status = http.StatusMethodNotAllowed
		w.Header().Set("Allow", "GET, POST, OPTIONS")
		h.writeJSON(w, status, requestError("method not allowed"))
		return
	}

	reqs, batch, bad := readRequests(r, h.opt.MaxBodyBytes)
	if bad != nil {
		status = bad.status
		if status == http.StatusMethodNotAllowed {
			w.Header().Set("Allow", "POST")
		}
		h.writeJSON(w, status, requestError(bad.msg))
		return
	}

	ctx = metadata.NewOutgoingContext(ctx, h.outgoingMetadata(r.Header, rid))
	results := make([]specResult, len(reqs))
	for i, req := range reqs {
		results[i] = h.executeOne(ctx, req)
	}
	if batch {
		h.writeJSON(w, status, results)
		return
	}
	h.writeJSON(w, status, results[0])
}

// outgoingMetadata selects the forwarded headers and tags them with the
// request id.
func (h *Handler) outgoingMetadata(hdr http.Header, rid int64) metadata.MD {
	md := metadata.MD{}
	for _, name := range h.opt.MetadataHeaders {
		if vals := hdr.Values(name); len(vals) > 0 {
			md.Set(name, vals...)
		}
	}
	md.Set("graphql-request-id", strconv.FormatInt(rid, 10))
	return md
}

func (h *Handler) executeOne(ctx context.Context, req engine.Request) specResult {
	opType := operationType(req)
	start := time.Now()
	eventbus.Publish(ctx, events.OperationStart{Query: req.Query, OperationName: req.OperationName, OperationType: opType})

	data, err := h.engine.Execute(ctx, req, h.resolver)

	eventbus.Publish(ctx, events.OperationFinish{
		OperationName: req.OperationName,
		OperationType: opType,
		Err:           err,
		Duration:      time.Since(start),
	})
	if err != nil {
		return h.errorResult(err)
	}
	return specResult{Data: data[response.RootKey]}
}

// operationType reports the kind of the requested operation, or "" when the
// query does not parse or names no single operation.
func operationType(req engine.Request) string {
	doc, err := language.ParseQuery(req.Query)
	if err != nil {
		return ""
	}
	op := doc.Operations.ForName(req.OperationName)
	if op == nil && len(doc.Operations) == 1 {
		op = doc.Operations[0]
	}
	if op == nil {
		return ""
	}
	return string(op.Operation)
}

type specLocation struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

type specError struct {
	Message    string         `json:"message"`
	Locations  []specLocation `json:"locations,omitempty"`
	Path       []any          `json:"path,omitempty"`
	Extensions map[string]any `json:"extensions,omitempty"`
}

type specResult struct {
	Data   any         `json:"data"`
	Errors []specError `json:"errors,omitempty"`
}

func requestError(msg string) specResult {
	return specResult{Errors: []specError{{Message: msg, Extensions: map[string]any{"code": CodeBadRequest}}}}
}

func (h *Handler) errorResult(err error) specResult {
	var (
		pe *engine.ParseError
		ve *validation.Error
		re *engine.ResolveError
	)
	se := specError{Message: err.Error(), Extensions: map[string]any{"code": CodeInternal}}
	switch {
	case errors.As(err, &pe):
		se.Message = pe.Err.Message
		se.Locations = locations(pe.Err.Locations)
		se.Extensions["code"] = CodeParseFailed
	case errors.As(err, &ve):
		se.Message = ve.Message
		se.Locations = locations(ve.Locations)
		se.Extensions["code"] = string(ve.Kind)
		if ve.Operation != "" {
			se.Extensions["operation"] = string(ve.Operation)
		}
		if ve.Name != "" {
			se.Extensions["variable"] = ve.Name
		}
	case errors.Is(err, coercion.ErrCoercion):
		se.Message = "internal server error"
	case errors.As(err, &re):
		se.Message = re.Err.Error()
		se.Extensions["code"] = CodeResolverFailed
	default:
		h.opt.Logger.Error(err, "unexpected execution error")
		se.Message = "internal server error"
	}
	return specResult{Errors: []specError{se}}
}

func locations(in []language.ErrorLocation) []specLocation {
	if len(in) == 0 {
		return nil
	}
	out := make([]specLocation, len(in))
	for i, l := range in {
		out[i] = specLocation{Line: l.Line, Column: l.Column}
	}
	return out
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	if h.opt.Pretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(v); err != nil {
		h.opt.Logger.V(1).Info("writing response failed", "error", err.Error())
	}
}
