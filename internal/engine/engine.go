// Package engine ties parsing, validation, coercion and response assembly
// into a request pipeline.
package engine

import (
	"context"
	"errors"

	"github.com/go-logr/logr"

	coercion "github.com/hanpama/matchbox/internal/coercion"
	eventbus "github.com/hanpama/matchbox/internal/eventbus"
	events "github.com/hanpama/matchbox/internal/events"
	registry "github.com/hanpama/matchbox/internal/registry"
	reqid "github.com/hanpama/matchbox/internal/reqid"
	response "github.com/hanpama/matchbox/internal/response"
	validation "github.com/hanpama/matchbox/internal/validation"
)

// Resolver walks a coerced operation and fills the root response node.
// Values that are not yet known are registered as pending outcomes.
type Resolver interface {
	Resolve(ctx context.Context, op *coercion.Operation, data *response.Node) error
}

// ResolverFunc adapts a function to Resolver.
type ResolverFunc func(ctx context.Context, op *coercion.Operation, data *response.Node) error

func (f ResolverFunc) Resolve(ctx context.Context, op *coercion.Operation, data *response.Node) error {
	return f(ctx, op, data)
}

type Options struct {
	Logger logr.Logger
}

// Engine executes requests against one registry. It is safe for concurrent
// use; all request state is local to a call.
type Engine struct {
	reg *registry.Registry
	log logr.Logger
}

func New(reg *registry.Registry, opts Options) *Engine {
	return &Engine{reg: reg, log: opts.Logger}
}

func (e *Engine) Registry() *registry.Registry { return e.reg }

// Prepare is the package-level Prepare with failure logging and events.
func (e *Engine) Prepare(ctx context.Context, req Request) (*coercion.Operation, error) {
	op, err := Prepare(e.reg, req)
	if err == nil {
		return op, nil
	}

	log := reqid.Logger(ctx, e.log)
	var ve *validation.Error
	var pe *ParseError
	switch {
	case errors.As(err, &pe):
		log.V(1).Info("query parse failed", "operation", req.OperationName, "error", pe.Err.Message)
	case errors.As(err, &ve):
		log.V(1).Info("query validation failed", "operation", req.OperationName, "kind", ve.Kind, "error", ve.Message)
		eventbus.Publish(ctx, events.ValidationFailed{OperationName: req.OperationName, Kind: string(ve.Kind), Message: ve.Message})
	case errors.Is(err, coercion.ErrCoercion):
		log.Error(err, "coercion rejected a validated operation; validation and coercion disagree", "operation", req.OperationName, "query", req.Query)
		eventbus.Publish(ctx, events.CoercionFailed{OperationName: req.OperationName, Err: err})
	}
	return nil, err
}

// Execute prepares req, lets resolver fill the root node and resolves it.
// The result is the {"data": {...}} envelope.
func (e *Engine) Execute(ctx context.Context, req Request, resolver Resolver) (map[string]any, error) {
	op, err := e.Prepare(ctx, req)
	if err != nil {
		return nil, err
	}
	root := response.NewRoot()
	if err := resolver.Resolve(ctx, op, root); err != nil {
		return nil, &ResolveError{Err: err}
	}
	out, err := root.Envelope(ctx)
	if err != nil {
		reqid.Logger(ctx, e.log).V(1).Info("resolution failed", "operation", op.Name, "error", err.Error())
		return nil, &ResolveError{Err: err}
	}
	return out, nil
}
