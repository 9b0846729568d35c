// Package otel bridges request lifecycle events to OpenTelemetry spans.
package otel

import (
	"context"
	"sync"

	"github.com/go-logr/logr"

	eventbus "github.com/hanpama/matchbox/internal/eventbus"
	events "github.com/hanpama/matchbox/internal/events"
	reqid "github.com/hanpama/matchbox/internal/reqid"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

const tracerName = "github.com/hanpama/matchbox"

// Setup configures OpenTelemetry and attaches eventbus subscribers. log
// receives OpenTelemetry's internal diagnostics.
// If endpoint is empty, no telemetry is configured.
func Setup(endpoint, service string, log logr.Logger) (func(context.Context) error, error) {
	otel.SetLogger(log)
	if endpoint == "" {
		return func(context.Context) error { return nil }, nil
	}
	exp, err := otlptracegrpc.New(context.Background(),
		otlptracegrpc.WithEndpoint(endpoint),
		otlptracegrpc.WithDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())))
	if err != nil {
		return nil, err
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(service),
		)),
	)
	otel.SetTracerProvider(tp)

	unsubscribe := Register(tp.Tracer(tracerName))
	return func(ctx context.Context) error {
		unsubscribe()
		return tp.Shutdown(ctx)
	}, nil
}

type subscriber struct {
	tracer    trace.Tracer
	httpSpans sync.Map // rid -> trace.Span
	gqlSpans  sync.Map // rid -> trace.Span
}

// Register subscribes tracer to the global event bus and returns a function
// removing the subscriptions.
func Register(tracer trace.Tracer) (unsubscribe func()) {
	s := &subscriber{tracer: tracer}
	unsubs := []func(){
		eventbus.Subscribe(s.httpStart),
		eventbus.Subscribe(s.httpFinish),
		eventbus.Subscribe(s.operationStart),
		eventbus.Subscribe(s.operationFinish),
		eventbus.Subscribe(s.validationFailed),
		eventbus.Subscribe(s.coercionFailed),
	}
	return func() {
		for _, u := range unsubs {
			u()
		}
	}
}

func (s *subscriber) httpStart(ctx context.Context, e events.HTTPStart) {
	rid, _ := reqid.FromContext(ctx)
	_, span := s.tracer.Start(ctx, "http.request")
	span.SetAttributes(
		semconv.HTTPMethodKey.String(e.Request.Method),
		attribute.String("http.target", e.Request.URL.Path),
	)
	s.httpSpans.Store(rid, span)
}

func (s *subscriber) httpFinish(ctx context.Context, e events.HTTPFinish) {
	rid, _ := reqid.FromContext(ctx)
	v, ok := s.httpSpans.LoadAndDelete(rid)
	if !ok {
		return
	}
	span := v.(trace.Span)
	span.SetAttributes(semconv.HTTPStatusCodeKey.Int(e.Status))
	span.End()
}

func (s *subscriber) operationStart(ctx context.Context, e events.OperationStart) {
	rid, _ := reqid.FromContext(ctx)
	parent := ctx
	if v, ok := s.httpSpans.Load(rid); ok {
		parent = trace.ContextWithSpan(ctx, v.(trace.Span))
	}
	_, span := s.tracer.Start(parent, "graphql.operation")
	span.SetAttributes(
		attribute.String("graphql.operation.name", e.OperationName),
		attribute.String("graphql.operation.type", e.OperationType),
	)
	s.gqlSpans.Store(rid, span)
}

func (s *subscriber) operationFinish(ctx context.Context, e events.OperationFinish) {
	rid, _ := reqid.FromContext(ctx)
	v, ok := s.gqlSpans.LoadAndDelete(rid)
	if !ok {
		return
	}
	span := v.(trace.Span)
	if e.Err != nil {
		span.RecordError(e.Err)
		span.SetStatus(codes.Error, e.Err.Error())
	}
	span.End()
}

func (s *subscriber) validationFailed(ctx context.Context, e events.ValidationFailed) {
	if span, ok := s.operationSpan(ctx); ok {
		span.AddEvent("graphql.validation_failed", trace.WithAttributes(
			attribute.String("graphql.error.kind", e.Kind),
			attribute.String("graphql.error.message", e.Message),
		))
	}
}

func (s *subscriber) coercionFailed(ctx context.Context, e events.CoercionFailed) {
	if span, ok := s.operationSpan(ctx); ok {
		span.AddEvent("graphql.coercion_failed", trace.WithAttributes(
			attribute.String("graphql.error.message", e.Err.Error()),
		))
	}
}

func (s *subscriber) operationSpan(ctx context.Context) (trace.Span, bool) {
	rid, _ := reqid.FromContext(ctx)
	v, ok := s.gqlSpans.Load(rid)
	if !ok {
		return nil, false
	}
	return v.(trace.Span), true
}
