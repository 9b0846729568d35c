package otel

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	eventbus "github.com/hanpama/matchbox/internal/eventbus"
	events "github.com/hanpama/matchbox/internal/events"
	reqid "github.com/hanpama/matchbox/internal/reqid"
)

func TestSetupWithoutEndpoint(t *testing.T) {
	shutdown, err := Setup("", "matchbox", logr.Discard())
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))
}

func TestSpansFromEvents(t *testing.T) {
	eventbus.Use(eventbus.New())
	defer eventbus.Use(nil)

	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	unsubscribe := Register(tp.Tracer(tracerName))
	defer unsubscribe()

	ctx, _ := reqid.NewContext(context.Background())
	r := httptest.NewRequest("POST", "/graphql", nil)
	eventbus.Publish(ctx, events.HTTPStart{Request: r})
	eventbus.Publish(ctx, events.OperationStart{Query: "{ meow }", OperationType: "query"})
	eventbus.Publish(ctx, events.ValidationFailed{Kind: "INVALID_SELECTION_SET", Message: "no meow"})
	eventbus.Publish(ctx, events.OperationFinish{OperationType: "query", Err: errors.New("no meow"), Duration: time.Millisecond})
	eventbus.Publish(ctx, events.HTTPFinish{Request: r, Status: 200, Duration: time.Millisecond})

	spans := rec.Ended()
	require.Len(t, spans, 2)
	gql, outer := spans[0], spans[1]
	require.Equal(t, "graphql.operation", gql.Name())
	require.Equal(t, "http.request", outer.Name())
	require.Equal(t, outer.SpanContext().SpanID(), gql.Parent().SpanID())
	require.Equal(t, codes.Error, gql.Status().Code)
	require.Len(t, gql.Events(), 2)
	require.Equal(t, "graphql.validation_failed", gql.Events()[0].Name)
	require.Equal(t, "exception", gql.Events()[1].Name)
}
