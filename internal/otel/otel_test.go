package otel

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	eventbus "github.com/hanpama/envelope/internal/eventbus"
	events "github.com/hanpama/envelope/internal/events"
	reqid "github.com/hanpama/envelope/internal/reqid"
)

func TestSetupDisabled(t *testing.T) {
	shutdown, err := Setup(context.Background(), "", "svc")
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))
}

func TestSubscriberSpans(t *testing.T) {
	eventbus.Use(eventbus.New())
	defer eventbus.Use(nil)

	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	unsubscribe := newSubscriber(tp.Tracer("test")).register()
	defer unsubscribe()

	ctx, _ := reqid.NewContext(context.Background())
	req := httptest.NewRequest("POST", "/graphql", nil)
	eventbus.Publish(ctx, events.HTTPStart{Request: req})
	eventbus.Publish(ctx, events.ContextBuildingStart{Plugins: 2})
	eventbus.Publish(ctx, events.HookFinish{Plugin: "auth", Phase: "onContextBuilding", Err: errors.New("denied")})
	eventbus.Publish(ctx, events.ContextBuildingFinish{Err: errors.New("denied")})
	eventbus.Publish(ctx, events.HTTPFinish{Request: req, Status: 500})

	ended := rec.Ended()
	require.Len(t, ended, 2)
	building, http := ended[0], ended[1]
	require.Equal(t, "graphql.context_building", building.Name())
	require.Equal(t, codes.Error, building.Status().Code)
	require.Len(t, building.Events(), 2) // hook event and the recorded error
	require.Equal(t, "http.request", http.Name())
	require.Equal(t, http.SpanContext().SpanID(), building.Parent().SpanID())
}
