package tracing

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/jaeger"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	tracesdk "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/vopenia-io/meet"

// TracerProvider wraps OpenTelemetry tracer provider
type TracerProvider struct {
	tp *tracesdk.TracerProvider
}

type Config struct {
	Enabled     bool
	ServiceName string
	JaegerURL   string
	Environment string
	SampleRate  float64
}

func DefaultConfig() Config {
	return Config{
		Enabled:     false,
		ServiceName: "meet",
		JaegerURL:   "http://localhost:14268/api/traces",
		Environment: "development",
		SampleRate:  1.0,
	}
}

// Init installs the global tracer provider. With tracing disabled the global
// no-op provider stays in place.
func Init(cfg Config) (*TracerProvider, error) {
	if !cfg.Enabled {
		return &TracerProvider{}, nil
	}

	exp, err := jaeger.New(jaeger.WithCollectorEndpoint(jaeger.WithEndpoint(cfg.JaegerURL)))
	if err != nil {
		return nil, fmt.Errorf("failed to create Jaeger exporter: %w", err)
	}

	res, err := resource.New(context.Background(),
		resource.WithAttributes(
			semconv.ServiceNameKey.String(cfg.ServiceName),
			attribute.String("environment", cfg.Environment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	tp := tracesdk.NewTracerProvider(
		tracesdk.WithBatcher(exp),
		tracesdk.WithResource(res),
		tracesdk.WithSampler(tracesdk.ParentBased(tracesdk.TraceIDRatioBased(cfg.SampleRate))),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return &TracerProvider{tp: tp}, nil
}

func (tp *TracerProvider) Shutdown(ctx context.Context) error {
	if tp.tp != nil {
		return tp.tp.Shutdown(ctx)
	}
	return nil
}

func StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return otel.Tracer(instrumentationName).Start(ctx, name, opts...)
}

func AddSpanAttributes(ctx context.Context, attrs ...attribute.KeyValue) {
	span := trace.SpanFromContext(ctx)
	if span.IsRecording() {
		span.SetAttributes(attrs...)
	}
}

// RecordError marks the current span as failed. nil errors are ignored.
func RecordError(ctx context.Context, err error) {
	if err == nil {
		return
	}
	span := trace.SpanFromContext(ctx)
	if span.IsRecording() {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

var (
	RoomIDKey        = attribute.Key("meet.room.id")
	ParticipantIDKey = attribute.Key("meet.participant.id")
	UserIDKey        = attribute.Key("meet.user.id")
	EventKey         = attribute.Key("meet.webhook.event")
	WorkerIDKey      = attribute.Key("meet.recording.worker_id")
	ModeKey          = attribute.Key("meet.notify.mode")
)

func TraceHTTPRequest(ctx context.Context, method, route string) (context.Context, trace.Span) {
	return StartSpan(ctx, fmt.Sprintf("http.%s", method),
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(
			semconv.HTTPMethodKey.String(method),
			semconv.HTTPRouteKey.String(route),
		),
	)
}

// TraceLobbyOperation starts a span for a lobby state transition.
func TraceLobbyOperation(ctx context.Context, operation, roomID, participantID string) (context.Context, trace.Span) {
	attrs := []attribute.KeyValue{RoomIDKey.String(roomID)}
	if participantID != "" {
		attrs = append(attrs, ParticipantIDKey.String(participantID))
	}
	return StartSpan(ctx, "lobby."+operation, trace.WithAttributes(attrs...))
}

func TraceWebhookEvent(ctx context.Context, event string) (context.Context, trace.Span) {
	return StartSpan(ctx, "webhook."+event, trace.WithAttributes(EventKey.String(event)))
}

// TraceRTCCall starts a client span around an outbound call to the media server API.
func TraceRTCCall(ctx context.Context, operation string) (context.Context, trace.Span) {
	return StartSpan(ctx, "livekit."+operation, trace.WithSpanKind(trace.SpanKindClient))
}

func TraceStoreOperation(ctx context.Context, operation string) (context.Context, trace.Span) {
	return StartSpan(ctx, "store."+operation,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("db.operation", operation)),
	)
}
