// Package emit sends scripted traces to an OTLP/HTTP endpoint through the
// OpenTelemetry SDK.
package emit

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
	oteltrace "go.opentelemetry.io/otel/trace"

	"tracecheck/internal/trace"
)

// DefaultServiceName is the service.name resource attribute of emitted spans
const DefaultServiceName = "tracecheck-emitter"

const instrumentationName = "tracecheck/emit"

// Call is a child span of the scenario's root span
type Call struct {
	Name       string
	Kind       trace.SpanKind // Defaults to CLIENT when not valid
	Attributes trace.Attributes
}

// Scenario describes one trace: a SERVER root span and its direct children
type Scenario struct {
	Name       string // Root span name
	Attributes trace.Attributes
	Calls      []Call
	Events     []trace.Event // Added to the root span in order
	Exception  string        // Recorded on the root span as an exception event when set
}

// DemoScenario is a servlet-style request: a SERVER span with one outgoing
// CLIENT call.
func DemoScenario() Scenario {
	return Scenario{
		Name: "GET /app/greeting",
		Attributes: trace.Attributes{
			"http.method":      trace.StringValue("GET"),
			"http.route":       trace.StringValue("/app/greeting"),
			"http.status_code": trace.IntValue(200),
		},
		Calls: []Call{{
			Name: "GET /app/headers",
			Kind: trace.KindClient,
			Attributes: trace.Attributes{
				"http.method":      trace.StringValue("GET"),
				"http.status_code": trace.IntValue(200),
			},
		}},
	}
}

type options struct {
	serviceName string
	exporter    sdktrace.SpanExporter
	gzip        bool
}

// Option configures an Emitter
type Option func(*options)

// WithServiceName sets the service.name resource attribute
func WithServiceName(name string) Option {
	return func(o *options) { o.serviceName = name }
}

// WithExporter replaces the OTLP/HTTP exporter, mainly for tests
func WithExporter(exp sdktrace.SpanExporter) Option {
	return func(o *options) { o.exporter = exp }
}

// WithGzip toggles gzip compression of export requests (on by default)
func WithGzip(enabled bool) Option {
	return func(o *options) { o.gzip = enabled }
}

// Emitter produces traces through an SDK tracer provider
type Emitter struct {
	provider *sdktrace.TracerProvider
	tracer   oteltrace.Tracer
}

// New creates an emitter exporting to endpoint, given either as "host:port"
// or as an http(s) URL.
func New(ctx context.Context, endpoint string, opts ...Option) (*Emitter, error) {
	o := options{serviceName: DefaultServiceName, gzip: true}
	for _, opt := range opts {
		opt(&o)
	}

	exporter := o.exporter
	if exporter == nil {
		clientOpts, err := endpointOptions(endpoint)
		if err != nil {
			return nil, err
		}
		if o.gzip {
			clientOpts = append(clientOpts, otlptracehttp.WithCompression(otlptracehttp.GzipCompression))
		}
		exp, err := otlptracehttp.New(ctx, clientOpts...)
		if err != nil {
			return nil, fmt.Errorf("create otlp exporter: %w", err)
		}
		exporter = exp
	}

	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceNameKey.String(o.serviceName),
	)

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)

	return &Emitter{
		provider: provider,
		tracer:   provider.Tracer(instrumentationName),
	}, nil
}

func endpointOptions(endpoint string) ([]otlptracehttp.Option, error) {
	if endpoint == "" {
		return nil, errors.New("emit endpoint must not be empty")
	}
	if !strings.Contains(endpoint, "://") {
		return []otlptracehttp.Option{
			otlptracehttp.WithEndpoint(endpoint),
			otlptracehttp.WithInsecure(),
		}, nil
	}

	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("parse emit endpoint %q: %w", endpoint, err)
	}
	opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(u.Host)}
	switch u.Scheme {
	case "http":
		opts = append(opts, otlptracehttp.WithInsecure())
	case "https":
	default:
		return nil, fmt.Errorf("unsupported emit endpoint scheme %q", u.Scheme)
	}
	if p := strings.TrimRight(u.Path, "/"); p != "" {
		opts = append(opts, otlptracehttp.WithURLPath(p+"/v1/traces"))
	}
	return opts, nil
}

// EmitScenario records one trace for sc and flushes it to the exporter
// before returning its trace ID.
func (e *Emitter) EmitScenario(ctx context.Context, sc Scenario) (trace.TraceID, error) {
	if sc.Name == "" {
		return trace.TraceID{}, errors.New("scenario name must not be empty")
	}

	rootCtx, root := e.tracer.Start(ctx, sc.Name,
		oteltrace.WithSpanKind(oteltrace.SpanKindServer),
		oteltrace.WithAttributes(toKeyValues(sc.Attributes)...),
	)
	for _, call := range sc.Calls {
		kind := call.Kind
		if !kind.IsValid() || kind == trace.KindUnspecified {
			kind = trace.KindClient
		}
		_, child := e.tracer.Start(rootCtx, call.Name,
			oteltrace.WithSpanKind(oteltrace.SpanKind(kind)),
			oteltrace.WithAttributes(toKeyValues(call.Attributes)...),
		)
		child.End()
	}
	for _, ev := range sc.Events {
		root.AddEvent(ev.Name, oteltrace.WithAttributes(toKeyValues(ev.Attributes)...))
	}
	if sc.Exception != "" {
		root.RecordError(errors.New(sc.Exception))
		root.SetStatus(codes.Error, sc.Exception)
	}
	root.End()

	id := trace.TraceID(root.SpanContext().TraceID())
	if err := e.provider.ForceFlush(ctx); err != nil {
		return id, fmt.Errorf("flush trace %s: %w", id, err)
	}
	return id, nil
}

// Shutdown flushes and closes the exporter
func (e *Emitter) Shutdown(ctx context.Context) error {
	if e == nil {
		return nil
	}
	return e.provider.Shutdown(ctx)
}

func toKeyValues(attrs trace.Attributes) []attribute.KeyValue {
	kvs := make([]attribute.KeyValue, 0, len(attrs))
	for k, v := range attrs {
		kvs = append(kvs, toKeyValue(k, v))
	}
	return kvs
}

// toKeyValue maps a typed value onto the closest OTel attribute type.
// Bytes and mixed arrays have no OTel equivalent and are sent as strings.
func toKeyValue(key string, v trace.Value) attribute.KeyValue {
	switch v.Type() {
	case trace.ValueString:
		return attribute.String(key, v.AsString())
	case trace.ValueBool:
		return attribute.Bool(key, v.AsBool())
	case trace.ValueInt:
		return attribute.Int64(key, v.AsInt())
	case trace.ValueDouble:
		return attribute.Float64(key, v.AsDouble())
	case trace.ValueArray:
		if kv, ok := sliceKeyValue(key, v.AsArray()); ok {
			return kv
		}
	}
	return attribute.String(key, v.String())
}

func sliceKeyValue(key string, items []trace.Value) (attribute.KeyValue, bool) {
	if len(items) == 0 {
		return attribute.KeyValue{}, false
	}
	typ := items[0].Type()
	for _, it := range items[1:] {
		if it.Type() != typ {
			return attribute.KeyValue{}, false
		}
	}
	switch typ {
	case trace.ValueString:
		out := make([]string, len(items))
		for i, it := range items {
			out[i] = it.AsString()
		}
		return attribute.StringSlice(key, out), true
	case trace.ValueBool:
		out := make([]bool, len(items))
		for i, it := range items {
			out[i] = it.AsBool()
		}
		return attribute.BoolSlice(key, out), true
	case trace.ValueInt:
		out := make([]int64, len(items))
		for i, it := range items {
			out[i] = it.AsInt()
		}
		return attribute.Int64Slice(key, out), true
	case trace.ValueDouble:
		out := make([]float64, len(items))
		for i, it := range items {
			out[i] = it.AsDouble()
		}
		return attribute.Float64Slice(key, out), true
	}
	return attribute.KeyValue{}, false
}
