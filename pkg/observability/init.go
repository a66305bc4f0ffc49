package observability

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/metric"
	noopmetric "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"
)

const (
	instrumentationName = "github.com/Sumatoshi-tech/segtree"

	envTracesSampler    = "OTEL_TRACES_SAMPLER"
	envTracesSamplerArg = "OTEL_TRACES_SAMPLER_ARG"

	attrAppMode = "app.mode"
)

// envSamplers maps OTEL_TRACES_SAMPLER values to samplers. The argument is
// the parsed OTEL_TRACES_SAMPLER_ARG ratio.
var envSamplers = map[string]func(ratio float64) sdktrace.Sampler{
	"always_on":  func(float64) sdktrace.Sampler { return sdktrace.AlwaysSample() },
	"always_off": func(float64) sdktrace.Sampler { return sdktrace.NeverSample() },
	"traceidratio": func(ratio float64) sdktrace.Sampler {
		return sdktrace.TraceIDRatioBased(ratio)
	},
	"parentbased_always_on": func(float64) sdktrace.Sampler {
		return sdktrace.ParentBased(sdktrace.AlwaysSample())
	},
	"parentbased_always_off": func(float64) sdktrace.Sampler {
		return sdktrace.ParentBased(sdktrace.NeverSample())
	},
	"parentbased_traceidratio": func(ratio float64) sdktrace.Sampler {
		return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))
	},
}

// Providers holds the initialized observability providers.
type Providers struct {
	// Tracer starts spans for script runs and MCP tool calls.
	Tracer trace.Tracer

	// Meter creates the RED instruments.
	Meter metric.Meter

	// Logger is the trace-aware structured logger.
	Logger *slog.Logger

	// Shutdown flushes pending telemetry. Call it before the process exits;
	// calling it twice is harmless.
	Shutdown func(ctx context.Context) error
}

// Init wires tracing, metrics, and logging for one process. Without an
// OTLP endpoint traces are dropped, and metrics are dropped too unless
// extra readers (such as the Prometheus reader) are given.
func Init(cfg Config, readers ...sdkmetric.Reader) (Providers, error) {
	ctx := context.Background()

	res, err := resource.New(ctx, resource.WithAttributes(resourceAttributes(cfg)...))
	if err != nil {
		return Providers{}, fmt.Errorf("build otel resource: %w", err)
	}

	exp := exporterSettings{
		endpoint: cfg.OTLPEndpoint,
		insecure: cfg.OTLPInsecure,
		headers:  cfg.OTLPHeaders,
	}

	tp, stopTraces, err := newTracerProvider(ctx, exp, res, selectSampler(cfg))
	if err != nil {
		return Providers{}, fmt.Errorf("build tracer provider: %w", err)
	}

	mp, stopMetrics, err := newMeterProvider(ctx, exp, res, readers)
	if err != nil {
		return Providers{}, errors.Join(fmt.Errorf("build meter provider: %w", err), stopTraces(ctx))
	}

	otel.SetTracerProvider(tp)
	otel.SetMeterProvider(mp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	timeout := time.Duration(cfg.ShutdownTimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = defaultShutdownTimeoutSec * time.Second
	}

	return Providers{
		Tracer: tp.Tracer(instrumentationName),
		Meter:  mp.Meter(instrumentationName),
		Logger: newLogger(cfg),
		Shutdown: func(ctx context.Context) error {
			ctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			return errors.Join(stopTraces(ctx), stopMetrics(ctx))
		},
	}, nil
}

func resourceAttributes(cfg Config) []attribute.KeyValue {
	attrs := []attribute.KeyValue{semconv.ServiceName(cfg.ServiceName)}

	if cfg.ServiceVersion != "" {
		attrs = append(attrs, semconv.ServiceVersion(cfg.ServiceVersion))
	}

	if cfg.Mode != "" {
		attrs = append(attrs, attribute.String(attrAppMode, string(cfg.Mode)))
	}

	return attrs
}

type stopFunc func(ctx context.Context) error

func stopNothing(context.Context) error { return nil }

// exporterSettings is the OTLP connection shared by the trace and metric
// exporters.
type exporterSettings struct {
	endpoint string
	insecure bool
	headers  map[string]string
}

func (e exporterSettings) enabled() bool {
	return e.endpoint != ""
}

func (e exporterSettings) traceOptions() []otlptracegrpc.Option {
	opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(e.endpoint)}

	if e.insecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}

	if len(e.headers) > 0 {
		opts = append(opts, otlptracegrpc.WithHeaders(e.headers))
	}

	return opts
}

func (e exporterSettings) metricOptions() []otlpmetricgrpc.Option {
	opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(e.endpoint)}

	if e.insecure {
		opts = append(opts, otlpmetricgrpc.WithInsecure())
	}

	if len(e.headers) > 0 {
		opts = append(opts, otlpmetricgrpc.WithHeaders(e.headers))
	}

	return opts
}

func newTracerProvider(
	ctx context.Context, exp exporterSettings, res *resource.Resource, sampler sdktrace.Sampler,
) (trace.TracerProvider, stopFunc, error) {
	if !exp.enabled() {
		return nooptrace.NewTracerProvider(), stopNothing, nil
	}

	exporter, err := otlptracegrpc.New(ctx, exp.traceOptions()...)
	if err != nil {
		return nil, nil, fmt.Errorf("create trace exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler),
	)

	return tp, tp.Shutdown, nil
}

func newMeterProvider(
	ctx context.Context, exp exporterSettings, res *resource.Resource, readers []sdkmetric.Reader,
) (metric.MeterProvider, stopFunc, error) {
	if !exp.enabled() && len(readers) == 0 {
		return noopmetric.NewMeterProvider(), stopNothing, nil
	}

	opts := make([]sdkmetric.Option, 0, len(readers)+2)
	opts = append(opts, sdkmetric.WithResource(res))

	for _, reader := range readers {
		opts = append(opts, sdkmetric.WithReader(reader))
	}

	if exp.enabled() {
		exporter, err := otlpmetricgrpc.New(ctx, exp.metricOptions()...)
		if err != nil {
			return nil, nil, fmt.Errorf("create metric exporter: %w", err)
		}

		opts = append(opts, sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter)))
	}

	mp := sdkmetric.NewMeterProvider(opts...)

	return mp, mp.Shutdown, nil
}

// selectSampler prefers DebugTrace, then OTEL_TRACES_SAMPLER, then the
// configured ratio. Unknown sampler names fall back to parent-based
// always-on.
func selectSampler(cfg Config) sdktrace.Sampler {
	if cfg.DebugTrace {
		return sdktrace.AlwaysSample()
	}

	if name := os.Getenv(envTracesSampler); name != "" {
		build, ok := envSamplers[strings.ToLower(name)]
		if ok {
			return build(parseRatio(os.Getenv(envTracesSamplerArg)))
		}
	}

	if cfg.SampleRatio > 0 {
		return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.SampleRatio))
	}

	return sdktrace.ParentBased(sdktrace.AlwaysSample())
}

func newLogger(cfg Config) *slog.Logger {
	out := cfg.LogOutput
	if out == nil {
		out = os.Stderr
	}

	opts := &slog.HandlerOptions{Level: cfg.LogLevel}

	var inner slog.Handler = slog.NewTextHandler(out, opts)
	if cfg.LogJSON {
		inner = slog.NewJSONHandler(out, opts)
	}

	return slog.New(NewTracingHandler(inner, cfg.ServiceName, cfg.Mode))
}

// ParseOTLPHeaders parses the "k1=v1,k2=v2" form of OTEL_EXPORTER_OTLP_HEADERS.
// Pairs without "=" are skipped; nil means no headers.
func ParseOTLPHeaders(raw string) map[string]string {
	var headers map[string]string

	for pair := range strings.SplitSeq(raw, ",") {
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}

		if headers == nil {
			headers = make(map[string]string)
		}

		headers[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}

	return headers
}

// parseRatio reads a sampler ratio, clamped to [0, 1]. Empty or malformed
// input samples everything.
func parseRatio(s string) float64 {
	ratio, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 1
	}

	return min(max(ratio, 0), 1)
}
