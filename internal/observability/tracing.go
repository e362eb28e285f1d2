package observability

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/zipkin"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	id "github.com/vishalahire/banayan-task-tracker/internal/shared/utils/id"
)

const instrumentationName = "github.com/vishalahire/banayan-task-tracker"

// Span names.
const (
	SpanReminderBatch   = "tasktracker.reminders.process"
	SpanReminderTask    = "tasktracker.reminders.task"
	SpanReminderPending = "tasktracker.reminders.pending"
)

// Span attribute keys.
const (
	AttrRunID        = "tasktracker.run_id"
	AttrTrigger      = "tasktracker.trigger"
	AttrTaskID       = "tasktracker.task_id"
	AttrReminderType = "tasktracker.reminder_type"
	AttrOutcome      = "tasktracker.outcome"
	AttrPending      = "tasktracker.pending"
)

// TracerProvider starts reminder spans. The zero value and nil are usable
// and record nothing.
type TracerProvider struct {
	sdk    *sdktrace.TracerProvider
	tracer trace.Tracer
}

// NoopTracerProvider returns a provider that discards spans.
func NoopTracerProvider() *TracerProvider {
	return &TracerProvider{tracer: noop.NewTracerProvider().Tracer(instrumentationName)}
}

// NewTracerProvider builds an exporting provider and installs it globally.
// A disabled config yields NoopTracerProvider.
func NewTracerProvider(ctx context.Context, cfg TracingConfig) (*TracerProvider, error) {
	if !cfg.Enabled {
		return NoopTracerProvider(), nil
	}
	cfg = cfg.withDefaults()

	exporter, err := newExporter(ctx, cfg)
	if err != nil {
		return nil, err
	}

	attrs := []attribute.KeyValue{semconv.ServiceName(cfg.ServiceName)}
	if cfg.ServiceVersion != "" {
		attrs = append(attrs, semconv.ServiceVersion(cfg.ServiceVersion))
	}
	if cfg.Environment != "" {
		attrs = append(attrs, semconv.DeploymentEnvironment(cfg.Environment))
	}
	res, err := resource.New(ctx, resource.WithAttributes(attrs...))
	if err != nil {
		return nil, fmt.Errorf("build trace resource: %w", err)
	}

	sdk := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.SampleRate))),
	)
	otel.SetTracerProvider(sdk)
	return &TracerProvider{sdk: sdk, tracer: sdk.Tracer(instrumentationName)}, nil
}

func newExporter(ctx context.Context, cfg TracingConfig) (sdktrace.SpanExporter, error) {
	switch strings.ToLower(cfg.Exporter) {
	case ExporterOTLP:
		var opt otlptracehttp.Option
		if strings.HasPrefix(cfg.OTLPEndpoint, "http://") || strings.HasPrefix(cfg.OTLPEndpoint, "https://") {
			opt = otlptracehttp.WithEndpointURL(cfg.OTLPEndpoint)
		} else {
			opt = otlptracehttp.WithEndpoint(cfg.OTLPEndpoint)
		}
		exp, err := otlptracehttp.New(ctx, opt, otlptracehttp.WithInsecure())
		if err != nil {
			return nil, fmt.Errorf("create otlp exporter: %w", err)
		}
		return exp, nil
	case ExporterZipkin:
		exp, err := zipkin.New(cfg.ZipkinEndpoint)
		if err != nil {
			return nil, fmt.Errorf("create zipkin exporter: %w", err)
		}
		return exp, nil
	default:
		return nil, fmt.Errorf("unsupported trace exporter %q", cfg.Exporter)
	}
}

// Shutdown flushes buffered spans.
func (tp *TracerProvider) Shutdown(ctx context.Context) error {
	if tp == nil || tp.sdk == nil {
		return nil
	}
	return tp.sdk.Shutdown(ctx)
}

// StartSpan starts a span tagged with the run id and trigger carried by ctx.
func (tp *TracerProvider) StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	var tracer trace.Tracer = noop.NewTracerProvider().Tracer(instrumentationName)
	if tp != nil && tp.tracer != nil {
		tracer = tp.tracer
	}
	ids := id.IDsFromContext(ctx)
	if ids.RunID != "" {
		attrs = append(attrs, attribute.String(AttrRunID, ids.RunID))
	}
	if ids.Trigger != "" {
		attrs = append(attrs, attribute.String(AttrTrigger, ids.Trigger))
	}
	return tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// ReminderAttrs returns the attributes identifying one reminder.
func ReminderAttrs(taskID, reminderType string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(AttrTaskID, taskID),
		attribute.String(AttrReminderType, reminderType),
	}
}
