// Package observability holds the structured logger, Prometheus collectors
// and OpenTelemetry tracing used by the reminder service.
package observability

// Exporters accepted by TracingConfig.Exporter.
const (
	ExporterOTLP   = "otlp"
	ExporterZipkin = "zipkin"
)

const (
	defaultServiceName    = "tasktracker"
	defaultOTLPEndpoint   = "localhost:4318"
	defaultZipkinEndpoint = "http://localhost:9411/api/v2/spans"
)

// Config groups logging, metrics and tracing settings.
type Config struct {
	Logging LoggingConfig
	Metrics MetricsConfig
	Tracing TracingConfig
}

type LoggingConfig struct {
	Level  string
	Format string
}

// MetricsConfig controls the Prometheus collectors and their HTTP route.
type MetricsConfig struct {
	Enabled bool
	Path    string
}

// TracingConfig selects a span exporter. Tracing is off unless Enabled.
type TracingConfig struct {
	Enabled        bool
	Exporter       string
	OTLPEndpoint   string // host:port or a full http(s) URL
	ZipkinEndpoint string
	SampleRate     float64
	ServiceName    string
	ServiceVersion string
	Environment    string
}

func DefaultConfig() Config {
	return Config{
		Logging: LoggingConfig{Level: "info", Format: "json"},
		Metrics: MetricsConfig{Enabled: true, Path: "/metrics"},
		Tracing: TracingConfig{
			Exporter:       ExporterOTLP,
			OTLPEndpoint:   defaultOTLPEndpoint,
			SampleRate:     1.0,
			ServiceName:    defaultServiceName,
			ServiceVersion: "dev",
		},
	}
}

// withDefaults fills empty fields and clamps the sample rate into (0, 1].
func (c TracingConfig) withDefaults() TracingConfig {
	if c.ServiceName == "" {
		c.ServiceName = defaultServiceName
	}
	if c.Exporter == "" {
		c.Exporter = ExporterOTLP
	}
	if c.OTLPEndpoint == "" {
		c.OTLPEndpoint = defaultOTLPEndpoint
	}
	if c.ZipkinEndpoint == "" {
		c.ZipkinEndpoint = defaultZipkinEndpoint
	}
	if c.SampleRate <= 0 || c.SampleRate > 1 {
		c.SampleRate = 1
	}
	return c
}
