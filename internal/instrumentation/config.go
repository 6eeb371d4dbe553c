package instrumentation

import (
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds the configuration for OpenTelemetry instrumentation.
type Config struct {
	ServiceName    string `envconfig:"OTEL_SERVICE_NAME" default:"meetview"`
	ServiceVersion string `ignored:"true"`

	// ServiceInstanceID defaults to the hostname.
	ServiceInstanceID string `envconfig:"OTEL_SERVICE_INSTANCE_ID"`
	K8sNamespace      string `envconfig:"K8S_NAMESPACE"`
	K8sPodName        string `envconfig:"K8S_POD_NAME"`

	// Enabled turns metrics and tracing on (INSTRUMENTATION_ENABLED).
	Enabled bool `envconfig:"INSTRUMENTATION_ENABLED" default:"true"`

	// MetricsExporter is one of prometheus, otlp, stdout.
	MetricsExporter string `envconfig:"METRICS_EXPORTER" default:"prometheus"`

	// TracingExporter is one of otlp, stdout, none.
	TracingExporter string `envconfig:"TRACING_EXPORTER" default:"none"`

	// OTLPEndpoint is host:port without scheme.
	OTLPEndpoint string `envconfig:"OTEL_EXPORTER_OTLP_ENDPOINT"`

	// OTLPInsecure disables TLS for OTLP export. Development only.
	OTLPInsecure bool `envconfig:"OTEL_EXPORTER_OTLP_INSECURE" default:"false"`

	TraceSamplingRate float64 `envconfig:"OTEL_TRACES_SAMPLER_ARG" default:"0.1"`

	AuditLogging AuditLoggingConfig
}

// AuditLoggingConfig holds configuration for audit logging.
type AuditLoggingConfig struct {
	Enabled bool `envconfig:"AUDIT_LOGGING_ENABLED" default:"true"`

	// IncludePII logs full email addresses instead of hashed identifiers.
	IncludePII bool `envconfig:"AUDIT_LOGGING_INCLUDE_PII" default:"false"`
}

// LoadConfig reads the instrumentation configuration from the environment.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to process instrumentation environment: %w", err)
	}
	cfg.ServiceVersion = "unknown"
	if cfg.K8sNamespace == "" {
		cfg.K8sNamespace = lookupFirst("POD_NAMESPACE")
	}
	if cfg.K8sPodName == "" {
		cfg.K8sPodName = lookupFirst("HOSTNAME")
	}
	return cfg, nil
}

func lookupFirst(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.TraceSamplingRate < 0 || c.TraceSamplingRate > 1 {
		return fmt.Errorf("trace sampling rate must be between 0.0 and 1.0, got %f", c.TraceSamplingRate)
	}

	validMetricsExporters := map[string]bool{ExporterPrometheus: true, ExporterOTLP: true, ExporterStdout: true}
	if c.MetricsExporter != "" && !validMetricsExporters[c.MetricsExporter] {
		return fmt.Errorf("invalid metrics exporter %q, must be one of: prometheus, otlp, stdout", c.MetricsExporter)
	}

	validTracingExporters := map[string]bool{ExporterOTLP: true, ExporterStdout: true, ExporterNone: true}
	if c.TracingExporter != "" && !validTracingExporters[c.TracingExporter] {
		return fmt.Errorf("invalid tracing exporter %q, must be one of: otlp, stdout, none", c.TracingExporter)
	}

	if c.TracingExporter == ExporterOTLP && c.OTLPEndpoint == "" {
		return fmt.Errorf("OTLP endpoint is required when using OTLP tracing exporter")
	}
	if c.MetricsExporter == ExporterOTLP && c.OTLPEndpoint == "" {
		return fmt.Errorf("OTLP endpoint is required when using OTLP metrics exporter")
	}

	return nil
}

// Constants for metric label values.
const (
	StatusSuccess = "success"
	StatusError   = "error"

	ExporterPrometheus = "prometheus"
	ExporterOTLP       = "otlp"
	ExporterStdout     = "stdout"
	ExporterNone       = "none"

	BucketPast   = "past"
	BucketFuture = "future"

	DefaultMetricInterval = 10 * time.Second
)
