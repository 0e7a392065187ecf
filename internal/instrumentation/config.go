// Package instrumentation wires OpenTelemetry metrics and tracing for the
// mail tools and exposes the Prometheus scrape handler.
package instrumentation

import "fmt"

// Exporter names.
const (
	ExporterNone       = "none"
	ExporterPrometheus = "prometheus"
	ExporterStdout     = "stdout"
	ExporterOTLP       = "otlp"
)

// Config selects exporters for metrics and traces.
type Config struct {
	ServiceName    string
	ServiceVersion string

	// MetricsExporter is one of none, prometheus, stdout, otlp.
	MetricsExporter string
	// TracingExporter is one of none, stdout, otlp.
	TracingExporter string

	OTLPEndpoint string
	OTLPInsecure bool
}

// Validate rejects unknown exporter names and incomplete OTLP settings.
func (c Config) Validate() error {
	switch c.MetricsExporter {
	case ExporterNone, ExporterPrometheus, ExporterStdout:
	case ExporterOTLP:
		if c.OTLPEndpoint == "" {
			return fmt.Errorf("OTLP endpoint is required for the otlp metrics exporter")
		}
	default:
		return fmt.Errorf("unsupported metrics exporter: %q", c.MetricsExporter)
	}

	switch c.TracingExporter {
	case ExporterNone, ExporterStdout:
	case ExporterOTLP:
		if c.OTLPEndpoint == "" {
			return fmt.Errorf("OTLP endpoint is required for the otlp tracing exporter")
		}
	default:
		return fmt.Errorf("unsupported tracing exporter: %q", c.TracingExporter)
	}

	return nil
}
