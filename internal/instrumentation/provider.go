package instrumentation

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Provider owns the meter and tracer providers.
type Provider struct {
	meterProvider  *sdkmetric.MeterProvider
	tracerProvider *sdktrace.TracerProvider
	metrics        *Metrics
	prometheus     bool
}

// NewProvider builds exporters according to cfg. With both exporters set to
// none it returns a provider whose Metrics are no-ops.
func NewProvider(ctx context.Context, cfg Config) (*Provider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	p := &Provider{metrics: &Metrics{}}

	res, err := resource.New(ctx, resource.WithAttributes(
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(cfg.ServiceVersion),
	))
	if err != nil {
		return nil, fmt.Errorf("resource.New failed: %w", err)
	}

	if cfg.MetricsExporter != ExporterNone {
		if err := p.initMeterProvider(ctx, cfg, res); err != nil {
			return nil, fmt.Errorf("initMeterProvider failed: %w", err)
		}

		p.metrics, err = NewMetrics(p.meterProvider.Meter(cfg.ServiceName))
		if err != nil {
			_ = p.Shutdown(ctx)
			return nil, fmt.Errorf("NewMetrics failed: %w", err)
		}
	}

	if cfg.TracingExporter != ExporterNone {
		if err := p.initTracerProvider(ctx, cfg, res); err != nil {
			_ = p.Shutdown(ctx)
			return nil, fmt.Errorf("initTracerProvider failed: %w", err)
		}
	}

	return p, nil
}

func (p *Provider) initMeterProvider(ctx context.Context, cfg Config, res *resource.Resource) error {
	var reader sdkmetric.Reader

	switch cfg.MetricsExporter {
	case ExporterPrometheus:
		exporter, err := prometheus.New()
		if err != nil {
			return fmt.Errorf("prometheus.New failed: %w", err)
		}
		reader = exporter
		p.prometheus = true
	case ExporterStdout:
		exporter, err := stdoutmetric.New()
		if err != nil {
			return fmt.Errorf("stdoutmetric.New failed: %w", err)
		}
		reader = sdkmetric.NewPeriodicReader(exporter)
	case ExporterOTLP:
		opts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpoint(cfg.OTLPEndpoint)}
		if cfg.OTLPInsecure {
			opts = append(opts, otlpmetrichttp.WithInsecure())
		}
		exporter, err := otlpmetrichttp.New(ctx, opts...)
		if err != nil {
			return fmt.Errorf("otlpmetrichttp.New failed: %w", err)
		}
		reader = sdkmetric.NewPeriodicReader(exporter)
	}

	p.meterProvider = sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(reader),
	)

	return nil
}

func (p *Provider) initTracerProvider(ctx context.Context, cfg Config, res *resource.Resource) error {
	var (
		exporter sdktrace.SpanExporter
		err      error
	)

	switch cfg.TracingExporter {
	case ExporterStdout:
		exporter, err = stdouttrace.New()
		if err != nil {
			return fmt.Errorf("stdouttrace.New failed: %w", err)
		}
	case ExporterOTLP:
		opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(cfg.OTLPEndpoint)}
		if cfg.OTLPInsecure {
			opts = append(opts, otlptracehttp.WithInsecure())
		}
		exporter, err = otlptracehttp.New(ctx, opts...)
		if err != nil {
			return fmt.Errorf("otlptracehttp.New failed: %w", err)
		}
	}

	p.tracerProvider = sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithBatcher(exporter),
	)

	return nil
}

// Metrics returns the recorder. Never nil.
func (p *Provider) Metrics() *Metrics {
	return p.metrics
}

// Tracer returns a tracer, a no-op one when tracing is disabled.
func (p *Provider) Tracer(name string) trace.Tracer {
	if p.tracerProvider == nil {
		return noop.NewTracerProvider().Tracer(name)
	}
	return p.tracerProvider.Tracer(name)
}

// PrometheusHandler returns the scrape handler, or nil when the prometheus
// exporter is not selected.
func (p *Provider) PrometheusHandler() http.Handler {
	if !p.prometheus {
		return nil
	}
	return promhttp.Handler()
}

// Shutdown flushes and stops both providers.
func (p *Provider) Shutdown(ctx context.Context) error {
	var errs []error

	if p.meterProvider != nil {
		if err := p.meterProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("meterProvider.Shutdown failed: %w", err))
		}
	}
	if p.tracerProvider != nil {
		if err := p.tracerProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tracerProvider.Shutdown failed: %w", err))
		}
	}

	return errors.Join(errs...)
}
