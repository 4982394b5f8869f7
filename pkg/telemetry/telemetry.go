// Package telemetry exposes HTTP request metrics in Prometheus format through OpenTelemetry.
package telemetry

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/attribute"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.uber.org/zap"
)

// Telemetry owns the meter provider and the registry it is scraped from.
type Telemetry struct {
	meterProvider metric.MeterProvider
	registry      *prometheus.Registry
	logger        *zap.Logger
}

// ServiceName identifies this process in exported metrics.
const ServiceName = "ingestion-catalog"

// New creates a Telemetry. When disabled, instruments are no-ops and Handler serves 404.
func New(enabled bool, version string, logger *zap.Logger) (*Telemetry, error) {
	if !enabled {
		logger.Debug("Metrics disabled, using no-op meter provider")
		return &Telemetry{meterProvider: noop.NewMeterProvider(), logger: logger}, nil
	}

	registry := prometheus.NewRegistry()
	exporter, err := otelprom.New(otelprom.WithRegisterer(registry))
	if err != nil {
		return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	res := resource.NewSchemaless(
		attribute.String("service.name", ServiceName),
		attribute.String("service.version", version),
	)
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(exporter),
	)

	logger.Info("Metrics initialized", zap.String("service_version", version))
	return &Telemetry{meterProvider: mp, registry: registry, logger: logger}, nil
}

// MeterProvider returns the configured meter provider.
func (t *Telemetry) MeterProvider() metric.MeterProvider {
	return t.meterProvider
}

// Enabled reports whether metrics are collected.
func (t *Telemetry) Enabled() bool {
	return t.registry != nil
}

// Handler serves the collected metrics for scraping.
func (t *Telemetry) Handler() http.Handler {
	if t.registry == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(t.registry, promhttp.HandlerOpts{})
}

// Shutdown flushes and stops the meter provider. Safe to call when disabled.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	mp, ok := t.meterProvider.(*sdkmetric.MeterProvider)
	if !ok {
		return nil
	}
	if err := mp.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown meter provider: %w", err)
	}
	t.logger.Debug("Meter provider shutdown complete")
	return nil
}
