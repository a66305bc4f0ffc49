package observability

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	promexporter "go.opentelemetry.io/otel/exporters/prometheus"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// PrometheusHandler creates an OTel Prometheus exporter on a private
// registry. The returned reader must be passed to Init so the meter
// provider feeds it; the handler serves the /metrics scrape endpoint.
func PrometheusHandler() (http.Handler, sdkmetric.Reader, error) {
	registry := prometheus.NewRegistry()

	exporter, err := promexporter.New(
		promexporter.WithRegisterer(registry),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("create prometheus exporter: %w", err)
	}

	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{}), exporter, nil
}
