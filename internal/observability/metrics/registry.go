package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "rfs"

// processRegistry is one registry per binary: api and worker expose their own
// /metrics, and FraudMetrics attaches to whichever one the process owns.
type processRegistry struct {
	registry *prometheus.Registry
}

func newProcessRegistry() processRegistry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{Namespace: namespace}),
	)
	return processRegistry{registry: reg}
}

func (p processRegistry) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{Registry: p.registry})
}

// Registerer lets other collectors share the process registry.
func (p processRegistry) Registerer() prometheus.Registerer {
	return p.registry
}

func serviceLabels(service string) prometheus.Labels {
	return prometheus.Labels{"service": service}
}
