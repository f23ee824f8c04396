// Package metrics defines the Prometheus collectors of the router.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "slashroute"

type Metrics struct {
	Triggers         *prometheus.CounterVec
	Rejections       *prometheus.CounterVec
	HandlerErrors    *prometheus.CounterVec
	DeferredFailures *prometheus.CounterVec
	DispatchDuration *prometheus.HistogramVec

	gatherer prometheus.Gatherer
}

// New creates and registers the collectors in a dedicated registry, which
// also includes the standard Go runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &Metrics{
		Triggers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "triggers_total",
			Help:      "Inbound triggers, by kind and slash command.",
		}, []string{"kind", "command"}),
		Rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rejected_requests_total",
			Help:      "Inbound requests rejected before dispatch, by reason.",
		}, []string{"reason"}),
		HandlerErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "handler_errors_total",
			Help:      "Command handler invocations that returned an error.",
		}, []string{"command", "target"}),
		DeferredFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deferred_task_failures_total",
			Help:      "Post-response tasks that failed, by task name.",
		}, []string{"task"}),
		DispatchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "dispatch_duration_seconds",
			Help:      "Time from receiving a trigger until its acknowledgment.",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 3},
		}, []string{"kind"}),
		gatherer: reg,
	}

	reg.MustRegister(m.Triggers, m.Rejections, m.HandlerErrors, m.DeferredFailures, m.DispatchDuration)
	return m
}

// Handler exposes the registered metrics in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
