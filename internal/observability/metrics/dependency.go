package metrics

import "github.com/prometheus/client_golang/prometheus"

// Breaker states as exported by the gauge.
var breakerStateValue = map[string]float64{
	"closed":    0,
	"half-open": 1,
	"open":      2,
}

// dependencyCollectors track calls made through the resilience executor
// to postgres, SMTP, Cloudinary and NATS.
type dependencyCollectors struct {
	service      string
	callsTotal   *prometheus.CounterVec
	breakerState *prometheus.GaugeVec
}

func newDependencyCollectors(registry *prometheus.Registry, service string) *dependencyCollectors {
	callsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dependency",
			Name:      "calls_total",
			Help:      "Attempts against external dependencies by operation and outcome.",
		},
		[]string{"service", "dependency", "operation", "outcome"},
	)
	breakerState := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "dependency",
			Name:      "breaker_state",
			Help:      "Circuit breaker state per operation (0 closed, 1 half-open, 2 open).",
		},
		[]string{"service", "operation"},
	)
	registry.MustRegister(callsTotal, breakerState)

	return &dependencyCollectors{service: service, callsTotal: callsTotal, breakerState: breakerState}
}

func (d *dependencyCollectors) observeCall(dependency, operation, outcome string) {
	d.callsTotal.WithLabelValues(d.service, dependency, operation, outcome).Inc()
}

func (d *dependencyCollectors) observeBreaker(operation, state string) {
	value, ok := breakerStateValue[state]
	if !ok {
		return
	}
	d.breakerState.WithLabelValues(d.service, operation).Set(value)
}

func (m *HTTPServerMetrics) ObserveDependencyCall(dependency, operation, outcome string) {
	m.dependencies.observeCall(dependency, operation, outcome)
}

func (m *HTTPServerMetrics) ObserveBreakerState(operation, state string) {
	m.dependencies.observeBreaker(operation, state)
}

func (m *WorkerMetrics) ObserveDependencyCall(dependency, operation, outcome string) {
	m.dependencies.observeCall(dependency, operation, outcome)
}

func (m *WorkerMetrics) ObserveBreakerState(operation, state string) {
	m.dependencies.observeBreaker(operation, state)
}
