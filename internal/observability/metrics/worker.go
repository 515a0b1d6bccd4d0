package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type WorkerMetrics struct {
	registry *prometheus.Registry

	deliveryTotal    *prometheus.CounterVec
	deliveryDuration *prometheus.HistogramVec
	deliveryInFlight prometheus.Gauge

	dependencies *dependencyCollectors
}

func NewWorkerMetrics(service string) *WorkerMetrics {
	registry := prometheus.NewRegistry()

	deliveryTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "report_delivery_total",
			Help:      "Total report deliveries by status.",
		},
		[]string{"service", "status"},
	)
	deliveryDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "report_delivery_duration_seconds",
			Help:      "Render and send duration in seconds by status.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30, 60, 120},
		},
		[]string{"service", "status"},
	)
	deliveryInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "report_delivery_in_flight",
			Help:      "Number of in-flight report deliveries.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)

	registry.MustRegister(deliveryTotal, deliveryDuration, deliveryInFlight)

	return &WorkerMetrics{
		registry:         registry,
		deliveryTotal:    deliveryTotal,
		deliveryDuration: deliveryDuration,
		deliveryInFlight: deliveryInFlight,
		dependencies:     newDependencyCollectors(registry, service),
	}
}

func (m *WorkerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *WorkerMetrics) StartDelivery() {
	m.deliveryInFlight.Inc()
}

func (m *WorkerMetrics) FinishDelivery(service string, duration time.Duration, err error) {
	m.deliveryInFlight.Dec()

	status := "success"
	if err != nil {
		status = "error"
	}

	m.deliveryTotal.WithLabelValues(service, status).Inc()
	m.deliveryDuration.WithLabelValues(service, status).Observe(duration.Seconds())
}
