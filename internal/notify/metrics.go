package notify

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Delivered    prometheus.Counter
	Dropped      *prometheus.CounterVec
	Failures     prometheus.Counter
	CircuitState prometheus.Gauge
	QueueDepth   prometheus.Gauge
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Delivered: f.NewCounter(prometheus.CounterOpts{
			Name: "passport_notify_delivered_total",
			Help: "Transitions handed to the notification sink",
		}),
		Dropped: f.NewCounterVec(prometheus.CounterOpts{
			Name: "passport_notify_dropped_total",
			Help: "Transitions dropped before delivery, by reason",
		}, []string{"reason"}),
		Failures: f.NewCounter(prometheus.CounterOpts{
			Name: "passport_notify_sink_failures_total",
			Help: "Failed sink deliveries",
		}),
		CircuitState: f.NewGauge(prometheus.GaugeOpts{
			Name: "passport_notify_circuit_open",
			Help: "1 while the sink circuit breaker is open",
		}),
		QueueDepth: f.NewGauge(prometheus.GaugeOpts{
			Name: "passport_notify_queue_depth",
			Help: "Transitions waiting for delivery",
		}),
	}
}

func (m *Metrics) incDelivered(n int) {
	if m != nil {
		m.Delivered.Add(float64(n))
	}
}

func (m *Metrics) incDropped(reason string, n int) {
	if m != nil {
		m.Dropped.WithLabelValues(reason).Add(float64(n))
	}
}

func (m *Metrics) incFailure() {
	if m != nil {
		m.Failures.Inc()
	}
}

func (m *Metrics) setCircuitOpen(open bool) {
	if m == nil {
		return
	}
	if open {
		m.CircuitState.Set(1)
	} else {
		m.CircuitState.Set(0)
	}
}

func (m *Metrics) setQueueDepth(n int) {
	if m != nil {
		m.QueueDepth.Set(float64(n))
	}
}
