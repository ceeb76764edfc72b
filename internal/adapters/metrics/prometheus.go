// Package metrics exports poll loop events as Prometheus metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/cpro-iot/scaleship/internal/domain"
	"github.com/cpro-iot/scaleship/internal/ports"
	"github.com/cpro-iot/scaleship/pkg/frame"
)

const namespace = "scaleship"

// Collector implements ports.EventEmitter by updating Prometheus metrics.
type Collector struct {
	target string

	readings      *prometheus.CounterVec
	faults        *prometheus.CounterVec
	connects      *prometheus.CounterVec
	connectErrors *prometheus.CounterVec
	publishErrors *prometheus.CounterVec
	pollDuration  *prometheus.HistogramVec
}

var _ ports.EventEmitter = (*Collector)(nil)

// NewCollector registers the scaleship metrics on reg and labels them with
// target. It panics if the metrics are already registered on reg.
func NewCollector(reg prometheus.Registerer, target string) *Collector {
	f := promauto.With(reg)
	return &Collector{
		target: target,
		readings: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "readings_total",
			Help:      "Decoded scale readings.",
		}, []string{"target"}),
		faults: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "faults_total",
			Help:      "Poll faults by kind.",
		}, []string{"target", "kind"}),
		connects: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connects_total",
			Help:      "Established scale sessions.",
		}, []string{"target"}),
		connectErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connect_errors_total",
			Help:      "Failed dial attempts.",
		}, []string{"target"}),
		publishErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "publish_errors_total",
			Help:      "Readings the broker did not accept.",
		}, []string{"target"}),
		pollDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "poll_duration_seconds",
			Help:      "Duration of successful poll cycles.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"target"}),
	}
}

// OnConnect counts an established session.
func (c *Collector) OnConnect(int) {
	c.connects.WithLabelValues(c.target).Inc()
}

// OnConnectError counts a failed dial attempt.
func (c *Collector) OnConnectError(error, int) {
	c.connectErrors.WithLabelValues(c.target).Inc()
}

// OnReading counts a reading and observes the cycle duration.
func (c *Collector) OnReading(_ frame.Record, elapsed time.Duration) {
	c.readings.WithLabelValues(c.target).Inc()
	c.pollDuration.WithLabelValues(c.target).Observe(elapsed.Seconds())
}

// OnFault counts a fault by kind.
func (c *Collector) OnFault(f *domain.Fault) {
	c.faults.WithLabelValues(c.target, f.Kind.String()).Inc()
	if f.Kind == domain.PublishFault {
		c.publishErrors.WithLabelValues(c.target).Inc()
	}
}
