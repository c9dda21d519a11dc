package storage

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Observer captures telemetry for adapter operations.
type Observer interface {
	Observe(component, operation string, duration time.Duration, err error)
}

type nopObserver struct{}

func (nopObserver) Observe(string, string, time.Duration, error) {}

// PrometheusObserver exports adapter metrics to Prometheus.
type PrometheusObserver struct {
	duration *prometheus.HistogramVec
	errors   *prometheus.CounterVec
}

// NewPrometheusObserver registers the operation duration and error metrics
// with reg, or with the default registerer if reg is nil. Registering twice
// reuses the collectors registered first.
func NewPrometheusObserver(namespace string, reg prometheus.Registerer) (*PrometheusObserver, error) {
	if namespace == "" {
		namespace = "rolodex"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	o := &PrometheusObserver{
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "storage_operation_duration_seconds",
			Help:      "Latency of blob and document adapter operations.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"component", "operation"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "storage_operation_errors_total",
			Help:      "Count of failed blob and document adapter operations.",
		}, []string{"component", "operation"}),
	}
	if err := reg.Register(o.duration); err != nil {
		are, ok := err.(prometheus.AlreadyRegisteredError)
		if !ok {
			return nil, fmt.Errorf("register storage metric: %w", err)
		}
		o.duration = are.ExistingCollector.(*prometheus.HistogramVec)
	}
	if err := reg.Register(o.errors); err != nil {
		are, ok := err.(prometheus.AlreadyRegisteredError)
		if !ok {
			return nil, fmt.Errorf("register storage metric: %w", err)
		}
		o.errors = are.ExistingCollector.(*prometheus.CounterVec)
	}
	return o, nil
}

func (o *PrometheusObserver) Observe(component, operation string, duration time.Duration, err error) {
	if o == nil {
		return
	}
	o.duration.WithLabelValues(component, operation).Observe(duration.Seconds())
	if err != nil {
		o.errors.WithLabelValues(component, operation).Inc()
	}
}
