package emotion

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the classifier collectors. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	invocations *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	active      prometheus.Gauge
	waiting     prometheus.Gauge
}

// NewMetrics registers the classifier collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		invocations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "eamhc",
			Subsystem: "classifier",
			Name:      "invocations_total",
			Help:      "Classifier invocations by backend and outcome.",
		}, []string{"backend", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "eamhc",
			Subsystem: "classifier",
			Name:      "duration_seconds",
			Help:      "Time spent in the classifier, queueing excluded.",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}, []string{"backend"}),
		active: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "eamhc",
			Subsystem: "classifier",
			Name:      "in_flight",
			Help:      "Classifier invocations currently running.",
		}),
		waiting: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "eamhc",
			Subsystem: "classifier",
			Name:      "queued",
			Help:      "Requests waiting for a classifier slot.",
		}),
	}
	reg.MustRegister(m.invocations, m.duration, m.active, m.waiting)
	return m
}

func (m *Metrics) inFlight(delta float64) {
	if m != nil {
		m.active.Add(delta)
	}
}

func (m *Metrics) queued(delta float64) {
	if m != nil {
		m.waiting.Add(delta)
	}
}

func (m *Metrics) observe(backend string, d time.Duration, err error) {
	if m == nil {
		return
	}
	m.invocations.WithLabelValues(backend, Outcome(err)).Inc()
	m.duration.WithLabelValues(backend).Observe(d.Seconds())
}

// Outcome names the result of a classification for metrics and logs.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, ErrProcessSpawn):
		return "spawn_failure"
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, ErrInference):
		return "inference_failure"
	default:
		return "error"
	}
}

// Instrumented records outcome and latency of every call to next.
type Instrumented struct {
	next    Classifier
	metrics *Metrics
}

func Instrument(next Classifier, metrics *Metrics) *Instrumented {
	return &Instrumented{next: next, metrics: metrics}
}

func (i *Instrumented) Name() string { return i.next.Name() }

func (i *Instrumented) Classify(ctx context.Context, text string) (*Prediction, error) {
	start := time.Now()
	pred, err := i.next.Classify(ctx, text)
	i.metrics.observe(i.next.Name(), time.Since(start), err)
	return pred, err
}
