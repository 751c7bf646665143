// Package metrics exposes Prometheus collectors for the frame extraction
// pipeline. A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "frame_extractor"

// Outcome labels for invocations and uploads.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Metrics holds the pipeline collectors and the registry they live in.
type Metrics struct {
	registry *prometheus.Registry

	invocations   *prometheus.CounterVec
	frames        prometheus.Counter
	uploads       *prometheus.CounterVec
	stageDuration *prometheus.HistogramVec
	sourceSeconds prometheus.Histogram
	active        prometheus.Gauge
}

// New creates collectors registered on a fresh registry, together with the
// Go runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		registry: reg,
		invocations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "invocations_total",
			Help:      "Pipeline invocations by outcome and the stage they ended in.",
		}, []string{"outcome", "stage"}),
		frames: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_collected_total",
			Help:      "Frames collected from the scratch directory after extraction.",
		}),
		uploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "uploads_total",
			Help:      "Frame uploads by outcome.",
		}, []string{"outcome"}),
		stageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Time spent in each pipeline stage.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 8),
		}, []string{"stage"}),
		sourceSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "source_duration_seconds",
			Help:      "Duration of source videos as reported by ffprobe.",
			Buckets:   prometheus.LinearBuckets(10, 30, 10),
		}),
		active: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_runs",
			Help:      "Pipeline runs currently in progress.",
		}),
	}

	reg.MustRegister(m.invocations, m.frames, m.uploads, m.stageDuration, m.sourceSeconds, m.active)
	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler returns an HTTP handler serving the registry in the exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// RunStarted increments the active run gauge.
func (m *Metrics) RunStarted() {
	if m == nil {
		return
	}
	m.active.Inc()
}

// RunFinished decrements the active run gauge and counts the invocation.
func (m *Metrics) RunFinished(outcome, stage string) {
	if m == nil {
		return
	}
	m.active.Dec()
	m.invocations.WithLabelValues(outcome, stage).Inc()
}

// ObserveStage records how long a stage took.
func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	if m == nil {
		return
	}
	m.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// ObserveSourceDuration records the probed length of a source video.
func (m *Metrics) ObserveSourceDuration(seconds float64) {
	if m == nil {
		return
	}
	m.sourceSeconds.Observe(seconds)
}

// AddFrames counts collected frames.
func (m *Metrics) AddFrames(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.frames.Add(float64(n))
}

// AddUploads counts resolved upload attempts.
func (m *Metrics) AddUploads(succeeded, failed int) {
	if m == nil {
		return
	}
	if succeeded > 0 {
		m.uploads.WithLabelValues(OutcomeSuccess).Add(float64(succeeded))
	}
	if failed > 0 {
		m.uploads.WithLabelValues(OutcomeFailure).Add(float64(failed))
	}
}
