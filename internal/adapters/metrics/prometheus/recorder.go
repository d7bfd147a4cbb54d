// Package prometheus exports background refresh metrics.
package prometheus

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bnema/schoolsync/internal/domain"
	"github.com/bnema/schoolsync/internal/ports"
)

const namespace = "schoolsync"

// Recorder owns its registry so several instances can coexist in tests.
type Recorder struct {
	registry *prometheus.Registry

	cycles          *prometheus.CounterVec
	cycleDuration   prometheus.Histogram
	refreshDuration *prometheus.HistogramVec
	refreshFailures *prometheus.CounterVec
	lastCycle       prometheus.Gauge
}

var _ ports.CycleMetrics = (*Recorder)(nil)

func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		cycles: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "background",
				Name:      "cycles_total",
				Help:      "Total number of background refresh cycles by outcome.",
			},
			[]string{"outcome"},
		),
		cycleDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "background",
				Name:      "cycle_duration_seconds",
				Help:      "Duration of background refresh cycles.",
				Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12), // 50ms to ~100s
			},
		),
		refreshDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "refresh",
				Name:      "duration_seconds",
				Help:      "Duration of single domain refreshes.",
				Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
			},
			[]string{"domain"},
		),
		refreshFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "refresh",
				Name:      "failures_total",
				Help:      "Total number of failed domain refreshes.",
			},
			[]string{"domain"},
		),
		lastCycle: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "background",
				Name:      "last_cycle_timestamp_seconds",
				Help:      "Unix time the last background cycle finished.",
			},
		),
	}

	r.registry.MustRegister(
		r.cycles,
		r.cycleDuration,
		r.refreshDuration,
		r.refreshFailures,
		r.lastCycle,
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)

	return r
}

func (r *Recorder) ObserveCycle(outcome domain.RefreshOutcome, elapsed time.Duration) {
	r.cycles.WithLabelValues(outcome.String()).Inc()
	r.cycleDuration.Observe(elapsed.Seconds())
	r.lastCycle.SetToCurrentTime()
}

func (r *Recorder) ObserveRefresh(refreshDomain domain.RefreshDomain, elapsed time.Duration, err error) {
	r.refreshDuration.WithLabelValues(string(refreshDomain)).Observe(elapsed.Seconds())
	if err != nil {
		r.refreshFailures.WithLabelValues(string(refreshDomain)).Inc()
	}
}

func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler exposes the recorder's registry in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
