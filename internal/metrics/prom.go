// internal/metrics/prom.go
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/tamzrod/powerlog/internal/poller"
	"github.com/tamzrod/powerlog/internal/status"
)

// Recorder exports per-tick outcomes as Prometheus metrics.
// Collectors live on a private registry so tests and embedders never
// collide on the global one.
type Recorder struct {
	reg *prometheus.Registry

	ticks    prometheus.Counter
	invalid  prometheus.Counter
	overruns prometheus.Counter
	duration prometheus.Histogram

	lastWatts prometheus.Gauge
	health    prometheus.Gauge
	failures  prometheus.Gauge
}

var _ poller.Observer = (*Recorder)(nil)

// NewRecorder creates and registers all collectors.
func NewRecorder() *Recorder {
	r := &Recorder{
		reg: prometheus.NewRegistry(),
		ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "powerlog_ticks_total",
			Help: "Completed sampling ticks (one log row each).",
		}),
		invalid: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "powerlog_invalid_samples_total",
			Help: "Ticks whose sample failed and was logged as zero.",
		}),
		overruns: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "powerlog_overruns_total",
			Help: "Ticks that took longer than the sample interval.",
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "powerlog_tick_duration_seconds",
			Help:    "Time spent reading and persisting one sample.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
		}),
		lastWatts: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "powerlog_last_watts",
			Help: "Most recent valid power reading in watts.",
		}),
		health: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "powerlog_device_health",
			Help: "Device health: 0 unknown, 1 ok, 2 error.",
		}),
		failures: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "powerlog_consecutive_failures",
			Help: "Failed samples since the last valid one.",
		}),
	}

	r.reg.MustRegister(r.ticks, r.invalid, r.overruns, r.duration, r.lastWatts, r.health, r.failures)
	return r
}

// Registry returns the private registry backing the recorder.
func (r *Recorder) Registry() *prometheus.Registry { return r.reg }

// Tick records one completed tick.
func (r *Recorder) Tick(m poller.Measurement, elapsed time.Duration, overrun bool) {
	r.ticks.Inc()
	r.duration.Observe(elapsed.Seconds())
	if overrun {
		r.overruns.Inc()
	}
	if m.Valid {
		r.lastWatts.Set(m.Value)
	} else {
		r.invalid.Inc()
	}
}

// Health records the device health after a tick.
func (r *Recorder) Health(s status.Snapshot) {
	r.health.Set(float64(s.Health))
	r.failures.Set(float64(s.ConsecutiveFailures))
}
