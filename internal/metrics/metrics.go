// Package metrics exports Prometheus collectors for the OMV poll cycle.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Recorder holds the poll-cycle collectors. A nil *Recorder is valid and
// drops every observation, so callers need no nil checks.
type Recorder struct {
	polls       prometheus.Counter
	failures    *prometheus.CounterVec
	duration    prometheus.Histogram
	lastSuccess prometheus.Gauge
	available   prometheus.Gauge
}

// NewRecorder builds the collectors and registers them on reg.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	r := &Recorder{
		polls: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "omv_polls_total",
			Help: "Total status polls attempted against the OMV server.",
		}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "omv_poll_failures_total",
			Help: "Failed status polls by failure kind.",
		}, []string{"kind"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "omv_poll_duration_seconds",
			Help:    "Wall time of one poll cycle including login retries.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
		}),
		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "omv_last_poll_success_timestamp_seconds",
			Help: "Unix timestamp of the last successful poll.",
		}),
		available: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "omv_sensor_available",
			Help: "1 when the sensor has a snapshot to serve, 0 before the first successful poll.",
		}),
	}

	reg.MustRegister(r.polls, r.failures, r.duration, r.lastSuccess, r.available)
	return r
}

// ObservePoll records one completed poll cycle. failureKind is empty on
// success.
func (r *Recorder) ObservePoll(ok bool, failureKind string, duration time.Duration) {
	if r == nil {
		return
	}
	r.polls.Inc()
	r.duration.Observe(duration.Seconds())
	if ok {
		r.lastSuccess.SetToCurrentTime()
		return
	}
	r.failures.WithLabelValues(failureKind).Inc()
}

// SetAvailable records whether the sensor currently has data to serve.
func (r *Recorder) SetAvailable(available bool) {
	if r == nil {
		return
	}
	if available {
		r.available.Set(1)
	} else {
		r.available.Set(0)
	}
}
