// Package metrics exposes Prometheus collectors for enrollment and verification.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "faceauth"

// Registry holds every collector of the service. Tests use their own.
type Registry struct {
	reg *prometheus.Registry

	Enrollments     *prometheus.CounterVec
	Verifications   *prometheus.CounterVec
	FramesProcessed *prometheus.CounterVec
	FacesPerFrame   prometheus.Histogram
	MatchDistance   prometheus.Histogram
	SessionDuration prometheus.Histogram
	StoreRecords    prometheus.Gauge
	ActiveSessions  prometheus.Gauge
}

// NewRegistry creates and registers all collectors.
func NewRegistry() *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),
		Enrollments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "enrollments_total",
			Help:      "Enrollment attempts by result.",
		}, []string{"result"}),
		Verifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "verifications_total",
			Help:      "Verification sessions by outcome.",
		}, []string{"mode", "outcome"}),
		FramesProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_processed_total",
			Help:      "Frames processed by verification sessions, by result.",
		}, []string{"result"}),
		FacesPerFrame: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "faces_per_frame",
			Help:      "Number of faces the provider found per frame.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8},
		}),
		MatchDistance: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "match_distance",
			Help:      "Euclidean distance to the nearest enrolled record.",
			Buckets:   prometheus.LinearBuckets(0.1, 0.1, 10),
		}),
		SessionDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "session_duration_seconds",
			Help:      "Wall time of verification sessions.",
			Buckets:   []float64{0.5, 1, 2, 3, 5, 8, 13},
		}),
		StoreRecords: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "identity_records",
			Help:      "Records in the identity store.",
		}),
		ActiveSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Verification sessions currently collecting frames.",
		}),
	}

	r.reg.MustRegister(
		r.Enrollments,
		r.Verifications,
		r.FramesProcessed,
		r.FacesPerFrame,
		r.MatchDistance,
		r.SessionDuration,
		r.StoreRecords,
		r.ActiveSessions,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// Handler serves the registry in the Prometheus text format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}

// Gatherer exposes the underlying registry for tests.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.reg
}

// The helpers below accept a nil receiver so components can run without metrics.

// ObserveEnrollment counts one enrollment attempt by result.
func (r *Registry) ObserveEnrollment(result string) {
	if r == nil {
		return
	}
	r.Enrollments.WithLabelValues(result).Inc()
}

// ObserveVerification counts a finished verification by mode and outcome.
// Session mode also records the elapsed window time.
func (r *Registry) ObserveVerification(mode, outcome string, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.Verifications.WithLabelValues(mode, outcome).Inc()
	if mode == "session" {
		r.SessionDuration.Observe(elapsed.Seconds())
	}
}

// ObserveFrame counts a processed frame; successful frames also record their face count.
func (r *Registry) ObserveFrame(result string, faces int) {
	if r == nil {
		return
	}
	r.FramesProcessed.WithLabelValues(result).Inc()
	if result == "ok" {
		r.FacesPerFrame.Observe(float64(faces))
	}
}

// ObserveDistance records the distance of a nearest match.
func (r *Registry) ObserveDistance(d float64) {
	if r == nil {
		return
	}
	r.MatchDistance.Observe(d)
}

// SetStoreRecords sets the gauge of enrolled records.
func (r *Registry) SetStoreRecords(n int) {
	if r == nil {
		return
	}
	r.StoreRecords.Set(float64(n))
}

// SessionStarted increments the active gauge and returns its decrement.
func (r *Registry) SessionStarted() func() {
	if r == nil {
		return func() {}
	}
	r.ActiveSessions.Inc()
	return r.ActiveSessions.Dec
}
