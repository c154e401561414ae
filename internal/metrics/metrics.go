// SPDX-License-Identifier: MIT
//
// Package metrics exposes Prometheus instrumentation for sessions and the
// analysis pipelines. A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// DefaultPath is where the handler is mounted on the transport mux.
const DefaultPath = "/metrics"

// Metrics groups the collectors registered on one registry.
type Metrics struct {
	registry *prometheus.Registry

	SessionsStarted   *prometheus.CounterVec
	SessionsStopped   *prometheus.CounterVec
	BytesCaptured     prometheus.Counter
	Rebuffers         prometheus.Counter
	RebufferFailures  prometheus.Counter
	SessionBufferSize prometheus.Gauge
	SpectrumFrames    prometheus.Counter
	MFCCFrames        prometheus.Counter
	AnalysisDuration  *prometheus.HistogramVec
	AnalysisFailures  *prometheus.CounterVec
}

// New creates the collectors on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		SessionsStarted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "audiosim_sessions_started_total",
			Help: "Sessions started, by mode",
		}, []string{"mode"}),
		SessionsStopped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "audiosim_sessions_stopped_total",
			Help: "Sessions returned to idle, by mode and reason",
		}, []string{"mode", "reason"}),
		BytesCaptured: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "audiosim_capture_bytes_total",
			Help: "Bytes appended to capture buffers",
		}),
		Rebuffers: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "audiosim_playback_rebuffers_total",
			Help: "Playback level window reloads from the source",
		}),
		RebufferFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "audiosim_playback_rebuffer_failures_total",
			Help: "Playback reloads that kept a stale buffer after a seek or read failure",
		}),
		SessionBufferSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "audiosim_session_buffer_bytes",
			Help: "Bytes currently held in the session buffer",
		}),
		SpectrumFrames: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "audiosim_spectrum_frames_total",
			Help: "Spectrum frames computed",
		}),
		MFCCFrames: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "audiosim_mfcc_frames_total",
			Help: "MFCC vectors extracted",
		}),
		AnalysisDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "audiosim_analysis_duration_seconds",
			Help:    "Wall time of analysis jobs",
			Buckets: prometheus.ExponentialBuckets(0.0005, 4, 10),
		}, []string{"stage"}),
		AnalysisFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "audiosim_analysis_failures_total",
			Help: "Analysis jobs that ended in error",
		}, []string{"stage"}),
	}
	m.registry.MustRegister(
		m.SessionsStarted,
		m.SessionsStopped,
		m.BytesCaptured,
		m.Rebuffers,
		m.RebufferFailures,
		m.SessionBufferSize,
		m.SpectrumFrames,
		m.MFCCFrames,
		m.AnalysisDuration,
		m.AnalysisFailures,
	)
	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) SessionStarted(mode string) {
	if m == nil {
		return
	}
	m.SessionsStarted.WithLabelValues(mode).Inc()
}

func (m *Metrics) SessionStopped(mode, reason string) {
	if m == nil {
		return
	}
	m.SessionsStopped.WithLabelValues(mode, reason).Inc()
}

func (m *Metrics) Captured(n int) {
	if m == nil {
		return
	}
	m.BytesCaptured.Add(float64(n))
}

func (m *Metrics) Rebuffered(ok bool) {
	if m == nil {
		return
	}
	m.Rebuffers.Inc()
	if !ok {
		m.RebufferFailures.Inc()
	}
}

func (m *Metrics) BufferSize(n int) {
	if m == nil {
		return
	}
	m.SessionBufferSize.Set(float64(n))
}

func (m *Metrics) SpectrumFrame() {
	if m == nil {
		return
	}
	m.SpectrumFrames.Inc()
}

// ObserveAnalysis records the duration of a stage and counts a failure when
// err is non-nil.
func (m *Metrics) ObserveAnalysis(stage string, started time.Time, frames int, err error) {
	if m == nil {
		return
	}
	m.AnalysisDuration.WithLabelValues(stage).Observe(time.Since(started).Seconds())
	if err != nil {
		m.AnalysisFailures.WithLabelValues(stage).Inc()
		return
	}
	if stage == "mfcc" {
		m.MFCCFrames.Add(float64(frames))
	}
}
