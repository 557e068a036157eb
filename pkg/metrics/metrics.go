// Package metrics exposes runtime and wizard metrics in Prometheus format.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all application metrics. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	registry *prometheus.Registry

	// Connections
	ConnectionsActive prometheus.Gauge
	ConnectionsTotal  prometheus.Counter

	// Messages
	MessagesReceived *prometheus.CounterVec
	MessagesSent     *prometheus.CounterVec

	// Renders
	RenderDuration prometheus.Histogram
	DiffSize       prometheus.Histogram

	// Errors
	ErrorsTotal *prometheus.CounterVec
	PanicsTotal prometheus.Counter

	// Wizard
	StepTransitions    *prometheus.CounterVec
	Submissions        *prometheus.CounterVec
	SubmissionDuration prometheus.Histogram
	VerificationCalls  *prometheus.CounterVec
}

// NewMetrics creates metrics registered on a private registry together
// with the Go and process collectors.
func NewMetrics(namespace string) *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		registry: reg,

		ConnectionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "connections_active",
			Help: "Number of active live connections.",
		}),
		ConnectionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "connections_total",
			Help: "Total live connections established.",
		}),

		MessagesReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "messages_received_total",
			Help: "Client messages received by event.",
		}, []string{"event"}),
		MessagesSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "messages_sent_total",
			Help: "Messages pushed to clients by event.",
		}, []string{"event"}),

		RenderDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Name: "render_duration_seconds",
			Help:    "Time to render and diff a view.",
			Buckets: []float64{.0005, .001, .0025, .005, .01, .025, .05, .1},
		}),
		DiffSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Name: "diff_size_bytes",
			Help:    "Size of diffs sent to clients.",
			Buckets: prometheus.ExponentialBuckets(64, 4, 7),
		}),

		ErrorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "errors_total",
			Help: "Errors by type.",
		}, []string{"type"}),
		PanicsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "panics_total",
			Help: "Panics recovered in event handlers.",
		}),

		StepTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "step_transitions_total",
			Help: "Wizard step transitions.",
		}, []string{"from", "to"}),
		Submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "submissions_total",
			Help: "Analysis submissions by result.",
		}, []string{"result"}),
		SubmissionDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Name: "submission_duration_seconds",
			Help:    "Latency of analysis submissions.",
			Buckets: prometheus.DefBuckets,
		}),
		VerificationCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "verification_calls_total",
			Help: "OTP provider calls by operation and result.",
		}, []string{"op", "result"}),
	}

	reg.MustRegister(
		m.ConnectionsActive, m.ConnectionsTotal,
		m.MessagesReceived, m.MessagesSent,
		m.RenderDuration, m.DiffSize,
		m.ErrorsTotal, m.PanicsTotal,
		m.StepTransitions, m.Submissions, m.SubmissionDuration, m.VerificationCalls,
	)

	return m
}

// Registry returns the registry the metrics are registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns an HTTP handler for metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ConnectionOpened records a new live connection.
func (m *Metrics) ConnectionOpened() {
	if m == nil {
		return
	}
	m.ConnectionsActive.Inc()
	m.ConnectionsTotal.Inc()
}

// ConnectionClosed records a closed live connection.
func (m *Metrics) ConnectionClosed() {
	if m == nil {
		return
	}
	m.ConnectionsActive.Dec()
}

// MessageReceived counts a client event.
func (m *Metrics) MessageReceived(event string) {
	if m == nil {
		return
	}
	m.MessagesReceived.WithLabelValues(event).Inc()
}

// MessageSent counts a pushed message.
func (m *Metrics) MessageSent(event string) {
	if m == nil {
		return
	}
	m.MessagesSent.WithLabelValues(event).Inc()
}

// RecordRender records one render and the size of the diff it produced.
func (m *Metrics) RecordRender(d time.Duration, diffSize int) {
	if m == nil {
		return
	}
	m.RenderDuration.Observe(d.Seconds())
	m.DiffSize.Observe(float64(diffSize))
}

// RecordError counts an error of errType.
func (m *Metrics) RecordError(errType string) {
	if m == nil {
		return
	}
	m.ErrorsTotal.WithLabelValues(errType).Inc()
}

// RecordPanic counts a recovered panic.
func (m *Metrics) RecordPanic() {
	if m == nil {
		return
	}
	m.PanicsTotal.Inc()
}

// StepChanged records a wizard transition.
func (m *Metrics) StepChanged(from, to string) {
	if m == nil || from == to {
		return
	}
	m.StepTransitions.WithLabelValues(from, to).Inc()
}

// SubmissionFinished records an analysis submission.
func (m *Metrics) SubmissionFinished(d time.Duration, err error) {
	if m == nil {
		return
	}
	m.Submissions.WithLabelValues(result(err)).Inc()
	m.SubmissionDuration.Observe(d.Seconds())
}

// VerificationCall records an OTP provider call.
func (m *Metrics) VerificationCall(op string, err error) {
	if m == nil {
		return
	}
	m.VerificationCalls.WithLabelValues(op, result(err)).Inc()
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
