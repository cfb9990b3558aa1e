package labcodeset

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/gofhir/labcodeset/pkg/issue"
	"github.com/gofhir/labcodeset/resource"
	"github.com/gofhir/labcodeset/terminology"
)

const metricsNamespace = "labcodeset"

// Metrics collects run metrics on a private Prometheus registry.
// All methods are safe for concurrent use and for a nil receiver.
type Metrics struct {
	registry *prometheus.Registry

	// Lookup cache
	lookups        *prometheus.CounterVec   // operation, result
	remoteCalls    *prometheus.CounterVec   // operation, status
	remoteDuration *prometheus.HistogramVec // operation

	// Generation
	generatorDuration *prometheus.HistogramVec // generator, status
	diagnostics       *prometheus.CounterVec   // severity, id
	resources         *prometheus.CounterVec   // type
}

var _ terminology.Recorder = (*Metrics)(nil)

// NewMetrics creates and registers the run metrics.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		lookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "lookup",
			Name:      "requests_total",
			Help:      "Terminology lookups by how they were answered",
		}, []string{"operation", "result"}), // result: hit, store, remote, fallback, error

		remoteCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "lookup",
			Name:      "remote_calls_total",
			Help:      "Calls made to the terminology server",
		}, []string{"operation", "status"}), // status: ok, error

		remoteDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "lookup",
			Name:      "remote_call_duration_seconds",
			Help:      "Terminology server call duration in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"operation"}),

		generatorDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "generator",
			Name:      "duration_seconds",
			Help:      "Generator run time in seconds",
			Buckets:   []float64{0.01, 0.1, 0.5, 1, 5, 15, 60, 300},
		}, []string{"generator", "status"}),

		diagnostics: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "diagnostics_total",
			Help:      "Diagnostics raised during the run",
		}, []string{"severity", "id"}),

		resources: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "resources_total",
			Help:      "Generated resources by FHIR resource type",
		}, []string{"type"}),
	}

	m.registry.MustRegister(
		m.lookups,
		m.remoteCalls,
		m.remoteDuration,
		m.generatorDuration,
		m.diagnostics,
		m.resources,
	)
	return m
}

// Registry returns the registry holding the run metrics.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// --- Recording Methods ---

// RecordLookup implements terminology.Recorder.
func (m *Metrics) RecordLookup(op terminology.Operation, outcome terminology.Outcome) {
	if m == nil {
		return
	}
	m.lookups.WithLabelValues(string(op), string(outcome)).Inc()
}

// RecordRemoteCall implements terminology.Recorder.
func (m *Metrics) RecordRemoteCall(op terminology.Operation, d time.Duration, err error) {
	if m == nil {
		return
	}
	m.remoteCalls.WithLabelValues(string(op), status(err)).Inc()
	m.remoteDuration.WithLabelValues(string(op)).Observe(d.Seconds())
}

// ObserveGenerator records the run time of one generator.
func (m *Metrics) ObserveGenerator(name string, seconds float64, err error) {
	if m == nil {
		return
	}
	m.generatorDuration.WithLabelValues(name, status(err)).Observe(seconds)
}

// RecordIssues counts diagnostics by severity and catalog id.
func (m *Metrics) RecordIssues(issues []issue.Issue) {
	if m == nil {
		return
	}
	for _, is := range issues {
		m.diagnostics.WithLabelValues(string(is.Severity), is.MessageID).Inc()
	}
}

// RecordResources counts generated resources by type.
func (m *Metrics) RecordResources(entries []resource.Entry) {
	if m == nil {
		return
	}
	for _, e := range entries {
		m.resources.WithLabelValues(e.Resource.ResourceType()).Inc()
	}
}

// WriteToTextfile writes the metrics in the text exposition format, for
// the node exporter textfile collector.
func (m *Metrics) WriteToTextfile(path string) error {
	if m == nil {
		return nil
	}
	return prometheus.WriteToTextfile(path, m.registry)
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
