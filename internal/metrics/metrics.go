// Package metrics provides Prometheus metrics for the RFP lifecycle service.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	ProjectsCreated     prometheus.Counter
	ProjectsDeleted     prometheus.Counter
	UploadsRejected     prometheus.Counter
	ProcessingCompleted prometheus.Counter
	MessagesTotal       *prometheus.CounterVec
	TopicsCreated       prometheus.Counter
	SummaryDownloads    *prometheus.CounterVec
	ErrorsTotal         *prometheus.CounterVec
	RequestDuration     *prometheus.HistogramVec

	registry *prometheus.Registry
}

// New creates and registers all metrics.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		ProjectsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rfpd_projects_created_total",
			Help: "Total number of projects created from uploads.",
		}),
		ProjectsDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rfpd_projects_deleted_total",
			Help: "Total number of projects deleted.",
		}),
		UploadsRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rfpd_uploads_rejected_total",
			Help: "Total uploads rejected for an unsupported document type.",
		}),
		ProcessingCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rfpd_processing_completed_total",
			Help: "Total simulated analysis completions applied.",
		}),
		MessagesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rfpd_messages_total",
				Help: "Total chat messages appended by role.",
			},
			[]string{"role"},
		),
		TopicsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rfpd_topics_created_total",
			Help: "Total conversation topics created.",
		}),
		SummaryDownloads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rfpd_summary_downloads_total",
				Help: "Total summary documents rendered by format.",
			},
			[]string{"format"},
		),
		ErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rfpd_errors_total",
				Help: "Total errors by module and type.",
			},
			[]string{"module", "type"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "rfpd_request_duration_seconds",
				Help:    "HTTP request duration by route.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route"},
		),
		registry: reg,
	}

	reg.MustRegister(
		m.ProjectsCreated,
		m.ProjectsDeleted,
		m.UploadsRejected,
		m.ProcessingCompleted,
		m.MessagesTotal,
		m.TopicsCreated,
		m.SummaryDownloads,
		m.ErrorsTotal,
		m.RequestDuration,
	)

	return m
}

// Handler returns an http.Handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordError increments the error counter.
func (m *Metrics) RecordError(module, errType string) {
	m.ErrorsTotal.WithLabelValues(module, errType).Inc()
}

// RecordMessage increments the message counter for a role.
func (m *Metrics) RecordMessage(role string) {
	m.MessagesTotal.WithLabelValues(role).Inc()
}

// ObserveDuration records request duration for a route.
func (m *Metrics) ObserveDuration(route string, seconds float64) {
	m.RequestDuration.WithLabelValues(route).Observe(seconds)
}
