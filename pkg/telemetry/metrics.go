package telemetry

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics provides Prometheus metrics for the adapter. A disabled
// configuration yields a no-op instance, so call sites never nil-check.
type Metrics struct {
	config MetricsConfig

	deploysStarted   *prometheus.CounterVec
	deploysCompleted *prometheus.CounterVec
	deployDuration   *prometheus.HistogramVec

	launchesStarted   prometheus.Counter
	launchesCompleted *prometheus.CounterVec
	launchDuration    *prometheus.HistogramVec

	schedulesCreated *prometheus.CounterVec
	schedulesDeleted prometheus.Counter

	statusQueries *prometheus.CounterVec
	pollAttempts  *prometheus.CounterVec
	apiErrors     *prometheus.CounterVec

	registry *prometheus.Registry
	server   *http.Server
}

// NewMetrics creates a metrics collector with the given configuration.
func NewMetrics(cfg MetricsConfig) (*Metrics, error) {
	if !cfg.Enabled {
		return &Metrics{config: cfg}, nil
	}

	namespace := cfg.Namespace
	registry := prometheus.NewRegistry()

	m := &Metrics{
		config:   cfg,
		registry: registry,

		deploysStarted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "deploys_started_total",
				Help:      "Total number of deployments accepted",
			},
			[]string{"group"},
		),
		deploysCompleted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "deploys_completed_total",
				Help:      "Total number of asynchronous deployments finished",
			},
			[]string{"status"},
		),
		deployDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "deploy_duration_seconds",
				Help:      "Duration of the asynchronous deployment sequence",
				Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600},
			},
			[]string{"status"},
		),

		launchesStarted: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "launches_started_total",
				Help:      "Total number of task launches requested",
			},
		),
		launchesCompleted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "launches_completed_total",
				Help:      "Total number of task launch sequences finished",
			},
			[]string{"status"},
		),
		launchDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "launch_duration_seconds",
				Help:      "Duration of the task launch sequence",
				Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600},
			},
			[]string{"status"},
		),

		schedulesCreated: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "schedules_created_total",
				Help:      "Total number of schedule creations",
			},
			[]string{"status"},
		),
		schedulesDeleted: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "schedules_deleted_total",
				Help:      "Total number of schedules removed",
			},
		),

		statusQueries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "status_queries_total",
				Help:      "Total number of status queries",
			},
			[]string{"kind", "state"},
		),
		pollAttempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "poll_attempts_total",
				Help:      "Total number of readiness poll attempts",
			},
			[]string{"resource"},
		),
		apiErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "api_errors_total",
				Help:      "Total number of platform API errors by class",
			},
			[]string{"class"},
		),
	}

	registry.MustRegister(
		m.deploysStarted, m.deploysCompleted, m.deployDuration,
		m.launchesStarted, m.launchesCompleted, m.launchDuration,
		m.schedulesCreated, m.schedulesDeleted,
		m.statusQueries, m.pollAttempts, m.apiErrors,
	)

	return m, nil
}

// RecordDeployStarted records an accepted deployment.
func (m *Metrics) RecordDeployStarted(group string) {
	if m.deploysStarted == nil {
		return
	}
	m.deploysStarted.WithLabelValues(group).Inc()
}

// RecordDeployCompleted records the end of an asynchronous deployment.
func (m *Metrics) RecordDeployCompleted(status string, duration time.Duration) {
	if m.deploysCompleted == nil {
		return
	}
	m.deploysCompleted.WithLabelValues(status).Inc()
	m.deployDuration.WithLabelValues(status).Observe(duration.Seconds())
}

// RecordLaunchStarted records a requested task launch.
func (m *Metrics) RecordLaunchStarted() {
	if m.launchesStarted == nil {
		return
	}
	m.launchesStarted.Inc()
}

// RecordLaunchCompleted records the end of a launch sequence.
func (m *Metrics) RecordLaunchCompleted(status string, duration time.Duration) {
	if m.launchesCompleted == nil {
		return
	}
	m.launchesCompleted.WithLabelValues(status).Inc()
	m.launchDuration.WithLabelValues(status).Observe(duration.Seconds())
}

// RecordScheduleCreated records a schedule creation outcome.
func (m *Metrics) RecordScheduleCreated(status string) {
	if m.schedulesCreated == nil {
		return
	}
	m.schedulesCreated.WithLabelValues(status).Inc()
}

// RecordScheduleDeleted records a schedule removal.
func (m *Metrics) RecordScheduleDeleted() {
	if m.schedulesDeleted == nil {
		return
	}
	m.schedulesDeleted.Inc()
}

// RecordStatusQuery records a status query and its resulting state.
func (m *Metrics) RecordStatusQuery(kind, state string) {
	if m.statusQueries == nil {
		return
	}
	m.statusQueries.WithLabelValues(kind, state).Inc()
}

// RecordPollAttempt records one readiness poll attempt for a resource kind.
func (m *Metrics) RecordPollAttempt(resource string) {
	if m.pollAttempts == nil {
		return
	}
	m.pollAttempts.WithLabelValues(resource).Inc()
}

// RecordAPIError records a platform API error by classification.
func (m *Metrics) RecordAPIError(class string) {
	if m.apiErrors == nil {
		return
	}
	m.apiErrors.WithLabelValues(class).Inc()
}

// StartServer starts the metrics HTTP endpoint. No-op when disabled.
func (m *Metrics) StartServer() error {
	if !m.config.Enabled {
		return nil
	}

	path := m.config.Path
	if path == "" {
		path = "/metrics"
	}
	mux := http.NewServeMux()
	mux.Handle(path, promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))

	m.server = &http.Server{
		Addr:    m.config.ListenAddress,
		Handler: mux,
	}

	go func() {
		if err := m.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fmt.Printf("metrics server error: %v\n", err)
		}
	}()

	return nil
}

// Shutdown stops the metrics HTTP endpoint.
func (m *Metrics) Shutdown(ctx context.Context) error {
	if m.server == nil {
		return nil
	}
	return m.server.Shutdown(ctx)
}
