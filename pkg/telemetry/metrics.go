package telemetry

import (
	"fmt"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics provides Prometheus metrics for resolve runs.
// A Metrics built with Enabled=false accepts every call and records nothing.
type Metrics struct {
	config MetricsConfig

	runsStarted   prometheus.Counter
	runsCompleted *prometheus.CounterVec
	runDuration   *prometheus.HistogramVec

	variants      *prometheus.CounterVec
	diagnostics   *prometheus.CounterVec
	stageDuration *prometheus.HistogramVec
	plansEmitted  *prometheus.CounterVec
	planBytes     prometheus.Gauge

	errorsByClass *prometheus.CounterVec

	registry *prometheus.Registry
}

// NewMetrics creates a new metrics collector with its own registry.
func NewMetrics(cfg MetricsConfig) (*Metrics, error) {
	if !cfg.Enabled {
		return &Metrics{config: cfg}, nil
	}

	namespace := cfg.Namespace
	buckets := cfg.DefaultHistogramBuckets
	if len(buckets) == 0 {
		buckets = prometheus.DefBuckets
	}

	registry := prometheus.NewRegistry()

	m := &Metrics{
		config:   cfg,
		registry: registry,

		runsStarted: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "runs_started_total",
				Help:      "Total number of resolve runs started",
			},
		),
		runsCompleted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "runs_completed_total",
				Help:      "Total number of resolve runs completed, by exit code",
			},
			[]string{"exit_code"},
		),
		runDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "run_duration_seconds",
				Help:      "Duration of resolve runs in seconds",
				Buckets:   buckets,
			},
			[]string{"exit_code"},
		),
		variants: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "variants_total",
				Help:      "Variants processed, by outcome (emitted, omitted)",
			},
			[]string{"status"},
		),
		diagnostics: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "diagnostics_total",
				Help:      "Diagnostics reported, by severity and rule",
			},
			[]string{"severity", "rule"},
		),
		stageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "stage_duration_seconds",
				Help:      "Duration of pipeline stages in seconds",
				Buckets:   buckets,
			},
			[]string{"stage"},
		),
		plansEmitted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "plans_emitted_total",
				Help:      "Plan documents written, by format",
			},
			[]string{"format"},
		),
		planBytes: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "plan_size_bytes",
				Help:      "Size of the last emitted plan document",
			},
		),
		errorsByClass: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "errors_total",
				Help:      "Run failures, by error class",
			},
			[]string{"class"},
		),
	}

	registry.MustRegister(
		m.runsStarted,
		m.runsCompleted,
		m.runDuration,
		m.variants,
		m.diagnostics,
		m.stageDuration,
		m.plansEmitted,
		m.planBytes,
		m.errorsByClass,
	)

	return m, nil
}

// Registry returns the private registry, or nil when metrics are disabled.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordRunStarted increments the counter for started runs.
func (m *Metrics) RecordRunStarted() {
	if m.registry == nil {
		return
	}
	m.runsStarted.Inc()
}

// RecordRunCompleted records a finished run with its exit code and duration.
func (m *Metrics) RecordRunCompleted(exitCode int, duration time.Duration) {
	if m.registry == nil {
		return
	}
	code := strconv.Itoa(exitCode)
	m.runsCompleted.WithLabelValues(code).Inc()
	m.runDuration.WithLabelValues(code).Observe(duration.Seconds())
}

// RecordVariant counts one variant outcome.
func (m *Metrics) RecordVariant(status string) {
	if m.registry == nil {
		return
	}
	m.variants.WithLabelValues(status).Inc()
}

// RecordDiagnostic counts one diagnostic.
func (m *Metrics) RecordDiagnostic(severity, rule string) {
	if m.registry == nil {
		return
	}
	if rule == "" {
		rule = "none"
	}
	m.diagnostics.WithLabelValues(severity, rule).Inc()
}

// ObserveStage records how long a pipeline stage took.
func (m *Metrics) ObserveStage(stage string, duration time.Duration) {
	if m.registry == nil {
		return
	}
	m.stageDuration.WithLabelValues(stage).Observe(duration.Seconds())
}

// RecordPlanEmitted counts an emitted plan and records its size.
func (m *Metrics) RecordPlanEmitted(format string, size int) {
	if m.registry == nil {
		return
	}
	m.plansEmitted.WithLabelValues(format).Inc()
	m.planBytes.Set(float64(size))
}

// RecordError counts a run failure by class.
func (m *Metrics) RecordError(class string) {
	if m.registry == nil {
		return
	}
	m.errorsByClass.WithLabelValues(class).Inc()
}

// WriteTextfile dumps the registry in the Prometheus text format, in the
// shape the node exporter textfile collector reads.
func (m *Metrics) WriteTextfile(path string) error {
	if m.registry == nil {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", path, err)
	}
	return nil
}

// Timer provides a convenient way to time operations.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// Duration returns the elapsed time since the timer was created.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
