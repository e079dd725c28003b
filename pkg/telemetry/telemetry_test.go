package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "default", mutate: func(*Config) {}},
		{name: "development", mutate: func(c *Config) { *c = *DevelopmentConfig() }},
		{name: "no service", mutate: func(c *Config) { c.ServiceName = "" }, wantErr: "service name"},
		{name: "bad level", mutate: func(c *Config) { c.Logging.Level = "loud" }, wantErr: "invalid log level"},
		{name: "bad format", mutate: func(c *Config) { c.Logging.Format = "xml" }, wantErr: "invalid log format"},
		{
			name: "network exporter",
			mutate: func(c *Config) {
				c.Tracing.Enabled = true
				c.Tracing.Exporter = "otlp"
			},
			wantErr: "invalid trace exporter",
		},
		{name: "sampling", mutate: func(c *Config) { c.Tracing.SamplingRate = 2 }, wantErr: "sampling rate"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("Validate() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoggerFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerTo(&buf, LoggingConfig{Level: "debug", Format: "json"})

	logger.NewComponentLogger("resolver").
		WithRunID("run-1").
		WithVariant("release").
		Info("resolved")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v (%q)", err, buf.String())
	}
	want := map[string]string{
		"component": "resolver",
		"run_id":    "run-1",
		"variant":   "release",
		"message":   "resolved",
		"level":     "info",
	}
	for k, v := range want {
		if entry[k] != v {
			t.Errorf("field %s = %v, want %q", k, entry[k], v)
		}
	}
}

func TestLoggerLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerTo(&buf, LoggingConfig{Level: "warn", Format: "json"})
	logger.Info("quiet")
	if buf.Len() != 0 {
		t.Fatalf("info written at warn level: %q", buf.String())
	}
	logger.Warn("loud")
	if !strings.Contains(buf.String(), "loud") {
		t.Fatalf("warning missing: %q", buf.String())
	}
}

func TestFromContextDefault(t *testing.T) {
	l := FromContext(context.Background())
	if l == nil {
		t.Fatal("FromContext() returned nil")
	}
	l.Info("discarded")
}

func TestMetricsDisabled(t *testing.T) {
	m, err := NewMetrics(MetricsConfig{Enabled: false})
	if err != nil {
		t.Fatalf("NewMetrics() error = %v", err)
	}
	m.RecordRunStarted()
	m.RecordRunCompleted(0, time.Second)
	m.RecordVariant("emitted")
	m.RecordDiagnostic("error", "required")
	m.ObserveStage("parse", time.Millisecond)
	m.RecordPlanEmitted("json", 10)
	m.RecordError("parse")
	if m.Registry() != nil {
		t.Fatal("disabled metrics have a registry")
	}
	if err := m.WriteTextfile(filepath.Join(t.TempDir(), "m.prom")); err != nil {
		t.Fatalf("WriteTextfile() error = %v", err)
	}
}

func TestMetricsRecording(t *testing.T) {
	m, err := NewMetrics(DefaultConfig().Metrics)
	if err != nil {
		t.Fatalf("NewMetrics() error = %v", err)
	}

	m.RecordRunStarted()
	m.RecordVariant("emitted")
	m.RecordVariant("emitted")
	m.RecordVariant("omitted")
	m.RecordDiagnostic("error", "version-order")
	m.RecordDiagnostic("warning", "")
	m.RecordPlanEmitted("yaml", 512)
	m.RecordRunCompleted(1, 20*time.Millisecond)

	if got := testutil.ToFloat64(m.runsStarted); got != 1 {
		t.Errorf("runs started = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.variants.WithLabelValues("emitted")); got != 2 {
		t.Errorf("emitted variants = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.diagnostics.WithLabelValues("warning", "none")); got != 1 {
		t.Errorf("unruled warnings = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.planBytes); got != 512 {
		t.Errorf("plan size = %v, want 512", got)
	}
	if got := testutil.ToFloat64(m.runsCompleted.WithLabelValues("1")); got != 1 {
		t.Errorf("runs completed with exit 1 = %v, want 1", got)
	}
}

func TestMetricsTextfile(t *testing.T) {
	m, err := NewMetrics(DefaultConfig().Metrics)
	if err != nil {
		t.Fatalf("NewMetrics() error = %v", err)
	}
	m.RecordPlanEmitted("json", 42)

	path := filepath.Join(t.TempDir(), "buildplan.prom")
	if err := m.WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile() error = %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `buildplan_plans_emitted_total{format="json"} 1`) {
		t.Fatalf("textfile missing plan counter:\n%s", data)
	}
}

func TestTracerStdout(t *testing.T) {
	var buf bytes.Buffer
	cfg := TracingConfig{Enabled: true, Exporter: "stdout", SamplingRate: 1}
	tracer, err := NewTracerTo(&buf, cfg, "buildplan", "test")
	if err != nil {
		t.Fatalf("NewTracerTo() error = %v", err)
	}

	ctx, run := tracer.StartRunSpan(context.Background(), "run-1", "build.hcl")
	_, stage := tracer.StartStageSpan(ctx, "resolve")
	RecordError(stage, errors.New("boom"))
	stage.End()
	RecordSuccess(run)
	run.End()

	if err := tracer.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
	out := buf.String()
	for _, want := range []string{`"stage.resolve"`, `"run"`, "boom", "run-1"} {
		if !strings.Contains(out, want) {
			t.Errorf("trace output missing %s", want)
		}
	}
}

func TestTracerDisabled(t *testing.T) {
	tracer, err := NewTracer(TracingConfig{}, "buildplan", "test")
	if err != nil {
		t.Fatalf("NewTracer() error = %v", err)
	}
	ctx, span := tracer.StartStageSpan(context.Background(), "parse")
	span.End()
	if TraceID(ctx) != "" {
		t.Fatal("noop tracer produced a valid trace ID")
	}
	if err := tracer.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
}

func TestStageRecordsDuration(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Logging.Output = filepath.Join(t.TempDir(), "buildplan.log")
	cfg.Metrics.Textfile = filepath.Join(t.TempDir(), "buildplan.prom")

	tel, err := NewTelemetry(cfg)
	if err != nil {
		t.Fatalf("NewTelemetry() error = %v", err)
	}
	ctx := tel.WithContext(context.Background())
	if FromTelemetryContext(ctx) != tel {
		t.Fatal("telemetry not found in context")
	}

	st := StartStage(ctx, "validate")
	st.End(nil)

	if got := testutil.CollectAndCount(tel.Metrics.stageDuration); got != 1 {
		t.Fatalf("stage series = %d, want 1", got)
	}
	if err := tel.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
	if _, err := os.Stat(cfg.Metrics.Textfile); err != nil {
		t.Fatalf("metrics textfile not written: %v", err)
	}
}

func TestStageWithoutTelemetry(t *testing.T) {
	st := StartStage(context.Background(), "parse")
	if st.Ctx == nil || st.Logger == nil {
		t.Fatal("stage without telemetry is incomplete")
	}
	st.End(errors.New("ignored"))
}
